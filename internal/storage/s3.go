// Package storage uploads finished output files to S3 compatible object
// storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

var ErrBadURL = errors.New("not an s3://bucket/key url")

type Config struct {
	Endpoint        string `env:"S3_ENDPOINT"`
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	// needed for MinIO
	UsePathStyle bool `env:"S3_USE_PATH_STYLE"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse storage environment: %w", err)
	}
	return cfg, nil
}

// ParseURL splits s3://bucket/key into bucket and key.
func ParseURL(s string) (string, string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadURL, s)
	}
	return u.Host, key, nil
}

type Uploader struct {
	client   *s3.Client
	uploader *manager.Uploader
}

func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	opts := []func(*aws_config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, aws_config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		opts = append(opts, aws_config.WithCredentialsProvider(creds))
	}

	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Uploader{
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// UploadFile copies the file at path to dest, an s3://bucket/key url.
func (u *Uploader) UploadFile(ctx context.Context, path, dest string) error {
	bucket, key, err := ParseURL(dest)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s for upload: %w", path, err)
	}
	defer f.Close()

	out, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload %s to %s: %w", path, dest, err)
	}

	log.WithFields(log.Fields{
		"file":     path,
		"location": out.Location,
	}).Info("uploaded output")
	return nil
}
