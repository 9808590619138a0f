package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

var ErrNoJobID = errors.New("no job id in sbatch output")

var submittedRe = regexp.MustCompile(`Submitted batch job (\d+)`)

// parsable output of sbatch: "<id>" or "<id>;<cluster>"
var parsableRe = regexp.MustCompile(`^(\d+)(;\S+)?$`)

func ParseJobID(out string) (string, error) {
	if m := submittedRe.FindStringSubmatch(out); m != nil {
		return m[1], nil
	}
	if m := parsableRe.FindStringSubmatch(strings.TrimSpace(out)); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrNoJobID, out)
}

// Submit queues the batch script at scriptPath with sbatch and returns the id
// of the job.
func Submit(ctx context.Context, sbatch, scriptPath string) (string, error) {
	if sbatch == "" {
		sbatch = "sbatch"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, sbatch, scriptPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("sbatch %s: %w: %s", scriptPath, err, strings.TrimSpace(stderr.String()))
	}

	id, err := ParseJobID(stdout.String())
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		"job id": id,
		"script": scriptPath,
	}).Info("batch job submitted")
	return id, nil
}
