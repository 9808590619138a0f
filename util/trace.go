package util

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"runtime/trace"

	log "github.com/sirupsen/logrus"
)

// StartTrace writes an execution trace to path until the returned function is
// called. An empty path disables tracing.
func StartTrace(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := create(path)
	if err != nil {
		return nil, err
	}
	if err := trace.Start(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("start trace: %w", err)
	}

	return func() {
		trace.Stop()
		closeLogged(f, "failed to close trace file")
	}, nil
}

// StartCPUProfile is StartTrace for a pprof cpu profile.
func StartCPUProfile(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("start cpu profile: %w", err)
	}

	return func() {
		pprof.StopCPUProfile()
		closeLogged(f, "failed to close cpu profile")
	}, nil
}

func create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Warn("error creating trace directory")
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

func closeLogged(f *os.File, msg string) {
	if err := f.Close(); err != nil {
		log.WithFields(log.Fields{
			"error": err,
			"file":  f.Name(),
		}).Error(msg)
	}
}
