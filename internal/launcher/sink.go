package launcher

import (
	"fmt"
	"io"
	"os"
)

// OpenAppend opens path for appending, creating it if needed. Content already
// in the file is kept.
func OpenAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// OpenSink is OpenAppend, except that an empty path means standard output.
func OpenSink(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return OpenAppend(path)
}
