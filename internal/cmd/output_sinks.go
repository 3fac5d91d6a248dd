package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marklens/marklens/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

func resolveOutputFormat(value string) (output.Format, error) {
	return output.ParseFormat(value)
}

// openSink returns stdout for an empty or "-" path, otherwise creates the
// file (and its directory).
func openSink(path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: os.Stdout, close: func() error { return nil }, path: "-"}, nil
	}

	if dir := filepath.Dir(trimmed); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}
