package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source opens the raw cycle dataset.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// FileSource reads the dataset from the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource builds a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: strings.TrimSpace(path)}
}

// Open implements Source.
func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	return f, nil
}

func (s *FileSource) String() string { return "file://" + s.path }
