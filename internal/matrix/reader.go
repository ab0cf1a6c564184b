package matrix

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Reader loads a matrix from a path.
type Reader interface {
	Read(path string) (*Matrix, error)
}

// FileReader reads matrices from disk, choosing the format by file extension:
// .mtx and .mm are Matrix Market, .csv is dense comma-separated values.
type FileReader struct{}

// NewFileReader creates a reader for on-disk matrices.
func NewFileReader() *FileReader {
	return &FileReader{}
}

func (r *FileReader) Read(path string) (*Matrix, error) {
	var parse func(f *os.File) (*Matrix, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mtx", ".mm":
		parse = func(f *os.File) (*Matrix, error) { return ReadMatrixMarket(f) }
	case ".csv":
		parse = func(f *os.File) (*Matrix, error) { return ReadCSV(f) }
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open matrix %s: %w", path, err)
	}
	defer f.Close()

	m, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix %s: %w", path, err)
	}
	m.Path = path
	return m, nil
}
