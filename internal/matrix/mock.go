package matrix

import (
	"fmt"
	"sync"
)

// MockReader is an in-memory Reader for tests. It serves registered matrices
// by path and counts how often each path was requested.
type MockReader struct {
	mu       sync.Mutex
	matrices map[string]*Matrix
	errs     map[string]error
	calls    map[string]int
}

// NewMockReader creates an empty mock reader.
func NewMockReader() *MockReader {
	return &MockReader{
		matrices: make(map[string]*Matrix),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Add registers a small dense matrix under path and returns it.
func (r *MockReader) Add(path string) *Matrix {
	m := &Matrix{Path: path, Rows: 1, Cols: 1, Data: []float64{1}}
	r.mu.Lock()
	r.matrices[path] = m
	r.mu.Unlock()
	return m
}

// Fail makes reads of path return err.
func (r *MockReader) Fail(path string, err error) {
	r.mu.Lock()
	r.errs[path] = err
	r.mu.Unlock()
}

// Calls returns the number of reads of path.
func (r *MockReader) Calls(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

func (r *MockReader) Read(path string) (*Matrix, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[path]++
	if err, ok := r.errs[path]; ok {
		return nil, err
	}
	m, ok := r.matrices[path]
	if !ok {
		return nil, fmt.Errorf("failed to open matrix %s: no such file", path)
	}
	return m, nil
}
