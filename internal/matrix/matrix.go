// Package matrix holds the matrix handle passed to the engine and the readers
// that load matrices from disk.
package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat indicates a file extension no reader understands.
	ErrUnsupportedFormat = errors.New("unsupported matrix format")

	// ErrMalformed indicates a file whose content does not match its declared format.
	ErrMalformed = errors.New("malformed matrix file")
)

// Matrix is a loaded two-dimensional matrix, either dense or sparse.
//
// Dense matrices store values row-major in Data. Sparse matrices store
// coordinates in RowIdx/ColIdx (0-based) with matching Values.
type Matrix struct {
	// Path is the file the matrix was read from, empty for in-memory matrices.
	Path string

	Rows int
	Cols int

	Data []float64

	RowIdx []int
	ColIdx []int
	Values []float64
}

// NewDense builds a dense matrix from row-major data.
func NewDense(rows, cols int, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %dx%d dense matrix needs %d values, got %d",
			ErrMalformed, rows, cols, rows*cols, len(data))
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// NewSparse builds a sparse matrix from 0-based coordinates.
func NewSparse(rows, cols int, rowIdx, colIdx []int, values []float64) (*Matrix, error) {
	if len(rowIdx) != len(colIdx) || len(rowIdx) != len(values) {
		return nil, fmt.Errorf("%w: coordinate arrays differ in length", ErrMalformed)
	}
	for i := range rowIdx {
		if rowIdx[i] < 0 || rowIdx[i] >= rows || colIdx[i] < 0 || colIdx[i] >= cols {
			return nil, fmt.Errorf("%w: entry (%d,%d) outside %dx%d",
				ErrMalformed, rowIdx[i], colIdx[i], rows, cols)
		}
	}
	return &Matrix{Rows: rows, Cols: cols, RowIdx: rowIdx, ColIdx: colIdx, Values: values}, nil
}

// IsDense reports whether the matrix stores every entry.
func (m *Matrix) IsDense() bool {
	return m.Data != nil || (m.RowIdx == nil && m.Rows*m.Cols == 0)
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	if m.IsDense() {
		return len(m.Data)
	}
	return len(m.Values)
}

// At returns the value at (i, j). Missing sparse entries read as zero.
func (m *Matrix) At(i, j int) float64 {
	if m.IsDense() {
		return m.Data[i*m.Cols+j]
	}
	for k := range m.Values {
		if m.RowIdx[k] == i && m.ColIdx[k] == j {
			return m.Values[k]
		}
	}
	return 0
}

func (m *Matrix) String() string {
	kind := "sparse"
	if m.IsDense() {
		kind = "dense"
	}
	if m.Path != "" {
		return fmt.Sprintf("%s %dx%d (%d nnz) from %s", kind, m.Rows, m.Cols, m.NNZ(), m.Path)
	}
	return fmt.Sprintf("%s %dx%d (%d nnz)", kind, m.Rows, m.Cols, m.NNZ())
}
