package matrix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV parses a dense matrix from comma-separated rows. A first row that is
// not numeric is treated as a header and skipped.
func ReadCSV(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	var data []float64
	rows, cols := 0, -1
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		vals, perr := parseRow(rec)
		if perr != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, perr)
		}
		if cols >= 0 && len(vals) != cols {
			return nil, fmt.Errorf("%w: line %d has %d columns, expected %d", ErrMalformed, line, len(vals), cols)
		}
		cols = len(vals)
		data = append(data, vals...)
		rows++
	}
	if cols < 0 {
		cols = 0
	}
	return NewDense(rows, cols, data)
}

func parseRow(rec []string) ([]float64, error) {
	vals := make([]float64, len(rec))
	for i, s := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
