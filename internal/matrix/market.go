package matrix

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// mmHeader is the parsed "%%MatrixMarket matrix <format> <field> <symmetry>" banner.
type mmHeader struct {
	format   string // coordinate | array
	field    string // real | integer | pattern
	symmetry string // general | symmetric
}

// ReadMatrixMarket parses a Matrix Market stream. Coordinate files become
// sparse matrices, array files become dense ones. Symmetric files are expanded.
func ReadMatrixMarket(r io.Reader) (*Matrix, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty file", ErrMalformed)
	}
	hdr, err := parseBanner(sc.Text())
	if err != nil {
		return nil, err
	}

	var size []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		size = strings.Fields(line)
		break
	}
	if size == nil {
		return nil, fmt.Errorf("%w: missing size line", ErrMalformed)
	}

	dims, err := atoiAll(size)
	if err != nil {
		return nil, fmt.Errorf("%w: size line: %v", ErrMalformed, err)
	}

	switch hdr.format {
	case "coordinate":
		if len(dims) != 3 {
			return nil, fmt.Errorf("%w: coordinate size line needs rows cols nnz", ErrMalformed)
		}
		return readCoordinate(sc, hdr, dims[0], dims[1], dims[2])
	default:
		if len(dims) != 2 {
			return nil, fmt.Errorf("%w: array size line needs rows cols", ErrMalformed)
		}
		return readArray(sc, hdr, dims[0], dims[1])
	}
}

func parseBanner(line string) (mmHeader, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) != 5 || fields[0] != "%%matrixmarket" || fields[1] != "matrix" {
		return mmHeader{}, fmt.Errorf("%w: bad banner %q", ErrMalformed, line)
	}
	hdr := mmHeader{format: fields[2], field: fields[3], symmetry: fields[4]}

	switch hdr.format {
	case "coordinate", "array":
	default:
		return hdr, fmt.Errorf("%w: format %q", ErrUnsupportedFormat, hdr.format)
	}
	switch hdr.field {
	case "real", "integer", "double":
	case "pattern":
		if hdr.format == "array" {
			return hdr, fmt.Errorf("%w: pattern field requires coordinate format", ErrMalformed)
		}
	default:
		return hdr, fmt.Errorf("%w: field %q", ErrUnsupportedFormat, hdr.field)
	}
	switch hdr.symmetry {
	case "general", "symmetric":
	default:
		return hdr, fmt.Errorf("%w: symmetry %q", ErrUnsupportedFormat, hdr.symmetry)
	}
	return hdr, nil
}

func readCoordinate(sc *bufio.Scanner, hdr mmHeader, rows, cols, nnz int) (*Matrix, error) {
	rowIdx := make([]int, 0, nnz)
	colIdx := make([]int, 0, nnz)
	values := make([]float64, 0, nnz)

	read := 0
	for read < nnz && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		f := strings.Fields(line)
		want := 3
		if hdr.field == "pattern" {
			want = 2
		}
		if len(f) < want {
			return nil, fmt.Errorf("%w: entry %d: %q", ErrMalformed, read+1, line)
		}
		ij, err := atoiAll(f[:2])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, read+1, err)
		}
		v := 1.0
		if hdr.field != "pattern" {
			if v, err = strconv.ParseFloat(f[2], 64); err != nil {
				return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, read+1, err)
			}
		}

		i, j := ij[0]-1, ij[1]-1
		rowIdx = append(rowIdx, i)
		colIdx = append(colIdx, j)
		values = append(values, v)
		if hdr.symmetry == "symmetric" && i != j {
			rowIdx = append(rowIdx, j)
			colIdx = append(colIdx, i)
			values = append(values, v)
		}
		read++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if read != nnz {
		return nil, fmt.Errorf("%w: expected %d entries, found %d", ErrMalformed, nnz, read)
	}
	return NewSparse(rows, cols, rowIdx, colIdx, values)
}

// readArray reads column-major values, the Matrix Market array order.
func readArray(sc *bufio.Scanner, hdr mmHeader, rows, cols int) (*Matrix, error) {
	data := make([]float64, rows*cols)

	// symmetric arrays store only the lower triangle, column by column
	var cells [][2]int
	for j := 0; j < cols; j++ {
		start := 0
		if hdr.symmetry == "symmetric" {
			start = j
		}
		for i := start; i < rows; i++ {
			cells = append(cells, [2]int{i, j})
		}
	}

	read := 0
	for read < len(cells) && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		v, err := strconv.ParseFloat(strings.Fields(line)[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrMalformed, read+1, err)
		}
		i, j := cells[read][0], cells[read][1]
		data[i*cols+j] = v
		if hdr.symmetry == "symmetric" && i != j {
			data[j*cols+i] = v
		}
		read++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if read != len(cells) {
		return nil, fmt.Errorf("%w: expected %d values, found %d", ErrMalformed, len(cells), read)
	}
	return NewDense(rows, cols, data)
}

// WriteMatrixMarket writes m in Matrix Market format: coordinate for sparse
// matrices, array for dense ones.
func WriteMatrixMarket(w io.Writer, m *Matrix) error {
	bw := bufio.NewWriter(w)
	if m.IsDense() {
		fmt.Fprintln(bw, "%%MatrixMarket matrix array real general")
		fmt.Fprintf(bw, "%d %d\n", m.Rows, m.Cols)
		for j := 0; j < m.Cols; j++ {
			for i := 0; i < m.Rows; i++ {
				fmt.Fprintln(bw, strconv.FormatFloat(m.Data[i*m.Cols+j], 'g', -1, 64))
			}
		}
		return bw.Flush()
	}

	fmt.Fprintln(bw, "%%MatrixMarket matrix coordinate real general")
	fmt.Fprintf(bw, "%d %d %d\n", m.Rows, m.Cols, len(m.Values))
	for k := range m.Values {
		fmt.Fprintf(bw, "%d %d %s\n", m.RowIdx[k]+1, m.ColIdx[k]+1,
			strconv.FormatFloat(m.Values[k], 'g', -1, 64))
	}
	return bw.Flush()
}

func atoiAll(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
