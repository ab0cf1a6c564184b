package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrMissingColumn indicates a predictions file without a required column.
	ErrMissingColumn = errors.New("predictions column not found")
	// ErrSingleClass indicates that every label falls on one side of the threshold.
	ErrSingleClass = errors.New("AUC undefined: only one class present")
	// ErrNoPredictions indicates a predictions file with no data rows.
	ErrNoPredictions = errors.New("no predictions")
	// ErrNonFinite indicates a NaN or infinite value in a predictions file.
	ErrNonFinite = errors.New("non-finite value")
)

// Prediction is one row of a predictions file.
type Prediction struct {
	Actual    float64
	Predicted float64
}

// ReadPredictions reads the actual and predicted columns from a CSV file with
// a header row. Other columns are ignored.
func ReadPredictions(r io.Reader, actualCol, predCol string) ([]Prediction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoPredictions
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	ai, pi := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case actualCol:
			ai = i
		case predCol:
			pi = i
		}
	}
	if ai < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, actualCol)
	}
	if pi < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, predCol)
	}

	var preds []Prediction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= ai || len(rec) <= pi {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, max(ai, pi)+1, len(rec))
		}
		actual, err := parseFinite(rec[ai])
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, actualCol, err)
		}
		pred, err := parseFinite(rec[pi])
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, predCol, err)
		}
		preds = append(preds, Prediction{Actual: actual, Predicted: pred})
	}
	if len(preds) == 0 {
		return nil, ErrNoPredictions
	}
	return preds, nil
}

func parseFinite(field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNonFinite, field)
	}
	return v, nil
}

// AUC returns the area under the ROC curve for labels actual > threshold
// scored by the predicted value. Tied scores contribute half credit.
// Non-finite values are rejected with ErrNonFinite.
func AUC(preds []Prediction, threshold float64) (float64, error) {
	if len(preds) == 0 {
		return 0, ErrNoPredictions
	}
	for _, p := range preds {
		if !isFinite(p.Actual) || !isFinite(p.Predicted) {
			return 0, ErrNonFinite
		}
	}

	sorted := make([]Prediction, len(preds))
	copy(sorted, preds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Predicted > sorted[j].Predicted
	})

	var pos, neg float64
	for _, p := range sorted {
		if p.Actual > threshold {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, ErrSingleClass
	}

	// Walk the ROC curve one distinct score at a time and sum trapezoids.
	var area, tp, fp, prevTP, prevFP float64
	for i := 0; i < len(sorted); {
		score := sorted[i].Predicted
		for j := i; i < len(sorted) && (i == j || sorted[i].Predicted == score); i++ {
			if sorted[i].Actual > threshold {
				tp++
			} else {
				fp++
			}
		}
		area += (fp - prevFP) * (tp + prevTP) / 2
		prevTP, prevFP = tp, fp
	}
	return area / (pos * neg), nil
}

// RMSE returns the root mean squared error of the predictions.
func RMSE(preds []Prediction) (float64, error) {
	if len(preds) == 0 {
		return 0, ErrNoPredictions
	}
	for _, p := range preds {
		if !isFinite(p.Actual) || !isFinite(p.Predicted) {
			return 0, ErrNonFinite
		}
	}
	var sum float64
	for _, p := range preds {
		d := p.Actual - p.Predicted
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(preds))), nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
