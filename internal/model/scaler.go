package model

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each feature and scales it to unit population
// variance. Constant features keep a unit scale.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit learns per-feature mean and scale from the rows of X.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("%w: fit scaler on empty input", ErrShape)
	}
	width := len(X[0])
	if err := checkWidth(X, width); err != nil {
		return err
	}
	s.Mean = make([]float64, width)
	s.Scale = make([]float64, width)
	col := make([]float64, len(X))
	for j := range width {
		for i, row := range X {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return nil
}

// Fitted reports whether Fit has run.
func (s *StandardScaler) Fitted() bool { return len(s.Mean) > 0 }

// Transform returns scaled copies of the rows of X.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if !s.Fitted() {
		return nil, ErrNotTrained
	}
	if err := checkWidth(X, len(s.Mean)); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.transformRow(row)
	}
	return out, nil
}

func (s *StandardScaler) transformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}
