package features

import (
	"math"
	"slices"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
)

// FillMissing resolves missing numeric values with one ordered policy:
// backward-fill, then forward-fill, then zero. Leading gaps take the next
// observed value, trailing gaps the previous one, and all-missing columns
// become zero.
func FillMissing(f *domain.Frame) *domain.Frame {
	out := f.Clone()
	for _, col := range out.Columns() {
		values := out.Column(col)
		BackwardFill(values)
		ForwardFill(values)
		ZeroFill(values)
	}
	return out
}

// ForwardFill replaces each missing value with the last observed one, in place.
func ForwardFill(values []float64) {
	last := math.NaN()
	for i, v := range values {
		if missing(v) {
			values[i] = last
			continue
		}
		last = v
	}
}

// BackwardFill replaces each missing value with the next observed one, in place.
func BackwardFill(values []float64) {
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if missing(values[i]) {
			values[i] = next
			continue
		}
		next = values[i]
	}
}

// ZeroFill replaces remaining missing values with zero, in place.
func ZeroFill(values []float64) {
	for i, v := range values {
		if missing(v) {
			values[i] = 0
		}
	}
}

// ForwardZeroFill returns a copy filled forward and then with zeros, the
// policy used before windowing driver series.
func ForwardZeroFill(values []float64) []float64 {
	out := slices.Clone(values)
	ForwardFill(out)
	ZeroFill(out)
	return out
}

func missing(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }
