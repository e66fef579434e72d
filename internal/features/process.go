package features

import (
	"errors"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
)

// Options selects the rolling windows and lags applied by Process.
type Options struct {
	Windows []int
	Lags    []int
}

// DefaultOptions are the windows and lags used for training.
func DefaultOptions() Options {
	return Options{
		Windows: []int{6, 12, 24},
		Lags:    []int{1, 3, 6},
	}
}

// ErrUnordered is returned when a frame's timestamps do not strictly increase.
var ErrUnordered = errors.New("timestamps are not strictly increasing")

// Process applies time, rolling, lag, rate-of-change and interaction features
// in that fixed order. Derived columns are only fed to later steps when they
// are named in columns. The result still contains missing values; apply
// FillMissing before training.
func Process(f *domain.Frame, columns []string, opts Options) (*domain.Frame, error) {
	if !timestampsSorted(f.Timestamps) {
		return nil, ErrUnordered
	}
	out := TimeFeatures(f)
	out = RollingFeatures(out, columns, opts.Windows)
	out = LagFeatures(out, columns, opts.Lags)
	out = RateOfChange(out, columns)
	out = InteractionFeatures(out)
	return out, nil
}
