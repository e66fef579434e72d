// Package model implements the flare classifier, the Kp sequence forecaster
// and the satellite risk regressor behind one prepare/train/predict/evaluate
// contract.
package model

import (
	"errors"
	"fmt"
	"slices"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
)

var (
	// ErrNotTrained is returned when a model is used before Train succeeds.
	ErrNotTrained = errors.New("model is not trained")
	// ErrShape is returned when inputs do not match the fitted dimensions.
	ErrShape = errors.New("input shape mismatch")
)

// Dataset is a supervised table ready for training. Tabular datasets have
// Timesteps == 1. Sequence datasets flatten each window timestep-major, so
// sample i holds Timesteps × len(Features) values.
type Dataset struct {
	X         [][]float64
	Y         []float64
	Features  []string
	Timesteps int
}

// Len returns the number of samples.
func (d Dataset) Len() int { return len(d.X) }

// Subset returns the samples at the given indices. Rows are shared, not copied.
func (d Dataset) Subset(idx []int) Dataset {
	out := Dataset{
		X:         make([][]float64, len(idx)),
		Y:         make([]float64, len(idx)),
		Features:  d.Features,
		Timesteps: d.Timesteps,
	}
	for i, j := range idx {
		out.X[i] = d.X[j]
		out.Y[i] = d.Y[j]
	}
	return out
}

// Prediction holds model output. Regressors fill Values only. Classifiers
// also fill Labels and per-class Probabilities, with Values holding the
// positive-class probability.
type Prediction struct {
	Values        []float64
	Labels        []int
	Probabilities [][]float64
}

// Evaluation holds held-out scores. Classifiers report Accuracy and the
// positive-class Precision, Recall and F1; regressors report RMSE and R2.
type Evaluation struct {
	Accuracy  float64 `json:"accuracy,omitempty"`
	Precision float64 `json:"precision,omitempty"`
	Recall    float64 `json:"recall,omitempty"`
	F1        float64 `json:"f1,omitempty"`
	RMSE      float64 `json:"rmse,omitempty"`
	R2        float64 `json:"r2,omitempty"`
}

// Preparer selects features and a target from an engineered frame.
type Preparer interface {
	Prepare(f *domain.Frame, target string) (Dataset, error)
}

// Trainer fits a scaler and the underlying estimator.
type Trainer interface {
	Train(X [][]float64, y []float64) error
}

// Predictor produces output for already prepared samples.
type Predictor interface {
	Predict(X [][]float64) (Prediction, error)
}

// Evaluator scores held-out samples without changing model state.
type Evaluator interface {
	Evaluate(X [][]float64, y []float64) (Evaluation, error)
}

// Model is the capability set shared by all predictors.
type Model interface {
	Name() string
	Preparer
	Trainer
	Predictor
	Evaluator
}

// tabularFeatures returns every numeric column that is not a label, target
// or model output.
func tabularFeatures(f *domain.Frame, target string) []string {
	var out []string
	for _, c := range f.Columns() {
		if c == target || slices.Contains(domain.TargetColumns, c) || slices.Contains(domain.PredictionColumns, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// prepareTabular builds a tabular dataset with missing inputs set to zero.
// A fitted model passes its training columns so inputs keep their order;
// a fitted column absent from f is an error.
func prepareTabular(f *domain.Frame, target string, fitted []string) (Dataset, error) {
	y := f.Column(target)
	if y == nil {
		return Dataset{}, fmt.Errorf("target column %q not in frame", target)
	}
	features := slices.Clone(fitted)
	if len(features) == 0 {
		features = tabularFeatures(f, target)
	}
	if len(features) == 0 {
		return Dataset{}, errors.New("no feature columns in frame")
	}
	X, err := f.Matrix(features, 0)
	if err != nil {
		return Dataset{}, fmt.Errorf("build feature matrix: %w", err)
	}
	return Dataset{X: X, Y: slices.Clone(y), Features: features, Timesteps: 1}, nil
}

func checkXY(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("%w: no samples", ErrShape)
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d samples, %d targets", ErrShape, len(X), len(y))
	}
	return nil
}

func checkWidth(X [][]float64, width int) error {
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: sample %d has %d values, want %d", ErrShape, i, len(row), width)
		}
	}
	return nil
}
