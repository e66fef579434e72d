package model

import (
	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
)

// FlareClassifier predicts whether an M- or X-class flare occurs.
type FlareClassifier struct {
	Scaler   StandardScaler    `json:"scaler"`
	Booster  *GradientBoosting `json:"booster"`
	Features []string          `json:"features"`
}

// NewFlareClassifier returns an untrained classifier using logistic-loss
// gradient boosting.
func NewFlareClassifier(params BoostParams) *FlareClassifier {
	return &FlareClassifier{Booster: NewGradientBoosting(LossLogistic, params)}
}

// Name identifies the model in logs and metrics.
func (c *FlareClassifier) Name() string { return "flare_classifier" }

// Prepare selects every numeric column except labels and targets, with
// missing values set to zero. The target defaults to flare_occurred. Once
// trained, the fitted columns are used in their training order.
func (c *FlareClassifier) Prepare(f *domain.Frame, target string) (Dataset, error) {
	if target == "" {
		target = domain.ColFlareOccurred
	}
	var fitted []string
	if c.Scaler.Fitted() {
		fitted = c.Features
	}
	ds, err := prepareTabular(f, target, fitted)
	if err != nil {
		return Dataset{}, err
	}
	c.Features = ds.Features
	return ds, nil
}

// Train fits the scaler and the booster.
func (c *FlareClassifier) Train(X [][]float64, y []float64) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	var scaler StandardScaler
	if err := scaler.Fit(X); err != nil {
		return err
	}
	scaled, err := scaler.Transform(X)
	if err != nil {
		return err
	}
	if c.Booster == nil {
		c.Booster = NewGradientBoosting(LossLogistic, DefaultBoostParams())
	}
	if err := c.Booster.Fit(scaled, y); err != nil {
		return err
	}
	c.Scaler = scaler
	return nil
}

// Predict returns hard labels, [P(no flare), P(flare)] per sample, and the
// flare probability in Values.
func (c *FlareClassifier) Predict(X [][]float64) (Prediction, error) {
	if c.Booster == nil || !c.Scaler.Fitted() || !c.Booster.Fitted() {
		return Prediction{}, ErrNotTrained
	}
	scaled, err := c.Scaler.Transform(X)
	if err != nil {
		return Prediction{}, err
	}
	out := Prediction{
		Values:        make([]float64, len(X)),
		Labels:        make([]int, len(X)),
		Probabilities: make([][]float64, len(X)),
	}
	for i, x := range scaled {
		p := c.Booster.Predict(x)
		out.Values[i] = p
		out.Probabilities[i] = []float64{1 - p, p}
		if p >= 0.5 {
			out.Labels[i] = 1
		}
	}
	return out, nil
}

// Evaluate reports accuracy and positive-class precision, recall and F1.
func (c *FlareClassifier) Evaluate(X [][]float64, y []float64) (Evaluation, error) {
	if err := checkXY(X, y); err != nil {
		return Evaluation{}, err
	}
	pred, err := c.Predict(X)
	if err != nil {
		return Evaluation{}, err
	}
	precision, recall, f1 := PrecisionRecallF1(pred.Labels, y)
	return Evaluation{
		Accuracy:  Accuracy(pred.Labels, y),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
	}, nil
}
