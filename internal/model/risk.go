package model

import (
	"math"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
)

// Satellite risk score bounds.
const (
	RiskMin = 0.0
	RiskMax = 10.0
)

// RiskRegressor scores satellite operational risk on a 0-10 scale.
type RiskRegressor struct {
	Scaler   StandardScaler    `json:"scaler"`
	Booster  *GradientBoosting `json:"booster"`
	Features []string          `json:"features"`
}

// NewRiskRegressor returns an untrained regressor using squared-loss
// gradient boosting.
func NewRiskRegressor(params BoostParams) *RiskRegressor {
	return &RiskRegressor{Booster: NewGradientBoosting(LossSquared, params)}
}

// Name identifies the model in logs and metrics.
func (r *RiskRegressor) Name() string { return "risk_regressor" }

// Prepare uses the same feature selection as the flare classifier, and the
// fitted columns once trained. The target defaults to satellite_risk.
func (r *RiskRegressor) Prepare(f *domain.Frame, target string) (Dataset, error) {
	if target == "" {
		target = domain.ColSatelliteRisk
	}
	var fitted []string
	if r.Scaler.Fitted() {
		fitted = r.Features
	}
	ds, err := prepareTabular(f, target, fitted)
	if err != nil {
		return Dataset{}, err
	}
	r.Features = ds.Features
	return ds, nil
}

// Train fits the scaler and the booster.
func (r *RiskRegressor) Train(X [][]float64, y []float64) error {
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
	if r.Booster == nil {
		r.Booster = NewGradientBoosting(LossSquared, DefaultBoostParams())
	}
	if err := r.Booster.Fit(scaled, y); err != nil {
		return err
	}
	r.Scaler = scaler
	return nil
}

// Predict returns risk scores clipped to [0, 10].
func (r *RiskRegressor) Predict(X [][]float64) (Prediction, error) {
	if r.Booster == nil || !r.Scaler.Fitted() || !r.Booster.Fitted() {
		return Prediction{}, ErrNotTrained
	}
	scaled, err := r.Scaler.Transform(X)
	if err != nil {
		return Prediction{}, err
	}
	values := make([]float64, len(X))
	for i, x := range scaled {
		values[i] = math.Min(math.Max(r.Booster.Predict(x), RiskMin), RiskMax)
	}
	return Prediction{Values: values}, nil
}

// Evaluate reports RMSE and R².
func (r *RiskRegressor) Evaluate(X [][]float64, y []float64) (Evaluation, error) {
	if err := checkXY(X, y); err != nil {
		return Evaluation{}, err
	}
	pred, err := r.Predict(X)
	if err != nil {
		return Evaluation{}, err
	}
	return regressionScores(pred.Values, y), nil
}
