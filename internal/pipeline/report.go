package pipeline

import (
	"math"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/couchcryptid/space-weather-forecaster/internal/export"
	"github.com/couchcryptid/space-weather-forecaster/internal/model"
)

// ModelReport summarizes one trained predictor.
type ModelReport struct {
	Name          string           `json:"name"`
	TrainSamples  int              `json:"train_samples"`
	TestSamples   int              `json:"test_samples"`
	Features      int              `json:"features"`
	TrainDuration time.Duration    `json:"train_duration_ns"`
	Evaluation    model.Evaluation `json:"evaluation"`
}

// Report is the outcome of one completed run, served read-only over HTTP.
type Report struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Samples     int                       `json:"samples"`
	Models      []ModelReport             `json:"models"`
	Conditions  domain.Conditions         `json:"conditions"`
	RiskStatus  string                    `json:"risk_status"`
	Predictions []export.PredictionRecord `json:"predictions"`
	Forecast    []domain.ForecastPoint    `json:"forecast"`
	Alerts      []domain.Alert            `json:"alerts"`
	// Sources maps each collected upstream source to its record count.
	Sources map[string]int `json:"sources,omitempty"`
}

// finite zeroes undefined scores so the evaluation stays JSON-encodable.
func finite(e model.Evaluation) model.Evaluation {
	for _, v := range []*float64{&e.Accuracy, &e.Precision, &e.Recall, &e.F1, &e.RMSE, &e.R2} {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = 0
		}
	}
	return e
}
