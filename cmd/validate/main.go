// Command validate performs integrity checks over the tables a forecasting
// run exports: the prediction table, the Kp forecast, their optional Parquet
// copies and the saved model artifacts. It verifies schema, value ranges,
// label consistency with the classification ladders, and that reloaded
// models reproduce the exported predictions.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -output-dir output \
//	  -model-dir models
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/couchcryptid/space-weather-forecaster/internal/export"
	"github.com/couchcryptid/space-weather-forecaster/internal/model"
	"github.com/couchcryptid/space-weather-forecaster/internal/pipeline"
)

const tolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	errors  []string
	skipped bool
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	outputDir := flag.String("output-dir", "output", "directory containing exported prediction and forecast tables")
	modelDir := flag.String("model-dir", "", "directory containing saved models (optional)")
	flag.Parse()

	if code := run(*outputDir, *modelDir); code != 0 {
		os.Exit(code)
	}
}

func run(outputDir, modelDir string) int {
	fmt.Println("=== Space Weather Output Validation ===")
	fmt.Println()

	predictions, err := export.ReadFrameFile(filepath.Join(outputDir, pipeline.PredictionsCSV))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load predictions: %v\n", err)
		return 1
	}
	forecast, err := export.ReadFrameFile(filepath.Join(outputDir, pipeline.ForecastCSV))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load forecast: %v\n", err)
		return 1
	}

	phases := []*phase{
		validatePredictionTable(predictions),
		validateLabels(predictions),
		validateForecast(forecast, predictions),
		validateParquet(outputDir, predictions, forecast),
		validateModels(modelDir, predictions),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d predictions, %d forecast hours\n", predictions.Len(), forecast.Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Prediction table ──
// Required columns exist, timestamps increase and model outputs are in range.

func validatePredictionTable(f *domain.Frame) *phase {
	p := &phase{name: "Phase 1: Prediction Table (schema, ranges)"}

	if f.Len() == 0 {
		p.errorf("prediction table is empty")
		return p
	}
	for _, c := range []string{
		domain.ColSolarWindSpeed, domain.ColBz, domain.ColXRayFlux, domain.ColKpIndex,
		domain.ColFlarePrediction, domain.ColFlareProbability, domain.ColRiskPrediction,
	} {
		if !f.Has(c) {
			p.errorf("missing numeric column %q", c)
		}
	}
	if !p.passed() {
		return p
	}
	for i := 1; i < f.Len(); i++ {
		if !f.Timestamps[i].After(f.Timestamps[i-1]) {
			p.errorf("row %d: timestamp %s does not follow %s", i, f.Timestamps[i].Format(time.RFC3339), f.Timestamps[i-1].Format(time.RFC3339))
		}
	}

	label := f.Column(domain.ColFlarePrediction)
	prob := f.Column(domain.ColFlareProbability)
	risk := f.Column(domain.ColRiskPrediction)
	for i := range f.Len() {
		if label[i] != 0 && label[i] != 1 {
			p.errorf("row %d: flare_prediction=%v, want 0 or 1", i, label[i])
		}
		if !inRange(prob[i], 0, 1) {
			p.errorf("row %d: flare_probability=%v outside [0, 1]", i, prob[i])
		} else if (prob[i] >= 0.5) != (label[i] == 1) {
			p.errorf("row %d: flare_prediction=%v disagrees with probability %v", i, label[i], prob[i])
		}
		if !inRange(risk[i], model.RiskMin, model.RiskMax) {
			p.errorf("row %d: risk_prediction=%v outside [0, 10]", i, risk[i])
		}
	}
	return p
}

// ── Phase 2: Label consistency ──
// Categorical labels agree with the flux and Kp classification ladders.

func validateLabels(f *domain.Frame) *phase {
	p := &phase{name: "Phase 2: Label Consistency (flare, storm)"}

	flux := f.Column(domain.ColXRayFlux)
	kp := f.Column(domain.ColKpIndex)
	if flares := f.Label(domain.ColFlareClass); flares != nil && flux != nil {
		for i, c := range flares {
			if want := domain.ClassifyFlareIntensity(flux[i]); domain.FlareClass(c) != want {
				p.errorf("row %d: flare_class=%s, flux %g classifies as %s", i, c, flux[i], want)
			}
		}
	}
	if storms := f.Label(domain.ColStormClass); storms != nil && kp != nil {
		for i, c := range storms {
			if want := domain.ClassifyGeomagStorm(kp[i]); domain.StormClass(c) != want {
				p.errorf("row %d: storm_class=%s, kp %g classifies as %s", i, c, kp[i], want)
			}
		}
	}
	if occurred := f.Column(domain.ColFlareOccurred); occurred != nil && flux != nil {
		for i, v := range occurred {
			want := 0.0
			if domain.ClassifyFlareIntensity(flux[i]).Significant() {
				want = 1
			}
			if v != want {
				p.errorf("row %d: flare_occurred=%v, want %v", i, v, want)
			}
		}
	}
	return p
}

// ── Phase 3: Forecast ──
// One row per hour after the last prediction, Kp in range, levels consistent.

func validateForecast(f, predictions *domain.Frame) *phase {
	p := &phase{name: "Phase 3: Forecast (hours, Kp, storm level)"}

	if f.Len() == 0 {
		p.errorf("forecast is empty")
		return p
	}
	hours := f.Column("hour_ahead")
	kp := f.Column("kp_forecast")
	levels := f.Label("storm_level")
	if hours == nil || kp == nil || levels == nil {
		p.errorf("forecast must have hour_ahead, kp_forecast and storm_level columns")
		return p
	}

	last := predictions.Timestamps[predictions.Len()-1]
	for i := range f.Len() {
		if hours[i] != float64(i+1) {
			p.errorf("row %d: hour_ahead=%v, want %d", i, hours[i], i+1)
		}
		if want := last.Add(time.Duration(i+1) * time.Hour); !f.Timestamps[i].Equal(want) {
			p.errorf("row %d: timestamp %s, want %s", i, f.Timestamps[i].Format(time.RFC3339), want.Format(time.RFC3339))
		}
		if !inRange(kp[i], 0, 9) {
			p.errorf("row %d: kp_forecast=%v outside [0, 9]", i, kp[i])
		}
		if want := domain.ClassifyGeomagStorm(kp[i]); domain.StormClass(levels[i]) != want {
			p.errorf("row %d: storm_level=%s, kp %g classifies as %s", i, levels[i], kp[i], want)
		}
	}
	return p
}

// ── Phase 4: Parquet parity ──
// Parquet copies, when present, hold the same rows as the CSV tables.

func validateParquet(dir string, predictions, forecast *domain.Frame) *phase {
	p := &phase{name: "Phase 4: Parquet Parity (vs CSV)"}

	predPath := filepath.Join(dir, pipeline.PredictionsParquet)
	if _, err := os.Stat(predPath); errors.Is(err, os.ErrNotExist) {
		p.skipped = true
		return p
	}

	rows, err := export.ReadParquetFile[export.PredictionRecord](predPath)
	if err != nil {
		p.errorf("read %s: %v", predPath, err)
		return p
	}
	want := export.PredictionRecords(predictions)
	if len(rows) != len(want) {
		p.errorf("predictions: parquet has %d rows, csv has %d", len(rows), len(want))
	} else {
		for i := range rows {
			if !rows[i].Timestamp.Equal(want[i].Timestamp) {
				p.errorf("predictions row %d: timestamp mismatch", i)
			}
			if math.Abs(rows[i].RiskPrediction-want[i].RiskPrediction) > tolerance {
				p.errorf("predictions row %d: risk_prediction parquet=%v csv=%v", i, rows[i].RiskPrediction, want[i].RiskPrediction)
			}
			if rows[i].FlareClass != want[i].FlareClass {
				p.errorf("predictions row %d: flare_class parquet=%s csv=%s", i, rows[i].FlareClass, want[i].FlareClass)
			}
		}
	}

	fcPath := filepath.Join(dir, pipeline.ForecastParquet)
	fc, err := export.ReadParquetFile[export.ForecastRecord](fcPath)
	if err != nil {
		p.errorf("read %s: %v", fcPath, err)
		return p
	}
	if len(fc) != forecast.Len() {
		p.errorf("forecast: parquet has %d rows, csv has %d", len(fc), forecast.Len())
		return p
	}
	kp := forecast.Column("kp_forecast")
	for i := range fc {
		if kp != nil && math.Abs(fc[i].KpForecast-kp[i]) > tolerance {
			p.errorf("forecast row %d: kp_forecast parquet=%v csv=%v", i, fc[i].KpForecast, kp[i])
		}
	}
	return p
}

// ── Phase 5: Model reproducibility ──
// Reloaded models reproduce the exported predictions.

func validateModels(dir string, predictions *domain.Frame) *phase {
	p := &phase{name: "Phase 5: Model Reproducibility (reload)"}

	if dir == "" {
		p.skipped = true
		return p
	}

	flare, err := model.LoadFlare(dir)
	if err != nil {
		p.errorf("load flare classifier: %v", err)
		return p
	}
	risk, err := model.LoadRisk(dir)
	if err != nil {
		p.errorf("load risk regressor: %v", err)
		return p
	}
	if _, err := model.LoadStorm(dir); err != nil {
		p.errorf("load storm forecaster: %v", err)
	}

	compare := func(name string, m model.Model, target string, want []float64) {
		ds, err := m.Prepare(predictions, target)
		if err != nil {
			p.errorf("%s: prepare: %v", name, err)
			return
		}
		pred, err := m.Predict(ds.X)
		if err != nil {
			p.errorf("%s: predict: %v", name, err)
			return
		}
		if len(want) != len(pred.Values) {
			p.errorf("%s: %d predictions for %d exported rows", name, len(pred.Values), len(want))
			return
		}
		for i, v := range pred.Values {
			if math.Abs(v-want[i]) > tolerance {
				p.errorf("%s row %d: reloaded=%v exported=%v", name, i, v, want[i])
			}
		}
	}
	compare("flare_classifier", flare, domain.ColFlareOccurred, predictions.Column(domain.ColFlareProbability))
	compare("risk_regressor", risk, domain.ColSatelliteRisk, predictions.Column(domain.ColRiskPrediction))
	return p
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}
