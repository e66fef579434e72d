// Package pipeline runs one forecasting batch: synthetic history, feature
// engineering, training and evaluation, persistence, optional real-time
// collection, prediction, forecasting, alerting and export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/config"
	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/couchcryptid/space-weather-forecaster/internal/export"
	"github.com/couchcryptid/space-weather-forecaster/internal/features"
	"github.com/couchcryptid/space-weather-forecaster/internal/model"
	"github.com/couchcryptid/space-weather-forecaster/internal/observability"
	"github.com/couchcryptid/space-weather-forecaster/internal/synthetic"
)

// Output file names under the output directory.
const (
	PredictionsCSV     = "space_weather_predictions.csv"
	ForecastCSV        = "space_weather_forecast.csv"
	PredictionsParquet = "space_weather_predictions.parquet"
	ForecastParquet    = "space_weather_forecast.parquet"
)

const (
	testFraction = 0.2
	splitSeed    = 42
)

// Collector gathers real-time upstream data keyed by source name.
type Collector interface {
	CollectAll(ctx context.Context) map[string]*domain.Frame
}

// AlertPublisher delivers alerts downstream.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []domain.Alert) error
}

// PredictionSink stores the prediction table downstream.
type PredictionSink interface {
	WritePredictions(ctx context.Context, records []export.PredictionRecord) error
}

// Options control a run.
type Options struct {
	SyntheticSamples int
	Seed             uint64
	NumericColumns   []string
	ForecastHours    int
	RecentRows       int
	ModelDir         string
	OutputDir        string
	ExportParquet    bool
	Boost            model.BoostParams
	Storm            model.StormConfig
}

// OptionsFromConfig maps service configuration onto run options with the
// default model hyperparameters.
func OptionsFromConfig(cfg *config.Config) Options {
	storm := model.DefaultStormConfig()
	storm.Lookback = cfg.Lookback
	storm.Epochs = cfg.StormEpochs
	storm.Seed = cfg.Seed
	return Options{
		SyntheticSamples: cfg.SyntheticSamples,
		Seed:             cfg.Seed,
		NumericColumns:   cfg.NumericColumns,
		ForecastHours:    cfg.ForecastHours,
		RecentRows:       cfg.RecentRows,
		ModelDir:         cfg.ModelDir,
		OutputDir:        cfg.OutputDir,
		ExportParquet:    cfg.ExportParquet,
		Boost:            model.DefaultBoostParams(),
		Storm:            storm,
	}
}

// Deps are the optional downstream adapters. Nil fields are skipped.
type Deps struct {
	Collector   Collector
	Alerts      AlertPublisher
	Predictions PredictionSink
}

// Pipeline orchestrates a forecasting run.
type Pipeline struct {
	opts    Options
	deps    Deps
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
	latest  atomic.Pointer[Report]
}

// New creates a Pipeline with the given options, adapters and observability.
func New(opts Options, deps Deps, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		opts:    opts,
		deps:    deps,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a run has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Latest returns the report of the most recent completed run, or nil.
func (p *Pipeline) Latest() *Report {
	return p.latest.Load()
}

// trained bundles the fitted predictors of one run.
type trained struct {
	flare *model.FlareClassifier
	risk  *model.RiskRegressor
	storm *model.StormForecaster
}

// Run executes every stage once. Training failures abort the run; collection
// and sink failures are logged and counted.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	p.logger.Info("pipeline started",
		"samples", p.opts.SyntheticSamples,
		"seed", p.opts.Seed,
		"columns", p.opts.NumericColumns,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	data := synthetic.Generate(p.opts.SyntheticSamples, p.opts.Seed)
	p.metrics.SamplesGenerated.Add(float64(data.Len()))
	summary := synthetic.Summarize(data)
	p.logger.Info("synthetic data generated",
		"rows", summary.Rows,
		"flare_rate", summary.FlareRate(),
		"storm_rate", summary.StormRate(),
	)

	feat, err := features.Process(data, p.opts.NumericColumns, features.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("engineer features: %w", err)
	}
	feat = features.FillMissing(feat)
	p.metrics.FeatureColumns.Set(float64(len(feat.Columns())))
	p.logger.Info("features engineered", "columns", len(feat.Columns()))

	report := &Report{Samples: data.Len()}
	models, err := p.train(ctx, feat, report)
	if err != nil {
		return nil, err
	}
	if err := p.persist(models); err != nil {
		return nil, err
	}

	if p.deps.Collector != nil {
		report.Sources = p.collect(ctx)
	}

	recent, err := p.predict(feat, models)
	if err != nil {
		return nil, err
	}
	report.Predictions = export.PredictionRecords(recent)
	report.Conditions = latestConditions(recent)
	report.RiskStatus = domain.RiskStatus(report.Conditions.RiskPrediction)

	window, err := models.storm.LastWindow(feat)
	if err != nil {
		return nil, fmt.Errorf("build forecast window: %w", err)
	}
	report.Forecast, err = models.storm.Forecast(window, feat.Timestamps[feat.Len()-1], p.opts.ForecastHours)
	if err != nil {
		return nil, fmt.Errorf("forecast kp: %w", err)
	}

	report.Alerts = domain.GenerateAlerts(report.Conditions)
	for _, a := range report.Alerts {
		p.metrics.AlertsIssued.WithLabelValues(a.Level).Inc()
		p.logger.Warn("alert", "level", a.Level, "type", a.Type, "message", a.Message)
	}
	p.logger.Info("current conditions",
		"kp", report.Conditions.KpIndex,
		"storm_class", report.Conditions.StormClass,
		"flare_probability", report.Conditions.FlareProbability,
		"risk", report.Conditions.RiskPrediction,
		"risk_status", report.RiskStatus,
	)

	if err := p.export(recent, report); err != nil {
		return nil, err
	}
	p.deliver(ctx, report)

	report.GeneratedAt = domain.Now().UTC()
	p.latest.Store(report)
	p.ready.Store(true)

	p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("pipeline finished", "duration", time.Since(start), "alerts", len(report.Alerts))
	return report, nil
}

func (p *Pipeline) train(ctx context.Context, feat *domain.Frame, report *Report) (trained, error) {
	m := trained{
		flare: model.NewFlareClassifier(p.opts.Boost),
		risk:  model.NewRiskRegressor(p.opts.Boost),
		storm: model.NewStormForecaster(p.opts.Storm),
	}
	tabular := func(n int) ([]int, []int) { return model.TrainTestSplit(n, testFraction, splitSeed) }
	sequence := func(n int) ([]int, []int) { return model.ChronologicalSplit(n, testFraction) }

	steps := []struct {
		model  model.Model
		target string
		split  func(n int) ([]int, []int)
	}{
		{m.flare, domain.ColFlareOccurred, tabular},
		{m.storm, domain.ColKpIndex, sequence},
		{m.risk, domain.ColSatelliteRisk, tabular},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return trained{}, err
		}
		r, err := p.trainOne(s.model, feat, s.target, s.split)
		if err != nil {
			return trained{}, err
		}
		report.Models = append(report.Models, r)
	}
	return m, nil
}

// trainOne runs Prepare, split, Train and Evaluate through the shared model
// contract.
func (p *Pipeline) trainOne(m model.Model, feat *domain.Frame, target string, split func(int) ([]int, []int)) (ModelReport, error) {
	name := m.Name()
	ds, err := m.Prepare(feat, target)
	if err != nil {
		return ModelReport{}, fmt.Errorf("prepare %s: %w", name, err)
	}
	trainIdx, testIdx := split(ds.Len())
	train, test := ds.Subset(trainIdx), ds.Subset(testIdx)

	p.logger.Info("training model", "model", name, "train", train.Len(), "test", test.Len(), "features", len(ds.Features))
	start := time.Now()
	if err := m.Train(train.X, train.Y); err != nil {
		return ModelReport{}, fmt.Errorf("train %s: %w", name, err)
	}
	elapsed := time.Since(start)
	p.metrics.TrainingDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	eval, err := m.Evaluate(test.X, test.Y)
	if err != nil {
		return ModelReport{}, fmt.Errorf("evaluate %s: %w", name, err)
	}
	eval = finite(eval)
	p.recordScores(name, eval)
	p.logger.Info("model evaluated", "model", name,
		"accuracy", eval.Accuracy, "f1", eval.F1, "rmse", eval.RMSE, "r2", eval.R2,
		"duration", elapsed,
	)

	return ModelReport{
		Name:          name,
		TrainSamples:  train.Len(),
		TestSamples:   test.Len(),
		Features:      len(ds.Features),
		TrainDuration: elapsed,
		Evaluation:    eval,
	}, nil
}

func (p *Pipeline) recordScores(name string, e model.Evaluation) {
	scores := map[string]float64{
		"accuracy":  e.Accuracy,
		"precision": e.Precision,
		"recall":    e.Recall,
		"f1":        e.F1,
		"rmse":      e.RMSE,
		"r2":        e.R2,
	}
	for metric, v := range scores {
		p.metrics.EvaluationScore.WithLabelValues(name, metric).Set(v)
	}
}

func (p *Pipeline) persist(m trained) error {
	dir := p.opts.ModelDir
	if err := model.SaveFlare(dir, m.flare); err != nil {
		return fmt.Errorf("save flare classifier: %w", err)
	}
	if err := model.SaveStorm(dir, m.storm); err != nil {
		return fmt.Errorf("save storm forecaster: %w", err)
	}
	if err := model.SaveRisk(dir, m.risk); err != nil {
		return fmt.Errorf("save risk regressor: %w", err)
	}
	p.logger.Info("models saved", "dir", dir)
	return nil
}

// collect fetches real-time data and writes each source to its own CSV.
func (p *Pipeline) collect(ctx context.Context) map[string]int {
	frames := p.deps.Collector.CollectAll(ctx)
	counts := make(map[string]int, len(frames))
	for name, f := range frames {
		counts[name] = f.Len()
		path := filepath.Join(p.opts.OutputDir, "realtime_"+name+".csv")
		if err := export.WriteFrameFile(path, f); err != nil {
			p.logger.Warn("write real-time data failed", "source", name, "error", err)
			continue
		}
		p.metrics.RowsExported.WithLabelValues("realtime_"+name, "csv").Add(float64(f.Len()))
	}
	p.logger.Info("real-time collection finished", "sources", len(frames))
	return counts
}

// predict scores the most recent rows with the flare and risk models.
func (p *Pipeline) predict(feat *domain.Frame, m trained) (*domain.Frame, error) {
	recent := feat.Tail(p.opts.RecentRows)

	flareSet, err := m.flare.Prepare(recent, domain.ColFlareOccurred)
	if err != nil {
		return nil, fmt.Errorf("prepare recent rows: %w", err)
	}
	flare, err := m.flare.Predict(flareSet.X)
	if err != nil {
		return nil, fmt.Errorf("predict flares: %w", err)
	}
	riskSet, err := m.risk.Prepare(recent, domain.ColSatelliteRisk)
	if err != nil {
		return nil, fmt.Errorf("prepare recent rows: %w", err)
	}
	risk, err := m.risk.Predict(riskSet.X)
	if err != nil {
		return nil, fmt.Errorf("predict risk: %w", err)
	}

	labels := make([]float64, len(flare.Labels))
	for i, l := range flare.Labels {
		labels[i] = float64(l)
	}
	recent.SetColumn(domain.ColFlarePrediction, labels)
	recent.SetColumn(domain.ColFlareProbability, flare.Values)
	recent.SetColumn(domain.ColRiskPrediction, risk.Values)
	return recent, nil
}

func latestConditions(recent *domain.Frame) domain.Conditions {
	last := recent.Len() - 1
	obs := recent.ObservationAt(last)
	return domain.Conditions{
		Observation:      obs,
		FlareProbability: recent.Column(domain.ColFlareProbability)[last],
		RiskPrediction:   recent.Column(domain.ColRiskPrediction)[last],
		FlareClass:       domain.ClassifyFlareIntensity(obs.XRayFlux),
		StormClass:       domain.ClassifyGeomagStorm(obs.KpIndex),
	}
}

func (p *Pipeline) export(recent *domain.Frame, report *Report) error {
	dir := p.opts.OutputDir
	if err := export.WriteFrameFile(filepath.Join(dir, PredictionsCSV), recent); err != nil {
		return fmt.Errorf("export predictions: %w", err)
	}
	p.metrics.RowsExported.WithLabelValues("predictions", "csv").Add(float64(recent.Len()))
	if err := export.WriteForecastFile(filepath.Join(dir, ForecastCSV), report.Forecast); err != nil {
		return fmt.Errorf("export forecast: %w", err)
	}
	p.metrics.RowsExported.WithLabelValues("forecast", "csv").Add(float64(len(report.Forecast)))

	if p.opts.ExportParquet {
		if err := export.WriteParquetFile(filepath.Join(dir, PredictionsParquet), report.Predictions); err != nil {
			return fmt.Errorf("export predictions: %w", err)
		}
		p.metrics.RowsExported.WithLabelValues("predictions", "parquet").Add(float64(len(report.Predictions)))
		if err := export.WriteParquetFile(filepath.Join(dir, ForecastParquet), export.ForecastRecords(report.Forecast)); err != nil {
			return fmt.Errorf("export forecast: %w", err)
		}
		p.metrics.RowsExported.WithLabelValues("forecast", "parquet").Add(float64(len(report.Forecast)))
	}
	p.logger.Info("results exported", "dir", dir, "parquet", p.opts.ExportParquet)
	return nil
}

// deliver hands the run's outputs to the optional sinks. Failures never abort the run.
func (p *Pipeline) deliver(ctx context.Context, report *Report) {
	if p.deps.Alerts != nil && len(report.Alerts) > 0 {
		if err := p.deps.Alerts.PublishAlerts(ctx, report.Alerts); err != nil {
			p.logger.Error("publish alerts failed", "error", err, "count", len(report.Alerts))
			p.metrics.SinkErrors.WithLabelValues("kafka").Inc()
		}
	}
	if p.deps.Predictions != nil {
		if err := p.deps.Predictions.WritePredictions(ctx, report.Predictions); err != nil {
			p.logger.Error("write predictions failed", "error", err, "rows", len(report.Predictions))
			p.metrics.SinkErrors.WithLabelValues("clickhouse").Inc()
		}
	}
}
