package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/couchcryptid/space-weather-forecaster/internal/features"
)

// StormConfig configures the sequence forecaster and its training loop.
type StormConfig struct {
	Lookback     int     `json:"lookback"`
	Recurrent    []int   `json:"recurrent"`
	Dense        []int   `json:"dense"`
	Dropout      float64 `json:"dropout"`
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Patience     int     `json:"patience"`
	LRPatience   int     `json:"lr_patience"`
	LRFactor     float64 `json:"lr_factor"`
	MinLR        float64 `json:"min_lr"`
	ClipNorm     float64 `json:"clip_norm"`
	Seed         uint64  `json:"seed"`
}

// DefaultStormConfig returns a 48-hour lookback over two bidirectional
// layers of 32 and 16 units.
func DefaultStormConfig() StormConfig {
	return StormConfig{
		Lookback:     48,
		Recurrent:    []int{32, 16},
		Dense:        []int{16},
		Dropout:      0.2,
		Epochs:       100,
		BatchSize:    32,
		LearningRate: 1e-3,
		Patience:     15,
		LRPatience:   7,
		LRFactor:     0.5,
		MinLR:        1e-6,
		ClipNorm:     5,
		Seed:         42,
	}
}

func (c StormConfig) validate() error {
	switch {
	case c.Lookback <= 0:
		return errors.New("lookback must be positive")
	case len(c.Recurrent) == 0:
		return errors.New("at least one recurrent layer is required")
	case c.Epochs <= 0:
		return errors.New("epochs must be positive")
	case c.BatchSize <= 0:
		return errors.New("batch size must be positive")
	case c.LearningRate <= 0:
		return errors.New("learning rate must be positive")
	case c.Dropout < 0 || c.Dropout >= 1:
		return errors.New("dropout must be in [0, 1)")
	}
	for _, h := range slices.Concat(c.Recurrent, c.Dense) {
		if h <= 0 {
			return errors.New("layer sizes must be positive")
		}
	}
	return nil
}

// lrPlateauDelta is the minimum loss improvement that resets the learning
// rate schedule.
const lrPlateauDelta = 1e-4

// StormForecaster predicts the Kp index from a trailing window of solar-wind
// and X-ray drivers with a stacked bidirectional LSTM.
type StormForecaster struct {
	Config   StormConfig    `json:"config"`
	Scaler   StandardScaler `json:"-"`
	Net      *network       `json:"network"`
	Features []string       `json:"features"`
	History  []float64      `json:"history"`
}

// NewStormForecaster returns an untrained forecaster.
func NewStormForecaster(cfg StormConfig) *StormForecaster {
	return &StormForecaster{Config: cfg}
}

// Name identifies the model in logs and metrics.
func (s *StormForecaster) Name() string { return "storm_forecaster" }

// Prepare builds sliding windows over the driver columns present in f. Each
// of the N-L samples holds rows [i, i+L) and targets row i+L. Drivers and
// target are forward-filled, then zero-filled. The target defaults to kp_index.
func (s *StormForecaster) Prepare(f *domain.Frame, target string) (Dataset, error) {
	if target == "" {
		target = domain.ColKpIndex
	}
	raw := f.Column(target)
	if raw == nil {
		return Dataset{}, fmt.Errorf("target column %q not in frame", target)
	}
	L := s.Config.Lookback
	if L <= 0 {
		return Dataset{}, errors.New("lookback must be positive")
	}
	names, series := driverSeries(f)
	if len(names) == 0 {
		return Dataset{}, errors.New("no driver columns in frame")
	}
	n := f.Len()
	if n <= L {
		return Dataset{}, fmt.Errorf("%w: %d rows do not cover lookback %d", ErrShape, n, L)
	}

	y := features.ForwardZeroFill(raw)
	ds := Dataset{
		X:         make([][]float64, n-L),
		Y:         make([]float64, n-L),
		Features:  names,
		Timesteps: L,
	}
	for i := range n - L {
		ds.X[i] = flattenWindow(series, i, L)
		ds.Y[i] = y[i+L]
	}
	s.Features = names
	return ds, nil
}

// LastWindow returns the final L rows of f's drivers, flattened the way
// Prepare lays out samples. Call it after Prepare or Load.
func (s *StormForecaster) LastWindow(f *domain.Frame) ([]float64, error) {
	if len(s.Features) == 0 {
		return nil, ErrNotTrained
	}
	L := s.Config.Lookback
	if f.Len() < L {
		return nil, fmt.Errorf("%w: %d rows do not cover lookback %d", ErrShape, f.Len(), L)
	}
	series := make([][]float64, len(s.Features))
	for j, name := range s.Features {
		col := f.Column(name)
		if col == nil {
			return nil, fmt.Errorf("driver column %q not in frame", name)
		}
		series[j] = features.ForwardZeroFill(col)
	}
	return flattenWindow(series, f.Len()-L, L), nil
}

// Train fits the scaler on every timestep of every window and then trains
// the network with Adam on mean squared error. Training stops early once the
// epoch loss has not improved for Patience epochs and the best weights are
// restored.
func (s *StormForecaster) Train(X [][]float64, y []float64) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	cfg := s.Config
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("storm config: %w", err)
	}
	L := cfg.Lookback
	width := len(X[0])
	if width == 0 || width%L != 0 {
		return fmt.Errorf("%w: sample width %d is not a multiple of lookback %d", ErrShape, width, L)
	}
	if err := checkWidth(X, width); err != nil {
		return err
	}
	inputs := width / L

	steps := make([][]float64, 0, len(X)*L)
	for _, x := range X {
		for t := range L {
			steps = append(steps, x[t*inputs:(t+1)*inputs])
		}
	}
	var scaler StandardScaler
	if err := scaler.Fit(steps); err != nil {
		return err
	}
	seqs := make([][][]float64, len(X))
	for i, x := range X {
		seqs[i] = toSequence(x, inputs, &scaler)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x2545f4914f6cdd1d))
	net := newNetwork(inputs, L, cfg.Recurrent, cfg.Dense, cfg.Dropout, rng)
	grad := net.zeroClone()
	best := net.zeroClone()
	best.copyWeightsFrom(net)
	params, grads := net.params(), grad.params()
	opt := newAdam(params, cfg.LearningRate)

	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}
	bestLoss, plateauLoss := math.Inf(1), math.Inf(1)
	wait, lrWait := 0, 0
	history := make([]float64, 0, cfg.Epochs)

	for range cfg.Epochs {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		var total float64
		for start := 0; start < len(order); start += cfg.BatchSize {
			batch := order[start:min(start+cfg.BatchSize, len(order))]
			for _, g := range grads {
				clear(g)
			}
			scale := 2 / float64(len(batch))
			for _, i := range batch {
				out, cache := net.forward(seqs[i], rng)
				diff := out - y[i]
				total += diff * diff
				net.backward(cache, scale*diff, grad)
			}
			if cfg.ClipNorm > 0 {
				clipNorm(grads, cfg.ClipNorm)
			}
			opt.update(params, grads)
		}

		loss := total / float64(len(order))
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return fmt.Errorf("storm training diverged after %d epochs", len(history))
		}
		history = append(history, loss)

		if loss < bestLoss {
			bestLoss = loss
			best.copyWeightsFrom(net)
			wait = 0
		} else {
			wait++
		}
		if loss < plateauLoss-lrPlateauDelta {
			plateauLoss = loss
			lrWait = 0
		} else {
			lrWait++
		}
		if cfg.LRPatience > 0 && lrWait >= cfg.LRPatience {
			opt.lr = math.Max(opt.lr*cfg.LRFactor, cfg.MinLR)
			lrWait = 0
		}
		if cfg.Patience > 0 && wait >= cfg.Patience {
			break
		}
	}

	net.copyWeightsFrom(best)
	s.Net = net
	s.Scaler = scaler
	s.History = history
	return nil
}

// Predict returns one Kp value per window.
func (s *StormForecaster) Predict(X [][]float64) (Prediction, error) {
	if s.Net == nil || !s.Scaler.Fitted() {
		return Prediction{}, ErrNotTrained
	}
	inputs := s.Net.Inputs
	if len(s.Scaler.Mean) != inputs {
		return Prediction{}, fmt.Errorf("%w: scaler has %d features, network %d", ErrShape, len(s.Scaler.Mean), inputs)
	}
	if err := checkWidth(X, inputs*s.Net.Timesteps); err != nil {
		return Prediction{}, err
	}
	values := make([]float64, len(X))
	for i, x := range X {
		values[i], _ = s.Net.forward(toSequence(x, inputs, &s.Scaler), nil)
	}
	return Prediction{Values: values}, nil
}

// Evaluate reports RMSE and R².
func (s *StormForecaster) Evaluate(X [][]float64, y []float64) (Evaluation, error) {
	if err := checkXY(X, y); err != nil {
		return Evaluation{}, err
	}
	pred, err := s.Predict(X)
	if err != nil {
		return Evaluation{}, err
	}
	return regressionScores(pred.Values, y), nil
}

// Forecast predicts Kp from window and holds that driver state for the next
// hours, returning one point per hour after from.
func (s *StormForecaster) Forecast(window []float64, from time.Time, hours int) ([]domain.ForecastPoint, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("forecast hours must be positive, got %d", hours)
	}
	pred, err := s.Predict([][]float64{window})
	if err != nil {
		return nil, err
	}
	kp := math.Min(math.Max(pred.Values[0], 0), 9)
	return domain.NewForecast(from, hours, func(int) float64 { return kp }), nil
}

func driverSeries(f *domain.Frame) ([]string, [][]float64) {
	var names []string
	var series [][]float64
	for _, c := range domain.DriverColumns {
		if col := f.Column(c); col != nil {
			names = append(names, c)
			series = append(series, features.ForwardZeroFill(col))
		}
	}
	return names, series
}

// flattenWindow lays out rows [start, start+L) of series timestep-major.
func flattenWindow(series [][]float64, start, L int) []float64 {
	out := make([]float64, 0, L*len(series))
	for t := start; t < start+L; t++ {
		for _, col := range series {
			out = append(out, col[t])
		}
	}
	return out
}

func toSequence(x []float64, inputs int, scaler *StandardScaler) [][]float64 {
	seq := make([][]float64, len(x)/inputs)
	for t := range seq {
		seq[t] = scaler.transformRow(x[t*inputs : (t+1)*inputs])
	}
	return seq
}
