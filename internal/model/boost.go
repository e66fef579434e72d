package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
)

// Boosting losses.
const (
	LossSquared  = "squared"
	LossLogistic = "logistic"
)

// BoostParams configures gradient-boosted trees.
type BoostParams struct {
	Estimators     int     `json:"estimators"`
	MaxDepth       int     `json:"max_depth"`
	LearningRate   float64 `json:"learning_rate"`
	Subsample      float64 `json:"subsample"`
	ColSample      float64 `json:"colsample"`
	Lambda         float64 `json:"lambda"`
	MinChildWeight float64 `json:"min_child_weight"`
	MaxBins        int     `json:"max_bins"`
	Seed           uint64  `json:"seed"`
}

// DefaultBoostParams returns 200 depth-6 trees with learning rate 0.1 and
// 80% row and column sampling.
func DefaultBoostParams() BoostParams {
	return BoostParams{
		Estimators:     200,
		MaxDepth:       6,
		LearningRate:   0.1,
		Subsample:      0.8,
		ColSample:      0.8,
		Lambda:         1,
		MinChildWeight: 1,
		MaxBins:        64,
		Seed:           42,
	}
}

func (p BoostParams) validate() error {
	switch {
	case p.Estimators <= 0:
		return errors.New("estimators must be positive")
	case p.MaxDepth <= 0:
		return errors.New("max depth must be positive")
	case p.LearningRate <= 0:
		return errors.New("learning rate must be positive")
	case p.Subsample <= 0 || p.Subsample > 1:
		return errors.New("subsample must be in (0, 1]")
	case p.ColSample <= 0 || p.ColSample > 1:
		return errors.New("colsample must be in (0, 1]")
	case p.MaxBins < 2 || p.MaxBins > 255:
		return errors.New("max bins must be in [2, 255]")
	}
	return nil
}

// GradientBoosting is an additive ensemble of regression trees fitted to
// Newton steps of a squared or logistic loss.
type GradientBoosting struct {
	Params    BoostParams `json:"params"`
	Loss      string      `json:"loss"`
	Base      float64     `json:"base"`
	Trees     []Tree      `json:"trees"`
	NFeatures int         `json:"n_features"`
}

// NewGradientBoosting returns an unfitted ensemble.
func NewGradientBoosting(loss string, params BoostParams) *GradientBoosting {
	return &GradientBoosting{Params: params, Loss: loss}
}

// Fit grows Params.Estimators trees. Logistic loss expects 0/1 targets.
func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	if err := g.Params.validate(); err != nil {
		return fmt.Errorf("boost params: %w", err)
	}
	width := len(X[0])
	if err := checkWidth(X, width); err != nil {
		return err
	}

	n := len(X)
	bins := newBinner(X, g.Params.MaxBins)
	builder := &treeBuilder{
		binned:         bins.transform(X),
		edges:          bins.edges,
		grad:           make([]float64, n),
		hess:           make([]float64, n),
		maxDepth:       g.Params.MaxDepth,
		lambda:         g.Params.Lambda,
		minChildWeight: g.Params.MinChildWeight,
		shrinkage:      g.Params.LearningRate,
	}

	g.NFeatures = width
	g.Base = g.baseScore(y)
	g.Trees = make([]Tree, 0, g.Params.Estimators)
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = g.Base
	}

	rng := rand.New(rand.NewPCG(g.Params.Seed, g.Params.Seed^0x9e3779b97f4a7c15))
	nCols := max(1, int(math.Round(g.Params.ColSample*float64(width))))
	rows := make([]int, 0, n)

	for range g.Params.Estimators {
		g.gradients(raw, y, builder.grad, builder.hess)

		rows = rows[:0]
		for i := range n {
			if g.Params.Subsample >= 1 || rng.Float64() < g.Params.Subsample {
				rows = append(rows, i)
			}
		}
		if len(rows) == 0 {
			rows = append(rows, rng.IntN(n))
		}
		builder.features = rng.Perm(width)[:nCols]

		tree := builder.build(rows)
		g.Trees = append(g.Trees, tree)
		for i, x := range X {
			raw[i] += tree.predict(x)
		}
	}
	return nil
}

// Fitted reports whether Fit has run.
func (g *GradientBoosting) Fitted() bool { return len(g.Trees) > 0 }

// Raw returns the additive score of a sample before any link function.
func (g *GradientBoosting) Raw(x []float64) float64 {
	s := g.Base
	for i := range g.Trees {
		s += g.Trees[i].predict(x)
	}
	return s
}

// Predict returns the response for a sample: a probability under logistic
// loss, the raw score otherwise.
func (g *GradientBoosting) Predict(x []float64) float64 {
	if g.Loss == LossLogistic {
		return sigmoid(g.Raw(x))
	}
	return g.Raw(x)
}

func (g *GradientBoosting) baseScore(y []float64) float64 {
	mean := stat.Mean(y, nil)
	if g.Loss != LossLogistic {
		return mean
	}
	p := math.Min(math.Max(mean, 1e-6), 1-1e-6)
	return math.Log(p / (1 - p))
}

func (g *GradientBoosting) gradients(raw, y, grad, hess []float64) {
	if g.Loss == LossLogistic {
		for i := range raw {
			p := sigmoid(raw[i])
			grad[i] = p - y[i]
			hess[i] = math.Max(p*(1-p), 1e-16)
		}
		return
	}
	for i := range raw {
		grad[i] = raw[i] - y[i]
		hess[i] = 1
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
