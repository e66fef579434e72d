package model

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Accuracy returns the fraction of predicted labels equal to y.
func Accuracy(labels []int, y []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	correct := 0
	for i, l := range labels {
		if float64(l) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

// PrecisionRecallF1 scores the positive class (label 1). Undefined ratios are 0.
func PrecisionRecallF1(labels []int, y []float64) (precision, recall, f1 float64) {
	var tp, fp, fn float64
	for i, l := range labels {
		actual := y[i] == 1
		switch {
		case l == 1 && actual:
			tp++
		case l == 1:
			fp++
		case actual:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// RMSE returns the root mean squared error of estimates against values.
func RMSE(estimates, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for i, v := range values {
		d := estimates[i] - v
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// R2 returns the coefficient of determination of estimates against values.
func R2(estimates, values []float64) float64 {
	return stat.RSquaredFrom(estimates, values, nil)
}

func regressionScores(estimates, values []float64) Evaluation {
	return Evaluation{RMSE: RMSE(estimates, values), R2: R2(estimates, values)}
}
