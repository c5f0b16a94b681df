package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Regression summarises held-out error for one model.
type Regression struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// R2 is the coefficient of determination of predicted against actual. It is
// always finite: with fewer than two samples it is 0, and when actual is
// constant it is 1 for an exact fit and 0 otherwise.
func R2(actual, predicted []float64) float64 {
	if len(actual) < 2 {
		return 0
	}
	if stat.Variance(actual, nil) == 0 {
		for i := range actual {
			if actual[i] != predicted[i] {
				return 0
			}
		}
		return 1
	}
	r2 := stat.RSquaredFrom(predicted, actual, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return 0
	}
	return r2
}

func Evaluate(actual, predicted []float64) Regression {
	return Regression{
		MAE:  MAE(actual, predicted),
		RMSE: RMSE(actual, predicted),
		R2:   R2(actual, predicted),
	}
}
