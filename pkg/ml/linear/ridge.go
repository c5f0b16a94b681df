package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type Options struct {
	Alpha float64
}

// Weights hold a ridge model fitted on standardized features. Means and
// Scales undo the standardization at prediction time.
type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
	Means        []float64 `json:"means"`
	Scales       []float64 `json:"scales"`
}

type Metrics struct {
	Loss float64
}

// TrainRidge solves (ZᵀZ + αI)w = Zᵀ(y - ȳ) where Z is the standardized sample
// matrix. Constant features get a zero coefficient.
func TrainRidge(samples [][]float64, labels []float64, opts Options) (Weights, Metrics, error) {
	n := len(samples)
	if n == 0 {
		return Weights{}, Metrics{}, fmt.Errorf("ridge: no samples")
	}
	if len(labels) != n {
		return Weights{}, Metrics{}, fmt.Errorf("ridge: %d samples but %d labels", n, len(labels))
	}
	if opts.Alpha < 0 {
		return Weights{}, Metrics{}, fmt.Errorf("ridge: alpha must be non-negative, got %v", opts.Alpha)
	}
	featureCount := len(samples[0])

	means := make([]float64, featureCount)
	scales := make([]float64, featureCount)
	column := make([]float64, n)
	for j := 0; j < featureCount; j++ {
		for i, sample := range samples {
			column[i] = sample[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		means[j] = mean
		scales[j] = std
		if std == 0 {
			scales[j] = 1
		}
	}

	z := mat.NewDense(n, featureCount, nil)
	for i, sample := range samples {
		for j := 0; j < featureCount; j++ {
			z.Set(i, j, (sample[j]-means[j])/scales[j])
		}
	}
	bias := stat.Mean(labels, nil)
	centered := make([]float64, n)
	for i, label := range labels {
		centered[i] = label - bias
	}
	yVec := mat.NewVecDense(n, centered)

	var gram mat.Dense
	gram.Mul(z.T(), z)
	for j := 0; j < featureCount; j++ {
		gram.Set(j, j, gram.At(j, j)+opts.Alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(z.T(), yVec)

	var w mat.VecDense
	if err := w.SolveVec(&gram, &rhs); err != nil {
		return Weights{}, Metrics{}, fmt.Errorf("ridge: solve normal equations: %w", err)
	}

	weights := Weights{
		Bias:         bias,
		Coefficients: make([]float64, featureCount),
		Means:        means,
		Scales:       scales,
	}
	for j := 0; j < featureCount; j++ {
		weights.Coefficients[j] = w.AtVec(j)
	}
	return weights, Metrics{Loss: evaluate(weights, samples, labels)}, nil
}

func Predict(weights Weights, sample []float64) float64 {
	sum := weights.Bias
	for j, coeff := range weights.Coefficients {
		sum += coeff * (sample[j] - weights.Means[j]) / weights.Scales[j]
	}
	return sum
}

// Predict satisfies the model interface used by the pipeline envelope.
func (w *Weights) Predict(sample []float64) (float64, error) {
	if len(sample) != len(w.Coefficients) {
		return 0, fmt.Errorf("ridge expects %d features, got %d", len(w.Coefficients), len(sample))
	}
	return Predict(*w, sample), nil
}

func evaluate(weights Weights, samples [][]float64, labels []float64) float64 {
	var loss float64
	for i, sample := range samples {
		diff := Predict(weights, sample) - labels[i]
		loss += diff * diff
	}
	return loss / float64(len(samples))
}
