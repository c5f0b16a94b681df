package search

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/metrics"
)

// Params is one hyperparameter assignment.
type Params map[string]float64

// Grid lists candidate values per hyperparameter.
type Grid map[string][]float64

func (g Grid) keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size is the number of distinct assignments in the grid.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	size := 1
	for _, values := range g {
		size *= len(values)
	}
	return size
}

// At decodes assignment i, counting in mixed radix over the sorted keys with
// the last key varying fastest.
func (g Grid) At(i int) Params {
	keys := g.keys()
	p := make(Params, len(keys))
	for k := len(keys) - 1; k >= 0; k-- {
		values := g[keys[k]]
		p[keys[k]] = values[i%len(values)]
		i /= len(values)
	}
	return p
}

// Sample draws n distinct assignments. When the grid has at most n points
// every point is returned in grid order.
func Sample(g Grid, n int, rng *rand.Rand) []Params {
	size := g.Size()
	if size == 0 {
		return nil
	}
	if n <= 0 || n >= size {
		out := make([]Params, size)
		for i := range out {
			out[i] = g.At(i)
		}
		return out
	}
	out := make([]Params, n)
	for i, idx := range rng.Perm(size)[:n] {
		out[i] = g.At(idx)
	}
	return out
}

// KFold splits n positions into k contiguous validation folds. The first
// n%k folds hold one extra position.
func KFold(n, k int) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("k-fold needs at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("cannot split %d samples into %d folds", n, k)
	}
	folds := make([][]int, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		fold := make([]int, size)
		for i := range fold {
			fold[i] = start + i
		}
		folds[f] = fold
		start += size
	}
	return folds, nil
}

// Regressor is any fitted model that maps an encoded row to a prediction.
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// FitFunc trains a model on the given dataset rows with params.
type FitFunc func(rows []int, params Params) (Regressor, error)

type Options struct {
	Iterations int
	Folds      int
	Seed       int64
	Workers    int
}

type Score struct {
	Params  Params  `json:"params"`
	MeanMAE float64 `json:"mean_mae"`
}

type Result struct {
	Best      Params  `json:"best"`
	BestScore float64 `json:"best_score"`
	Scores    []Score `json:"scores"`
}

// RandomizedSearch scores sampled grid points by mean validation MAE over
// k folds of rows and returns the lowest; the earliest sample wins ties.
// X and y are indexed by dataset row.
func RandomizedSearch(ctx context.Context, X [][]float64, y []float64, rows []int, grid Grid, fit FitFunc, opts Options) (Result, error) {
	candidates := Sample(grid, opts.Iterations, rand.New(rand.NewSource(opts.Seed)))
	if len(candidates) == 0 {
		return Result{}, fmt.Errorf("empty search grid")
	}
	folds, err := KFold(len(rows), opts.Folds)
	if err != nil {
		return Result{}, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	type job struct{ candidate, fold int }
	maes := make([][]float64, len(candidates))
	errs := make([][]error, len(candidates))
	for i := range candidates {
		maes[i] = make([]float64, len(folds))
		errs[i] = make([]error, len(folds))
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for c := range candidates {
		for f := range folds {
			if err := ctx.Err(); err != nil {
				wg.Wait()
				return Result{}, err
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(j job) {
				defer wg.Done()
				defer func() { <-sem }()
				maes[j.candidate][j.fold], errs[j.candidate][j.fold] = evaluateFold(X, y, rows, folds[j.fold], candidates[j.candidate], fit)
			}(job{candidate: c, fold: f})
		}
	}
	wg.Wait()

	result := Result{BestScore: math.Inf(1), Scores: make([]Score, len(candidates))}
	for c, params := range candidates {
		var total float64
		for f := range folds {
			if errs[c][f] != nil {
				return Result{}, fmt.Errorf("candidate %v fold %d: %w", params, f, errs[c][f])
			}
			total += maes[c][f]
		}
		mean := total / float64(len(folds))
		result.Scores[c] = Score{Params: params, MeanMAE: mean}
		if mean < result.BestScore {
			result.Best, result.BestScore = params, mean
		}
	}
	if result.Best == nil {
		return Result{}, fmt.Errorf("no candidate produced a finite score")
	}
	return result, nil
}

func evaluateFold(X [][]float64, y []float64, rows []int, fold []int, params Params, fit FitFunc) (float64, error) {
	holdout := make(map[int]struct{}, len(fold))
	for _, pos := range fold {
		holdout[pos] = struct{}{}
	}
	train := make([]int, 0, len(rows)-len(fold))
	for pos, r := range rows {
		if _, ok := holdout[pos]; !ok {
			train = append(train, r)
		}
	}

	model, err := fit(train, params)
	if err != nil {
		return 0, err
	}
	actual := make([]float64, len(fold))
	predicted := make([]float64, len(fold))
	for i, pos := range fold {
		r := rows[pos]
		p, err := model.Predict(X[r])
		if err != nil {
			return 0, err
		}
		actual[i], predicted[i] = y[r], p
	}
	return metrics.MAE(actual, predicted), nil
}
