package search

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constant float64

func (c constant) Predict([]float64) (float64, error) { return float64(c), nil }

func TestGridAtEnumeratesEveryPoint(t *testing.T) {
	g := Grid{"depth": {3, 5}, "rate": {0.1, 0.2, 0.3}}
	require.Equal(t, 6, g.Size())

	seen := map[[2]float64]bool{}
	for i := 0; i < g.Size(); i++ {
		p := g.At(i)
		seen[[2]float64{p["depth"], p["rate"]}] = true
	}
	assert.Len(t, seen, 6)
	assert.Equal(t, Params{"depth": 3, "rate": 0.1}, g.At(0))
	assert.Equal(t, Params{"depth": 3, "rate": 0.2}, g.At(1))
}

func TestSampleWithoutReplacement(t *testing.T) {
	g := Grid{"a": {1, 2, 3, 4, 5}, "b": {1, 2, 3, 4, 5}}

	first := Sample(g, 15, rand.New(rand.NewSource(42)))
	second := Sample(g, 15, rand.New(rand.NewSource(42)))

	require.Len(t, first, 15)
	assert.Equal(t, first, second)
	seen := map[[2]float64]bool{}
	for _, p := range first {
		key := [2]float64{p["a"], p["b"]}
		assert.False(t, seen[key], "duplicate sample %v", p)
		seen[key] = true
	}
}

func TestSampleReturnsWholeSmallGrid(t *testing.T) {
	g := Grid{"alpha": {0.1, 1, 10}}

	got := Sample(g, 15, rand.New(rand.NewSource(1)))

	assert.Equal(t, []Params{{"alpha": 0.1}, {"alpha": 1}, {"alpha": 10}}, got)
}

func TestKFoldSizes(t *testing.T) {
	folds, err := KFold(10, 3)
	require.NoError(t, err)

	require.Len(t, folds, 3)
	assert.Equal(t, []int{0, 1, 2, 3}, folds[0])
	assert.Equal(t, []int{4, 5, 6}, folds[1])
	assert.Equal(t, []int{7, 8, 9}, folds[2])

	_, err = KFold(2, 3)
	assert.Error(t, err)
	_, err = KFold(10, 1)
	assert.Error(t, err)
}

func TestRandomizedSearchPicksLowestMAE(t *testing.T) {
	n := 30
	X := make([][]float64, n)
	y := make([]float64, n)
	rows := make([]int, n)
	for i := range rows {
		X[i] = []float64{float64(i)}
		y[i] = 7
		rows[i] = i
	}
	fit := func(train []int, p Params) (Regressor, error) {
		return constant(p["guess"]), nil
	}

	res, err := RandomizedSearch(context.Background(), X, y, rows, Grid{"guess": {1, 6, 7, 9}}, fit, Options{Iterations: 15, Folds: 3, Seed: 42, Workers: 3})
	require.NoError(t, err)

	assert.Equal(t, Params{"guess": 7}, res.Best)
	assert.Zero(t, res.BestScore)
	assert.Len(t, res.Scores, 4)
}

func TestRandomizedSearchTieGoesToFirstSample(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{5, 5, 5, 5}
	fit := func(train []int, p Params) (Regressor, error) {
		return constant(4), nil
	}

	res, err := RandomizedSearch(context.Background(), X, y, []int{0, 1, 2, 3}, Grid{"k": {1, 2}}, fit, Options{Folds: 2, Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, Params{"k": 1}, res.Best)
}

func TestRandomizedSearchPropagatesFitErrors(t *testing.T) {
	boom := errors.New("boom")
	fit := func(train []int, p Params) (Regressor, error) { return nil, boom }

	_, err := RandomizedSearch(context.Background(), [][]float64{{0}, {1}, {2}}, []float64{1, 2, 3}, []int{0, 1, 2}, Grid{"k": {1}}, fit, Options{Folds: 3})

	assert.ErrorIs(t, err, boom)
}

func TestRandomizedSearchHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fit := func(train []int, p Params) (Regressor, error) { return constant(0), nil }

	_, err := RandomizedSearch(ctx, [][]float64{{0}, {1}, {2}}, []float64{1, 2, 3}, []int{0, 1, 2}, Grid{"k": {1}}, fit, Options{Folds: 3})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRandomizedSearchFoldsExcludeHoldout(t *testing.T) {
	rows := []int{10, 11, 12, 13, 14, 15}
	X := make([][]float64, 16)
	y := make([]float64, 16)
	for i := range X {
		X[i] = []float64{float64(i)}
	}
	fit := func(train []int, p Params) (Regressor, error) {
		assert.Len(t, train, 4)
		for _, r := range train {
			assert.GreaterOrEqual(t, r, 10)
		}
		return constant(0), nil
	}

	_, err := RandomizedSearch(context.Background(), X, y, rows, Grid{"k": {1}}, fit, Options{Folds: 3})
	require.NoError(t, err)
}
