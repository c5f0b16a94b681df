package ensemble

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/tree"
)

const (
	KindBoosted = "boosted"
	KindBagged  = "bagged"
)

// Model is an additive tree ensemble: Base + Scale * sum of tree outputs.
type Model struct {
	Kind        string       `json:"kind"`
	Base        float64      `json:"base"`
	Scale       float64      `json:"scale"`
	NumFeatures int          `json:"num_features"`
	Trees       []*tree.Tree `json:"trees"`
}

func (m *Model) Predict(x []float64) (float64, error) {
	if len(x) != m.NumFeatures {
		return 0, fmt.Errorf("ensemble expects %d features, got %d", m.NumFeatures, len(x))
	}
	var sum float64
	for _, t := range m.Trees {
		sum += t.Predict(x)
	}
	return m.Base + m.Scale*sum, nil
}

type BoostOptions struct {
	Rounds          int
	LearningRate    float64
	Subsample       float64
	ColsampleByTree float64
	Tree            tree.Options
	Seed            int64
}

// Boost fits a gradient-boosted ensemble on squared error. y is indexed by
// dataset row; only rows takes part in training.
func Boost(ds *tree.Dataset, y []float64, rows []int, opts BoostOptions) (*Model, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("boost: no training rows")
	}
	if opts.Rounds <= 0 {
		opts.Rounds = 100
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.1
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	var base float64
	for _, r := range rows {
		base += y[r]
	}
	base /= float64(len(rows))

	pred := make([]float64, ds.NumRows())
	residual := make([]float64, ds.NumRows())
	for _, r := range rows {
		pred[r] = base
	}

	model := &Model{
		Kind:        KindBoosted,
		Base:        base,
		Scale:       opts.LearningRate,
		NumFeatures: ds.NumFeatures(),
		Trees:       make([]*tree.Tree, 0, opts.Rounds),
	}
	for round := 0; round < opts.Rounds; round++ {
		for _, r := range rows {
			residual[r] = y[r] - pred[r]
		}
		sampled := sample(rows, opts.Subsample, rng)
		features := sampleFeatures(ds.NumFeatures(), opts.ColsampleByTree, rng)
		t := tree.Grow(ds, residual, sampled, features, opts.Tree, rng)
		for _, r := range rows {
			pred[r] += opts.LearningRate * t.Predict(ds.X[r])
		}
		model.Trees = append(model.Trees, t)
	}
	return model, nil
}

type BagOptions struct {
	Trees     int
	Bootstrap bool
	Tree      tree.Options
	Seed      int64
	Workers   int
}

// Bag fits independent trees and averages them. Trees are grown on a bounded
// worker pool; tree i always uses seed Seed+i, so results do not depend on
// scheduling.
func Bag(ds *tree.Dataset, y []float64, rows []int, opts BagOptions) (*Model, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("bag: no training rows")
	}
	if opts.Trees <= 0 {
		opts.Trees = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	features := make([]int, ds.NumFeatures())
	for i := range features {
		features[i] = i
	}

	trees := make([]*tree.Tree, opts.Trees)
	sem := make(chan struct{}, opts.Workers)
	var wg sync.WaitGroup
	for i := 0; i < opts.Trees; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
			sampleRows := rows
			if opts.Bootstrap {
				sampleRows = make([]int, len(rows))
				for j := range sampleRows {
					sampleRows[j] = rows[rng.Intn(len(rows))]
				}
			}
			trees[i] = tree.Grow(ds, y, sampleRows, features, opts.Tree, rng)
		}(i)
	}
	wg.Wait()

	return &Model{
		Kind:        KindBagged,
		Scale:       1 / float64(len(trees)),
		NumFeatures: ds.NumFeatures(),
		Trees:       trees,
	}, nil
}

func sample(rows []int, fraction float64, rng *rand.Rand) []int {
	if fraction <= 0 || fraction >= 1 {
		return rows
	}
	k := int(math.Round(fraction * float64(len(rows))))
	if k < 1 {
		k = 1
	}
	picked := make([]int, k)
	for i, p := range rng.Perm(len(rows))[:k] {
		picked[i] = rows[p]
	}
	sort.Ints(picked)
	return picked
}

func sampleFeatures(width int, fraction float64, rng *rand.Rand) []int {
	if fraction <= 0 || fraction >= 1 {
		all := make([]int, width)
		for i := range all {
			all[i] = i
		}
		return all
	}
	k := int(math.Ceil(fraction * float64(width)))
	if k < 1 {
		k = 1
	}
	picked := append([]int(nil), rng.Perm(width)[:k]...)
	sort.Ints(picked)
	return picked
}
