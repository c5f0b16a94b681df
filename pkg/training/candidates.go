package training

import (
	"fmt"
	"math"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/ensemble"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/linear"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/search"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/tree"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
)

const (
	FamilyGradientBoosting  = "GradientBoosting"
	FamilyLeafwiseBoosting  = "LeafwiseBoosting"
	FamilyObliviousBoosting = "ObliviousBoosting"
	FamilyExtraTrees        = "ExtraTrees"
	FamilyRidge             = "Ridge"
)

// trainFunc fits one family on the given dataset rows. workers bounds the
// parallelism a family may use internally.
type trainFunc func(ds *tree.Dataset, y []float64, rows []int, p search.Params, seed int64, workers int) (pipeline.Model, error)

type candidate struct {
	name  string
	grid  search.Grid
	train trainFunc
}

var trainers = map[string]trainFunc{
	FamilyGradientBoosting:  trainGradientBoosting,
	FamilyLeafwiseBoosting:  trainLeafwiseBoosting,
	FamilyObliviousBoosting: trainObliviousBoosting,
	FamilyExtraTrees:        trainExtraTrees,
	FamilyRidge:             trainRidge,
}

// candidates returns the enabled families in search-space order.
func candidates(space SearchSpace) []candidate {
	out := make([]candidate, 0, len(space.Families))
	for _, fam := range space.Families {
		if fam.Disabled {
			continue
		}
		train, ok := trainers[fam.Name]
		if !ok {
			continue
		}
		out = append(out, candidate{name: fam.Name, grid: fam.Grid(), train: train})
	}
	return out
}

func param(p search.Params, name string, fallback float64) float64 {
	if v, ok := p[name]; ok && !math.IsNaN(v) {
		return v
	}
	return fallback
}

func intParam(p search.Params, name string, fallback int) int {
	return int(math.Round(param(p, name, float64(fallback))))
}

func trainGradientBoosting(ds *tree.Dataset, y []float64, rows []int, p search.Params, seed int64, _ int) (pipeline.Model, error) {
	m, err := ensemble.Boost(ds, y, rows, ensemble.BoostOptions{
		Rounds:          intParam(p, "n_estimators", 300),
		LearningRate:    param(p, "learning_rate", 0.1),
		Subsample:       param(p, "subsample", 1),
		ColsampleByTree: param(p, "colsample_bytree", 1),
		Tree: tree.Options{
			Growth:         tree.DepthWise,
			MaxDepth:       intParam(p, "max_depth", 6),
			MinSamplesLeaf: 1,
			Lambda:         1,
		},
		Seed: seed,
	})
	if err != nil {
		return pipeline.Model{}, err
	}
	return pipeline.Model{Ensemble: m}, nil
}

func trainLeafwiseBoosting(ds *tree.Dataset, y []float64, rows []int, p search.Params, seed int64, _ int) (pipeline.Model, error) {
	m, err := ensemble.Boost(ds, y, rows, ensemble.BoostOptions{
		Rounds:          intParam(p, "n_estimators", 300),
		LearningRate:    param(p, "learning_rate", 0.1),
		Subsample:       param(p, "subsample", 1),
		ColsampleByTree: param(p, "colsample_bytree", 1),
		Tree: tree.Options{
			Growth:         tree.LeafWise,
			MaxLeaves:      intParam(p, "num_leaves", 31),
			MinSamplesLeaf: intParam(p, "min_child_samples", 20),
		},
		Seed: seed,
	})
	if err != nil {
		return pipeline.Model{}, err
	}
	return pipeline.Model{Ensemble: m}, nil
}

func trainObliviousBoosting(ds *tree.Dataset, y []float64, rows []int, p search.Params, seed int64, _ int) (pipeline.Model, error) {
	m, err := ensemble.Boost(ds, y, rows, ensemble.BoostOptions{
		Rounds:       intParam(p, "iterations", 300),
		LearningRate: param(p, "learning_rate", 0.1),
		Subsample:    1,
		Tree: tree.Options{
			Growth:         tree.Oblivious,
			MaxDepth:       intParam(p, "depth", 6),
			MinSamplesLeaf: 1,
			Lambda:         param(p, "l2_leaf_reg", 3),
		},
		Seed: seed,
	})
	if err != nil {
		return pipeline.Model{}, err
	}
	return pipeline.Model{Ensemble: m}, nil
}

func trainExtraTrees(ds *tree.Dataset, y []float64, rows []int, p search.Params, seed int64, workers int) (pipeline.Model, error) {
	m, err := ensemble.Bag(ds, y, rows, ensemble.BagOptions{
		Trees: intParam(p, "n_estimators", 300),
		Tree: tree.Options{
			Growth:          tree.DepthWise,
			MaxDepth:        intParam(p, "max_depth", 0),
			MinSamplesSplit: intParam(p, "min_samples_split", 2),
			MinSamplesLeaf:  1,
			RandomSplits:    true,
			FeatureFraction: param(p, "max_features", 1),
		},
		Seed:    seed,
		Workers: workers,
	})
	if err != nil {
		return pipeline.Model{}, err
	}
	return pipeline.Model{Ensemble: m}, nil
}

func trainRidge(ds *tree.Dataset, y []float64, rows []int, p search.Params, _ int64, _ int) (pipeline.Model, error) {
	samples := make([][]float64, len(rows))
	labels := make([]float64, len(rows))
	for i, r := range rows {
		samples[i] = ds.X[r]
		labels[i] = y[r]
	}
	w, _, err := linear.TrainRidge(samples, labels, linear.Options{Alpha: param(p, "alpha", 1)})
	if err != nil {
		return pipeline.Model{}, fmt.Errorf("ridge: %w", err)
	}
	return pipeline.Model{Linear: &w}, nil
}
