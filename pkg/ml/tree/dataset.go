package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultMaxBins bounds the histogram resolution per feature.
const DefaultMaxBins = 255

// Dataset is a row-major feature matrix plus its per-feature histogram bins.
// Bin b of feature f holds values v with Edges[f][b-1] < v <= Edges[f][b];
// the last edge is +Inf.
type Dataset struct {
	X     [][]float64
	Bins  [][]uint8
	Edges [][]float64
}

// NewDataset bins X. Features with few distinct values get one bin per value
// split at midpoints; wider features use empirical quantiles.
func NewDataset(X [][]float64, maxBins int) *Dataset {
	if maxBins <= 1 || maxBins > 256 {
		maxBins = DefaultMaxBins
	}
	ds := &Dataset{X: X}
	if len(X) == 0 {
		return ds
	}
	width := len(X[0])
	ds.Bins = make([][]uint8, width)
	ds.Edges = make([][]float64, width)

	column := make([]float64, len(X))
	for f := 0; f < width; f++ {
		for i, row := range X {
			column[i] = row[f]
		}
		edges := binEdges(column, maxBins)
		codes := make([]uint8, len(X))
		for i, v := range column {
			codes[i] = uint8(sort.SearchFloat64s(edges, v))
		}
		ds.Edges[f] = edges
		ds.Bins[f] = codes
	}
	return ds
}

func (d *Dataset) NumRows() int {
	return len(d.X)
}

func (d *Dataset) NumFeatures() int {
	return len(d.Edges)
}

func binEdges(column []float64, maxBins int) []float64 {
	sorted := append([]float64(nil), column...)
	sort.Float64s(sorted)

	unique := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			unique = append(unique, v)
		}
	}

	var edges []float64
	if len(unique) <= maxBins {
		for i := 0; i+1 < len(unique); i++ {
			edges = append(edges, (unique[i]+unique[i+1])/2)
		}
	} else {
		for i := 1; i < maxBins; i++ {
			q := stat.Quantile(float64(i)/float64(maxBins), stat.Empirical, sorted, nil)
			if len(edges) == 0 || q > edges[len(edges)-1] {
				edges = append(edges, q)
			}
		}
		// The largest value must land in the +Inf bin, not on an edge.
		if n := len(edges); n > 0 && edges[n-1] >= unique[len(unique)-1] {
			edges = edges[:n-1]
		}
	}
	return append(edges, math.Inf(1))
}
