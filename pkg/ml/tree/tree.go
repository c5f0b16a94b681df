package tree

import (
	"math/rand"
	"sort"
)

// Growth selects how a tree is expanded.
type Growth int

const (
	// DepthWise splits every node level by level up to MaxDepth.
	DepthWise Growth = iota
	// LeafWise always splits the leaf with the largest gain, up to MaxLeaves.
	LeafWise
	// Oblivious uses one shared split per level (symmetric trees).
	Oblivious
)

type Options struct {
	Growth          Growth
	MaxDepth        int // 0 means unbounded for depth-wise and leaf-wise growth
	MaxLeaves       int
	MinSamplesLeaf  int
	MinSamplesSplit int
	Lambda          float64 // L2 penalty on leaf values
	RandomSplits    bool    // one random threshold per feature, as in extremely randomized trees
	FeatureFraction float64 // share of features considered per split; 0 means all
}

// Node is one tree node in flat storage. Leaves carry Value; internal nodes
// send x to Left when x[Feature] <= Threshold.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) Predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for !t.Nodes[i].Leaf {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// Leaves counts the leaf nodes.
func (t *Tree) Leaves() int {
	count := 0
	for _, n := range t.Nodes {
		if n.Leaf {
			count++
		}
	}
	return count
}

// Grow fits a regression tree on target[r] for r in rows, using only the
// given feature indices. target is indexed by dataset row.
func Grow(ds *Dataset, target []float64, rows []int, features []int, opts Options, rng *rand.Rand) *Tree {
	if opts.MinSamplesLeaf < 1 {
		opts.MinSamplesLeaf = 1
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	g := &grower{
		ds:       ds,
		target:   target,
		opts:     opts,
		rng:      rng,
		features: features,
		cnt:      make([]float64, 256),
		sum:      make([]float64, 256),
	}
	switch opts.Growth {
	case LeafWise:
		g.growLeafWise(rows)
	case Oblivious:
		g.growOblivious(rows)
	default:
		g.growDepthWise(rows, 0)
	}
	return &Tree{Nodes: g.nodes}
}

type grower struct {
	ds       *Dataset
	target   []float64
	opts     Options
	rng      *rand.Rand
	features []int
	nodes    []Node
	cnt      []float64
	sum      []float64
}

type split struct {
	feature int
	bin     int
	gain    float64
	valid   bool
}

func (g *grower) leafValue(rows []int) float64 {
	var s float64
	for _, r := range rows {
		s += g.target[r]
	}
	return s / (float64(len(rows)) + g.opts.Lambda)
}

func (g *grower) score(sum, count float64) float64 {
	return sum * sum / (count + g.opts.Lambda)
}

func (g *grower) newLeaf(rows []int) int {
	g.nodes = append(g.nodes, Node{Leaf: true, Value: g.leafValue(rows)})
	return len(g.nodes) - 1
}

func (g *grower) setSplit(node int, s split, left, right int) {
	g.nodes[node] = Node{
		Feature:   s.feature,
		Threshold: g.ds.Edges[s.feature][s.bin],
		Left:      left,
		Right:     right,
		Value:     g.nodes[node].Value,
	}
}

func (g *grower) candidates() []int {
	frac := g.opts.FeatureFraction
	if frac <= 0 || frac >= 1 || len(g.features) <= 1 {
		return g.features
	}
	k := int(frac * float64(len(g.features)))
	if k < 1 {
		k = 1
	}
	picked := make([]int, k)
	for i, p := range g.rng.Perm(len(g.features))[:k] {
		picked[i] = g.features[p]
	}
	sort.Ints(picked)
	return picked
}

// histogram fills cnt and sum for feature f over rows and returns the bin count.
func (g *grower) histogram(f int, rows []int) int {
	nb := len(g.ds.Edges[f])
	for b := 0; b < nb; b++ {
		g.cnt[b], g.sum[b] = 0, 0
	}
	codes := g.ds.Bins[f]
	for _, r := range rows {
		b := codes[r]
		g.cnt[b]++
		g.sum[b] += g.target[r]
	}
	return nb
}

func (g *grower) bestSplit(rows []int) split {
	var best split
	n := float64(len(rows))
	minLeaf := float64(g.opts.MinSamplesLeaf)
	if len(rows) < g.opts.MinSamplesSplit || n < 2*minLeaf {
		return best
	}
	var total float64
	for _, r := range rows {
		total += g.target[r]
	}
	parent := g.score(total, n)

	consider := func(f, b int, nL, sL float64) {
		nR, sR := n-nL, total-sL
		if nL < minLeaf || nR < minLeaf {
			return
		}
		gain := g.score(sL, nL) + g.score(sR, nR) - parent
		if gain > 1e-12 && (!best.valid || gain > best.gain) {
			best = split{feature: f, bin: b, gain: gain, valid: true}
		}
	}

	for _, f := range g.candidates() {
		nb := g.histogram(f, rows)
		if nb < 2 {
			continue
		}
		if g.opts.RandomSplits {
			lo, hi := -1, -1
			for b := 0; b < nb; b++ {
				if g.cnt[b] > 0 {
					if lo < 0 {
						lo = b
					}
					hi = b
				}
			}
			if lo < 0 || lo >= hi {
				continue
			}
			cut := lo + g.rng.Intn(hi-lo)
			var nL, sL float64
			for b := 0; b <= cut; b++ {
				nL += g.cnt[b]
				sL += g.sum[b]
			}
			consider(f, cut, nL, sL)
			continue
		}
		var nL, sL float64
		for b := 0; b < nb-1; b++ {
			nL += g.cnt[b]
			sL += g.sum[b]
			if g.cnt[b] == 0 {
				continue
			}
			consider(f, b, nL, sL)
		}
	}
	return best
}

func (g *grower) partition(rows []int, feature, bin int) ([]int, []int) {
	codes := g.ds.Bins[feature]
	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, r := range rows {
		if int(codes[r]) <= bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

func (g *grower) growDepthWise(rows []int, depth int) int {
	node := g.newLeaf(rows)
	if g.opts.MaxDepth > 0 && depth >= g.opts.MaxDepth {
		return node
	}
	s := g.bestSplit(rows)
	if !s.valid {
		return node
	}
	leftRows, rightRows := g.partition(rows, s.feature, s.bin)
	left := g.growDepthWise(leftRows, depth+1)
	right := g.growDepthWise(rightRows, depth+1)
	g.setSplit(node, s, left, right)
	return node
}

type openLeaf struct {
	node  int
	rows  []int
	depth int
	split split
}

func (g *grower) openLeaf(rows []int, depth int) openLeaf {
	leaf := openLeaf{node: g.newLeaf(rows), rows: rows, depth: depth}
	if g.opts.MaxDepth <= 0 || depth < g.opts.MaxDepth {
		leaf.split = g.bestSplit(rows)
	}
	return leaf
}

func (g *grower) growLeafWise(rows []int) {
	leaves := []openLeaf{g.openLeaf(rows, 0)}
	for g.opts.MaxLeaves <= 0 || len(leaves) < g.opts.MaxLeaves {
		pick := -1
		for i, l := range leaves {
			if l.split.valid && (pick < 0 || l.split.gain > leaves[pick].split.gain) {
				pick = i
			}
		}
		if pick < 0 {
			return
		}
		l := leaves[pick]
		leftRows, rightRows := g.partition(l.rows, l.split.feature, l.split.bin)
		left := g.openLeaf(leftRows, l.depth+1)
		right := g.openLeaf(rightRows, l.depth+1)
		g.setSplit(l.node, l.split, left.node, right.node)
		leaves[pick] = left
		leaves = append(leaves, right)
	}
}

type partitionNode struct {
	node  int
	rows  []int
	value float64
}

// growOblivious picks, per level, the (feature, bin) that maximises the summed
// gain across all current partitions and applies it to each of them.
func (g *grower) growOblivious(rows []int) {
	root := g.newLeaf(rows)
	parts := []partitionNode{{node: root, rows: rows, value: g.nodes[root].Value}}

	for depth := 0; depth < g.opts.MaxDepth; depth++ {
		best := split{}
		for _, f := range g.candidates() {
			nb := len(g.ds.Edges[f])
			if nb < 2 {
				continue
			}
			gains := make([]float64, nb-1)
			for _, p := range parts {
				if len(p.rows) < 2 {
					continue
				}
				g.histogram(f, p.rows)
				var total float64
				for b := 0; b < nb; b++ {
					total += g.sum[b]
				}
				n := float64(len(p.rows))
				parent := g.score(total, n)
				var nL, sL float64
				for b := 0; b < nb-1; b++ {
					nL += g.cnt[b]
					sL += g.sum[b]
					if nL == 0 || nL == n {
						continue
					}
					gains[b] += g.score(sL, nL) + g.score(total-sL, n-nL) - parent
				}
			}
			for b, gain := range gains {
				if gain > 1e-12 && (!best.valid || gain > best.gain) {
					best = split{feature: f, bin: b, gain: gain, valid: true}
				}
			}
		}
		if !best.valid {
			return
		}

		next := make([]partitionNode, 0, 2*len(parts))
		for _, p := range parts {
			leftRows, rightRows := g.partition(p.rows, best.feature, best.bin)
			left := g.childLeaf(leftRows, p.value)
			right := g.childLeaf(rightRows, p.value)
			g.setSplit(p.node, best, left.node, right.node)
			next = append(next, left, right)
		}
		parts = next
	}
}

// childLeaf creates a leaf for rows; an empty side inherits its parent's value.
func (g *grower) childLeaf(rows []int, parentValue float64) partitionNode {
	value := parentValue
	if len(rows) > 0 {
		value = g.leafValue(rows)
	}
	g.nodes = append(g.nodes, Node{Leaf: true, Value: value})
	return partitionNode{node: len(g.nodes) - 1, rows: rows, value: value}
}
