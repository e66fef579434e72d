package model

import (
	"slices"
	"sort"
)

// treeNode is one split or leaf of a regression tree. Samples with
// x[Feature] <= Threshold go left.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf,omitempty"`
}

// Tree is a regression tree stored as a flat node slice rooted at index 0.
type Tree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
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

// binner quantizes each feature into at most maxBins ordered buckets. Bin b
// holds values v with edges[b-1] < v <= edges[b].
type binner struct {
	edges [][]float64
}

func newBinner(X [][]float64, maxBins int) *binner {
	width := len(X[0])
	b := &binner{edges: make([][]float64, width)}
	col := make([]float64, len(X))
	for j := range width {
		for i, row := range X {
			col[i] = row[j]
		}
		b.edges[j] = binEdges(col, maxBins)
	}
	return b
}

func binEdges(col []float64, maxBins int) []float64 {
	sorted := slices.Clone(col)
	slices.Sort(sorted)
	uniq := slices.Compact(sorted)
	if len(uniq) <= 1 {
		return nil
	}
	if len(uniq) <= maxBins {
		edges := make([]float64, len(uniq)-1)
		for i := range edges {
			edges[i] = uniq[i] + (uniq[i+1]-uniq[i])/2
		}
		return edges
	}
	// Quantile cuts over the full sorted column so dense regions get more bins.
	full := slices.Clone(col)
	slices.Sort(full)
	edges := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		v := full[k*len(full)/maxBins]
		if len(edges) > 0 && v <= edges[len(edges)-1] {
			continue
		}
		edges = append(edges, v)
	}
	if len(edges) > 0 && edges[len(edges)-1] >= full[len(full)-1] {
		edges = edges[:len(edges)-1]
	}
	return edges
}

// transform returns the bin index of every value, column-major.
func (b *binner) transform(X [][]float64) [][]uint8 {
	out := make([][]uint8, len(b.edges))
	for j, edges := range b.edges {
		col := make([]uint8, len(X))
		for i, row := range X {
			col[i] = uint8(sort.SearchFloat64s(edges, row[j]))
		}
		out[j] = col
	}
	return out
}

// treeBuilder grows one tree on Newton gradients with exact gain over bins.
type treeBuilder struct {
	binned         [][]uint8
	edges          [][]float64
	grad, hess     []float64
	features       []int
	maxDepth       int
	lambda         float64
	minChildWeight float64
	shrinkage      float64

	nodes []treeNode
	gHist []float64
	hHist []float64
}

func (b *treeBuilder) build(rows []int) Tree {
	b.nodes = b.nodes[:0]
	b.gHist = make([]float64, 256)
	b.hHist = make([]float64, 256)
	b.grow(rows, 0)
	return Tree{Nodes: slices.Clone(b.nodes)}
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	var g, h float64
	for _, r := range rows {
		g += b.grad[r]
		h += b.hess[r]
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Leaf: true, Value: -g / (h + b.lambda) * b.shrinkage})
	if depth >= b.maxDepth || len(rows) < 2 {
		return idx
	}

	feature, bin, ok := b.bestSplit(rows, g, h)
	if !ok {
		return idx
	}

	col := b.binned[feature]
	var left, right []int
	for _, r := range rows {
		if int(col[r]) <= bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx] = treeNode{
		Feature:   feature,
		Threshold: b.edges[feature][bin],
		Left:      l,
		Right:     r,
	}
	return idx
}

func (b *treeBuilder) bestSplit(rows []int, g, h float64) (feature, bin int, ok bool) {
	parent := g * g / (h + b.lambda)
	best := 1e-12
	for _, j := range b.features {
		nb := len(b.edges[j]) + 1
		if nb < 2 {
			continue
		}
		gh, hh := b.gHist[:nb], b.hHist[:nb]
		clear(gh)
		clear(hh)
		col := b.binned[j]
		for _, r := range rows {
			gh[col[r]] += b.grad[r]
			hh[col[r]] += b.hess[r]
		}
		var gl, hl float64
		for k := 0; k < nb-1; k++ {
			gl += gh[k]
			hl += hh[k]
			gr, hr := g-gl, h-hl
			if hl < b.minChildWeight || hr < b.minChildWeight {
				continue
			}
			gain := gl*gl/(hl+b.lambda) + gr*gr/(hr+b.lambda) - parent
			if gain > best {
				best, feature, bin, ok = gain, j, k, true
			}
		}
	}
	return feature, bin, ok
}
