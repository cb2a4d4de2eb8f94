package learned

import (
	"math/rand"
	"sort"
)

// Node is one CART node. Leaves have Left == -1. Value is kept on internal
// nodes too so predictions can be decomposed along the decision path.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Value     []float64 `json:"v"`
}

// Tree is a binary decision tree stored as a flat node slice, root first
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) leaf(x FeatureVector) []float64 {
	i := 0
	for t.Nodes[i].Left >= 0 {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// attribute adds scale*(child-parent) of output dim to the splitting feature
// at every step of the path and returns the scaled root value.
func (t *Tree) attribute(x FeatureVector, dim int, scale float64, out *[NumFeatures]float64) float64 {
	i := 0
	for t.Nodes[i].Left >= 0 {
		n := t.Nodes[i]
		next := n.Right
		if x[n.Feature] <= n.Threshold {
			next = n.Left
		}
		out[n.Feature] += scale * (t.Nodes[next].Value[dim] - n.Value[dim])
		i = next
	}
	return scale * t.Nodes[0].Value[dim]
}

type treeParams struct {
	MaxDepth       int
	MinSamplesLeaf int
	// Features tried per split; 0 means all
	MaxFeatures int
}

// treeBuilder grows a tree that maximizes sum-of-squares separation of the
// per-sample target vectors. With a scalar residual this is variance
// reduction; with one-hot labels it is Gini reduction.
type treeBuilder struct {
	X         []FeatureVector
	targets   [][]float64
	params    treeParams
	leafValue func(idx []int) []float64
	rng       *rand.Rand
	gain      *[NumFeatures]float64

	tree *Tree
}

func (b *treeBuilder) grow(idx []int) *Tree {
	b.tree = &Tree{}
	b.build(idx, 0)
	return b.tree
}

func (b *treeBuilder) build(idx []int, depth int) int {
	pos := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Left: -1, Right: -1, Value: b.leafValue(idx)})

	if depth >= b.params.MaxDepth || len(idx) < 2*b.params.MinSamplesLeaf {
		return pos
	}

	feature, threshold, gain, ok := b.bestSplit(idx)
	if !ok || gain <= 1e-12 {
		return pos
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if b.gain != nil {
		b.gain[feature] += gain
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	// nodes may have been reallocated by the recursive appends
	b.tree.Nodes[pos].Feature = feature
	b.tree.Nodes[pos].Threshold = threshold
	b.tree.Nodes[pos].Left = l
	b.tree.Nodes[pos].Right = r
	return pos
}

func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold, gain float64, ok bool) {
	dims := len(b.targets[idx[0]])
	total := make([]float64, dims)
	for _, i := range idx {
		for d := range total {
			total[d] += b.targets[i][d]
		}
	}
	n := float64(len(idx))
	parent := sumSquares(total) / n

	sorted := make([]int, len(idx))
	left := make([]float64, dims)
	right := make([]float64, dims)
	minLeaf := b.params.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	for _, f := range b.candidateFeatures() {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.X[sorted[a]][f] < b.X[sorted[c]][f]
		})
		for d := range left {
			left[d] = 0
		}

		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			for d := range left {
				left[d] += b.targets[i][d]
			}
			nL, nR := k+1, len(sorted)-k-1
			if nL < minLeaf || nR < minLeaf {
				continue
			}
			v, next := b.X[i][f], b.X[sorted[k+1]][f]
			if v == next {
				continue
			}
			for d := range right {
				right[d] = total[d] - left[d]
			}
			g := sumSquares(left)/float64(nL) + sumSquares(right)/float64(nR) - parent
			if g > gain {
				feature, threshold, gain, ok = f, (v+next)/2, g, true
			}
		}
	}
	return feature, threshold, gain, ok
}

func (b *treeBuilder) candidateFeatures() []int {
	if b.params.MaxFeatures <= 0 || b.params.MaxFeatures >= NumFeatures || b.rng == nil {
		all := make([]int, NumFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(NumFeatures)[:b.params.MaxFeatures]
}

func sumSquares(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return s
}
