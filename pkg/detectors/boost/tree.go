package boost

import "sort"

// Node is a node in a regression tree stored in a flat slice.
// Leaves have Left == -1 and carry the prediction in Value.
type Node struct {
	// Split parameters (for internal nodes)
	Feature   int
	Threshold float64

	// Children indices into Tree.Nodes
	Left  int
	Right int

	// Leaf information
	Value   float64
	Samples int
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Left < 0
}

// Tree is a binary regression tree fitted with squared error.
type Tree struct {
	Nodes []Node
}

// Predict returns the leaf value reached by sample.
// Samples go left when sample[Feature] <= Threshold.
func (t *Tree) Predict(sample []float64) float64 {
	i := 0
	for !t.Nodes[i].IsLeaf() {
		n := &t.Nodes[i]
		if sample[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// treeBuilder grows one tree on a fixed set of columns and targets.
type treeBuilder struct {
	cols            [][]float64 // cols[feature][sample]
	target          []float64
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int

	nodes []Node
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

func (b *treeBuilder) build(samples []int) *Tree {
	b.nodes = b.nodes[:0]
	b.buildNode(samples, 0)
	return &Tree{Nodes: append([]Node(nil), b.nodes...)}
}

// buildNode appends the subtree for samples and returns its index.
func (b *treeBuilder) buildNode(samples []int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Left:    -1,
		Right:   -1,
		Value:   b.mean(samples),
		Samples: len(samples),
	})

	// Terminal conditions
	if depth >= b.maxDepth || len(samples) < b.minSamplesSplit || len(samples) < 2*b.minSamplesLeaf {
		return idx
	}

	best, ok := b.bestSplit(samples)
	if !ok {
		return idx
	}

	left := b.buildNode(best.left, depth+1)
	right := b.buildNode(best.right, depth+1)

	n := &b.nodes[idx]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Left = left
	n.Right = right

	return idx
}

func (b *treeBuilder) mean(samples []int) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += b.target[s]
	}
	return sum / float64(len(samples))
}

// bestSplit scans every feature for the threshold that maximises the
// reduction in squared error. Features are scanned in index order and the
// first strictly better split wins.
func (b *treeBuilder) bestSplit(samples []int) (split, bool) {
	n := len(samples)
	total := 0.0
	for _, s := range samples {
		total += b.target[s]
	}
	parent := total * total / float64(n)

	best := split{feature: -1}
	order := make([]int, n)

	for f, col := range b.cols {
		copy(order, samples)
		sort.SliceStable(order, func(i, j int) bool {
			return col[order[i]] < col[order[j]]
		})

		if col[order[0]] == col[order[n-1]] {
			continue
		}

		leftSum := 0.0
		for i := 0; i < n-1; i++ {
			leftSum += b.target[order[i]]
			nl := i + 1
			nr := n - nl

			lo, hi := col[order[i]], col[order[i+1]]
			if lo == hi || nl < b.minSamplesLeaf || nr < b.minSamplesLeaf {
				continue
			}

			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr) - parent
			if gain > best.gain {
				best.feature = f
				best.gain = gain
				best.threshold = midpoint(lo, hi)
			}
		}
	}

	if best.feature < 0 {
		return best, false
	}

	col := b.cols[best.feature]
	for _, s := range samples {
		if col[s] <= best.threshold {
			best.left = append(best.left, s)
		} else {
			best.right = append(best.right, s)
		}
	}
	if len(best.left) == 0 || len(best.right) == 0 {
		return best, false
	}

	return best, true
}

// midpoint returns a threshold strictly separating lo < hi.
func midpoint(lo, hi float64) float64 {
	m := lo + (hi-lo)/2
	if m >= hi {
		return lo
	}
	return m
}
