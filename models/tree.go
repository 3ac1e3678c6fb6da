package models

import (
	"math"
)

// Node is a single split or leaf of a regression tree. Rows with a feature value less than
// or equal to Threshold go Left.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf,omitempty"`

	// bin of the threshold, only used while training
	bin uint8
}

// Tree is a binary regression tree stored as a flat slice with the root at index 0
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// PredictRow walks the tree for a single observation
func (t *Tree) PredictRow(row []float64) float64 {
	idx := 0
	for {
		node := &t.Nodes[idx]
		if node.Leaf {
			return node.Value
		}
		if row[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

func (t *Tree) predictBinned(binned [][]uint8, i int) float64 {
	idx := 0
	for {
		node := &t.Nodes[idx]
		if node.Leaf {
			return node.Value
		}
		if binned[node.Feature][i] <= node.bin {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// NumLeaves returns the number of terminal nodes
func (t *Tree) NumLeaves() int {
	var cnt int
	for _, n := range t.Nodes {
		if n.Leaf {
			cnt++
		}
	}
	return cnt
}

// Depth returns the longest path from the root to a leaf
func (t *Tree) Depth() int {
	var walk func(idx int) int
	walk = func(idx int) int {
		n := t.Nodes[idx]
		if n.Leaf {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// treeOptions controls growth of a single tree. Zero MaxDepth or MaxLeaves means unlimited.
type treeOptions struct {
	MaxDepth       int
	MaxLeaves      int
	MinSamplesLeaf int
	MinChildWeight float64
	Lambda         float64
	MinSplitGain   float64
	// Shrinkage scales every leaf value, used as the boosting learning rate
	Shrinkage float64
}

// treeBuilder grows a tree on histogram binned features from per row gradients and
// hessians. Squared error with g = -y, h = 1 and Lambda = 0 reduces to variance reduction
// with the mean as the leaf value.
type treeBuilder struct {
	opt      treeOptions
	bins     *binMapper
	binned   [][]uint8
	grad     []float64
	hess     []float64
	features []int
}

type split struct {
	gain    float64
	feature int
	bin     uint8
	valid   bool
}

type candidate struct {
	node  int
	depth int
	rows  []int
	g, h  float64
	best  split
}

func (b *treeBuilder) leafValue(g, h float64) float64 {
	if h+b.opt.Lambda == 0 {
		return 0
	}
	return -g / (h + b.opt.Lambda) * b.opt.Shrinkage
}

func (b *treeBuilder) score(g, h float64) float64 {
	if h+b.opt.Lambda == 0 {
		return 0
	}
	return g * g / (h + b.opt.Lambda)
}

func (b *treeBuilder) newCandidate(node, depth int, rows []int) *candidate {
	c := &candidate{node: node, depth: depth, rows: rows}
	for _, i := range rows {
		c.g += b.grad[i]
		c.h += b.hess[i]
	}
	return c
}

// build grows a tree over the given rows. Depth limited growth splits every leaf with a
// positive gain, leaf limited growth always splits the leaf with the largest gain first.
func (b *treeBuilder) build(rows []int) *Tree {
	if b.opt.Shrinkage == 0 {
		b.opt.Shrinkage = 1.0
	}
	minLeaf := max(b.opt.MinSamplesLeaf, 1)

	tree := &Tree{Nodes: make([]Node, 0, 64)}
	root := b.newCandidate(0, 0, rows)
	tree.Nodes = append(tree.Nodes, Node{Leaf: true, Value: b.leafValue(root.g, root.h)})
	b.findSplit(root, minLeaf)

	queue := []*candidate{root}
	leaves := 1
	for len(queue) > 0 {
		if b.opt.MaxLeaves > 0 && leaves >= b.opt.MaxLeaves {
			break
		}

		pick := len(queue) - 1
		if b.opt.MaxLeaves > 0 {
			pick = -1
			for i, c := range queue {
				if !c.best.valid {
					continue
				}
				if pick < 0 || c.best.gain > queue[pick].best.gain {
					pick = i
				}
			}
			if pick < 0 {
				break
			}
		}
		c := queue[pick]
		queue = append(queue[:pick], queue[pick+1:]...)
		if !c.best.valid {
			continue
		}

		left := make([]int, 0, len(c.rows))
		right := make([]int, 0, len(c.rows))
		col := b.binned[c.best.feature]
		for _, i := range c.rows {
			if col[i] <= c.best.bin {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}

		leftIdx := len(tree.Nodes)
		rightIdx := leftIdx + 1
		lc := b.newCandidate(leftIdx, c.depth+1, left)
		rc := b.newCandidate(rightIdx, c.depth+1, right)
		tree.Nodes = append(tree.Nodes,
			Node{Leaf: true, Value: b.leafValue(lc.g, lc.h)},
			Node{Leaf: true, Value: b.leafValue(rc.g, rc.h)},
		)

		parent := &tree.Nodes[c.node]
		parent.Leaf = false
		parent.Feature = c.best.feature
		parent.bin = c.best.bin
		parent.Threshold = b.bins.thresholds[c.best.feature][c.best.bin]
		parent.Left = leftIdx
		parent.Right = rightIdx
		leaves++

		b.findSplit(lc, minLeaf)
		b.findSplit(rc, minLeaf)
		queue = append(queue, lc, rc)
	}
	return tree
}

func (b *treeBuilder) findSplit(c *candidate, minLeaf int) {
	if b.opt.MaxDepth > 0 && c.depth >= b.opt.MaxDepth {
		return
	}
	if len(c.rows) < 2*minLeaf {
		return
	}

	parentScore := b.score(c.g, c.h)
	best := split{gain: math.Max(b.opt.MinSplitGain, 1e-12)}

	var (
		gHist [256]float64
		hHist [256]float64
		cHist [256]int
	)
	for _, f := range b.features {
		nb := b.bins.numBins(f)
		if nb < 2 {
			continue
		}
		for k := 0; k < nb; k++ {
			gHist[k], hHist[k], cHist[k] = 0, 0, 0
		}
		col := b.binned[f]
		for _, i := range c.rows {
			bin := col[i]
			gHist[bin] += b.grad[i]
			hHist[bin] += b.hess[i]
			cHist[bin]++
		}

		var gl, hl float64
		var cl int
		for k := 0; k < nb-1; k++ {
			gl += gHist[k]
			hl += hHist[k]
			cl += cHist[k]
			cr := len(c.rows) - cl
			if cl < minLeaf {
				continue
			}
			if cr < minLeaf {
				break
			}
			hr := c.h - hl
			if hl < b.opt.MinChildWeight || hr < b.opt.MinChildWeight {
				continue
			}
			gain := b.score(gl, hl) + b.score(c.g-gl, hr) - parentScore
			if gain > best.gain {
				best = split{gain: gain, feature: f, bin: uint8(k), valid: true}
			}
		}
	}
	c.best = best
}
