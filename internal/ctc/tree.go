package ctc

import (
	"fmt"
	"iter"
	"slices"
)

// RootNode is the id of the implicit root of every SuffixTree. It is never
// returned by AddNode.
const RootNode = -1

type treeNode struct {
	parent int
	label  int
	time   int
}

// SuffixTree is an append-only forest of label histories. Every node stands
// for exactly one collapsed label sequence, read by walking parent links up to
// RootNode. Nodes are never removed; the tree lives for one decode call.
type SuffixTree struct {
	labels   int
	nodes    []treeNode
	children childIndex
}

// NewSuffixTree creates a tree holding only the root. alphabetSize is the
// number of labels, i.e. the alphabet length without the blank.
func NewSuffixTree(alphabetSize int) *SuffixTree {
	if alphabetSize < 0 {
		alphabetSize = 0
	}
	return &SuffixTree{
		labels:   alphabetSize,
		children: newChildIndex(alphabetSize),
	}
}

// Len returns the number of allocated nodes, excluding the root.
func (t *SuffixTree) Len() int { return len(t.nodes) }

// Label returns the label on the edge into node; ok is false for the root.
func (t *SuffixTree) Label(node int) (label int, ok bool) {
	if node == RootNode {
		return 0, false
	}
	return t.nodes[node].label, true
}

// Parent returns the parent of node; ok is false for the root.
func (t *SuffixTree) Parent(node int) (parent int, ok bool) {
	if node == RootNode {
		return 0, false
	}
	return t.nodes[node].parent, true
}

// CreatedAt returns the timestep at which node was allocated.
func (t *SuffixTree) CreatedAt(node int) (time int, ok bool) {
	if node == RootNode {
		return 0, false
	}
	return t.nodes[node].time, true
}

// GetChild returns the existing child of node for label, if any.
func (t *SuffixTree) GetChild(node, label int) (int, bool) {
	return t.children.get(node, label)
}

// AddNode allocates a child of parent for label, stamped with time, and
// registers it in the child index. It panics if that child already exists or
// label is out of range: both would break the one-sequence-per-node invariant.
func (t *SuffixTree) AddNode(parent, label, time int) int {
	if label < 0 || label >= t.labels {
		panic(fmt.Sprintf("ctc: label %d out of range [0,%d)", label, t.labels))
	}
	if _, exists := t.children.get(parent, label); exists {
		panic(fmt.Sprintf("ctc: node %d already has a child for label %d", parent, label))
	}
	id := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{parent: parent, label: label, time: time})
	t.children.addRow()
	t.children.set(parent, label, id)
	return id
}

// childOrAdd returns the child of node for label, creating it at time if needed.
func (t *SuffixTree) childOrAdd(node, label, time int) int {
	if child, ok := t.children.get(node, label); ok {
		return child
	}
	return t.AddNode(node, label, time)
}

// IterFrom walks from node towards the root, yielding (label, time) pairs in
// tip-to-root order. The root itself is not yielded.
func (t *SuffixTree) IterFrom(node int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for n := node; n != RootNode; {
			tn := t.nodes[n]
			if !yield(tn.label, tn.time) {
				return
			}
			n = tn.parent
		}
	}
}

// Path returns the labels and creation timesteps of node in root-to-tip
// (chronological) order.
func (t *SuffixTree) Path(node int) (labels, times []int) {
	for label, time := range t.IterFrom(node) {
		labels = append(labels, label)
		times = append(times, time)
	}
	slices.Reverse(labels)
	slices.Reverse(times)
	return labels, times
}
