package ctc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuffixTree_RootOnly(t *testing.T) {
	tree := NewSuffixTree(4)
	assert.Equal(t, 0, tree.Len())

	_, ok := tree.Label(RootNode)
	assert.False(t, ok)
	_, ok = tree.Parent(RootNode)
	assert.False(t, ok)
	_, ok = tree.GetChild(RootNode, 2)
	assert.False(t, ok)

	count := 0
	for range tree.IterFrom(RootNode) {
		count++
	}
	assert.Zero(t, count)
}

func TestSuffixTree_AddNodeAndLookup(t *testing.T) {
	tree := NewSuffixTree(4)
	a := tree.AddNode(RootNode, 0, 0)
	ab := tree.AddNode(a, 1, 3)
	aa := tree.AddNode(a, 0, 5)

	assert.Equal(t, 3, tree.Len())
	assert.NotEqual(t, ab, aa)

	label, ok := tree.Label(ab)
	require.True(t, ok)
	assert.Equal(t, 1, label)

	parent, ok := tree.Parent(ab)
	require.True(t, ok)
	assert.Equal(t, a, parent)

	created, ok := tree.CreatedAt(aa)
	require.True(t, ok)
	assert.Equal(t, 5, created)

	child, ok := tree.GetChild(a, 1)
	require.True(t, ok)
	assert.Equal(t, ab, child)

	_, ok = tree.GetChild(ab, 1)
	assert.False(t, ok)
}

func TestSuffixTree_IterFromTipToRoot(t *testing.T) {
	tree := NewSuffixTree(3)
	n := RootNode
	for i, l := range []int{2, 0, 2, 1} {
		n = tree.AddNode(n, l, i*10)
	}

	var labels, times []int
	for l, tm := range tree.IterFrom(n) {
		labels = append(labels, l)
		times = append(times, tm)
	}
	assert.Equal(t, []int{1, 2, 0, 2}, labels)
	assert.Equal(t, []int{30, 20, 10, 0}, times)

	// Restartable: a second walk yields the same sequence.
	var again []int
	for l := range tree.IterFrom(n) {
		again = append(again, l)
	}
	assert.Equal(t, labels, again)

	pathLabels, pathTimes := tree.Path(n)
	assert.Equal(t, []int{2, 0, 2, 1}, pathLabels)
	assert.Equal(t, []int{0, 10, 20, 30}, pathTimes)
}

func TestSuffixTree_IterFromStopsEarly(t *testing.T) {
	tree := NewSuffixTree(2)
	n := tree.AddNode(RootNode, 0, 0)
	n = tree.AddNode(n, 1, 1)
	n = tree.AddNode(n, 0, 2)

	seen := 0
	for range tree.IterFrom(n) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestSuffixTree_AddNodeRejectsDuplicates(t *testing.T) {
	tree := NewSuffixTree(2)
	tree.AddNode(RootNode, 1, 0)
	assert.Panics(t, func() { tree.AddNode(RootNode, 1, 1) })
	assert.Panics(t, func() { tree.AddNode(RootNode, 2, 1) })
	assert.Panics(t, func() { tree.AddNode(RootNode, -1, 1) })
}

func TestSuffixTree_ChildOrAddReusesNodes(t *testing.T) {
	tree := NewSuffixTree(3)
	first := tree.childOrAdd(RootNode, 2, 4)
	second := tree.childOrAdd(RootNode, 2, 9)
	assert.Equal(t, first, second)
	created, _ := tree.CreatedAt(first)
	assert.Equal(t, 4, created, "creation time is stamped once")
	assert.Equal(t, 1, tree.Len())
}
