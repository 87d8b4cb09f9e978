package ctc

// denseAlphabetLimit is the widest label set that still gets dense child
// rows. Wider alphabets (large CJK dictionaries) fall back to a hashed index.
const denseAlphabetLimit = 256

const noChild int32 = -1

type childKey struct {
	node  int32
	label int32
}

// childIndex answers "does node N already have a child for label L" in O(1).
// In the dense layout a node only owns a row of width labels once its first
// child is registered, so leaf nodes cost a single int32.
type childIndex struct {
	width  int
	root   []int32
	rowOf  []int32
	dense  []int32
	sparse map[childKey]int32
}

func newChildIndex(labels int) childIndex {
	idx := childIndex{width: labels}
	if labels > denseAlphabetLimit {
		idx.sparse = make(map[childKey]int32)
		return idx
	}
	idx.root = make([]int32, labels)
	for i := range idx.root {
		idx.root[i] = noChild
	}
	return idx
}

// addRow registers a freshly allocated node that has no children yet.
func (c *childIndex) addRow() {
	if c.sparse != nil {
		return
	}
	c.rowOf = append(c.rowOf, noChild)
}

// row returns the child row of node, or nil when it has none.
func (c *childIndex) row(node int) []int32 {
	if node == RootNode {
		return c.root
	}
	r := c.rowOf[node]
	if r == noChild {
		return nil
	}
	off := int(r) * c.width
	return c.dense[off : off+c.width]
}

// ensureRow returns the child row of node, allocating it on first use.
func (c *childIndex) ensureRow(node int) []int32 {
	if r := c.row(node); r != nil {
		return r
	}
	start := len(c.dense)
	c.rowOf[node] = int32(start / c.width)
	c.dense = append(c.dense, make([]int32, c.width)...)
	r := c.dense[start:]
	for i := range r {
		r[i] = noChild
	}
	return r
}

func (c *childIndex) get(node, label int) (int, bool) {
	var child int32
	if c.sparse != nil {
		v, ok := c.sparse[childKey{node: int32(node), label: int32(label)}]
		if !ok {
			return 0, false
		}
		child = v
	} else {
		r := c.row(node)
		if r == nil {
			return 0, false
		}
		child = r[label]
	}
	if child == noChild {
		return 0, false
	}
	return int(child), true
}

func (c *childIndex) set(node, label, child int) {
	if c.sparse != nil {
		c.sparse[childKey{node: int32(node), label: int32(label)}] = int32(child)
		return
	}
	c.ensureRow(node)[label] = int32(child)
}

// rows reports how many non-root nodes own a dense row.
func (c *childIndex) rows() int {
	if c.width == 0 {
		return 0
	}
	return len(c.dense) / c.width
}
