package btree

// Cursor is the stack-of-frames traversal cursor of spec §4.4: each frame
// pairs a node on the path from the root with the index of the next key at
// that node still to be emitted. The top frame's index names the cursor's
// current entry; ancestor frames remember where to resume once the subtree
// below them is exhausted. Grounded on the Java reference's Cursor.java and
// AbstractBTree.cursor()/cursor(k).
type Cursor[K any, V any, N Node[K, V, N]] struct {
	tree   *Tree[K, V, N]
	frames []frame[K, V, N]
}

type frame[K any, V any, N Node[K, V, N]] struct {
	node N
	i    int
}

// newCursor positions a cursor at the smallest key >= from (the tree's LUB
// probe, spec §4.3, applied to descend the whole path at once rather than
// one node at a time).
func newCursor[K any, V any, N Node[K, V, N]](tree *Tree[K, V, N], from K) *Cursor[K, V, N] {
	c := &Cursor[K, V, N]{tree: tree}
	node := tree.root
	for {
		l := findLub(node.Keys(), from, tree.cmp)
		c.frames = append(c.frames, frame[K, V, N]{node: node, i: l.i})
		if node.IsLeaf() || l.exact {
			break
		}
		node = node.Children().Get(l.i)
	}
	c.normalize()
	return c
}

// newCursorFromStart positions a cursor at the smallest key in the tree.
func newCursorFromStart[K any, V any, N Node[K, V, N]](tree *Tree[K, V, N]) *Cursor[K, V, N] {
	c := &Cursor[K, V, N]{tree: tree}
	node := tree.root
	for {
		c.frames = append(c.frames, frame[K, V, N]{node: node, i: 0})
		if node.IsLeaf() {
			break
		}
		node = node.Children().Get(0)
	}
	c.normalize()
	return c
}

// normalize drops a trailing exhausted leaf frame (one whose index reached
// its node's key count) and bubbles up to the nearest ancestor with a
// pending key, or empties the stack entirely if there is none.
func (c *Cursor[K, V, N]) normalize() {
	if len(c.frames) == 0 {
		return
	}
	top := c.frames[len(c.frames)-1]
	if top.i < top.node.Keys().Size() {
		return
	}
	c.frames = c.frames[:len(c.frames)-1]
	c.bubbleUp()
}

// bubbleUp pops ancestor frames whose pending key index has already run off
// the end of their key sequence, stopping at the first one that still has a
// key waiting, or leaving the stack empty if none do.
func (c *Cursor[K, V, N]) bubbleUp() {
	for len(c.frames) > 0 {
		parent := c.frames[len(c.frames)-1]
		if parent.i < parent.node.Keys().Size() {
			return
		}
		c.frames = c.frames[:len(c.frames)-1]
	}
}

// InTree reports whether the cursor is positioned at a real entry.
func (c *Cursor[K, V, N]) InTree() bool {
	return len(c.frames) > 0
}

// Key returns the current entry's key. Panics if !InTree().
func (c *Cursor[K, V, N]) Key() K {
	top := c.frames[len(c.frames)-1]
	return top.node.Keys().Get(top.i)
}

// Value returns the current entry's value. Panics if !InTree().
func (c *Cursor[K, V, N]) Value() V {
	top := c.frames[len(c.frames)-1]
	return top.node.Values().Get(top.i)
}

// MoveRight advances the cursor to the next entry in ascending key order,
// reporting whether one existed. Once it returns false the cursor stays
// exhausted (!InTree()) for the rest of its life.
func (c *Cursor[K, V, N]) MoveRight() bool {
	if len(c.frames) == 0 {
		return false
	}
	top := &c.frames[len(c.frames)-1]

	if top.node.IsLeaf() {
		if top.i+1 < top.node.Keys().Size() {
			top.i++
			return true
		}
		c.frames = c.frames[:len(c.frames)-1]
		c.bubbleUp()
		return c.InTree()
	}

	// Internal frame: its key at top.i has just been consumed. Prime it
	// for the eventual return to this level, then descend the leftmost
	// path of the next child.
	nextChild := top.node.Children().Get(top.i + 1)
	top.i++
	node := nextChild
	for {
		c.frames = append(c.frames, frame[K, V, N]{node: node, i: 0})
		if node.IsLeaf() {
			break
		}
		node = node.Children().Get(0)
	}
	c.normalize()
	return c.InTree()
}
