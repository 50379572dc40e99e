package btree

import "github.com/daemonkv/collections/seq"

// memNode is the in-memory Node backing used by MemBTree, a harness for
// exercising the algorithm in core.go without an object store. It keeps its
// three Sequences directly; Update simply swaps them in, and CreateSibling
// allocates a bare new node. Grounded on the Java reference's
// MemBTree.NodeImpl, and on the teacher's new_node.go (an owned-array node
// with no persistence concern).
type memNode[K any, V any] struct {
	keys     seq.Sequence[K]
	values   seq.Sequence[V]
	children seq.Sequence[*memNode[K, V]]
}

// newEmptyMemNode returns a fresh, empty leaf.
func newEmptyMemNode[K any, V any]() *memNode[K, V] {
	return &memNode[K, V]{
		keys:     seq.Empty[K](),
		values:   seq.Empty[V](),
		children: seq.Empty[*memNode[K, V]](),
	}
}

func (n *memNode[K, V]) Keys() seq.Sequence[K]                     { return n.keys }
func (n *memNode[K, V]) Values() seq.Sequence[V]                   { return n.values }
func (n *memNode[K, V]) Children() seq.Sequence[*memNode[K, V]]    { return n.children }
func (n *memNode[K, V]) IsLeaf() bool                              { return n.children.Size() == 0 }

func (n *memNode[K, V]) Update(newKeys seq.Sequence[K], newValues seq.Sequence[V], newChildren seq.Sequence[*memNode[K, V]]) error {
	n.keys = newKeys
	n.values = newValues
	n.children = newChildren
	return nil
}

func (n *memNode[K, V]) CreateSibling(keys seq.Sequence[K], values seq.Sequence[V], children seq.Sequence[*memNode[K, V]]) (*memNode[K, V], error) {
	return &memNode[K, V]{keys: keys, values: values, children: children}, nil
}
