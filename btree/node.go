// Package btree implements an order-parameterised B-tree (spec §4.2–§4.4)
// over a generic node contract that can be backed either by plain in-memory
// arrays (MemBTree, a test harness) or by objects in an external
// transactional store (BTree). The algorithm itself — insertion with split,
// deletion with merge/rotate, in-order traversal, cursor positioning — lives
// once in core.go and cursor.go and is driven identically by both backings.
package btree

import "github.com/daemonkv/collections/seq"

// Node is the capability set the core algorithm requires of a tree node:
// keys, values and children as Sequences, atomic replacement of all three,
// and the ability to allocate a fresh sibling of the same flavour. Self is
// the concrete node type implementing this interface (a "curiously
// recurring" generic parameter — see memnode.go and objnode.go).
//
// IsLeaf is derived: a node is a leaf iff it has no children.
type Node[K any, V any, Self Node[K, V, Self]] interface {
	Keys() seq.Sequence[K]
	Values() seq.Sequence[V]
	Children() seq.Sequence[Self]
	IsLeaf() bool

	// Update atomically replaces this node's three sequences, in place.
	// For a persistent backing this also re-encodes and writes the node
	// through its store handle. Preconditions: len(newValues) ==
	// len(newKeys); len(newChildren) is 0 or len(newKeys)+1.
	Update(newKeys seq.Sequence[K], newValues seq.Sequence[V], newChildren seq.Sequence[Self]) error

	// CreateSibling allocates a brand new peer node holding the given
	// content. For a persistent backing this creates a new store object.
	CreateSibling(keys seq.Sequence[K], values seq.Sequence[V], children seq.Sequence[Self]) (Self, error)
}

// Comparator orders keys the way spec §3 describes: a total order supplied
// at construction. It must return <0, 0, >0 like bytes.Compare.
type Comparator[K any] func(a, b K) int

// lub is the least-upper-bound probe result within one node (spec §4.3).
type lub struct {
	i     int
	exact bool
}

// findLub does a linear scan (bounded by the node order, spec §4.3) and
// returns the smallest index i with keys[i] >= key, or len(keys) if none,
// plus whether that key is an exact match.
func findLub[K any](keys seq.Sequence[K], key K, cmp Comparator[K]) lub {
	n := keys.Size()
	for i := 0; i < n; i++ {
		c := cmp(key, keys.Get(i))
		if c <= 0 {
			return lub{i: i, exact: c == 0}
		}
	}
	return lub{i: n, exact: false}
}
