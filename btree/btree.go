package btree

import (
	"github.com/daemonkv/collections/collerrors"
	"github.com/daemonkv/collections/objstore"
	"github.com/daemonkv/collections/seq"
)

// BTree is the persistent B-tree of spec §6.3: []byte keys, objstore.Handle
// values, backed by objNode over a single transaction. A BTree value is
// scoped to one Txn — build a fresh one at the top of each transaction
// attempt with FromRoot, the same way the teacher's query layer built a
// fresh AutoTransaction/AutoCommit wrapper per attempt.
type BTree struct {
	tree *Tree[[]byte, objstore.Handle, *objNode]
}

// CreateEmpty allocates a brand new, empty root node in txn and returns a
// BTree of the given order rooted at it.
func CreateEmpty(txn objstore.Txn, order int) (*BTree, error) {
	payload := encodeNodePayload(nil)
	handle, err := txn.Create(payload, nil)
	if err != nil {
		return nil, collerrors.WrapStoreError("create root", err)
	}
	root := newLoadedObjNode(txn, handle, seq.Empty[[]byte](), seq.Empty[objstore.Handle](), seq.Empty[*objNode]())
	t, err := NewTree[[]byte, objstore.Handle, *objNode](order, root, Lexicographic)
	if err != nil {
		return nil, err
	}
	return &BTree{tree: t}, nil
}

// FromRoot wraps an existing persisted root handle as a BTree of the given
// order. The root is read lazily, on first use.
func FromRoot(txn objstore.Txn, order int, root objstore.Handle) (*BTree, error) {
	t, err := NewTree[[]byte, objstore.Handle, *objNode](order, newObjNode(txn, root), Lexicographic)
	if err != nil {
		return nil, err
	}
	return &BTree{tree: t}, nil
}

// RootHandle returns the handle of the tree's current root object. It stays
// valid across mutations: the root node's identity never changes, only its
// content (spec §4.3's root-identity-preserving growth).
func (b *BTree) RootHandle() objstore.Handle {
	return b.tree.Root().Handle()
}

// Size returns the number of entries, reading whatever nodes it must visit.
func (b *BTree) Size() (n int, err error) {
	defer recoverLoad(&err)
	return b.tree.Size(), nil
}

// Find looks up key.
func (b *BTree) Find(key []byte) (value objstore.Handle, ok bool, err error) {
	defer recoverLoad(&err)
	value, ok = b.tree.Find(key)
	return value, ok, nil
}

// Put upserts (key, value).
func (b *BTree) Put(key []byte, value objstore.Handle) (err error) {
	defer recoverLoad(&err)
	return b.tree.Put(key, value)
}

// Remove deletes key, if present.
func (b *BTree) Remove(key []byte) (err error) {
	defer recoverLoad(&err)
	return b.tree.Remove(key)
}

// ForEach visits every (key, value) pair in ascending key order.
func (b *BTree) ForEach(visit func(key []byte, value objstore.Handle) error) (err error) {
	defer recoverLoad(&err)
	return b.tree.ForEach(visit)
}

// Cursor returns a cursor positioned at the smallest key >= from, or an
// exhausted cursor if from exceeds every key. A nil from starts at the
// smallest key in the tree.
func (b *BTree) Cursor(from []byte) (c *Cursor[[]byte, objstore.Handle, *objNode], err error) {
	defer recoverLoad(&err)
	return newCursor[[]byte, objstore.Handle, *objNode](b.tree, from), nil
}

// CheckInvariants walks the whole persistent tree, reading whatever nodes
// it must, verifying the same key-order/leaf-depth/child-count bounds
// MemBTree.CheckInvariants checks. Exported for property tests that build a
// BTree over a real objstore.Store rather than the in-memory harness.
func (b *BTree) CheckInvariants() (err error) {
	defer recoverLoad(&err)
	_, err = b.tree.checkInvariants(b.tree.root, true, nil, nil)
	return err
}

// MemBTree is the in-memory harness backing tests and CheckInvariants
// exploration: the same algorithm as BTree, over memNode instead of
// objNode. It generalises the Java reference's single-parameter
// MemBTree<K> (which only ever stored K itself) to an independent value
// type, since Go gives us that for free and every test benefits from being
// able to assert on a value distinct from its key.
type MemBTree[K any, V any] struct {
	tree *Tree[K, V, *memNode[K, V]]
}

// NewMemBTree builds an empty MemBTree of the given order and comparator.
func NewMemBTree[K any, V any](order int, cmp Comparator[K]) (*MemBTree[K, V], error) {
	t, err := NewTree[K, V, *memNode[K, V]](order, newEmptyMemNode[K, V](), cmp)
	if err != nil {
		return nil, err
	}
	return &MemBTree[K, V]{tree: t}, nil
}

func (m *MemBTree[K, V]) Size() int  { return m.tree.Size() }
func (m *MemBTree[K, V]) Find(key K) (V, bool) { return m.tree.Find(key) }
func (m *MemBTree[K, V]) Put(key K, value V) error { return m.tree.Put(key, value) }
func (m *MemBTree[K, V]) Remove(key K) error       { return m.tree.Remove(key) }

func (m *MemBTree[K, V]) ForEach(visit func(K, V) error) error {
	return m.tree.ForEach(visit)
}

// Cursor returns a cursor positioned at the smallest key >= from.
func (m *MemBTree[K, V]) Cursor(from K, hasFrom bool) *Cursor[K, V, *memNode[K, V]] {
	if !hasFrom {
		return newCursorFromStart[K, V, *memNode[K, V]](m.tree)
	}
	return newCursor[K, V, *memNode[K, V]](m.tree, from)
}

// CheckInvariants walks the whole tree verifying that every leaf sits at
// the same depth, every node's keys are held in strictly ascending order by
// the tree's comparator, and every node's key/value/child counts are within
// the bounds core.go's put/remove maintain. It never mutates anything;
// tests call it after a sequence of Put/Remove to catch a broken algorithm
// change immediately instead of via a wrong Find much later.
func (m *MemBTree[K, V]) CheckInvariants() error {
	depth, err := m.tree.checkInvariants(m.tree.root, true, nil, nil)
	_ = depth
	return err
}

// checkInvariants returns the depth of every leaf under node (which must be
// uniform) and an error on the first violation. lo/hi bound the node's own
// keys from its ancestors, when non-nil.
func (t *Tree[K, V, N]) checkInvariants(node N, isRoot bool, lo, hi *K) (int, error) {
	keys := node.Keys()
	n := keys.Size()
	for i := 1; i < n; i++ {
		if t.cmp(keys.Get(i-1), keys.Get(i)) >= 0 {
			return 0, collerrors.NewInvariantError("keys out of order at index %d", i)
		}
	}
	if lo != nil && n > 0 && t.cmp(*lo, keys.Get(0)) >= 0 {
		return 0, collerrors.NewInvariantError("first key violates lower bound from ancestor")
	}
	if hi != nil && n > 0 && t.cmp(keys.Get(n-1), *hi) >= 0 {
		return 0, collerrors.NewInvariantError("last key violates upper bound from ancestor")
	}

	if node.IsLeaf() {
		if err := t.checkSizesLeaf(isRoot, keys, node.Values(), node.Children()); err != nil {
			return 0, err
		}
		return 0, nil
	}
	if err := t.checkSizesNonLeaf(isRoot, keys, node.Values(), node.Children()); err != nil {
		return 0, err
	}

	children := node.Children()
	depth := -1
	for i := 0; i < children.Size(); i++ {
		var childLo, childHi *K
		if i > 0 {
			k := keys.Get(i - 1)
			childLo = &k
		} else {
			childLo = lo
		}
		if i < n {
			k := keys.Get(i)
			childHi = &k
		} else {
			childHi = hi
		}
		d, err := t.checkInvariants(children.Get(i), false, childLo, childHi)
		if err != nil {
			return 0, err
		}
		if depth == -1 {
			depth = d
		} else if depth != d {
			return 0, collerrors.NewInvariantError("leaves at unequal depth")
		}
	}
	return depth + 1, nil
}
