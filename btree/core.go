package btree

import (
	"github.com/daemonkv/collections/collerrors"
	"github.com/daemonkv/collections/seq"
)

// Tree is the order-parameterised B-tree algorithm (spec §4.3), generic
// over any node backing satisfying Node[K, V, N]. It is grounded on
// original_source/java/.../btree/AbstractBTree.java: put/putAt/split,
// remove/fixUnderflow/rotateClockwise/rotateAnticlockwise/mergeChildren/pop
// are the same algorithm, adapted to propagate errors from node I/O (the
// Java original never had that concern — updates were pure in-memory
// mutation or exception-free store writes).
type Tree[K any, V any, N Node[K, V, N]] struct {
	order int
	cmp   Comparator[K]
	root  N

	minNonLeafChildren int
	maxNonLeafChildren int
	minLeafKeys        int
	maxLeafKeys        int
}

// NewTree builds a Tree over the given root node with the given order and
// comparator. order must be >= 3 (spec §3). The order is a runtime
// parameter of this handle, not persisted anywhere (spec §9 Open Question);
// every handle sharing one root must agree on it out of band.
func NewTree[K any, V any, N Node[K, V, N]](order int, root N, cmp Comparator[K]) (*Tree[K, V, N], error) {
	if order < 3 {
		return nil, collerrors.NewInvariantError("the minimum sensible order is 3, got %d", order)
	}
	minNonLeaf := ceilHalf(order)
	return &Tree[K, V, N]{
		order:               order,
		cmp:                 cmp,
		root:                root,
		minNonLeafChildren:  minNonLeaf,
		maxNonLeafChildren:  order,
		minLeafKeys:         minNonLeaf - 1,
		maxLeafKeys:         order - 1,
	}, nil
}

func ceilHalf(n int) int {
	return (n / 2) + (n % 2)
}

// Root returns the tree's root node.
func (t *Tree[K, V, N]) Root() N { return t.root }

// Size returns the total number of keys in the tree.
func (t *Tree[K, V, N]) Size() int {
	return t.size(t.root)
}

func (t *Tree[K, V, N]) size(node N) int {
	total := node.Keys().Size()
	return node.Children().Fold(func(child N, acc int) int {
		return acc + t.size(child)
	}, total)
}

// Find returns the value stored for key, and whether it was present.
func (t *Tree[K, V, N]) Find(key K) (V, bool) {
	return t.find(t.root, key)
}

func (t *Tree[K, V, N]) find(node N, key K) (V, bool) {
	l := findLub(node.Keys(), key, t.cmp)
	if l.exact {
		return node.Values().Get(l.i), true
	}
	if !node.IsLeaf() {
		return t.find(node.Children().Get(l.i), key)
	}
	var zero V
	return zero, false
}

// split carries a promoted (key, value) and the freshly allocated left
// sibling one level up after a node overflowed.
type split[K any, V any, N Node[K, V, N]] struct {
	sibling N
	key     K
	value   V
}

// Put upserts (key, value).
func (t *Tree[K, V, N]) Put(key K, value V) error {
	s, err := t.put(t.root, true, key, value)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	newOldRoot, err := t.root.CreateSibling(t.root.Keys(), t.root.Values(), t.root.Children())
	if err != nil {
		return err
	}
	return t.root.Update(
		seq.Wrap(s.key),
		seq.Wrap(s.value),
		seq.Wrap(s.sibling, newOldRoot),
	)
}

func (t *Tree[K, V, N]) put(node N, isRoot bool, key K, value V) (*split[K, V, N], error) {
	l := findLub(node.Keys(), key, t.cmp)
	if l.exact {
		return nil, node.Update(node.Keys(), node.Values().With(l.i, value), node.Children())
	}
	if node.IsLeaf() {
		var noChild *N
		return t.putAt(node, isRoot, key, value, noChild, l.i)
	}
	s, err := t.put(node.Children().Get(l.i), false, key, value)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	child := s.sibling
	return t.putAt(node, isRoot, s.key, s.value, &child, l.i)
}

func (t *Tree[K, V, N]) putAt(node N, isRoot bool, key K, value V, child *N, i int) (*split[K, V, N], error) {
	newKeys := node.Keys().SpliceIn(i, key)
	newVals := node.Values().SpliceIn(i, value)
	var newChildren seq.Sequence[N]
	if child == nil {
		newChildren = node.Children()
	} else {
		newChildren = node.Children().SpliceIn(i, *child)
	}

	if child == nil {
		if newKeys.Size() > t.maxLeafKeys {
			return t.splitNode(node, newKeys, newVals, nil, t.minLeafKeys)
		}
		if err := t.checkSizesLeaf(isRoot, newKeys, newVals, newChildren); err != nil {
			return nil, err
		}
	} else {
		if newChildren.Size() > t.maxNonLeafChildren {
			return t.splitNode(node, newKeys, newVals, newChildren, t.minNonLeafChildren-1)
		}
		if err := t.checkSizesNonLeaf(isRoot, newKeys, newVals, newChildren); err != nil {
			return nil, err
		}
	}
	return nil, node.Update(newKeys, newVals, newChildren)
}

func (t *Tree[K, V, N]) splitNode(node N, newKeys seq.Sequence[K], newVals seq.Sequence[V], newChildren seq.Sequence[N], median int) (*split[K, V, N], error) {
	sibKeys := newKeys.Slice(0, median)
	myKeys := newKeys.Slice(median+1, newKeys.Size())
	sibVals := newVals.Slice(0, median)
	myVals := newVals.Slice(median+1, newVals.Size())

	var sibChildren, myChildren seq.Sequence[N]
	if newChildren == nil {
		sibChildren = seq.Empty[N]()
		myChildren = seq.Empty[N]()
		if err := t.checkSizesLeaf(false, sibKeys, sibVals, sibChildren); err != nil {
			return nil, err
		}
		if err := t.checkSizesLeaf(false, myKeys, myVals, myChildren); err != nil {
			return nil, err
		}
	} else {
		sibChildren = newChildren.Slice(0, median+1)
		myChildren = newChildren.Slice(median+1, newChildren.Size())
		if err := t.checkSizesNonLeaf(false, sibKeys, sibVals, sibChildren); err != nil {
			return nil, err
		}
		if err := t.checkSizesNonLeaf(false, myKeys, myVals, myChildren); err != nil {
			return nil, err
		}
	}

	sib, err := node.CreateSibling(sibKeys, sibVals, sibChildren)
	if err != nil {
		return nil, err
	}
	if err := node.Update(myKeys, myVals, myChildren); err != nil {
		return nil, err
	}
	return &split[K, V, N]{sibling: sib, key: newKeys.Get(median), value: newVals.Get(median)}, nil
}

func (t *Tree[K, V, N]) checkSizesLeaf(isRoot bool, keys seq.Sequence[K], values seq.Sequence[V], children seq.Sequence[N]) error {
	if values.Size() != keys.Size() {
		return collerrors.NewInvariantError("wrong number of values")
	}
	if !isRoot && (keys.Size() < t.minLeafKeys || keys.Size() > t.maxLeafKeys) {
		return collerrors.NewInvariantError("wrong number of keys: expected %d to %d, got %d", t.minLeafKeys, t.maxLeafKeys, keys.Size())
	}
	if children.Size() != 0 {
		return collerrors.NewInvariantError("wrong number of children for a leaf")
	}
	return nil
}

func (t *Tree[K, V, N]) checkSizesNonLeaf(isRoot bool, keys seq.Sequence[K], values seq.Sequence[V], children seq.Sequence[N]) error {
	if values.Size() != keys.Size() {
		return collerrors.NewInvariantError("wrong number of values")
	}
	if !isRoot && (children.Size() < t.minNonLeafChildren || children.Size() > t.maxNonLeafChildren) {
		return collerrors.NewInvariantError("wrong number of children: expected %d to %d, got %d", t.minNonLeafChildren, t.maxNonLeafChildren, children.Size())
	}
	if children.Size() != keys.Size()+1 {
		return collerrors.NewInvariantError("wrong number of children relative to keys")
	}
	return nil
}

// ForEach visits every (key, value) pair in ascending key order. Visitor
// errors abort the traversal and propagate.
func (t *Tree[K, V, N]) ForEach(visit func(K, V) error) error {
	return t.forEach(t.root, visit)
}

func (t *Tree[K, V, N]) forEach(node N, visit func(K, V) error) error {
	n := node.Keys().Size()
	for i := 0; i < n; i++ {
		if !node.IsLeaf() {
			if err := t.forEach(node.Children().Get(i), visit); err != nil {
				return err
			}
		}
		if err := visit(node.Keys().Get(i), node.Values().Get(i)); err != nil {
			return err
		}
	}
	if !node.IsLeaf() {
		if err := t.forEach(node.Children().Get(n), visit); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes key, if present. No-op if absent.
func (t *Tree[K, V, N]) Remove(key K) error {
	if _, err := t.remove(t.root, key, true); err != nil {
		return err
	}
	if t.root.Children().Size() == 1 {
		child := t.root.Children().First()
		return t.root.Update(child.Keys(), child.Values(), child.Children())
	}
	return nil
}

// remove returns whether the node underflowed as a result.
func (t *Tree[K, V, N]) remove(node N, key K, isRoot bool) (bool, error) {
	l := findLub(node.Keys(), key, t.cmp)
	if node.IsLeaf() {
		if !l.exact {
			return false, nil
		}
		newKeys := node.Keys().SpliceOut(l.i)
		newVals := node.Values().SpliceOut(l.i)
		if err := node.Update(newKeys, newVals, seq.Empty[N]()); err != nil {
			return false, err
		}
		return newKeys.Size() < t.minLeafKeys, nil
	}

	left := node.Children().Get(l.i)
	if l.exact {
		key2, val2, underflow, err := t.pop(left)
		if err != nil {
			return false, err
		}
		if err := node.Update(node.Keys().With(l.i, key2), node.Values().With(l.i, val2), node.Children()); err != nil {
			return false, err
		}
		if underflow {
			return t.fixUnderflow(node, l.i, isRoot)
		}
		return false, nil
	}

	underflow, err := t.remove(left, key, false)
	if err != nil {
		return false, err
	}
	if underflow {
		return t.fixUnderflow(node, l.i, isRoot)
	}
	return false, nil
}

func (t *Tree[K, V, N]) fixUnderflow(node N, i int, isRoot bool) (bool, error) {
	child := node.Children().Get(i)
	if child.IsLeaf() && child.Keys().Size() >= t.minLeafKeys {
		return false, collerrors.NewInvariantError("fixUnderflow called but there was no underflow")
	}
	if !child.IsLeaf() && child.Children().Size() >= t.minNonLeafChildren {
		return false, collerrors.NewInvariantError("fixUnderflow called but there was no underflow")
	}

	hasLeft := i > 0
	if hasLeft {
		if spare, err := t.hasSpare(node.Children().Get(i - 1)); err != nil {
			return false, err
		} else if spare {
			return false, t.rotateClockwise(node, i-1)
		}
	}
	hasRight := i+1 < node.Children().Size()
	if hasRight {
		if spare, err := t.hasSpare(node.Children().Get(i + 1)); err != nil {
			return false, err
		} else if spare {
			return false, t.rotateAnticlockwise(node, i)
		}
	}
	if hasLeft {
		return t.mergeChildren(node, i-1, isRoot)
	}
	if hasRight {
		return t.mergeChildren(node, i, isRoot)
	}
	if isRoot {
		return true, nil
	}
	return false, collerrors.NewInvariantError("underflowed node has no siblings and is not root")
}

// rotateClockwise:
//
//	child i       k/v i      child i+1
//	     \          |        /
//	      \         c       /                     b
//	      (... a b)   (d ...)   ------>   (... a)   (c d ...)
func (t *Tree[K, V, N]) rotateClockwise(node N, i int) error {
	left := node.Children().Get(i)
	right := node.Children().Get(i + 1)
	bKey := left.Keys().Last()
	bVal := left.Values().Last()
	cKey := node.Keys().Get(i)
	cVal := node.Values().Get(i)

	var newLeftChildren, newRightChildren seq.Sequence[N]
	var bChild N
	if left.IsLeaf() {
		newLeftChildren = seq.Empty[N]()
	} else {
		bChild = left.Children().Last()
		newLeftChildren = left.Children().WithoutLast()
	}
	if err := left.Update(left.Keys().WithoutLast(), left.Values().WithoutLast(), newLeftChildren); err != nil {
		return err
	}

	if right.IsLeaf() {
		newRightChildren = seq.Empty[N]()
	} else {
		newRightChildren = seq.Wrap(bChild).Concat(right.Children())
	}
	if err := right.Update(seq.Wrap(cKey).Concat(right.Keys()), seq.Wrap(cVal).Concat(right.Values()), newRightChildren); err != nil {
		return err
	}

	return node.Update(node.Keys().With(i, bKey), node.Values().With(i, bVal), node.Children())
}

// rotateAnticlockwise:
//
//	child i      k/v i        child i+1
//	      \        |          /
//	       \       b         /                       c
//	       (... a)   (c d ...)   ------>   (... a b)   (d ...)
func (t *Tree[K, V, N]) rotateAnticlockwise(node N, i int) error {
	left := node.Children().Get(i)
	right := node.Children().Get(i + 1)
	bKey := node.Keys().Get(i)
	bVal := node.Values().Get(i)
	cKey := right.Keys().First()
	cVal := right.Values().First()

	var newLeftChildren, newRightChildren seq.Sequence[N]
	if left.IsLeaf() {
		newLeftChildren = seq.Empty[N]()
	} else {
		cChild := right.Children().First()
		newLeftChildren = left.Children().Concat(seq.Wrap(cChild))
	}
	if err := left.Update(left.Keys().Concat(seq.Wrap(bKey)), left.Values().Concat(seq.Wrap(bVal)), newLeftChildren); err != nil {
		return err
	}

	if right.IsLeaf() {
		newRightChildren = seq.Empty[N]()
	} else {
		newRightChildren = right.Children().WithoutFirst()
	}
	if err := right.Update(right.Keys().WithoutFirst(), right.Values().WithoutFirst(), newRightChildren); err != nil {
		return err
	}

	return node.Update(node.Keys().With(i, cKey), node.Values().With(i, cVal), node.Children())
}

// mergeChildren merges the i'th key/value and (i+1)'st child of node into
// the i'th child; node loses one key and one child.
func (t *Tree[K, V, N]) mergeChildren(node N, i int, isRoot bool) (bool, error) {
	child := node.Children().Get(i)
	rightSibling := node.Children().Get(i + 1)
	key := node.Keys().Get(i)
	value := node.Values().Get(i)

	newChildKeys := child.Keys().Concat(seq.Wrap(key)).Concat(rightSibling.Keys())
	newChildVals := child.Values().Concat(seq.Wrap(value)).Concat(rightSibling.Values())
	var newChildChildren seq.Sequence[N]
	// child is never the tree root regardless of node's own isRoot: only
	// the whole tree's root is exempt from the minimum-size bound.
	if child.IsLeaf() {
		newChildChildren = seq.Empty[N]()
		if err := t.checkSizesLeaf(false, newChildKeys, newChildVals, newChildChildren); err != nil {
			return false, err
		}
	} else {
		newChildChildren = child.Children().Concat(rightSibling.Children())
		if err := t.checkSizesNonLeaf(false, newChildKeys, newChildVals, newChildChildren); err != nil {
			return false, err
		}
	}
	if err := child.Update(newChildKeys, newChildVals, newChildChildren); err != nil {
		return false, err
	}

	newKeys := node.Keys().SpliceOut(i)
	newVals := node.Values().SpliceOut(i)
	newChildren := node.Children().SpliceOut(i + 1)
	if newVals.Size() != newKeys.Size() {
		return false, collerrors.NewInvariantError("wrong number of values after merge")
	}
	if newChildren.Size() > t.maxNonLeafChildren {
		return false, collerrors.NewInvariantError("wrong number of children after merge: expected %d to %d, got %d", t.minNonLeafChildren, t.maxNonLeafChildren, newChildren.Size())
	}
	if newChildren.Size() != newKeys.Size()+1 {
		return false, collerrors.NewInvariantError("wrong number of children after merge")
	}
	if err := node.Update(newKeys, newVals, newChildren); err != nil {
		return false, err
	}
	return newChildren.Size() < t.minNonLeafChildren, nil
}

func (t *Tree[K, V, N]) hasSpare(n N) (bool, error) {
	if n.IsLeaf() {
		return n.Keys().Size() > t.minLeafKeys, nil
	}
	return n.Children().Size() > t.minNonLeafChildren, nil
}

// pop removes and returns the largest (key, value) in the subtree rooted at
// node, bubbling any underflow back up inside that subtree before
// returning.
func (t *Tree[K, V, N]) pop(node N) (K, V, bool, error) {
	if node.IsLeaf() {
		n := node.Keys().Size() - 1
		key := node.Keys().Get(n)
		val := node.Values().Get(n)
		if err := node.Update(node.Keys().Slice(0, n), node.Values().Slice(0, n), seq.Empty[N]()); err != nil {
			var zeroK K
			var zeroV V
			return zeroK, zeroV, false, err
		}
		return key, val, node.Keys().Size() < t.minLeafKeys, nil
	}
	i := node.Children().Size() - 1
	lastChild := node.Children().Get(i)
	key, val, underflow, err := t.pop(lastChild)
	if err != nil {
		var zeroK K
		var zeroV V
		return zeroK, zeroV, false, err
	}
	if underflow {
		nowUnderflow, err := t.fixUnderflow(node, i, false)
		return key, val, nowUnderflow, err
	}
	return key, val, false, nil
}
