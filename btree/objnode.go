package btree

import (
	"github.com/daemonkv/collections/collerrors"
	"github.com/daemonkv/collections/objstore"
	"github.com/daemonkv/collections/seq"
)

// objNode is the persistent Node backing: keys live in the object payload
// (encoding.go), while values and child pointers live in the object's refs
// (spec §6.1, §6.2); whether a node is a leaf is derived from its ref
// count. It is grounded on the Java
// reference's BTree.NodeImpl (toNode/update/createSibling) and on the
// teacher's node_codec.go split between page bytes and child pointers.
//
// Reads happen lazily: a child is represented by an unread objNode wrapping
// only its handle, and the store Read that resolves it into keys/values/
// children only happens the first time one of those is asked for. Since
// Node.Children() cannot itself return an error, a failed lazy Read panics
// with *loadFault; every exported BTree operation recovers that panic at
// its boundary and turns it back into a returned error (see recoverLoad,
// used the same disciplined way spec §7 requires objstore.ErrRestart to
// never escape past the transaction driver).
type objNode struct {
	txn    objstore.Txn
	handle objstore.Handle

	loaded   bool
	leaf     bool
	keys     seq.Sequence[[]byte]
	values   seq.Sequence[objstore.Handle]
	children seq.Sequence[*objNode]
}

// loadFault is the panic value a failed lazy Read carries.
type loadFault struct{ err error }

// recoverLoad, deferred by every exported BTree method, converts a pending
// *loadFault panic into *errOut and lets any other panic continue
// unwinding.
func recoverLoad(errOut *error) {
	if r := recover(); r != nil {
		if lf, ok := r.(*loadFault); ok {
			*errOut = lf.err
			return
		}
		panic(r)
	}
}

func newObjNode(txn objstore.Txn, handle objstore.Handle) *objNode {
	return &objNode{txn: txn, handle: handle}
}

func newLoadedObjNode(txn objstore.Txn, handle objstore.Handle, keys seq.Sequence[[]byte], values seq.Sequence[objstore.Handle], children seq.Sequence[*objNode]) *objNode {
	return &objNode{
		txn: txn, handle: handle, loaded: true,
		leaf: children.Size() == 0, keys: keys, values: values, children: children,
	}
}

func (n *objNode) ensureLoaded() {
	if n.loaded {
		return
	}
	payload, refs, err := n.txn.Read(n.handle)
	if err != nil {
		panic(&loadFault{collerrors.WrapStoreError("read node", err)})
	}
	keys, err := decodeNodePayload(payload)
	if err != nil {
		panic(&loadFault{err})
	}
	nk := len(keys)
	isLeaf := len(refs) == nk
	values := append([]objstore.Handle(nil), refs[:nk]...)

	var children seq.Sequence[*objNode]
	if isLeaf {
		children = seq.Empty[*objNode]()
	} else {
		childHandles := refs[nk:]
		childNodes := make([]*objNode, len(childHandles))
		for i, h := range childHandles {
			childNodes[i] = newObjNode(n.txn, h)
		}
		children = seq.WrapSlice(childNodes)
	}

	n.leaf = isLeaf
	n.keys = seq.WrapSlice(keys)
	n.values = seq.WrapSlice(values)
	n.children = children
	n.loaded = true
}

func (n *objNode) Keys() seq.Sequence[[]byte] {
	n.ensureLoaded()
	return n.keys
}

func (n *objNode) Values() seq.Sequence[objstore.Handle] {
	n.ensureLoaded()
	return n.values
}

func (n *objNode) Children() seq.Sequence[*objNode] {
	n.ensureLoaded()
	return n.children
}

func (n *objNode) IsLeaf() bool {
	n.ensureLoaded()
	return n.leaf
}

func refsFor(values seq.Sequence[objstore.Handle], children seq.Sequence[*objNode]) []objstore.Handle {
	refs := make([]objstore.Handle, 0, values.Size()+children.Size())
	refs = append(refs, seq.ToSlice(values)...)
	for i := 0; i < children.Size(); i++ {
		refs = append(refs, children.Get(i).handle)
	}
	return refs
}

func (n *objNode) Update(newKeys seq.Sequence[[]byte], newValues seq.Sequence[objstore.Handle], newChildren seq.Sequence[*objNode]) error {
	isLeaf := newChildren.Size() == 0
	payload := encodeNodePayload(seq.ToSlice(newKeys))
	refs := refsFor(newValues, newChildren)
	if err := n.txn.Write(n.handle, payload, refs); err != nil {
		return collerrors.WrapStoreError("write node", err)
	}
	n.leaf = isLeaf
	n.keys = newKeys
	n.values = newValues
	n.children = newChildren
	n.loaded = true
	return nil
}

func (n *objNode) CreateSibling(keys seq.Sequence[[]byte], values seq.Sequence[objstore.Handle], children seq.Sequence[*objNode]) (*objNode, error) {
	payload := encodeNodePayload(seq.ToSlice(keys))
	refs := refsFor(values, children)
	handle, err := n.txn.Create(payload, refs)
	if err != nil {
		return nil, collerrors.WrapStoreError("create node", err)
	}
	return newLoadedObjNode(n.txn, handle, keys, values, children), nil
}

// Handle returns the store handle this node is persisted at.
func (n *objNode) Handle() objstore.Handle { return n.handle }
