package linearhash

import (
	"bytes"

	"github.com/daemonkv/collections/collerrors"
	"github.com/daemonkv/collections/objstore"
)

// LinearHash is the persistent linear hash map of spec §4.5: a Root object
// whose refs are the current top-level bucket handles, addressed by
// BucketIndex, with each bucket possibly chaining into overflow buckets.
// Unlike btree's order, bucket Capacity is fixed by the spec rather than a
// runtime parameter, so it isn't carried on this struct.
//
// A LinearHash value is scoped to one Txn, the same way BTree is — build a
// fresh one per transaction attempt with FromRoot.
type LinearHash struct {
	txn           objstore.Txn
	rootHandle    objstore.Handle
	root          Root
	bucketHandles []objstore.Handle
}

func bytesEqual(a, b []byte) bool { return bytes.Equal(a, b) }

// CreateEmpty allocates a brand new, empty table in txn: a root object plus
// the two top-level buckets spec §3 mandates as the starting geometry.
func CreateEmpty(txn objstore.Txn) (*LinearHash, error) {
	root, err := NewRoot()
	if err != nil {
		return nil, err
	}
	bucketHandles := make([]objstore.Handle, root.BucketCount)
	for i := range bucketHandles {
		h, err := createChainEndBucket(txn)
		if err != nil {
			return nil, err
		}
		bucketHandles[i] = h
	}
	rootHandle, err := txn.Create(encodeRootPayload(root), bucketHandles)
	if err != nil {
		return nil, collerrors.WrapStoreError("create root", err)
	}
	return &LinearHash{
		txn: txn, rootHandle: rootHandle, root: root,
		bucketHandles: bucketHandles,
	}, nil
}

// FromRoot wraps an existing persisted root handle.
func FromRoot(txn objstore.Txn, rootHandle objstore.Handle) (*LinearHash, error) {
	payload, refs, err := txn.Read(rootHandle)
	if err != nil {
		return nil, collerrors.WrapStoreError("read root", err)
	}
	root, err := decodeRootPayload(payload)
	if err != nil {
		return nil, err
	}
	return &LinearHash{
		txn: txn, rootHandle: rootHandle, root: root,
		bucketHandles: append([]objstore.Handle(nil), refs...),
	}, nil
}

// RootHandle returns the handle of the table's root object.
func (lh *LinearHash) RootHandle() objstore.Handle { return lh.rootHandle }

// Size returns the number of entries in the table.
func (lh *LinearHash) Size() int { return lh.root.Size }

func createChainEndBucket(txn objstore.Txn) (objstore.Handle, error) {
	var empty [Capacity][]byte
	handle, err := txn.Create(encodeBucketPayload(empty), nil)
	if err != nil {
		return nil, collerrors.WrapStoreError("create bucket", err)
	}
	if err := writeBucket(txn, handle, Bucket{Next: handle}); err != nil {
		return nil, err
	}
	return handle, nil
}

func readBucket(txn objstore.Txn, handle objstore.Handle) (Bucket, error) {
	payload, refs, err := txn.Read(handle)
	if err != nil {
		return Bucket{}, collerrors.WrapStoreError("read bucket", err)
	}
	keys, err := decodeBucketPayload(payload)
	if err != nil {
		return Bucket{}, err
	}
	if len(refs) == 0 {
		return Bucket{}, collerrors.NewDecodeError("bucket refs", nil)
	}
	return Bucket{Keys: keys, Values: append([]objstore.Handle(nil), refs[1:]...), Next: refs[0]}, nil
}

func writeBucket(txn objstore.Txn, handle objstore.Handle, b Bucket) error {
	refs := make([]objstore.Handle, 0, len(b.Values)+1)
	refs = append(refs, b.Next)
	refs = append(refs, b.Values...)
	return collerrors.WrapStoreError("write bucket", txn.Write(handle, encodeBucketPayload(b.Keys), refs))
}

// readChain accumulates every occupied entry across a bucket's whole
// overflow chain, in slot order within each link.
func readChain(txn objstore.Txn, head objstore.Handle) ([]Entry, error) {
	var all []Entry
	handle := head
	for {
		b, err := readBucket(txn, handle)
		if err != nil {
			return nil, err
		}
		all = append(all, b.occupiedEntries(handle)...)
		if b.IsChainEnd(handle) {
			return all, nil
		}
		handle = b.Next
	}
}

func (lh *LinearHash) writeRoot() error {
	return collerrors.WrapStoreError("write root", lh.txn.Write(lh.rootHandle, encodeRootPayload(lh.root), lh.bucketHandles))
}

func (lh *LinearHash) headHandle(key []byte) objstore.Handle {
	hash := lh.root.Hash(key)
	return lh.bucketHandles[lh.root.BucketIndex(hash)]
}

// Find looks up key.
func (lh *LinearHash) Find(key []byte) (objstore.Handle, bool, error) {
	handle := lh.headHandle(key)
	for {
		b, err := readBucket(lh.txn, handle)
		if err != nil {
			return nil, false, err
		}
		if i := b.indexOf(key, handle, bytesEqual); i >= 0 {
			return b.Values[i], true, nil
		}
		if b.IsChainEnd(handle) {
			return nil, false, nil
		}
		handle = b.Next
	}
}

// Put upserts (key, value), splitting a bucket if the resulting load factor
// crosses the utilization threshold (spec §4.5). Grounded on the original's
// bucket.put/putInSlot/putInNext trio.
func (lh *LinearHash) Put(key []byte, value objstore.Handle) error {
	added, chainDelta, err := lh.putInChain(lh.headHandle(key), key, value)
	if err != nil {
		return err
	}
	if !added && chainDelta == 0 {
		return nil
	}
	if added {
		lh.root.Size++
	}
	lh.root.BucketCount += chainDelta
	if lh.root.NeedsSplit() {
		return lh.split()
	}
	return lh.writeRoot()
}

// putInChain scans the bucket at handle for key: an exact match is
// overwritten in place; otherwise the first empty slot in this bucket
// takes it (putInSlot), or, failing that, the search continues into the
// chain's next link (putInNext).
func (lh *LinearHash) putInChain(handle objstore.Handle, key []byte, value objstore.Handle) (added bool, chainDelta int, err error) {
	b, err := readBucket(lh.txn, handle)
	if err != nil {
		return false, 0, err
	}
	if i := b.indexOf(key, handle, bytesEqual); i >= 0 {
		nb := b.withSlot(i, key, value)
		if err := writeBucket(lh.txn, handle, nb); err != nil {
			return false, 0, err
		}
		return false, 0, nil
	}
	if slot := b.firstEmptySlot(handle); slot >= 0 {
		return lh.putInSlot(handle, b, slot, key, value)
	}
	return lh.putInNext(handle, b, key, value)
}

// putInSlot places (key, value) into b's empty slot, then removes any
// stale copy of key further down the chain so a bucket never holds the
// same key twice across its chain (spec §8).
func (lh *LinearHash) putInSlot(handle objstore.Handle, b Bucket, slot int, key []byte, value objstore.Handle) (added bool, chainDelta int, err error) {
	nb := b.withSlot(slot, key, value)
	if nb.IsChainEnd(handle) {
		if err := writeBucket(lh.txn, handle, nb); err != nil {
			return false, 0, err
		}
		return true, 0, nil
	}
	successor, removed, delta, err := lh.removeFromChain(nb.Next, key)
	if err != nil {
		return false, 0, err
	}
	if successor == nil {
		// The rest of the chain vanished entirely; this bucket becomes
		// the new chain end.
		nb.Next = handle
	} else {
		nb.Next = successor
	}
	if err := writeBucket(lh.txn, handle, nb); err != nil {
		return false, 0, err
	}
	return !removed, delta, nil
}

// putInNext delegates to the next link in the chain, allocating a fresh
// chain-extension bucket (and reporting chainDelta+1) if this is the last
// link.
func (lh *LinearHash) putInNext(handle objstore.Handle, b Bucket, key []byte, value objstore.Handle) (added bool, chainDelta int, err error) {
	if !b.IsChainEnd(handle) {
		return lh.putInChain(b.Next, key, value)
	}
	newHandle, err := createChainEndBucket(lh.txn)
	if err != nil {
		return false, 0, err
	}
	added, chainDelta, err = lh.putInChain(newHandle, key, value)
	if err != nil {
		return false, 0, err
	}
	nb := Bucket{Keys: b.Keys, Values: b.Values, Next: newHandle}
	if err := writeBucket(lh.txn, handle, nb); err != nil {
		return false, 0, err
	}
	return added, chainDelta + 1, nil
}

// Remove deletes key, if present.
func (lh *LinearHash) Remove(key []byte) error {
	headHandle := lh.headHandle(key)
	next, removed, chainDelta, err := lh.removeFromChain(headHandle, key)
	if err != nil {
		return err
	}
	if !removed && chainDelta == 0 {
		return nil
	}
	if next == nil {
		// The head bucket itself emptied out and had no successor to
		// hand off to. It has no predecessor of its own to redirect —
		// bucketHandles still points straight at it — so it must be
		// kept in place, written out empty.
		if err := writeBucket(lh.txn, headHandle, Bucket{Next: headHandle}); err != nil {
			return err
		}
	} else if !next.Same(headHandle) {
		idx := lh.root.BucketIndex(lh.root.Hash(key))
		lh.bucketHandles[idx] = next
	}
	if removed {
		lh.root.Size--
	}
	lh.root.BucketCount += chainDelta
	return lh.writeRoot()
}

// removeFromChain removes key from the chain link at handle, or from its
// successors if not found there. A nil next means the link at handle
// emptied, was the chain end, and was not written. A caller that holds
// the link before it (the i < 0 branch below, and putInSlot) then makes
// itself the new chain end; Remove, which calls it on a top-level head
// that has no link before it, keeps that head and writes it out empty.
// A non-nil next is always the handle that now occupies this link's
// place, and handle itself is returned whenever nothing about this
// link's own identity changed. Grounded on the original's
// bucket.remove/bucket.next.
func (lh *LinearHash) removeFromChain(handle objstore.Handle, key []byte) (next objstore.Handle, removed bool, chainDelta int, err error) {
	b, err := readBucket(lh.txn, handle)
	if err != nil {
		return nil, false, 0, err
	}
	i := b.indexOf(key, handle, bytesEqual)
	if i < 0 {
		if b.IsChainEnd(handle) {
			return handle, false, 0, nil
		}
		successor, removed, delta, err := lh.removeFromChain(b.Next, key)
		if err != nil {
			return nil, false, 0, err
		}
		newNext := successor
		if successor == nil {
			// The successor vanished entirely; this bucket becomes the
			// new chain end.
			newNext = handle
		}
		if !newNext.Same(b.Next) {
			nb := Bucket{Keys: b.Keys, Values: b.Values, Next: newNext}
			if err := writeBucket(lh.txn, handle, nb); err != nil {
				return nil, false, 0, err
			}
		}
		return handle, removed, delta, nil
	}

	nb := b.withoutSlot(i, handle)
	if len(nb.Values) > 0 {
		if err := writeBucket(lh.txn, handle, nb); err != nil {
			return nil, false, 0, err
		}
		return handle, true, 0, nil
	}
	// The bucket emptied entirely. A chain end vanishes unwritten — the
	// caller holding the pointer to it retargets or keeps it, whichever
	// applies at that level — while a bucket with a real successor is
	// likewise dropped in favor of that successor.
	if nb.IsChainEnd(handle) {
		return nil, true, -1, nil
	}
	return nb.Next, true, -1, nil
}

// ForEach visits every (key, value) pair. No ordering is guaranteed (spec
// §4.5): entries surface bucket by bucket, chain by chain.
func (lh *LinearHash) ForEach(visit func(key []byte, value objstore.Handle) error) error {
	for _, head := range lh.bucketHandles {
		entries, err := readChain(lh.txn, head)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := visit(e.Key, e.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// split performs one incremental split step: the bucket at the table's
// current SplitIndex is walked link by link, each occupied slot rehashed
// under the post-split masks and either left in place or moved into a
// brand new bucket appended to the end of the top-level bucket list.
// Grounded on
// original_source/Go/.../linearhash.go's LHash.split, adapted onto this
// package's immutable Bucket copies instead of in-place pointer mutation.
func (lh *LinearHash) split() error {
	oldRoot := lh.root
	sOld := oldRoot.SplitIndex
	headHandle := lh.bucketHandles[sOld]

	newHandle, err := createChainEndBucket(lh.txn)
	if err != nil {
		return err
	}
	lh.bucketHandles = append(lh.bucketHandles, newHandle)
	lh.root = oldRoot.AfterSplit()

	havePrev := false
	var prevHandle objstore.Handle
	handle := headHandle
	for {
		b, err := readBucket(lh.txn, handle)
		if err != nil {
			return err
		}
		nextHandle := b.Next
		isEnd := b.IsChainEnd(handle)

		cur := b
		for i := 0; i < Capacity; i++ {
			if cur.slotEmpty(i, handle) {
				continue
			}
			key := cur.Keys[i]
			if lh.root.BucketIndex(lh.root.Hash(key)) == sOld {
				continue
			}
			value := cur.Values[i]
			_, delta, err := lh.putInChain(newHandle, key, value)
			if err != nil {
				return err
			}
			lh.root.BucketCount += delta
			cur = cur.withoutSlot(i, handle)
		}

		switch {
		case len(cur.Values) > 0:
			if err := writeBucket(lh.txn, handle, cur); err != nil {
				return err
			}
			havePrev, prevHandle = true, handle
		case isEnd && !havePrev:
			// sole bucket in the chain: keep it, written out empty.
			if err := writeBucket(lh.txn, handle, cur); err != nil {
				return err
			}
		case isEnd && havePrev:
			// tail of the chain: detach it via the previous link.
			if err := lh.redirectNext(prevHandle, prevHandle); err != nil {
				return err
			}
			lh.root.BucketCount--
		case !isEnd && !havePrev:
			// head of the chain: redirect the top-level ref past it.
			lh.bucketHandles[sOld] = nextHandle
			lh.root.BucketCount--
		default:
			// a middle link: splice it out of the chain.
			if err := lh.redirectNext(prevHandle, nextHandle); err != nil {
				return err
			}
			lh.root.BucketCount--
		}

		if isEnd {
			break
		}
		handle = nextHandle
	}
	return lh.writeRoot()
}

// redirectNext rewrites the chain-next ref of the bucket at handle to
// point at newNext, leaving its keys and values untouched.
func (lh *LinearHash) redirectNext(handle, newNext objstore.Handle) error {
	b, err := readBucket(lh.txn, handle)
	if err != nil {
		return err
	}
	b.Next = newNext
	return writeBucket(lh.txn, handle, b)
}
