// Package linearhash implements the linear hash map of spec §4.5: a
// persisted Root describing the current bucket-addressing geometry, plus a
// chain of Buckets reached through it. It is grounded on
// original_source/Go/.../linearhash/linearhash.go's LHash/bucket types —
// the split algorithm, mask pair and chain layout below follow that file
// closely — adapted onto this repository's objstore.Store contract instead
// of the original's storage layer.
package linearhash

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/dchest/siphash"
)

// Root is the persisted state needed to address any bucket without reading
// anything else first (spec §4.5): how many buckets currently exist, which
// one is next to split, and the two masks that let a key's hash be turned
// directly into a bucket index.
type Root struct {
	Size        int      // number of live entries
	BucketCount int      // total buckets, including chain extensions
	SplitIndex  int      // index of the next bucket due to split
	MaskLow     uint64   // mask for the pre-split generation (2^k - 1)
	MaskHigh    uint64   // mask for the post-split generation (2^(k+1) - 1)
	HashKey     [16]byte // siphash 128-bit key, persisted verbatim
}

// initialBucketCount is the number of top-level buckets a brand new table
// starts with: two, matching the original's start state (BucketCount=2,
// MaskLow=1, MaskHigh=3), so the first split has a second generation to
// promote into rather than rolling over on its very first call.
const initialBucketCount = 2

// NewRoot returns the state for a brand new, empty table. The hash key is
// drawn from crypto/rand rather than the original's math/rand: a
// predictable key would let an adversary who controls key shapes force
// every key into one bucket chain, degrading every operation to linear
// scan (a hash-flooding attack), so a table's key must not be guessable
// from outside the process.
func NewRoot() (Root, error) {
	var key [16]byte
	if _, err := rand.Read(key[:]); err != nil {
		return Root{}, err
	}
	return Root{
		Size:        0,
		BucketCount: initialBucketCount,
		SplitIndex:  0,
		MaskLow:     1,
		MaskHigh:    3,
		HashKey:     key,
	}, nil
}

// Hash returns the siphash-2-4 digest of key under this table's key, split
// into the two 64-bit halves siphash.Hash takes — the same unpacking the
// original does of its 16-byte Hashkey field.
func (r Root) Hash(key []byte) uint64 {
	k0 := binary.LittleEndian.Uint64(r.HashKey[0:8])
	k1 := binary.LittleEndian.Uint64(r.HashKey[8:16])
	return siphash.Hash(k0, k1, key)
}

// BucketIndex maps a key's hash to the bucket that currently holds it: the
// low-mask index, promoted to the high-mask index if that bucket has
// already split (spec §4.5's two-mask scheme, used so a split only ever
// touches one bucket's contents instead of rehashing the whole table).
func (r Root) BucketIndex(hash uint64) int {
	low := int(hash & r.MaskLow)
	if low < r.SplitIndex {
		return int(hash & r.MaskHigh)
	}
	return low
}

// NeedsSplit reports whether the table's load factor has crossed the
// utilization threshold spec §4.5 sets for triggering an incremental split
// (0.75, matching the original's UtilizationFactor), against the fixed
// per-bucket Capacity spec §3 mandates rather than a caller-supplied one.
func (r Root) NeedsSplit() bool {
	if r.BucketCount == 0 {
		return false
	}
	capacity := r.BucketCount * Capacity
	return float64(r.Size) > 0.75*float64(capacity)
}

// AfterSplit returns the root state once the bucket at SplitIndex has been
// split into itself and a brand new bucket appended after the last
// top-level bucket. When SplitIndex passes MaskLow (every bucket of the
// low-mask generation has been split), the whole table advances one
// generation: MaskLow becomes the old MaskHigh, MaskHigh gains one more
// bit, and SplitIndex returns to 0.
func (r Root) AfterSplit() Root {
	next := r
	next.BucketCount++
	next.SplitIndex++
	if uint64(next.SplitIndex) > next.MaskLow {
		next.MaskLow = next.MaskHigh
		next.MaskHigh = next.MaskHigh<<1 | 1
		next.SplitIndex = 0
	}
	return next
}
