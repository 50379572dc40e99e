package linearhash

import "github.com/daemonkv/collections/objstore"

// Capacity is the fixed number of key slots in a bucket (spec §3). Every
// bucket, top-level or chain extension, has exactly this many slots; a
// bucket that fills up spills into a fresh bucket linked through Next
// rather than growing.
const Capacity = 64

// Entry is one occupied (key, value) pair surfaced by a bucket scan.
type Entry struct {
	Key   []byte
	Value objstore.Handle
}

// Bucket is one link in a bucket's overflow chain: Capacity fixed key
// slots plus their value refs, grounded on the original's fixed-size
// []byte entries array and refs slice. Slot i is empty iff i is past the
// end of Values or Values[i] is this bucket's own handle (spec §3's
// self-reference tombstone); trailing empty slots are never persisted —
// Values is trimmed of trailing self-references by tidyRefTail, so a
// bucket only carries as many refs as its highest occupied slot needs.
type Bucket struct {
	Keys   [Capacity][]byte
	Values []objstore.Handle
	Next   objstore.Handle
}

// IsChainEnd reports whether this bucket is the last in its chain. Chain
// end is represented by Next referring to itself (spec §6.2's
// self-reference sentinel), rather than by a nil handle: nil isn't a valid
// objstore.Handle, and this way "does this bucket have an overflow" is
// answerable with the same Same() comparison used everywhere else a handle
// needs identity, not a separate is-nil branch.
func (b Bucket) IsChainEnd(self objstore.Handle) bool {
	return b.Next.Same(self)
}

// slotEmpty reports whether slot i holds no key, per spec §8's bucket
// invariant: empty iff refs[i+1] is the self-reference or i+1 >= |refs|.
func (b Bucket) slotEmpty(i int, self objstore.Handle) bool {
	return i >= len(b.Values) || b.Values[i].Same(self)
}

// indexOf returns the slot index holding key, or -1.
func (b Bucket) indexOf(key []byte, self objstore.Handle, eq func(a, b []byte) bool) int {
	for i := 0; i < Capacity; i++ {
		if b.slotEmpty(i, self) {
			continue
		}
		if eq(b.Keys[i], key) {
			return i
		}
	}
	return -1
}

// firstEmptySlot returns the lowest empty slot index, or -1 if the bucket
// is full.
func (b Bucket) firstEmptySlot(self objstore.Handle) int {
	for i := 0; i < Capacity; i++ {
		if b.slotEmpty(i, self) {
			return i
		}
	}
	return -1
}

// occupiedEntries returns every occupied (key, value) pair in slot order,
// for ForEach and the split walk.
func (b Bucket) occupiedEntries(self objstore.Handle) []Entry {
	var out []Entry
	for i := 0; i < Capacity; i++ {
		if b.slotEmpty(i, self) {
			continue
		}
		out = append(out, Entry{Key: b.Keys[i], Value: b.Values[i]})
	}
	return out
}

// withSlot returns a copy of b with slot i holding (key, value).
func (b Bucket) withSlot(i int, key []byte, value objstore.Handle) Bucket {
	nb := b
	nb.Keys[i] = key
	values := make([]objstore.Handle, max(len(b.Values), i+1))
	copy(values, b.Values)
	values[i] = value
	nb.Values = values
	return nb
}

// withoutSlot returns a copy of b with slot i tombstoned: its key cleared
// and its value ref set to self, then tidyRefTail applied.
func (b Bucket) withoutSlot(i int, self objstore.Handle) Bucket {
	nb := b
	nb.Keys[i] = nil
	values := make([]objstore.Handle, len(b.Values))
	copy(values, b.Values)
	if i < len(values) {
		values[i] = self
	}
	nb.Values = tidyRefTail(values, self)
	return nb
}

// tidyRefTail drops trailing self-referencing (tombstoned) values, so a
// bucket that has just emptied its last few slots doesn't keep carrying
// dead refs. Grounded on the original's tidyRefTail, which trims a
// bucket's refs slice the same way after every removal.
func tidyRefTail(values []objstore.Handle, self objstore.Handle) []objstore.Handle {
	n := len(values)
	for n > 0 && values[n-1] != nil && values[n-1].Same(self) {
		n--
	}
	return values[:n]
}
