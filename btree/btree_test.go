package btree

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"sort"
	"strconv"
	"testing"
)

func intCmp(a, b int) int { return a - b }

func mustMemBTree(t *testing.T, order int) *MemBTree[int, string] {
	t.Helper()
	m, err := NewMemBTree[int, string](order, intCmp)
	if err != nil {
		t.Fatalf("NewMemBTree: %v", err)
	}
	return m
}

func TestMemBTreeBasicPutFind(t *testing.T) {
	m := mustMemBTree(t, 4)
	for _, k := range []int{5, 3, 8, 1, 4, 7, 9, 2, 6} {
		if err := m.Put(k, strconv.Itoa(k)); err != nil {
			t.Fatalf("Put(%d): %v", k, err)
		}
	}
	if err := m.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
	for k := 1; k <= 9; k++ {
		v, ok := m.Find(k)
		if !ok || v != strconv.Itoa(k) {
			t.Fatalf("Find(%d) = %q, %v; want %q, true", k, v, ok, strconv.Itoa(k))
		}
	}
	if _, ok := m.Find(42); ok {
		t.Fatalf("Find(42) unexpectedly found")
	}
}

func TestMemBTreeMinimalSplit(t *testing.T) {
	m := mustMemBTree(t, 3) // order 3: leaf overflows at 3 keys
	for _, k := range []int{1, 2, 3} {
		if err := m.Put(k, strconv.Itoa(k)); err != nil {
			t.Fatalf("Put(%d): %v", k, err)
		}
	}
	if err := m.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
	if m.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", m.Size())
	}
	for k := 1; k <= 3; k++ {
		if v, ok := m.Find(k); !ok || v != strconv.Itoa(k) {
			t.Fatalf("Find(%d) = %q, %v", k, v, ok)
		}
	}
}

func TestMemBTreePutReplacesExisting(t *testing.T) {
	m := mustMemBTree(t, 4)
	must(t, m.Put(1, "one"))
	must(t, m.Put(1, "uno"))
	v, ok := m.Find(1)
	if !ok || v != "uno" {
		t.Fatalf("Find(1) = %q, %v; want uno, true", v, ok)
	}
	if m.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 after replace", m.Size())
	}
}

func TestMemBTreeDeleteWithRotationAndMerge(t *testing.T) {
	m := mustMemBTree(t, 4)
	for k := 1; k <= 20; k++ {
		must(t, m.Put(k, strconv.Itoa(k)))
	}
	must(t, m.CheckInvariants())

	// Remove enough keys, in an order likely to force both rotation and
	// merge rebalancing, to exercise fixUnderflow's whole decision tree.
	for _, k := range []int{5, 6, 7, 8, 9, 10, 1, 2, 20, 19, 18} {
		if err := m.Remove(k); err != nil {
			t.Fatalf("Remove(%d): %v", k, err)
		}
		if err := m.CheckInvariants(); err != nil {
			t.Fatalf("CheckInvariants after removing %d: %v", k, err)
		}
	}
	for _, k := range []int{5, 6, 7, 8, 9, 10, 1, 2, 20, 19, 18} {
		if _, ok := m.Find(k); ok {
			t.Fatalf("Find(%d) still present after removal", k)
		}
	}
	remaining := []int{3, 4, 11, 12, 13, 14, 15, 16, 17}
	for _, k := range remaining {
		if _, ok := m.Find(k); !ok {
			t.Fatalf("Find(%d) missing, should remain", k)
		}
	}
	if m.Size() != len(remaining) {
		t.Fatalf("Size() = %d, want %d", m.Size(), len(remaining))
	}
}

func TestMemBTreeRemoveAbsentIsNoop(t *testing.T) {
	m := mustMemBTree(t, 4)
	must(t, m.Put(1, "one"))
	if err := m.Remove(999); err != nil {
		t.Fatalf("Remove(999): %v", err)
	}
	if m.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", m.Size())
	}
}

func TestMemBTreeForEachIsInOrder(t *testing.T) {
	m := mustMemBTree(t, 3)
	keys := []int{9, 2, 7, 4, 1, 8, 3, 6, 5}
	for _, k := range keys {
		must(t, m.Put(k, strconv.Itoa(k)))
	}
	var seen []int
	err := m.ForEach(func(k int, v string) error {
		seen = append(seen, k)
		if v != strconv.Itoa(k) {
			t.Fatalf("ForEach: value %q for key %d", v, k)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if !sort.IntsAreSorted(seen) {
		t.Fatalf("ForEach not in order: %v", seen)
	}
	if len(seen) != len(keys) {
		t.Fatalf("ForEach visited %d keys, want %d", len(seen), len(keys))
	}
}

func TestMemBTreeForEachPropagatesVisitorError(t *testing.T) {
	m := mustMemBTree(t, 4)
	for k := 1; k <= 5; k++ {
		must(t, m.Put(k, strconv.Itoa(k)))
	}
	sentinel := errors.New("stop")
	err := m.ForEach(func(k int, v string) error {
		if k == 3 {
			return sentinel
		}
		return nil
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("ForEach err = %v, want %v", err, sentinel)
	}
}

func TestNewTreeRejectsSmallOrder(t *testing.T) {
	if _, err := NewMemBTree[int, string](2, intCmp); err == nil {
		t.Fatalf("NewMemBTree(order=2) should be rejected")
	}
}

func TestLexicographicComparator(t *testing.T) {
	cases := []struct {
		a, b []byte
		want int
	}{
		{[]byte("abc"), []byte("abc"), 0},
		{[]byte("abc"), []byte("abd"), -1},
		{[]byte("ab"), []byte("abc"), -1},
		{[]byte("abc"), []byte("ab"), 1},
		{nil, nil, 0},
		{nil, []byte("a"), -1},
	}
	for _, c := range cases {
		got := Lexicographic(c.a, c.b)
		if sign(got) != sign(c.want) {
			t.Errorf("Lexicographic(%q, %q) = %d, want sign %d", c.a, c.b, got, c.want)
		}
	}
}

func TestLexicographicOrdersByteStringsConsistently(t *testing.T) {
	strs := [][]byte{[]byte("z"), []byte("a"), []byte(""), []byte("aa"), []byte("ab")}
	sort.Slice(strs, func(i, j int) bool { return Lexicographic(strs[i], strs[j]) < 0 })
	for i := 1; i < len(strs); i++ {
		if !(bytes.Compare(strs[i-1], strs[i]) <= 0) {
			t.Fatalf("sort by Lexicographic diverged from bytes.Compare: %q", strs)
		}
	}
}

func TestMemBTreeSoak(t *testing.T) {
	m := mustMemBTree(t, 5)
	rng := rand.New(rand.NewPCG(1, 2))
	model := map[int]string{}
	for round := 0; round < 4000; round++ {
		k := rng.IntN(200)
		if rng.IntN(3) == 0 {
			delete(model, k)
			if err := m.Remove(k); err != nil {
				t.Fatalf("Remove(%d): %v", k, err)
			}
		} else {
			v := strconv.Itoa(k)
			model[k] = v
			if err := m.Put(k, v); err != nil {
				t.Fatalf("Put(%d): %v", k, err)
			}
		}
		if round%137 == 0 {
			if err := m.CheckInvariants(); err != nil {
				t.Fatalf("round %d: CheckInvariants: %v", round, err)
			}
		}
	}
	if err := m.CheckInvariants(); err != nil {
		t.Fatalf("final CheckInvariants: %v", err)
	}
	if m.Size() != len(model) {
		t.Fatalf("Size() = %d, want %d", m.Size(), len(model))
	}
	for k, want := range model {
		got, ok := m.Find(k)
		if !ok || got != want {
			t.Fatalf("Find(%d) = %q, %v; want %q, true", k, got, ok, want)
		}
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
