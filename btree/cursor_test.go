package btree

import "testing"

func TestCursorFromStartVisitsEveryKeyInOrder(t *testing.T) {
	m := mustMemBTree(t, 3)
	keys := []int{9, 2, 7, 4, 1, 8, 3, 6, 5}
	for _, k := range keys {
		must(t, m.Put(k, "v"))
	}

	c := m.Cursor(0, false)
	var got []int
	for c.InTree() {
		got = append(got, c.Key())
		c.MoveRight()
	}
	if len(got) != len(keys) {
		t.Fatalf("cursor visited %d keys, want %d: %v", len(got), len(keys), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("cursor out of order at %d: %v", i, got)
		}
	}
}

func TestCursorFromKeyIsLUB(t *testing.T) {
	m := mustMemBTree(t, 4)
	for _, k := range []int{10, 20, 30, 40, 50} {
		must(t, m.Put(k, "v"))
	}

	c := m.Cursor(25, true)
	if !c.InTree() || c.Key() != 30 {
		t.Fatalf("Cursor(25) should land on 30, got InTree=%v", c.InTree())
	}

	c = m.Cursor(30, true)
	if !c.InTree() || c.Key() != 30 {
		t.Fatalf("Cursor(30) should land on 30 exactly")
	}

	c = m.Cursor(999, true)
	if c.InTree() {
		t.Fatalf("Cursor(999) should be exhausted, past every key")
	}
}

func TestCursorOnEmptyTree(t *testing.T) {
	m := mustMemBTree(t, 4)
	c := m.Cursor(0, false)
	if c.InTree() {
		t.Fatalf("empty tree cursor should not be InTree")
	}
	if c.MoveRight() {
		t.Fatalf("MoveRight on empty cursor should stay false")
	}
}

func TestCursorMatchesForEach(t *testing.T) {
	m := mustMemBTree(t, 5)
	for k := 0; k < 97; k++ {
		must(t, m.Put(k, "v"))
	}

	var fromForEach []int
	must(t, m.ForEach(func(k int, v string) error {
		fromForEach = append(fromForEach, k)
		return nil
	}))

	var fromCursor []int
	c := m.Cursor(0, false)
	for c.InTree() {
		fromCursor = append(fromCursor, c.Key())
		c.MoveRight()
	}

	if len(fromForEach) != len(fromCursor) {
		t.Fatalf("ForEach saw %d keys, cursor saw %d", len(fromForEach), len(fromCursor))
	}
	for i := range fromForEach {
		if fromForEach[i] != fromCursor[i] {
			t.Fatalf("mismatch at %d: ForEach=%d cursor=%d", i, fromForEach[i], fromCursor[i])
		}
	}
}

func TestCursorStaysExhaustedAfterEnd(t *testing.T) {
	m := mustMemBTree(t, 4)
	must(t, m.Put(1, "v"))
	c := m.Cursor(0, false)
	if !c.InTree() {
		t.Fatalf("expected InTree at start")
	}
	if c.MoveRight() {
		t.Fatalf("MoveRight should exhaust a single-entry tree")
	}
	if c.InTree() {
		t.Fatalf("cursor should stay exhausted")
	}
	if c.MoveRight() {
		t.Fatalf("MoveRight on exhausted cursor should keep returning false")
	}
}
