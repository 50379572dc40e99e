package btree

import "testing"

func TestMemNodeIsLeaf(t *testing.T) {
	n := newEmptyMemNode[int, string]()
	if !n.IsLeaf() {
		t.Fatalf("fresh node should be a leaf")
	}
	child := newEmptyMemNode[int, string]()
	if err := n.Update(n.Keys(), n.Values(), n.Children().SpliceIn(0, child)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n.IsLeaf() {
		t.Fatalf("node with a child should not report as a leaf")
	}
}

func TestMemNodeUpdateReplacesInPlace(t *testing.T) {
	n := newEmptyMemNode[int, string]()
	keys := n.Keys().SpliceIn(0, 1).SpliceIn(1, 2)
	vals := n.Values().SpliceIn(0, "a").SpliceIn(1, "b")
	if err := n.Update(keys, vals, n.Children()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n.Keys().Size() != 2 || n.Keys().Get(0) != 1 || n.Keys().Get(1) != 2 {
		t.Fatalf("Keys() after Update = %v", n.Keys())
	}
	if n.Values().Get(0) != "a" || n.Values().Get(1) != "b" {
		t.Fatalf("Values() after Update wrong")
	}
}

func TestMemNodeCreateSiblingIsIndependent(t *testing.T) {
	n := newEmptyMemNode[int, string]()
	keys := n.Keys().SpliceIn(0, 1)
	sib, err := n.CreateSibling(keys, n.Values().SpliceIn(0, "a"), n.Children())
	if err != nil {
		t.Fatalf("CreateSibling: %v", err)
	}
	if sib == n {
		t.Fatalf("CreateSibling returned the same node")
	}
	if err := n.Update(n.Keys(), n.Values(), n.Children()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if sib.Keys().Size() != 1 || sib.Keys().Get(0) != 1 {
		t.Fatalf("sibling mutated by an unrelated update on n")
	}
}
