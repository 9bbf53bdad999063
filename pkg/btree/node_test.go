package btree

import (
	"testing"

	"storedb/pkg/key"
	"storedb/pkg/locator"
)

func TestLeafInsertAtKeepsSortedOrder(t *testing.T) {
	n := newLeaf()
	n.leafInsertAt(key.IntKey(5), locator.Locator{SlotID: 5})
	n.leafInsertAt(key.IntKey(1), locator.Locator{SlotID: 1})
	n.leafInsertAt(key.IntKey(3), locator.Locator{SlotID: 3})

	want := []int32{1, 3, 5}
	for i, w := range want {
		if n.keys[i].Int() != w {
			t.Errorf("key %d: got %d, want %d", i, n.keys[i].Int(), w)
		}
		if n.locs[i].SlotID != w {
			t.Errorf("loc %d: got %d, want %d", i, n.locs[i].SlotID, w)
		}
	}
}

func TestChildIndex(t *testing.T) {
	n := newInternal()
	n.keys = []key.Key{key.IntKey(10), key.IntKey(20)}
	n.children = []*node{newLeaf(), newLeaf(), newLeaf()}

	if got := n.childIndex(key.IntKey(5)); got != 0 {
		t.Errorf("childIndex(5): got %d, want 0", got)
	}
	if got := n.childIndex(key.IntKey(15)); got != 1 {
		t.Errorf("childIndex(15): got %d, want 1", got)
	}
	if got := n.childIndex(key.IntKey(25)); got != 2 {
		t.Errorf("childIndex(25): got %d, want 2", got)
	}
}

func TestChildPosition(t *testing.T) {
	parent := newInternal()
	a, b := newLeaf(), newLeaf()
	parent.children = []*node{a, b}
	if parent.childPosition(a) != 0 {
		t.Error("expected position 0 for a")
	}
	if parent.childPosition(b) != 1 {
		t.Error("expected position 1 for b")
	}
	if parent.childPosition(newLeaf()) != -1 {
		t.Error("expected -1 for unrelated node")
	}
}
