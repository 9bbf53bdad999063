package btree

import (
	"testing"

	"storedb/pkg/key"
	"storedb/pkg/locator"
)

func TestInsertSearch(t *testing.T) {
	tr := New(4)
	tr.Insert(key.IntKey(1), locator.Locator{PageID: 0, SlotID: 0})
	tr.Insert(key.IntKey(2), locator.Locator{PageID: 0, SlotID: 1})

	got := tr.Search(key.IntKey(1))
	if len(got) != 1 || got[0].SlotID != 0 {
		t.Fatalf("Search(1): got %v", got)
	}
}

func TestInsertTriggersLeafSplit(t *testing.T) {
	tr := New(4)
	for i := int32(1); i <= 5; i++ {
		tr.Insert(key.IntKey(i), locator.Locator{PageID: 0, SlotID: i})
	}
	if tr.root.isLeaf() {
		t.Fatal("expected root to have split into an internal node")
	}
	if tr.Height() < 2 {
		t.Fatalf("expected height >= 2 after split, got %d", tr.Height())
	}
	for i := int32(1); i <= 5; i++ {
		got := tr.Search(key.IntKey(i))
		if len(got) != 1 {
			t.Errorf("Search(%d): got %d results, want 1", i, len(got))
		}
	}
}

func TestRangeScanOrderedAndBounded(t *testing.T) {
	tr := New(4)
	for i := int32(1); i <= 50; i++ {
		tr.Insert(key.IntKey(i), locator.Locator{PageID: 0, SlotID: i})
	}
	entries := tr.RangeScan(key.IntKey(10), key.IntKey(20))
	if len(entries) != 11 {
		t.Fatalf("expected 11 entries, got %d", len(entries))
	}
	for i, e := range entries {
		want := int32(10 + i)
		if e.Key.Int() != want {
			t.Errorf("entry %d: got key %d, want %d", i, e.Key.Int(), want)
		}
	}
}

func TestDuplicateKeysAllowed(t *testing.T) {
	tr := New(4)
	tr.Insert(key.IntKey(7), locator.Locator{PageID: 0, SlotID: 0})
	tr.Insert(key.IntKey(7), locator.Locator{PageID: 0, SlotID: 1})
	got := tr.Search(key.IntKey(7))
	if len(got) != 2 {
		t.Fatalf("expected 2 entries for duplicate key, got %d", len(got))
	}
}

func TestDelete(t *testing.T) {
	tr := New(4)
	loc := locator.Locator{PageID: 1, SlotID: 2}
	tr.Insert(key.IntKey(5), loc)
	if !tr.Delete(key.IntKey(5), loc) {
		t.Fatal("expected Delete to find the entry")
	}
	if got := tr.Search(key.IntKey(5)); len(got) != 0 {
		t.Fatalf("expected no results after delete, got %v", got)
	}
	if tr.Delete(key.IntKey(5), loc) {
		t.Fatal("expected second Delete to report not-found")
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	tr := New(4)
	for i := int32(1); i <= 20; i++ {
		tr.Insert(key.IntKey(i), locator.Locator{PageID: 0, SlotID: i})
	}
	buf := Serialize(tr, "Student", "StudentID")
	got, table, column, err := Deserialize(buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if table != "Student" || column != "StudentID" {
		t.Fatalf("header mismatch: table=%q column=%q", table, column)
	}
	entries := got.RangeScan(key.IntKey(1), key.IntKey(20))
	if len(entries) != 20 {
		t.Fatalf("expected 20 entries after round trip, got %d", len(entries))
	}
}

func TestDeserializeRejectsBadChecksum(t *testing.T) {
	tr := New(4)
	tr.Insert(key.IntKey(1), locator.Locator{PageID: 0, SlotID: 0})
	buf := Serialize(tr, "T", "C")
	buf[0] ^= 0xFF
	if _, _, _, err := Deserialize(buf); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}

func TestMinMaxKey(t *testing.T) {
	tr := New(4)
	for _, v := range []int32{30, 10, 20, 40, 50} {
		tr.Insert(key.IntKey(v), locator.Locator{})
	}
	min, ok := tr.MinKey()
	if !ok || min.Int() != 10 {
		t.Errorf("MinKey: got %v, ok=%v", min, ok)
	}
	max, ok := tr.MaxKey()
	if !ok || max.Int() != 50 {
		t.Errorf("MaxKey: got %v, ok=%v", max, ok)
	}
}
