package hashindex

import (
	"testing"

	"storedb/pkg/key"
	"storedb/pkg/locator"
)

func TestInsertSearch(t *testing.T) {
	ix := New(200)
	ix.Insert(key.IntKey(999), locator.Locator{PageID: 0, SlotID: 0})
	got := ix.Search(key.IntKey(999))
	if len(got) != 1 || got[0].SlotID != 0 {
		t.Fatalf("Search(999): got %v", got)
	}
}

func TestSearchMissingKeyEmpty(t *testing.T) {
	ix := New(200)
	if got := ix.Search(key.IntKey(1)); len(got) != 0 {
		t.Fatalf("expected no results, got %v", got)
	}
}

func TestDuplicateKeysCoexist(t *testing.T) {
	ix := New(200)
	ix.Insert(key.IntKey(1), locator.Locator{SlotID: 0})
	ix.Insert(key.IntKey(1), locator.Locator{SlotID: 1})
	got := ix.Search(key.IntKey(1))
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}

func TestDeleteRemovesOneMatch(t *testing.T) {
	ix := New(200)
	ix.Insert(key.IntKey(1), locator.Locator{SlotID: 0})
	ix.Insert(key.IntKey(1), locator.Locator{SlotID: 1})
	if !ix.Delete(key.IntKey(1), locator.Locator{SlotID: 0}) {
		t.Fatal("expected Delete to find the entry")
	}
	got := ix.Search(key.IntKey(1))
	if len(got) != 1 || got[0].SlotID != 1 {
		t.Fatalf("expected only SlotID 1 remaining, got %v", got)
	}
}

func TestUpdateMovesBetweenBuckets(t *testing.T) {
	ix := New(200)
	loc := locator.Locator{SlotID: 5}
	ix.Insert(key.IntKey(1), loc)
	ix.Update(key.IntKey(1), key.IntKey(2), loc)
	if got := ix.Search(key.IntKey(1)); len(got) != 0 {
		t.Errorf("expected old key to be gone, got %v", got)
	}
	if got := ix.Search(key.IntKey(2)); len(got) != 1 {
		t.Errorf("expected new key present, got %v", got)
	}
}

func TestTypesNeverCompareEqual(t *testing.T) {
	ix := New(200)
	ix.Insert(key.IntKey(1), locator.Locator{SlotID: 0})
	if got := ix.Search(key.Utf8Key("1")); len(got) != 0 {
		t.Fatalf("expected int and string keys to never compare equal, got %v", got)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	ix := New(10)
	for i := int32(0); i < 30; i++ {
		ix.Insert(key.IntKey(i), locator.Locator{PageID: 0, SlotID: i})
	}
	buf := Serialize(ix, "Student", "StudentID")
	got, table, column, err := Deserialize(buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if table != "Student" || column != "StudentID" {
		t.Fatalf("header mismatch: table=%q column=%q", table, column)
	}
	if got.EntryCount() != 30 {
		t.Fatalf("expected 30 entries, got %d", got.EntryCount())
	}
	for i := int32(0); i < 30; i++ {
		if len(got.Search(key.IntKey(i))) != 1 {
			t.Errorf("missing key %d after round trip", i)
		}
	}
}

func TestDeserializeRejectsBadChecksum(t *testing.T) {
	ix := New(10)
	ix.Insert(key.IntKey(1), locator.Locator{})
	buf := Serialize(ix, "T", "C")
	buf[0] ^= 0xFF
	if _, _, _, err := Deserialize(buf); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}
