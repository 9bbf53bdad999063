package page

import (
	"bytes"
	"testing"

	"storedb/pkg/dberr"
)

func TestNewPageEmpty(t *testing.T) {
	p := New()
	if p.RecordCount() != 0 {
		t.Errorf("expected 0 records, got %d", p.RecordCount())
	}
	if p.FreeSpaceOffset() != HeaderSize {
		t.Errorf("expected free_space_offset %d, got %d", HeaderSize, p.FreeSpaceOffset())
	}
}

func TestAppendAndGet(t *testing.T) {
	p := New()
	slot, err := p.Append([]byte("hello"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if slot != 0 {
		t.Errorf("expected slot 0, got %d", slot)
	}
	got, err := p.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Errorf("got %q, want %q", got, "hello")
	}
	if p.RecordCount() != 1 {
		t.Errorf("expected 1 record, got %d", p.RecordCount())
	}
}

func TestAppendMultiple(t *testing.T) {
	p := New()
	recs := [][]byte{[]byte("aaa"), []byte("bb"), []byte("c")}
	for i, r := range recs {
		slot, err := p.Append(r)
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if slot != i {
			t.Errorf("Append %d: got slot %d", i, slot)
		}
	}
	for i, r := range recs {
		got, err := p.Get(i)
		if err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
		if !bytes.Equal(got, r) {
			t.Errorf("Get %d: got %q, want %q", i, got, r)
		}
	}
}

func TestAppendPageFull(t *testing.T) {
	p := New()
	big := bytes.Repeat([]byte("x"), Size)
	_, err := p.Append(big)
	if !dberr.PageFull(err) {
		t.Fatalf("expected page-full error, got %v", err)
	}
}

func TestGetOutOfRange(t *testing.T) {
	p := New()
	if _, err := p.Get(0); err == nil {
		t.Fatal("expected error for out-of-range slot")
	}
}

func TestUpdateSameLength(t *testing.T) {
	p := New()
	p.Append([]byte("hello"))
	if err := p.Update(0, []byte("world")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := p.Get(0)
	if string(got) != "world" {
		t.Errorf("got %q, want %q", got, "world")
	}
}

func TestUpdateGrow(t *testing.T) {
	p := New()
	p.Append([]byte("a"))
	p.Append([]byte("b"))
	if err := p.Update(0, []byte("aaaaa")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got0, _ := p.Get(0)
	got1, _ := p.Get(1)
	if string(got0) != "aaaaa" {
		t.Errorf("slot 0: got %q", got0)
	}
	if string(got1) != "b" {
		t.Errorf("slot 1: got %q", got1)
	}
}

func TestUpdateShrink(t *testing.T) {
	p := New()
	p.Append([]byte("aaaaa"))
	p.Append([]byte("bb"))
	if err := p.Update(0, []byte("a")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got0, _ := p.Get(0)
	got1, _ := p.Get(1)
	if string(got0) != "a" {
		t.Errorf("slot 0: got %q", got0)
	}
	if string(got1) != "bb" {
		t.Errorf("slot 1: got %q", got1)
	}
}

func TestUpdateGrowPageFull(t *testing.T) {
	p := New()
	p.Append([]byte("a"))
	huge := bytes.Repeat([]byte("x"), Size)
	if err := p.Update(0, huge); !dberr.PageFull(err) {
		t.Fatalf("expected page-full error, got %v", err)
	}
	got, _ := p.Get(0)
	if string(got) != "a" {
		t.Errorf("page should be unchanged on failed update, got %q", got)
	}
}

func TestDeleteCompacts(t *testing.T) {
	p := New()
	p.Append([]byte("aaa"))
	p.Append([]byte("bb"))
	p.Append([]byte("c"))
	if err := p.Delete(1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if p.RecordCount() != 2 {
		t.Fatalf("expected 2 records, got %d", p.RecordCount())
	}
	got0, _ := p.Get(0)
	got1, _ := p.Get(1)
	if string(got0) != "aaa" {
		t.Errorf("slot 0: got %q", got0)
	}
	if string(got1) != "c" {
		t.Errorf("slot 1 (was 2): got %q", got1)
	}
}

func TestDeleteThenAppendReusesSpace(t *testing.T) {
	p := New()
	p.Append(bytes.Repeat([]byte("x"), 100))
	p.Delete(0)
	if p.RecordCount() != 0 {
		t.Fatalf("expected empty page after delete")
	}
	if _, err := p.Append(bytes.Repeat([]byte("y"), 100)); err != nil {
		t.Fatalf("Append after delete: %v", err)
	}
}

func TestLoadRejectsWrongSize(t *testing.T) {
	if _, err := Load(make([]byte, 100)); err == nil {
		t.Fatal("expected error for wrong-sized buffer")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	p := New()
	p.Append([]byte("hello"))
	buf := p.Bytes()
	if len(buf) != Size {
		t.Fatalf("expected %d bytes, got %d", Size, len(buf))
	}
	p2, err := Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := p2.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestNoSlotOverlap(t *testing.T) {
	p := New()
	for i := 0; i < 10; i++ {
		if _, err := p.Append(bytes.Repeat([]byte{byte('a' + i)}, 20)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	type span struct{ start, end int }
	var spans []span
	for i := 0; i < p.RecordCount(); i++ {
		start, _ := p.slot(i)
		_, length := p.slot(i)
		spans = append(spans, span{start, start + length})
	}
	for i := range spans {
		if spans[i].start < HeaderSize+SlotSize*p.RecordCount() {
			t.Errorf("slot %d payload starts inside directory region: %d", i, spans[i].start)
		}
		for j := range spans {
			if i == j {
				continue
			}
			if spans[i].start < spans[j].end && spans[j].start < spans[i].end {
				t.Errorf("slots %d and %d overlap: %v vs %v", i, j, spans[i], spans[j])
			}
		}
	}
}
