// Package page implements the 4096-byte slotted page: a variable number of
// variable-length record payloads packed downward from the end of the page,
// addressed through a packed slot directory that grows upward from byte 4.
package page

import (
	"encoding/binary"
	"fmt"

	"storedb/pkg/dberr"
)

// Size is the fixed page size in bytes.
const Size = 4096

// HeaderSize is the width of the page header (record_count, free_space_offset).
const HeaderSize = 4

// SlotSize is the width of one slot directory entry (record_start, record_length).
const SlotSize = 8

// Page is one 4096-byte slotted page, held entirely in memory between Load
// and Bytes.
type Page struct {
	data [Size]byte
}

// New returns an empty page: zero records, free_space_offset at the header
// boundary.
func New() *Page {
	p := &Page{}
	p.setFreeSpaceOffset(HeaderSize)
	return p
}

// Load wraps an existing 4096-byte page image.
func Load(buf []byte) (*Page, error) {
	if len(buf) != Size {
		return nil, fmt.Errorf("%w: page must be %d bytes, got %d", dberr.ErrDecodeFailure, Size, len(buf))
	}
	p := &Page{}
	copy(p.data[:], buf)
	return p, nil
}

// Bytes returns the full 4096-byte page image.
func (p *Page) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, p.data[:])
	return out
}

// RecordCount returns the number of live slots.
func (p *Page) RecordCount() int {
	return int(binary.LittleEndian.Uint16(p.data[0:2]))
}

func (p *Page) setRecordCount(n int) {
	binary.LittleEndian.PutUint16(p.data[0:2], uint16(n))
}

// FreeSpaceOffset returns the byte one past the last used byte of the slot
// directory: always HeaderSize + SlotSize*RecordCount().
func (p *Page) FreeSpaceOffset() int {
	return int(binary.LittleEndian.Uint16(p.data[2:4]))
}

func (p *Page) setFreeSpaceOffset(v int) {
	binary.LittleEndian.PutUint16(p.data[2:4], uint16(v))
}

func slotOffset(i int) int { return HeaderSize + i*SlotSize }

func (p *Page) slot(i int) (start, length int) {
	off := slotOffset(i)
	return int(binary.LittleEndian.Uint32(p.data[off : off+4])), int(binary.LittleEndian.Uint32(p.data[off+4 : off+8]))
}

func (p *Page) setSlot(i, start, length int) {
	off := slotOffset(i)
	binary.LittleEndian.PutUint32(p.data[off:off+4], uint32(start))
	binary.LittleEndian.PutUint32(p.data[off+4:off+8], uint32(length))
}

// minPayloadStart returns the lowest record_start among live slots, or Size
// (the page boundary) if there are none.
func (p *Page) minPayloadStart() int {
	count := p.RecordCount()
	if count == 0 {
		return Size
	}
	min := Size
	for i := 0; i < count; i++ {
		start, _ := p.slot(i)
		if start < min {
			min = start
		}
	}
	return min
}

// Append writes record at the end of the payload region and returns its new
// slot id. It fails with dberr's internal page-full signal when there is not
// enough room for the record plus a new directory entry; the caller opens a
// fresh page and retries there.
func (p *Page) Append(record []byte) (int, error) {
	count := p.RecordCount()
	l := len(record)
	newDirEnd := slotOffset(count + 1)
	boundary := p.minPayloadStart()
	recordStart := boundary - l
	if recordStart < newDirEnd {
		return 0, dberr.NewPageFull()
	}
	copy(p.data[recordStart:recordStart+l], record)
	p.setSlot(count, recordStart, l)
	p.setRecordCount(count + 1)
	p.setFreeSpaceOffset(newDirEnd)
	return count, nil
}

// Get returns a copy of the payload bytes recorded at slotID.
func (p *Page) Get(slotID int) ([]byte, error) {
	if slotID < 0 || slotID >= p.RecordCount() {
		return nil, fmt.Errorf("%w: slot %d out of range", dberr.ErrDecodeFailure, slotID)
	}
	start, length := p.slot(slotID)
	out := make([]byte, length)
	copy(out, p.data[start:start+length])
	return out, nil
}

// Update overwrites the record at slotID with newRecord. When the new length
// equals the old, the payload is replaced in place. Otherwise the payload
// region to the low-address side of the record (the more recently appended
// neighbors) is shifted to absorb the size change, and every slot whose
// payload start lay in that shifted region is adjusted. Growth that would
// collide with the slot directory fails and leaves the page unchanged.
func (p *Page) Update(slotID int, newRecord []byte) error {
	count := p.RecordCount()
	if slotID < 0 || slotID >= count {
		return fmt.Errorf("%w: slot %d out of range", dberr.ErrDecodeFailure, slotID)
	}
	oldStart, oldLen := p.slot(slotID)
	newLen := len(newRecord)
	if newLen == oldLen {
		copy(p.data[oldStart:oldStart+newLen], newRecord)
		return nil
	}

	delta := newLen - oldLen
	dirEnd := slotOffset(count)
	oldBoundary := p.minPayloadStart()
	newBoundary := oldBoundary - delta
	if newBoundary < dirEnd {
		return dberr.NewPageFull()
	}

	if oldStart > oldBoundary {
		blobLen := oldStart - oldBoundary
		blob := make([]byte, blobLen)
		copy(blob, p.data[oldBoundary:oldStart])
		copy(p.data[newBoundary:newBoundary+blobLen], blob)
	}

	newStart := oldStart - delta
	copy(p.data[newStart:newStart+newLen], newRecord)

	for i := 0; i < count; i++ {
		if i == slotID {
			continue
		}
		s, l := p.slot(i)
		if s < oldStart {
			p.setSlot(i, s-delta, l)
		}
	}
	p.setSlot(slotID, newStart, newLen)
	return nil
}

// Delete removes slotID from the directory, compacting both the directory
// and the payload region so no gap remains. Slot indices above slotID shift
// down by one; remaining payloads that sat to the low-address side of the
// deleted record shift up to close the hole. Infallible on a valid slot.
func (p *Page) Delete(slotID int) error {
	count := p.RecordCount()
	if slotID < 0 || slotID >= count {
		return fmt.Errorf("%w: slot %d out of range", dberr.ErrDecodeFailure, slotID)
	}
	delStart, delLen := p.slot(slotID)
	boundary := p.minPayloadStart()

	if delStart > boundary {
		blobLen := delStart - boundary
		blob := make([]byte, blobLen)
		copy(blob, p.data[boundary:delStart])
		copy(p.data[boundary+delLen:boundary+delLen+blobLen], blob)
	}

	type liveSlot struct{ start, length int }
	remaining := make([]liveSlot, 0, count-1)
	for i := 0; i < count; i++ {
		if i == slotID {
			continue
		}
		s, l := p.slot(i)
		if s < delStart {
			s += delLen
		}
		remaining = append(remaining, liveSlot{s, l})
	}
	for i, s := range remaining {
		p.setSlot(i, s.start, s.length)
	}
	newCount := count - 1
	p.setRecordCount(newCount)
	p.setFreeSpaceOffset(slotOffset(newCount))
	return nil
}

// IsEmpty reports whether the page holds no live records.
func (p *Page) IsEmpty() bool {
	return p.RecordCount() == 0
}
