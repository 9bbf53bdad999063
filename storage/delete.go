package storedb

import (
	"fmt"

	"go.uber.org/zap"

	"storedb/pkg/dberr"
	"storedb/pkg/key"
	"storedb/pkg/locator"
	"storedb/pkg/row"
)

// Delete removes every row matching req.Conditions from its heap file,
// maintaining every registered index and truncating any now-empty trailing
// pages. Deleting a row shifts the
// slot ids of every later record on the same page; RebuildIndex is the
// recovery path if that ever leaves an index locator stale, so index
// maintenance here only removes the deleted row's
// own entry, located by the slot id the row had when the call began.
func (m *Manager) Delete(req Deletion) (int, error) {
	s, ok := m.catalog.Get(req.Table)
	if !ok {
		return 0, fmt.Errorf("%w: %q", dberr.ErrSchemaMiss, req.Table)
	}
	if err := m.validateColumns(s, req.Table, nil, req.Conditions); err != nil {
		return 0, err
	}

	path, ok := m.heapPath(req.Table)
	if !ok {
		return 0, fmt.Errorf("%w: %q", dberr.ErrHeapMissing, req.Table)
	}

	pages, err := readAllPages(path)
	if err != nil {
		return 0, err
	}

	indexes := m.indexesFor(req.Table)
	dirty := make(map[int]bool)
	count := 0

	for pid, p := range pages {
		slot := 0
		origSlot := 0 // slot id before this call's deletions on the page
		for slot < p.RecordCount() {
			buf, err := p.Get(slot)
			if err != nil {
				return count, err
			}
			rec, err := row.Deserialize(s, buf)
			if err != nil {
				return count, err
			}
			match, err := matchesAll(rec, req.Conditions)
			if err != nil {
				return count, err
			}
			if !match {
				slot++
				origSlot++
				continue
			}

			loc := locator.Locator{PageID: int32(pid), SlotID: int32(origSlot)}
			for _, ix := range indexes {
				k := keyFromValue(rec[ix.Column])
				if err := m.deleteFromIndex(ix, k, loc); err != nil {
					return count, err
				}
			}

			if err := p.Delete(slot); err != nil {
				return count, err
			}
			dirty[pid] = true
			count++
			origSlot++
			// the record that was at slot+1 has shifted into slot; don't advance.
		}
	}

	newCount := len(pages)
	for newCount > 0 && pages[newCount-1].IsEmpty() {
		newCount--
	}
	for pid := 0; pid < newCount; pid++ {
		if dirty[pid] {
			if err := writePageAt(path, pid, pages[pid]); err != nil {
				return count, err
			}
		}
	}
	if newCount < len(pages) {
		if err := truncateTo(path, newCount); err != nil {
			return count, err
		}
	}

	m.log.Info("deleted rows", zap.String("table", req.Table), zap.Int("count", count))
	return count, nil
}

func (m *Manager) deleteFromIndex(ix indexRegistration, k key.Key, loc locator.Locator) error {
	if ix.Kind == IndexHash {
		idx, found, err := m.hashMgr.Get(ix.Table, ix.Column)
		if err != nil || !found {
			return err
		}
		idx.Delete(k, loc)
		return m.hashMgr.Flush(ix.Table, ix.Column)
	}
	tr, found, err := m.btreeMgr.Get(ix.Table, ix.Column)
	if err != nil || !found {
		return err
	}
	tr.Delete(k, loc)
	return m.btreeMgr.Flush(ix.Table, ix.Column)
}
