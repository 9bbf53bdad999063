package storedb

import (
	"fmt"

	"go.uber.org/zap"

	"storedb/pkg/dberr"
	"storedb/pkg/key"
	"storedb/pkg/locator"
	"storedb/pkg/page"
	"storedb/pkg/row"
	"storedb/pkg/schema"
)

// Write applies req: with no column selector and no conditions it inserts
// req.NewValue as a new row; otherwise it updates every matching row. It
// returns the number of rows inserted (0 or 1) or updated.
func (m *Manager) Write(req Write) (int, error) {
	s, ok := m.catalog.Get(req.Table)
	if !ok {
		return 0, fmt.Errorf("%w: %q", dberr.ErrSchemaMiss, req.Table)
	}
	rec, err := newValueRecord(req.Column, req.NewValue)
	if err != nil {
		return 0, err
	}
	if columnAbsent(req.Column) && len(req.Conditions) == 0 {
		return m.insert(req.Table, s, rec)
	}
	return m.update(req.Table, s, req.Conditions, rec)
}

func columnAbsent(column interface{}) bool {
	switch c := column.(type) {
	case nil:
		return true
	case string:
		return c == ""
	case []string:
		return len(c) == 0
	}
	return false
}

// insert appends rec to the last heap page, or to a fresh page when the
// last page has no room, then maintains every registered index.
func (m *Manager) insert(table string, s *schema.Schema, rec row.Record) (int, error) {
	path, ok := m.heapPath(table)
	if !ok {
		return 0, fmt.Errorf("%w: %q", dberr.ErrHeapMissing, table)
	}

	buf, err := row.Serialize(s, rec)
	if err != nil {
		return 0, err
	}

	count, err := pageCount(path)
	if err != nil {
		return 0, err
	}

	pageID := 0
	var p *page.Page
	if count == 0 {
		p = page.New()
	} else {
		pageID = count - 1
		p, err = readPage(path, pageID)
		if err != nil {
			return 0, err
		}
	}

	slotID, err := p.Append(buf)
	if dberr.PageFull(err) {
		m.log.Warn("page full, allocating trailing page",
			zap.String("table", table), zap.Int("page", pageID))
		pageID = count
		p = page.New()
		slotID, err = p.Append(buf)
	}
	if err != nil {
		return 0, err
	}
	if err := writePageAt(path, pageID, p); err != nil {
		return 0, err
	}

	loc := locator.Locator{PageID: int32(pageID), SlotID: int32(slotID)}
	for _, ix := range m.indexesFor(table) {
		k := keyFromValue(rec[ix.Column])
		if err := m.insertIntoIndex(ix, k, loc); err != nil {
			return 0, err
		}
	}

	m.log.Info("inserted row", zap.String("table", table), zap.Int("page", pageID), zap.Int("slot", slotID))
	return 1, nil
}

func (m *Manager) insertIntoIndex(ix indexRegistration, k key.Key, loc locator.Locator) error {
	if ix.Kind == IndexHash {
		idx, found, err := m.hashMgr.Get(ix.Table, ix.Column)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		idx.Insert(k, loc)
		return m.hashMgr.Flush(ix.Table, ix.Column)
	}
	tr, found, err := m.btreeMgr.Get(ix.Table, ix.Column)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	tr.Insert(k, loc)
	return m.btreeMgr.Flush(ix.Table, ix.Column)
}

// update applies newValues to every row matching conds, rewriting index
// entries for any column present in newValues before rewriting the row
// itself. A page.Update that cannot grow in place is propagated as an
// error: unlike insert, an update never relocates a row to another page.
func (m *Manager) update(table string, s *schema.Schema, conds []Condition, newValues row.Record) (int, error) {
	path, ok := m.heapPath(table)
	if !ok {
		return 0, fmt.Errorf("%w: %q", dberr.ErrHeapMissing, table)
	}
	if err := m.validateColumns(s, table, nil, conds); err != nil {
		return 0, err
	}
	for name := range newValues {
		if _, ok := s.Find(name); !ok {
			return 0, fmt.Errorf("%w: %q.%q", dberr.ErrColumnMiss, table, name)
		}
	}

	pages, err := readAllPages(path)
	if err != nil {
		return 0, err
	}

	indexes := m.indexesFor(table)
	dirty := make(map[int]bool)
	count := 0

	for pid, p := range pages {
		for slot := 0; slot < p.RecordCount(); slot++ {
			buf, err := p.Get(slot)
			if err != nil {
				return count, err
			}
			oldRec, err := row.Deserialize(s, buf)
			if err != nil {
				return count, err
			}
			match, err := matchesAll(oldRec, conds)
			if err != nil {
				return count, err
			}
			if !match {
				continue
			}

			newRec := make(row.Record, len(oldRec))
			for k, v := range oldRec {
				newRec[k] = v
			}
			for k, v := range newValues {
				newRec[k] = v
			}

			loc := locator.Locator{PageID: int32(pid), SlotID: int32(slot)}
			for _, ix := range indexes {
				if _, changed := newValues[ix.Column]; !changed {
					continue
				}
				oldKey := keyFromValue(oldRec[ix.Column])
				newKey := keyFromValue(newRec[ix.Column])
				if err := m.updateIndexEntry(ix, oldKey, newKey, loc); err != nil {
					return count, err
				}
			}

			newBuf, err := row.Serialize(s, newRec)
			if err != nil {
				return count, err
			}
			if err := p.Update(slot, newBuf); err != nil {
				return count, err
			}
			dirty[pid] = true
			count++
		}
	}

	for pid := range dirty {
		if err := writePageAt(path, pid, pages[pid]); err != nil {
			return count, err
		}
	}

	m.log.Info("updated rows", zap.String("table", table), zap.Int("count", count))
	return count, nil
}

func (m *Manager) updateIndexEntry(ix indexRegistration, oldKey, newKey key.Key, loc locator.Locator) error {
	if ix.Kind == IndexHash {
		idx, found, err := m.hashMgr.Get(ix.Table, ix.Column)
		if err != nil || !found {
			return err
		}
		idx.Update(oldKey, newKey, loc)
		return m.hashMgr.Flush(ix.Table, ix.Column)
	}
	tr, found, err := m.btreeMgr.Get(ix.Table, ix.Column)
	if err != nil || !found {
		return err
	}
	tr.Delete(oldKey, loc)
	tr.Insert(newKey, loc)
	return m.btreeMgr.Flush(ix.Table, ix.Column)
}

// readPage reads a single page from path at pageID.
func readPage(path string, pageID int) (*page.Page, error) {
	pages, err := readAllPages(path)
	if err != nil {
		return nil, err
	}
	if pageID < 0 || pageID >= len(pages) {
		return nil, fmt.Errorf("%w: page %d out of range", dberr.ErrDecodeFailure, pageID)
	}
	return pages[pageID], nil
}
