package storedb

import (
	"fmt"

	"storedb/pkg/dberr"
	"storedb/pkg/key"
	"storedb/pkg/locator"
	"storedb/pkg/row"
	"storedb/pkg/schema"
)

// Select runs a retrieval request through the access planner: a single
// equality or range condition routes through a matching secondary index
// when one exists; otherwise (or when no matching index exists) it falls
// back to a full table scan.
func (m *Manager) Select(req Retrieval) ([]row.Record, error) {
	s, ok := m.catalog.Get(req.Table)
	if !ok {
		return nil, fmt.Errorf("%w: %q", dberr.ErrSchemaMiss, req.Table)
	}

	columns, err := projectionColumns(req.Column)
	if err != nil {
		return nil, err
	}
	if err := m.validateColumns(s, req.Table, columns, req.Conditions); err != nil {
		return nil, err
	}

	var matches []recordAndLocator
	indexed := false
	if len(req.Conditions) == 1 {
		matches, indexed, err = m.indexScan(req.Table, req.Conditions[0])
		if err != nil {
			return nil, err
		}
	}
	if !indexed {
		matches, err = m.scanAndFilter(req.Table, s, req.Conditions)
		if err != nil {
			return nil, err
		}
	}

	out := make([]row.Record, 0, len(matches))
	for _, rl := range matches {
		out = append(out, row.Record(project(rl.rec, columns)))
	}
	return out, nil
}

// validateColumns checks every projected and condition column exists in s.
func (m *Manager) validateColumns(s *schema.Schema, table string, columns []string, conds []Condition) error {
	for _, c := range columns {
		if _, ok := s.Find(c); !ok {
			return fmt.Errorf("%w: %q.%q", dberr.ErrColumnMiss, table, c)
		}
	}
	for _, c := range conds {
		if _, ok := s.Find(c.Column); !ok {
			return fmt.Errorf("%w: %q.%q", dberr.ErrColumnMiss, table, c.Column)
		}
	}
	return nil
}

// indexScan attempts to satisfy a single condition via a hash or B+-tree
// index, returning ok=false when no matching index exists.
func (m *Manager) indexScan(table string, cond Condition) (matches []recordAndLocator, ok bool, err error) {
	s, _ := m.catalog.Get(table)

	switch cond.Op {
	case "=":
		k := keyFromValue(coerceOperandLike(s, cond))
		var locs []locator.Locator
		if ix, found, ferr := m.hashMgr.Get(table, cond.Column); ferr == nil && found {
			locs = ix.Search(k)
		}
		if len(locs) == 0 {
			if tr, found, ferr := m.btreeMgr.Get(table, cond.Column); ferr == nil && found {
				locs = tr.Search(k)
			}
		}
		// A probe that finds nothing falls through to the full scan, which
		// re-applies the predicate against the heap itself.
		if len(locs) == 0 {
			return nil, false, nil
		}
		matches, err = m.fetchByLocators(table, s, locs)
		return matches, true, err

	case ">", ">=", "<", "<=":
		tr, found, ferr := m.btreeMgr.Get(table, cond.Column)
		if ferr != nil || !found {
			return nil, false, nil
		}
		bound := keyFromValue(coerceOperandLike(s, cond))
		var lo, hi key.Key
		switch cond.Op {
		case ">", ">=":
			lo = bound
			if mx, ok := tr.MaxKey(); ok {
				hi = mx
			} else {
				return nil, true, nil
			}
		default: // "<", "<="
			if mn, ok := tr.MinKey(); ok {
				lo = mn
			} else {
				return nil, true, nil
			}
			hi = bound
		}
		entries := tr.RangeScan(lo, hi)
		var locs []locator.Locator
		for _, e := range entries {
			if cond.Op == ">" && e.Key.Compare(bound) == 0 {
				continue
			}
			if cond.Op == "<" && e.Key.Compare(bound) == 0 {
				continue
			}
			locs = append(locs, e.Loc)
		}
		matches, err = m.fetchByLocators(table, s, locs)
		return matches, true, err
	}

	return nil, false, nil
}

// coerceOperandLike coerces a condition operand to match the declared type
// of its column, so the built index key uses the same Kind as the stored
// column values (e.g. a string "17" against an int column becomes IntKey).
func coerceOperandLike(s *schema.Schema, cond Condition) interface{} {
	attr, ok := s.Find(cond.Column)
	if !ok {
		return cond.Operand
	}
	switch attr.Type {
	case schema.TypeInt:
		if n, err := coerceNumber(cond.Operand); err == nil {
			return int32(n)
		}
	case schema.TypeFloat:
		if n, err := coerceNumber(cond.Operand); err == nil {
			return float32(n)
		}
	}
	return cond.Operand
}

func (m *Manager) fetchByLocators(table string, s *schema.Schema, locs []locator.Locator) ([]recordAndLocator, error) {
	if len(locs) == 0 {
		return nil, nil
	}
	path, ok := m.heapPath(table)
	if !ok {
		return nil, fmt.Errorf("%w: %q", dberr.ErrHeapMissing, table)
	}
	pages, err := readAllPages(path)
	if err != nil {
		return nil, err
	}
	out := make([]recordAndLocator, 0, len(locs))
	for _, loc := range locs {
		if int(loc.PageID) >= len(pages) {
			continue
		}
		buf, err := pages[loc.PageID].Get(int(loc.SlotID))
		if err != nil {
			continue
		}
		rec, err := row.Deserialize(s, buf)
		if err != nil {
			return nil, err
		}
		out = append(out, recordAndLocator{rec: rec, loc: loc})
	}
	return out, nil
}

// scanAndFilter performs a full table scan, applying every condition with
// AND semantics.
func (m *Manager) scanAndFilter(table string, s *schema.Schema, conds []Condition) ([]recordAndLocator, error) {
	all, err := m.fullScanWithLocators(table, s)
	if err != nil {
		return nil, err
	}
	out := make([]recordAndLocator, 0, len(all))
	for _, rl := range all {
		ok, err := matchesAll(rl.rec, conds)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rl)
		}
	}
	return out, nil
}
