package storedb

import (
	"fmt"

	"storedb/pkg/page"
	"storedb/pkg/row"
	"storedb/pkg/schema"
)

// Stats computes the optimizer statistic record for table:
// n_r and v_a_r from a full scan, l_r from the schema, f_r and b_r derived
// from those, and i_r from any registered index on each attribute (a
// B+-tree wins over a hash index when both exist, per last-writer
// semantics). A missing table or schema yields an all-zero statistic, never
// an error.
func (m *Manager) Stats(table string) (schema.Statistic, error) {
	s, ok := m.catalog.Get(table)
	if !ok {
		return schema.Zero(table), nil
	}
	path, ok := m.heapPath(table)
	if !ok {
		return schema.Zero(table), nil
	}

	pages, err := readAllPages(path)
	if err != nil {
		return schema.Zero(table), nil
	}

	stat := schema.Zero(table)

	// Collection is best-effort: a record that fails to decode still counts
	// toward n_r but contributes nothing to the distinct-value sets.
	distinct := make(map[string]map[string]struct{}, len(s.Attributes))
	for _, a := range s.Attributes {
		distinct[a.Name] = make(map[string]struct{})
	}
	for _, p := range pages {
		stat.NumRows += p.RecordCount()
		for slot := 0; slot < p.RecordCount(); slot++ {
			buf, err := p.Get(slot)
			if err != nil {
				continue
			}
			rec, err := row.Deserialize(s, buf)
			if err != nil {
				continue
			}
			for _, a := range s.Attributes {
				distinct[a.Name][fmt.Sprintf("%v", rec[a.Name])] = struct{}{}
			}
		}
	}
	for name, set := range distinct {
		stat.Distinct[name] = len(set)
	}

	stat.RowLength = s.RowLength()
	if stat.RowLength > 0 {
		stat.Blocking = page.Size / stat.RowLength
		if stat.Blocking < 1 {
			stat.Blocking = 1
		}
	} else {
		stat.Blocking = 1
	}
	if stat.NumRows > 0 && stat.Blocking > 0 {
		stat.NumBlocks = (stat.NumRows + stat.Blocking - 1) / stat.Blocking
	} else {
		stat.NumBlocks = len(pages)
	}

	for _, a := range s.Attributes {
		stat.Index[a.Name] = schema.IndexStat{Kind: schema.IndexNone}
	}
	for _, ix := range m.indexesFor(table) {
		switch ix.Kind {
		case IndexHash:
			if idx, found, err := m.hashMgr.Get(table, ix.Column); err == nil && found {
				if cur := stat.Index[ix.Column]; cur.Kind != schema.IndexBTree {
					stat.Index[ix.Column] = schema.IndexStat{Kind: schema.IndexHash, Value: idx.BucketCount()}
				}
			}
		case IndexBTree:
			if tr, found, err := m.btreeMgr.Get(table, ix.Column); err == nil && found {
				stat.Index[ix.Column] = schema.IndexStat{Kind: schema.IndexBTree, Value: tr.Height()}
			}
		}
	}

	return stat, nil
}
