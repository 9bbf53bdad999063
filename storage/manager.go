package storedb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storedb/pkg/btree"
	"storedb/pkg/dberr"
	"storedb/pkg/hashindex"
	"storedb/pkg/key"
	"storedb/pkg/locator"
	"storedb/pkg/row"
	"storedb/pkg/schema"
)

// IndexKind names which kind of secondary index to build.
type IndexKind int

const (
	IndexHash IndexKind = iota
	IndexBTree
)

type indexRegistration struct {
	Table  string
	Column string
	Kind   IndexKind
}

// Manager is the storage engine's single entry point: it owns the schema
// catalog, the hash and B+-tree index caches, and exclusively owns heap
// file handles for the duration of any one call. Not safe for concurrent
// use from multiple goroutines; callers must not share one
// Manager across directories either, since directory ownership is assumed
// exclusive to a single process.
type Manager struct {
	cfg        Config
	catalog    *schema.Catalog
	hashMgr    *hashindex.Manager
	btreeMgr   *btree.Manager
	indexes    []indexRegistration
	instanceID uuid.UUID
	log        *zap.Logger
}

// Open loads (or initializes) the catalog at cfg.BaseDir/schema.dat and
// returns a ready Manager.
func Open(cfg Config) (*Manager, error) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = "data"
	}
	if cfg.HashBuckets <= 0 {
		cfg.HashBuckets = hashindex.DefaultBuckets
	}
	if cfg.BTreeOrder <= 0 {
		cfg.BTreeOrder = btree.DefaultOrder
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:        cfg,
		hashMgr:    hashindex.NewManager(cfg.BaseDir),
		btreeMgr:   btree.NewManager(cfg.BaseDir),
		instanceID: uuid.New(),
		log:        cfg.logger(),
	}

	schemaPath := filepath.Join(cfg.BaseDir, "schema.dat")
	if f, err := os.Open(schemaPath); err == nil {
		defer f.Close()
		cat, err := schema.LoadCatalog(f)
		if err != nil {
			return nil, err
		}
		m.catalog = cat
	} else if os.IsNotExist(err) {
		m.catalog = schema.NewCatalog()
	} else {
		return nil, err
	}

	m.discoverIndexes()

	m.log.Info("opened storage manager",
		zap.String("instance_id", m.instanceID.String()),
		zap.String("base_dir", cfg.BaseDir),
		zap.Int("tables", len(m.catalog.Names())))
	return m, nil
}

// InstanceID identifies this Manager for log correlation. Never persisted
// and never part of any on-disk format.
func (m *Manager) InstanceID() uuid.UUID { return m.instanceID }

// discoverIndexes scans indexes/ for existing *_hash.idx and *_btree.idx
// files and registers them, so a freshly Open-ed Manager knows about
// indexes created by a prior process run.
func (m *Manager) discoverIndexes() {
	dir := filepath.Join(m.cfg.BaseDir, "indexes")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case hasSuffixAndMin(name, "_hash.idx"):
			table, column, ok := splitIndexFileName(name, "_hash.idx")
			if ok {
				m.indexes = append(m.indexes, indexRegistration{Table: table, Column: column, Kind: IndexHash})
			}
		case hasSuffixAndMin(name, "_btree.idx"):
			table, column, ok := splitIndexFileName(name, "_btree.idx")
			if ok {
				m.indexes = append(m.indexes, indexRegistration{Table: table, Column: column, Kind: IndexBTree})
			}
		}
	}
}

func hasSuffixAndMin(name, suffix string) bool {
	return len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix
}

func splitIndexFileName(name, suffix string) (table, column string, ok bool) {
	base := name[:len(name)-len(suffix)]
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '_' {
			return base[:i], base[i+1:], true
		}
	}
	return "", "", false
}

func (m *Manager) saveCatalog() error {
	path := filepath.Join(m.cfg.BaseDir, "schema.dat")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.catalog.Save(f)
}

// CreateTable registers name's schema in the catalog, persists schema.dat,
// and creates an empty heap file.
func (m *Manager) CreateTable(name string, s *schema.Schema) error {
	m.catalog.Put(name, s)
	if err := m.saveCatalog(); err != nil {
		return err
	}
	if err := createEmptyHeapFile(m.heapPathForCreate(name)); err != nil {
		return err
	}
	m.log.Info("created table", zap.String("table", name))
	return nil
}

// DropTable removes name from the catalog, deletes its heap file, and drops
// every index registered on it.
func (m *Manager) DropTable(name string) error {
	m.catalog.Delete(name)
	if err := m.saveCatalog(); err != nil {
		return err
	}
	if p, ok := m.heapPath(name); ok {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	remaining := m.indexes[:0]
	for _, ix := range m.indexes {
		if ix.Table != name {
			remaining = append(remaining, ix)
			continue
		}
		if ix.Kind == IndexHash {
			m.hashMgr.Drop(ix.Table, ix.Column)
		} else {
			m.btreeMgr.Drop(ix.Table, ix.Column)
		}
	}
	m.indexes = remaining
	m.log.Info("dropped table", zap.String("table", name))
	return nil
}

// ListTables returns every table name in the catalog, sorted.
func (m *Manager) ListTables() []string {
	return m.catalog.Names()
}

// CreateIndex builds a fresh index of the given kind on table.column from a
// full table scan and registers it.
func (m *Manager) CreateIndex(table, column string, kind IndexKind) error {
	s, ok := m.catalog.Get(table)
	if !ok {
		return fmt.Errorf("%w: %q", dberr.ErrSchemaMiss, table)
	}
	if _, ok := s.Find(column); !ok {
		return fmt.Errorf("%w: %q.%q", dberr.ErrColumnMiss, table, column)
	}

	records, err := m.fullScanWithLocators(table, s)
	if err != nil {
		return err
	}

	switch kind {
	case IndexHash:
		ix := m.hashMgr.Create(table, column, m.cfg.HashBuckets)
		for _, rl := range records {
			ix.Insert(keyFromValue(rl.rec[column]), rl.loc)
		}
		if err := m.hashMgr.Flush(table, column); err != nil {
			return err
		}
	case IndexBTree:
		tr := m.btreeMgr.Create(table, column, m.cfg.BTreeOrder)
		for _, rl := range records {
			tr.Insert(keyFromValue(rl.rec[column]), rl.loc)
		}
		if err := m.btreeMgr.Flush(table, column); err != nil {
			return err
		}
	}

	m.register(indexRegistration{Table: table, Column: column, Kind: kind})
	m.log.Info("created index", zap.String("table", table), zap.String("column", column))
	return nil
}

// register records an index, replacing any prior registration of the same
// (table, column, kind).
func (m *Manager) register(reg indexRegistration) {
	for i, ix := range m.indexes {
		if ix == reg {
			m.indexes[i] = reg
			return
		}
	}
	m.indexes = append(m.indexes, reg)
}

// RebuildIndex drops and rebuilds every index kind registered on
// table.column from a fresh full table scan. This is the recovery tool
// after a crash leaves an index inconsistent with the heap.
func (m *Manager) RebuildIndex(table, column string) error {
	var kinds []IndexKind
	for _, ix := range m.indexes {
		if ix.Table == table && ix.Column == column {
			kinds = append(kinds, ix.Kind)
		}
	}
	for _, kind := range kinds {
		if kind == IndexHash {
			m.hashMgr.Drop(table, column)
		} else {
			m.btreeMgr.Drop(table, column)
		}
		if err := m.CreateIndex(table, column, kind); err != nil {
			return err
		}
	}
	m.log.Info("rebuilt index", zap.String("table", table), zap.String("column", column))
	return nil
}

func (m *Manager) indexesFor(table string) []indexRegistration {
	var out []indexRegistration
	for _, ix := range m.indexes {
		if ix.Table == table {
			out = append(out, ix)
		}
	}
	return out
}

// keyFromValue builds the tagged index key for a decoded row value.
func keyFromValue(v interface{}) key.Key {
	switch n := v.(type) {
	case nil:
		return key.NullKey()
	case int32:
		return key.IntKey(n)
	case int:
		return key.IntKey(int32(n))
	case float32:
		return key.FloatKey(n)
	case float64:
		return key.FloatKey(float32(n))
	case string:
		return key.Utf8Key(n)
	default:
		return key.NullKey()
	}
}

type recordAndLocator struct {
	rec row.Record
	loc locator.Locator
}

// fullScanWithLocators deserializes every live record in table's heap file
// along with its locator.
func (m *Manager) fullScanWithLocators(table string, s *schema.Schema) ([]recordAndLocator, error) {
	path, ok := m.heapPath(table)
	if !ok {
		return nil, fmt.Errorf("%w: %q", dberr.ErrHeapMissing, table)
	}
	pages, err := readAllPages(path)
	if err != nil {
		return nil, err
	}
	var out []recordAndLocator
	for pid, p := range pages {
		for slot := 0; slot < p.RecordCount(); slot++ {
			buf, err := p.Get(slot)
			if err != nil {
				return nil, err
			}
			rec, err := row.Deserialize(s, buf)
			if err != nil {
				return nil, err
			}
			out = append(out, recordAndLocator{rec: rec, loc: locator.Locator{PageID: int32(pid), SlotID: int32(slot)}})
		}
	}
	return out, nil
}
