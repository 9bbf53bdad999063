package btree

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"storedb/pkg/dberr"
)

// Manager owns the in-memory cache of loaded B+-trees, keyed by
// (table, column), and their on-disk files under baseDir/indexes. Entries
// persist in the cache from first load until explicit Drop.
type Manager struct {
	baseDir string
	mu      sync.Mutex
	cache   map[string]*Tree
}

// NewManager returns a Manager rooted at baseDir (the storage directory;
// index files live in baseDir/indexes).
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir, cache: make(map[string]*Tree)}
}

func cacheKey(table, column string) string { return table + "\x00" + column }

// Path returns the on-disk path for a (table, column) B+-tree index file.
func (m *Manager) Path(table, column string) string {
	return filepath.Join(m.baseDir, "indexes", fmt.Sprintf("%s_%s_btree.idx", table, column))
}

// Has reports whether an index file exists for (table, column), checking
// the cache first.
func (m *Manager) Has(table, column string) bool {
	m.mu.Lock()
	if _, ok := m.cache[cacheKey(table, column)]; ok {
		m.mu.Unlock()
		return true
	}
	m.mu.Unlock()
	_, err := os.Stat(m.Path(table, column))
	return err == nil
}

// Get returns the cached tree for (table, column), loading it from disk on
// a cache miss if the file exists. Returns false if no index exists.
func (m *Manager) Get(table, column string) (*Tree, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cacheKey(table, column)
	if t, ok := m.cache[key]; ok {
		return t, true, nil
	}
	buf, err := os.ReadFile(m.Path(table, column))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	t, _, _, err := Deserialize(buf)
	if err != nil {
		return nil, false, err
	}
	m.cache[key] = t
	return t, true, nil
}

// Create registers a new empty tree of the given order for (table, column)
// in the cache, ready to be flushed.
func (m *Manager) Create(table, column string, order int) *Tree {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := New(order)
	m.cache[cacheKey(table, column)] = t
	return t
}

// Flush writes the cached tree for (table, column) to disk.
func (m *Manager) Flush(table, column string) error {
	m.mu.Lock()
	t, ok := m.cache[cacheKey(table, column)]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: btree %s.%s", dberr.NewIndexMissing(), table, column)
	}
	if err := os.MkdirAll(filepath.Join(m.baseDir, "indexes"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.Path(table, column), Serialize(t, table, column), 0o644)
}

// Drop removes both the on-disk file and the cache entry for (table, column).
func (m *Manager) Drop(table, column string) error {
	m.mu.Lock()
	delete(m.cache, cacheKey(table, column))
	m.mu.Unlock()
	err := os.Remove(m.Path(table, column))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
