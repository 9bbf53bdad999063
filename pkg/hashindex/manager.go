package hashindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"storedb/pkg/dberr"
)

// Manager owns the in-memory cache of loaded hash indexes, keyed by
// (table, column), and their on-disk files under baseDir/indexes. Entries
// persist in the cache from first load until explicit Drop.
type Manager struct {
	baseDir string
	mu      sync.Mutex
	cache   map[string]*Index
}

// NewManager returns a Manager rooted at baseDir (the storage directory;
// index files live in baseDir/indexes).
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir, cache: make(map[string]*Index)}
}

func cacheKey(table, column string) string { return table + "\x00" + column }

// Path returns the on-disk path for a (table, column) hash index file.
func (m *Manager) Path(table, column string) string {
	return filepath.Join(m.baseDir, "indexes", fmt.Sprintf("%s_%s_hash.idx", table, column))
}

// Has reports whether an index exists for (table, column), checking the
// cache first.
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

// Get returns the cached index for (table, column), loading it from disk on
// a cache miss if the file exists. Returns false if no index exists.
func (m *Manager) Get(table, column string) (*Index, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cacheKey(table, column)
	if ix, ok := m.cache[key]; ok {
		return ix, true, nil
	}
	buf, err := os.ReadFile(m.Path(table, column))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	ix, _, _, err := Deserialize(buf)
	if err != nil {
		return nil, false, err
	}
	m.cache[key] = ix
	return ix, true, nil
}

// Create registers a new empty index of the given bucket count for
// (table, column) in the cache, ready to be flushed.
func (m *Manager) Create(table, column string, buckets int) *Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	ix := New(buckets)
	m.cache[cacheKey(table, column)] = ix
	return ix
}

// Flush writes the cached index for (table, column) to disk.
func (m *Manager) Flush(table, column string) error {
	m.mu.Lock()
	ix, ok := m.cache[cacheKey(table, column)]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: hashindex %s.%s", dberr.NewIndexMissing(), table, column)
	}
	if err := os.MkdirAll(filepath.Join(m.baseDir, "indexes"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.Path(table, column), Serialize(ix, table, column), 0o644)
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
