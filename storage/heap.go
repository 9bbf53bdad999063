package storedb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storedb/pkg/dberr"
	"storedb/pkg/page"
)

// heapPath resolves table to an existing <Table>.dat path, trying the
// literal name, then lowercase, then uppercase; the first existing file
// wins. Returns false if none exist.
func (m *Manager) heapPath(table string) (string, bool) {
	for _, candidate := range []string{table, strings.ToLower(table), strings.ToUpper(table)} {
		p := filepath.Join(m.cfg.BaseDir, candidate+".dat")
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// heapPathForCreate is the canonical (literal-name) path used when a heap
// file is first created.
func (m *Manager) heapPathForCreate(table string) string {
	return filepath.Join(m.cfg.BaseDir, table+".dat")
}

// pageCount returns how many 4096-byte pages are in the file at path.
func pageCount(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return int(info.Size() / page.Size), nil
}

// readAllPages reads every page of the heap file at path into memory, in
// file order.
func readAllPages(path string) ([]*page.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	n := int(info.Size() / page.Size)
	pages := make([]*page.Page, n)
	buf := make([]byte, page.Size)
	for i := 0; i < n; i++ {
		if _, err := f.ReadAt(buf, int64(i)*page.Size); err != nil {
			return nil, fmt.Errorf("%w: reading page %d: %v", dberr.ErrDecodeFailure, i, err)
		}
		p, err := page.Load(buf)
		if err != nil {
			return nil, err
		}
		pages[i] = p
	}
	return pages, nil
}

// writePageAt writes a single page back to its own offset in the file at
// path, creating the file if it does not exist.
func writePageAt(path string, pageID int, p *page.Page) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteAt(p.Bytes(), int64(pageID)*page.Size)
	return err
}

// truncateTo shrinks the file at path to exactly n pages.
func truncateTo(path string, n int) error {
	return os.Truncate(path, int64(n)*page.Size)
}

// createEmptyHeapFile creates a zero-length heap file for a newly defined
// table.
func createEmptyHeapFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
