// Package dberr defines the error kinds surfaced by storedb's public API.
package dberr

import "errors"

// Sentinel kinds. Wrap with fmt.Errorf("...: %w", Kind) for caller context;
// callers compare with errors.Is, never type assertion.
var (
	// ErrSchemaMiss means a table name is not present in the catalog.
	ErrSchemaMiss = errors.New("schema miss: unknown table")
	// ErrColumnMiss means a projected or condition column is not in the schema.
	ErrColumnMiss = errors.New("column miss: unknown column")
	// ErrHeapMissing means a table exists in the catalog but its heap file does not.
	ErrHeapMissing = errors.New("heap missing: table data file not found")
	// ErrDecodeFailure means a record's bytes could not be interpreted under the schema.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrBadOperator means a Condition was constructed with an unsupported operator.
	ErrBadOperator = errors.New("bad operator")
	// ErrBadValue means a new-value passed to Update is neither a mapping nor
	// coercible from a single-column form.
	ErrBadValue = errors.New("bad value")

	// errPageFull and errIndexMissing are unexported; test for them with
	// PageFull and IndexMissing. The storage manager recovers from a full
	// page on insert by allocating a new page, but an update whose row cannot
	// grow in place returns the page-full error to the caller.
	errPageFull     = errors.New("page full")
	errIndexMissing = errors.New("index missing")
)

// PageFull reports whether err indicates a slotted page had no room for a
// record of the requested size. Internal to the storage engine.
func PageFull(err error) bool {
	return errors.Is(err, errPageFull)
}

// NewPageFull builds the internal page-full signal.
func NewPageFull() error { return errPageFull }

// IndexMissing reports whether err indicates an index operation targeted a
// (table, column) with no index file. Internal to the storage engine.
func IndexMissing(err error) bool {
	return errors.Is(err, errIndexMissing)
}

// NewIndexMissing builds the internal index-missing signal.
func NewIndexMissing() error { return errIndexMissing }
