package storedb

import (
	"fmt"

	"storedb/pkg/dberr"
	"storedb/pkg/row"
)

// Condition is one predicate: column op operand. Constructed only through
// NewCondition, which rejects unsupported operators at construction time.
type Condition struct {
	Column  string
	Op      string
	Operand interface{}
}

var validOps = map[string]bool{
	"=": true, "<>": true, "!=": true,
	">": true, ">=": true, "<": true, "<=": true,
}

// NewCondition validates op and returns a Condition, or dberr.ErrBadOperator
// if op is not one of =, <>, !=, >, >=, <, <=.
func NewCondition(column, op string, operand interface{}) (Condition, error) {
	if !validOps[op] {
		return Condition{}, fmt.Errorf("%w: %q", dberr.ErrBadOperator, op)
	}
	return Condition{Column: column, Op: op, Operand: operand}, nil
}

// Retrieval is a read request: Column is "*", a single column name, or a
// []string of column names ("*" or nil/empty means the full row).
type Retrieval struct {
	Table      string
	Column     interface{}
	Conditions []Condition
}

// Write is an insert-or-update request. With Column absent and no
// conditions, NewValue is inserted as a new row (row.Record, name -> value
// for every attribute). Otherwise NewValue names the new values for every
// matching row: either a mapping, or a bare value paired with a
// single-column Column selector.
type Write struct {
	Table      string
	Column     interface{}
	Conditions []Condition
	NewValue   interface{}
}

// Deletion removes every row matching Conditions.
type Deletion struct {
	Table      string
	Conditions []Condition
}

// projectionColumns normalizes Retrieval.Column into an explicit column
// list, or nil meaning "every column".
func projectionColumns(col interface{}) ([]string, error) {
	switch c := col.(type) {
	case nil:
		return nil, nil
	case string:
		if c == "*" || c == "" {
			return nil, nil
		}
		return []string{c}, nil
	case []string:
		if len(c) == 0 {
			return nil, nil
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unsupported column selector %T", dberr.ErrColumnMiss, col)
	}
}

// newValueRecord normalizes a Write's NewValue into a record. A bare
// (non-mapping) value is accepted only when column names exactly one
// column, in which case it becomes a one-entry mapping.
func newValueRecord(column, v interface{}) (row.Record, error) {
	switch nv := v.(type) {
	case row.Record:
		return nv, nil
	case map[string]interface{}:
		return row.Record(nv), nil
	}
	switch c := column.(type) {
	case string:
		if c != "" && c != "*" {
			return row.Record{c: v}, nil
		}
	case []string:
		if len(c) == 1 {
			return row.Record{c[0]: v}, nil
		}
	}
	return nil, fmt.Errorf("%w: new value is neither a mapping nor coercible from a single-column form", dberr.ErrBadValue)
}
