package storedb

import (
	"fmt"
	"strconv"
	"strings"

	"storedb/pkg/dberr"
)

// evaluate applies cond to rowVal, coercing a string operand to a number
// when rowVal itself is numeric.
func evaluate(rowVal interface{}, cond Condition) (bool, error) {
	switch rv := rowVal.(type) {
	case int32:
		return evalNumeric(float64(rv), cond)
	case float32:
		return evalNumeric(float64(rv), cond)
	case string:
		operand, ok := cond.Operand.(string)
		if !ok {
			return false, fmt.Errorf("%w: cannot compare string column to %T", dberr.ErrBadValue, cond.Operand)
		}
		return evalOrdered(strings.Compare(rv, operand), cond.Op)
	default:
		return false, fmt.Errorf("%w: unsupported row value type %T", dberr.ErrDecodeFailure, rowVal)
	}
}

func evalNumeric(rv float64, cond Condition) (bool, error) {
	operand, err := coerceNumber(cond.Operand)
	if err != nil {
		return false, err
	}
	cmp := 0
	switch {
	case rv < operand:
		cmp = -1
	case rv > operand:
		cmp = 1
	}
	return evalOrdered(cmp, cond.Op)
}

func coerceNumber(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		if strings.Contains(n, ".") {
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: operand %q is not numeric", dberr.ErrBadValue, n)
			}
			return f, nil
		}
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: operand %q is not numeric", dberr.ErrBadValue, n)
		}
		return float64(i), nil
	default:
		return 0, fmt.Errorf("%w: operand %T is not numeric", dberr.ErrBadValue, v)
	}
}

// evalOrdered applies op to a three-way comparison result. "<>" and "!="
// are synonyms.
func evalOrdered(cmp int, op string) (bool, error) {
	switch op {
	case "=":
		return cmp == 0, nil
	case "<>", "!=":
		return cmp != 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	default:
		return false, fmt.Errorf("%w: %q", dberr.ErrBadOperator, op)
	}
}

// matchesAll applies every condition with short-circuit AND semantics.
func matchesAll(rec map[string]interface{}, conds []Condition) (bool, error) {
	for _, c := range conds {
		ok, err := evaluate(rec[c.Column], c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// project restricts rec to the requested columns; nil columns means the
// full row. The result is a map, so it carries no column order.
func project(rec map[string]interface{}, columns []string) map[string]interface{} {
	if columns == nil {
		return rec
	}
	out := make(map[string]interface{}, len(columns))
	for _, c := range columns {
		if v, ok := rec[c]; ok {
			out[c] = v
		}
	}
	return out
}
