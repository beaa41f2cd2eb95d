package query

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is a flattened record used for in-process evaluation.
// Values use the canonical types produced by Schema.Normalize; a missing
// or nil value never satisfies a predicate and sorts last.
type Row map[Field]any

// Match reports whether row satisfies every predicate of f
func Match(f *Filter, row Row) bool {
	for _, p := range f.Predicates() {
		if !matchPredicate(p, row) {
			return false
		}
	}
	return true
}

func matchPredicate(p Predicate, row Row) bool {
	v := row[p.Target()]
	switch pred := p.(type) {
	case Exact:
		if v == nil {
			return false
		}
		c, ok := compare(v, pred.Value)
		return ok && c == 0
	case Contains:
		s, ok := v.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(pred.Value))
	case Range:
		if v == nil {
			return false
		}
		if pred.Gte != nil {
			if c, ok := compare(v, pred.Gte); !ok || c < 0 {
				return false
			}
		}
		if pred.Lte != nil {
			if c, ok := compare(v, pred.Lte); !ok || c > 0 {
				return false
			}
		}
		return true
	case In:
		s, ok := v.(string)
		if !ok {
			return false
		}
		for _, candidate := range pred.Values {
			if s == candidate {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Compare orders two rows by sort, falling back to the id field in the
// same direction. Nil values are placed last in either direction.
func Compare(a, b Row, sort Sort) int {
	if c := compareField(a[sort.Field], b[sort.Field], sort.Order); c != 0 {
		return c
	}
	if sort.Field == FieldID {
		return 0
	}
	return compareField(a[FieldID], b[FieldID], sort.Order)
}

func compareField(a, b any, order Order) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c, ok := compare(a, b)
	if !ok {
		return 0
	}
	if order == OrderDesc {
		return -c
	}
	return c
}

func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case int64:
		bv, ok := b.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case decimal.Decimal:
		bv, ok := b.(decimal.Decimal)
		if !ok {
			return 0, false
		}
		return av.Cmp(bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}
