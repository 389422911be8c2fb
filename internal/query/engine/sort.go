package engine

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// Order is a validated sort direction
type Order string

const (
	// Asc sorts ascending
	Asc Order = "asc"
	// Desc sorts descending
	Desc Order = "desc"
)

// NormalizeOrder folds arbitrary input to a valid direction, defaulting
// to ascending
func NormalizeOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Ordered orders an expression in the given direction
func Ordered(e exp.Orderable, ord Order) exp.OrderedExpression {
	if ord == Desc {
		return e.Desc()
	}
	return e.Asc()
}

// SortKey describes how one sortable field orders the identifier page.
// Entity-local fields list their columns; derived fields carry a
// correlated representative-value subquery instead.
type SortKey struct {
	Columns []exp.IdentifierExpression
	Rep     *goqu.SelectDataset
	Numeric bool
}

// ColumnKey builds a key over entity-local columns
func ColumnKey(columns ...string) SortKey {
	ids := make([]exp.IdentifierExpression, len(columns))
	for i, c := range columns {
		ids[i] = goqu.I(c)
	}
	return SortKey{Columns: ids}
}

// RepKey builds a key over a representative-value subquery
func RepKey(rep *goqu.SelectDataset) SortKey {
	return SortKey{Rep: rep}
}

// CountKey builds a key over a count-valued subquery
func CountKey(rep *goqu.SelectDataset) SortKey {
	return SortKey{Rep: rep, Numeric: true}
}

// Ordered renders the full ORDER BY list: the key in the requested
// direction, then the caller's tie-breaks. Derived keys wrap their
// subquery in NULLIF so rows with no representative value always sink
// to the bottom, whatever the direction.
func (k SortKey) Ordered(ord Order, ties ...exp.OrderedExpression) []exp.OrderedExpression {
	var keys []exp.OrderedExpression

	if k.Rep != nil {
		wrap := "NULLIF((?), '')"
		if k.Numeric {
			wrap = "NULLIF((?), 0)"
		}
		keys = append(keys, Ordered(goqu.L(wrap, k.Rep), ord).NullsLast())
	} else {
		for _, col := range k.Columns {
			keys = append(keys, Ordered(col, ord))
		}
	}

	return append(keys, ties...)
}
