package engine

import (
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// Tables maps logical table keys to the SQL aliases used in one query
// context. The same clause renders into the primary WHERE, a sort-key
// subquery or a hydration subquery just by swapping this map, which is
// what keeps selection and display predicates identical.
type Tables map[string]string

// Col resolves a logical table/column pair to a qualified identifier.
// Unmapped keys fall through unchanged so the logical name doubles as
// the default alias.
func (t Tables) Col(table, column string) exp.IdentifierExpression {
	if alias, ok := t[table]; ok {
		table = alias
	}
	return goqu.I(table + "." + column)
}

// Op enumerates the supported comparison kinds
type Op int

const (
	// OpEqFold compares case-insensitively for equality
	OpEqFold Op = iota
	// OpContainsFold matches a case-insensitive substring
	OpContainsFold
	// OpEq compares for exact equality
	OpEq
	// OpBetween checks a numeric column against an inclusive range
	OpBetween
)

// Cond is one comparison against a logical column
type Cond struct {
	Table  string
	Column string
	Op     Op
	Value  interface{}
	Lo, Hi float64
}

func (c Cond) expression(t Tables) goqu.Expression {
	col := t.Col(c.Table, c.Column)
	switch c.Op {
	case OpEqFold:
		return goqu.Func("LOWER", col).Eq(strings.ToLower(fmt.Sprint(c.Value)))
	case OpContainsFold:
		return col.ILike(fmt.Sprintf("%%%s%%", c.Value))
	case OpBetween:
		return col.Between(goqu.Range(c.Lo, c.Hi))
	default:
		return col.Eq(c.Value)
	}
}

// Clause is a disjunction over one logical filter field. An empty clause
// renders nothing.
type Clause struct {
	Conds []Cond
}

// Empty reports whether the clause has no conditions
func (c Clause) Empty() bool {
	return len(c.Conds) == 0
}

// Expression renders the clause against one alias context
func (c Clause) Expression(t Tables) goqu.Expression {
	if len(c.Conds) == 1 {
		return c.Conds[0].expression(t)
	}
	ors := make([]goqu.Expression, len(c.Conds))
	for i, cond := range c.Conds {
		ors[i] = cond.expression(t)
	}
	return goqu.Or(ors...)
}

// ContainsFold builds a substring clause, or an empty one for a blank term
func ContainsFold(table, column, term string) Clause {
	if strings.TrimSpace(term) == "" {
		return Clause{}
	}
	return Clause{Conds: []Cond{{Table: table, Column: column, Op: OpContainsFold, Value: term}}}
}

// EqFold builds a case-insensitive equality clause
func EqFold(table, column, value string) Clause {
	if strings.TrimSpace(value) == "" {
		return Clause{}
	}
	return Clause{Conds: []Cond{{Table: table, Column: column, Op: OpEqFold, Value: value}}}
}

// AnyEqFold builds a set-membership clause: the column matches any of the
// values case-insensitively. Blank members are dropped.
func AnyEqFold(table, column string, values []string) Clause {
	var conds []Cond
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		conds = append(conds, Cond{Table: table, Column: column, Op: OpEqFold, Value: v})
	}
	return Clause{Conds: conds}
}

// Exact builds an exact-equality clause
func Exact(table, column string, value interface{}) Clause {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return Clause{}
	}
	if value == nil {
		return Clause{}
	}
	return Clause{Conds: []Cond{{Table: table, Column: column, Op: OpEq, Value: value}}}
}

// Conj is a conjunction of clauses
type Conj []Clause

// With appends a clause, dropping empty ones
func (c Conj) With(cl Clause) Conj {
	if cl.Empty() {
		return c
	}
	return append(c, cl)
}

// Empty reports whether no clause survived
func (c Conj) Empty() bool {
	return len(c) == 0
}

// Expressions renders every clause against one alias context
func (c Conj) Expressions(t Tables) []goqu.Expression {
	exprs := make([]goqu.Expression, 0, len(c))
	for _, cl := range c {
		exprs = append(exprs, cl.Expression(t))
	}
	return exprs
}

// Apply ANDs the conjunction onto a dataset
func (c Conj) Apply(ds *goqu.SelectDataset, t Tables) *goqu.SelectDataset {
	for _, expr := range c.Expressions(t) {
		ds = ds.Where(expr)
	}
	return ds
}

// Coord is one corner point of a geographic viewport
type Coord struct {
	Lat *float64
	Lng *float64
}

// BoundingBox builds latitude and longitude range clauses from viewport
// corner points. Points missing either axis are dropped; fewer than two
// usable points yields no constraint.
func BoundingBox(table, latColumn, lngColumn string, coords []Coord) Conj {
	var lats, lngs []float64
	for _, c := range coords {
		if c.Lat == nil || c.Lng == nil {
			continue
		}
		lats = append(lats, *c.Lat)
		lngs = append(lngs, *c.Lng)
	}
	if len(lats) < 2 {
		return nil
	}

	minLat, maxLat := lats[0], lats[0]
	minLng, maxLng := lngs[0], lngs[0]
	for i := 1; i < len(lats); i++ {
		if lats[i] < minLat {
			minLat = lats[i]
		}
		if lats[i] > maxLat {
			maxLat = lats[i]
		}
		if lngs[i] < minLng {
			minLng = lngs[i]
		}
		if lngs[i] > maxLng {
			maxLng = lngs[i]
		}
	}

	return Conj{
		{Conds: []Cond{{Table: table, Column: latColumn, Op: OpBetween, Lo: minLat, Hi: maxLat}}},
		{Conds: []Cond{{Table: table, Column: lngColumn, Op: OpBetween, Lo: minLng, Hi: maxLng}}},
	}
}

// PredicateSet carries one request's filter conjunction, split by the
// scope each clause evaluates in. Entity clauses constrain the primary
// row; the others constrain related rows and surface through EXISTS
// subqueries, sort keys and hydration queries.
type PredicateSet struct {
	Entity   Conj
	Provider Conj
	Facility Conj
	Employer Conj
}
