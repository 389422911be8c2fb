package engine

import (
	"strings"
	"testing"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOrder(t *testing.T) {
	assert.Equal(t, Desc, NormalizeOrder("desc"))
	assert.Equal(t, Desc, NormalizeOrder(" DESC "))
	assert.Equal(t, Asc, NormalizeOrder("asc"))
	assert.Equal(t, Asc, NormalizeOrder("sideways"))
	assert.Equal(t, Asc, NormalizeOrder(""))
}

func renderOrdered(t *testing.T, key SortKey, ord Order) string {
	t.Helper()
	ds := goqu.Dialect("postgres").From("t").Order(key.Ordered(ord, goqu.I("t.id").Asc())...)
	query, _, err := ds.Prepared(true).ToSQL()
	require.NoError(t, err)
	return query
}

func TestColumnKey(t *testing.T) {
	query := renderOrdered(t, ColumnKey("t.last_name", "t.first_name"), Desc)
	assert.Contains(t, query, `"t"."last_name" DESC`)
	assert.Contains(t, query, `"t"."first_name" DESC`)
	assert.Contains(t, query, `"t"."id" ASC`)
}

func TestRepKey_WrapsSubqueryAndSinksNulls(t *testing.T) {
	rep := goqu.Dialect("postgres").From("r").Select(goqu.I("r.role")).Limit(1)

	asc := renderOrdered(t, RepKey(rep), Asc)
	assert.Contains(t, asc, "NULLIF(((SELECT")
	assert.Contains(t, asc, "''")
	assert.Contains(t, asc, "ASC NULLS LAST")

	desc := renderOrdered(t, RepKey(rep), Desc)
	assert.Contains(t, desc, "DESC NULLS LAST")
}

func TestCountKey_TreatsZeroAsAbsent(t *testing.T) {
	rep := goqu.Dialect("postgres").From("r").Select(goqu.COUNT(goqu.DISTINCT("r.id")))

	query := renderOrdered(t, CountKey(rep), Desc)
	assert.Contains(t, query, "NULLIF(((SELECT")
	assert.Contains(t, query, ", 0)")
	assert.Contains(t, query, "DESC NULLS LAST")
}

func TestSortKey_TieBreaksFollowKey(t *testing.T) {
	query := renderOrdered(t, ColumnKey("t.name"), Asc)
	assert.Less(t, strings.Index(query, `"t"."name"`), strings.Index(query, `"t"."id"`))
}
