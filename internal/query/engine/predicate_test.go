package engine

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderWhere(t *testing.T, conj Conj, tables Tables) (string, []interface{}) {
	t.Helper()
	ds := goqu.Dialect("postgres").From("t")
	ds = conj.Apply(ds, tables)
	query, args, err := ds.Prepared(true).ToSQL()
	require.NoError(t, err)
	return query, args
}

func TestEqFold(t *testing.T) {
	conj := Conj{}.With(EqFold("e", "city", "Boston"))

	query, args := renderWhere(t, conj, Tables{})
	assert.Contains(t, query, `LOWER("e"."city") = `)
	assert.Equal(t, []interface{}{"boston"}, args)
}

func TestEqFold_BlankValueIsDropped(t *testing.T) {
	conj := Conj{}.With(EqFold("e", "city", "  "))
	assert.True(t, conj.Empty())
}

func TestContainsFold(t *testing.T) {
	conj := Conj{}.With(ContainsFold("e", "name", "mercy"))

	query, args := renderWhere(t, conj, Tables{})
	assert.Contains(t, query, `"e"."name" ILIKE `)
	assert.Equal(t, []interface{}{"%mercy%"}, args)
}

func TestAnyEqFold_RendersDisjunction(t *testing.T) {
	conj := Conj{}.With(AnyEqFold("e", "type", []string{"Hospital", "Clinic"}))

	query, args := renderWhere(t, conj, Tables{})
	assert.Contains(t, query, " OR ")
	assert.Equal(t, []interface{}{"hospital", "clinic"}, args)
}

func TestAnyEqFold_DropsBlankMembers(t *testing.T) {
	conj := Conj{}.With(AnyEqFold("e", "type", []string{"", "Clinic", " "}))

	_, args := renderWhere(t, conj, Tables{})
	assert.Equal(t, []interface{}{"clinic"}, args)
}

func TestClauses_AreANDedTogether(t *testing.T) {
	conj := Conj{}.
		With(EqFold("e", "city", "Boston")).
		With(AnyEqFold("e", "type", []string{"Hospital", "Clinic"}))

	query, _ := renderWhere(t, conj, Tables{})
	assert.Contains(t, query, " AND ")
}

func TestTables_SwapsAliasWithoutRebuildingClause(t *testing.T) {
	clause := EqFold("pe", "npi_or_ccn", "12345")

	primary := Conj{}.With(clause)
	q1, args1 := renderWhere(t, primary, Tables{})
	q2, args2 := renderWhere(t, primary, Tables{"pe": "pe_sort"})

	assert.Contains(t, q1, `"pe"."npi_or_ccn"`)
	assert.Contains(t, q2, `"pe_sort"."npi_or_ccn"`)
	assert.Equal(t, args1, args2)
}

func TestExact(t *testing.T) {
	conj := Conj{}.With(Exact("e", "zip_code", "02115"))

	query, args := renderWhere(t, conj, Tables{})
	assert.Contains(t, query, `"e"."zip_code" = `)
	assert.Equal(t, []interface{}{"02115"}, args)
}

func TestBoundingBox(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	t.Run("two corners produce lat and lng ranges", func(t *testing.T) {
		conj := BoundingBox("e", "latitude", "longitude", []Coord{
			{Lat: f(42.1), Lng: f(-71.3)},
			{Lat: f(41.8), Lng: f(-70.9)},
		})
		require.Len(t, conj, 2)

		query, args := renderWhere(t, conj, Tables{})
		assert.Contains(t, query, `"e"."latitude" BETWEEN `)
		assert.Contains(t, query, `"e"."longitude" BETWEEN `)
		assert.Equal(t, []interface{}{41.8, 42.1, -71.3, -70.9}, args)
	})

	t.Run("a point missing one axis is dropped", func(t *testing.T) {
		conj := BoundingBox("e", "latitude", "longitude", []Coord{
			{Lat: f(42.1), Lng: f(-71.3)},
			{Lat: f(41.8)},
		})
		assert.Empty(t, conj)
	})

	t.Run("a single point yields no constraint", func(t *testing.T) {
		conj := BoundingBox("e", "latitude", "longitude", []Coord{
			{Lat: f(42.1), Lng: f(-71.3)},
		})
		assert.Empty(t, conj)
	})

	t.Run("no points yields no constraint", func(t *testing.T) {
		assert.Empty(t, BoundingBox("e", "latitude", "longitude", nil))
	})
}
