package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/caremap/caredirectory/backend/internal/domain/entities"
	"github.com/caremap/caredirectory/backend/internal/domain/repositories"
	"github.com/caremap/caredirectory/backend/internal/infrastructure/clients/postgres"
	"github.com/caremap/caredirectory/backend/internal/infrastructure/observability"
	"github.com/caremap/caredirectory/backend/internal/query/engine"
	apperrors "github.com/caremap/caredirectory/backend/pkg/errors"
	"github.com/caremap/caredirectory/backend/pkg/utils"
)

// EmployerAdapter implements the EmployerRepository interface
type EmployerAdapter struct {
	client *postgres.Client
	db     goqu.DialectWrapper
}

// NewEmployerAdapter creates a new employer adapter
func NewEmployerAdapter(client *postgres.Client) repositories.EmployerRepository {
	return &EmployerAdapter{
		client: client,
		db:     goqu.Dialect("postgres"),
	}
}

// Search runs a paginated employer search
func (a *EmployerAdapter) Search(ctx context.Context, filter repositories.EmployerFilter) (*entities.Paginated[entities.Employer], error) {
	src := newEmployerSource(a.db, filter)
	return engine.Execute[entities.Employer](ctx, a.client.DB(), src, filter.Page, filter.PerPage)
}

// employerSource binds one request's predicates and sort to the engine.
// Facility-scope clauses reach employers through the pfel link table and
// its joined facility row; provider-scope clauses ride the same link.
type employerSource struct {
	db     goqu.DialectWrapper
	ps     *engine.PredicateSet
	sortBy string
	ord    engine.Order
}

func newEmployerSource(db goqu.DialectWrapper, f repositories.EmployerFilter) *employerSource {
	ps := &engine.PredicateSet{}

	ps.Entity = ps.Entity.
		With(engine.ContainsFold("e", "name", f.Name))

	ps.Provider = ps.Provider.
		With(engine.EqFold("p", "first_name", f.ProviderFirstName)).
		With(engine.EqFold("p", "last_name", f.ProviderLastName)).
		With(engine.AnyEqFold("rsc", "role", f.Roles)).
		With(engine.AnyEqFold("rsc", "specialty", f.Specialties))

	ps.Facility = ps.Facility.
		With(engine.AnyEqFold("fac", "name", f.Facilities)).
		With(engine.AnyEqFold("fac", "city", f.Cities)).
		With(engine.AnyEqFold("fs", "state_name", f.States)).
		With(engine.AnyEqFold("fac", "type", f.Types)).
		With(engine.AnyEqFold("fac", "subtype", f.Subtypes)).
		With(engine.ContainsFold("fac", "address", f.Address)).
		With(engine.Exact("fac", "zip_code", f.Zipcode))
	ps.Facility = append(ps.Facility, engine.BoundingBox("fac", "latitude", "longitude", coords(f.Coords))...)

	return &employerSource{
		db:     db,
		ps:     ps,
		sortBy: f.SortBy,
		ord:    engine.NormalizeOrder(f.SortOrder),
	}
}

// providerScope joins an employer's linked providers, their taxonomy
// classification and the facility each link points at, so provider and
// facility clauses constrain the same link rows
func (s *employerSource) providerScope(t engine.Tables, corr exp.Expression) *goqu.SelectDataset {
	ds := s.db.From(goqu.T("provider_facility_employer_linked").As(t["pfel"])).
		Join(goqu.T("providers").As(t["p"]), goqu.On(goqu.I(t["p"]+".npi").Eq(goqu.I(t["pfel"]+".provider_id")))).
		Join(goqu.T("provider_taxonomies").As(t["pt"]), goqu.On(goqu.I(t["pt"]+".npi").Eq(goqu.I(t["p"]+".npi")))).
		Join(goqu.T("roles_specialties_classification").As(t["rsc"]), goqu.On(goqu.I(t["rsc"]+".nucc_code").Eq(goqu.I(t["pt"]+".nucc_code")))).
		Join(goqu.T("entities_enriched").As(t["fac"]), goqu.On(goqu.I(t["fac"]+".ccn_or_npi").Eq(goqu.I(t["pfel"]+".facility_npi_or_ccn")))).
		LeftJoin(goqu.T("states").As(t["fs"]), goqu.On(goqu.I(t["fs"]+".state_id").Eq(goqu.I(t["fac"]+".state_id")))).
		Where(corr)
	ds = s.ps.Provider.Apply(ds, t)
	return s.ps.Facility.Apply(ds, t)
}

// facilityScope joins only the linked facilities, for requests with no
// provider clauses
func (s *employerSource) facilityScope(t engine.Tables, corr exp.Expression) *goqu.SelectDataset {
	ds := s.db.From(goqu.T("provider_facility_employer_linked").As(t["pfel"])).
		Join(goqu.T("entities_enriched").As(t["fac"]), goqu.On(goqu.I(t["fac"]+".ccn_or_npi").Eq(goqu.I(t["pfel"]+".facility_npi_or_ccn")))).
		LeftJoin(goqu.T("states").As(t["fs"]), goqu.On(goqu.I(t["fs"]+".state_id").Eq(goqu.I(t["fac"]+".state_id")))).
		Where(corr)
	return s.ps.Facility.Apply(ds, t)
}

func (s *employerSource) base() *goqu.SelectDataset {
	ds := s.db.From(goqu.T("entities_enriched").As("e")).
		Where(goqu.I("e.is_employer").Eq(1))
	ds = s.ps.Entity.Apply(ds, engine.Tables{})

	if !s.ps.Provider.Empty() {
		sub := s.providerScope(
			aliases("", "pfel", "p", "pt", "rsc", "fac", "fs"),
			goqu.I("pfel.employer_npi_or_ccn").Eq(goqu.I("e.ccn_or_npi")),
		).Select(goqu.L("1"))
		ds = ds.Where(goqu.L("EXISTS ?", sub))
	} else if !s.ps.Facility.Empty() {
		sub := s.facilityScope(
			aliases("", "pfel", "fac", "fs"),
			goqu.I("pfel.employer_npi_or_ccn").Eq(goqu.I("e.ccn_or_npi")),
		).Select(goqu.L("1"))
		ds = ds.Where(goqu.L("EXISTS ?", sub))
	}

	return ds
}

// Count builds the distinct-employer total
func (s *employerSource) Count() *goqu.SelectDataset {
	return s.base().Select(goqu.COUNT(goqu.DISTINCT("e.ccn_or_npi")))
}

// IdentifierPage builds the ordered identifier page
func (s *employerSource) IdentifierPage(limit, offset uint) *goqu.SelectDataset {
	return s.base().
		Select(goqu.I("e.ccn_or_npi")).
		Order(s.sortKey().Ordered(s.ord, goqu.I("e.name").Asc(), goqu.I("e.ccn_or_npi").Asc())...).
		Limit(limit).
		Offset(offset)
}

// employerFacilitySortColumns maps facility-derived sort fields to the
// columns their representative subquery selects
var employerFacilitySortColumns = map[string]string{
	"city":     "fac.city",
	"state":    "fs.state_name",
	"type":     "fac.type",
	"subtype":  "fac.subtype",
	"facility": "fac.name",
}

func (s *employerSource) sortKey() engine.SortKey {
	switch s.sortBy {
	case "role", "specialty":
		return engine.RepKey(s.classificationRep(s.sortBy))
	case "providers_count":
		t := aliases("_sort", "pfel", "p", "pt", "rsc", "fac", "fs")
		rep := s.providerScope(t, goqu.I("pfel_sort.employer_npi_or_ccn").Eq(goqu.I("e.ccn_or_npi"))).
			Select(goqu.COUNT(goqu.DISTINCT("pfel_sort.provider_id")))
		return engine.CountKey(rep)
	}

	if col, ok := employerFacilitySortColumns[s.sortBy]; ok {
		return engine.RepKey(s.facilityRep(col))
	}
	return engine.ColumnKey("e.name")
}

func (s *employerSource) classificationRep(column string) *goqu.SelectDataset {
	t := aliases("_sort", "pfel", "p", "pt", "rsc", "fac", "fs")
	return s.providerScope(t, goqu.I("pfel_sort.employer_npi_or_ccn").Eq(goqu.I("e.ccn_or_npi"))).
		Select(goqu.I("rsc_sort." + column)).
		Order(engine.Ordered(goqu.I("rsc_sort."+column), s.ord)).
		Limit(1)
}

// facilityRep is the representative value of a facility column across an
// employer's links. When provider clauses exist the representative is
// drawn only from links whose provider matches, keeping the sort key and
// the WHERE clause in agreement.
func (s *employerSource) facilityRep(column string) *goqu.SelectDataset {
	corr := goqu.I("pfel_sort.employer_npi_or_ccn").Eq(goqu.I("e.ccn_or_npi"))

	var ds *goqu.SelectDataset
	if !s.ps.Provider.Empty() {
		ds = s.providerScope(aliases("_sort", "pfel", "p", "pt", "rsc", "fac", "fs"), corr)
	} else {
		ds = s.facilityScope(aliases("_sort", "pfel", "fac", "fs"), corr)
	}

	sortCol := goqu.I(aliasColumn(column, "_sort"))
	return ds.Select(sortCol).
		Order(engine.Ordered(sortCol, s.ord)).
		Limit(1)
}

// aliasColumn rewrites "fac.city" into "fac_sort.city" style references
func aliasColumn(col, suffix string) string {
	for i := 0; i < len(col); i++ {
		if col[i] == '.' {
			return col[:i] + suffix + col[i:]
		}
	}
	return col
}

func (s *employerSource) displayOrder(col string, field string) exp.OrderedExpression {
	if s.sortBy == field {
		return engine.Ordered(goqu.I(col), s.ord)
	}
	return goqu.I(col).Asc()
}

// Hydrate assembles one employer row plus its aggregated relations
func (s *employerSource) Hydrate(ctx context.Context, q engine.Querier, id string) (entities.Employer, error) {
	logger := observability.LoggerFromContext(ctx)

	core := s.db.From(goqu.T("entities_enriched").As("e")).
		Select(goqu.I("e.name")).
		Where(goqu.I("e.ccn_or_npi").Eq(id), goqu.I("e.is_employer").Eq(1))

	query, args, err := core.Prepared(true).ToSQL()
	if err != nil {
		return entities.Employer{}, apperrors.NewInternalError("failed to build employer query", err)
	}

	var name sql.NullString
	if err := q.QueryRowContext(ctx, query, args...).Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Employer{}, apperrors.NewNotFoundError(fmt.Sprintf("employer %s not found", id))
		}
		return entities.Employer{}, apperrors.NewInternalError("failed to fetch employer", err)
	}

	employer := entities.Employer{
		Name:     utils.TitleCase(name.String),
		CcnOrNpi: id,
	}

	rels := []engine.Relation{
		{Field: "providers_count", Scalar: true, Build: s.providersCountRelation},
		{Field: "roles", Build: s.classificationRelation("role")},
		{Field: "specialties", Build: s.classificationRelation("specialty")},
		{Field: "facilities", Build: s.facilitiesRelation},
		{Field: "facility_cities", Build: s.facilityColumnRelation("fac.city", "city")},
		{Field: "facility_states", Build: s.facilityStatesRelation},
		{Field: "facility_types", Build: s.facilityTypesRelation},
	}
	values := engine.FetchRelations(ctx, q, id, rels, logger)

	employer.ProvidersCount = values["providers_count"].Count
	employer.Roles = engine.Strings(values["roles"])
	employer.Specialties = engine.Strings(values["specialties"])
	employer.FacilityCities = engine.TitleStrings(values["facility_cities"])
	employer.FacilityStates = engine.DecodeList[entities.StateRef](values["facility_states"])
	employer.FacilityTypes = engine.DecodeList[entities.TypePair](values["facility_types"])

	employer.Facilities = engine.DecodeList[entities.FacilityInfo](values["facilities"])
	for i := range employer.Facilities {
		employer.Facilities[i].Name = utils.TitleCase(employer.Facilities[i].Name)
		employer.Facilities[i].City = utils.TitleCase(employer.Facilities[i].City)
		employer.Facilities[i].Address = utils.TitleCase(employer.Facilities[i].Address)
	}

	return employer, nil
}

func (s *employerSource) providersCountRelation(id string) *goqu.SelectDataset {
	t := aliases("", "pfel", "p", "pt", "rsc", "fac", "fs")
	return s.providerScope(t, goqu.I("pfel.employer_npi_or_ccn").Eq(id)).
		Select(goqu.COUNT(goqu.DISTINCT("pfel.provider_id")))
}

func (s *employerSource) classificationRelation(column string) func(string) *goqu.SelectDataset {
	return func(id string) *goqu.SelectDataset {
		t := aliases("", "pfel", "p", "pt", "rsc", "fac", "fs")
		inner := s.providerScope(t, goqu.I("pfel.employer_npi_or_ccn").Eq(id)).
			SelectDistinct(goqu.I("rsc." + column)).
			Order(s.displayOrder("rsc."+column, column))
		return s.db.From(inner.As("x")).
			Select(goqu.L(fmt.Sprintf("COALESCE(json_agg(x.%s), '[]'::json)", column)))
	}
}

// facilityBase lists an employer's linked facilities under the request's
// facility clauses, requiring at least one matching classified provider
// on the link
func (s *employerSource) facilityBase(id string) *goqu.SelectDataset {
	member := s.db.From(goqu.T("provider_facility_employer_linked").As("pfel_m")).
		Select(goqu.I("pfel_m.facility_npi_or_ccn")).
		Where(goqu.I("pfel_m.employer_npi_or_ccn").Eq(id))

	t3 := aliases("3", "pfel", "p", "pt", "rsc", "fac", "fs")
	matching := s.providerScope(t3, goqu.And(
		goqu.I("pfel3.facility_npi_or_ccn").Eq(goqu.I("fac.ccn_or_npi")),
		goqu.I("pfel3.employer_npi_or_ccn").Eq(id),
	)).Select(goqu.L("1"))

	ds := s.db.From(goqu.T("entities_enriched").As("fac")).
		LeftJoin(goqu.T("states").As("fs"), goqu.On(goqu.I("fs.state_id").Eq(goqu.I("fac.state_id")))).
		Where(goqu.I("fac.ccn_or_npi").In(member)).
		Where(goqu.L("EXISTS ?", matching))

	return s.ps.Facility.Apply(ds, aliases("", "fac", "fs"))
}

func (s *employerSource) facilitiesRelation(id string) *goqu.SelectDataset {
	t2 := aliases("2", "pfel", "p", "pt", "rsc", "fac", "fs")
	count := s.providerScope(t2, goqu.And(
		goqu.I("pfel2.facility_npi_or_ccn").Eq(goqu.I("fac.ccn_or_npi")),
		goqu.I("pfel2.employer_npi_or_ccn").Eq(id),
	)).Select(goqu.COUNT(goqu.DISTINCT("pfel2.provider_id")))

	inner := s.facilityBase(id).
		Select(
			goqu.I("fac.name"), goqu.I("fac.type"), goqu.I("fac.subtype"),
			goqu.I("fac.city"),
			goqu.I("fs.state_name").As("state_name"),
			goqu.I("fs.state_code").As("state_code"),
			goqu.I("fac.address"), goqu.I("fac.zip_code"),
			goqu.I("fac.latitude"), goqu.I("fac.longitude"),
			goqu.I("fac.ccn_or_npi"),
			goqu.L("(?)", count).As("provider_count"),
		).
		Order(s.displayOrder("fac.name", "facility"))

	return s.db.From(inner.As("f")).
		Select(goqu.L(`COALESCE(json_agg(json_build_object(
			'name', f.name, 'type', f.type, 'subtype', f.subtype,
			'city', f.city, 'state', f.state_name, 'state_code', f.state_code,
			'address', f.address, 'zip_code', f.zip_code,
			'latitude', f.latitude, 'longitude', f.longitude,
			'ccn_or_npi', f.ccn_or_npi, 'provider_count', f.provider_count)), '[]'::json)`))
}

// facilityColumnRelation aggregates one distinct facility column across
// an employer's matching links
func (s *employerSource) facilityColumnRelation(col, field string) func(string) *goqu.SelectDataset {
	return func(id string) *goqu.SelectDataset {
		outCol := col[len("fac."):]
		inner := s.facilityBase(id).
			SelectDistinct(goqu.I(col)).
			Where(goqu.I(col).IsNotNull()).
			Order(s.displayOrder(col, field))
		return s.db.From(inner.As("x")).
			Select(goqu.L(fmt.Sprintf("COALESCE(json_agg(x.%s), '[]'::json)", outCol)))
	}
}

func (s *employerSource) facilityStatesRelation(id string) *goqu.SelectDataset {
	inner := s.facilityBase(id).
		SelectDistinct(
			goqu.I("fs.state_name").As("state_name"),
			goqu.I("fs.state_code").As("state_code"),
		).
		Where(goqu.I("fs.state_name").IsNotNull()).
		Order(s.displayOrder("fs.state_name", "state"))
	return s.db.From(inner.As("x")).
		Select(goqu.L("COALESCE(json_agg(json_build_object('state_name', x.state_name, 'state_code', x.state_code)), '[]'::json)"))
}

func (s *employerSource) facilityTypesRelation(id string) *goqu.SelectDataset {
	inner := s.facilityBase(id).
		SelectDistinct(goqu.I("fac.type"), goqu.I("fac.subtype")).
		Where(goqu.I("fac.type").IsNotNull()).
		Order(s.displayOrder("fac.type", "type"))
	return s.db.From(inner.As("x")).
		Select(goqu.L("COALESCE(json_agg(json_build_object('type', x.type, 'subtype', COALESCE(x.subtype, ''))), '[]'::json)"))
}
