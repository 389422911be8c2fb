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

// FacilityAdapter implements the FacilityRepository interface
type FacilityAdapter struct {
	client *postgres.Client
	db     goqu.DialectWrapper
}

// NewFacilityAdapter creates a new facility adapter
func NewFacilityAdapter(client *postgres.Client) repositories.FacilityRepository {
	return &FacilityAdapter{
		client: client,
		db:     goqu.Dialect("postgres"),
	}
}

// Search runs a paginated facility search
func (a *FacilityAdapter) Search(ctx context.Context, filter repositories.FacilityFilter) (*entities.Paginated[entities.Facility], error) {
	src := newFacilitySource(a.db, filter)
	return engine.Execute[entities.Facility](ctx, a.client.DB(), src, filter.Page, filter.PerPage)
}

// facilitySortColumns maps entity-local sort fields to their columns
var facilitySortColumns = map[string]string{
	"name":       "e.name",
	"type":       "e.type",
	"subtype":    "e.subtype",
	"city":       "e.city",
	"state_name": "s.state_name",
	"address":    "e.address",
	"zip_code":   "e.zip_code",
}

// facilitySource binds one request's predicates and sort to the engine
type facilitySource struct {
	db     goqu.DialectWrapper
	ps     *engine.PredicateSet
	sortBy string
	ord    engine.Order
}

func newFacilitySource(db goqu.DialectWrapper, f repositories.FacilityFilter) *facilitySource {
	ps := &engine.PredicateSet{}

	ps.Entity = ps.Entity.
		With(engine.ContainsFold("e", "name", f.Name)).
		With(engine.ContainsFold("e", "address", f.Address)).
		With(engine.Exact("e", "zip_code", f.Zipcode)).
		With(engine.AnyEqFold("e", "city", f.Cities)).
		With(engine.AnyEqFold("s", "state_name", f.States)).
		With(engine.AnyEqFold("e", "type", f.Types)).
		With(engine.AnyEqFold("e", "subtype", f.Subtypes))
	ps.Entity = append(ps.Entity, engine.BoundingBox("e", "latitude", "longitude", coords(f.Coords))...)

	ps.Provider = ps.Provider.
		With(engine.EqFold("p", "first_name", f.ProviderFirstName)).
		With(engine.EqFold("p", "last_name", f.ProviderLastName)).
		With(engine.AnyEqFold("rsc", "role", f.Roles)).
		With(engine.AnyEqFold("rsc", "specialty", f.Specialties))

	ps.Employer = ps.Employer.
		With(engine.AnyEqFold("emp", "name", f.Employers))

	return &facilitySource{
		db:     db,
		ps:     ps,
		sortBy: f.SortBy,
		ord:    engine.NormalizeOrder(f.SortOrder),
	}
}

func coords(in []repositories.Coord) []engine.Coord {
	out := make([]engine.Coord, len(in))
	for i, c := range in {
		out[i] = engine.Coord{Lat: c.Lat, Lng: c.Lng}
	}
	return out
}

// providerScope builds the affiliated-provider join path under one alias
// context, carrying the request's provider clauses
func (s *facilitySource) providerScope(t engine.Tables, corr exp.Expression) *goqu.SelectDataset {
	ds := s.db.From(goqu.T("provider_entities").As(t["pe"])).
		Join(goqu.T("providers").As(t["p"]), goqu.On(goqu.I(t["p"]+".npi").Eq(goqu.I(t["pe"]+".provider_id")))).
		Join(goqu.T("provider_taxonomies").As(t["pt"]), goqu.On(goqu.I(t["pt"]+".npi").Eq(goqu.I(t["p"]+".npi")))).
		Join(goqu.T("roles_specialties_classification").As(t["rsc"]), goqu.On(goqu.I(t["rsc"]+".nucc_code").Eq(goqu.I(t["pt"]+".nucc_code")))).
		Where(corr)
	return s.ps.Provider.Apply(ds, t)
}

// employerScope builds the linked-employer join path under one alias
// context. The link is only reachable through a classified provider, so
// the request's provider clauses constrain which employers count as
// linked, same as its employer clauses.
func (s *facilitySource) employerScope(t engine.Tables, corr exp.Expression) *goqu.SelectDataset {
	ds := s.db.From(goqu.T("provider_facility_employer_linked").As(t["pfel"])).
		Join(goqu.T("entities_enriched").As(t["emp"]), goqu.On(
			goqu.I(t["emp"]+".ccn_or_npi").Eq(goqu.I(t["pfel"]+".employer_npi_or_ccn")),
			goqu.I(t["emp"]+".is_employer").Eq(1),
		)).
		Join(goqu.T("providers").As(t["p"]), goqu.On(goqu.I(t["p"]+".npi").Eq(goqu.I(t["pfel"]+".provider_id")))).
		Join(goqu.T("provider_taxonomies").As(t["pt"]), goqu.On(goqu.I(t["pt"]+".npi").Eq(goqu.I(t["p"]+".npi")))).
		Join(goqu.T("roles_specialties_classification").As(t["rsc"]), goqu.On(goqu.I(t["rsc"]+".nucc_code").Eq(goqu.I(t["pt"]+".nucc_code")))).
		Where(corr)
	ds = s.ps.Provider.Apply(ds, t)
	return s.ps.Employer.Apply(ds, t)
}

// base is the shared identification query: facility rows under the full
// filter conjunction, related scopes folded in through EXISTS
func (s *facilitySource) base() *goqu.SelectDataset {
	ds := s.db.From(goqu.T("entities_enriched").As("e")).
		LeftJoin(goqu.T("states").As("s"), goqu.On(goqu.I("s.state_id").Eq(goqu.I("e.state_id")))).
		Where(goqu.I("e.is_employer").Eq(0))
	ds = s.ps.Entity.Apply(ds, engine.Tables{})

	if !s.ps.Provider.Empty() {
		sub := s.providerScope(
			aliases("", "pe", "p", "pt", "rsc"),
			goqu.I("pe.npi_or_ccn").Eq(goqu.I("e.ccn_or_npi")),
		).Select(goqu.L("1"))
		ds = ds.Where(goqu.L("EXISTS ?", sub))
	}

	if !s.ps.Employer.Empty() {
		sub := s.employerScope(
			aliases("", "pfel", "emp", "p", "pt", "rsc"),
			goqu.I("pfel.facility_npi_or_ccn").Eq(goqu.I("e.ccn_or_npi")),
		).Select(goqu.L("1"))
		ds = ds.Where(goqu.L("EXISTS ?", sub))
	}

	return ds
}

// Count builds the distinct-facility total
func (s *facilitySource) Count() *goqu.SelectDataset {
	return s.base().Select(goqu.COUNT(goqu.DISTINCT("e.ccn_or_npi")))
}

// IdentifierPage builds the ordered identifier page
func (s *facilitySource) IdentifierPage(limit, offset uint) *goqu.SelectDataset {
	return s.base().
		Select(goqu.I("e.ccn_or_npi")).
		Order(s.sortKey().Ordered(s.ord, goqu.I("e.name").Asc(), goqu.I("e.ccn_or_npi").Asc())...).
		Limit(limit).
		Offset(offset)
}

func (s *facilitySource) sortKey() engine.SortKey {
	switch s.sortBy {
	case "role", "specialty":
		return engine.RepKey(s.classificationRep(s.sortBy))
	case "employer":
		return engine.RepKey(s.employerRep())
	case "provider_count":
		t := aliases("_sort", "pe", "p", "pt", "rsc")
		rep := s.providerScope(t, goqu.I("pe_sort.npi_or_ccn").Eq(goqu.I("e.ccn_or_npi"))).
			Select(goqu.COUNT(goqu.DISTINCT("pe_sort.provider_id")))
		return engine.CountKey(rep)
	}

	col, ok := facilitySortColumns[s.sortBy]
	if !ok {
		col = "e.name"
	}
	return engine.ColumnKey(col)
}

// classificationRep is the representative role or specialty of a
// facility's matching providers, for derived sorts
func (s *facilitySource) classificationRep(column string) *goqu.SelectDataset {
	t := aliases("_sort", "pe", "p", "pt", "rsc")
	return s.providerScope(t, goqu.I("pe_sort.npi_or_ccn").Eq(goqu.I("e.ccn_or_npi"))).
		Select(goqu.I("rsc_sort." + column)).
		Order(engine.Ordered(goqu.I("rsc_sort."+column), s.ord)).
		Limit(1)
}

func (s *facilitySource) employerRep() *goqu.SelectDataset {
	t := aliases("_sort", "pfel", "emp", "p", "pt", "rsc")
	return s.employerScope(t, goqu.I("pfel_sort.facility_npi_or_ccn").Eq(goqu.I("e.ccn_or_npi"))).
		Select(goqu.I("emp_sort.name")).
		Order(engine.Ordered(goqu.I("emp_sort.name"), s.ord)).
		Limit(1)
}

// displayOrder couples a relation's ordering to the request sort: the
// field being sorted on keeps the requested direction, everything else
// lists ascending
func (s *facilitySource) displayOrder(col string, field string) exp.OrderedExpression {
	if s.sortBy == field {
		return engine.Ordered(goqu.I(col), s.ord)
	}
	return goqu.I(col).Asc()
}

// Hydrate assembles one facility row plus its aggregated relations
func (s *facilitySource) Hydrate(ctx context.Context, q engine.Querier, id string) (entities.Facility, error) {
	logger := observability.LoggerFromContext(ctx)

	core := s.db.From(goqu.T("entities_enriched").As("e")).
		LeftJoin(goqu.T("states").As("s"), goqu.On(goqu.I("s.state_id").Eq(goqu.I("e.state_id")))).
		Select(
			goqu.I("e.name"), goqu.I("e.type"), goqu.I("e.subtype"),
			goqu.I("e.address"), goqu.I("e.city"), goqu.I("e.zip_code"),
			goqu.I("s.state_name"), goqu.I("s.state_code"),
			goqu.I("e.latitude"), goqu.I("e.longitude"),
		).
		Where(goqu.I("e.ccn_or_npi").Eq(id), goqu.I("e.is_employer").Eq(0))

	query, args, err := core.Prepared(true).ToSQL()
	if err != nil {
		return entities.Facility{}, apperrors.NewInternalError("failed to build facility query", err)
	}

	var (
		name, ftype, subtype, address, city, zip sql.NullString
		stateName, stateCode                     sql.NullString
		lat, lng                                 sql.NullFloat64
	)
	err = q.QueryRowContext(ctx, query, args...).Scan(
		&name, &ftype, &subtype, &address, &city, &zip,
		&stateName, &stateCode, &lat, &lng,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Facility{}, apperrors.NewNotFoundError(fmt.Sprintf("facility %s not found", id))
		}
		return entities.Facility{}, apperrors.NewInternalError("failed to fetch facility", err)
	}

	facility := entities.Facility{
		Name:      utils.TitleCase(name.String),
		Type:      ftype.String,
		Subtype:   subtype.String,
		Address:   utils.TitleCase(address.String),
		City:      utils.TitleCase(city.String),
		State:     stateName.String,
		StateCode: stateCode.String,
		ZipCode:   zip.String,
		CcnOrNpi:  id,
		Latitude:  lat.Float64,
		Longitude: lng.Float64,
	}

	rels := []engine.Relation{
		{Field: "providers_count", Scalar: true, Build: s.providersCountRelation},
		{Field: "employers", Build: s.employersRelation},
		{Field: "roles", Build: s.classificationRelation("role")},
		{Field: "specialties", Build: s.classificationRelation("specialty")},
	}
	values := engine.FetchRelations(ctx, q, id, rels, logger)

	facility.ProvidersCount = values["providers_count"].Count
	facility.Roles = engine.Strings(values["roles"])
	facility.Specialties = engine.Strings(values["specialties"])

	facility.Employers = engine.DecodeList[entities.EmployerRef](values["employers"])
	for i := range facility.Employers {
		facility.Employers[i].Name = utils.TitleCase(facility.Employers[i].Name)
	}

	return facility, nil
}

func (s *facilitySource) providersCountRelation(id string) *goqu.SelectDataset {
	t := aliases("", "pe", "p", "pt", "rsc")
	return s.providerScope(t, goqu.I("pe.npi_or_ccn").Eq(id)).
		Select(goqu.COUNT(goqu.DISTINCT("pe.provider_id")))
}

func (s *facilitySource) classificationRelation(column string) func(string) *goqu.SelectDataset {
	return func(id string) *goqu.SelectDataset {
		t := aliases("", "pe", "p", "pt", "rsc")
		inner := s.providerScope(t, goqu.I("pe.npi_or_ccn").Eq(id)).
			SelectDistinct(goqu.I("rsc." + column)).
			Order(s.displayOrder("rsc."+column, column))
		return s.db.From(inner.As("x")).
			Select(goqu.L(fmt.Sprintf("COALESCE(json_agg(x.%s), '[]'::json)", column)))
	}
}

func (s *facilitySource) employersRelation(id string) *goqu.SelectDataset {
	t := aliases("", "pfel", "emp", "p", "pt", "rsc")
	inner := s.employerScope(t, goqu.I("pfel.facility_npi_or_ccn").Eq(id)).
		SelectDistinct(goqu.I("emp.name"), goqu.I("emp.ccn_or_npi")).
		Order(s.displayOrder("emp.name", "employer"))
	return s.db.From(inner.As("x")).
		Select(goqu.L("COALESCE(json_agg(json_build_object('name', x.name, 'ccn_or_npi', x.ccn_or_npi)), '[]'::json)"))
}
