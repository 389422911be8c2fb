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

// ProviderAdapter implements the ProviderRepository interface
type ProviderAdapter struct {
	client *postgres.Client
	db     goqu.DialectWrapper
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		client: client,
		db:     goqu.Dialect("postgres"),
	}
}

// Search runs a paginated provider search
func (a *ProviderAdapter) Search(ctx context.Context, filter repositories.ProviderFilter) (*entities.Paginated[entities.Provider], error) {
	src := newProviderSource(a.db, filter)
	return engine.Execute[entities.Provider](ctx, a.client.DB(), src, filter.Page, filter.PerPage)
}

// providerSource binds one request's predicates and sort to the engine.
// Taxonomy clauses live in the Provider scope; workplace clauses hit the
// denormalized pfel snapshot columns in the Facility scope.
type providerSource struct {
	db     goqu.DialectWrapper
	ps     *engine.PredicateSet
	sortBy string
	ord    engine.Order
}

func newProviderSource(db goqu.DialectWrapper, f repositories.ProviderFilter) *providerSource {
	ps := &engine.PredicateSet{}

	ps.Entity = ps.Entity.
		With(engine.EqFold("p", "first_name", f.FirstName)).
		With(engine.EqFold("p", "last_name", f.LastName))

	ps.Provider = ps.Provider.
		With(engine.AnyEqFold("rsc", "role", f.Roles)).
		With(engine.AnyEqFold("rsc", "specialty", f.Specialties))
	if f.LicenseStateID != nil {
		ps.Provider = ps.Provider.With(engine.Exact("pt", "license_state_id", *f.LicenseStateID))
	}

	ps.Facility = ps.Facility.
		With(engine.AnyEqFold("pfel", "facility_city", f.FacilityCities)).
		With(engine.AnyEqFold("pfel", "facility_state_name", f.FacilityStates)).
		With(engine.ContainsFold("pfel", "facility_address", f.FacilityAddress)).
		With(engine.Exact("pfel", "facility_zipcode", f.FacilityZipcode)).
		With(engine.AnyEqFold("pfel", "facility_name", f.FacilityNames)).
		With(engine.AnyEqFold("pfel", "employer_name", f.EmployerNames)).
		With(engine.AnyEqFold("pfel", "facility_type", f.FacilityTypes)).
		With(engine.AnyEqFold("pfel", "facility_subtype", f.FacilitySubtypes))

	return &providerSource{
		db:     db,
		ps:     ps,
		sortBy: f.SortBy,
		ord:    engine.NormalizeOrder(f.SortOrder),
	}
}

// taxonomyScope joins a provider's taxonomy codes to their role and
// specialty classification, carrying the request's taxonomy clauses
func (s *providerSource) taxonomyScope(t engine.Tables, corr exp.Expression) *goqu.SelectDataset {
	ds := s.db.From(goqu.T("provider_taxonomies").As(t["pt"])).
		Join(goqu.T("roles_specialties_classification").As(t["rsc"]), goqu.On(goqu.I(t["rsc"]+".nucc_code").Eq(goqu.I(t["pt"]+".nucc_code")))).
		Where(corr)
	return s.ps.Provider.Apply(ds, t)
}

// workplaceScope selects a provider's pfel link rows under the request's
// workplace clauses
func (s *providerSource) workplaceScope(t engine.Tables, corr exp.Expression) *goqu.SelectDataset {
	ds := s.db.From(goqu.T("provider_facility_employer_linked").As(t["pfel"])).
		Where(corr)
	return s.ps.Facility.Apply(ds, t)
}

// base is the shared identification query. Every provider must carry a
// classified taxonomy; workplace clauses add a second EXISTS.
func (s *providerSource) base() *goqu.SelectDataset {
	ds := s.db.From(goqu.T("providers").As("p"))
	ds = s.ps.Entity.Apply(ds, engine.Tables{})

	taxonomy := s.taxonomyScope(
		aliases("", "pt", "rsc"),
		goqu.I("pt.npi").Eq(goqu.I("p.npi")),
	).Select(goqu.L("1"))
	ds = ds.Where(goqu.L("EXISTS ?", taxonomy))

	if !s.ps.Facility.Empty() {
		workplace := s.workplaceScope(
			aliases("", "pfel"),
			goqu.I("pfel.provider_id").Eq(goqu.I("p.npi")),
		).Select(goqu.L("1"))
		ds = ds.Where(goqu.L("EXISTS ?", workplace))
	}

	return ds
}

// Count builds the distinct-provider total
func (s *providerSource) Count() *goqu.SelectDataset {
	return s.base().Select(goqu.COUNT(goqu.DISTINCT("p.npi")))
}

// IdentifierPage builds the ordered identifier page
func (s *providerSource) IdentifierPage(limit, offset uint) *goqu.SelectDataset {
	return s.base().
		Select(goqu.I("p.npi")).
		Order(s.sortKey().Ordered(s.ord,
			goqu.I("p.last_name").Asc(),
			goqu.I("p.first_name").Asc(),
			goqu.I("p.npi").Asc(),
		)...).
		Limit(limit).
		Offset(offset)
}

// providerWorkplaceSortColumns maps workplace sort fields to pfel
// snapshot columns
var providerWorkplaceSortColumns = map[string]string{
	"facility_city":    "pfel_sort.facility_city",
	"facility_state":   "pfel_sort.facility_state_name",
	"facility_name":    "pfel_sort.facility_name",
	"employer_name":    "pfel_sort.employer_name",
	"facility_type":    "pfel_sort.facility_type",
	"facility_subtype": "pfel_sort.facility_subtype",
}

func (s *providerSource) sortKey() engine.SortKey {
	switch s.sortBy {
	case "first_name":
		return engine.ColumnKey("p.first_name", "p.last_name")
	case "role", "specialty":
		t := aliases("_sort", "pt", "rsc")
		col := goqu.I("rsc_sort." + s.sortBy)
		rep := s.taxonomyScope(t, goqu.I("pt_sort.npi").Eq(goqu.I("p.npi"))).
			Select(col).
			Order(engine.Ordered(col, s.ord)).
			Limit(1)
		return engine.RepKey(rep)
	case "licensure_state":
		rep := s.db.From(goqu.T("provider_taxonomies").As("pt_sort")).
			LeftJoin(goqu.T("states").As("ls_sort"), goqu.On(goqu.I("ls_sort.state_id").Eq(goqu.I("pt_sort.license_state_id")))).
			Where(goqu.I("pt_sort.npi").Eq(goqu.I("p.npi"))).
			Select(goqu.I("ls_sort.state_name")).
			Order(engine.Ordered(goqu.I("ls_sort.state_name"), s.ord)).
			Limit(1)
		return engine.RepKey(rep)
	}

	if col, ok := providerWorkplaceSortColumns[s.sortBy]; ok {
		c := goqu.I(col)
		rep := s.workplaceScope(aliases("_sort", "pfel"), goqu.I("pfel_sort.provider_id").Eq(goqu.I("p.npi"))).
			Select(c).
			Order(engine.Ordered(c, s.ord)).
			Limit(1)
		return engine.RepKey(rep)
	}

	// "name", "last_name" and anything unrecognized
	return engine.ColumnKey("p.last_name", "p.first_name")
}

func (s *providerSource) displayOrder(col string, field string) exp.OrderedExpression {
	if s.sortBy == field {
		return engine.Ordered(goqu.I(col), s.ord)
	}
	return goqu.I(col).Asc()
}

// Hydrate assembles one provider row plus its aggregated relations
func (s *providerSource) Hydrate(ctx context.Context, q engine.Querier, id string) (entities.Provider, error) {
	logger := observability.LoggerFromContext(ctx)

	core := s.db.From(goqu.T("providers").As("p")).
		Select(goqu.I("p.first_name"), goqu.I("p.last_name"), goqu.I("p.credentials")).
		Where(goqu.I("p.npi").Eq(id))

	query, args, err := core.Prepared(true).ToSQL()
	if err != nil {
		return entities.Provider{}, apperrors.NewInternalError("failed to build provider query", err)
	}

	var first, last, credentials sql.NullString
	if err := q.QueryRowContext(ctx, query, args...).Scan(&first, &last, &credentials); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Provider{}, apperrors.NewNotFoundError(fmt.Sprintf("provider %s not found", id))
		}
		return entities.Provider{}, apperrors.NewInternalError("failed to fetch provider", err)
	}

	provider := entities.Provider{
		Npi:         id,
		FirstName:   utils.TitleCase(first.String),
		LastName:    utils.TitleCase(last.String),
		Credentials: credentials.String,
	}

	rels := []engine.Relation{
		{Field: "roles", Build: s.classificationRelation("role")},
		{Field: "specialties", Build: s.classificationRelation("specialty")},
		{Field: "licensure_states", Build: s.licensureStatesRelation},
		{Field: "facility_cities", Build: s.workplaceColumnRelation("facility_city")},
		{Field: "facility_states", Build: s.workplaceColumnRelation("facility_state_name")},
		{Field: "facility_types", Build: s.workplaceColumnRelation("facility_type")},
		{Field: "facility_subtypes", Build: s.workplaceColumnRelation("facility_subtype")},
		{Field: "employer_names", Build: s.employerNamesRelation},
		{Field: "facility_names", Build: s.facilityNamesRelation},
	}
	values := engine.FetchRelations(ctx, q, id, rels, logger)

	provider.Roles = engine.Strings(values["roles"])
	provider.Specialties = engine.Strings(values["specialties"])
	provider.LicensureStates = engine.Strings(values["licensure_states"])
	provider.FacilityCities = engine.TitleStrings(values["facility_cities"])
	provider.FacilityStates = engine.Strings(values["facility_states"])
	provider.FacilityTypes = engine.Strings(values["facility_types"])
	provider.FacilitySubtypes = engine.Strings(values["facility_subtypes"])

	provider.EmployerNames = engine.DecodeList[entities.EmployerRef](values["employer_names"])
	for i := range provider.EmployerNames {
		provider.EmployerNames[i].Name = utils.TitleCase(provider.EmployerNames[i].Name)
	}

	provider.FacilityNames = engine.DecodeList[entities.FacilityRef](values["facility_names"])
	for i := range provider.FacilityNames {
		provider.FacilityNames[i].Name = utils.TitleCase(provider.FacilityNames[i].Name)
		provider.FacilityNames[i].City = utils.TitleCase(provider.FacilityNames[i].City)
		provider.FacilityNames[i].Address = utils.TitleCase(provider.FacilityNames[i].Address)
	}

	return provider, nil
}

func (s *providerSource) classificationRelation(column string) func(string) *goqu.SelectDataset {
	return func(id string) *goqu.SelectDataset {
		t := aliases("", "pt", "rsc")
		inner := s.taxonomyScope(t, goqu.I("pt.npi").Eq(id)).
			SelectDistinct(goqu.I("rsc." + column)).
			Order(s.displayOrder("rsc."+column, column))
		return s.db.From(inner.As("x")).
			Select(goqu.L(fmt.Sprintf("COALESCE(json_agg(x.%s), '[]'::json)", column)))
	}
}

func (s *providerSource) licensureStatesRelation(id string) *goqu.SelectDataset {
	inner := s.db.From(goqu.T("provider_taxonomies").As("pt")).
		LeftJoin(goqu.T("states").As("ls"), goqu.On(goqu.I("ls.state_id").Eq(goqu.I("pt.license_state_id")))).
		Where(goqu.I("pt.npi").Eq(id), goqu.I("ls.state_name").IsNotNull()).
		SelectDistinct(goqu.I("ls.state_name").As("state_name")).
		Order(s.displayOrder("ls.state_name", "licensure_state"))
	return s.db.From(inner.As("x")).
		Select(goqu.L("COALESCE(json_agg(x.state_name), '[]'::json)"))
}

// workplaceColumnRelation aggregates one distinct pfel snapshot column
// across a provider's matching links
func (s *providerSource) workplaceColumnRelation(column string) func(string) *goqu.SelectDataset {
	return func(id string) *goqu.SelectDataset {
		col := "pfel." + column
		inner := s.workplaceScope(aliases("", "pfel"), goqu.I("pfel.provider_id").Eq(id)).
			SelectDistinct(goqu.I(col)).
			Where(goqu.I(col).IsNotNull()).
			Order(s.workplaceDisplayOrder(col, column))
		return s.db.From(inner.As("x")).
			Select(goqu.L(fmt.Sprintf("COALESCE(json_agg(x.%s), '[]'::json)", column)))
	}
}

// workplaceDisplayOrder maps pfel snapshot columns back to their public
// sort field names before coupling order
func (s *providerSource) workplaceDisplayOrder(col, column string) exp.OrderedExpression {
	field := map[string]string{
		"facility_city":       "facility_city",
		"facility_state_name": "facility_state",
		"facility_type":       "facility_type",
		"facility_subtype":    "facility_subtype",
		"facility_name":       "facility_name",
		"employer_name":       "employer_name",
	}[column]
	return s.displayOrder(col, field)
}

func (s *providerSource) employerNamesRelation(id string) *goqu.SelectDataset {
	inner := s.workplaceScope(aliases("", "pfel"), goqu.I("pfel.provider_id").Eq(id)).
		SelectDistinct(
			goqu.I("pfel.employer_name").As("name"),
			goqu.I("pfel.employer_npi_or_ccn").As("ccn_or_npi"),
		).
		Where(goqu.I("pfel.employer_name").IsNotNull()).
		Order(s.displayOrder("pfel.employer_name", "employer_name"))
	return s.db.From(inner.As("x")).
		Select(goqu.L("COALESCE(json_agg(json_build_object('name', x.name, 'ccn_or_npi', x.ccn_or_npi)), '[]'::json)"))
}

// facilityNamesRelation lists the distinct facilities a provider works
// at, each with the count of classified providers affiliated there under
// the same taxonomy and name clauses as the main query
func (s *providerSource) facilityNamesRelation(id string) *goqu.SelectDataset {
	count := s.db.From(goqu.T("provider_entities").As("pe2")).
		Join(goqu.T("providers").As("p2"), goqu.On(goqu.I("p2.npi").Eq(goqu.I("pe2.provider_id")))).
		Join(goqu.T("provider_taxonomies").As("pt2"), goqu.On(goqu.I("pt2.npi").Eq(goqu.I("p2.npi")))).
		Join(goqu.T("roles_specialties_classification").As("rsc2"), goqu.On(goqu.I("rsc2.nucc_code").Eq(goqu.I("pt2.nucc_code")))).
		Where(goqu.I("pe2.npi_or_ccn").Eq(goqu.I("pfel.facility_npi_or_ccn")))
	count = s.ps.Entity.Apply(count, engine.Tables{"p": "p2"})
	count = s.ps.Provider.Apply(count, engine.Tables{"pt": "pt2", "rsc": "rsc2"})
	count = count.Select(goqu.COUNT(goqu.DISTINCT("pe2.provider_id")))

	inner := s.workplaceScope(aliases("", "pfel"), goqu.I("pfel.provider_id").Eq(id)).
		SelectDistinct(
			goqu.I("pfel.facility_name").As("name"),
			goqu.I("pfel.facility_npi_or_ccn").As("ccn_or_npi"),
			goqu.I("pfel.facility_type").As("type"),
			goqu.I("pfel.facility_subtype").As("subtype"),
			goqu.I("pfel.facility_address").As("address"),
			goqu.I("pfel.facility_zipcode").As("zip_code"),
			goqu.I("pfel.latitude").As("latitude"),
			goqu.I("pfel.longitude").As("longitude"),
			goqu.I("pfel.facility_state_name").As("state_name"),
			goqu.I("pfel.facility_state_code").As("state_code"),
			goqu.I("pfel.facility_city").As("city"),
			goqu.L("(?)", count).As("provider_count"),
		).
		Where(goqu.I("pfel.facility_name").IsNotNull()).
		Order(s.displayOrder("pfel.facility_name", "facility_name"))

	return s.db.From(inner.As("f")).
		Select(goqu.L(`COALESCE(json_agg(json_build_object(
			'name', f.name, 'ccn_or_npi', f.ccn_or_npi, 'type', f.type,
			'subtype', f.subtype, 'address', f.address, 'zip_code', f.zip_code,
			'latitude', f.latitude, 'longitude', f.longitude,
			'state_name', f.state_name, 'state_code', f.state_code,
			'city', f.city, 'provider_count', f.provider_count)), '[]'::json)`))
}
