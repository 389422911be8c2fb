package repositories

import (
	"context"

	"github.com/caremap/caredirectory/backend/internal/domain/entities"
)

// Coord is one corner point of a map viewport. Either axis may be absent.
type Coord struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// FacilityFilter holds every facility search criterion. Zero values and
// empty lists mean "no constraint".
type FacilityFilter struct {
	Name              string   `json:"name"`
	Address           string   `json:"address"`
	Zipcode           string   `json:"zipcode"`
	Cities            []string `json:"city"`
	States            []string `json:"state"`
	Types             []string `json:"type"`
	Subtypes          []string `json:"subtype"`
	Roles             []string `json:"roles"`
	Specialties       []string `json:"specialties"`
	Employers         []string `json:"employers"`
	ProviderFirstName string   `json:"provider_first_name"`
	ProviderLastName  string   `json:"provider_last_name"`
	Coords            []Coord  `json:"coords"`

	Page      int    `json:"page"`
	PerPage   int    `json:"per_page"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

// EmployerFilter holds every employer search criterion
type EmployerFilter struct {
	Name              string   `json:"name"`
	Facilities        []string `json:"facilities"`
	Cities            []string `json:"city"`
	States            []string `json:"state"`
	Types             []string `json:"type"`
	Subtypes          []string `json:"subtype"`
	Address           string   `json:"address"`
	Zipcode           string   `json:"zipcode"`
	Roles             []string `json:"roles"`
	Specialties       []string `json:"specialties"`
	ProviderFirstName string   `json:"provider_first_name"`
	ProviderLastName  string   `json:"provider_last_name"`
	Coords            []Coord  `json:"coords"`

	Page      int    `json:"page"`
	PerPage   int    `json:"per_page"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

// ProviderFilter holds every provider search criterion
type ProviderFilter struct {
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Roles            []string `json:"roles"`
	Specialties      []string `json:"specialties"`
	LicenseStateID   *int     `json:"license_state_id"`
	FacilityCities   []string `json:"facility_cities"`
	FacilityStates   []string `json:"facility_states"`
	FacilityAddress  string   `json:"facility_address"`
	FacilityZipcode  string   `json:"facility_zipcode"`
	FacilityNames    []string `json:"facility_names"`
	EmployerNames    []string `json:"employer_names"`
	FacilityTypes    []string `json:"facility_types"`
	FacilitySubtypes []string `json:"facility_subtypes"`

	Page      int    `json:"page"`
	PerPage   int    `json:"per_page"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

// FacilityRepository searches care facilities
type FacilityRepository interface {
	Search(ctx context.Context, filter FacilityFilter) (*entities.Paginated[entities.Facility], error)
}

// EmployerRepository searches staffing organizations
type EmployerRepository interface {
	Search(ctx context.Context, filter EmployerFilter) (*entities.Paginated[entities.Employer], error)
}

// ProviderRepository searches individual practitioners
type ProviderRepository interface {
	Search(ctx context.Context, filter ProviderFilter) (*entities.Paginated[entities.Provider], error)
}
