package entities

// Provider represents an individual practitioner row in the directory
type Provider struct {
	Npi              string        `json:"npi"`
	FirstName        string        `json:"first_name"`
	LastName         string        `json:"last_name"`
	Credentials      string        `json:"credentials"`
	Roles            []string      `json:"roles"`
	Specialties      []string      `json:"specialties"`
	FacilityCities   []string      `json:"facility_cities"`
	FacilityStates   []string      `json:"facility_states"`
	LicensureStates  []string      `json:"licensure_states"`
	FacilityNames    []FacilityRef `json:"facility_names"`
	EmployerNames    []EmployerRef `json:"employer_names"`
	FacilityTypes    []string      `json:"facility_types"`
	FacilitySubtypes []string      `json:"facility_subtypes"`
}

// FacilityRef is the facility detail nested under a provider, with the
// count of classified providers affiliated with that facility
type FacilityRef struct {
	Name          string  `json:"name"`
	CcnOrNpi      string  `json:"ccn_or_npi"`
	Type          string  `json:"type"`
	Subtype       string  `json:"subtype"`
	Address       string  `json:"address"`
	ZipCode       string  `json:"zip_code"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	StateName     string  `json:"state_name"`
	StateCode     string  `json:"state_code"`
	City          string  `json:"city"`
	ProviderCount int     `json:"provider_count"`
}
