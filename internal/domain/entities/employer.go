package entities

// Employer represents a staffing organization row in the directory
type Employer struct {
	Name           string         `json:"name"`
	CcnOrNpi       string         `json:"ccn_or_npi"`
	Roles          []string       `json:"roles"`
	Specialties    []string       `json:"specialties"`
	ProvidersCount int            `json:"providers_count"`
	Facilities     []FacilityInfo `json:"facilities"`
	FacilityCities []string       `json:"facility_cities"`
	FacilityStates []StateRef     `json:"facility_states"`
	FacilityTypes  []TypePair     `json:"facility_types"`
}

// FacilityInfo is the facility detail nested under an employer, with the
// count of that employer's providers working at the facility
type FacilityInfo struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Subtype       string  `json:"subtype"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	StateCode     string  `json:"state_code"`
	Address       string  `json:"address"`
	ZipCode       string  `json:"zip_code"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	CcnOrNpi      string  `json:"ccn_or_npi"`
	ProviderCount int     `json:"provider_count"`
}

// StateRef pairs a state name with its two-letter code
type StateRef struct {
	StateName string `json:"state_name"`
	StateCode string `json:"state_code"`
}

// TypePair pairs a facility type with its subtype
type TypePair struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
}
