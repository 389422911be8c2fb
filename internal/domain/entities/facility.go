package entities

// Facility represents a care facility row in the directory
type Facility struct {
	Name           string        `json:"name"`
	Type           string        `json:"type"`
	Subtype        string        `json:"subtype"`
	Address        string        `json:"address"`
	City           string        `json:"city"`
	State          string        `json:"state"`
	StateCode      string        `json:"state_code"`
	ZipCode        string        `json:"zip_code"`
	CcnOrNpi       string        `json:"ccn_or_npi"`
	Latitude       float64       `json:"latitude"`
	Longitude      float64       `json:"longitude"`
	Employers      []EmployerRef `json:"employers"`
	Roles          []string      `json:"roles"`
	Specialties    []string      `json:"specialties"`
	ProvidersCount int           `json:"providers_count"`
}

// EmployerRef is the compact employer reference nested under facilities
// and providers
type EmployerRef struct {
	Name     string `json:"name"`
	CcnOrNpi string `json:"ccn_or_npi"`
}
