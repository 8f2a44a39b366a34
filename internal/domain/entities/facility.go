package entities

import "time"

// FacilityType is the escalating care tier a patient is routed to
type FacilityType string

const (
	FacilityASHA      FacilityType = "ASHA"
	FacilityPHC       FacilityType = "PHC"
	FacilityCHC       FacilityType = "CHC"
	FacilityEmergency FacilityType = "EMERGENCY"
)

// IsValid reports whether the facility type is a known care tier
func (t FacilityType) IsValid() bool {
	switch t {
	case FacilityASHA, FacilityPHC, FacilityCHC, FacilityEmergency:
		return true
	}
	return false
}

// WorkerType returns the healthcare worker role that staffs this tier
func (t FacilityType) WorkerType() WorkerType {
	switch t {
	case FacilityASHA:
		return WorkerASHA
	case FacilityPHC:
		return WorkerPHCDoctor
	case FacilityCHC:
		return WorkerCHCDoctor
	default:
		return WorkerEmergency
	}
}

// Facility is external reference data for a care location
type Facility struct {
	ID          string       `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Type        FacilityType `json:"facility_type" db:"facility_type"`
	District    string       `json:"district" db:"district"`
	Phone       string       `json:"phone" db:"phone"`
	Emergency   string       `json:"emergency_contact,omitempty" db:"emergency_contact"`
	Capacity    int          `json:"capacity" db:"capacity"`
	CurrentLoad int          `json:"current_load" db:"current_load"`
	IsActive    bool         `json:"is_active" db:"is_active"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// WorkerType is the role of a healthcare worker in the directory
type WorkerType string

const (
	WorkerASHA      WorkerType = "asha_worker"
	WorkerPHCDoctor WorkerType = "phc_doctor"
	WorkerCHCDoctor WorkerType = "chc_doctor"
	WorkerEmergency WorkerType = "emergency_responder"
)

// HealthWorker is a notifiable member of the worker directory. CurrentLoad
// is mutated only through the atomic claim/release repository operations.
type HealthWorker struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Type            WorkerType `json:"worker_type" db:"worker_type"`
	FacilityID      *string    `json:"facility_id,omitempty" db:"facility_id"`
	District        string     `json:"district" db:"district"`
	Phone           string     `json:"phone" db:"phone"`
	OnDuty          bool       `json:"on_duty" db:"on_duty"`
	CurrentLoad     int        `json:"current_load" db:"current_load"`
	NextAvailableAt time.Time  `json:"next_available_at" db:"next_available_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}
