package entities

// Gender represents the patient's reported gender
type Gender string

const (
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// PatientContext is the read-only patient input to severity scoring
type PatientContext struct {
	Age               *int     `json:"age,omitempty"`
	Gender            Gender   `json:"gender,omitempty"`
	ChronicConditions []string `json:"chronic_conditions,omitempty"`
	PriorEpisodeCount int      `json:"prior_episode_count"`
}

// AgeOrDefault returns the reported age, or the adult default when the
// caller did not supply one.
func (p *PatientContext) AgeOrDefault() int {
	if p == nil || p.Age == nil {
		return 30
	}
	return *p.Age
}
