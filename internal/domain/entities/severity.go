package entities

// SeverityLevel is the discrete triage level derived from the score
type SeverityLevel string

const (
	SeverityLow      SeverityLevel = "low"
	SeverityMedium   SeverityLevel = "medium"
	SeverityHigh     SeverityLevel = "high"
	SeverityCritical SeverityLevel = "critical"
)

// Severity band table. This mapping is the single source of truth for
// both the assessor and the routing engine:
//
//	0-40   low      -> ASHA
//	41-60  medium   -> PHC
//	61-80  high     -> CHC
//	81-100 critical -> EMERGENCY
const (
	lowBandMax    = 40
	mediumBandMax = 60
	highBandMax   = 80

	// MaxScore is the score ceiling; every adjustment clamps to it
	MaxScore = 100

	// EmergencyFloor is the minimum score once an emergency keyword is
	// detected; keyword detection always wins over the arithmetic score
	EmergencyFloor = 90
)

// LevelForScore maps a clamped score to its severity band
func LevelForScore(score int) SeverityLevel {
	switch {
	case score <= lowBandMax:
		return SeverityLow
	case score <= mediumBandMax:
		return SeverityMedium
	case score <= highBandMax:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// FacilityForLevel maps a severity band to its care tier
func FacilityForLevel(level SeverityLevel) FacilityType {
	switch level {
	case SeverityLow:
		return FacilityASHA
	case SeverityMedium:
		return FacilityPHC
	case SeverityHigh:
		return FacilityCHC
	default:
		return FacilityEmergency
	}
}

// PriorityForLevel maps a severity band to a dispatch priority
func PriorityForLevel(level SeverityLevel) Priority {
	switch level {
	case SeverityLow:
		return PriorityLow
	case SeverityMedium:
		return PriorityMedium
	case SeverityHigh:
		return PriorityHigh
	default:
		return PriorityCritical
	}
}

// ClampScore bounds a running score to [0, MaxScore]
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// SeverityAssessment is the scored outcome of one analyzed turn. It is
// never persisted on its own; it is always embedded in a RoutingDecision.
type SeverityAssessment struct {
	Score             int           `json:"score"`
	Level             SeverityLevel `json:"level"`
	EmergencyOverride bool          `json:"emergency_override"`
	Reasoning         string        `json:"reasoning"`
	RedFlags          []string      `json:"red_flags,omitempty"`
	Symptoms          []string      `json:"symptoms"`
}
