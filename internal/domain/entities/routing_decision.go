package entities

import "time"

// Priority is the dispatch priority attached to a routing decision
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Timeframes per severity band. The low band has two variants depending
// on whether any symptom was reported.
const (
	TimeframeImmediate   = "immediate"
	TimeframeFourHours   = "4 hours"
	TimeframeOneTwoDays  = "24–48 hours"
	TimeframeWithinDay   = "within 24 hours"
	TimeframeAsNeeded    = "as needed"
)

// RoutingDecision is the persisted triage outcome for one analyzed user
// turn. Created exactly once per turn and immutable after creation; the
// dispatcher references it but never mutates it.
type RoutingDecision struct {
	ID                  string        `json:"id" db:"id"`
	ConversationID      string        `json:"conversation_id" db:"conversation_id"`
	MessageID           string        `json:"message_id" db:"message_id"`
	UserID              string        `json:"user_id" db:"user_id"`
	Symptoms            []string      `json:"symptoms" db:"symptoms"`
	SeverityScore       int           `json:"severity_score" db:"severity_score"`
	SeverityLevel       SeverityLevel `json:"severity_level" db:"severity_level"`
	EmergencyOverride   bool          `json:"emergency_override" db:"emergency_override"`
	RecommendedFacility FacilityType  `json:"recommended_facility" db:"recommended_facility"`
	FacilityID          *string       `json:"facility_id,omitempty" db:"facility_id"`
	Reasoning           string        `json:"reasoning" db:"reasoning"`
	Priority            Priority      `json:"priority" db:"priority"`
	Timeframe           string        `json:"timeframe" db:"timeframe"`
	Instructions        []string      `json:"instructions" db:"instructions"`
	FollowUp            string        `json:"follow_up" db:"follow_up"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
}
