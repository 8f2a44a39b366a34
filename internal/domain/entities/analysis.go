package entities

// AnalysisStatus tags the outcome of a provider analysis call
type AnalysisStatus string

const (
	// AnalysisOK means the provider returned a complete, parseable result
	AnalysisOK AnalysisStatus = "ok"

	// AnalysisDegraded means the result was salvaged from partial output
	// or substituted after a terminal provider failure; symptoms may be
	// incomplete or empty
	AnalysisDegraded AnalysisStatus = "degraded"
)

// AnalysisResult is the outcome of one provider analysis turn. It is
// immutable once produced; the severity assessor is its only consumer.
type AnalysisResult struct {
	Symptoms          []string       `json:"symptoms"`
	EmergencyKeywords bool           `json:"emergency_keywords_detected"`
	RawReply          string         `json:"raw_reply"`
	SeverityHint      *int           `json:"severity_hint,omitempty"`
	Status            AnalysisStatus `json:"status"`
}

// IsDegraded reports whether the result came from the salvage/fallback path
func (r *AnalysisResult) IsDegraded() bool {
	return r.Status == AnalysisDegraded
}

// DegradedResult returns the empty-symptom fallback used when the
// provider fails terminally for the current turn.
func DegradedResult(reply string) *AnalysisResult {
	return &AnalysisResult{
		Symptoms: []string{},
		RawReply: reply,
		Status:   AnalysisDegraded,
	}
}

// ConversationTurn is one prior exchange passed to the provider as context
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
