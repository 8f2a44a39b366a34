package services

import (
	"fmt"
	"strings"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/observability"
	"github.com/healthbridge/HealthBridge/backend/internal/triage"
)

// Patient-context adjustment deltas. Each one is bounded and the running
// score is clamped after every step.
const (
	elderlyAgeThreshold = 65
	infantAgeThreshold  = 2
	elderlyAdjustment   = 10
	infantAdjustment    = 15

	chronicConditionAdjustment = 8
	chronicConditionCap        = 24

	priorEpisodeThreshold  = 3
	priorEpisodeAdjustment = 5
)

// SeverityService converts extracted symptoms and patient context into a
// bounded severity score and a discrete level. It depends only on the
// keyword table and runs even when the analysis result is degraded.
type SeverityService struct {
	table *triage.KeywordTable
}

// NewSeverityService creates a new severity service
func NewSeverityService(table *triage.KeywordTable) *SeverityService {
	return &SeverityService{
		table: table,
	}
}

// Assess scores one analyzed turn against the keyword table and the
// patient context. Emergency keywords always win: once one is detected
// the score is forced to at least the emergency floor regardless of the
// arithmetic result.
func (s *SeverityService) Assess(result *entities.AnalysisResult, patient *entities.PatientContext) *entities.SeverityAssessment {
	logger := observability.GetLogger()

	emergency := result.EmergencyKeywords
	redFlags := []string{}

	// Greeting/general-question fast path
	if len(result.Symptoms) == 0 && !emergency {
		return &entities.SeverityAssessment{
			Score:             0,
			Level:             entities.SeverityLow,
			EmergencyOverride: false,
			Reasoning:         "no symptoms reported",
			Symptoms:          []string{},
		}
	}

	score := 0
	matched := 0
	for _, symptom := range result.Symptoms {
		match, ok := s.table.MatchSymptom(symptom)
		if !ok {
			score = entities.ClampScore(score + s.table.UnmatchedWeight())
			continue
		}
		matched++
		score = entities.ClampScore(score + match.Weight)
		if match.Emergency {
			emergency = true
			redFlags = append(redFlags, symptom)
		}
	}

	score = s.applyPatientAdjustments(score, patient)

	if emergency && score < entities.EmergencyFloor {
		score = entities.EmergencyFloor
	}

	level := entities.LevelForScore(score)

	logger.Debug().
		Int("score", score).
		Str("level", string(level)).
		Bool("emergency_override", emergency).
		Int("symptoms", len(result.Symptoms)).
		Int("matched", matched).
		Msg("Severity assessed")

	return &entities.SeverityAssessment{
		Score:             score,
		Level:             level,
		EmergencyOverride: emergency,
		Reasoning:         buildReasoning(result, patient, matched, emergency),
		RedFlags:          redFlags,
		Symptoms:          result.Symptoms,
	}
}

func (s *SeverityService) applyPatientAdjustments(score int, patient *entities.PatientContext) int {
	if patient == nil {
		return score
	}

	age := patient.AgeOrDefault()
	if age >= elderlyAgeThreshold {
		score = entities.ClampScore(score + elderlyAdjustment)
	} else if age <= infantAgeThreshold {
		score = entities.ClampScore(score + infantAdjustment)
	}

	chronic := len(patient.ChronicConditions) * chronicConditionAdjustment
	if chronic > chronicConditionCap {
		chronic = chronicConditionCap
	}
	score = entities.ClampScore(score + chronic)

	if patient.PriorEpisodeCount >= priorEpisodeThreshold {
		score = entities.ClampScore(score + priorEpisodeAdjustment)
	}

	return score
}

func buildReasoning(result *entities.AnalysisResult, patient *entities.PatientContext, matched int, emergency bool) string {
	parts := []string{
		fmt.Sprintf("%d symptom(s) reported, %d matched severity keywords", len(result.Symptoms), matched),
	}

	if emergency {
		parts = append(parts, "emergency keywords detected")
	}
	if patient != nil {
		age := patient.AgeOrDefault()
		if age >= elderlyAgeThreshold || age <= infantAgeThreshold {
			parts = append(parts, fmt.Sprintf("age %d is a risk factor", age))
		}
		if len(patient.ChronicConditions) > 0 {
			parts = append(parts, fmt.Sprintf("%d chronic condition(s)", len(patient.ChronicConditions)))
		}
		if patient.PriorEpisodeCount >= priorEpisodeThreshold {
			parts = append(parts, fmt.Sprintf("%d prior episodes", patient.PriorEpisodeCount))
		}
	}
	if result.IsDegraded() {
		parts = append(parts, "analysis degraded, assessment based on partial data")
	}

	return strings.Join(parts, "; ")
}
