package services

import (
	"context"
	"fmt"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/repositories"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/observability"
)

// RoutingService maps a severity assessment to a care tier, a priority,
// a timeframe and care instructions. The band-to-facility mapping lives
// in entities; this service never re-derives it.
type RoutingService struct {
	facilityRepo repositories.FacilityRepository
}

// NewRoutingService creates a new routing service
func NewRoutingService(facilityRepo repositories.FacilityRepository) *RoutingService {
	return &RoutingService{
		facilityRepo: facilityRepo,
	}
}

// Route builds the routing decision for an assessment. Facility
// resolution is best-effort: when the directory has no active facility
// of the recommended tier, the decision stands with a nil facility
// reference and reasoning noting the fallback.
func (s *RoutingService) Route(ctx context.Context, assessment *entities.SeverityAssessment, patient *entities.PatientContext, district string) *entities.RoutingDecision {
	logger := observability.LoggerFromContext(ctx)

	// Greeting bypass: no symptoms means no facility lookup at all, so a
	// plain greeting never gets a spurious low-severity facility assignment.
	if len(assessment.Symptoms) == 0 && !assessment.EmergencyOverride {
		return &entities.RoutingDecision{
			Symptoms:            []string{},
			SeverityScore:       assessment.Score,
			SeverityLevel:       assessment.Level,
			EmergencyOverride:   false,
			RecommendedFacility: entities.FacilityASHA,
			Reasoning:           assessment.Reasoning,
			Priority:            entities.PriorityLow,
			Timeframe:           entities.TimeframeAsNeeded,
			Instructions:        instructionsForLevel(entities.SeverityLow, patient),
			FollowUp:            followUpForLevel(entities.SeverityLow),
		}
	}

	facilityType := entities.FacilityForLevel(assessment.Level)
	reasoning := assessment.Reasoning

	var facilityID *string
	facility, err := s.facilityRepo.FindNearestByType(ctx, facilityType, district)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("facility_type", string(facilityType)).
			Str("district", district).
			Msg("Facility resolution failed, routing without facility reference")
		reasoning = fmt.Sprintf("%s; no %s facility resolved, directory fallback", reasoning, facilityType)
	} else {
		facilityID = &facility.ID
	}

	return &entities.RoutingDecision{
		Symptoms:            assessment.Symptoms,
		SeverityScore:       assessment.Score,
		SeverityLevel:       assessment.Level,
		EmergencyOverride:   assessment.EmergencyOverride,
		RecommendedFacility: facilityType,
		FacilityID:          facilityID,
		Reasoning:           reasoning,
		Priority:            entities.PriorityForLevel(assessment.Level),
		Timeframe:           timeframeForLevel(assessment.Level, len(assessment.Symptoms) > 0),
		Instructions:        instructionsForLevel(assessment.Level, patient),
		FollowUp:            followUpForLevel(assessment.Level),
	}
}

func timeframeForLevel(level entities.SeverityLevel, hasSymptoms bool) string {
	switch level {
	case entities.SeverityCritical:
		return entities.TimeframeImmediate
	case entities.SeverityHigh:
		return entities.TimeframeFourHours
	case entities.SeverityMedium:
		return entities.TimeframeOneTwoDays
	default:
		if hasSymptoms {
			return entities.TimeframeWithinDay
		}
		return entities.TimeframeAsNeeded
	}
}

func instructionsForLevel(level entities.SeverityLevel, patient *entities.PatientContext) []string {
	var instructions []string

	switch level {
	case entities.SeverityCritical:
		instructions = []string{
			"Call 108 immediately for ambulance",
			"Do not delay - go to nearest hospital",
			"Keep patient calm and comfortable",
			"Monitor breathing and consciousness",
		}
	case entities.SeverityHigh:
		instructions = []string{
			"Visit PHC or CHC within 2 hours",
			"Arrange transportation",
			"Bring medical history if available",
			"Monitor symptoms closely",
		}
	case entities.SeverityMedium:
		instructions = []string{
			"Contact ASHA worker for assessment",
			"Schedule PHC visit if symptoms persist",
			"Take prescribed medications",
			"Rest and maintain hydration",
		}
	default:
		instructions = []string{
			"Continue home care measures",
			"Monitor symptoms for changes",
			"Maintain good hygiene",
			"Seek care if symptoms worsen",
		}
	}

	if patient != nil {
		age := patient.AgeOrDefault()
		if age <= 5 {
			instructions = append(instructions, "Keep child hydrated and comfortable")
		} else if age >= elderlyAgeThreshold {
			instructions = append(instructions, "Monitor for complications due to age")
		}
	}

	return instructions
}

func followUpForLevel(level entities.SeverityLevel) string {
	switch level {
	case entities.SeverityCritical:
		return "hospital_admission"
	case entities.SeverityHigh:
		return "doctor_consultation_24h"
	case entities.SeverityMedium:
		return "asha_follow_up_48h"
	default:
		return "self_monitoring_72h"
	}
}
