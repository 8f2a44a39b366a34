package openai

import (
	"fmt"
	"strings"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
)

const triageSystemPrompt = `You are a rural community health assistant. ` +
	`The user describes how they feel in plain language, possibly mixing ` +
	`languages. Respond with a single JSON object and nothing else:
{
  "reply": "<short, calm, plain-language response to the user>",
  "symptoms": ["<normalized symptom keywords, snake_case, English>"],
  "emergency": <true when any symptom suggests chest pain, breathing difficulty, severe bleeding, unconsciousness or stroke>,
  "severity_hint": <optional integer 0-100, your rough severity estimate>
}
Never diagnose. Never recommend prescription medication. If the message ` +
	`is a greeting or general question, return an empty symptoms array.`

// buildTriageUserPrompt renders the user turn with whatever patient
// context the caller supplied.
func buildTriageUserPrompt(message string, patient *entities.PatientContext) string {
	var b strings.Builder
	b.WriteString("Patient message: ")
	b.WriteString(message)

	if patient == nil {
		return b.String()
	}

	b.WriteString("\nPatient context:")
	if patient.Age != nil {
		fmt.Fprintf(&b, " age %d.", *patient.Age)
	}
	if patient.Gender != "" && patient.Gender != entities.GenderUnknown {
		fmt.Fprintf(&b, " gender %s.", patient.Gender)
	}
	if len(patient.ChronicConditions) > 0 {
		fmt.Fprintf(&b, " chronic conditions: %s.", strings.Join(patient.ChronicConditions, ", "))
	}
	if patient.PriorEpisodeCount > 0 {
		fmt.Fprintf(&b, " prior episodes: %d.", patient.PriorEpisodeCount)
	}

	return b.String()
}
