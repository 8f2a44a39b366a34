package providers

import (
	"context"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
)

// AnalysisProvider defines the boundary to the natural-language analysis
// provider. Implementations own retry/backoff and timeout policy toward
// the provider; callers receive either a usable (possibly degraded)
// result or a typed terminal error.
type AnalysisProvider interface {
	Analyze(ctx context.Context, message string, history []entities.ConversationTurn, patient *entities.PatientContext) (*entities.AnalysisResult, error)
}
