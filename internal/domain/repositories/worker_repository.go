package repositories

import (
	"context"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
)

// WorkerFilter narrows worker directory listings
type WorkerFilter struct {
	Type     entities.WorkerType
	District string
	OnDuty   *bool
	Limit    int
	Offset   int
}

// WorkerRepository defines the interface for the healthcare worker
// directory. ClaimLeastLoaded must atomically select the least-loaded
// on-duty worker of the given type and increment its load, so two
// concurrent dispatches can never both claim the same slot.
type WorkerRepository interface {
	GetByID(ctx context.Context, id string) (*entities.HealthWorker, error)
	List(ctx context.Context, filter WorkerFilter) ([]*entities.HealthWorker, error)
	ClaimLeastLoaded(ctx context.Context, workerType entities.WorkerType, district string) (*entities.HealthWorker, error)
	ReleaseLoad(ctx context.Context, workerID string) error
}
