package repositories

import (
	"context"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
)

// FacilityRepository defines the interface for the facility directory.
type FacilityRepository interface {
	GetByID(ctx context.Context, id string) (*entities.Facility, error)
	FindNearestByType(ctx context.Context, facilityType entities.FacilityType, district string) (*entities.Facility, error)
}
