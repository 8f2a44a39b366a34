package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/repositories"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
)

// FacilityAdapter implements the FacilityRepository interface
type FacilityAdapter struct {
	client *postgres.Client
}

// NewFacilityAdapter creates a new facility adapter
func NewFacilityAdapter(client *postgres.Client) repositories.FacilityRepository {
	return &FacilityAdapter{
		client: client,
	}
}

const facilityColumns = `
	id, name, facility_type, district, phone, emergency_contact,
	capacity, current_load, is_active, created_at, updated_at
`

// GetByID retrieves a facility by ID
func (a *FacilityAdapter) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE id = $1 AND is_active = true`

	facility, err := scanFacility(a.client.DB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("facility with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get facility", err)
	}

	return facility, nil
}

// FindNearestByType returns the least-loaded active facility of the given
// tier, preferring the caller's district when one is known. Directory data
// is incomplete in the field, so "nearest" is district match plus load,
// not geodistance.
func (a *FacilityAdapter) FindNearestByType(ctx context.Context, facilityType entities.FacilityType, district string) (*entities.Facility, error) {
	query := `
		SELECT ` + facilityColumns + `
		FROM facilities
		WHERE facility_type = $1 AND is_active = true
		ORDER BY (district = $2) DESC, current_load ASC, id ASC
		LIMIT 1
	`

	facility, err := scanFacility(a.client.DB().QueryRowContext(ctx, query, facilityType, district))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf(
			"no active facility of type %s found", facilityType))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to find facility", err)
	}

	return facility, nil
}

func scanFacility(row rowScanner) (*entities.Facility, error) {
	facility := &entities.Facility{}
	err := row.Scan(
		&facility.ID,
		&facility.Name,
		&facility.Type,
		&facility.District,
		&facility.Phone,
		&facility.Emergency,
		&facility.Capacity,
		&facility.CurrentLoad,
		&facility.IsActive,
		&facility.CreatedAt,
		&facility.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return facility, nil
}
