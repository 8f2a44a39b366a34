package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/repositories"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
)

// WorkerAdapter implements the WorkerRepository interface against the
// healthcare worker directory.
type WorkerAdapter struct {
	client  *postgres.Client
	dialect goqu.DialectWrapper
}

// NewWorkerAdapter creates a new worker adapter
func NewWorkerAdapter(client *postgres.Client) repositories.WorkerRepository {
	return &WorkerAdapter{
		client:  client,
		dialect: goqu.Dialect("postgres"),
	}
}

const workerColumns = `
	id, name, worker_type, facility_id, district, phone,
	on_duty, current_load, next_available_at, created_at, updated_at
`

// GetByID retrieves a worker by ID
func (a *WorkerAdapter) GetByID(ctx context.Context, id string) (*entities.HealthWorker, error) {
	query := `SELECT ` + workerColumns + ` FROM health_workers WHERE id = $1`

	worker, err := scanWorker(a.client.DB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("worker with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get worker", err)
	}

	return worker, nil
}

// List retrieves workers matching the filter
func (a *WorkerAdapter) List(ctx context.Context, filter repositories.WorkerFilter) ([]*entities.HealthWorker, error) {
	ds := a.dialect.From("health_workers").Select(
		"id", "name", "worker_type", "facility_id", "district", "phone",
		"on_duty", "current_load", "next_available_at", "created_at", "updated_at",
	)

	if filter.Type != "" {
		ds = ds.Where(goqu.C("worker_type").Eq(string(filter.Type)))
	}
	if filter.District != "" {
		ds = ds.Where(goqu.C("district").Eq(filter.District))
	}
	if filter.OnDuty != nil {
		ds = ds.Where(goqu.C("on_duty").Eq(*filter.OnDuty))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	ds = ds.Order(
		goqu.C("current_load").Asc(),
		goqu.C("next_available_at").Asc(),
		goqu.C("id").Asc(),
	).Limit(uint(limit)).Offset(uint(filter.Offset))

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build worker query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list workers", err)
	}
	defer rows.Close()

	var workers []*entities.HealthWorker
	for rows.Next() {
		worker, err := scanWorker(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan worker", err)
		}
		workers = append(workers, worker)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate workers", err)
	}

	return workers, nil
}

// ClaimLeastLoaded atomically selects the least-loaded on-duty worker of
// the given type and increments its load. The row lock makes two
// concurrent dispatches serialize on the same candidate instead of both
// claiming it; ties break by earliest next-available slot, then worker id.
func (a *WorkerAdapter) ClaimLeastLoaded(ctx context.Context, workerType entities.WorkerType, district string) (*entities.HealthWorker, error) {
	query := `
		UPDATE health_workers
		SET current_load = current_load + 1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM health_workers
			WHERE worker_type = $1
			  AND on_duty = true
			  AND ($2 = '' OR district = $2)
			ORDER BY current_load ASC, next_available_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + workerColumns

	worker, err := scanWorker(a.client.DB().QueryRowContext(ctx, query, workerType, district))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf(
			"no on-duty worker of type %s available", workerType))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to claim worker", err)
	}

	return worker, nil
}

// ReleaseLoad decrements a worker's load when an episode completes
func (a *WorkerAdapter) ReleaseLoad(ctx context.Context, workerID string) error {
	query := `
		UPDATE health_workers
		SET current_load = GREATEST(current_load - 1, 0), updated_at = NOW()
		WHERE id = $1
	`

	result, err := a.client.DB().ExecContext(ctx, query, workerID)
	if err != nil {
		return apperrors.NewInternalError("failed to release worker load", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to release worker load", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("worker with id %s not found", workerID))
	}

	return nil
}

func scanWorker(row rowScanner) (*entities.HealthWorker, error) {
	worker := &entities.HealthWorker{}
	err := row.Scan(
		&worker.ID,
		&worker.Name,
		&worker.Type,
		&worker.FacilityID,
		&worker.District,
		&worker.Phone,
		&worker.OnDuty,
		&worker.CurrentLoad,
		&worker.NextAvailableAt,
		&worker.CreatedAt,
		&worker.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return worker, nil
}
