package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/repositories"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
)

func workerRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "worker_type", "facility_id", "district", "phone",
		"on_duty", "current_load", "next_available_at", "created_at", "updated_at",
	})
	now := time.Now().UTC()
	for _, id := range ids {
		rows.AddRow(id, "Asha Devi", "phc_doctor", nil, "district-7", "+911234567890",
			true, 2, now, now, now)
	}
	return rows
}

func TestWorkerAdapter_GetByID(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerAdapter(client)

	mock.ExpectQuery("SELECT (.+) FROM health_workers WHERE id").
		WithArgs("w-1").
		WillReturnRows(workerRows("w-1"))

	worker, err := adapter.GetByID(context.Background(), "w-1")
	require.NoError(t, err)

	assert.Equal(t, "w-1", worker.ID)
	assert.Equal(t, entities.WorkerPHCDoctor, worker.Type)
	assert.Equal(t, 2, worker.CurrentLoad)
	assert.True(t, worker.OnDuty)
}

func TestWorkerAdapter_GetByID_NotFound(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerAdapter(client)

	mock.ExpectQuery("SELECT (.+) FROM health_workers WHERE id").
		WithArgs("missing").
		WillReturnRows(workerRows())

	_, err := adapter.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestWorkerAdapter_ClaimLeastLoaded(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerAdapter(client)

	mock.ExpectQuery("UPDATE health_workers SET current_load = current_load \\+ 1").
		WithArgs(entities.WorkerPHCDoctor, "district-7").
		WillReturnRows(workerRows("w-1"))

	worker, err := adapter.ClaimLeastLoaded(context.Background(), entities.WorkerPHCDoctor, "district-7")
	require.NoError(t, err)
	assert.Equal(t, "w-1", worker.ID)
}

func TestWorkerAdapter_ClaimLeastLoaded_NobodyAvailable(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerAdapter(client)

	mock.ExpectQuery("UPDATE health_workers SET current_load = current_load \\+ 1").
		WithArgs(entities.WorkerASHA, "").
		WillReturnRows(workerRows())

	_, err := adapter.ClaimLeastLoaded(context.Background(), entities.WorkerASHA, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestWorkerAdapter_ReleaseLoad(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerAdapter(client)

	mock.ExpectExec("UPDATE health_workers SET current_load = GREATEST").
		WithArgs("w-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.ReleaseLoad(context.Background(), "w-1"))

	mock.ExpectExec("UPDATE health_workers SET current_load = GREATEST").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := adapter.ReleaseLoad(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestWorkerAdapter_List_FiltersApplied(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerAdapter(client)

	onDuty := true
	mock.ExpectQuery("SELECT (.+) FROM \"health_workers\"").
		WillReturnRows(workerRows("w-1", "w-2"))

	workers, err := adapter.List(context.Background(), repositories.WorkerFilter{
		Type:     entities.WorkerPHCDoctor,
		District: "district-7",
		OnDuty:   &onDuty,
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Len(t, workers, 2)
}
