package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/postgres"
	"github.com/healthbridge/HealthBridge/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	if err := ensureSchema(ctx, pgClient); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				notification_deliveries,
				worker_notifications,
				routing_decisions,
				conversation_messages,
				conversations,
				health_workers,
				facilities
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	now := time.Now()

	// 1. Seed facilities, one per tier plus a second PHC in another district
	facilities := []entities.Facility{
		{ID: uuid.New().String(), Name: "Rampur ASHA Center", Type: entities.FacilityASHA, District: "Rampur", Phone: "+911402000001", Capacity: 20, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Name: "Rampur Primary Health Centre", Type: entities.FacilityPHC, District: "Rampur", Phone: "+911402000002", Capacity: 60, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Name: "Sitapur Primary Health Centre", Type: entities.FacilityPHC, District: "Sitapur", Phone: "+911402000003", Capacity: 40, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Name: "Sitapur Community Health Centre", Type: entities.FacilityCHC, District: "Sitapur", Phone: "+911402000004", Capacity: 120, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Name: "District Emergency Hospital", Type: entities.FacilityEmergency, District: "Sitapur", Phone: "+911402000005", Emergency: "108", Capacity: 300, IsActive: true, CreatedAt: now, UpdatedAt: now},
	}

	for _, f := range facilities {
		_, err := pgClient.DB().ExecContext(ctx, `
			INSERT INTO facilities (
				id, name, facility_type, district, phone, emergency_contact,
				capacity, current_load, is_active, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING
		`, f.ID, f.Name, f.Type, f.District, f.Phone, f.Emergency, f.Capacity, f.IsActive, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			log.Printf("Failed to create facility %s: %v", f.Name, err)
		}
	}

	// 2. Seed workers across the escalation tiers
	workers := []entities.HealthWorker{
		{ID: uuid.New().String(), Name: "Sunita Sharma", Type: entities.WorkerASHA, District: "Rampur", Phone: "+911403000001", OnDuty: true, NextAvailableAt: now, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Name: "Meena Kumari", Type: entities.WorkerASHA, District: "Sitapur", Phone: "+911403000002", OnDuty: true, NextAvailableAt: now, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Name: "Dr. Arjun Patel", Type: entities.WorkerPHCDoctor, District: "Rampur", Phone: "+911403000003", OnDuty: true, NextAvailableAt: now, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Name: "Dr. Kavita Rao", Type: entities.WorkerPHCDoctor, District: "Sitapur", Phone: "+911403000004", OnDuty: true, NextAvailableAt: now, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Name: "Dr. Ramesh Iyer", Type: entities.WorkerCHCDoctor, District: "Sitapur", Phone: "+911403000005", OnDuty: true, NextAvailableAt: now, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Name: "Emergency Desk 108", Type: entities.WorkerEmergency, District: "Sitapur", Phone: "+91108", OnDuty: true, NextAvailableAt: now, CreatedAt: now, UpdatedAt: now},
	}

	for _, w := range workers {
		_, err := pgClient.DB().ExecContext(ctx, `
			INSERT INTO health_workers (
				id, name, worker_type, facility_id, district, phone,
				on_duty, current_load, next_available_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING
		`, w.ID, w.Name, w.Type, w.FacilityID, w.District, w.Phone, w.OnDuty, w.NextAvailableAt, w.CreatedAt, w.UpdatedAt)
		if err != nil {
			log.Printf("Failed to create worker %s: %v", w.Name, err)
		}
	}

	log.Printf("Seeding complete: %d facilities, %d workers", len(facilities), len(workers))
}

// ensureSchema creates the tables the pipeline persists to. Idempotent so
// the seeder can run against a fresh or existing database.
func ensureSchema(ctx context.Context, client *postgres.Client) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT 'en',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_messages (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES conversations(id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_messages_conversation
			ON conversation_messages (conversation_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS facilities (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			facility_type TEXT NOT NULL,
			district TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			emergency_contact TEXT NOT NULL DEFAULT '',
			capacity INT NOT NULL DEFAULT 0,
			current_load INT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS health_workers (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			worker_type TEXT NOT NULL,
			facility_id UUID REFERENCES facilities(id),
			district TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			on_duty BOOLEAN NOT NULL DEFAULT FALSE,
			current_load INT NOT NULL DEFAULT 0,
			next_available_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_health_workers_claim
			ON health_workers (worker_type, on_duty, current_load, next_available_at)`,
		`CREATE TABLE IF NOT EXISTS routing_decisions (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL,
			message_id UUID NOT NULL,
			user_id TEXT NOT NULL,
			symptoms TEXT[] NOT NULL DEFAULT '{}',
			severity_score INT NOT NULL,
			severity_level TEXT NOT NULL,
			emergency_override BOOLEAN NOT NULL DEFAULT FALSE,
			recommended_facility TEXT NOT NULL,
			facility_id UUID,
			reasoning TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL,
			timeframe TEXT NOT NULL DEFAULT '',
			instructions TEXT[] NOT NULL DEFAULT '{}',
			follow_up TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_routing_decisions_conversation
			ON routing_decisions (conversation_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS worker_notifications (
			id UUID PRIMARY KEY,
			worker_id UUID NOT NULL REFERENCES health_workers(id),
			worker_type TEXT NOT NULL,
			patient_id TEXT NOT NULL,
			routing_decision_id UUID NOT NULL UNIQUE,
			priority TEXT NOT NULL,
			patient_summary TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			sent_via TEXT[] NOT NULL DEFAULT '{}',
			response_text TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			acknowledged_at TIMESTAMPTZ,
			responded_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_worker_notifications_worker
			ON worker_notifications (worker_id, status)`,
		`CREATE TABLE IF NOT EXISTS notification_deliveries (
			notification_id UUID NOT NULL REFERENCES worker_notifications(id),
			channel TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			message_id TEXT,
			error_message TEXT,
			sent_at TIMESTAMPTZ,
			PRIMARY KEY (notification_id, channel)
		)`,
	}

	for _, stmt := range statements {
		if _, err := client.DB().ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
