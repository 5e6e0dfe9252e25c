package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// setupTestDB attempts to connect to a PostgreSQL database for testing.
// It skips the test if the connection cannot be established.
func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	pgUser := os.Getenv("PGUSER")
	pgPassword := os.Getenv("PGPASSWORD")
	pgHost := os.Getenv("PGHOST")
	pgPort := os.Getenv("PGPORT")
	pgDB := os.Getenv("PGDATABASE")

	if pgUser == "" {
		pgUser = "user"
	}
	if pgPassword == "" {
		pgPassword = "password"
	}
	if pgHost == "" {
		pgHost = "localhost"
	}
	if pgPort == "" {
		pgPort = "5432"
	}
	if pgDB == "" {
		pgDB = "testdb"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			aggregate_id UUID NOT NULL,
			aggregate_type TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_data JSONB NOT NULL,
			metadata JSONB,
			version INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (aggregate_id, version)
		);
	`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

type testEvent struct {
	Message string `json:"message"`
}

func TestAppendAndLoadEvents(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	store := NewEventStore(db)

	aggregateID := uuid.New()
	for i := 0; i < 3; i++ {
		data, _ := json.Marshal(testEvent{Message: fmt.Sprintf("event %d", i)})
		events := []Event{{EventType: "TestEvent", EventData: data}}
		if err := store.AppendEvents(context.Background(), aggregateID, "test_aggregate", i, events); err != nil {
			t.Fatalf("AppendEvents failed: %v", err)
		}
	}

	loaded, err := store.LoadEvents(context.Background(), aggregateID, 0, 0)
	if err != nil {
		t.Fatalf("LoadEvents failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("loaded %d events, want 3", len(loaded))
	}
	for i, e := range loaded {
		if e.Version != i+1 {
			t.Fatalf("event %d has version %d, want %d", i, e.Version, i+1)
		}
	}

	version, err := store.GetCurrentVersion(context.Background(), aggregateID)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 3 {
		t.Fatalf("current version is %d, want 3", version)
	}
}

func TestAppendEventsConcurrencyConflict(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	store := NewEventStore(db)

	aggregateID := uuid.New()
	data, _ := json.Marshal(testEvent{Message: "first"})
	events := []Event{{EventType: "TestEvent", EventData: data}}

	if err := store.AppendEvents(context.Background(), aggregateID, "test_aggregate", 0, events); err != nil {
		t.Fatalf("AppendEvents failed: %v", err)
	}

	// A second writer appending against the stale version must conflict.
	err := store.AppendEvents(context.Background(), aggregateID, "test_aggregate", 0, events)
	if err == nil {
		t.Fatal("expected a concurrency conflict, got nil")
	}
}

func BenchmarkAppendEvents(b *testing.B) {
	db := setupTestDB(b)
	defer db.Close()
	store := NewEventStore(db)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		aggregateID := uuid.New()
		data, _ := json.Marshal(testEvent{Message: fmt.Sprintf("event %d", i)})
		events := []Event{{EventType: "TestEvent", EventData: data}}
		b.StartTimer()

		if err := store.AppendEvents(context.Background(), aggregateID, "test_aggregate", 0, events); err != nil {
			b.Fatalf("AppendEvents failed: %v", err)
		}
	}
}
