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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to Postgres for testing and skips the test when no
// database is reachable.
func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		get("PGHOST", "localhost"),
		get("PGPORT", "5432"),
		get("PGUSER", "user"),
		get("PGPASSWORD", "password"),
		get("PGDATABASE", "testdb"))

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)

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
	require.NoError(t, err)

	return db
}

type testEvent struct {
	Message string `json:"message"`
}

func TestAppendRejectsStaleVersion(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	store := NewEventStore(db)

	aggregateID := uuid.New()
	payload, _ := json.Marshal(testEvent{Message: "first"})
	events := []Event{{EventType: "TestEvent", EventData: payload}}

	require.NoError(t, store.AppendEvents(context.Background(), aggregateID, "test", 0, events))

	// A second append against the same expected version must lose.
	err := store.AppendEvents(context.Background(), aggregateID, "test", 0, events)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	version, err := store.GetCurrentVersion(context.Background(), aggregateID)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestLoadEventsReturnsVersionOrder(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	store := NewEventStore(db)

	aggregateID := uuid.New()
	for i := 0; i < 3; i++ {
		payload, _ := json.Marshal(testEvent{Message: fmt.Sprintf("event %d", i)})
		events := []Event{{EventType: "TestEvent", EventData: payload}}
		require.NoError(t, store.AppendEvents(context.Background(), aggregateID, "test", i, events))
	}

	loaded, err := store.LoadEvents(context.Background(), aggregateID, 0, 0)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, ev := range loaded {
		assert.Equal(t, i+1, ev.Version)
	}
}
