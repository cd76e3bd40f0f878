package swap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/fault"
	"skillswap/internal/profile"
	"skillswap/pkg/eventstore"
)

// fakeDirectory serves profiles from memory so the ledger tests need no
// running profile service.
type fakeDirectory struct {
	profiles map[uuid.UUID]*profile.Profile
}

func (d *fakeDirectory) GetProfile(_ context.Context, id uuid.UUID) (*profile.Profile, error) {
	p, ok := d.profiles[id]
	if !ok {
		return nil, fault.NotFound("profile not found")
	}
	return p, nil
}

func newFakeDirectory(profiles ...*profile.Profile) *fakeDirectory {
	d := &fakeDirectory{profiles: make(map[uuid.UUID]*profile.Profile)}
	for _, p := range profiles {
		d.profiles[p.ID] = p
	}
	return d
}

func activeProfile(name string, offered, wanted []string) *profile.Profile {
	return &profile.Profile{
		ID:            uuid.New(),
		FirstName:     name,
		LastName:      "Tester",
		OfferedSkills: offered,
		WantedSkills:  wanted,
		Active:        true,
	}
}

func setupLedgerDB(t testing.TB) *sql.DB {
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
		CREATE TABLE IF NOT EXISTS swaps (
			id UUID PRIMARY KEY,
			requester_id UUID NOT NULL,
			provider_id UUID NOT NULL,
			requested_skill TEXT NOT NULL,
			offered_skill TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT,
			scheduled_date TIMESTAMPTZ,
			completed_date TIMESTAMPTZ,
			version INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func newTestLedger(t testing.TB) (Service, *profile.Profile, *profile.Profile) {
	db := setupLedgerDB(t)
	t.Cleanup(func() { db.Close() })

	requester := activeProfile("Rita", []string{"Guitar"}, []string{"Photography"})
	provider := activeProfile("Paulo", []string{"Photography"}, []string{"Guitar"})
	svc := NewService(eventstore.NewEventStore(db), db, newFakeDirectory(requester, provider), nil, nil)
	return svc, requester, provider
}

func TestLedgerLifecycleToCompletion(t *testing.T) {
	svc, requester, provider := newTestLedger(t)
	ctx := context.Background()

	sw, err := svc.Create(ctx, requester.ID, CreateInput{
		ProviderID:     provider.ID,
		RequestedSkill: "Photography",
		OfferedSkill:   "Guitar",
		Message:        "trade lessons?",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, sw.Status)
	assert.Nil(t, sw.CompletedDate)

	sw, err = svc.Accept(ctx, sw.ID, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, sw.Status)

	sw, err = svc.Complete(ctx, sw.ID, requester.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, sw.Status)
	require.NotNil(t, sw.CompletedDate)

	// Terminal finality: nothing moves a completed swap.
	_, err = svc.Cancel(ctx, sw.ID, provider.ID)
	assert.ErrorIs(t, err, fault.ErrInvalidTransition)

	stored, err := svc.Get(ctx, sw.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedDate)
}

func TestLedgerRejectByProvider(t *testing.T) {
	svc, requester, provider := newTestLedger(t)
	ctx := context.Background()

	sw, err := svc.Create(ctx, requester.ID, CreateInput{
		ProviderID:     provider.ID,
		RequestedSkill: "Photography",
		OfferedSkill:   "Guitar",
	})
	require.NoError(t, err)

	// The requester cannot decide their own proposal.
	_, err = svc.Accept(ctx, sw.ID, requester.ID)
	assert.ErrorIs(t, err, fault.ErrUnauthorized)

	sw, err = svc.Reject(ctx, sw.ID, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, sw.Status)

	_, err = svc.Accept(ctx, sw.ID, provider.ID)
	assert.ErrorIs(t, err, fault.ErrInvalidTransition)
}

func TestLedgerCreateValidation(t *testing.T) {
	svc, requester, provider := newTestLedger(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, requester.ID, CreateInput{
		ProviderID:     requester.ID,
		RequestedSkill: "Photography",
		OfferedSkill:   "Guitar",
	})
	assert.ErrorIs(t, err, fault.ErrValidation, "self-swap")

	_, err = svc.Create(ctx, requester.ID, CreateInput{
		ProviderID:     provider.ID,
		RequestedSkill: "Welding",
		OfferedSkill:   "Guitar",
	})
	assert.ErrorIs(t, err, fault.ErrValidation, "provider does not offer the requested skill")

	_, err = svc.Create(ctx, requester.ID, CreateInput{
		ProviderID:     uuid.New(),
		RequestedSkill: "Photography",
		OfferedSkill:   "Guitar",
	})
	assert.ErrorIs(t, err, fault.ErrNotFound, "unknown provider")
}

func TestLedgerRejectsInactiveProvider(t *testing.T) {
	db := setupLedgerDB(t)
	t.Cleanup(func() { db.Close() })

	requester := activeProfile("Rita", []string{"Guitar"}, nil)
	provider := activeProfile("Paulo", []string{"Photography"}, nil)
	provider.Active = false
	svc := NewService(eventstore.NewEventStore(db), db, newFakeDirectory(requester, provider), nil, nil)

	_, err := svc.Create(context.Background(), requester.ID, CreateInput{
		ProviderID:     provider.ID,
		RequestedSkill: "Photography",
		OfferedSkill:   "Guitar",
	})
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestConcurrentAcceptsHaveOneWinner(t *testing.T) {
	svc, requester, provider := newTestLedger(t)
	ctx := context.Background()

	sw, err := svc.Create(ctx, requester.ID, CreateInput{
		ProviderID:     provider.ID,
		RequestedSkill: "Photography",
		OfferedSkill:   "Guitar",
	})
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Accept(ctx, sw.ID, provider.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		ok := errors.Is(err, fault.ErrConflict) || errors.Is(err, fault.ErrInvalidTransition)
		assert.True(t, ok, "unexpected loser error: %v", err)
	}
	assert.Equal(t, 1, wins, "exactly one concurrent accept must win")

	stored, err := svc.Get(ctx, sw.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, stored.Status)
}

func TestListByParticipant(t *testing.T) {
	svc, requester, provider := newTestLedger(t)
	ctx := context.Background()

	sw, err := svc.Create(ctx, requester.ID, CreateInput{
		ProviderID:     provider.ID,
		RequestedSkill: "Photography",
		OfferedSkill:   "Guitar",
	})
	require.NoError(t, err)

	for _, id := range []uuid.UUID{requester.ID, provider.ID} {
		swaps, err := svc.ListByParticipant(ctx, id)
		require.NoError(t, err)
		found := false
		for _, s := range swaps {
			if s.ID == sw.ID {
				found = true
			}
		}
		assert.True(t, found, "participant %s should see the swap", id)
	}

	swaps, err := svc.ListByParticipant(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, swaps)
}
