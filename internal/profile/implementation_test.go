// internal/profile/implementation_test.go
package profile

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/fault"
	"skillswap/pkg/eventstore"
)

type staticIssuer struct{}

func (staticIssuer) Token(profileID uuid.UUID) (string, error) {
	return "token-" + profileID.String(), nil
}

func setupProfileDB(t testing.TB) *sql.DB {
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
		CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			bio TEXT,
			location TEXT,
			offered_skills TEXT[] NOT NULL DEFAULT '{}',
			wanted_skills TEXT[] NOT NULL DEFAULT '{}',
			availability TEXT[] NOT NULL DEFAULT '{}',
			rating_average DOUBLE PRECISION NOT NULL DEFAULT 0,
			rating_count INT NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			version INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS credentials (
			profile_id UUID PRIMARY KEY REFERENCES profiles(id),
			password_hash TEXT NOT NULL,
			salt TEXT NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func newTestService(t testing.TB) Service {
	db := setupProfileDB(t)
	t.Cleanup(func() { db.Close() })
	return NewService(eventstore.NewEventStore(db), db, staticIssuer{}, 1000, 50, nil)
}

func registerTestProfile(t *testing.T, svc Service, email string) *Profile {
	t.Helper()
	p, err := svc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "password123",
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return p
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.New().String()[:8])
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	email := uniqueEmail("alice")

	p := registerTestProfile(t, svc, email)
	assert.Equal(t, email, p.Email)
	assert.True(t, p.Active)
	assert.Equal(t, 1, p.Version)
	assert.Empty(t, p.OfferedSkills)
	assert.Zero(t, p.RatingCount)

	got, token, err := svc.Authenticate(ctx, email, "password123")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Authenticate(ctx, email, "wrong password")
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrUnauthorized)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	email := uniqueEmail("dup")

	registerTestProfile(t, svc, email)

	_, err := svc.Register(ctx, RegisterInput{
		Email:     email,
		Password:  "password123",
		FirstName: "Other",
		LastName:  "User",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing email", RegisterInput{Password: "password123", FirstName: "A", LastName: "B"}},
		{"malformed email", RegisterInput{Email: "not-an-email", Password: "password123", FirstName: "A", LastName: "B"}},
		{"short password", RegisterInput{Email: uniqueEmail("v"), Password: "short", FirstName: "A", LastName: "B"}},
		{"missing name", RegisterInput{Email: uniqueEmail("v"), Password: "password123"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, fault.ErrValidation)
		})
	}
}

func TestUpdateProfileSkillsAndOwnership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestProfile(t, svc, uniqueEmail("update"))

	updated, err := svc.UpdateProfile(ctx, p.ID, p.ID, UpdateInput{
		OfferedSkills: []string{"Go", "go", " SQL ", ""},
		WantedSkills:  []string{"Photography"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "SQL"}, updated.OfferedSkills)
	assert.Equal(t, []string{"Photography"}, updated.WantedSkills)
	assert.Equal(t, 2, updated.Version)

	// only the owner may edit
	_, err = svc.UpdateProfile(ctx, uuid.New(), p.ID, UpdateInput{
		OfferedSkills: []string{"Hacking"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrUnauthorized)

	got, err := svc.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "SQL"}, got.OfferedSkills)
}

func TestDeactivateHidesProfile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestProfile(t, svc, uniqueEmail("deact"))
	skill := "Skill-" + uuid.New().String()[:8]
	_, err := svc.UpdateProfile(ctx, p.ID, p.ID, UpdateInput{OfferedSkills: []string{skill}})
	require.NoError(t, err)

	found, err := svc.SearchByOfferedSkill(ctx, skill)
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, svc.Deactivate(ctx, p.ID, p.ID))

	found, err = svc.SearchByOfferedSkill(ctx, skill)
	require.NoError(t, err)
	assert.Empty(t, found)

	err = svc.Deactivate(ctx, p.ID, p.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrValidation)

	_, _, err = svc.Authenticate(ctx, p.Email, "password123")
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrUnauthorized)
}

func TestSearchByOfferedSkillIsCaseInsensitive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestProfile(t, svc, uniqueEmail("search"))
	skill := "Carpentry-" + uuid.New().String()[:8]
	_, err := svc.UpdateProfile(ctx, p.ID, p.ID, UpdateInput{OfferedSkills: []string{skill}})
	require.NoError(t, err)

	found, err := svc.SearchByOfferedSkill(ctx, strings.ToUpper(skill))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, p.ID, found[0].ID)

	_, err = svc.SearchByOfferedSkill(ctx, "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestMatchesRanksComplementaryProfiles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Skills are unique per run so ranking is not polluted by other rows.
	tag := uuid.New().String()[:8]
	guitar, spanish, cooking := "Guitar-"+tag, "Spanish-"+tag, "Cooking-"+tag

	viewer := registerTestProfile(t, svc, uniqueEmail("viewer"))
	_, err := svc.UpdateProfile(ctx, viewer.ID, viewer.ID, UpdateInput{
		OfferedSkills: []string{guitar},
		WantedSkills:  []string{spanish},
	})
	require.NoError(t, err)

	// perfect counterpart
	perfect := registerTestProfile(t, svc, uniqueEmail("perfect"))
	_, err = svc.UpdateProfile(ctx, perfect.ID, perfect.ID, UpdateInput{
		OfferedSkills: []string{spanish},
		WantedSkills:  []string{guitar},
	})
	require.NoError(t, err)

	// one-sided counterpart
	partial := registerTestProfile(t, svc, uniqueEmail("partial"))
	_, err = svc.UpdateProfile(ctx, partial.ID, partial.ID, UpdateInput{
		OfferedSkills: []string{spanish},
		WantedSkills:  []string{cooking},
	})
	require.NoError(t, err)

	matches, err := svc.Matches(ctx, viewer.ID, 0)
	require.NoError(t, err)

	rank := make(map[uuid.UUID]int)
	score := make(map[uuid.UUID]int)
	for i, m := range matches {
		rank[m.Candidate.ID] = i
		score[m.Candidate.ID] = m.Score
		assert.NotEqual(t, viewer.ID, m.Candidate.ID, "viewer must not match itself")
	}

	require.Contains(t, rank, perfect.ID)
	require.Contains(t, rank, partial.ID)
	assert.Equal(t, 100, score[perfect.ID])
	assert.Equal(t, 50, score[partial.ID])
	assert.Less(t, rank[perfect.ID], rank[partial.ID])
}

func TestApplyRatingFoldsAggregate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestProfile(t, svc, uniqueEmail("rated"))

	avg, count, err := svc.ApplyRating(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 1, count)

	avg, count, err = svc.ApplyRating(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 2, count)

	_, _, err = svc.ApplyRating(ctx, p.ID, 6)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrValidation)

	_, _, err = svc.ApplyRating(ctx, uuid.New(), 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrNotFound)
}

func TestConcurrentRatingsLoseNoUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestProfile(t, svc, uniqueEmail("concurrent"))

	const raters = 10
	var wg sync.WaitGroup
	for i := 0; i < raters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.ApplyRating(ctx, p.ID, 4)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, raters, got.RatingCount)
	assert.InDelta(t, 4.0, got.RatingAverage, 0.0001)
}
