// internal/profile/implementation.go
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/time/rate"

	"skillswap/internal/fault"
	"skillswap/internal/matching"
	"skillswap/pkg/eventstore"
	"skillswap/pkg/metrics"
)

// errRateLimited marks a register/login attempt shed by the limiter. The
// handler maps it to 429.
var errRateLimited = errors.New("rate limit exceeded")

// service implements the Service interface.
type service struct {
	eventStore  *eventstore.EventStore
	db          *sql.DB
	issuer      TokenIssuer
	authLimiter *rate.Limiter
	maxMatches  int
	metrics     *metrics.Manager
}

// TokenIssuer mints the bearer token returned on successful login.
type TokenIssuer interface {
	Token(profileID uuid.UUID) (string, error)
}

// NewService creates a new profile service instance.
func NewService(es *eventstore.EventStore, db *sql.DB, issuer TokenIssuer, authPerMinute, maxMatches int, m *metrics.Manager) Service {
	return &service{
		eventStore:  es,
		db:          db,
		issuer:      issuer,
		authLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(authPerMinute)), authPerMinute),
		maxMatches:  maxMatches,
		metrics:     m,
	}
}

// Register creates a new active profile with empty skill sets.
func (s *service) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	if !s.authLimiter.Allow() {
		return nil, errRateLimited
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fault.Validation("a valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, fault.Validation("password must be at least 8 characters")
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, fault.Validation("first and last name are required")
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE email = $1)`, in.Email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, fault.Conflict("email already registered")
	}

	id := uuid.New()
	passwordHash, salt, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	eventData := ProfileRegisteredEvent{
		ID:        id,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "profile",
		EventType:     "ProfileRegistered",
		EventData:     jsonData,
		Version:       1,
	}
	if err := s.eventStore.AppendEvents(ctx, id, "profile", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	now := time.Now().UTC()
	p := &Profile{
		ID:            id,
		Email:         in.Email,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Bio:           in.Bio,
		Location:      in.Location,
		OfferedSkills: []string{},
		WantedSkills:  []string{},
		Availability:  []string{},
		Active:        true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	cred := &Credential{ProfileID: id, PasswordHash: passwordHash, Salt: salt}

	if err := s.insertProfileIntoReadModel(ctx, p, cred); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fault.Conflict("email already registered")
		}
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	return p, nil
}

func (s *service) insertProfileIntoReadModel(ctx context.Context, p *Profile, cred *Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	profileQuery := `
		INSERT INTO profiles (id, email, first_name, last_name, bio, location, offered_skills, wanted_skills, availability, rating_average, rating_count, active, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10, $11, $12, $13)
	`
	_, err = tx.ExecContext(ctx, profileQuery,
		p.ID, p.Email, p.FirstName, p.LastName, p.Bio, p.Location,
		pq.Array(p.OfferedSkills), pq.Array(p.WantedSkills), pq.Array(p.Availability),
		p.Active, p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}

	credQuery := `
		INSERT INTO credentials (profile_id, password_hash, salt)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, credQuery, cred.ProfileID, cred.PasswordHash, cred.Salt); err != nil {
		return err
	}

	return tx.Commit()
}

// Authenticate verifies credentials and returns the profile with a signed
// bearer token.
func (s *service) Authenticate(ctx context.Context, email, password string) (*Profile, string, error) {
	if !s.authLimiter.Allow() {
		return nil, "", errRateLimited
	}

	email = strings.ToLower(strings.TrimSpace(email))
	p, err := s.getProfileByEmail(ctx, email)
	if err != nil {
		return nil, "", fault.Unauthorized("invalid credentials")
	}

	cred, err := s.getCredential(ctx, p.ID)
	if err != nil {
		return nil, "", fault.Unauthorized("invalid credentials")
	}

	ok, err := verifyPassword(password, cred.Salt, cred.PasswordHash)
	if err != nil || !ok {
		return nil, "", fault.Unauthorized("invalid credentials")
	}

	if !p.Active {
		return nil, "", fault.Unauthorized("profile is deactivated")
	}

	token, err := s.issuer.Token(p.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return p, token, nil
}

func (s *service) getProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, selectProfile+` WHERE email = $1`, email))
}

func (s *service) getCredential(ctx context.Context, profileID uuid.UUID) (*Credential, error) {
	cred := &Credential{}
	err := s.db.QueryRowContext(ctx, `
		SELECT profile_id, password_hash, salt
		FROM credentials
		WHERE profile_id = $1
	`, profileID).Scan(&cred.ProfileID, &cred.PasswordHash, &cred.Salt)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// GetProfile retrieves a profile by id.
func (s *service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, selectProfile+` WHERE id = $1`, id))
}

// UpdateProfile applies owner edits to profile fields and skill sets.
func (s *service) UpdateProfile(ctx context.Context, actorID, profileID uuid.UUID, in UpdateInput) (*Profile, error) {
	if actorID != profileID {
		return nil, fault.Unauthorized("only the profile owner may edit it")
	}

	p, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if in.Location != nil {
		p.Location = *in.Location
	}
	if in.OfferedSkills != nil {
		p.OfferedSkills = cleanSkills(in.OfferedSkills)
	}
	if in.WantedSkills != nil {
		p.WantedSkills = cleanSkills(in.WantedSkills)
	}
	if in.Availability != nil {
		p.Availability = cleanSkills(in.Availability)
	}

	eventData := ProfileUpdatedEvent{
		ID:            profileID,
		OfferedSkills: p.OfferedSkills,
		WantedSkills:  p.WantedSkills,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   profileID,
		AggregateType: "profile",
		EventType:     "ProfileUpdated",
		EventData:     jsonData,
		Version:       p.Version + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, profileID, "profile", p.Version, []eventstore.Event{event}); err != nil {
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return nil, fault.Conflict("profile %s was modified concurrently", profileID)
		}
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	now := time.Now().UTC()
	query := `
		UPDATE profiles
		SET bio = $1, location = $2, offered_skills = $3, wanted_skills = $4, availability = $5, version = version + 1, updated_at = $6
		WHERE id = $7 AND version = $8
	`
	result, err := s.db.ExecContext(ctx, query,
		p.Bio, p.Location, pq.Array(p.OfferedSkills), pq.Array(p.WantedSkills), pq.Array(p.Availability),
		now, profileID, p.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, fault.Conflict("profile %s was modified concurrently", profileID)
	}

	p.Version++
	p.UpdatedAt = now
	return p, nil
}

// Deactivate retires a profile. Deactivated profiles disappear from search
// and matching and can no longer be named in new swaps.
func (s *service) Deactivate(ctx context.Context, actorID, profileID uuid.UUID) error {
	if actorID != profileID {
		return fault.Unauthorized("only the profile owner may deactivate it")
	}

	p, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if !p.Active {
		return fault.Validation("profile is already deactivated")
	}

	jsonData, err := json.Marshal(ProfileDeactivatedEvent{ID: profileID})
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   profileID,
		AggregateType: "profile",
		EventType:     "ProfileDeactivated",
		EventData:     jsonData,
		Version:       p.Version + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, profileID, "profile", p.Version, []eventstore.Event{event}); err != nil {
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return fault.Conflict("profile %s was modified concurrently", profileID)
		}
		return fmt.Errorf("failed to append event: %w", err)
	}

	query := `
		UPDATE profiles
		SET active = FALSE, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	result, err := s.db.ExecContext(ctx, query, profileID, p.Version)
	if err != nil {
		return fmt.Errorf("failed to update read model: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fault.Conflict("profile %s was modified concurrently", profileID)
	}
	return nil
}

// SearchByOfferedSkill returns active profiles offering the skill,
// case-insensitively.
func (s *service) SearchByOfferedSkill(ctx context.Context, skill string) ([]*Profile, error) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return nil, fault.Validation("skill must not be empty")
	}

	query := selectProfile + `
		WHERE active
		AND EXISTS (SELECT 1 FROM unnest(offered_skills) AS s WHERE lower(s) = lower($1))
		ORDER BY rating_average DESC, first_name, last_name
	`
	return s.queryProfiles(ctx, query, skill)
}

// Matches ranks the active population against the viewer's profile. The
// score orders the result; it grants no authority over swap creation.
func (s *service) Matches(ctx context.Context, viewerID uuid.UUID, limit int) ([]matching.Match, error) {
	viewer, err := s.GetProfile(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > s.maxMatches {
		limit = s.maxMatches
	}

	pool, err := s.queryProfiles(ctx, selectProfile+` WHERE active AND id <> $1`, viewerID)
	if err != nil {
		return nil, err
	}

	candidates := make([]matching.Candidate, 0, len(pool))
	for _, p := range pool {
		candidates = append(candidates, toCandidate(p))
	}

	matches := matching.Rank(toCandidate(viewer), candidates)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	if s.metrics != nil {
		s.metrics.ObserveMatchQuery()
	}
	return matches, nil
}

// ApplyRating folds one rating into the profile's aggregate. The single
// UPDATE statement is the required atomic read-modify-write: concurrent
// ratings for the same profile serialize on the row, so no update is lost.
func (s *service) ApplyRating(ctx context.Context, profileID uuid.UUID, rating int) (float64, int, error) {
	if rating < 1 || rating > 5 {
		return 0, 0, fault.Validation("rating must be between 1 and 5")
	}

	var avg float64
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET rating_average = (rating_average * rating_count + $1) / (rating_count + 1),
		    rating_count = rating_count + 1,
		    updated_at = NOW()
		WHERE id = $2
		RETURNING rating_average, rating_count
	`, rating, profileID).Scan(&avg, &count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, fault.NotFound("profile %s not found", profileID)
		}
		return 0, 0, fmt.Errorf("apply rating: %w", err)
	}
	return avg, count, nil
}

const selectProfile = `
	SELECT id, email, first_name, last_name, bio, location, offered_skills, wanted_skills, availability, rating_average, rating_count, active, version, created_at, updated_at
	FROM profiles
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	var bio, location sql.NullString

	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FirstName,
		&p.LastName,
		&bio,
		&location,
		pq.Array(&p.OfferedSkills),
		pq.Array(&p.WantedSkills),
		pq.Array(&p.Availability),
		&p.RatingAverage,
		&p.RatingCount,
		&p.Active,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fault.NotFound("profile not found")
		}
		return nil, fmt.Errorf("failed to get profile from read model: %w", err)
	}

	p.Bio = bio.String
	p.Location = location.String
	return p, nil
}

func (s *service) queryProfiles(ctx context.Context, query string, args ...interface{}) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

func toCandidate(p *Profile) matching.Candidate {
	return matching.Candidate{
		ID:            p.ID,
		Name:          p.Name(),
		OfferedSkills: p.OfferedSkills,
		WantedSkills:  p.WantedSkills,
		RatingAverage: p.RatingAverage,
	}
}

func cleanSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}
