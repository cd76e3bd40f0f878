// internal/catalog/implementation.go
package catalog

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

	"skillswap/internal/fault"
	"skillswap/pkg/eventstore"
)

// service implements the Service interface.
type service struct {
	eventStore *eventstore.EventStore
	db         *sql.DB
}

// NewService creates a new catalog service instance.
func NewService(es *eventstore.EventStore, db *sql.DB) Service {
	return &service{
		eventStore: es,
		db:         db,
	}
}

// AddSkill creates a new skill in the catalog. Names are unique
// case-insensitively.
func (s *service) AddSkill(ctx context.Context, in AddInput) (*Skill, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fault.Validation("skill name must not be empty")
	}

	id := uuid.New()
	eventData := SkillAddedEvent{
		ID:       id,
		Name:     in.Name,
		Category: in.Category,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "skill",
		EventType:     "SkillAdded",
		EventData:     jsonData,
		Version:       1,
	}
	if err := s.eventStore.AppendEvents(ctx, id, "skill", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	now := time.Now().UTC()
	skill := &Skill{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Active:      true,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.insertSkillIntoReadModel(ctx, skill); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fault.Conflict("skill %q already exists", in.Name)
		}
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	return skill, nil
}

func (s *service) insertSkillIntoReadModel(ctx context.Context, skill *Skill) error {
	query := `
		INSERT INTO skills (id, name, description, category, popularity, active, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		skill.ID, skill.Name, skill.Description, skill.Category,
		skill.Active, skill.Version, skill.CreatedAt, skill.UpdatedAt)
	return err
}

// GetSkill retrieves a skill from the catalog by its ID.
func (s *service) GetSkill(ctx context.Context, id uuid.UUID) (*Skill, error) {
	query := selectSkill + ` WHERE id = $1`
	skill, err := scanSkill(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fault.NotFound("skill %s not found", id)
		}
		return nil, err
	}
	return skill, nil
}

// RecordUse bumps the popularity counter for a skill named in a swap.
// Unknown skill names are ignored so the ledger never blocks on the
// catalog being incomplete.
func (s *service) RecordUse(ctx context.Context, name string) error {
	var id uuid.UUID
	var popularity, version int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, popularity, version FROM skills WHERE lower(name) = lower($1) AND active
	`, strings.TrimSpace(name)).Scan(&id, &popularity, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to look up skill: %w", err)
	}

	jsonData, err := json.Marshal(SkillUsedEvent{ID: id, Popularity: popularity + 1})
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "skill",
		EventType:     "SkillUsed",
		EventData:     jsonData,
		Version:       version + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, id, "skill", version, []eventstore.Event{event}); err != nil {
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			// popularity is advisory, a lost bump under contention is fine
			return nil
		}
		return fmt.Errorf("failed to append event: %w", err)
	}

	query := `
		UPDATE skills
		SET popularity = popularity + 1, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	_, err = s.db.ExecContext(ctx, query, id, version)
	return err
}

// Deactivate retires a skill from the catalog.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	skill, err := s.GetSkill(ctx, id)
	if err != nil {
		return err
	}
	if !skill.Active {
		return fault.Validation("skill %s is already deactivated", id)
	}

	jsonData, err := json.Marshal(SkillDeactivatedEvent{ID: id})
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "skill",
		EventType:     "SkillDeactivated",
		EventData:     jsonData,
		Version:       skill.Version + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, id, "skill", skill.Version, []eventstore.Event{event}); err != nil {
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return fault.Conflict("skill %s was modified concurrently", id)
		}
		return fmt.Errorf("failed to append event: %w", err)
	}

	query := `
		UPDATE skills
		SET active = FALSE, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	result, err := s.db.ExecContext(ctx, query, id, skill.Version)
	if err != nil {
		return fmt.Errorf("failed to update read model: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fault.Conflict("skill %s was modified concurrently", id)
	}
	return nil
}

// Search finds active skills by full-text match on name and description.
func (s *service) Search(ctx context.Context, query string) ([]*Skill, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fault.Validation("search query must not be empty")
	}

	dbQuery := selectSkill + `
		WHERE active
		AND (to_tsvector('english', name) @@ plainto_tsquery('english', $1)
		  OR to_tsvector('english', description) @@ plainto_tsquery('english', $1))
		ORDER BY popularity DESC, name
		LIMIT 20
	`
	return s.querySkills(ctx, dbQuery, query)
}

// Popular returns the most-used active skills.
func (s *service) Popular(ctx context.Context, limit int) ([]*Skill, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := selectSkill + `
		WHERE active
		ORDER BY popularity DESC, name
		LIMIT $1
	`
	return s.querySkills(ctx, query, limit)
}

const selectSkill = `
	SELECT id, name, description, category, popularity, active, version, created_at, updated_at
	FROM skills
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSkill(row rowScanner) (*Skill, error) {
	skill := &Skill{}
	var description, category sql.NullString
	err := row.Scan(
		&skill.ID,
		&skill.Name,
		&description,
		&category,
		&skill.Popularity,
		&skill.Active,
		&skill.Version,
		&skill.CreatedAt,
		&skill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	skill.Description = description.String
	skill.Category = category.String
	return skill, nil
}

func (s *service) querySkills(ctx context.Context, query string, args ...interface{}) ([]*Skill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	var skills []*Skill
	for rows.Next() {
		skill, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, skill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skills: %w", err)
	}
	return skills, nil
}
