// internal/swap/implementation.go
package swap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"skillswap/internal/fault"
	"skillswap/internal/profile"
	"skillswap/pkg/eventstore"
	"skillswap/pkg/metrics"
)

// ProfileDirectory resolves participant profiles. Implemented by
// clients.ProfileClient in production.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
}

// SkillUsage feeds the catalog's popularity counters. Usage tracking is
// best effort, a nil or failing recorder never blocks a proposal.
type SkillUsage interface {
	RecordUse(ctx context.Context, name string) error
}

// service implements the Service interface. Every transition is an atomic
// check-then-write: the guard runs against a loaded snapshot, and the event
// append carries that snapshot's version so a concurrent writer makes the
// append fail instead of both writes landing.
type service struct {
	eventStore *eventstore.EventStore
	db         *sql.DB
	profiles   ProfileDirectory
	usage      SkillUsage
	metrics    *metrics.Manager
}

// NewService creates a new swap ledger service instance. usage may be nil.
func NewService(es *eventstore.EventStore, db *sql.DB, profiles ProfileDirectory, usage SkillUsage, m *metrics.Manager) Service {
	return &service{
		eventStore: es,
		db:         db,
		profiles:   profiles,
		usage:      usage,
		metrics:    m,
	}
}

// Create records a new proposal in status pending.
func (s *service) Create(ctx context.Context, requesterID uuid.UUID, in CreateInput) (*Swap, error) {
	if requesterID == in.ProviderID {
		return nil, fault.Validation("cannot propose a swap with yourself")
	}
	if strings.TrimSpace(in.RequestedSkill) == "" {
		return nil, fault.Validation("requested_skill must not be empty")
	}
	if strings.TrimSpace(in.OfferedSkill) == "" {
		return nil, fault.Validation("offered_skill must not be empty")
	}

	requester, err := s.profiles.GetProfile(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("resolve requester: %w", err)
	}
	provider, err := s.profiles.GetProfile(ctx, in.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}
	if !requester.Active {
		return nil, fault.Validation("requester profile is inactive")
	}
	if !provider.Active {
		return nil, fault.Validation("provider profile is inactive")
	}

	// Skill membership is checked at proposal time only; the skill sets may
	// change independently afterwards.
	if !hasSkill(provider.OfferedSkills, in.RequestedSkill) {
		return nil, fault.Validation("provider does not offer %q", in.RequestedSkill)
	}
	if !hasSkill(requester.OfferedSkills, in.OfferedSkill) {
		return nil, fault.Validation("requester does not offer %q", in.OfferedSkill)
	}

	id := uuid.New()
	now := time.Now().UTC()

	eventData := SwapRequestedEvent{
		SwapID:         id,
		RequesterID:    requesterID,
		ProviderID:     in.ProviderID,
		RequestedSkill: in.RequestedSkill,
		OfferedSkill:   in.OfferedSkill,
		Message:        in.Message,
		ScheduledDate:  in.ScheduledDate,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "swap",
		EventType:     "SwapRequested",
		EventData:     jsonData,
		Version:       1,
	}
	if err := s.eventStore.AppendEvents(ctx, id, "swap", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	record := &Swap{
		ID:             id,
		RequesterID:    requesterID,
		ProviderID:     in.ProviderID,
		RequestedSkill: in.RequestedSkill,
		OfferedSkill:   in.OfferedSkill,
		Status:         StatusPending,
		Message:        in.Message,
		ScheduledDate:  in.ScheduledDate,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.insertSwapIntoReadModel(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	if s.usage != nil {
		_ = s.usage.RecordUse(ctx, in.RequestedSkill)
		_ = s.usage.RecordUse(ctx, in.OfferedSkill)
	}

	return record, nil
}

func (s *service) insertSwapIntoReadModel(ctx context.Context, sw *Swap) error {
	query := `
		INSERT INTO swaps (id, requester_id, provider_id, requested_skill, offered_skill, status, message, scheduled_date, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		sw.ID, sw.RequesterID, sw.ProviderID, sw.RequestedSkill, sw.OfferedSkill,
		sw.Status, sw.Message, nullTime(sw.ScheduledDate), sw.Version, sw.CreatedAt, sw.UpdatedAt)
	return err
}

func (s *service) Accept(ctx context.Context, swapID, actorID uuid.UUID) (*Swap, error) {
	return s.transition(ctx, swapID, actorID, ActionAccept)
}

func (s *service) Reject(ctx context.Context, swapID, actorID uuid.UUID) (*Swap, error) {
	return s.transition(ctx, swapID, actorID, ActionReject)
}

func (s *service) Complete(ctx context.Context, swapID, actorID uuid.UUID) (*Swap, error) {
	return s.transition(ctx, swapID, actorID, ActionComplete)
}

func (s *service) Cancel(ctx context.Context, swapID, actorID uuid.UUID) (*Swap, error) {
	return s.transition(ctx, swapID, actorID, ActionCancel)
}

// transition applies one guarded lifecycle step. The event append carries
// the version the guard saw; if a concurrent transition appended first the
// store rejects ours and the caller gets fault.ErrConflict, so exactly one of
// two racing calls wins.
func (s *service) transition(ctx context.Context, swapID, actorID uuid.UUID, action Action) (*Swap, error) {
	sw, err := s.Get(ctx, swapID)
	if err != nil {
		s.observe(action, "not_found")
		return nil, err
	}

	if err := sw.Authorize(action, actorID); err != nil {
		s.observe(action, outcomeLabel(err))
		return nil, err
	}

	now := time.Now().UTC()
	target := action.Target()

	eventData := SwapTransitionedEvent{
		SwapID:  swapID,
		ActorID: actorID,
		Action:  action,
		From:    sw.Status,
		To:      target,
		At:      now,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   swapID,
		AggregateType: "swap",
		EventType:     "SwapTransitioned",
		EventData:     jsonData,
		Version:       sw.Version + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, swapID, "swap", sw.Version, []eventstore.Event{event}); err != nil {
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			s.observe(action, "conflict")
			return nil, fault.Conflict("swap %s was modified concurrently", swapID)
		}
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	var completed *time.Time
	if target == StatusCompleted {
		completed = &now
	}

	query := `
		UPDATE swaps
		SET status = $1, completed_date = COALESCE($2, completed_date), version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5
	`
	result, err := s.db.ExecContext(ctx, query, target, nullTime(completed), now, swapID, sw.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		s.observe(action, "conflict")
		return nil, fault.Conflict("swap %s was modified concurrently", swapID)
	}

	s.observe(action, "ok")

	sw.Status = target
	sw.CompletedDate = completed
	sw.Version++
	sw.UpdatedAt = now
	return sw, nil
}

// Get loads a swap from the read model.
func (s *service) Get(ctx context.Context, swapID uuid.UUID) (*Swap, error) {
	query := `
		SELECT id, requester_id, provider_id, requested_skill, offered_skill, status, message, scheduled_date, completed_date, version, created_at, updated_at
		FROM swaps
		WHERE id = $1
	`
	return scanSwap(s.db.QueryRowContext(ctx, query, swapID))
}

// ListByParticipant returns every swap where the user is requester or
// provider, newest first.
func (s *service) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*Swap, error) {
	query := `
		SELECT id, requester_id, provider_id, requested_skill, offered_skill, status, message, scheduled_date, completed_date, version, created_at, updated_at
		FROM swaps
		WHERE requester_id = $1 OR provider_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query swaps: %w", err)
	}
	defer rows.Close()

	var swaps []*Swap
	for rows.Next() {
		sw, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swaps: %w", err)
	}
	return swaps, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSwap(row rowScanner) (*Swap, error) {
	sw := &Swap{}
	var message sql.NullString
	var scheduled, completed sql.NullTime

	err := row.Scan(
		&sw.ID,
		&sw.RequesterID,
		&sw.ProviderID,
		&sw.RequestedSkill,
		&sw.OfferedSkill,
		&sw.Status,
		&message,
		&scheduled,
		&completed,
		&sw.Version,
		&sw.CreatedAt,
		&sw.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fault.NotFound("swap not found")
		}
		return nil, fmt.Errorf("failed to get swap from read model: %w", err)
	}

	sw.Message = message.String
	if scheduled.Valid {
		t := scheduled.Time
		sw.ScheduledDate = &t
	}
	if completed.Valid {
		t := completed.Time
		sw.CompletedDate = &t
	}
	return sw, nil
}

func (s *service) observe(action Action, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(action), outcome)
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, fault.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, fault.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, fault.ErrValidation):
		return "validation"
	default:
		return "error"
	}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func hasSkill(skills []string, skill string) bool {
	skill = strings.ToLower(strings.TrimSpace(skill))
	for _, s := range skills {
		if strings.ToLower(strings.TrimSpace(s)) == skill {
			return true
		}
	}
	return false
}
