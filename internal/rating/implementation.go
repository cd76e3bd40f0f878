// internal/rating/implementation.go
package rating

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"skillswap/internal/fault"
	"skillswap/internal/swap"
	"skillswap/pkg/eventstore"
	"skillswap/pkg/metrics"
)

// AggregateApplier folds a submitted rating into the rated profile's
// running average. In production this is the profile service client.
type AggregateApplier interface {
	ApplyRating(ctx context.Context, profileID uuid.UUID, rating int) (float64, int, error)
}

// service implements the Service interface.
type service struct {
	eventStore *eventstore.EventStore
	db         *sql.DB
	swaps      swap.Service
	profiles   AggregateApplier
	metrics    *metrics.Manager
}

// NewService creates a new rating service instance.
func NewService(es *eventstore.EventStore, db *sql.DB, swaps swap.Service, profiles AggregateApplier, m *metrics.Manager) Service {
	return &service{
		eventStore: es,
		db:         db,
		swaps:      swaps,
		profiles:   profiles,
		metrics:    m,
	}
}

// Submit records a rating for the counterparty of a completed swap and
// folds it into that profile's aggregate. The rated user is derived from
// the swap, never taken from the caller.
func (s *service) Submit(ctx context.Context, raterID uuid.UUID, in SubmitInput) (*Rating, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, fault.Validation("rating must be between 1 and 5")
	}

	sw, err := s.swaps.Get(ctx, in.SwapID)
	if err != nil {
		return nil, err
	}
	if raterID != sw.RequesterID && raterID != sw.ProviderID {
		return nil, fault.Unauthorized("only swap participants may rate it")
	}
	if sw.Status != swap.StatusCompleted {
		return nil, fault.InvalidTransition("swap %s is %s, only completed swaps can be rated", sw.ID, sw.Status)
	}

	ratedUserID := sw.RequesterID
	if raterID == sw.RequesterID {
		ratedUserID = sw.ProviderID
	}

	r := &Rating{
		ID:          uuid.New(),
		SwapID:      in.SwapID,
		RaterID:     raterID,
		RatedUserID: ratedUserID,
		Rating:      in.Rating,
		Comment:     in.Comment,
		Tags:        in.Tags,
		CreatedAt:   time.Now().UTC(),
	}

	// The unique index on (swap_id, rater_id) is what enforces the
	// one-rating-per-participant rule under concurrency.
	query := `
		INSERT INTO ratings (id, swap_id, rater_id, rated_user_id, rating, comment, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.SwapID, r.RaterID, r.RatedUserID, r.Rating, r.Comment, pq.Array(r.Tags), r.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fault.Validation("swap %s already rated by this user", in.SwapID)
		}
		return nil, fmt.Errorf("failed to insert rating: %w", err)
	}

	jsonData, err := json.Marshal(RatingSubmittedEvent{
		ID:          r.ID,
		SwapID:      r.SwapID,
		RaterID:     r.RaterID,
		RatedUserID: r.RatedUserID,
		Rating:      r.Rating,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	event := eventstore.Event{
		AggregateID:   r.ID,
		AggregateType: "rating",
		EventType:     "RatingSubmitted",
		EventData:     jsonData,
		Version:       1,
	}
	if err := s.eventStore.AppendEvents(ctx, r.ID, "rating", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	if _, _, err := s.profiles.ApplyRating(ctx, ratedUserID, in.Rating); err != nil {
		// compensate so a retry is not rejected as a duplicate
		if _, delErr := s.db.ExecContext(ctx, `DELETE FROM ratings WHERE id = $1`, r.ID); delErr != nil {
			return nil, fmt.Errorf("failed to apply rating aggregate (compensation also failed: %v): %w", delErr, err)
		}
		return nil, fmt.Errorf("failed to apply rating aggregate: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ObserveRating()
	}
	return r, nil
}

// ListByRatedUser returns the ratings received by a user, newest first.
func (s *service) ListByRatedUser(ctx context.Context, userID uuid.UUID) ([]*Rating, error) {
	return s.queryRatings(ctx, selectRating+` WHERE rated_user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListBySwap returns the ratings recorded for a swap, at most one per
// participant.
func (s *service) ListBySwap(ctx context.Context, swapID uuid.UUID) ([]*Rating, error) {
	return s.queryRatings(ctx, selectRating+` WHERE swap_id = $1 ORDER BY created_at`, swapID)
}

const selectRating = `
	SELECT id, swap_id, rater_id, rated_user_id, rating, comment, tags, created_at
	FROM ratings
`

func (s *service) queryRatings(ctx context.Context, query string, args ...interface{}) ([]*Rating, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*Rating
	for rows.Next() {
		r := &Rating{}
		var comment sql.NullString
		if err := rows.Scan(&r.ID, &r.SwapID, &r.RaterID, &r.RatedUserID, &r.Rating, &comment, pq.Array(&r.Tags), &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		r.Comment = comment.String
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}
