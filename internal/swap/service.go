// internal/swap/service.go
package swap

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreateInput carries the requester's proposal.
type CreateInput struct {
	ProviderID     uuid.UUID
	RequestedSkill string
	OfferedSkill   string
	Message        string
	ScheduledDate  *time.Time
}

// Service defines the interface for the swap ledger.
type Service interface {
	Create(ctx context.Context, requesterID uuid.UUID, in CreateInput) (*Swap, error)
	Accept(ctx context.Context, swapID, actorID uuid.UUID) (*Swap, error)
	Reject(ctx context.Context, swapID, actorID uuid.UUID) (*Swap, error)
	Complete(ctx context.Context, swapID, actorID uuid.UUID) (*Swap, error)
	Cancel(ctx context.Context, swapID, actorID uuid.UUID) (*Swap, error)
	Get(ctx context.Context, swapID uuid.UUID) (*Swap, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*Swap, error)
}
