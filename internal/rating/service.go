// internal/rating/service.go
package rating

import (
	"context"

	"github.com/google/uuid"
)

// SubmitInput carries one rating submission.
type SubmitInput struct {
	SwapID  uuid.UUID
	Rating  int
	Comment string
	Tags    []string
}

// Service defines the interface for swap ratings.
type Service interface {
	Submit(ctx context.Context, raterID uuid.UUID, in SubmitInput) (*Rating, error)
	ListByRatedUser(ctx context.Context, userID uuid.UUID) ([]*Rating, error)
	ListBySwap(ctx context.Context, swapID uuid.UUID) ([]*Rating, error)
}
