// internal/profile/service.go
package profile

import (
	"context"

	"github.com/google/uuid"

	"skillswap/internal/matching"
)

// RegisterInput carries a new member's registration data.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Bio       string
	Location  string
}

// UpdateInput carries owner-editable profile fields. Nil slices leave the
// corresponding skill set unchanged.
type UpdateInput struct {
	Bio           *string
	Location      *string
	OfferedSkills []string
	WantedSkills  []string
	Availability  []string
}

// Service defines the interface for the profile service.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Profile, error)
	Authenticate(ctx context.Context, email, password string) (*Profile, string, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, actorID, profileID uuid.UUID, in UpdateInput) (*Profile, error)
	Deactivate(ctx context.Context, actorID, profileID uuid.UUID) error
	SearchByOfferedSkill(ctx context.Context, skill string) ([]*Profile, error)
	Matches(ctx context.Context, viewerID uuid.UUID, limit int) ([]matching.Match, error)
	ApplyRating(ctx context.Context, profileID uuid.UUID, rating int) (float64, int, error)
}
