// internal/profile/domain.go
package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a platform member: who they are, what they teach, what they
// want to learn, and their rating aggregate. The aggregate pair
// (rating_average, rating_count) is written only through ApplyRating;
// rating_average is 0 while rating_count is 0.
type Profile struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Bio           string    `json:"bio,omitempty"`
	Location      string    `json:"location,omitempty"`
	OfferedSkills []string  `json:"offered_skills"`
	WantedSkills  []string  `json:"wanted_skills"`
	Availability  []string  `json:"availability,omitempty"`
	RatingAverage float64   `json:"rating_average"`
	RatingCount   int       `json:"rating_count"`
	Active        bool      `json:"active"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Name returns the display name used for match ranking tiebreaks.
func (p *Profile) Name() string {
	return p.FirstName + " " + p.LastName
}

// Credential holds a profile's login secret, stored apart from the profile
// and never serialized.
type Credential struct {
	ProfileID    uuid.UUID `json:"-"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
}

// ProfileRegisteredEvent is published when a new profile registers.
type ProfileRegisteredEvent struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// ProfileUpdatedEvent is published when the owner edits profile fields or
// skill sets.
type ProfileUpdatedEvent struct {
	ID            uuid.UUID `json:"id"`
	OfferedSkills []string  `json:"offered_skills"`
	WantedSkills  []string  `json:"wanted_skills"`
}

// ProfileDeactivatedEvent is published when a profile is deactivated.
type ProfileDeactivatedEvent struct {
	ID uuid.UUID `json:"id"`
}
