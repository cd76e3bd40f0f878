// internal/catalog/domain.go
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Skill is a catalog entry that swap participants can offer or want.
// Popularity counts how many swaps have named the skill.
type Skill struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Popularity  int       `json:"popularity"`
	Active      bool      `json:"active"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SkillAddedEvent is published when a new skill enters the catalog.
type SkillAddedEvent struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category,omitempty"`
}

// SkillUsedEvent is published when a swap names the skill.
type SkillUsedEvent struct {
	ID         uuid.UUID `json:"id"`
	Popularity int       `json:"popularity"`
}

// SkillDeactivatedEvent is published when a skill is retired from the
// catalog.
type SkillDeactivatedEvent struct {
	ID uuid.UUID `json:"id"`
}
