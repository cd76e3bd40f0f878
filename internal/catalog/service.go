// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// AddInput carries a new catalog entry.
type AddInput struct {
	Name        string
	Description string
	Category    string
}

// Service defines the interface for the skill catalog.
type Service interface {
	AddSkill(ctx context.Context, in AddInput) (*Skill, error)
	GetSkill(ctx context.Context, id uuid.UUID) (*Skill, error)
	Search(ctx context.Context, query string) ([]*Skill, error)
	Popular(ctx context.Context, limit int) ([]*Skill, error)
	RecordUse(ctx context.Context, name string) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}
