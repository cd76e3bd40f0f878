// internal/rating/domain.go
package rating

import (
	"time"

	"github.com/google/uuid"
)

// Rating is one participant's review of the other side of a completed
// swap. A participant rates each swap at most once.
type Rating struct {
	ID          uuid.UUID `json:"id"`
	SwapID      uuid.UUID `json:"swap_id"`
	RaterID     uuid.UUID `json:"rater_id"`
	RatedUserID uuid.UUID `json:"rated_user_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RatingSubmittedEvent records a submitted rating in the event journal.
type RatingSubmittedEvent struct {
	ID          uuid.UUID `json:"id"`
	SwapID      uuid.UUID `json:"swap_id"`
	RaterID     uuid.UUID `json:"rater_id"`
	RatedUserID uuid.UUID `json:"rated_user_id"`
	Rating      int       `json:"rating"`
}
