// internal/swap/domain.go
package swap

import (
	"time"

	"github.com/google/uuid"

	"skillswap/internal/fault"
)

// Status is the lifecycle state of a swap. Serialized as the lowercase
// literal in storage and on the wire.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no transition leaves the status. Terminal swaps
// are permanent history; the ledger never deletes them.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

// Action is a requested transition on the ledger.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// Swap is a bilateral proposal to exchange the requester's offered skill
// for the provider's. Participants and skills are immutable after creation;
// only status, completed_date and updated_at change, through transitions.
type Swap struct {
	ID             uuid.UUID  `json:"id"`
	RequesterID    uuid.UUID  `json:"requester_id"`
	ProviderID     uuid.UUID  `json:"provider_id"`
	RequestedSkill string     `json:"requested_skill"`
	OfferedSkill   string     `json:"offered_skill"`
	Status         Status     `json:"status"`
	Message        string     `json:"message,omitempty"`
	ScheduledDate  *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate  *time.Time `json:"completed_date,omitempty"`
	Version        int        `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// rule is one row of the transition table: which states an action may leave
// from, where it lands, and who may perform it.
type rule struct {
	from         map[Status]bool
	to           Status
	providerOnly bool
}

// transitions is the single authoritative transition table. Guard logic
// lives here and nowhere else. Only the provider, the one whose offered
// skill was requested, decides on a pending proposal; once accepted, both
// parties have equal stake, so completion and cancellation are symmetric.
var transitions = map[Action]rule{
	ActionAccept:   {from: set(StatusPending), to: StatusAccepted, providerOnly: true},
	ActionReject:   {from: set(StatusPending), to: StatusRejected, providerOnly: true},
	ActionComplete: {from: set(StatusAccepted), to: StatusCompleted},
	ActionCancel:   {from: set(StatusPending, StatusAccepted), to: StatusCancelled},
}

func set(statuses ...Status) map[Status]bool {
	m := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}

// Authorize checks the state guard, then the actor guard, for applying
// action to s. It returns fault.ErrInvalidTransition or
// fault.ErrUnauthorized; a nil result means the transition may proceed.
func (s *Swap) Authorize(action Action, actorID uuid.UUID) error {
	r, ok := transitions[action]
	if !ok {
		return fault.Validation("unknown action %q", action)
	}

	if !r.from[s.Status] {
		return fault.InvalidTransition("cannot %s a swap in status %q", action, s.Status)
	}

	if r.providerOnly {
		if actorID != s.ProviderID {
			return fault.Unauthorized("only the provider may %s a pending swap", action)
		}
		return nil
	}

	if actorID != s.RequesterID && actorID != s.ProviderID {
		return fault.Unauthorized("only swap participants may %s this swap", action)
	}
	return nil
}

// Target returns the status an action lands in. Callers must have passed
// Authorize first.
func (a Action) Target() Status {
	return transitions[a].to
}

// SwapRequestedEvent is published when a requester proposes a swap.
type SwapRequestedEvent struct {
	SwapID         uuid.UUID  `json:"swap_id"`
	RequesterID    uuid.UUID  `json:"requester_id"`
	ProviderID     uuid.UUID  `json:"provider_id"`
	RequestedSkill string     `json:"requested_skill"`
	OfferedSkill   string     `json:"offered_skill"`
	Message        string     `json:"message,omitempty"`
	ScheduledDate  *time.Time `json:"scheduled_date,omitempty"`
}

// SwapTransitionedEvent is published for every lifecycle transition.
type SwapTransitionedEvent struct {
	SwapID  uuid.UUID `json:"swap_id"`
	ActorID uuid.UUID `json:"actor_id"`
	Action  Action    `json:"action"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	At      time.Time `json:"at"`
}
