// internal/swap/handler.go
package swap

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"skillswap/internal/auth"
	"skillswap/internal/fault"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the swap routes. All of them require a bearer token; the
// authenticated caller is the requester on create and the actor on
// transitions.
func (h *Handler) Register(r chi.Router, issuer *auth.Issuer) {
	r.Route("/swaps", func(r chi.Router) {
		r.Use(auth.Middleware(issuer))
		r.Post("/", h.HandleCreate)
		r.Get("/my-swaps", h.HandleMySwaps)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}/accept", h.transitionHandler(h.service.Accept))
		r.Patch("/{id}/reject", h.transitionHandler(h.service.Reject))
		r.Patch("/{id}/complete", h.transitionHandler(h.service.Complete))
		r.Patch("/{id}/cancel", h.transitionHandler(h.service.Cancel))
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.ActorID(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		ProviderID     uuid.UUID  `json:"provider_id"`
		RequestedSkill string     `json:"requested_skill"`
		OfferedSkill   string     `json:"offered_skill"`
		Message        string     `json:"message"`
		ScheduledDate  *time.Time `json:"scheduled_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.service.Create(r.Context(), actorID, CreateInput{
		ProviderID:     req.ProviderID,
		RequestedSkill: req.RequestedSkill,
		OfferedSkill:   req.OfferedSkill,
		Message:        req.Message,
		ScheduledDate:  req.ScheduledDate,
	})
	if err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}

func (h *Handler) HandleMySwaps(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.ActorID(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	swaps, err := h.service.ListByParticipant(r.Context(), actorID)
	if err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}
	if swaps == nil {
		swaps = []*Swap{}
	}

	json.NewEncoder(w).Encode(swaps)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid swap ID", http.StatusBadRequest)
		return
	}

	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}

	json.NewEncoder(w).Encode(record)
}

// transitionHandler adapts one ledger transition method into an HTTP
// handler; the four PATCH verbs differ only in which method they call.
func (h *Handler) transitionHandler(op func(context.Context, uuid.UUID, uuid.UUID) (*Swap, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := auth.ActorID(r.Context())
		if !ok {
			http.Error(w, "missing caller identity", http.StatusUnauthorized)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid swap ID", http.StatusBadRequest)
			return
		}

		record, err := op(r.Context(), id, actorID)
		if err != nil {
			http.Error(w, err.Error(), fault.Status(err))
			return
		}

		json.NewEncoder(w).Encode(record)
	}
}
