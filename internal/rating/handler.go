// internal/rating/handler.go
package rating

import (
	"encoding/json"
	"net/http"

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

// Register mounts the rating routes. All of them require a bearer token.
func (h *Handler) Register(r chi.Router, issuer *auth.Issuer) {
	r.Route("/ratings", func(r chi.Router) {
		r.Use(auth.Middleware(issuer))
		r.Post("/", h.HandleSubmit)
		r.Get("/user/{id}", h.HandleListByRatedUser)
		r.Get("/swap/{id}", h.HandleListBySwap)
	})
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.ActorID(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		SwapID  uuid.UUID `json:"swap_id"`
		Rating  int       `json:"rating"`
		Comment string    `json:"comment"`
		Tags    []string  `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rating, err := h.service.Submit(r.Context(), actorID, SubmitInput{
		SwapID:  req.SwapID,
		Rating:  req.Rating,
		Comment: req.Comment,
		Tags:    req.Tags,
	})
	if err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rating)
}

func (h *Handler) HandleListByRatedUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	ratings, err := h.service.ListByRatedUser(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}
	if ratings == nil {
		ratings = []*Rating{}
	}
	json.NewEncoder(w).Encode(ratings)
}

func (h *Handler) HandleListBySwap(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid swap ID", http.StatusBadRequest)
		return
	}

	ratings, err := h.service.ListBySwap(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}
	if ratings == nil {
		ratings = []*Rating{}
	}
	json.NewEncoder(w).Encode(ratings)
}
