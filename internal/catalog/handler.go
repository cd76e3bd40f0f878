// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

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

// Register mounts the skill catalog routes. Reads are public, writes
// require a bearer token. The use-recording route is internal and is
// called by the swap service, not proxied by the gateway.
func (h *Handler) Register(r chi.Router, issuer *auth.Issuer) {
	r.Route("/skills", func(r chi.Router) {
		r.Get("/search", h.HandleSearch)
		r.Get("/popular", h.HandlePopular)
		r.Get("/{id}", h.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(issuer))
			r.Post("/", h.HandleAdd)
			r.Delete("/{id}", h.HandleDeactivate)
		})
	})

	r.Post("/internal/skills/use", h.HandleRecordUse)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	skill, err := h.service.AddSkill(r.Context(), AddInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(skill)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid skill ID", http.StatusBadRequest)
		return
	}

	skill, err := h.service.GetSkill(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}

	json.NewEncoder(w).Encode(skill)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	skills, err := h.service.Search(r.Context(), query)
	if err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}
	if skills == nil {
		skills = []*Skill{}
	}
	json.NewEncoder(w).Encode(skills)
}

func (h *Handler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	skills, err := h.service.Popular(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}
	if skills == nil {
		skills = []*Skill{}
	}
	json.NewEncoder(w).Encode(skills)
}

func (h *Handler) HandleRecordUse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.RecordUse(r.Context(), req.Name); err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid skill ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		http.Error(w, err.Error(), fault.Status(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
