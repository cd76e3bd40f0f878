// internal/profile/handler.go
package profile

import (
	"encoding/json"
	"errors"
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

// Register mounts the profile routes. The rating-apply route is internal:
// the gateway does not proxy /internal/, only the swap service calls it.
func (h *Handler) Register(r chi.Router, issuer *auth.Issuer) {
	r.Route("/profiles", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.Get("/search", h.HandleSearch)
		r.Get("/{id}", h.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(issuer))
			r.Get("/matches", h.HandleMatches)
			r.Patch("/{id}", h.HandleUpdate)
			r.Delete("/{id}", h.HandleDeactivate)
		})
	})

	r.Patch("/internal/profiles/{id}/rating", h.HandleApplyRating)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Bio       string `json:"bio"`
		Location  string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.service.Register(r.Context(), RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Location:  req.Location,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, token, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, errRateLimited) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(struct {
		Profile *Profile `json:"profile"`
		Token   string   `json:"token"`
	}{Profile: p, Token: token})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid profile ID", http.StatusBadRequest)
		return
	}

	p, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(p)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.ActorID(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid profile ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Bio           *string  `json:"bio"`
		Location      *string  `json:"location"`
		OfferedSkills []string `json:"offered_skills"`
		WantedSkills  []string `json:"wanted_skills"`
		Availability  []string `json:"availability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.service.UpdateProfile(r.Context(), actorID, id, UpdateInput{
		Bio:           req.Bio,
		Location:      req.Location,
		OfferedSkills: req.OfferedSkills,
		WantedSkills:  req.WantedSkills,
		Availability:  req.Availability,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(p)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.ActorID(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid profile ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Deactivate(r.Context(), actorID, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	skill := r.URL.Query().Get("skill")
	profiles, err := h.service.SearchByOfferedSkill(r.Context(), skill)
	if err != nil {
		writeError(w, err)
		return
	}
	if profiles == nil {
		profiles = []*Profile{}
	}

	json.NewEncoder(w).Encode(profiles)
}

// matchResponse is the wire shape of one discovery result.
type matchResponse struct {
	ProfileID     uuid.UUID `json:"profile_id"`
	Name          string    `json:"name"`
	OfferedSkills []string  `json:"offered_skills"`
	WantedSkills  []string  `json:"wanted_skills"`
	RatingAverage float64   `json:"rating_average"`
	Score         int       `json:"score"`
}

func (h *Handler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.ActorID(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	matches, err := h.service.Matches(r.Context(), actorID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchResponse{
			ProfileID:     m.Candidate.ID,
			Name:          m.Candidate.Name,
			OfferedSkills: m.Candidate.OfferedSkills,
			WantedSkills:  m.Candidate.WantedSkills,
			RatingAverage: m.Candidate.RatingAverage,
			Score:         m.Score,
		})
	}

	json.NewEncoder(w).Encode(out)
}

// HandleApplyRating is the internal aggregate-update endpoint consumed by
// the swap service after a rating is recorded.
func (h *Handler) HandleApplyRating(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid profile ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	avg, count, err := h.service.ApplyRating(r.Context(), id, req.Rating)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(struct {
		RatingAverage float64 `json:"rating_average"`
		RatingCount   int     `json:"rating_count"`
	}{RatingAverage: avg, RatingCount: count})
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errRateLimited) {
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	}
	http.Error(w, err.Error(), fault.Status(err))
}
