// internal/clients/profile_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"skillswap/internal/fault"
	"skillswap/internal/profile"
)

// ProfileClient talks to the profile service. The swap service uses it
// as its profile directory and the rating service uses it to fold
// aggregates.
type ProfileClient struct {
	baseURL string
}

func NewProfileClient(baseURL string) *ProfileClient {
	return &ProfileClient{baseURL: baseURL}
}

func (c *ProfileClient) GetProfile(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/profiles/%s", c.baseURL, id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fault.NotFound("profile %s not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var p profile.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *ProfileClient) ApplyRating(ctx context.Context, profileID uuid.UUID, rating int) (float64, int, error) {
	body, err := json.Marshal(struct {
		Rating int `json:"rating"`
	}{Rating: rating})
	if err != nil {
		return 0, 0, err
	}

	url := fmt.Sprintf("%s/internal/profiles/%s/rating", c.baseURL, profileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, 0, fault.NotFound("profile %s not found", profileID)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var out struct {
		RatingAverage float64 `json:"rating_average"`
		RatingCount   int     `json:"rating_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, err
	}
	return out.RatingAverage, out.RatingCount, nil
}
