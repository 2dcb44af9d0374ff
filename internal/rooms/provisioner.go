package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable marks a transient provisioning failure. Callers surface it
// as a retryable, user-facing error.
var ErrUnavailable = errors.New("room provisioner unavailable")

// Provisioner creates and destroys ephemeral video rooms on the managed
// vendor. CreateRoom is idempotent on the vendor side: calling it twice for
// the same date returns the existing room rather than a duplicate.
type Provisioner interface {
	CreateRoom(ctx context.Context, verityDateID uint64) (roomURL string, err error)
	DeleteRoom(ctx context.Context, verityDateID uint64) error
}

// HTTPProvisioner talks to the vendor's REST API.
type HTTPProvisioner struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPProvisioner(baseURL, apiKey string, timeout time.Duration) *HTTPProvisioner {
	return &HTTPProvisioner{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type createRoomResponse struct {
	URL string `json:"url"`
}

func (p *HTTPProvisioner) CreateRoom(ctx context.Context, verityDateID uint64) (string, error) {
	body, err := json.Marshal(createRoomRequest{Name: fmt.Sprintf("verity-date-%d", verityDateID)})
	if err != nil {
		return "", fmt.Errorf("failed to marshal room request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/rooms", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build room request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var out createRoomResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("failed to decode room response: %w", err)
		}
		if out.URL == "" {
			return "", fmt.Errorf("room response missing url")
		}
		return out.URL, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return "", fmt.Errorf("room provisioner rejected request: status %d", resp.StatusCode)
	}
}

func (p *HTTPProvisioner) DeleteRoom(ctx context.Context, verityDateID uint64) error {
	url := fmt.Sprintf("%s/v1/rooms/verity-date-%d", p.BaseURL, verityDateID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
