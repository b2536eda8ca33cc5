// Package game talks to the external game-execution service that runs
// a match once its lobby is ready.
package game

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openlobby/lobby-service/internal/models"
)

const (
	serviceIDHeader = "x-internal-service-id"
	secretHeader    = "x-internal-secret"

	defaultTimeout = 10 * time.Second
)

// Client submits room snapshots to the game service. It performs no
// retries; a failed or timed-out call is the caller's signal to roll
// the room back.
type Client struct {
	baseURL   string
	serviceID string
	secret    string
	http      *http.Client
}

func NewClient(baseURL, serviceID, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   baseURL,
		serviceID: serviceID,
		secret:    secret,
		http:      &http.Client{Timeout: timeout},
	}
}

// Start POSTs the room snapshot to /games and returns the created game
// session payload verbatim. Any non-created response is a failure.
func (c *Client) Start(ctx context.Context, room *models.Room) (json.RawMessage, error) {
	body, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("failed to encode room snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/games", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build game request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(serviceIDHeader, c.serviceID)
	req.Header.Set(secretHeader, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("game service unreachable: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read game response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("game service returned %d", resp.StatusCode)
	}
	return payload, nil
}
