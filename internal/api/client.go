package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Martbul/outDrinkMe-sub001/internal/protocol"
)

// TokenProvider supplies the bearer credential used to authorize the
// session channel. The real provider lives in the auth subsystem; this
// package only consumes the interface.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed-credential provider, used by the CLI and tests.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client talks to the REST backend for session creation and public-session
// discovery. Discovery is a best-effort snapshot, nothing more.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type createSessionRequest struct {
	GameType string `json:"gameType"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// CreateSession asks the backend for a fresh session of the given game type.
func (c *Client) CreateSession(ctx context.Context, gameType string) (string, error) {
	body, _ := json.Marshal(createSessionRequest{GameType: gameType})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create session: unexpected status %d", resp.StatusCode)
	}

	var out createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("create session: decode: %w", err)
	}
	return out.SessionID, nil
}

// ListPublicSessions returns the sessions currently open for browsing.
func (c *Client) ListPublicSessions(ctx context.Context) ([]protocol.PublicSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/sessions/public", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list public sessions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list public sessions: unexpected status %d", resp.StatusCode)
	}

	var out []protocol.PublicSession
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("list public sessions: decode: %w", err)
	}
	return out, nil
}
