// Package apiclient is a client for the postily HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blackmichael/postily/internal/domain"
)

// Client talks to a running postily server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("API error (status %d): %s: %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// NewClient creates a client for the server at baseURL. token, if set, is
// sent as a bearer token for admin operations.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Import uploads postily in one request; the server batches the inserts.
func (c *Client) Import(ctx context.Context, postils []domain.Postil) (*domain.ImportReport, error) {
	body := struct {
		Postily []domain.Postil `json:"postily"`
	}{postils}

	var report domain.ImportReport
	if err := c.do(ctx, http.MethodPost, "/api/postily/import", body, &report); err != nil {
		return nil, fmt.Errorf("import postily: %w", err)
	}
	return &report, nil
}

// Count returns the number of stored postily.
func (c *Client) Count(ctx context.Context) (int64, error) {
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/postily/count", nil, &resp); err != nil {
		return 0, fmt.Errorf("count postily: %w", err)
	}
	return resp.Count, nil
}

// List returns every stored postil.
func (c *Client) List(ctx context.Context) ([]domain.Postil, error) {
	var resp struct {
		Postily []domain.Postil `json:"postily"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/postily", nil, &resp); err != nil {
		return nil, fmt.Errorf("list postily: %w", err)
	}
	return resp.Postily, nil
}

// Match returns postily matching a lectionary page. A positive limit
// truncates the result.
func (c *Client) Match(ctx context.Context, markdown string, limit int) ([]domain.MatchResult, error) {
	body := map[string]any{"markdown": markdown}
	if limit > 0 {
		body["limit"] = limit
	}
	var resp struct {
		Matches []domain.MatchResult `json:"matches"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/matches", body, &resp); err != nil {
		return nil, fmt.Errorf("match readings: %w", err)
	}
	return resp.Matches, nil
}

// DeleteAll removes every stored postil.
func (c *Client) DeleteAll(ctx context.Context) (int64, error) {
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/postily", nil, &resp); err != nil {
		return 0, fmt.Errorf("delete postily: %w", err)
	}
	return resp.Deleted, nil
}

// Deactivate soft-deletes one postil.
func (c *Client) Deactivate(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/postily/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("deactivate postil %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(respBody)}
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			apiErr.Kind, apiErr.Message = e.Error, e.Message
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
