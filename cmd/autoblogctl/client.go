package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ricirt/autoblog/internal/domain"
)

// apiClient talks to the autoblog admin API.
type apiClient struct {
	base       string
	token      string
	httpClient *http.Client
}

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:       strings.TrimRight(base, "/") + "/api/v1",
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError is a non-2xx answer carrying the server's message.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type generateResult struct {
	Message string  `json:"message"`
	IDs     []int64 `json:"ids"`
}

type queueRow struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Status       domain.Status `json:"status"`
	PostID       *int64        `json:"post_id"`
	EditURL      *string       `json:"edit_url"`
	ErrorMessage *string       `json:"error_message"`
	RetryCount   int           `json:"retry_count"`
	CreatedAt    time.Time     `json:"created_at"`
}

type messageBody struct {
	Message string `json:"message"`
}

func (c *apiClient) Generate(ctx context.Context, req domain.GenerateRequest) (generateResult, error) {
	var out generateResult
	err := c.do(ctx, http.MethodPost, "/generate", req, &out)
	return out, err
}

func (c *apiClient) Queue(ctx context.Context) ([]queueRow, error) {
	var out []queueRow
	err := c.do(ctx, http.MethodGet, "/queue", nil, &out)
	return out, err
}

func (c *apiClient) Retry(ctx context.Context, id int64) (string, error) {
	var out messageBody
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/queue/%d/retry", id), nil, &out)
	return out.Message, err
}

func (c *apiClient) Delete(ctx context.Context, id int64) (string, error) {
	var out messageBody
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/queue/%d", id), nil, &out)
	return out.Message, err
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageBody
		if json.Unmarshal(raw, &msg) != nil || msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &apiError{Status: resp.StatusCode, Message: msg.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
