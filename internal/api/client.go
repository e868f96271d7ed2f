package api

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
)

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a client for the daemon bound at addr (host:port or
// full URL).
func NewClient(addr string) *Client {
	base := strings.TrimSpace(addr)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var status DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// ListJobs fetches queue jobs, optionally filtered by status strings.
func (c *Client) ListJobs(ctx context.Context, statuses ...string) ([]QueueJob, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var resp QueueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// GetJob fetches one queue job by id.
func (c *Client) GetJob(ctx context.Context, id int64) (QueueJob, error) {
	var resp QueueJobResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/queue/%d", id), nil, &resp)
	return resp.Job, err
}

// Submit enqueues a new conversion job.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (QueueJob, error) {
	var resp QueueJobResponse
	err := c.do(ctx, http.MethodPost, "/api/queue", req, &resp)
	return resp.Job, err
}

// Voices fetches the narration voice catalog.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	var resp VoicesResponse
	if err := c.do(ctx, http.MethodGet, "/api/voices", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Voices, nil
}

// RetryFailed resets failed jobs (optionally a subset) back to pending.
func (c *Client) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	var resp CountResponse
	payload := map[string][]int64{"ids": ids}
	err := c.do(ctx, http.MethodPost, "/api/queue/retry", payload, &resp)
	return resp.Count, err
}

// RemoveJob deletes a single queue job.
func (c *Client) RemoveJob(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/queue/%d", id), nil, nil)
}

// ClearQueue removes jobs in bulk. Scope is "all", "completed", or "failed".
func (c *Client) ClearQueue(ctx context.Context, scope string) (int64, error) {
	var resp CountResponse
	err := c.do(ctx, http.MethodPost, "/api/queue/clear?scope="+url.QueryEscape(scope), nil, &resp)
	return resp.Count, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("daemon address not configured")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
