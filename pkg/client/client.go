// Package client is the HTTP adapter for the remote content-discovery service.
// It translates typed calls into requests and decodes JSON responses; all
// business logic lives in the callers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"driftwatch/models"
	"github.com/google/uuid"
)

// DefaultRequestTimeout bounds each individual outbound request so one stuck
// call cannot silently stall an entire polling budget.
const DefaultRequestTimeout = 30 * time.Second

// APIError is a non-2xx response from the service.
type APIError struct {
	Status    int
	RequestID string
	Body      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("service returned %d (request %s): %s", e.Status, e.RequestID, e.Body)
}

// Transient reports whether the failure is worth continuing past: server-side
// errors and rate limiting, but not client mistakes like 404 or 422.
func (e *APIError) Transient() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// IsTransient reports whether err should be swallowed by polling loops.
// Network-level failures count as transient; only definitive client errors
// do not.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	// URL/network errors (timeouts, refused connections) are transient.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Client talks to the remote service. Zero state is kept between calls.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

// New builds a client from resolved configuration.
func New(cfg *models.Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured (set DRIFTWATCH_API_KEY or api_key in %s)", models.DefaultConfigPath())
	}

	timeout := DefaultRequestTimeout
	if cfg.RequestTimeout != "" {
		parsed, err := time.ParseDuration(cfg.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid request_timeout: %w", err)
		}
		timeout = parsed
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}, nil
}

// SearchRequest is the input to a search job submission.
type SearchRequest struct {
	Query        string `json:"query"`
	MaxResults   int    `json:"max_results,omitempty"`
	WithSummary  bool   `json:"with_summary,omitempty"`
	WithMetadata bool   `json:"with_metadata,omitempty"`
}

// CrawlRequest is the input to a crawl job submission.
type CrawlRequest struct {
	URL          string `json:"url"`
	Depth        int    `json:"depth,omitempty"`
	WithSummary  bool   `json:"with_summary,omitempty"`
	WithMetadata bool   `json:"with_metadata,omitempty"`
}

// ListOptions filter the workflow listing.
type ListOptions struct {
	Status string // empty means all statuses
	Limit  int
}

// SubmitSearch starts a search job and returns the submission snapshot.
func (c *Client) SubmitSearch(ctx context.Context, req SearchRequest) (*models.JobSnapshot, error) {
	var snap models.JobSnapshot
	if err := c.do(ctx, http.MethodPost, "/search", req, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SubmitCrawl starts a crawl job and returns the submission snapshot.
func (c *Client) SubmitCrawl(ctx context.Context, req CrawlRequest) (*models.JobSnapshot, error) {
	var snap models.JobSnapshot
	if err := c.do(ctx, http.MethodPost, "/crawl", req, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetJob fetches the current snapshot of a job by id.
func (c *Client) GetJob(ctx context.Context, id string) (*models.JobSnapshot, error) {
	var snap models.JobSnapshot
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListWorkflows returns workflows, optionally filtered by status.
func (c *Client) ListWorkflows(ctx context.Context, opts ListOptions) ([]models.Workflow, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	var resp struct {
		Workflows []models.Workflow `json:"workflows"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/workflows", q), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Workflows, nil
}

// Executions returns a workflow's most recent executions, newest first.
func (c *Client) Executions(ctx context.Context, workflowID string, limit int) ([]models.Execution, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		Executions []models.Execution `json:"executions"`
	}
	path := "/workflows/" + url.PathEscape(workflowID) + "/executions"
	if err := c.do(ctx, http.MethodGet, withQuery(path, q), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Executions, nil
}

// Diff returns the change diff for a workflow since the given timestamp.
func (c *Client) Diff(ctx context.Context, workflowID string, since time.Time) (*models.DiffResult, error) {
	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339))

	var diff models.DiffResult
	path := "/workflows/" + url.PathEscape(workflowID) + "/diff"
	if err := c.do(ctx, http.MethodGet, withQuery(path, q), nil, &diff); err != nil {
		return nil, err
	}
	return &diff, nil
}

// truncateBody keeps error messages readable when the service returns a page
// of HTML instead of a JSON error.
func truncateBody(data []byte) string {
	const max = 300
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("Request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("Service error", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)
		return &APIError{Status: resp.StatusCode, RequestID: requestID, Body: truncateBody(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}
