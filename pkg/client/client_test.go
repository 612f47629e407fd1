package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"driftwatch/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(&models.Config{APIKey: "test-key", BaseURL: server.URL},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(&models.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("New() error = nil, want missing API key error")
	}
}

func TestGetJob_SendsAuthAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"job-1","status":"running"}`)
	})

	snap, err := c.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if snap.Status != models.JobRunning {
		t.Errorf("status = %q, want running", snap.Status)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestDo_ServerErrorIsTransientAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.GetJob(context.Background(), "job-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", apiErr.Status)
	}
	if !apiErr.Transient() {
		t.Error("5xx should be transient")
	}
	if !IsTransient(err) {
		t.Error("IsTransient() = false for a 5xx APIError")
	}
}

func TestDo_ClientErrorIsNotTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such job", http.StatusNotFound)
	})

	_, err := c.GetJob(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Transient() {
		t.Error("404 should not be transient")
	}
}

func TestListWorkflows_StatusFilter(t *testing.T) {
	var gotStatus string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotStatus = r.URL.Query().Get("status")
		io.WriteString(w, `{"workflows":[{"id":"wf-1","name":"W1","status":"active"}]}`)
	})

	workflows, err := c.ListWorkflows(context.Background(), ListOptions{Status: "active", Limit: 20})
	if err != nil {
		t.Fatalf("ListWorkflows() error = %v", err)
	}
	if gotStatus != "active" {
		t.Errorf("status query = %q, want active", gotStatus)
	}
	if len(workflows) != 1 || workflows[0].ID != "wf-1" {
		t.Errorf("workflows = %+v", workflows)
	}
}

func TestDiff_SendsSinceParam(t *testing.T) {
	var gotSince string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSince = r.URL.Query().Get("since")
		io.WriteString(w, `{"workflow_id":"wf-1","stats":{}}`)
	})

	since := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	diff, err := c.Diff(context.Background(), "wf-1", since)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if gotSince != "2026-08-23T00:00:00Z" {
		t.Errorf("since query = %q", gotSince)
	}
	if diff.WorkflowID != "wf-1" {
		t.Errorf("WorkflowID = %q", diff.WorkflowID)
	}
}

func TestSubmitSearch_PostsBody(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody SearchRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("request body did not decode: %v", err)
		}
		io.WriteString(w, `{"id":"job-9","status":"pending","query":"ai act"}`)
	})

	snap, err := c.SubmitSearch(context.Background(),
		SearchRequest{Query: "ai act", WithSummary: true, WithMetadata: true})
	if err != nil {
		t.Fatalf("SubmitSearch() error = %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/search" {
		t.Errorf("request = %s %s, want POST /search", gotMethod, gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if !gotBody.WithSummary || !gotBody.WithMetadata {
		t.Errorf("body = %+v, want with_summary and with_metadata set", gotBody)
	}
	if snap.Query != "ai act" {
		t.Errorf("echoed query = %q", snap.Query)
	}
}

func TestSubmitCrawl_RequestsMetadata(t *testing.T) {
	var gotBody CrawlRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("request body did not decode: %v", err)
		}
		io.WriteString(w, `{"id":"job-10","status":"pending"}`)
	})

	_, err := c.SubmitCrawl(context.Background(),
		CrawlRequest{URL: "https://example.com", WithMetadata: true})
	if err != nil {
		t.Fatalf("SubmitCrawl() error = %v", err)
	}
	if !gotBody.WithMetadata {
		t.Errorf("body = %+v, want with_metadata set", gotBody)
	}
}
