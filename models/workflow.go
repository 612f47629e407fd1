package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// WorkflowStatus is the lifecycle state of a monitoring workflow.
type WorkflowStatus string

const (
	WorkflowActive    WorkflowStatus = "active"
	WorkflowPaused    WorkflowStatus = "paused"
	WorkflowCompleted WorkflowStatus = "completed" // stop condition met or executions exhausted
	WorkflowFailed    WorkflowStatus = "failed"
)

// Workflow is a long-lived monitoring job on the remote service. It re-executes
// on a schedule and diffs the content it tracks between executions.
type Workflow struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Status          WorkflowStatus `json:"status"`
	Priority        string         `json:"priority,omitempty"` // high, normal, low
	URL             string         `json:"url,omitempty"`
	Query           string         `json:"query,omitempty"`
	StopCondition   string         `json:"stop_condition,omitempty"`
	LastExecutionAt *time.Time     `json:"last_execution_at,omitempty"`
	CreatedAt       *time.Time     `json:"created_at,omitempty"`
}

// Execution is one run of a workflow.
type Execution struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	PagesChanged int        `json:"pages_changed,omitempty"`
}

// EffectiveTime is the completion timestamp, falling back to start time for
// executions that are still running.
func (e Execution) EffectiveTime() *time.Time {
	if e.CompletedAt != nil {
		return e.CompletedAt
	}
	return e.StartedAt
}

// ChangeKind classifies one field-level change between executions.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeIncrease ChangeKind = "increase"
	ChangeDecrease ChangeKind = "decrease"
	ChangeModified ChangeKind = "modified" // status/text change
)

// ChangeEntry is a single field change observed in one execution diff.
type ChangeEntry struct {
	Field string     `json:"field"`
	From  string     `json:"from,omitempty"`
	To    string     `json:"to,omitempty"`
	Kind  ChangeKind `json:"kind"`
}

// ExecutionDiff is the set of changes one execution produced.
type ExecutionDiff struct {
	ExecutionID string        `json:"execution_id"`
	Timestamp   *time.Time    `json:"timestamp,omitempty"`
	Changes     []ChangeEntry `json:"changes,omitempty"`
	Summary     string        `json:"summary,omitempty"` // service-provided free text
}

// DiffStats are aggregate statistics over the diff window.
type DiffStats struct {
	ChangeRate         *float64 `json:"change_rate,omitempty"` // 0-100, absent if unknown
	MostVolatileFields []string `json:"most_volatile_fields,omitempty"`
}

// LatestState is the extracted state attached to the most recent execution.
type LatestState struct {
	NewURLs       []NewURL `json:"new_urls,omitempty"`
	NewDomains    []string `json:"new_domains,omitempty"`
	ChangedFields []string `json:"changed_fields,omitempty"`
	Summary       string   `json:"summary,omitempty"`
}

// DiffResult is everything the service reports about a workflow since a timestamp.
type DiffResult struct {
	WorkflowID string          `json:"workflow_id"`
	Since      *time.Time      `json:"since,omitempty"`
	Executions []ExecutionDiff `json:"executions,omitempty"` // most recent first
	Stats      DiffStats       `json:"stats"`
	Latest     *LatestState    `json:"latest,omitempty"`
}

// MostRecent returns the newest execution diff, nil if the window is empty.
func (d *DiffResult) MostRecent() *ExecutionDiff {
	if d == nil || len(d.Executions) == 0 {
		return nil
	}
	return &d.Executions[0]
}

// NewURL is a URL discovered by a workflow execution. Older service versions
// emit bare strings; those decode into the structured shape with only URL set.
type NewURL struct {
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	Snippet       string `json:"snippet,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	DocumentType  string `json:"document_type,omitempty"`
}

func (u *NewURL) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*u = NewURL{URL: asString}
		return nil
	}

	type newURL NewURL // avoid recursing into this method
	var asObject newURL
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("new_urls entry is neither string nor object: %w", err)
	}
	*u = NewURL(asObject)
	return nil
}
