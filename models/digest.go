package models

import "time"

// SignalLevel is the four-bucket classification of a digest's signal score.
type SignalLevel string

const (
	SignalUrgent  SignalLevel = "urgent"  // score >= 80
	SignalNotable SignalLevel = "notable" // score >= 60
	SignalRoutine SignalLevel = "routine" // score >= 40
	SignalNoise   SignalLevel = "noise"
)

// WorkflowDigest summarizes one workflow's state-of-change since the watermark.
type WorkflowDigest struct {
	WorkflowID         string      `json:"workflow_id"`
	Name               string      `json:"name"`
	Status             string      `json:"status"`
	HasChanges         bool        `json:"has_changes"`
	TriggeredCondition bool        `json:"triggered_condition"`
	ExecutionsSince    int         `json:"executions_since"`
	ChangeSummary      string      `json:"change_summary"`
	ChangeRate         *float64    `json:"change_rate,omitempty"`
	SignalScore        int         `json:"signal_score"`
	SignalLevel        SignalLevel `json:"signal_level"`
	SignalReasoning    string      `json:"signal_reasoning,omitempty"`
	NewURLs            []NewURL    `json:"new_urls,omitempty"`
	LastExecutionAt    *time.Time  `json:"last_execution_at,omitempty"`

	// Verbose-only fields.
	RecentDiffs      []ExecutionDiff `json:"recent_diffs,omitempty"`
	RecentExecutions []Execution     `json:"recent_executions,omitempty"`

	// Set when this workflow's processing failed; such digests always carry
	// has_changes=false and executions_since=0.
	Error string `json:"error,omitempty"`
}

// CorrelationWorkflow is one workflow's contribution to a correlation.
type CorrelationWorkflow struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowName string `json:"workflow_name"`
	Context      string `json:"context,omitempty"` // that workflow's own snippet
}

// Correlation is a URL independently discovered by two or more workflows.
type Correlation struct {
	Type      string                `json:"type"` // "shared_url"
	Value     string                `json:"value"`
	Workflows []CorrelationWorkflow `json:"workflows"` // always >= 2
	Insight   string                `json:"insight,omitempty"`
}

// DigestCounts are the aggregate counters attached to a digest response.
type DigestCounts struct {
	TotalWorkflows      int `json:"total_workflows"`
	WithChanges         int `json:"with_changes"`
	Triggered           int `json:"triggered"`
	Errors              int `json:"errors,omitempty"`
	CorrelationAnalyzed int `json:"correlation_analyzed,omitempty"`
	CorrelationSkipped  int `json:"correlation_skipped,omitempty"`
	URLsCompared        int `json:"urls_compared,omitempty"`
}

// DigestResponse is the full result of one digest run. It is built fresh per
// call and never persisted.
type DigestResponse struct {
	Summary         string           `json:"summary"`
	Since           time.Time        `json:"since"`
	Counts          DigestCounts     `json:"counts"`
	Workflows       []WorkflowDigest `json:"workflows"` // score desc, then executions_since desc
	Correlations    []Correlation    `json:"correlations,omitempty"`
	FormattedOutput string           `json:"formatted_output,omitempty"`
}
