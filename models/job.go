package models

import (
	"encoding/json"
	"fmt"
)

// JobStatus is the top-level lifecycle state of an async job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed" // terminal, never transitions again
)

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// FeatureStatus tracks an async feature (summary, metadata) that completes
// independently of the job's top-level status.
type FeatureStatus string

const (
	FeaturePending    FeatureStatus = "pending"
	FeatureProcessing FeatureStatus = "processing"
	FeatureCompleted  FeatureStatus = "completed"
	FeatureFailed     FeatureStatus = "failed"
)

// Settled reports whether the feature has reached a state that will not change.
func (s FeatureStatus) Settled() bool {
	return s == FeatureCompleted || s == FeatureFailed
}

// SummaryKind discriminates the three wire shapes of the summary field.
type SummaryKind int

const (
	SummaryAbsent SummaryKind = iota
	SummaryLegacy             // bare string: already complete
	SummaryTracked            // object with its own status
)

// SummaryField is the job summary as returned by the service. The wire shape
// varies: absent, a bare string (older jobs, always complete), or an object
// carrying its own feature status and optional content.
type SummaryField struct {
	Kind    SummaryKind
	Status  FeatureStatus
	Content string
}

// Done reports whether the summary has settled (including "was never asked for"
// legacy strings, which arrive complete).
func (s SummaryField) Done() bool {
	switch s.Kind {
	case SummaryLegacy:
		return true
	case SummaryTracked:
		return s.Status.Settled()
	default:
		return false
	}
}

// Failed reports whether a tracked summary ended in failure. Legacy and
// absent summaries never fail.
func (s SummaryField) Failed() bool {
	return s.Kind == SummaryTracked && s.Status == FeatureFailed
}

// Text returns displayable summary content, empty if none is available yet.
func (s SummaryField) Text() string {
	return s.Content
}

func (s *SummaryField) UnmarshalJSON(data []byte) error {
	// The absent variant marshals as null; decoding it must restore Absent,
	// not an empty legacy string.
	if string(data) == "null" {
		*s = SummaryField{}
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*s = SummaryField{Kind: SummaryLegacy, Status: FeatureCompleted, Content: asString}
		return nil
	}

	var asObject struct {
		Status  FeatureStatus `json:"status"`
		Content string        `json:"content"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("summary field is neither string nor object: %w", err)
	}
	*s = SummaryField{Kind: SummaryTracked, Status: asObject.Status, Content: asObject.Content}
	return nil
}

func (s SummaryField) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SummaryLegacy:
		return json.Marshal(s.Content)
	case SummaryTracked:
		return json.Marshal(struct {
			Status  FeatureStatus `json:"status"`
			Content string        `json:"content,omitempty"`
		}{s.Status, s.Content})
	default:
		return []byte("null"), nil
	}
}

// TrackedFeature is an async feature field that always uses the object shape.
type TrackedFeature struct {
	Status FeatureStatus     `json:"status"`
	Fields map[string]string `json:"fields,omitempty"`
}

// SearchResult is one hit in a completed search or crawl job.
type SearchResult struct {
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	Snippet       string `json:"snippet,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	DocumentType  string `json:"document_type,omitempty"`
}

// JobSnapshot is the most recently observed state of an async job.
type JobSnapshot struct {
	ID        string          `json:"id"`
	Status    JobStatus       `json:"status"`
	Query     string          `json:"query,omitempty"` // echoed search input
	URL       string          `json:"url,omitempty"`   // echoed crawl input
	Results   []SearchResult  `json:"results,omitempty"`
	Summary   SummaryField    `json:"summary"` // null when absent; see MarshalJSON
	Metadata  *TrackedFeature `json:"metadata,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}
