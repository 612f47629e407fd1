package briefing

import (
	"fmt"
	"time"

	"driftwatch/models"
)

// CompactDigest is the stripped-down per-workflow shape for compact output.
type CompactDigest struct {
	WorkflowID         string `json:"workflow_id"`
	Name               string `json:"name"`
	Status             string `json:"status"`
	HasChanges         bool   `json:"has_changes"`
	TriggeredCondition bool   `json:"triggered_condition"`
	ChangeSummary      string `json:"change_summary"`
	NewURLCount        int    `json:"new_url_count"`
}

// CompactResponse is the compact rendering of a digest response.
type CompactResponse struct {
	Summary         string              `json:"summary"`
	Since           time.Time           `json:"since"`
	Counts          models.DigestCounts `json:"counts"`
	Workflows       []CompactDigest     `json:"workflows"`
	FormattedOutput string              `json:"formatted_output"`
}

// Compact strips every digest down to its identifying fields and adds a
// one-line aggregate string.
func Compact(resp *models.DigestResponse) *CompactResponse {
	out := &CompactResponse{
		Summary: resp.Summary,
		Since:   resp.Since,
		Counts:  resp.Counts,
	}
	for _, d := range resp.Workflows {
		out.Workflows = append(out.Workflows, CompactDigest{
			WorkflowID:         d.WorkflowID,
			Name:               d.Name,
			Status:             d.Status,
			HasChanges:         d.HasChanges,
			TriggeredCondition: d.TriggeredCondition,
			ChangeSummary:      d.ChangeSummary,
			NewURLCount:        len(d.NewURLs),
		})
	}
	out.FormattedOutput = fmt.Sprintf("%d/%d changed, %d triggered, %d correlations",
		resp.Counts.WithChanges, resp.Counts.TotalWorkflows,
		resp.Counts.Triggered, len(resp.Correlations))
	return out
}
