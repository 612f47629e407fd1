// Package digest produces per-workflow update digests since a watermark,
// fanning out to the remote service with per-workflow failure isolation.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"driftwatch/internal/common"
	"driftwatch/models"
	"driftwatch/pkg/client"
	"driftwatch/pkg/signal"
)

const (
	// DefaultMaxWorkflows is the workflow cap when the caller does not set one;
	// HardMaxWorkflows is the ceiling regardless of what the caller asks for.
	DefaultMaxWorkflows = 20
	HardMaxWorkflows    = 50

	// DefaultWindow is how far back the watermark reaches by default.
	DefaultWindow = 24 * time.Hour

	// workflowConcurrency bounds simultaneous per-workflow fetches so a large
	// account cannot flood the service with 50 concurrent request pairs.
	workflowConcurrency = 8

	// executionHistoryLimit is how many timeline entries to request per workflow.
	executionHistoryLimit = 25

	// verbosePreviewLimit caps the recent diffs/executions echoed in verbose mode.
	verbosePreviewLimit = 5
)

// Source is the slice of the remote service the aggregator consumes.
// Implemented by client.Client; faked in tests.
type Source interface {
	ListWorkflows(ctx context.Context, opts client.ListOptions) ([]models.Workflow, error)
	Executions(ctx context.Context, workflowID string, limit int) ([]models.Execution, error)
	Diff(ctx context.Context, workflowID string, since time.Time) (*models.DiffResult, error)
}

// Options control one aggregation run.
type Options struct {
	Since           time.Time // zero means now minus DefaultWindow
	IncludeInactive bool
	MaxWorkflows    int // zero means DefaultMaxWorkflows; capped at HardMaxWorkflows
	Verbose         bool
}

// Aggregator assembles digest responses. It holds no state between runs.
type Aggregator struct {
	Source Source
	Log    *slog.Logger

	now func() time.Time // swappable for tests
}

// New builds an aggregator over the given source.
func New(source Source, logger *slog.Logger) *Aggregator {
	return &Aggregator{Source: source, Log: logger, now: time.Now}
}

// Aggregate fetches every workflow's timeline and diff since the watermark and
// assembles one scored digest per workflow. A failure while processing one
// workflow becomes an error digest for that workflow alone; only a failure to
// list workflows at all propagates as an error.
func (a *Aggregator) Aggregate(ctx context.Context, opts Options) (*models.DigestResponse, error) {
	since := opts.Since
	if since.IsZero() {
		since = a.now().Add(-DefaultWindow)
	}

	max := opts.MaxWorkflows
	if max <= 0 {
		max = DefaultMaxWorkflows
	}
	if max > HardMaxWorkflows {
		max = HardMaxWorkflows
	}

	listOpts := client.ListOptions{Limit: max}
	if !opts.IncludeInactive {
		listOpts.Status = string(models.WorkflowActive)
	}

	workflows, err := a.Source.ListWorkflows(ctx, listOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	if len(workflows) == 0 {
		return &models.DigestResponse{
			Summary: "No workflows found. Create a monitoring workflow to start receiving digests.",
			Since:   since,
		}, nil
	}
	if len(workflows) > max {
		workflows = workflows[:max]
	}

	a.Log.Info("Aggregating workflow updates",
		"workflows", len(workflows), "since", since, "verbose", opts.Verbose)

	// One slot per workflow: each goroutine writes only its own index, so the
	// fan-out needs no locking.
	digests := make([]models.WorkflowDigest, len(workflows))
	sem := make(chan struct{}, workflowConcurrency)
	var wg sync.WaitGroup
	for i, wf := range workflows {
		wg.Add(1)
		go func(i int, wf models.Workflow) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			digests[i] = a.buildDigest(ctx, wf, since, opts.Verbose)
		}(i, wf)
	}
	wg.Wait()

	sort.SliceStable(digests, func(i, j int) bool {
		if digests[i].SignalScore != digests[j].SignalScore {
			return digests[i].SignalScore > digests[j].SignalScore
		}
		return digests[i].ExecutionsSince > digests[j].ExecutionsSince
	})

	counts := models.DigestCounts{TotalWorkflows: len(digests)}
	for _, d := range digests {
		if d.HasChanges {
			counts.WithChanges++
		}
		if d.TriggeredCondition {
			counts.Triggered++
		}
		if d.Error != "" {
			counts.Errors++
		}
	}

	return &models.DigestResponse{
		Summary:   overallSummary(counts, since),
		Since:     since,
		Counts:    counts,
		Workflows: digests,
	}, nil
}

// buildDigest computes one workflow's digest. Any failure is folded into an
// error digest rather than returned, keeping workflows isolated from each
// other.
func (a *Aggregator) buildDigest(ctx context.Context, wf models.Workflow, since time.Time, verbose bool) models.WorkflowDigest {
	// The timeline and diff fetches are independent; issue them together.
	var (
		executions []models.Execution
		diff       *models.DiffResult
		execErr    error
		diffErr    error
		wg         sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		executions, execErr = a.Source.Executions(ctx, wf.ID, executionHistoryLimit)
	}()
	go func() {
		defer wg.Done()
		diff, diffErr = a.Source.Diff(ctx, wf.ID, since)
	}()
	wg.Wait()

	if execErr != nil || diffErr != nil {
		err := execErr
		if err == nil {
			err = diffErr
		}
		a.Log.Warn("Workflow digest failed, continuing with others",
			"workflow_id", wf.ID, "name", wf.Name, "error", err)
		return errorDigest(wf, err)
	}

	d := models.WorkflowDigest{
		WorkflowID:      wf.ID,
		Name:            wf.Name,
		Status:          string(wf.Status),
		LastExecutionAt: wf.LastExecutionAt,
		ChangeRate:      diff.Stats.ChangeRate,
	}

	for _, ed := range diff.Executions {
		if len(ed.Changes) > 0 {
			d.HasChanges = true
			break
		}
	}

	// A workflow whose status flipped to completed after the watermark counts
	// as triggered even if it completed by exhausting its execution budget
	// rather than by matching its stop condition. Known to overstate urgency.
	d.TriggeredCondition = wf.Status == models.WorkflowCompleted &&
		wf.LastExecutionAt != nil && wf.LastExecutionAt.After(since)

	for _, e := range executions {
		if t := e.EffectiveTime(); t != nil && t.After(since) {
			d.ExecutionsSince++
		}
	}

	d.ChangeSummary = ChangeSummary(diff)
	d.NewURLs = extractNewURLs(diff)

	if verbose {
		d.RecentDiffs = head(diff.Executions, verbosePreviewLimit)
		d.RecentExecutions = head(executions, verbosePreviewLimit)
	}

	newDomains, changedFields := 0, 0
	if diff.Latest != nil {
		newDomains = len(diff.Latest.NewDomains)
		changedFields = len(diff.Latest.ChangedFields)
	}
	scored := signal.Score(signal.Input{
		Priority:      wf.Priority,
		Triggered:     d.TriggeredCondition,
		NewURLs:       d.NewURLs,
		ChangeRate:    d.ChangeRate,
		NewDomains:    newDomains,
		ChangedFields: changedFields,
	})
	d.SignalScore = scored.Score
	d.SignalLevel = scored.Level
	d.SignalReasoning = scored.Reasoning

	return d
}

// errorDigest is the shape a workflow takes when its processing failed:
// no claimed changes, no counted executions, still scored so sorting holds.
func errorDigest(wf models.Workflow, err error) models.WorkflowDigest {
	scored := signal.Score(signal.Input{Priority: wf.Priority})
	return models.WorkflowDigest{
		WorkflowID:      wf.ID,
		Name:            wf.Name,
		Status:          string(wf.Status),
		ChangeSummary:   "Digest unavailable",
		SignalScore:     scored.Score,
		SignalLevel:     scored.Level,
		SignalReasoning: scored.Reasoning,
		LastExecutionAt: wf.LastExecutionAt,
		Error:           err.Error(),
	}
}

// extractNewURLs pulls the latest extracted state's URLs, cleaning any markup
// the service left in titles and snippets. Legacy bare-string entries have
// already been normalized into the structured shape at decode time.
func extractNewURLs(diff *models.DiffResult) []models.NewURL {
	if diff.Latest == nil || len(diff.Latest.NewURLs) == 0 {
		return nil
	}
	urls := make([]models.NewURL, len(diff.Latest.NewURLs))
	for i, u := range diff.Latest.NewURLs {
		u.Title = common.CleanSnippet(u.Title)
		u.Snippet = common.CleanSnippet(u.Snippet)
		urls[i] = u
	}
	return urls
}

func overallSummary(counts models.DigestCounts, since time.Time) string {
	s := fmt.Sprintf("%d of %d workflows changed since %s",
		counts.WithChanges, counts.TotalWorkflows, since.Format(time.RFC3339))
	if counts.Triggered > 0 {
		s += fmt.Sprintf(", %d triggered a stop condition", counts.Triggered)
	}
	if counts.Errors > 0 {
		s += fmt.Sprintf(" (%d unavailable)", counts.Errors)
	}
	return s
}

func head[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
