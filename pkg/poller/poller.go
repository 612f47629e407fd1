// Package poller drives an async job toward completion of its requested
// features within a wall-clock budget.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"driftwatch/models"
	"driftwatch/pkg/client"
)

// Backoff schedule between snapshot fetches. Kept as named constants so the
// polling behavior stays tunable in one place.
const (
	InitialBackoff    = 500 * time.Millisecond
	BackoffMultiplier = 1.5
	MaxBackoff        = 4 * time.Second

	// DefaultBudget is the overall wall-clock polling budget. Callers may
	// override within [MinBudget, MaxBudget]; ClampBudget enforces the range.
	DefaultBudget = 60 * time.Second
	MinBudget     = 5 * time.Second
	MaxBudget     = 300 * time.Second
)

// ClampBudget normalizes a caller-supplied budget into the allowed range.
// Zero selects the default.
func ClampBudget(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultBudget
	case d < MinBudget:
		return MinBudget
	case d > MaxBudget:
		return MaxBudget
	default:
		return d
	}
}

// SnapshotSource fetches the current state of a job. Implemented by
// client.Client; faked in tests.
type SnapshotSource interface {
	GetJob(ctx context.Context, id string) (*models.JobSnapshot, error)
}

// Feature is a named completion predicate over a job snapshot. Polling stops
// early once every requested feature reports done.
type Feature struct {
	Name string
	Done func(*models.JobSnapshot) bool
}

// SummaryDone is satisfied once the summary feature has settled (completed or
// failed) in any of its wire shapes.
func SummaryDone() Feature {
	return Feature{
		Name: "summary",
		Done: func(s *models.JobSnapshot) bool { return s.Summary.Done() },
	}
}

// MetadataDone is satisfied once the metadata feature has settled. Absent
// metadata counts as done: the service omits the field when it was never
// requested.
func MetadataDone() Feature {
	return Feature{
		Name: "metadata",
		Done: func(s *models.JobSnapshot) bool {
			return s.Metadata == nil || s.Metadata.Status.Settled()
		},
	}
}

// JobFailedError is a terminal job failure. It carries the snapshot so callers
// can surface the service's own error message.
type JobFailedError struct {
	Snapshot *models.JobSnapshot
}

func (e *JobFailedError) Error() string {
	if e.Snapshot.Error != "" {
		return fmt.Sprintf("job %s failed: %s", e.Snapshot.ID, e.Snapshot.Error)
	}
	return fmt.Sprintf("job %s failed", e.Snapshot.ID)
}

// Poller polls one job at a time. It holds no per-job state.
type Poller struct {
	Source SnapshotSource
	Log    *slog.Logger

	// sleep is swappable for tests; nil means context-aware real sleeping.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a poller over the given snapshot source.
func New(source SnapshotSource, logger *slog.Logger) *Poller {
	return &Poller{Source: source, Log: logger}
}

// Wait polls the job identified by submitted.ID until every requested feature
// is done, the job fails terminally, or the budget elapses.
//
// The returned snapshot is never nil: on budget exhaustion (or context
// cancellation) the last successfully observed snapshot is returned rather
// than an error, because partial data beats no data for monitoring callers.
// "Returned without error" therefore means "best available data", not
// "job finished".
func (p *Poller) Wait(ctx context.Context, submitted *models.JobSnapshot, features []Feature, budget time.Duration) (*models.JobSnapshot, error) {
	if len(features) == 0 {
		// Fire-and-forget submission: nothing to wait for.
		return submitted, nil
	}
	if budget <= 0 {
		budget = DefaultBudget
	}

	last := submitted
	if submitted.Status == models.JobFailed {
		return nil, &JobFailedError{Snapshot: submitted}
	}
	if satisfied(submitted, features) {
		return submitted, nil
	}

	deadline := time.Now().Add(budget)
	backoff := InitialBackoff

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.Log.Info("Polling budget exhausted, returning last snapshot",
				"job_id", last.ID, "status", last.Status)
			return last, nil
		}

		wait := backoff
		if wait > remaining {
			wait = remaining
		}
		if err := p.doSleep(ctx, wait); err != nil {
			// Caller cancelled; hand back whatever was observed.
			return last, nil
		}
		backoff = nextBackoff(backoff)

		snap, err := p.Source.GetJob(ctx, submitted.ID)
		if err != nil {
			if ctx.Err() != nil {
				return last, nil
			}
			// Transient or not, a failed fetch never aborts polling; the
			// terminal-failure signal only comes from a successful snapshot.
			p.Log.Warn("Snapshot fetch failed, continuing",
				"job_id", submitted.ID, "transient", client.IsTransient(err), "error", err)
			continue
		}
		last = snap

		if snap.Status == models.JobFailed {
			return nil, &JobFailedError{Snapshot: snap}
		}
		if satisfied(snap, features) {
			return snap, nil
		}
	}
}

func satisfied(snap *models.JobSnapshot, features []Feature) bool {
	for _, f := range features {
		if !f.Done(snap) {
			return false
		}
	}
	return true
}

func nextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * BackoffMultiplier)
	if next > MaxBackoff {
		return MaxBackoff
	}
	return next
}

func (p *Poller) doSleep(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
