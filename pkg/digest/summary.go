package digest

import (
	"fmt"
	"strings"

	"driftwatch/models"
)

// ChangeSummary derives the short human-readable description of what changed
// in a workflow's diff window.
func ChangeSummary(diff *models.DiffResult) string {
	if diff.Stats.ChangeRate != nil && *diff.Stats.ChangeRate == 0 {
		return "No changes detected"
	}

	recent := diff.MostRecent()
	if recent == nil {
		return "No changes"
	}
	if len(recent.Changes) == 0 {
		return "No changes detected"
	}

	if tally := renderTally(recent.Changes); tally != "" {
		return tally
	}
	// Entries present but none with a recognized kind: fall back to the
	// service's own free text when it supplied one.
	if recent.Summary != "" {
		return recent.Summary
	}
	return "No changes"
}

// renderTally counts changes by kind and joins the non-zero buckets, e.g.
// "+2 added, ↑1 increased".
func renderTally(changes []models.ChangeEntry) string {
	counts := make(map[models.ChangeKind]int, len(changes))
	for _, c := range changes {
		counts[c.Kind]++
	}

	// Fixed order keeps output stable.
	parts := make([]string, 0, 5)
	if n := counts[models.ChangeAdded]; n > 0 {
		parts = append(parts, fmt.Sprintf("+%d added", n))
	}
	if n := counts[models.ChangeRemoved]; n > 0 {
		parts = append(parts, fmt.Sprintf("-%d removed", n))
	}
	if n := counts[models.ChangeIncrease]; n > 0 {
		parts = append(parts, fmt.Sprintf("↑%d increased", n))
	}
	if n := counts[models.ChangeDecrease]; n > 0 {
		parts = append(parts, fmt.Sprintf("↓%d decreased", n))
	}
	if n := counts[models.ChangeModified]; n > 0 {
		parts = append(parts, fmt.Sprintf("~%d modified", n))
	}

	return strings.Join(parts, ", ")
}
