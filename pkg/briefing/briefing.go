// Package briefing renders a digest response for human or compact consumption.
// Pure presentation: nothing here mutates the digest set.
package briefing

import (
	"fmt"
	"strings"
	"time"

	"driftwatch/internal/common"
	"driftwatch/models"
)

// Mode selects the narrative rendering style.
type Mode int

const (
	// ModeHuman is the terminal briefing with section rules and glyphs.
	ModeHuman Mode = iota
	// ModeLLM is the same grouping with plain markdown headers and no
	// decoration, for feeding into a model.
	ModeLLM
)

const (
	quietPreviewLimit  = 5 // workflows listed on the all-quiet path
	urlPreviewLimit    = 3 // new URLs shown per urgent/notable digest
	correlationPreview = 5
)

// Render produces the narrative text for a digest response.
func Render(resp *models.DigestResponse, mode Mode) string {
	var b strings.Builder

	if resp.Counts.WithChanges == 0 {
		renderAllQuiet(&b, resp, mode)
		return b.String()
	}

	header(&b, mode, fmt.Sprintf("Update digest — %s", resp.Summary))

	levels := []models.SignalLevel{
		models.SignalUrgent, models.SignalNotable, models.SignalRoutine, models.SignalNoise,
	}
	for _, level := range levels {
		group := byLevel(resp.Workflows, level)
		if len(group) == 0 {
			continue
		}
		section(&b, mode, level, len(group))
		if level == models.SignalUrgent || level == models.SignalNotable {
			for _, d := range group {
				renderFull(&b, d)
			}
		} else {
			renderCondensed(&b, group)
		}
	}

	if len(resp.Correlations) > 0 {
		renderCorrelations(&b, mode, resp.Correlations)
	}

	return b.String()
}

// renderAllQuiet emits the fixed no-changes section: signal levels are
// irrelevant when nothing changed, so only last-execution times are shown.
func renderAllQuiet(b *strings.Builder, resp *models.DigestResponse, mode Mode) {
	header(b, mode, fmt.Sprintf("All quiet — no changes across %d workflow(s) since %s",
		resp.Counts.TotalWorkflows, resp.Since.Format(time.RFC3339)))

	shown := 0
	for _, d := range resp.Workflows {
		if shown >= quietPreviewLimit {
			break
		}
		lastRun := "never"
		if d.LastExecutionAt != nil {
			lastRun = d.LastExecutionAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(b, "  - %s: last execution %s\n", d.Name, lastRun)
		shown++
	}
	if rest := len(resp.Workflows) - shown; rest > 0 {
		fmt.Fprintf(b, "  +%d more\n", rest)
	}
}

func renderFull(b *strings.Builder, d models.WorkflowDigest) {
	marker := ""
	if d.TriggeredCondition {
		marker = " [triggered]"
	}
	fmt.Fprintf(b, "• %s (score %d)%s\n", d.Name, d.SignalScore, marker)
	fmt.Fprintf(b, "  %s\n", d.ChangeSummary)
	if d.SignalReasoning != "" {
		fmt.Fprintf(b, "  why: %s\n", d.SignalReasoning)
	}
	if d.Error != "" {
		fmt.Fprintf(b, "  error: %s\n", d.Error)
	}
	for i, u := range d.NewURLs {
		if i >= urlPreviewLimit {
			fmt.Fprintf(b, "  +%d more URLs\n", len(d.NewURLs)-urlPreviewLimit)
			break
		}
		title := u.Title
		if title == "" {
			title = common.DisplayDomain(u.URL)
		}
		fmt.Fprintf(b, "  → %s (%s)\n", common.Truncate(title, 70), common.DisplayDomain(u.URL))
	}
}

func renderCondensed(b *strings.Builder, group []models.WorkflowDigest) {
	names := make([]string, len(group))
	for i, d := range group {
		names[i] = d.Name
		if d.Error != "" {
			names[i] += " (unavailable)"
		}
	}
	fmt.Fprintf(b, "  %s\n", strings.Join(names, ", "))
}

func renderCorrelations(b *strings.Builder, mode Mode, correlations []models.Correlation) {
	if mode == ModeLLM {
		b.WriteString("\n## Cross-workflow correlations\n")
	} else {
		b.WriteString("\n─── Cross-workflow correlations ───\n")
	}
	for i, c := range correlations {
		if i >= correlationPreview {
			break
		}
		names := make([]string, len(c.Workflows))
		for j, w := range c.Workflows {
			names[j] = w.WorkflowName
		}
		fmt.Fprintf(b, "  %s seen in %d workflows: %s\n",
			common.DisplayDomain(c.Value), len(c.Workflows), strings.Join(names, ", "))
	}
}

func header(b *strings.Builder, mode Mode, text string) {
	if mode == ModeLLM {
		fmt.Fprintf(b, "# %s\n", text)
		return
	}
	fmt.Fprintf(b, "%s\n%s\n", text, strings.Repeat("═", min(len([]rune(text)), 60)))
}

func section(b *strings.Builder, mode Mode, level models.SignalLevel, count int) {
	title := strings.ToUpper(string(level))
	if mode == ModeLLM {
		fmt.Fprintf(b, "\n## %s (%d)\n", title, count)
		return
	}
	fmt.Fprintf(b, "\n─── %s (%d) ───\n", title, count)
}

func byLevel(digests []models.WorkflowDigest, level models.SignalLevel) []models.WorkflowDigest {
	var out []models.WorkflowDigest
	for _, d := range digests {
		if d.SignalLevel == level {
			out = append(out, d)
		}
	}
	return out
}
