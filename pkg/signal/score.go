// Package signal ranks workflow digests by operator-relevant importance.
// The scoring is a deliberately coarse, rule-based heuristic so that every
// score can be explained by naming the terms that fired.
package signal

import (
	"fmt"
	"strings"

	"driftwatch/models"
)

// Score weights and level thresholds. Each weight is an independent additive
// term on top of the baseline; the final score is clamped to [0, 100].
const (
	Baseline = 50

	PriorityHighBonus   = 25
	PriorityLowPenalty  = -15
	TriggeredBonus      = 30
	HighSignalDocBonus  = 20
	HighChurnPenalty    = -15 // change rate above 50%: looks like noise
	LowChurnBonus       = 5   // change rate in (0, 20]: targeted change
	NewDomainBonus      = 10
	ChangedFieldsBonus  = 15
	ManyURLsBonus       = 10 // five or more new URLs
	SomeURLsBonus       = 5  // one to four new URLs
	ManyURLsThreshold   = 5
	HighChurnThreshold  = 50.0
	LowChurnThreshold   = 20.0
	UrgentThreshold     = 80
	NotableThreshold    = 60
	RoutineThreshold    = 40
)

// Input is everything the scorer looks at. It is assembled by the aggregator
// from the workflow, its diff, and the derived digest fields; the scorer
// itself does no I/O.
type Input struct {
	Priority      string // workflow's declared priority: high, normal, low
	Triggered     bool   // stop condition reached since the watermark
	NewURLs       []models.NewURL
	ChangeRate    *float64 // 0-100, nil when the service did not report one
	NewDomains    int      // new domains in the latest extracted state
	ChangedFields int      // extraction fields that changed in the latest state
}

// Result is the computed score with its classification and explanation.
type Result struct {
	Score     int
	Level     models.SignalLevel
	Reasoning string
}

// Score computes the importance of one digest. Deterministic: equal inputs
// always produce equal outputs.
func Score(in Input) Result {
	score := Baseline
	var fired []string

	switch strings.ToLower(in.Priority) {
	case "high":
		score += PriorityHighBonus
		fired = append(fired, "high-priority workflow")
	case "low":
		score += PriorityLowPenalty
		fired = append(fired, "low-priority workflow")
	}

	if in.Triggered {
		score += TriggeredBonus
		fired = append(fired, "stop condition triggered")
	}

	if hasHighSignalDocument(in.NewURLs) {
		score += HighSignalDocBonus
		fired = append(fired, "high-signal document type among new URLs")
	}

	if in.ChangeRate != nil {
		switch rate := *in.ChangeRate; {
		case rate > HighChurnThreshold:
			score += HighChurnPenalty
			fired = append(fired, fmt.Sprintf("high churn (%.0f%%)", rate))
		case rate > 0 && rate <= LowChurnThreshold:
			score += LowChurnBonus
			fired = append(fired, fmt.Sprintf("low targeted churn (%.0f%%)", rate))
		}
	}

	if in.NewDomains > 0 {
		score += NewDomainBonus
		fired = append(fired, fmt.Sprintf("%d new domain(s)", in.NewDomains))
	}

	if in.ChangedFields > 0 {
		score += ChangedFieldsBonus
		fired = append(fired, "extraction fields changed")
	}

	switch n := len(in.NewURLs); {
	case n >= ManyURLsThreshold:
		score += ManyURLsBonus
		fired = append(fired, fmt.Sprintf("%d new URLs", n))
	case n >= 1:
		score += SomeURLsBonus
		fired = append(fired, fmt.Sprintf("%d new URL(s)", n))
	}

	score = clamp(score)

	reasoning := "baseline activity"
	if len(fired) > 0 {
		reasoning = strings.Join(fired, "; ")
	}

	return Result{Score: score, Level: Level(score), Reasoning: reasoning}
}

// Level maps a score to its bucket using the fixed thresholds.
func Level(score int) models.SignalLevel {
	switch {
	case score >= UrgentThreshold:
		return models.SignalUrgent
	case score >= NotableThreshold:
		return models.SignalNotable
	case score >= RoutineThreshold:
		return models.SignalRoutine
	default:
		return models.SignalNoise
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func hasHighSignalDocument(urls []models.NewURL) bool {
	for _, u := range urls {
		docType := u.DocumentType
		if docType == "" {
			docType = InferDocumentType(u.URL)
		}
		if highSignalDocTypes[normalizeDocType(docType)] {
			return true
		}
	}
	return false
}
