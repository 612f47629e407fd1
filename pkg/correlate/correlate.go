// Package correlate detects URLs independently discovered by multiple
// workflows. A URL surfacing in two unrelated monitors is a strong
// "this matters" signal regardless of either workflow's own score.
package correlate

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"driftwatch/models"
)

// MaxCandidates bounds the correlation computation to the top digests in the
// caller's sort order. The cap keeps the work linear in total URLs instead of
// combinatorial as workflow counts grow.
const MaxCandidates = 15

// Tracking query parameters stripped during normalization. utm_* is handled
// by prefix.
var trackedParams = map[string]bool{
	"ref":    true,
	"source": true,
	"fbclid": true,
	"gclid":  true,
	"mc_cid": true,
	"mc_eid": true,
}

// Normalize canonicalizes a URL for cross-workflow comparison: https scheme,
// no fragment, tracking parameters removed, and trailing slashes stripped from
// the path (a bare root path keeps its slash). Unparseable input is returned
// verbatim so that correlation degrades to raw-string equality instead of
// failing. Idempotent.
func Normalize(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}

	if parsed.Scheme == "http" {
		parsed.Scheme = "https"
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""

	if parsed.RawQuery != "" {
		q := parsed.Query()
		for key := range q {
			if trackedParams[key] || strings.HasPrefix(key, "utm_") {
				q.Del(key)
			}
		}
		parsed.RawQuery = q.Encode()
	}

	for parsed.Path != "/" && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		parsed.RawPath = ""
	}

	return parsed.String()
}

// Stats reports how much of the digest set the engine actually examined.
type Stats struct {
	Analyzed     int // eligible digests that entered the comparison
	Skipped      int // eligible digests beyond the candidate cap
	URLsCompared int // total URLs across analyzed digests
}

type contributor struct {
	digest *models.WorkflowDigest
	url    models.NewURL
}

// Find returns correlations across the given digests, which must already be
// in the caller's preferred order (the candidate cap keeps the first ones).
func Find(digests []models.WorkflowDigest) ([]models.Correlation, Stats) {
	var eligible []*models.WorkflowDigest
	for i := range digests {
		d := &digests[i]
		if d.HasChanges && len(d.NewURLs) > 0 {
			eligible = append(eligible, d)
		}
	}

	stats := Stats{}
	if len(eligible) > MaxCandidates {
		stats.Skipped = len(eligible) - MaxCandidates
		eligible = eligible[:MaxCandidates]
	}
	stats.Analyzed = len(eligible)

	if len(eligible) < 2 {
		for _, d := range eligible {
			stats.URLsCompared += len(d.NewURLs)
		}
		return nil, stats
	}

	byURL := make(map[string][]contributor)
	var order []string // first-seen order keeps output stable across runs
	for _, d := range eligible {
		for _, u := range d.NewURLs {
			key := Normalize(u.URL)
			if len(byURL[key]) == 0 {
				order = append(order, key)
			}
			byURL[key] = append(byURL[key], contributor{digest: d, url: u})
			stats.URLsCompared++
		}
	}

	var correlations []models.Correlation
	for _, key := range order {
		contributors := byURL[key]
		distinct := distinctWorkflows(contributors)
		if len(distinct) < 2 {
			continue
		}

		c := models.Correlation{
			Type:  "shared_url",
			Value: key,
		}
		for _, con := range distinct {
			c.Workflows = append(c.Workflows, models.CorrelationWorkflow{
				WorkflowID:   con.digest.WorkflowID,
				WorkflowName: con.digest.Name,
				Context:      con.url.Snippet,
			})
		}
		c.Insight = fmt.Sprintf("%s surfaced independently in %d workflows", key, len(c.Workflows))
		correlations = append(correlations, c)
	}

	sort.SliceStable(correlations, func(i, j int) bool {
		return len(correlations[i].Workflows) > len(correlations[j].Workflows)
	})
	return correlations, stats
}

// distinctWorkflows keeps one contributor per workflow id, preserving order.
// The same workflow reporting a URL twice is not a correlation.
func distinctWorkflows(contributors []contributor) []contributor {
	seen := make(map[string]bool, len(contributors))
	var out []contributor
	for _, c := range contributors {
		if seen[c.digest.WorkflowID] {
			continue
		}
		seen[c.digest.WorkflowID] = true
		out = append(out, c)
	}
	return out
}
