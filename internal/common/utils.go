package common

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanSnippet strips HTML markup from service-provided snippets and titles.
// The diff endpoint highlights matches with tags like <b> and <em>; those are
// display noise for terminal and JSON output. Input without markup passes
// through unchanged apart from whitespace normalization.
func CleanSnippet(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<>") {
		return collapseSpaces(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpaces(s)
	}
	return collapseSpaces(doc.Text())
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DisplayDomain reduces a URL to its host for compact display. Falls back to
// a truncated form of the raw string when the URL cannot be parsed.
func DisplayDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return Truncate(rawURL, 40)
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
