package signal

import (
	"net/url"
	"strings"
)

// Document types that raise a digest's score when they appear among new URLs.
// The service's own labels vary ("news_editorial" vs "news"), so matching is
// done on a normalized form.
var highSignalDocTypes = map[string]bool{
	"legal":            true,
	"regulatory":       true,
	"legal_regulatory": true,
	"academic":         true,
	"paper":            true,
	"news":             true,
	"editorial":        true,
	"news_editorial":   true,
	"government":       true,
	"gov":              true,
}

func normalizeDocType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// Hosts that mark a URL as academic even without a labeled document type.
var academicHosts = []string{
	"arxiv.org", "doi.org", "pubmed.ncbi.nlm.nih.gov",
	"scholar.google.com", "researchgate.net", "academia.edu",
	"biorxiv.org", "medrxiv.org", "ssrn.com",
}

// Hosts treated as news/editorial sources.
var newsHosts = []string{
	"reuters.com", "apnews.com", "bloomberg.com", "ft.com",
	"techcrunch.com", "wired.com", "arstechnica.com", "theverge.com",
}

// InferDocumentType classifies a URL by its host when the service did not
// label it. Returns the empty string when nothing matches; unknown stays
// unknown rather than guessing "commercial".
func InferDocumentType(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Host)

	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".mil") {
		return "government"
	}
	if strings.HasSuffix(host, ".edu") {
		return "academic"
	}
	for _, h := range academicHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return "academic"
		}
	}
	for _, h := range newsHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return "news_editorial"
		}
	}
	return ""
}
