// Package sources holds the per-site adapters. An adapter knows a site's
// URL patterns and extraction rules and nothing about HTTP, retries, or
// persistence; the orchestrator owns those.
package sources

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"streamvault/config"
	"streamvault/models"
)

// Kind is the request shape an adapter is asked to plan for.
type Kind string

const (
	KindList   Kind = "list"
	KindSearch Kind = "search"
	KindDetail Kind = "detail"
)

// FetchTarget is one page the orchestrator should fetch for an adapter.
// ExpectedSelectors document what the extractor will look for; the relay
// and browser paths use the first entry as their wait condition.
type FetchTarget struct {
	URL               string
	Kind              Kind
	ExpectedSelectors []string
}

// WaitSelector returns the selector a rendering fetch path should block on.
func (t FetchTarget) WaitSelector() string {
	if len(t.ExpectedSelectors) == 0 {
		return ""
	}
	return t.ExpectedSelectors[0]
}

// Adapter is implemented once per source site.
type Adapter interface {
	Name() string
	Category() models.ContentType

	// Targets plans the fetches for a request kind. arg is the search
	// query or detail id depending on kind; limit bounds list pagination.
	Targets(kind Kind, arg string, limit int) []FetchTarget

	// Extract parses a fetched page into raw items. All selector chains
	// exhausted with zero matches yields models.ErrExtractionEmpty so the
	// caller can capture the HTML for selector repair.
	Extract(body []byte, target FetchTarget) ([]models.RawItem, error)
}

// StreamExtractor is an optional adapter capability: resolving a playable
// stream URL (and subtitles) out of a watch/detail page.
type StreamExtractor interface {
	ExtractStream(body []byte, pageURL string) (string, []models.Subtitle, error)
	// StreamHeaders returns the headers upstream CDNs require before they
	// will serve the stream (typically Referer/Origin).
	StreamHeaders(pageURL string) map[string]string
}

// parseDoc wraps goquery parsing; adapters never touch the raw bytes twice.
func parseDoc(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

// firstMatch walks an ordered selector fallback chain and returns the first
// selection with at least one node, tolerating markup drift between site
// revisions. Nil when every candidate comes up empty.
func firstMatch(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if s := doc.Find(sel); s.Length() > 0 {
			return s
		}
	}
	return nil
}

// chainText returns trimmed text for the first selector in the chain that
// matches inside s.
func chainText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if found := s.Find(sel).First(); found.Length() > 0 {
			if text := normSpace(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// chainAttr returns the named attribute for the first matching selector.
func chainAttr(s *goquery.Selection, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if found := s.Find(sel).First(); found.Length() > 0 {
			if val, ok := found.Attr(attr); ok && strings.TrimSpace(val) != "" {
				return strings.TrimSpace(val)
			}
		}
	}
	return ""
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// resolveURL makes a possibly relative href absolute against the page URL.
func resolveURL(base *config.SourceSettings, pageURL, href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "/"):
		return strings.TrimRight(base.BaseURL, "/") + href
	default:
		return strings.TrimRight(pageURL, "/") + "/" + href
	}
}

// lastPathSegment extracts a slug-ish id from a detail URL.
func lastPathSegment(u string) string {
	u = strings.TrimRight(u, "/")
	if idx := strings.LastIndex(u, "/"); idx >= 0 {
		u = u[idx+1:]
	}
	if idx := strings.IndexAny(u, "?#"); idx >= 0 {
		u = u[:idx]
	}
	return u
}
