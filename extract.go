package wparchive

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxTitleLen caps extracted titles. Anything longer almost certainly means
// the selector grabbed the wrong element.
const maxTitleLen = 200

// Extractor pulls post fields out of a parsed document. Each method walks a
// ranked chain of strategies and stops at the first that yields a value; no
// structural guarantee holds across WordPress templates, so every field
// needs fallbacks. ModifiedDate and Content are the only extractions allowed
// to come back empty.
type Extractor struct {
	sel Selectors
}

// NewExtractor builds an extractor over the given selector lists.
func NewExtractor(sel Selectors) *Extractor {
	return &Extractor{sel: sel}
}

// Title extracts the post title.
//
// Tiers: semantic title selectors, then top-level headings outside
// navigation, then the page <title> trimmed at its site-name separator, then
// the humanized URL slug, then a literal fallback.
func (e *Extractor) Title(doc *goquery.Document, pageURL string) string {
	for _, selector := range e.sel.Title {
		text := normalizeSpace(doc.Find(selector).First().Text())
		if text != "" && len(text) < maxTitleLen {
			return text
		}
	}

	// Any h1 works as long as it is not part of the site chrome.
	title := ""
	doc.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.ParentsFiltered("nav, header").Length() > 0 {
			return true
		}
		text := normalizeSpace(s.Text())
		if text != "" && len(text) < maxTitleLen {
			title = text
			return false
		}
		return true
	})
	if title != "" {
		return title
	}

	// Page title, minus the "| Site Name" / "- Site Name" suffix.
	if text := normalizeSpace(doc.Find("title").First().Text()); text != "" {
		text, _, _ = strings.Cut(text, " | ")
		text, _, _ = strings.Cut(text, " - ")
		text = strings.TrimSpace(text)
		if text != "" && len(text) < maxTitleLen {
			return text
		}
	}

	if slug := lastSlugSegment(canonicalURL(doc, pageURL)); slug != "" {
		return cases.Title(language.Und).String(strings.ReplaceAll(slug, "-", " "))
	}

	return "Untitled Post"
}

// PublishDate extracts the publication date, never the modified date. The
// return value is whatever signal the page offered (ISO timestamp, date
// string or free text); normalization happens at artifact-writing time.
// Falls back to the current timestamp, so the result is never empty.
func (e *Extractor) PublishDate(doc *goquery.Document, pageURL string) string {
	if v, ok := metaContent(doc, "article:published_time"); ok {
		return v
	}
	if v, ok := metaContent(doc, "article:created_time"); ok {
		return v
	}

	// <time> explicitly flagged as the published/entry date.
	if v, ok := doc.Find("time.published, time.entry-date").First().Attr("datetime"); ok && v != "" {
		return v
	}

	// First <time> that is not an updated/modified marker.
	date := ""
	doc.Find("time").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		lower := strings.ToLower(class)
		if strings.Contains(lower, "updated") || strings.Contains(lower, "modified") {
			return true
		}
		if v, ok := s.Attr("datetime"); ok && v != "" {
			date = v
			return false
		}
		return true
	})
	if date != "" {
		return date
	}

	if v := jsonLDValue(doc, "datePublished", "dateCreated"); v != "" {
		return v
	}

	if v := selectorDate(doc, e.sel.Date); v != "" {
		return v
	}

	// WordPress date-based permalinks carry the date themselves.
	if v := pathDate(canonicalURL(doc, pageURL)); v != "" {
		return v
	}

	return time.Now().Format(time.RFC3339)
}

// ModifiedDate extracts an explicit last-modified signal. Unlike the publish
// date there is no fabricated fallback: an empty string means the page never
// said it was modified.
func (e *Extractor) ModifiedDate(doc *goquery.Document) string {
	if v, ok := metaContent(doc, "article:modified_time"); ok {
		return v
	}

	if v, ok := doc.Find("time.updated, time.modified").First().Attr("datetime"); ok && v != "" {
		return v
	}

	if v := jsonLDValue(doc, "dateModified"); v != "" {
		return v
	}

	return selectorDate(doc, e.sel.Modified)
}

// Author extracts the author display name, defaulting to "Unknown".
func (e *Extractor) Author(doc *goquery.Document) string {
	if v, ok := metaContent(doc, "article:author"); ok {
		return v
	}

	for _, selector := range e.sel.Author {
		if text := normalizeSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}

	return "Unknown"
}

// Categories collects the post's category names in document order, duplicates
// suppressed.
func (e *Extractor) Categories(doc *goquery.Document) []string {
	return collectTerms(doc, e.sel.Category)
}

// Tags collects the post's tag names in document order, duplicates
// suppressed.
func (e *Extractor) Tags(doc *goquery.Document) []string {
	return collectTerms(doc, e.sel.Tag)
}

// Content locates the main content region and strips script/style/comment/
// share/navigation sub-elements in place. Returns nil when no plausible
// region exists; such posts never become artifacts.
func (e *Extractor) Content(doc *goquery.Document) *goquery.Selection {
	var content *goquery.Selection
	for _, selector := range e.sel.Content {
		if s := doc.Find(selector).First(); s.Length() > 0 {
			content = s
			break
		}
	}

	if content == nil {
		// Last resort: a generic main element or any content-flavored div.
		for _, selector := range []string{"main", `div[class*="content"]`, `div[class*="post"]`} {
			if s := doc.Find(selector).First(); s.Length() > 0 {
				content = s
				break
			}
		}
	}

	if content == nil {
		return nil
	}

	content.Find(e.sel.ContentStrip).Remove()
	return content
}

// collectTerms gathers the text of all elements matching the selector list,
// in document order across the combined selector, deduplicated by display
// string.
func collectTerms(doc *goquery.Document, selectors []string) []string {
	terms := []string{}
	seen := make(map[string]bool)
	doc.Find(strings.Join(selectors, ", ")).Each(func(_ int, s *goquery.Selection) {
		term := normalizeSpace(s.Text())
		if term != "" && !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	})
	return terms
}

// selectorDate walks date-ish selectors, preferring a machine-readable
// datetime attribute over element text.
func selectorDate(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		s := doc.Find(selector).First()
		if s.Length() == 0 {
			continue
		}
		if v, ok := s.Attr("datetime"); ok && v != "" {
			return v
		}
		if text := normalizeSpace(s.Text()); text != "" {
			return text
		}
	}
	return ""
}

// metaContent returns the content attribute of a meta tag with the given
// property.
func metaContent(doc *goquery.Document, property string) (string, bool) {
	v, ok := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// jsonLDValue scans every JSON-LD script block for the first of the given
// keys, handling both a single object and an array of objects. Malformed
// blocks are skipped.
func jsonLDValue(doc *goquery.Document, keys ...string) string {
	result := ""
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if v := jsonLDPick(data, keys); v != "" {
			result = v
			return false
		}
		return true
	})
	return result
}

func jsonLDPick(data any, keys []string) string {
	switch v := data.(type) {
	case map[string]any:
		for _, key := range keys {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	case []any:
		for _, entry := range v {
			if m, ok := entry.(map[string]any); ok {
				for _, key := range keys {
					if s, ok := m[key].(string); ok && s != "" {
						return s
					}
				}
			}
		}
	}
	return ""
}

// canonicalURL returns the page's canonical link target, or the fallback URL
// when the page declares none.
func canonicalURL(doc *goquery.Document, fallback string) string {
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok && href != "" {
		return href
	}
	return fallback
}

// lastSlugSegment returns the last non-numeric path segment of a URL, or ""
// when the path has no usable segments.
func lastSlugSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || isNumeric(seg) {
			continue
		}
		return seg
	}
	return ""
}

// pathDate extracts YYYY-MM-DD out of a dated permalink path.
func pathDate(rawURL string) string {
	m := daySlugDatePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1] + "-" + m[2] + "-" + m[3]
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// normalizeSpace collapses all runs of whitespace to single spaces and trims
// the ends.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
