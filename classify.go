package wparchive

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Patterns for WordPress permalink shapes. Search semantics, not full-string
// match: the slug patterns may appear anywhere in the path.
var (
	// Archive listing paths: a bare date prefix with no trailing slug.
	dateOnlyPattern = regexp.MustCompile(`^/\d{4}(/\d{2})?(/\d{2})?/?$`)
	// Dated permalinks with a slug after the date.
	daySlugPattern   = regexp.MustCompile(`/\d{4}/\d{2}/\d{2}/[a-z0-9-]+`)
	monthSlugPattern = regexp.MustCompile(`/\d{4}/\d{2}/[a-z0-9-]+`)
	// Date captured out of a dated permalink, used by the extractors.
	daySlugDatePattern = regexp.MustCompile(`/(\d{4})/(\d{2})/(\d{2})/`)
)

// URLClassifier decides whether a URL looks like a blog post as opposed to
// an archive, taxonomy or asset page. It is a pure predicate: no network
// access, no state beyond the site it was built for.
type URLClassifier struct {
	base       *url.URL
	excluded   []string
	longSlugRe *regexp.Regexp
}

// NewURLClassifier builds a classifier for the given site base URL.
func NewURLClassifier(baseURL string, cfg ClassifierConfig) (*URLClassifier, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must use http or https", baseURL)
	}

	minLen := cfg.MinSlugLen
	if minLen <= 0 {
		minLen = DefaultClassifierConfig().MinSlugLen
	}

	return &URLClassifier{
		base:       base,
		excluded:   cfg.Excluded,
		longSlugRe: regexp.MustCompile(fmt.Sprintf(`/[a-z0-9-]{%d,}`, minLen)),
	}, nil
}

// IsPost reports whether the URL is likely an individual blog post. The rule
// order matters: exclusions and the date-only archive check must run before
// the permissive slug-length heuristic, or navigation links and archive
// pages would be misclassified as posts.
func (c *URLClassifier) IsPost(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, term := range c.excluded {
		if strings.Contains(lower, term) {
			return false
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	// Same-origin only.
	if u.Scheme != c.base.Scheme || u.Host != c.base.Host {
		return false
	}

	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		return false
	}

	// A bare date prefix is an archive listing, not a post.
	if dateOnlyPattern.MatchString(u.Path) {
		return false
	}

	if daySlugPattern.MatchString(path) || monthSlugPattern.MatchString(path) {
		return true
	}
	return c.longSlugRe.MatchString(path)
}
