package wparchive

import "time"

// ClassifierConfig holds the vocabulary the URL classifier matches against.
// Kept as data rather than embedded constants so classification is testable
// in isolation.
type ClassifierConfig struct {
	// Excluded lists substrings that mark a URL as not-a-post: feeds,
	// taxonomy and pagination pages, admin paths, non-HTML assets, generic
	// informational pages, and the site's own archive roots.
	Excluded []string
	// MinSlugLen is the minimum length of a bare path slug for the
	// permissive single-segment heuristic. Short slugs are usually
	// navigation pages.
	MinSlugLen int
}

// DefaultClassifierConfig returns the standard WordPress exclusion
// vocabulary.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Excluded: []string{
			"/feed/", "/category/", "/tag/", "/author/",
			"/page/", "/wp-", "/login", "/admin",
			".xml", ".jpg", ".png", ".gif", ".pdf",
			"/about", "/contact", "/privacy", "/terms",
			"/archives/", "/blog/", "/posts/",
		},
		MinSlugLen: 10,
	}
}

// DiscoveryConfig holds the candidate sources the discovery engine probes
// and the bounds on archive pagination.
type DiscoveryConfig struct {
	// SitemapPaths are probed first; each is fetched and parsed as a site
	// map, failures are non-fatal.
	SitemapPaths []string
	// FeedPaths are RSS/Atom feeds to mine for post links.
	FeedPaths []string
	// ListingPaths are archive/listing pages crawled for hyperlinks.
	ListingPaths []string
	// MaxPages bounds how far pagination is probed per listing (page/2/
	// through page/MaxPages/).
	MaxPages int
	// PageDelay is the politeness delay between consecutive pagination
	// fetches.
	PageDelay time.Duration
}

// DefaultDiscoveryConfig returns the common WordPress sitemap, feed and
// archive locations.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		SitemapPaths: []string{"/sitemap.xml", "/sitemap_index.xml", "/wp-sitemap.xml"},
		FeedPaths:    []string{"/feed/"},
		ListingPaths: []string{"/", "/blog/", "/posts/", "/archives/"},
		MaxPages:     20,
		PageDelay:    500 * time.Millisecond,
	}
}

// Selectors holds the ranked selector lists the field extractors walk. Order
// within each list is descending reliability; extraction stops at the first
// tier that yields a value.
type Selectors struct {
	Title    []string
	Date     []string
	Modified []string
	Author   []string
	Category []string
	Tag      []string
	Content  []string
	// ContentStrip is removed in place from a located content region before
	// it is returned: scripts, styles, comments, share widgets, navigation.
	ContentStrip string
}

// DefaultSelectors returns selector lists covering the common WordPress
// themes. No structural guarantee holds across templates, which is why every
// extractor walks a list instead of trusting one selector.
func DefaultSelectors() Selectors {
	return Selectors{
		Title: []string{
			"h1.entry-title",
			"h1.post-title",
			"article h1",
			`h1[class*="title"]`,
			".entry-title",
			".post-title",
		},
		Date: []string{
			".published",
			".entry-date.published",
			".post-date",
			`[itemprop="datePublished"]`,
			`[itemprop="dateCreated"]`,
		},
		Modified: []string{
			".updated",
			".modified",
			`[itemprop="dateModified"]`,
		},
		Author: []string{
			".author-name",
			".entry-author",
			`[rel="author"]`,
			`[class*="author"]`,
		},
		Category: []string{
			`a[rel="category tag"]`,
			".cat-links a",
			`[class*="categor"] a`,
		},
		Tag: []string{
			`a[rel="tag"]`,
			".tag-links a",
			`[class*="tag"] a`,
		},
		Content: []string{
			"article .entry-content",
			".post-content",
			"article .content",
			`[class*="post-content"]`,
			"article",
			".hentry",
		},
		ContentStrip: "script, style, .comments, .related-posts, .share, nav",
	}
}

// MediaConfig controls the media downloader.
type MediaConfig struct {
	// SkipHosts are known-defunct origins; references to them are left
	// untouched instead of timing out on every post.
	SkipHosts []string
}

// DefaultMediaConfig returns the default skip list.
func DefaultMediaConfig() MediaConfig {
	return MediaConfig{
		// Old server IP that no longer resolves to the blog's media.
		SkipHosts: []string{"107.23.205.221"},
	}
}
