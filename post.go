package wparchive

import "github.com/PuerkitoBio/goquery"

// MediaKind distinguishes the two classes of downloadable assets.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaRef records one successfully downloaded asset. Entries exist only for
// downloads that completed; a failed download leaves the original remote
// reference in the post body and no MediaRef behind.
type MediaRef struct {
	Kind        MediaKind `json:"kind"`
	OriginalURL string    `json:"original_url"`
	LocalPath   string    `json:"local_path"`
}

// PostRecord holds everything scraped from a single blog post. Every field
// has a best-effort value except ModifiedDate (empty string when the page
// carries no modified signal) and Content (nil when no content region could
// be located -- such records never produce an artifact).
type PostRecord struct {
	URL          string
	Title        string
	PublishDate  string
	ModifiedDate string
	Content      *goquery.Selection
	Author       string
	Categories   []string
	Tags         []string
	Media        []MediaRef
}
