package wparchive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoContent marks a post whose content region could not be located. Such
// posts never produce an artifact.
var ErrNoContent = errors.New("post has no content region")

const (
	maxSlugLen = 50
	// shortSlugLen is the aggressive truncation used on the one write retry
	// after a path-too-long failure.
	shortSlugLen = 20
	hashSlugLen  = 12
)

var (
	nonSlugChars  = regexp.MustCompile(`[^\w\s-]`)
	slugGaps      = regexp.MustCompile(`[-\s]+`)
	nonFileChars  = regexp.MustCompile(`[^\w\-]`)
	hyphenRuns    = regexp.MustCompile(`-+`)
	dateLayouts   = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "January 2, 2006", "Jan 2, 2006"}
	dateOnlyInput = "2006-01-02"
)

// ArtifactWriter turns a PostRecord into a persisted markdown artifact: a
// front matter header in fixed field order followed by the converted body.
type ArtifactWriter struct {
	postsDir  string
	media     *MediaDownloader
	converter *md.Converter
	log       zerolog.Logger
}

// NewArtifactWriter creates the posts directory if absent and sets up the
// markdown converter. The converter gets no domain on purpose: rewritten
// media references must stay relative.
func NewArtifactWriter(root string, media *MediaDownloader, log zerolog.Logger) (*ArtifactWriter, error) {
	postsDir := filepath.Join(root, "posts")
	if err := os.MkdirAll(postsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create posts directory: %w", err)
	}
	return &ArtifactWriter{
		postsDir:  postsDir,
		media:     media,
		converter: md.NewConverter("", true, nil),
		log:       log,
	}, nil
}

// Write downloads the post's media, converts the rewritten content to
// markdown and persists the artifact. Returns the artifact path, or
// ErrNoContent when the record has no content region. A path-too-long write
// failure gets one retry with a harder-truncated slug before propagating.
func (w *ArtifactWriter) Write(ctx context.Context, post *PostRecord) (string, error) {
	if post.Content == nil {
		return "", fmt.Errorf("%w: %s", ErrNoContent, post.URL)
	}

	title := normalizeSpace(post.Title)
	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen])
	}

	slug := GenerateSlug(post.URL, title)

	// Media rewriting works on a clone so the scraped document is never
	// mutated behind the record's back.
	content := post.Content.Clone()
	post.Media = w.media.Process(ctx, content, slug)

	body := w.converter.Convert(content)

	date := NormalizeDate(post.PublishDate)
	header := w.header(post, title, date)

	safeSlug := safeFileSlug(slug, maxSlugLen)
	if safeSlug == "" {
		safeSlug = hashSlug(post.URL)
	}

	name := date + "_" + safeSlug + ".md"
	path := filepath.Join(w.postsDir, name)

	if err := os.WriteFile(path, []byte(header+body), 0644); err != nil {
		// Most likely a path length limit; retry once with a shorter name.
		w.log.Warn().Str("file", name).Err(err).Msg("write failed, truncating file name")
		name = date + "_" + safeFileSlug(slug, shortSlugLen) + ".md"
		path = filepath.Join(w.postsDir, name)
		if err := os.WriteFile(path, []byte(header+body), 0644); err != nil {
			return "", fmt.Errorf("failed to write artifact: %w", err)
		}
	}

	w.log.Info().Str("file", name).Msg("saved artifact")
	return path, nil
}

// header renders the front matter block. Field order is fixed and the
// modified date appears only when present and different from the publish
// date.
func (w *ArtifactWriter) header(post *PostRecord, title, date string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", title)
	fmt.Fprintf(&b, "date: %s\n", date)

	if post.ModifiedDate != "" {
		if modified, err := normalizeDateStrict(post.ModifiedDate); err == nil && modified != date {
			fmt.Fprintf(&b, "modified: %s\n", modified)
		}
	}

	fmt.Fprintf(&b, "author: %s\n", post.Author)
	fmt.Fprintf(&b, "categories: %s\n", jsonList(post.Categories))
	fmt.Fprintf(&b, "tags: %s\n", jsonList(post.Tags))
	fmt.Fprintf(&b, "original_url: %s\n", post.URL)
	b.WriteString("---\n\n")
	return b.String()
}

// NormalizeDate reduces a date signal to YYYY-MM-DD, falling back to the
// current date when the input parses with none of the known layouts.
func NormalizeDate(value string) string {
	if date, err := normalizeDateStrict(value); err == nil {
		return date
	}
	return time.Now().Format(dateOnlyInput)
}

func normalizeDateStrict(value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(dateOnlyInput), nil
		}
	}
	return "", fmt.Errorf("unparseable date %q", value)
}

// GenerateSlug derives a URL-safe slug, preferring the last non-numeric URL
// path segment over the title. When neither yields at least 3 characters the
// slug becomes a deterministic content-addressed identifier so the same URL
// always maps to the same artifact name.
func GenerateSlug(rawURL, title string) string {
	slug := lastSlugSegment(rawURL)
	if slug == "" {
		slug = strings.ToLower(title)
	}

	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = slugGaps.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) < 3 {
		slug = hashSlug(rawURL)
	}
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return slug
}

// hashSlug returns a 12-character identifier derived from the URL via a
// name-based UUID, deterministic for the same URL.
func hashSlug(rawURL string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL))
	return strings.ReplaceAll(id.String(), "-", "")[:hashSlugLen]
}

// safeFileSlug restricts a slug to word/hyphen characters, caps its length
// and collapses hyphen runs.
func safeFileSlug(slug string, maxLen int) string {
	s := nonFileChars.ReplaceAllString(slug, "-")
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
