package wparchive

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// unsafeFileChars matches everything outside the safe file-name alphabet.
var unsafeFileChars = regexp.MustCompile(`[^\w\-.]`)

// MediaStore is the on-disk destination for downloaded assets, images and
// videos kept in separate subdirectories.
type MediaStore struct {
	ImagesDir string
	VideosDir string
}

// NewMediaStore creates the media directories under root if absent.
func NewMediaStore(root string) (*MediaStore, error) {
	store := &MediaStore{
		ImagesDir: filepath.Join(root, "media", "images"),
		VideosDir: filepath.Join(root, "media", "videos"),
	}
	for _, dir := range []string{store.ImagesDir, store.VideosDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create media directory: %w", err)
		}
	}
	return store, nil
}

// Counts returns the number of stored images and videos.
func (s *MediaStore) Counts() (images, videos int) {
	return countFiles(s.ImagesDir), countFiles(s.VideosDir)
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

// MediaDownloader scans a post's content region for image and video
// references, downloads each asset into the media store and rewrites the
// element's source attribute to a local relative path. A failed download
// leaves the original remote reference untouched and yields no MediaRef.
type MediaDownloader struct {
	fetcher *Fetcher
	store   *MediaStore
	base    *url.URL
	cfg     MediaConfig
	log     zerolog.Logger
}

// NewMediaDownloader wires a downloader for the given site and store.
func NewMediaDownloader(baseURL string, fetcher *Fetcher, store *MediaStore, cfg MediaConfig, log zerolog.Logger) (*MediaDownloader, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	return &MediaDownloader{
		fetcher: fetcher,
		store:   store,
		base:    base,
		cfg:     cfg,
		log:     log,
	}, nil
}

// Process downloads every asset referenced by the content region and
// rewrites the references in place. The caller owns the subtree: the
// artifact writer passes a clone so the rewrite never aliases the scraped
// document. File names are prefixed with the post slug to avoid collisions
// across posts.
func (m *MediaDownloader) Process(ctx context.Context, content *goquery.Selection, postSlug string) []MediaRef {
	refs := []MediaRef{}
	if content == nil {
		return refs
	}

	content.Find("img").Each(func(_ int, s *goquery.Selection) {
		if ref, ok := m.fetchOne(ctx, s, postSlug, MediaImage); ok {
			refs = append(refs, ref)
		}
	})

	content.Find("video, source").Each(func(_ int, s *goquery.Selection) {
		if ref, ok := m.fetchOne(ctx, s, postSlug, MediaVideo); ok {
			refs = append(refs, ref)
		}
	})

	return refs
}

// fetchOne downloads the asset behind one element's src attribute. Returns
// false without touching the element when the source is missing, skipped or
// failed to download.
func (m *MediaDownloader) fetchOne(ctx context.Context, s *goquery.Selection, postSlug string, kind MediaKind) (MediaRef, bool) {
	src, ok := s.Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return MediaRef{}, false
	}

	mediaURL := m.resolve(src)
	if mediaURL == "" {
		return MediaRef{}, false
	}

	if m.skipped(mediaURL) {
		m.log.Info().Str("url", mediaURL).Msg("skipping media on defunct host")
		return MediaRef{}, false
	}

	name := mediaFileName(mediaURL, postSlug)
	dir := m.store.ImagesDir
	relDir := "images"
	if kind == MediaVideo {
		dir = m.store.VideosDir
		relDir = "videos"
	}

	if err := m.fetcher.Download(ctx, mediaURL, filepath.Join(dir, name)); err != nil {
		// Leave the remote reference in the body untouched.
		m.log.Warn().Str("url", mediaURL).Err(err).Msg("failed to download media")
		return MediaRef{}, false
	}

	// Artifacts live in {output}/posts, assets in {output}/media.
	s.SetAttr("src", "../../media/"+relDir+"/"+name)
	m.log.Debug().Str("file", name).Msg("downloaded media")

	return MediaRef{
		Kind:        kind,
		OriginalURL: mediaURL,
		LocalPath:   filepath.Join(dir, name),
	}, true
}

// mediaFileName derives a filesystem-safe destination name from the remote
// path's base name, prefixed with the post slug.
func mediaFileName(mediaURL, postSlug string) string {
	base := "asset"
	if u, err := url.Parse(mediaURL); err == nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
		base = path.Base(u.Path)
	}
	return postSlug + "_" + unsafeFileChars.ReplaceAllString(base, "_")
}

func (m *MediaDownloader) resolve(src string) string {
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return ""
	}
	return m.base.ResolveReference(ref).String()
}

func (m *MediaDownloader) skipped(mediaURL string) bool {
	for _, host := range m.cfg.SkipHosts {
		if strings.Contains(mediaURL, host) {
			return true
		}
	}
	return false
}
