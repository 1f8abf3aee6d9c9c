package wparchive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
)

// Discoverer finds candidate post URLs across three kinds of sources:
// XML sitemaps, RSS/Atom feeds and paginated archive listings. Every
// candidate passes through the URL classifier before entering the result
// set; failure of any single source is non-fatal.
type Discoverer struct {
	fetcher    *Fetcher
	classifier *URLClassifier
	base       *url.URL
	cfg        DiscoveryConfig
	log        zerolog.Logger
}

// NewDiscoverer wires a discoverer for the given site.
func NewDiscoverer(baseURL string, fetcher *Fetcher, classifier *URLClassifier, cfg DiscoveryConfig, log zerolog.Logger) (*Discoverer, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	return &Discoverer{
		fetcher:    fetcher,
		classifier: classifier,
		base:       base,
		cfg:        cfg,
		log:        log,
	}, nil
}

// Discover probes every configured source and returns the deduplicated
// union of post URLs, sorted for deterministic iteration.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	found := make(map[string]bool)

	for _, path := range d.cfg.SitemapPaths {
		if err := d.scanSitemap(ctx, d.siteURL(path), found, true); err != nil {
			d.log.Debug().Str("sitemap", path).Err(err).Msg("sitemap not usable")
		}
	}

	for _, path := range d.cfg.FeedPaths {
		if err := d.scanFeed(ctx, d.siteURL(path), found); err != nil {
			d.log.Debug().Str("feed", path).Err(err).Msg("feed not usable")
		}
	}

	for _, path := range d.cfg.ListingPaths {
		d.scanListing(ctx, d.siteURL(path), found)
	}

	urls := make([]string, 0, len(found))
	for u := range found {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	d.log.Info().Int("posts", len(urls)).Msg("discovery complete")
	return urls, nil
}

// scanSitemap fetches one sitemap and classifies every <loc> entry. Entries
// that are themselves .xml sub-sitemaps (sitemap indexes) are followed one
// level deep.
func (d *Discoverer) scanSitemap(ctx context.Context, sitemapURL string, found map[string]bool, followIndex bool) error {
	body, err := d.fetcher.Get(ctx, sitemapURL)
	if err != nil {
		return err
	}

	// Lenient parse: the HTML parser happily walks unknown elements, which
	// is all we need to pull <loc> text out of urlset/sitemapindex files.
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to parse sitemap: %w", err)
	}

	doc.Find("loc").Each(func(_ int, s *goquery.Selection) {
		loc := strings.TrimSpace(s.Text())
		if loc == "" {
			return
		}
		if followIndex && strings.HasSuffix(strings.ToLower(loc), ".xml") {
			if err := d.scanSitemap(ctx, loc, found, false); err != nil {
				d.log.Debug().Str("sitemap", loc).Err(err).Msg("sub-sitemap not usable")
			}
			return
		}
		if d.classifier.IsPost(loc) {
			found[loc] = true
		}
	})

	d.log.Info().Str("sitemap", sitemapURL).Int("total", len(found)).Msg("scanned sitemap")
	return nil
}

// scanFeed parses an RSS/Atom feed and classifies every item link.
func (d *Discoverer) scanFeed(ctx context.Context, feedURL string, found map[string]bool) error {
	body, err := d.fetcher.Get(ctx, feedURL)
	if err != nil {
		return err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	for _, item := range feed.Items {
		link := d.resolve(item.Link)
		if link != "" && d.classifier.IsPost(link) {
			found[link] = true
		}
	}

	d.log.Info().Str("feed", feedURL).Int("items", len(feed.Items)).Msg("scanned feed")
	return nil
}

// scanListing crawls one archive page plus its pagination. The probe stops
// advancing as soon as a page fetch fails; ErrNotFound is the normal end of
// pagination, anything else already survived the fetcher's retries and is
// logged so a truncated crawl is visible.
func (d *Discoverer) scanListing(ctx context.Context, listingURL string, found map[string]bool) {
	if err := d.scanPage(ctx, listingURL, found); err != nil {
		d.log.Debug().Str("listing", listingURL).Err(err).Msg("listing not usable")
		return
	}

	for page := 2; page <= d.cfg.MaxPages; page++ {
		pageURL := fmt.Sprintf("%spage/%d/", withTrailingSlash(listingURL), page)

		select {
		case <-ctx.Done():
			return
		case <-time.After(d.cfg.PageDelay):
		}

		if err := d.scanPage(ctx, pageURL, found); err != nil {
			if !errors.Is(err, ErrNotFound) {
				d.log.Warn().Str("page", pageURL).Err(err).Msg("pagination stopped on error")
			}
			break
		}
	}
}

// scanPage extracts every hyperlink from one HTML page, resolves it against
// the site base and classifies it.
func (d *Discoverer) scanPage(ctx context.Context, pageURL string, found map[string]bool) error {
	body, err := d.fetcher.Get(ctx, pageURL)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := d.resolve(href)
		if link != "" && d.classifier.IsPost(link) {
			found[link] = true
		}
	})

	d.log.Info().Str("page", pageURL).Int("total", len(found)).Msg("scanned listing page")
	return nil
}

// resolve turns a possibly relative href into an absolute URL.
func (d *Discoverer) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return d.base.ResolveReference(ref).String()
}

func (d *Discoverer) siteURL(path string) string {
	return d.base.String() + path
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
