package wparchive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// postFetchTimeout bounds a single post page fetch. Posts get a little more
// headroom than discovery probes because they are the payload.
const postFetchTimeout = 15 * time.Second

// PostScraper fetches one post URL, parses it and runs every field
// extractor to assemble a PostRecord.
type PostScraper struct {
	fetcher   *Fetcher
	extractor *Extractor
	log       zerolog.Logger
}

// NewPostScraper wires a scraper from its collaborators.
func NewPostScraper(fetcher *Fetcher, extractor *Extractor, log zerolog.Logger) *PostScraper {
	return &PostScraper{fetcher: fetcher, extractor: extractor, log: log}
}

// Scrape fetches and extracts a single post. A fetch or parse failure fails
// only this post; a missing field never does.
func (s *PostScraper) Scrape(ctx context.Context, postURL string) (*PostRecord, error) {
	s.log.Info().Str("url", postURL).Msg("scraping post")

	fetchCtx, cancel := context.WithTimeout(ctx, postFetchTimeout)
	defer cancel()

	body, err := s.fetcher.Get(fetchCtx, postURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse post HTML: %w", err)
	}

	return &PostRecord{
		URL:          postURL,
		Title:        s.extractor.Title(doc, postURL),
		PublishDate:  s.extractor.PublishDate(doc, postURL),
		ModifiedDate: s.extractor.ModifiedDate(doc),
		Content:      s.extractor.Content(doc),
		Author:       s.extractor.Author(doc),
		Categories:   s.extractor.Categories(doc),
		Tags:         s.extractor.Tags(doc),
		Media:        []MediaRef{},
	}, nil
}
