package wparchive

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Summary reports the outcome of one migration run.
type Summary struct {
	Discovered int
	Processed  int
	Failed     int
	Images     int
	Videos     int
}

// MigratorConfig bundles the configuration of every pipeline stage.
type MigratorConfig struct {
	Classifier ClassifierConfig
	Discovery  DiscoveryConfig
	Selectors  Selectors
	Media      MediaConfig
	// PostDelay is the politeness delay between consecutive posts.
	PostDelay time.Duration
}

// DefaultMigratorConfig returns the standard configuration.
func DefaultMigratorConfig() MigratorConfig {
	return MigratorConfig{
		Classifier: DefaultClassifierConfig(),
		Discovery:  DefaultDiscoveryConfig(),
		Selectors:  DefaultSelectors(),
		Media:      DefaultMediaConfig(),
		PostDelay:  time.Second,
	}
}

// Migrator sequences the whole pipeline: discovery, then per-URL scrape →
// media download → artifact write, then the index. Execution is strictly
// sequential; individual post failures are counted and never abort the run.
type Migrator struct {
	siteURL   string
	cfg       MigratorConfig
	log       zerolog.Logger
	artifacts []string

	// Fetcher is shared by every stage and exported so callers can tune
	// timeouts and retry intervals.
	Fetcher    *Fetcher
	discoverer *Discoverer
	scraper    *PostScraper
	writer     *ArtifactWriter
	index      *IndexBuilder
	store      *MediaStore
}

// NewMigrator wires the full pipeline for one site and creates the output
// directory tree.
func NewMigrator(siteURL, outputDir string, cfg MigratorConfig, log zerolog.Logger) (*Migrator, error) {
	siteURL = strings.TrimRight(siteURL, "/")

	fetcher := NewFetcher(log)

	classifier, err := NewURLClassifier(siteURL, cfg.Classifier)
	if err != nil {
		return nil, err
	}

	discoverer, err := NewDiscoverer(siteURL, fetcher, classifier, cfg.Discovery, log)
	if err != nil {
		return nil, err
	}

	store, err := NewMediaStore(outputDir)
	if err != nil {
		return nil, err
	}

	media, err := NewMediaDownloader(siteURL, fetcher, store, cfg.Media, log)
	if err != nil {
		return nil, err
	}

	writer, err := NewArtifactWriter(outputDir, media, log)
	if err != nil {
		return nil, err
	}

	return &Migrator{
		siteURL:    siteURL,
		cfg:        cfg,
		log:        log,
		Fetcher:    fetcher,
		discoverer: discoverer,
		scraper:    NewPostScraper(fetcher, NewExtractor(cfg.Selectors), log),
		writer:     writer,
		index:      NewIndexBuilder(outputDir, siteURL, store, log),
		store:      store,
	}, nil
}

// Run executes the migration and returns the final counts. The only fatal
// conditions are an empty discovery result, context cancellation and an
// index write failure; everything else is contained per post.
func (m *Migrator) Run(ctx context.Context) (*Summary, error) {
	urls, err := m.discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, errors.New("no blog posts discovered")
	}

	m.artifacts = nil
	summary := &Summary{Discovered: len(urls)}

	for i, postURL := range urls {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		m.log.Info().Int("current", i+1).Int("total", len(urls)).Msg("processing post")
		m.processPost(ctx, postURL, summary)

		// Be polite to the origin between posts.
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		case <-time.After(m.cfg.PostDelay):
		}
	}

	if len(m.artifacts) > 0 {
		if err := m.index.Build(m.artifacts); err != nil {
			return summary, err
		}
	}

	summary.Images, summary.Videos = m.store.Counts()

	m.log.Info().
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Msg("migration complete")
	return summary, nil
}

// processPost handles one URL end to end. Any failure fails this post only.
func (m *Migrator) processPost(ctx context.Context, postURL string, summary *Summary) {
	post, err := m.scraper.Scrape(ctx, postURL)
	if err != nil {
		m.log.Warn().Str("url", postURL).Err(err).Msg("failed to scrape post")
		summary.Failed++
		return
	}

	path, err := m.writer.Write(ctx, post)
	if err != nil {
		m.log.Warn().Str("url", postURL).Err(err).Msg("failed to write artifact")
		summary.Failed++
		return
	}

	m.artifacts = append(m.artifacts, path)
	summary.Processed++
}
