package wparchive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ErrNotFound marks a fetch that answered 404 or 410. Callers use it to
// distinguish "this page does not exist" (end of pagination, missing
// sitemap) from a transient server failure.
var ErrNotFound = errors.New("resource not found")

const defaultUserAgent = "wparchive/1.0 (WordPress blog archiver)"

// Fetcher performs HTTP GETs for every other component. Text fetches and
// binary downloads share one client; timeouts are applied per request.
// Transport errors and 5xx responses are retried with exponential backoff,
// 4xx responses are not.
type Fetcher struct {
	client    *http.Client
	userAgent string
	log       zerolog.Logger

	// TextTimeout bounds page/sitemap/feed fetches, StreamTimeout bounds
	// media downloads.
	TextTimeout   time.Duration
	StreamTimeout time.Duration
	// MaxRetries is the number of additional attempts after a transient
	// failure. RetryInterval seeds the exponential backoff.
	MaxRetries    uint64
	RetryInterval time.Duration
}

// NewFetcher creates a fetcher with the default timeouts and retry policy.
func NewFetcher(log zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:        &http.Client{},
		userAgent:     defaultUserAgent,
		log:           log,
		TextTimeout:   10 * time.Second,
		StreamTimeout: 30 * time.Second,
		MaxRetries:    2,
		RetryInterval: 500 * time.Millisecond,
	}
}

// Get fetches a URL in text mode and returns the response body.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := f.withTimeout(ctx, f.TextTimeout)
	defer cancel()

	op := func() ([]byte, error) {
		resp, err := f.do(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return body, nil
	}

	return backoff.RetryNotifyWithData(op, f.backOff(ctx), f.notify(rawURL))
}

// Download fetches a URL in streaming mode and writes the body to dest. A
// partially written file is removed on failure so the media store never
// holds truncated assets.
func (f *Fetcher) Download(ctx context.Context, rawURL, dest string) error {
	ctx, cancel := f.withTimeout(ctx, f.StreamTimeout)
	defer cancel()

	op := func() error {
		resp, err := f.do(ctx, rawURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		out, err := os.Create(dest)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create %s: %w", dest, err))
		}

		if _, err := io.Copy(out, resp.Body); err != nil {
			out.Close()
			os.Remove(dest)
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		return out.Close()
	}

	return backoff.RetryNotify(op, f.backOff(ctx), f.notify(rawURL))
}

// do issues one GET and classifies the response status. 404/410 and other
// client errors come back wrapped in backoff.Permanent so they are never
// retried.
func (f *Fetcher) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		// Transport-level failure -- retryable.
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, backoff.Permanent(fmt.Errorf("%w: %s answered %d", ErrNotFound, rawURL, resp.StatusCode))
	case resp.StatusCode >= 500:
		// Transient server failure -- retryable.
		resp.Body.Close()
		return nil, fmt.Errorf("server error for %s: %d %s", rawURL, resp.StatusCode, resp.Status)
	default:
		resp.Body.Close()
		return nil, backoff.Permanent(fmt.Errorf("HTTP error for %s: %d %s", rawURL, resp.StatusCode, resp.Status))
	}
}

// withTimeout applies the fetcher's default timeout unless the caller
// already set a deadline of its own.
func (f *Fetcher) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func (f *Fetcher) backOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.RetryInterval
	return backoff.WithContext(backoff.WithMaxRetries(bo, f.MaxRetries), ctx)
}

func (f *Fetcher) notify(rawURL string) backoff.Notify {
	return func(err error, next time.Duration) {
		f.log.Warn().
			Str("url", rawURL).
			Dur("next_attempt_in", next).
			Err(err).
			Msg("fetch failed, retrying")
	}
}
