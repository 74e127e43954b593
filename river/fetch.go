package river

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	// Client used for requests (default: http.DefaultClient).
	Client *http.Client
	// Timeout of a single attempt (default: 15s).
	Timeout time.Duration
	// MaxRetries after the first failed attempt.
	MaxRetries uint64
	// InitialInterval of the exponential backoff (default: 500ms).
	InitialInterval time.Duration
	Logger          *zap.Logger
}

// Fetcher downloads gauge CSV files.
type Fetcher struct {
	client          *http.Client
	timeout         time.Duration
	maxRetries      uint64
	initialInterval time.Duration
	logger          *zap.Logger
}

// NewFetcher returns a Fetcher with defaults applied to opts.
func NewFetcher(opts FetcherOptions) *Fetcher {
	f := &Fetcher{
		client:          opts.Client,
		timeout:         opts.Timeout,
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.InitialInterval,
		logger:          opts.Logger,
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.timeout <= 0 {
		f.timeout = 15 * time.Second
	}
	if f.initialInterval <= 0 {
		f.initialInterval = 500 * time.Millisecond
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	f.logger = f.logger.Named("fetch")
	return f
}

// Fetch downloads and parses the CSV at url. Transport errors and 5xx
// responses are retried with exponential backoff; other statuses are not.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Reading, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, f.maxRetries), ctx)

	var reading *Reading
	attempt := 0
	op := func() error {
		attempt++
		r, err := f.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		reading = r
		return nil
	}
	notify := func(err error, next time.Duration) {
		f.logger.Warn("fetch failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	f.logger.Debug("fetched gauge CSV",
		zap.String("url", url),
		zap.Int("points", len(reading.Points)),
		zap.Int("attempts", attempt))
	return reading, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("river: %w", err))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("river: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := fmt.Errorf("river: GET %s: unexpected status %s", url, resp.Status)
		if resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	reading, err := ParseCSV(resp.Body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return reading, nil
}
