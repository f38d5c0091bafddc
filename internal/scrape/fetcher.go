// Package scrape fetches the Richmond council events page and extracts the
// raw Twickenham Stadium event rows.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/metrics"
	"github.com/twickenham/eventsd/internal/models"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second

	// The stadium table is identified by its caption, not its position;
	// the page carries several table.table elements.
	captionMarker = "events at twickenham stadium"
)

// Stats describes one fetch run for status reporting.
type Stats struct {
	Attempts  int
	Duration  time.Duration
	FetchedAt time.Time
}

// Fetcher retrieves raw event rows with bounded retries.
type Fetcher struct {
	url        string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	httpClient *http.Client
}

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// NewFetcher builds a Fetcher for the configured events page.
func NewFetcher(opts Options) (*Fetcher, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("scrape URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Fetcher{
		url:        opts.URL,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Fetch retrieves the raw event rows, retrying transient failures. An
// empty table on a successful fetch is a valid result and is not retried.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.RawEvent, Stats, error) {
	start := time.Now()
	stats := Stats{FetchedAt: start.UTC()}

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		stats.Attempts = attempt
		f.logger.Debug("fetching events page",
			zap.String("url", f.url),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", f.maxRetries))

		events, err := f.fetchOnce(ctx)
		if err == nil {
			stats.Duration = time.Since(start)
			metrics.FetchDuration.Observe(stats.Duration.Seconds())
			return events, stats, nil
		}
		lastErr = err
		f.logger.Warn("fetch attempt failed",
			zap.Int("attempt", attempt), zap.Error(err))

		if attempt < f.maxRetries {
			metrics.FetchRetries.Inc()
			select {
			case <-ctx.Done():
				stats.Duration = time.Since(start)
				return nil, stats, ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}
	}

	stats.Duration = time.Since(start)
	metrics.FetchDuration.Observe(stats.Duration.Seconds())
	return nil, stats, fmt.Errorf("all %d fetch attempts failed: %w", f.maxRetries, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]models.RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching events page", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse events page: %w", err)
	}
	return extractEvents(doc), nil
}

// extractEvents walks every table.table and keeps rows from the one whose
// caption names the stadium. Rows need at least date, title and time
// cells; the crowd cell is optional.
func extractEvents(doc *goquery.Document) []models.RawEvent {
	var events []models.RawEvent

	doc.Find("table.table").Each(func(_ int, table *goquery.Selection) {
		caption := strings.ToLower(table.Find("caption").Text())
		if !strings.Contains(caption, captionMarker) {
			return
		}

		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				// Header row.
				return
			}
			cols := row.Find("td")
			if cols.Length() < 3 {
				return
			}
			ev := models.RawEvent{
				Date:  strings.TrimSpace(cols.Eq(0).Text()),
				Title: strings.TrimSpace(cols.Eq(1).Text()),
				Time:  strings.TrimSpace(cols.Eq(2).Text()),
			}
			if cols.Length() > 3 {
				ev.Crowd = strings.TrimSpace(cols.Eq(3).Text())
			}
			events = append(events, ev)
		})
	})

	return events
}
