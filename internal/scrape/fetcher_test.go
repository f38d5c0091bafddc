package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><body>
<table class="table">
  <caption>Roadworks in the borough</caption>
  <tr><th>Date</th><th>What</th></tr>
  <tr><td>1 June 2026</td><td>Resurfacing</td><td>all day</td></tr>
</table>
<table class="table">
  <caption>Events at Twickenham Stadium</caption>
  <tr><th>Date</th><th>Event</th><th>Time</th><th>Crowd</th></tr>
  <tr><td>6 June 2026</td><td>England v Australia</td><td>3pm</td><td>82,000</td></tr>
  <tr><td>13 June 2026</td><td>Stadium Concert</td><td>7:30pm</td></tr>
  <tr><td>too</td><td>short</td></tr>
</table>
</body></html>`

func newTestFetcher(t *testing.T, url string, maxRetries int) *Fetcher {
	t.Helper()
	f, err := NewFetcher(Options{
		URL:        url,
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	return f
}

func TestFetchParsesStadiumTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL, 1)
	events, stats, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Attempts)

	require.Len(t, events, 2, "only rows from the stadium table with enough cells")
	assert.Equal(t, "6 June 2026", events[0].Date)
	assert.Equal(t, "England v Australia", events[0].Title)
	assert.Equal(t, "3pm", events[0].Time)
	assert.Equal(t, "82,000", events[0].Crowd)
	assert.Equal(t, "Stadium Concert", events[1].Title)
	assert.Empty(t, events[1].Crowd, "crowd cell is optional")
}

func TestFetchEmptyTableIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<table class="table"><caption>Events at Twickenham Stadium</caption><tr><th>Date</th></tr></table>`))
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL, 3)
	events, stats, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 1, stats.Attempts, "an empty calendar must not trigger retries")
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL, 3)
	events, stats, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Attempts)
	assert.Len(t, events, 2)
}

func TestFetchExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL, 2)
	_, stats, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 fetch attempts failed")
	assert.Equal(t, 2, stats.Attempts)
}

func TestFetchHonoursContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f, err := NewFetcher(Options{
		URL:        server.URL,
		MaxRetries: 5,
		RetryDelay: time.Minute,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = f.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFetcherRequiresURL(t *testing.T) {
	_, err := NewFetcher(Options{})
	assert.Error(t, err)
}
