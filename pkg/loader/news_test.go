package loader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/finsight/internal/models"
)

func TestNewsLoader(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote/AAPL/news", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `
			<html><body>
				<div class="js-content-viewer">
					<h3>Older headline</h3>
					<a href="https://example.com/older">Link</a>
					<time>Jan 10, 2024</time>
				</div>
				<div class="js-content-viewer">
					<h3>Test News Title</h3>
					<a href="/news/apple-beats">Link</a>
					<p>Apple beat estimates.</p>
					<time datetime="2024-01-15T09:30:00Z">2h ago</time>
				</div>
				<div class="js-content-viewer">
					<h3>Undated</h3>
					<time>yesterday</time>
				</div>
			</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l, err := Get("news", Config{NewsHost: srv.URL, Scraper: testScraper()})
	require.NoError(t, err)

	records, err := l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Test News Title", first.Title)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), first.Date.UTC())
	assert.Equal(t, srv.URL+"/news/apple-beats", first.URL)
	assert.Contains(t, first.Content, "Apple beat estimates.")
	assert.Equal(t, SourceYahooFinance, first.Source)
	assert.Equal(t, "AAPL", first.Symbol)

	assert.Equal(t, "Older headline", records[1].Title)
	assert.Equal(t, "https://example.com/older", records[1].URL)

	limited, err := l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestNewsLoaderUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	l, err := Get("news", Config{NewsHost: srv.URL, Scraper: testScraper()})
	require.NoError(t, err)

	_, err = l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", Limit: 10})
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestNewsLoaderItemWithoutLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="js-content-viewer"><h3>Apple expands buyback</h3><time>Jan 5, 2024</time></div>`)
	}))
	defer srv.Close()

	l, err := Get("news", Config{NewsHost: srv.URL, Scraper: testScraper()})
	require.NoError(t, err)

	records, err := l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].URL)
	assert.Equal(t, "Apple expands buyback", records[0].Content)
}
