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

func transcriptServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/symbol/AAPL/earnings/transcripts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `
			<html><body>
				<a href="/earnings/transcript/q3">Q3 2023 Earnings Call (Oct. 26, 2023)</a>
				<a href="/earnings/transcript/q4">Q4 2023 Earnings Call (Jan. 15, 2024)</a>
				<a href="/earnings/transcript/q4">Q4 2023 Earnings Call (Jan. 15, 2024)</a>
				<a href="/earnings/transcript/broken">Q2 2023 Earnings Call (Jul. 27, 2023)</a>
				<a href="/earnings/transcript/nodate">Investor Day</a>
				<a href="/about">About</a>
			</body></html>`)
	})
	mux.HandleFunc("/earnings/transcript/q3", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="transcript-content"> Q3 remarks </div></body></html>`)
	})
	mux.HandleFunc("/earnings/transcript/q4", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="transcript-content">Q4 remarks</div></body></html>`)
	})
	mux.HandleFunc("/earnings/transcript/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	})
	mux.HandleFunc("/earnings/transcript/nodate", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="transcript-content">no date</div></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTranscriptLoader(t *testing.T) {
	srv := transcriptServer(t)
	l, err := Get("transcript", Config{TranscriptHost: srv.URL, Scraper: testScraper()})
	require.NoError(t, err)

	records, err := l.Load(context.Background(), models.LoadQuery{Symbol: "aapl", Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Q4 remarks", records[0].Content)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, "Q4 2023 Earnings Call (Jan. 15, 2024)", records[0].Title)
	assert.Equal(t, srv.URL+"/earnings/transcript/q4", records[0].URL)
	assert.Equal(t, SourceSeekingAlpha, records[0].Source)
	assert.Equal(t, "AAPL", records[0].Symbol)

	assert.Equal(t, "Q3 remarks", records[1].Content)
}

func TestTranscriptLoaderLimitCapsInspectedLinks(t *testing.T) {
	srv := transcriptServer(t)
	l, err := Get("transcript", Config{TranscriptHost: srv.URL, Scraper: testScraper()})
	require.NoError(t, err)

	records, err := l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", Limit: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Q3 remarks", records[0].Content)
}

func TestTranscriptLoaderListingFailureIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	l, err := Get("transcript", Config{TranscriptHost: srv.URL, Scraper: testScraper()})
	require.NoError(t, err)

	records, err := l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", Limit: 5})
	assert.Nil(t, records)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)

	assert.Empty(t, LoadOrEmpty(context.Background(), l, models.LoadQuery{Symbol: "AAPL", Limit: 5}, nil))
}

func TestParseTitleDate(t *testing.T) {
	tests := []struct {
		title   string
		want    time.Time
		wantErr bool
	}{
		{"Q4 2023 Earnings Call (Jan. 15, 2024)", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"Q1 2024 Earnings Call (May 2, 2024)", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), false},
		{"Call (FY24) (September 5, 2024)", time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC), false},
		{"Investor Day", time.Time{}, true},
		{"Call (soon)", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, err := parseTitleDate(tt.title)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormaliseHost(t *testing.T) {
	h, err := normaliseHost("", DefaultTranscriptHost)
	require.NoError(t, err)
	assert.Equal(t, "https://seekingalpha.com", h)

	h, err = normaliseHost("example.com/", DefaultTranscriptHost)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", h)

	_, err = normaliseHost("http://", DefaultTranscriptHost)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
