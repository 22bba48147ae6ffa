package loader

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/phuslu/log"
	"github.com/xhad/finsight/internal/models"
	"github.com/xhad/finsight/internal/types"
	"github.com/xhad/finsight/pkg/scraper"
)

const (
	SourceSeekingAlpha    = "Seeking Alpha"
	DefaultTranscriptHost = "https://seekingalpha.com"

	transcriptLinkMarker = "/earnings/transcript/"
	transcriptSelector   = "#transcript-content, transcript-content"
)

// Month abbreviations without a trailing period (May) fall through to the
// later layouts.
var transcriptDateLayouts = []string{
	"Jan. 2, 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// TranscriptLoader scrapes earnings call transcripts. A transcript that fails
// to fetch or parse is dropped; only the listing page failing is an error.
type TranscriptLoader struct {
	host    string
	scraper *scraper.Scraper
	logger  *log.Logger
}

func newTranscriptLoader(cfg Config) (types.Loader, error) {
	host, err := normaliseHost(cfg.TranscriptHost, DefaultTranscriptHost)
	if err != nil {
		return nil, err
	}
	return &TranscriptLoader{host: host, scraper: cfg.Scraper, logger: cfg.Logger}, nil
}

func (l *TranscriptLoader) Name() string { return string(KindTranscript) }

type transcriptLink struct {
	url   string
	title string
}

func (l *TranscriptLoader) Load(ctx context.Context, q models.LoadQuery) ([]models.Record, error) {
	q, err := validateQuery(q, false)
	if err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(q.Symbol)

	listingURL := fmt.Sprintf("%s/symbol/%s/earnings/transcripts", l.host, url.PathEscape(symbol))
	listing, err := l.scraper.Fetch(ctx, listingURL)
	if err != nil {
		return nil, upstream("fetch transcript listing", err)
	}

	links := l.discoverLinks(listing)
	if len(links) > q.Limit {
		links = links[:q.Limit]
	}

	records := make([]models.Record, 0, len(links))
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return nil, upstream("load transcripts", err)
		}
		rec, err := l.loadOne(ctx, symbol, link)
		if err != nil {
			l.logger.Warn().Str("url", link.url).Err(err).Msg("skipping transcript")
			continue
		}
		records = append(records, rec)
	}

	l.logger.Info().Str("symbol", symbol).Int("links", len(links)).Int("records", len(records)).Msg("loaded transcripts")
	return newestFirst(records, q.Limit), nil
}

func (l *TranscriptLoader) discoverLinks(doc *goquery.Document) []transcriptLink {
	var links []transcriptLink
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, transcriptLinkMarker) {
			return
		}
		abs, err := scraper.ResolveURL(l.host, href)
		if err != nil || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, transcriptLink{url: abs, title: strings.TrimSpace(sel.Text())})
	})
	return links
}

func (l *TranscriptLoader) loadOne(ctx context.Context, symbol string, link transcriptLink) (models.Record, error) {
	date, err := parseTitleDate(link.title)
	if err != nil {
		return models.Record{}, err
	}

	doc, err := l.scraper.Fetch(ctx, link.url)
	if err != nil {
		return models.Record{}, err
	}

	container := doc.Find(transcriptSelector).First()
	if container.Length() == 0 {
		return models.Record{}, fmt.Errorf("no transcript content on page")
	}

	return models.Record{
		Symbol:  symbol,
		Title:   link.title,
		Date:    date,
		Content: strings.TrimSpace(container.Text()),
		Source:  SourceSeekingAlpha,
		URL:     link.url,
	}, nil
}

// parseTitleDate reads the last parenthesised segment of a title such as
// "Q4 2023 Earnings Call (Jan. 15, 2024)".
func parseTitleDate(title string) (time.Time, error) {
	open := strings.LastIndex(title, "(")
	if open < 0 {
		return time.Time{}, fmt.Errorf("no date in title %q", title)
	}
	raw := title[open+1:]
	if end := strings.Index(raw, ")"); end >= 0 {
		raw = raw[:end]
	}
	raw = strings.TrimSpace(raw)

	for _, layout := range transcriptDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q in title", raw)
}

func normaliseHost(raw, fallback string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid host %q", models.ErrInvalidInput, raw)
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}
