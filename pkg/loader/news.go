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
	SourceYahooFinance = "Yahoo Finance"
	DefaultNewsHost    = "https://finance.yahoo.com"

	newsItemSelector = ".js-content-viewer"
)

var newsDateLayouts = []string{
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

// NewsLoader scrapes the headline list of a quote news page. Items without a
// readable date are dropped.
type NewsLoader struct {
	host    string
	scraper *scraper.Scraper
	logger  *log.Logger
}

func newNewsLoader(cfg Config) (types.Loader, error) {
	host, err := normaliseHost(cfg.NewsHost, DefaultNewsHost)
	if err != nil {
		return nil, err
	}
	return &NewsLoader{host: host, scraper: cfg.Scraper, logger: cfg.Logger}, nil
}

func (l *NewsLoader) Name() string { return string(KindNews) }

func (l *NewsLoader) Load(ctx context.Context, q models.LoadQuery) ([]models.Record, error) {
	q, err := validateQuery(q, false)
	if err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(q.Symbol)

	pageURL := fmt.Sprintf("%s/quote/%s/news", l.host, url.PathEscape(symbol))
	doc, err := l.scraper.Fetch(ctx, pageURL)
	if err != nil {
		return nil, upstream("fetch news page", err)
	}

	var records []models.Record
	doc.Find(newsItemSelector).Each(func(_ int, item *goquery.Selection) {
		rec, err := l.parseItem(symbol, item)
		if err != nil {
			l.logger.Debug().Err(err).Msg("skipping news item")
			return
		}
		records = append(records, rec)
	})

	if records == nil {
		records = []models.Record{}
	}
	return newestFirst(records, q.Limit), nil
}

func (l *NewsLoader) parseItem(symbol string, item *goquery.Selection) (models.Record, error) {
	title := scraper.CleanText(item.Find("h3").First().Text())
	if title == "" {
		return models.Record{}, fmt.Errorf("news item without title")
	}

	timeSel := item.Find("time").First()
	date, err := parseNewsDate(timeSel.Text())
	if err != nil {
		attr, ok := timeSel.Attr("datetime")
		if !ok {
			return models.Record{}, err
		}
		if date, err = parseNewsDate(attr); err != nil {
			return models.Record{}, err
		}
	}

	var link string
	if href, ok := item.Find("a[href]").First().Attr("href"); ok {
		if abs, err := scraper.ResolveURL(l.host, href); err == nil {
			link = abs
		}
	}

	body := item.Clone()
	body.Find("h3, time").Remove()
	content := scraper.CleanText(body.Text())
	if content == "" {
		content = title
	}

	return models.Record{
		Symbol:  symbol,
		Title:   title,
		Date:    date,
		Content: content,
		Source:  SourceYahooFinance,
		URL:     link,
	}, nil
}

func parseNewsDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range newsDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised news date %q", raw)
}
