// Package loader turns a ticker symbol into source records from SEC filings
// on disk, earnings call transcripts and news pages.
//
// Loaders return records newest first, never more than the requested limit.
// A source that cannot be reached yields an error wrapping
// models.ErrUpstreamUnavailable; a source with nothing to offer yields an
// empty slice and a nil error. LoadOrEmpty folds the two together for callers
// that only care about "documents or not".
package loader

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/phuslu/log"
	"github.com/xhad/finsight/internal/logger"
	"github.com/xhad/finsight/internal/models"
	"github.com/xhad/finsight/internal/types"
	"github.com/xhad/finsight/pkg/scraper"
)

type Kind string

const (
	KindSEC        Kind = "sec"
	KindTranscript Kind = "transcript"
	KindNews       Kind = "news"
)

const (
	FilingAnnual    = "10-K"
	FilingQuarterly = "10-Q"
	FilingCurrent   = "8-K"
)

var filingTypes = map[string]bool{
	FilingAnnual:    true,
	FilingQuarterly: true,
	FilingCurrent:   true,
}

// Config is shared by every loader; each one reads the fields it needs.
type Config struct {
	DataDir        string
	TranscriptHost string
	NewsHost       string
	Scraper        *scraper.Scraper
	Logger         *log.Logger
}

type constructor func(Config) (types.Loader, error)

var registry = map[Kind]constructor{
	KindSEC:        newSECLoader,
	KindTranscript: newTranscriptLoader,
	KindNews:       newNewsLoader,
}

// Kinds lists the registered loader keys in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Get resolves a loader by key. Unknown keys fail before any I/O.
func Get(kind string, cfg Config) (types.Loader, error) {
	ctor, ok := registry[Kind(strings.ToLower(strings.TrimSpace(kind)))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown loader type %q (want one of %v)", models.ErrInvalidInput, kind, Kinds())
	}
	if cfg.Scraper == nil {
		cfg.Scraper = scraper.NewWithConfig(scraper.ScraperConfig{Logger: cfg.Logger})
	}
	cfg.Logger = logger.OrDiscard(cfg.Logger)
	return ctor(cfg)
}

// IsFilingType reports whether ft is a supported SEC form.
func IsFilingType(ft string) bool {
	return filingTypes[ft]
}

// LoadOrEmpty runs l and logs any failure, returning an empty slice instead.
func LoadOrEmpty(ctx context.Context, l types.Loader, q models.LoadQuery, lg *log.Logger) []models.Record {
	records, err := l.Load(ctx, q)
	if err != nil {
		logger.OrDiscard(lg).Error().Err(err).Str("loader", l.Name()).Str("symbol", q.Symbol).Msg("load failed")
		return []models.Record{}
	}
	return records
}

func validateQuery(q models.LoadQuery, needFilingType bool) (models.LoadQuery, error) {
	q.Symbol = strings.TrimSpace(q.Symbol)
	if q.Symbol == "" {
		return q, fmt.Errorf("%w: symbol is required", models.ErrInvalidInput)
	}
	if q.Limit <= 0 {
		return q, fmt.Errorf("%w: limit must be positive, got %d", models.ErrInvalidInput, q.Limit)
	}
	if needFilingType {
		if q.FilingType == "" {
			q.FilingType = FilingAnnual
		}
		if !IsFilingType(q.FilingType) {
			return q, fmt.Errorf("%w: unsupported filing type %q", models.ErrInvalidInput, q.FilingType)
		}
	}
	return q, nil
}

// newestFirst orders by date descending, keeping discovery order for ties,
// and truncates to limit.
func newestFirst(records []models.Record, limit int) []models.Record {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

func upstream(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrUpstreamUnavailable, what, err)
}
