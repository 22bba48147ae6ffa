// Package ingest hands loader output to the retriever: load records for a
// symbol, chunk them and index every chunk.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/xhad/finsight/internal/logger"
	"github.com/xhad/finsight/internal/models"
	"github.com/xhad/finsight/pkg/loader"
	"github.com/xhad/finsight/pkg/processor"
	"github.com/xhad/finsight/pkg/retriever"
	"github.com/xhad/finsight/pkg/scraper"
)

type Config struct {
	Loader    loader.Config
	Processor processor.ProcessorConfig
	Retriever *retriever.Retriever
	Logger    *log.Logger
}

type Request struct {
	Kind       string `json:"loader" validate:"required"`
	Symbol     string `json:"symbol" validate:"required"`
	FilingType string `json:"filing_type,omitempty"`
	Limit      int    `json:"limit" validate:"gte=0"`
}

type Report struct {
	Kind        string   `json:"loader"`
	Symbol      string   `json:"symbol"`
	Loaded      int      `json:"loaded"`
	Indexed     int      `json:"indexed"`
	Skipped     int      `json:"skipped"`
	DocumentIDs []string `json:"document_ids"`
}

// Progress is reported after every chunk, indexed or skipped.
type Progress struct {
	Done       int    `json:"done"`
	Total      int    `json:"total"`
	DocumentID string `json:"document_id"`
	Skipped    bool   `json:"skipped,omitempty"`
}

const DefaultLimit = 5

type Pipeline struct {
	lcfg      loader.Config
	processor processor.Processor
	retriever *retriever.Retriever
	logger    *log.Logger
}

func New(config Config) (*Pipeline, error) {
	if config.Retriever == nil {
		return nil, fmt.Errorf("%w: ingest needs a retriever", models.ErrInvalidInput)
	}
	lg := logger.OrDiscard(config.Logger)
	if config.Loader.Logger == nil {
		config.Loader.Logger = lg
	}
	// One scraper for every request keeps the rate limit global.
	if config.Loader.Scraper == nil {
		config.Loader.Scraper = scraper.NewWithConfig(scraper.ScraperConfig{Logger: config.Loader.Logger})
	}

	return &Pipeline{
		lcfg:      config.Loader,
		processor: processor.NewWithConfig(config.Processor),
		retriever: config.Retriever,
		logger:    lg,
	}, nil
}

// Load runs the requested loader without indexing anything.
func (p *Pipeline) Load(ctx context.Context, req Request) ([]models.Record, error) {
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	l, err := loader.Get(req.Kind, p.lcfg)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, models.LoadQuery{
		Symbol:     req.Symbol,
		FilingType: req.FilingType,
		Limit:      req.Limit,
	})
}

// Ingest loads, chunks and indexes. Chunk ids are derived from the record
// identity, so ingesting the same source twice skips what is already stored.
// On failure the partial report is returned with the error.
func (p *Pipeline) Ingest(ctx context.Context, req Request, onProgress func(Progress)) (Report, error) {
	report := Report{
		Kind:        strings.ToLower(strings.TrimSpace(req.Kind)),
		Symbol:      strings.ToUpper(strings.TrimSpace(req.Symbol)),
		DocumentIDs: []string{},
	}

	records, err := p.Load(ctx, req)
	if err != nil {
		return report, err
	}
	report.Loaded = len(records)

	processed := p.processor.Process(records)
	total := 0
	for _, pr := range processed {
		total += len(pr.Chunks)
	}

	p.logger.Info().Str("loader", report.Kind).Str("symbol", report.Symbol).
		Int("records", report.Loaded).Int("chunks", total).Msg("ingesting")

	done := 0
	for _, pr := range processed {
		for i, chunk := range pr.Chunks {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			id := chunkID(report.Kind, pr.Record, i)
			md := pr.Record.Metadata()
			md["chunk_index"] = i
			md["loader"] = report.Kind

			skipped := false
			_, err := p.retriever.AddWithID(ctx, id, chunk, md)
			switch {
			case errors.Is(err, models.ErrAlreadyExists):
				skipped = true
				report.Skipped++
			case err != nil:
				return report, fmt.Errorf("failed to index chunk %d of %q: %w", i, pr.Record.Title, err)
			default:
				report.Indexed++
				report.DocumentIDs = append(report.DocumentIDs, id)
			}

			done++
			if onProgress != nil {
				onProgress(Progress{Done: done, Total: total, DocumentID: id, Skipped: skipped})
			}
		}
	}

	p.logger.Info().Str("loader", report.Kind).Str("symbol", report.Symbol).
		Int("indexed", report.Indexed).Int("skipped", report.Skipped).Msg("ingest complete")
	return report, nil
}

func chunkID(kind string, rec models.Record, chunk int) string {
	origin := rec.URL
	if origin == "" {
		origin = rec.Path
	}
	// Items without a link or path are told apart by title.
	key := strings.Join([]string{
		kind,
		rec.Symbol,
		rec.FilingType,
		origin,
		rec.Title,
		rec.Date.UTC().Format("20060102"),
		strconv.Itoa(chunk),
	}, "|")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
