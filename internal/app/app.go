package app

import (
	"context"
	"fmt"

	"github.com/phuslu/log"
	"github.com/xhad/finsight/internal/logger"
	"github.com/xhad/finsight/internal/types"
	"github.com/xhad/finsight/pkg/config"
	"github.com/xhad/finsight/pkg/ingest"
	"github.com/xhad/finsight/pkg/llm"
	"github.com/xhad/finsight/pkg/loader"
	"github.com/xhad/finsight/pkg/processor"
	"github.com/xhad/finsight/pkg/retriever"
	"github.com/xhad/finsight/pkg/scraper"
	"github.com/xhad/finsight/pkg/store"
)

// App holds every component built from a Config.
type App struct {
	Config *config.Config
	Logger *log.Logger

	Embedder  types.Embedder
	Store     types.VectorStore
	Retriever *retriever.Retriever
	Pipeline  *ingest.Pipeline

	// Chat is nil when llm.disabled is set.
	Chat *llm.ChatEngine
}

// New wires the application. A nil logger is built from cfg.Logging.
func New(ctx context.Context, cfg *config.Config, lg *log.Logger) (*App, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", errs)
	}
	if lg == nil {
		lg = logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	}

	a := &App{Config: cfg, Logger: lg}

	if err := a.initEmbedder(); err != nil {
		return nil, err
	}
	if err := a.initStore(ctx); err != nil {
		return nil, err
	}
	if err := a.initServices(); err != nil {
		a.Store.Close()
		return nil, err
	}

	lg.Info().Str("embedder", cfg.Embedder.Type).Str("store", cfg.Store.Type).
		Bool("chat", a.Chat != nil).Msg("application initialised")
	return a, nil
}

func (a *App) initEmbedder() error {
	cfg := a.Config.Embedder
	switch cfg.Type {
	case config.EmbedderHash:
		a.Embedder = llm.NewHashEmbedder(cfg.Dimension)
	case config.EmbedderOllama:
		emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			Dimension: cfg.Dimension,
		})
		if err != nil {
			return err
		}
		a.Embedder = emb
	default:
		return fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	cfg := a.Config.Store
	switch cfg.Type {
	case config.StoreMemory:
		a.Store = store.NewMemory(store.MemoryConfig{Logger: a.Logger})
	case config.StorePostgres:
		s, err := store.NewPGVector(ctx, store.PGVectorConfig{
			ConnString: cfg.URL,
			TableName:  cfg.TableName,
			VectorDim:  a.Config.Embedder.Dimension,
			Logger:     a.Logger,
		})
		if err != nil {
			return err
		}
		a.Store = s
	case config.StoreBadger:
		s, err := store.NewBadger(store.BadgerConfig{Path: cfg.Path, Logger: a.Logger})
		if err != nil {
			return err
		}
		a.Store = s
	default:
		return fmt.Errorf("unknown store type %q", cfg.Type)
	}
	return nil
}

func (a *App) initServices() error {
	r, err := retriever.New(retriever.Config{
		Store:    a.Store,
		Embedder: a.Embedder,
		Logger:   a.Logger,
	})
	if err != nil {
		return err
	}
	a.Retriever = r

	lc := a.Config.Loader
	a.Pipeline, err = ingest.New(ingest.Config{
		Loader: loader.Config{
			DataDir:        lc.DataDir,
			TranscriptHost: lc.TranscriptHost,
			NewsHost:       lc.NewsHost,
			Logger:         a.Logger,
			Scraper: scraper.NewWithConfig(scraper.ScraperConfig{
				UserAgent: lc.UserAgent,
				RateLimit: lc.RateLimit,
				Timeout:   lc.Timeout,
				Logger:    a.Logger,
			}),
		},
		Processor: processor.ProcessorConfig{
			Enabled:         a.Config.Processor.ChunkingEnabled(),
			ChunkSize:       a.Config.Processor.ChunkSize,
			ChunkOverlap:    a.Config.Processor.ChunkOverlap,
			MinChunkLength:  a.Config.Processor.MinChunkLength,
			RemoveStopwords: a.Config.Processor.RemoveStopwords,
		},
		Retriever: r,
		Logger:    a.Logger,
	})
	if err != nil {
		return err
	}

	if !a.Config.LLM.Disabled {
		a.Chat, err = llm.NewWithConfig(llm.ChatConfig{
			Model:       a.Config.LLM.Model,
			Temperature: a.Config.LLM.Temperature,
			MaxTokens:   a.Config.LLM.MaxTokens,
			BaseURL:     a.Config.LLM.BaseURL,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
