// Package retriever embeds documents on the way in and answers similarity
// queries over them. Storage is delegated to a types.VectorStore.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/xhad/finsight/internal/logger"
	"github.com/xhad/finsight/internal/models"
	"github.com/xhad/finsight/internal/types"
)

type Config struct {
	Store    types.VectorStore
	Embedder types.Embedder
	Logger   *log.Logger
	// NewID generates document ids for Add. Defaults to random UUIDs.
	NewID func() string
}

type Retriever struct {
	store    types.VectorStore
	embedder types.Embedder
	logger   *log.Logger
	newID    func() string
}

func New(config Config) (*Retriever, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("%w: retriever needs a store", models.ErrInvalidInput)
	}
	if config.Embedder == nil {
		return nil, fmt.Errorf("%w: retriever needs an embedder", models.ErrInvalidInput)
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}

	return &Retriever{
		store:    config.Store,
		embedder: config.Embedder,
		logger:   logger.OrDiscard(config.Logger),
		newID:    config.NewID,
	}, nil
}

// Add embeds content and stores it under a freshly generated id.
func (r *Retriever) Add(ctx context.Context, content string, metadata map[string]any) (models.Document, error) {
	return r.AddWithID(ctx, r.newID(), content, metadata)
}

// AddWithID is Add with a caller-chosen id. A taken id yields
// models.ErrAlreadyExists.
func (r *Retriever) AddWithID(ctx context.Context, id, content string, metadata map[string]any) (models.Document, error) {
	if strings.TrimSpace(id) == "" {
		return models.Document{}, fmt.Errorf("%w: document id is empty", models.ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return models.Document{}, fmt.Errorf("%w: document content is empty", models.ErrInvalidInput)
	}

	vec, err := r.embedder.Embed(ctx, content)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to embed document %s: %w", id, err)
	}

	doc, err := r.store.Insert(ctx, models.Document{
		ID:        id,
		Content:   content,
		Metadata:  metadata,
		Embedding: vec,
	})
	if err != nil {
		return models.Document{}, err
	}

	r.logger.Debug().Str("id", doc.ID).Int("chars", len(content)).Msg("document added")
	return doc, nil
}

func (r *Retriever) Get(ctx context.Context, id string) (models.Document, error) {
	return r.store.Get(ctx, id)
}

func (r *Retriever) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.logger.Debug().Str("id", id).Msg("document deleted")
	return nil
}

// Search embeds query and returns at most limit documents scoring at least
// minScore, best first.
func (r *Retriever) Search(ctx context.Context, query string, limit int, minScore float64) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", models.ErrInvalidInput)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", models.ErrInvalidInput, limit)
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.Search(ctx, vec, limit, minScore)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().Str("query", query).Int("results", len(results)).Msg("search")
	return results, nil
}

func (r *Retriever) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

func (r *Retriever) Close() error {
	return r.store.Close()
}
