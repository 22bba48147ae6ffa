package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/phuslu/log"
	"github.com/timshannon/badgerhold/v4"
	"github.com/xhad/finsight/internal/logger"
	"github.com/xhad/finsight/internal/models"
)

type BadgerConfig struct {
	Path   string
	Logger *log.Logger
}

// storedDocument is the on-disk form of a Document. Metadata is kept as JSON
// because gob cannot encode arbitrary interface values.
type storedDocument struct {
	ID        string
	Content   string
	Metadata  []byte
	Embedding []float32
	Seq       uint64
}

// Badger is an embedded, durable store on badgerhold. Similarity search is
// an exhaustive scan.
type Badger struct {
	mu     sync.RWMutex
	store  *badgerhold.Store
	dim    int
	seq    uint64
	logger *log.Logger
}

func NewBadger(config BadgerConfig) (*Badger, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("%w: badger path is required", models.ErrInvalidInput)
	}
	lg := logger.OrDiscard(config.Logger)

	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	b := &Badger{store: store, logger: lg}

	// Recover the sequence counter and dimension from what is already on disk.
	var existing []storedDocument
	if err := store.Find(&existing, nil); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	for _, sd := range existing {
		if sd.Seq > b.seq {
			b.seq = sd.Seq
		}
		if b.dim == 0 {
			b.dim = len(sd.Embedding)
		}
	}

	lg.Debug().Str("path", config.Path).Int("documents", len(existing)).Msg("badger store opened")
	return b, nil
}

func (b *Badger) Insert(_ context.Context, doc models.Document) (models.Document, error) {
	if err := validateDocument(doc); err != nil {
		return models.Document{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dim != 0 && len(doc.Embedding) != b.dim {
		err := dimensionError(b.dim, len(doc.Embedding))
		b.logger.Error().Str("id", doc.ID).Err(err).Msg("rejected document")
		return models.Document{}, err
	}

	stored := doc.Clone()
	stored.Seq = b.seq + 1

	sd, err := toStored(stored)
	if err != nil {
		return models.Document{}, err
	}
	if err := b.store.Insert(stored.ID, sd); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return models.Document{}, fmt.Errorf("%w: document %s", models.ErrAlreadyExists, doc.ID)
		}
		return models.Document{}, fmt.Errorf("failed to save document: %w", err)
	}

	b.seq = stored.Seq
	if b.dim == 0 {
		b.dim = len(stored.Embedding)
	}
	// Hand back what Get will return: metadata as decoded from JSON.
	return fromStored(sd)
}

func (b *Badger) Get(_ context.Context, id string) (models.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var sd storedDocument
	if err := b.store.Get(id, &sd); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return models.Document{}, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
		}
		return models.Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return fromStored(sd)
}

func (b *Badger) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.Delete(id, &storedDocument{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (b *Badger) Search(_ context.Context, query []float32, limit int, minScore float64) ([]models.SearchResult, error) {
	if err := validateSearch(query, limit); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.dim != 0 && len(query) != b.dim {
		err := dimensionError(b.dim, len(query))
		b.logger.Error().Err(err).Msg("rejected search")
		return nil, err
	}

	var all []storedDocument
	if err := b.store.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	docs := make([]models.Document, 0, len(all))
	for _, sd := range all {
		doc, err := fromStored(sd)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return rank(docs, query, limit, minScore), nil
}

func (b *Badger) Count(_ context.Context) (int, error) {
	count, err := b.store.Count(&storedDocument{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

func (b *Badger) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

func toStored(doc models.Document) (storedDocument, error) {
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return storedDocument{}, fmt.Errorf("%w: metadata is not JSON encodable: %v", models.ErrInvalidInput, err)
	}
	return storedDocument{
		ID:        doc.ID,
		Content:   doc.Content,
		Metadata:  meta,
		Embedding: doc.Embedding,
		Seq:       doc.Seq,
	}, nil
}

func fromStored(sd storedDocument) (models.Document, error) {
	doc := models.Document{
		ID:        sd.ID,
		Content:   sd.Content,
		Embedding: sd.Embedding,
		Seq:       sd.Seq,
	}
	if len(sd.Metadata) > 0 {
		if err := json.Unmarshal(sd.Metadata, &doc.Metadata); err != nil {
			return models.Document{}, fmt.Errorf("failed to decode metadata for %s: %w", sd.ID, err)
		}
	}
	return doc.Clone(), nil
}
