package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/phuslu/log"
	"github.com/xhad/finsight/internal/logger"
	"github.com/xhad/finsight/internal/models"
)

type MemoryConfig struct {
	Logger *log.Logger
}

// Memory is a process-local store. Nothing survives a restart.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string]models.Document
	dim    int
	seq    uint64
	logger *log.Logger
}

func NewMemory(config MemoryConfig) *Memory {
	return &Memory{
		docs:   make(map[string]models.Document),
		logger: logger.OrDiscard(config.Logger),
	}
}

func (m *Memory) Insert(_ context.Context, doc models.Document) (models.Document, error) {
	if err := validateDocument(doc); err != nil {
		return models.Document{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[doc.ID]; ok {
		return models.Document{}, fmt.Errorf("%w: document %s", models.ErrAlreadyExists, doc.ID)
	}
	if m.dim != 0 && len(doc.Embedding) != m.dim {
		err := dimensionError(m.dim, len(doc.Embedding))
		m.logger.Error().Str("id", doc.ID).Err(err).Msg("rejected document")
		return models.Document{}, err
	}
	if m.dim == 0 {
		m.dim = len(doc.Embedding)
	}

	m.seq++
	stored := doc.Clone()
	stored.Seq = m.seq
	m.docs[doc.ID] = stored

	return stored.Clone(), nil
}

func (m *Memory) Get(_ context.Context, id string) (models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return models.Document{}, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	return doc.Clone(), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	delete(m.docs, id)
	return nil
}

func (m *Memory) Search(_ context.Context, query []float32, limit int, minScore float64) ([]models.SearchResult, error) {
	if err := validateSearch(query, limit); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dim != 0 && len(query) != m.dim {
		err := dimensionError(m.dim, len(query))
		m.logger.Error().Err(err).Msg("rejected search")
		return nil, err
	}

	docs := make([]models.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	return rank(docs, query, limit, minScore), nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

func (m *Memory) Close() error { return nil }
