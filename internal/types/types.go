package types

import (
	"context"

	"github.com/xhad/finsight/internal/models"
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore holds fully formed documents and answers similarity queries
// against their embeddings. Implementations allow a single writer at a time
// and concurrent readers that only ever observe complete documents.
type VectorStore interface {
	// Insert stores doc and returns the stored copy with Seq assigned.
	Insert(ctx context.Context, doc models.Document) (models.Document, error)
	Get(ctx context.Context, id string) (models.Document, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query []float32, limit int, minScore float64) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Loader produces records for a symbol from one source, newest first.
type Loader interface {
	Name() string
	Load(ctx context.Context, q models.LoadQuery) ([]models.Record, error)
}
