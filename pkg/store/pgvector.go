package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/phuslu/log"
	"github.com/xhad/finsight/internal/logger"
	"github.com/xhad/finsight/internal/models"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type PGVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	Logger     *log.Logger
}

// PGVector keeps documents in a Postgres table with a pgvector column.
type PGVector struct {
	config PGVectorConfig
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPGVector(ctx context.Context, config PGVectorConfig) (*PGVector, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, fmt.Errorf("%w: invalid table name %q", models.ErrInvalidInput, config.TableName)
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PGVector{
		config: config,
		pool:   pool,
		logger: logger.OrDiscard(config.Logger),
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PGVector) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING hnsw (embedding vector_cosine_ops)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	vs.logger.Debug().Str("table", vs.config.TableName).Int("dim", vs.config.VectorDim).Msg("pgvector store ready")
	return nil
}

func (vs *PGVector) Insert(ctx context.Context, doc models.Document) (models.Document, error) {
	if err := validateDocument(doc); err != nil {
		return models.Document{}, err
	}
	if len(doc.Embedding) != vs.config.VectorDim {
		err := dimensionError(vs.config.VectorDim, len(doc.Embedding))
		vs.logger.Error().Str("id", doc.ID).Err(err).Msg("rejected document")
		return models.Document{}, err
	}

	stored := doc.Clone()
	stored.Content = sanitizeUTF8(stored.Content)
	md, err := jsonMetadata(stored.Metadata)
	if err != nil {
		return models.Document{}, err
	}
	stored.Metadata = md

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
		RETURNING seq`,
		vs.config.TableName)

	var seq int64
	err = vs.pool.QueryRow(ctx, stmt,
		stored.ID,
		stored.Content,
		stored.Metadata,
		pgvector.NewVector(stored.Embedding),
	).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, fmt.Errorf("%w: document %s", models.ErrAlreadyExists, doc.ID)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to insert document: %w", err)
	}

	stored.Seq = uint64(seq)
	return stored, nil
}

func (vs *PGVector) Get(ctx context.Context, id string) (models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata, embedding, seq
		FROM %s
		WHERE id = $1`,
		vs.config.TableName)

	doc, err := scanDocument(vs.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (vs *PGVector) Delete(ctx context.Context, id string) error {
	tag, err := vs.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", vs.config.TableName), id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	return nil
}

func (vs *PGVector) Search(ctx context.Context, queryEmbedding []float32, limit int, minScore float64) ([]models.SearchResult, error) {
	if err := validateSearch(queryEmbedding, limit); err != nil {
		return nil, err
	}
	if len(queryEmbedding) != vs.config.VectorDim {
		err := dimensionError(vs.config.VectorDim, len(queryEmbedding))
		vs.logger.Error().Err(err).Msg("rejected search")
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, content, metadata, embedding, seq, score
		FROM (
			SELECT id, content, metadata, embedding, seq,
				GREATEST(-1, LEAST(1, COALESCE(NULLIF(1 - (embedding <=> $1), 'NaN'), 0))) AS score
			FROM %s
		) scored
		WHERE score >= $2
		ORDER BY score DESC, seq ASC
		LIMIT $3`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(queryEmbedding), minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	results := make([]models.SearchResult, 0, limit)
	for rows.Next() {
		var (
			doc   models.Document
			vec   pgvector.Vector
			seq   int64
			score float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Metadata, &vec, &seq, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		doc.Embedding = vec.Slice()
		doc.Seq = uint64(seq)
		results = append(results, models.SearchResult{Document: doc.Clone(), Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return results, nil
}

func (vs *PGVector) Count(ctx context.Context) (int, error) {
	var n int
	err := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

func (vs *PGVector) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}

func scanDocument(row pgx.Row) (models.Document, error) {
	var (
		doc models.Document
		vec pgvector.Vector
		seq int64
	)
	if err := row.Scan(&doc.ID, &doc.Content, &doc.Metadata, &vec, &seq); err != nil {
		return models.Document{}, err
	}
	doc.Embedding = vec.Slice()
	doc.Seq = uint64(seq)
	return doc.Clone(), nil
}

// Postgres rejects invalid UTF-8 in TEXT columns; scraped pages sometimes
// carry stray bytes.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}

// jsonMetadata returns md as it reads back from the JSONB column, so Insert
// and Get agree on value types (numbers decode as float64).
func jsonMetadata(md map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata is not JSON encodable: %v", models.ErrInvalidInput, err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return out, nil
}
