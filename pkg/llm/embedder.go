package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/finsight/internal/models"
)

// EmbedderConfig represents the configuration for an Ollama embedder.
type EmbedderConfig struct {
	Model   string
	BaseURL string // Ollama server URL
	// Dimension, when set, is checked against every vector the model returns.
	Dimension int
}

// OllamaEmbedder computes embeddings with an Ollama-served model.
type OllamaEmbedder struct {
	Config   EmbedderConfig
	embedder embeddings.Embedder
}

func NewEmbedderWithConfig(config EmbedderConfig) (*OllamaEmbedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest" // Default Ollama model
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}

	client, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return newEmbedder(config, client)
}

func newEmbedder(config EmbedderConfig, client embeddings.EmbedderClient) (*OllamaEmbedder, error) {
	emb, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return &OllamaEmbedder{Config: config, embedder: emb}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: cannot embed empty text", models.ErrInvalidInput)
	}

	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("model %s returned an empty embedding", e.Config.Model)
	}
	if e.Config.Dimension > 0 && len(vec) != e.Config.Dimension {
		return nil, fmt.Errorf("%w: model %s returned %d values, want %d",
			models.ErrDimensionMismatch, e.Config.Model, len(vec), e.Config.Dimension)
	}
	return vec, nil
}
