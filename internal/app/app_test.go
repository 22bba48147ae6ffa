package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/finsight/internal/logger"
	"github.com/xhad/finsight/pkg/config"
	"github.com/xhad/finsight/pkg/llm"
	"github.com/xhad/finsight/pkg/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.Defaults(&config.Config{
		Embedder: config.EmbedderConfig{Type: config.EmbedderHash, Dimension: 32},
		Loader:   config.LoaderConfig{DataDir: t.TempDir()},
		LLM:      config.LLMConfig{Disabled: true},
	})
}

func TestNewMemoryApp(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &llm.HashEmbedder{}, a.Embedder)
	assert.IsType(t, &store.Memory{}, a.Store)
	assert.Nil(t, a.Chat)

	doc, err := a.Retriever.Add(context.Background(), "Apple raised its dividend.", nil)
	require.NoError(t, err)
	assert.Len(t, doc.Embedding, 32)
}

func TestNewBadgerApp(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Type = config.StoreBadger
	cfg.Store.Path = t.TempDir()

	a, err := New(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &store.Badger{}, a.Store)
}

func TestNewWithChat(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Disabled = false

	a, err := New(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Chat)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Type = "redis"

	_, err := New(context.Background(), cfg, logger.Discard())
	assert.ErrorContains(t, err, "store.type")
}
