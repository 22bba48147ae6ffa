package llm

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/finsight/internal/models"
)

type fakeEmbedderClient struct {
	vec   []float32
	err   error
	calls [][]string
}

func (f *fakeEmbedderClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func TestEmbedderEmbed(t *testing.T) {
	client := &fakeEmbedderClient{vec: []float32{0.1, 0.2, 0.3}}
	emb, err := newEmbedder(EmbedderConfig{Model: "fake", Dimension: 3}, client)
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "revenue\nguidance")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	require.Len(t, client.calls, 1)
	assert.Equal(t, []string{"revenue guidance"}, client.calls[0])
}

func TestEmbedderDimensionMismatch(t *testing.T) {
	client := &fakeEmbedderClient{vec: []float32{0.1, 0.2}}
	emb, err := newEmbedder(EmbedderConfig{Model: "fake", Dimension: 3}, client)
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
}

func TestEmbedderErrors(t *testing.T) {
	client := &fakeEmbedderClient{err: errors.New("connection refused")}
	emb, err := newEmbedder(EmbedderConfig{Model: "fake"}, client)
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "text")
	assert.ErrorContains(t, err, "connection refused")

	_, err = emb.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestOllamaEmbedding(t *testing.T) {
	baseURL := os.Getenv("FINSIGHT_TEST_OLLAMA_URL")
	if baseURL == "" {
		t.Skip("FINSIGHT_TEST_OLLAMA_URL not set")
	}

	emb, err := NewEmbedderWithConfig(EmbedderConfig{BaseURL: baseURL, Dimension: 768})
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "Apple reported record services revenue.")
	require.NoError(t, err)
	assert.Len(t, vec, 768)
}

func TestHashEmbedder(t *testing.T) {
	h := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := h.Embed(ctx, "Revenue grew 12% year over year")
	require.NoError(t, err)
	b, err := h.Embed(ctx, "revenue GREW 12% year over year")
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	zero, err := h.Embed(ctx, "   !!! ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 64), zero)

	assert.Equal(t, DefaultHashDimension, NewHashEmbedder(0).Dimension())
}
