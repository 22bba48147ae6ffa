package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
logging:
  level: debug
  format: json

llm:
  base_url: "http://localhost:11434"
  model: "llama3"
  max_tokens: 1000
  temperature: 0.5

embedder:
  type: hash
  dimension: 256

store:
  type: postgres
  url: "postgres://localhost:5432/test"
  table_name: "test_docs"

loader:
  data_dir: /srv/finsight
  timeout: 10s
  rate_limit: 1.5

processor:
  chunking: false
  chunk_size: 500
  chunk_overlap: 100
  remove_stopwords: true

server:
  addr: ":9090"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, EmbedderHash, config.Embedder.Type)
	assert.Equal(t, 256, config.Embedder.Dimension)
	assert.Equal(t, "http://localhost:11434", config.Embedder.BaseURL)
	assert.Equal(t, StorePostgres, config.Store.Type)
	assert.Equal(t, "test_docs", config.Store.TableName)
	assert.Equal(t, "/srv/finsight", config.Loader.DataDir)
	assert.Equal(t, filepath.Join("/srv/finsight", "index"), config.Store.Path)
	assert.Equal(t, 10*time.Second, config.Loader.Timeout)
	assert.Equal(t, 1.5, config.Loader.RateLimit)
	assert.False(t, config.Processor.ChunkingEnabled())
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.True(t, config.Processor.RemoveStopwords)
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestDefaultConfig(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, EmbedderOllama, config.Embedder.Type)
	assert.Equal(t, 768, config.Embedder.Dimension)
	assert.Equal(t, StoreMemory, config.Store.Type)
	assert.True(t, config.Processor.ChunkingEnabled())
	assert.Equal(t, 30*time.Second, config.Loader.Timeout)
	assert.Equal(t, 90*time.Second, config.Server.RequestTimeout)
	assert.Empty(t, config.Validate())

	hash := &Config{Embedder: EmbedderConfig{Type: EmbedderHash}}
	applyDefaults(hash)
	assert.Equal(t, 384, hash.Embedder.Dimension)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "invalid llm",
			mutate: func(c *Config) {
				c.LLM.BaseURL = "invalid-url"
				c.LLM.MaxTokens = 5000
				c.LLM.Temperature = 3.0
			},
			fields: []string{"llm.base_url", "llm.max_tokens", "llm.temperature"},
		},
		{
			name: "disabled llm is not checked",
			mutate: func(c *Config) {
				c.LLM.Disabled = true
				c.LLM.Temperature = 3.0
			},
		},
		{
			name: "postgres needs url",
			mutate: func(c *Config) {
				c.Store.Type = StorePostgres
				c.Store.TableName = "docs; drop"
			},
			fields: []string{"store.url", "store.table_name"},
		},
		{
			name: "unknown types",
			mutate: func(c *Config) {
				c.Store.Type = "redis"
				c.Embedder.Type = "openai"
				c.Logging.Format = "xml"
			},
			fields: []string{"logging.format", "embedder.type", "store.type"},
		},
		{
			name: "bad chunking",
			mutate: func(c *Config) {
				c.Processor.ChunkOverlap = c.Processor.ChunkSize
			},
			fields: []string{"processor.chunk_overlap"},
		},
		{
			name: "bad loader",
			mutate: func(c *Config) {
				c.Loader.DataDir = ""
				c.Loader.RateLimit = -1
			},
			fields: []string{"loader.data_dir", "loader.rate_limit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)

			errors := c.Validate()
			var fields []string
			for _, e := range errors {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("FINSIGHT_DATA_DIR", "/var/lib/finsight")
	t.Setenv("FINSIGHT_ADDR", ":7070")
	t.Setenv("LOG_LEVEL", "warn")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "http://env-ollama:11434", config.Embedder.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Store.URL)
	assert.Equal(t, "/var/lib/finsight", config.Loader.DataDir)
	assert.Equal(t, ":7070", config.Server.Addr)
	assert.Equal(t, "warn", config.Logging.Level)
}
