package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	add := func(field, msg string) {
		errors = append(errors, ValidationError{Field: field, Message: msg})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		add("logging.format", "format must be console or json")
	}

	// Validate LLM config
	if !c.LLM.Disabled {
		if !validHTTPURL(c.LLM.BaseURL) {
			add("llm.base_url", "Ollama base URL is required")
		}
		if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
			add("llm.max_tokens", "max_tokens must be between 1 and 4096")
		}
		if c.LLM.Temperature <= 0 || c.LLM.Temperature > 1 {
			add("llm.temperature", "temperature must be between 0 and 1")
		}
	}

	switch c.Embedder.Type {
	case EmbedderOllama:
		if !validHTTPURL(c.Embedder.BaseURL) {
			add("embedder.base_url", "invalid Ollama base URL")
		}
	case EmbedderHash:
	default:
		add("embedder.type", fmt.Sprintf("unknown embedder %q (want ollama or hash)", c.Embedder.Type))
	}
	if c.Embedder.Dimension < 1 {
		add("embedder.dimension", "dimension must be positive")
	}

	switch c.Store.Type {
	case StoreMemory:
	case StorePostgres:
		if u, err := url.Parse(c.Store.URL); c.Store.URL == "" || err != nil || u.Scheme == "" {
			add("store.url", "invalid database URL")
		}
		if !tableNamePattern.MatchString(c.Store.TableName) {
			add("store.table_name", fmt.Sprintf("invalid table name %q", c.Store.TableName))
		}
	case StoreBadger:
		if c.Store.Path == "" {
			add("store.path", "path is required for the badger store")
		}
	default:
		add("store.type", fmt.Sprintf("unknown store %q (want memory, postgres or badger)", c.Store.Type))
	}

	if c.Loader.DataDir == "" {
		add("loader.data_dir", "data_dir is required")
	}
	if c.Loader.RateLimit <= 0 {
		add("loader.rate_limit", "rate_limit must be positive")
	}
	if c.Loader.Timeout <= 0 {
		add("loader.timeout", "timeout must be positive")
	}

	// Validate Processor config
	if c.Processor.ChunkSize < 1 {
		add("processor.chunk_size", "chunk_size must be positive")
	}
	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		add("processor.chunk_overlap", "chunk_overlap must be non-negative and less than chunk_size")
	}

	if c.Server.Addr == "" {
		add("server.addr", "addr is required")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.RequestTimeout <= 0 {
		add("server.timeouts", "timeouts must be positive")
	}

	return errors
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
