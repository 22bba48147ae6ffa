package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Store     StoreConfig     `yaml:"store"`
	Loader    LoaderConfig    `yaml:"loader"`
	Processor ProcessorConfig `yaml:"processor"`
	Server    ServerConfig    `yaml:"server"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// LLMConfig configures the chat model behind /ask.
type LLMConfig struct {
	Disabled    bool    `yaml:"disabled"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type EmbedderConfig struct {
	Type      string `yaml:"type"` // ollama or hash
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

type StoreConfig struct {
	Type      string `yaml:"type"` // memory, postgres or badger
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	Path      string `yaml:"path"`
}

type LoaderConfig struct {
	DataDir        string        `yaml:"data_dir"`
	TranscriptHost string        `yaml:"transcript_host"`
	NewsHost       string        `yaml:"news_host"`
	UserAgent      string        `yaml:"user_agent"`
	Timeout        time.Duration `yaml:"timeout"`
	RateLimit      float64       `yaml:"rate_limit"`
}

type ProcessorConfig struct {
	Chunking        *bool `yaml:"chunking"`
	ChunkSize       int   `yaml:"chunk_size"`
	ChunkOverlap    int   `yaml:"chunk_overlap"`
	MinChunkLength  int   `yaml:"min_chunk_length"`
	RemoveStopwords bool  `yaml:"remove_stopwords"`
}

// ChunkingEnabled defaults to true when the key is absent.
func (p ProcessorConfig) ChunkingEnabled() bool {
	return p.Chunking == nil || *p.Chunking
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

const (
	EmbedderOllama = "ollama"
	EmbedderHash   = "hash"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBadger   = "badger"
)

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/finsight/config.yaml"),
			"/etc/finsight/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

// Defaults fills the unset fields of config in place and returns it.
func Defaults(config *Config) *Config {
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "console"
	}

	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedder.Type == "" {
		config.Embedder.Type = EmbedderOllama
	}
	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = config.LLM.BaseURL
	}
	if config.Embedder.Model == "" {
		config.Embedder.Model = "nomic-embed-text:latest"
	}
	if config.Embedder.Dimension == 0 {
		if config.Embedder.Type == EmbedderHash {
			config.Embedder.Dimension = 384
		} else {
			config.Embedder.Dimension = 768
		}
	}

	if config.Loader.DataDir == "" {
		config.Loader.DataDir = "data"
	}
	if config.Loader.TranscriptHost == "" {
		config.Loader.TranscriptHost = "https://seekingalpha.com"
	}
	if config.Loader.NewsHost == "" {
		config.Loader.NewsHost = "https://finance.yahoo.com"
	}
	if config.Loader.Timeout == 0 {
		config.Loader.Timeout = 30 * time.Second
	}
	if config.Loader.RateLimit == 0 {
		config.Loader.RateLimit = 2.0
	}

	if config.Store.Type == "" {
		config.Store.Type = StoreMemory
	}
	if config.Store.TableName == "" {
		config.Store.TableName = "documents"
	}
	if config.Store.Path == "" {
		config.Store.Path = filepath.Join(config.Loader.DataDir, "index")
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}
	if config.Processor.MinChunkLength == 0 {
		config.Processor.MinChunkLength = 100
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 15 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 2 * time.Minute
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 90 * time.Second
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embedder.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
	if dataDir := os.Getenv("FINSIGHT_DATA_DIR"); dataDir != "" {
		config.Loader.DataDir = dataDir
	}
	if addr := os.Getenv("FINSIGHT_ADDR"); addr != "" {
		config.Server.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
