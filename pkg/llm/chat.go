package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/finsight/internal/models"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	SystemTemplate  string
	ContextTemplate string
	BaseURL         string // Ollama server URL
}

// ChatEngine answers questions over retrieved filings, transcripts and news.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine backed by an Ollama model.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := applyChatDefaults(config)
	if err != nil {
		return nil, err
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{config: config, llm: llm}, nil
}

// NewWithModel creates a ChatEngine around an already constructed model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model is required", models.ErrInvalidInput)
	}
	config, err := applyChatDefaults(config)
	if err != nil {
		return nil, err
	}
	return &ChatEngine{config: config, llm: model}, nil
}

func applyChatDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature <= 0 || config.Temperature > 1 {
		return config, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a financial research assistant. Answer questions using only the " +
			"SEC filings, earnings call transcripts and news excerpts provided. Say so when the context " +
			"does not contain the answer."
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = "\nRelevant documents:\n%s\n\nQuestion: %s"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	return config, nil
}

// Chat generates an answer to query grounded in the search results.
func (ce *ChatEngine) Chat(ctx context.Context, query string, results []models.SearchResult) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: query is empty", models.ErrInvalidInput)
	}

	resp, err := ce.llm.GenerateContent(ctx, ce.messages(query, results),
		llms.WithMaxTokens(ce.config.MaxTokens),
		llms.WithTemperature(ce.config.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat error: no response from LLM")
	}

	return resp.Choices[0].Content, nil
}

// ChatStream is Chat with each generated chunk passed to onChunk as it
// arrives. The full answer is returned once generation finishes.
func (ce *ChatEngine) ChatStream(ctx context.Context, query string, results []models.SearchResult, onChunk func(string) error) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: query is empty", models.ErrInvalidInput)
	}

	var answer strings.Builder
	resp, err := ce.llm.GenerateContent(ctx, ce.messages(query, results),
		llms.WithMaxTokens(ce.config.MaxTokens),
		llms.WithTemperature(ce.config.Temperature),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			answer.Write(chunk)
			if onChunk == nil {
				return nil
			}
			return onChunk(string(chunk))
		}),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}

	// Some backends ignore the streaming option and only return the result.
	if answer.Len() == 0 && resp != nil && len(resp.Choices) > 0 {
		return resp.Choices[0].Content, nil
	}
	return answer.String(), nil
}

func (ce *ChatEngine) messages(query string, results []models.SearchResult) []llms.MessageContent {
	var contextBuilder strings.Builder
	for _, r := range results {
		contextBuilder.WriteString(fmt.Sprintf("Source: %s\n%s\n\n", sourceOf(r.Document), r.Document.Content))
	}

	return []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, fmt.Sprintf(ce.config.ContextTemplate, contextBuilder.String(), query)),
	}
}

// FormatSources formats the distinct sources of results for citation.
func FormatSources(results []models.SearchResult) string {
	var sources []string
	seen := make(map[string]bool)

	for _, r := range results {
		src := sourceOf(r.Document)
		if !seen[src] {
			sources = append(sources, src)
			seen[src] = true
		}
	}

	if len(sources) == 0 {
		return ""
	}

	return fmt.Sprintf("\nSources:\n%s", strings.Join(sources, "\n"))
}

func sourceOf(doc models.Document) string {
	for _, key := range []string{"url", "path", "title"} {
		if v, ok := doc.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return doc.ID
}
