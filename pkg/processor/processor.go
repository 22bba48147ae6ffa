package processor

import (
	"strings"
	"unicode/utf8"

	"github.com/xhad/finsight/internal/models"
)

type ProcessorConfig struct {
	// Enabled turns on sentence chunking. When false every record is kept
	// whole as a single chunk.
	Enabled         bool
	ChunkSize       int
	ChunkOverlap    int
	MinChunkLength  int
	RemoveStopwords bool
	CustomStopwords []string
}

type Processor struct {
	config    ProcessorConfig
	stopwords map[string]bool
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}
	if config.MinChunkLength == 0 {
		config.MinChunkLength = 100
	}

	stopwords := make(map[string]bool)
	for _, w := range getStopwords() {
		stopwords[w] = true
	}
	for _, w := range config.CustomStopwords {
		stopwords[strings.ToLower(w)] = true
	}

	return Processor{
		config:    config,
		stopwords: stopwords,
	}
}

// Process splits each record into chunks. A record with content always
// yields at least one chunk; empty records yield none and are dropped.
func (p *Processor) Process(records []models.Record) []models.ProcessedRecord {
	processed := make([]models.ProcessedRecord, 0, len(records))

	for _, rec := range records {
		clean := p.cleanText(rec.Content)
		if clean == "" {
			continue
		}

		var chunks []string
		if p.config.Enabled {
			chunks = p.splitIntoChunks(clean)
		}
		if len(chunks) == 0 {
			chunks = []string{clean}
		}

		processed = append(processed, models.ProcessedRecord{
			Record: rec,
			Chunks: chunks,
		})
	}

	return processed
}

func (p *Processor) cleanText(text string) string {
	text = strings.Join(strings.Fields(text), " ")

	if p.config.RemoveStopwords {
		text = p.removeStopwords(text)
	}

	return strings.TrimSpace(text)
}

func (p *Processor) splitIntoChunks(text string) []string {
	var chunks []string

	sentences := p.splitIntoSentences(text)

	currentChunk := strings.Builder{}

	for _, sentence := range sentences {
		// Chunks below the minimum length keep absorbing sentences.
		if currentChunk.Len() >= p.config.MinChunkLength && currentChunk.Len()+len(sentence) > p.config.ChunkSize {
			chunks = append(chunks, strings.TrimSpace(currentChunk.String()))

			// Carry the tail of the previous chunk into the next one.
			tail := overlapTail(currentChunk.String(), p.config.ChunkOverlap)
			currentChunk.Reset()
			currentChunk.WriteString(tail)
		}

		currentChunk.WriteString(sentence)
		currentChunk.WriteString(" ")
	}

	if last := strings.TrimSpace(currentChunk.String()); last != "" {
		chunks = append(chunks, last)
	}

	return chunks
}

// overlapTail returns the last n bytes of s, moved forward to a rune
// boundary.
func overlapTail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return ""
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func (p *Processor) splitIntoSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}

	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func (p *Processor) removeStopwords(text string) string {
	words := strings.Fields(text)
	filtered := words[:0]

	for _, word := range words {
		if !p.stopwords[strings.ToLower(word)] {
			filtered = append(filtered, word)
		}
	}

	return strings.Join(filtered, " ")
}

// Common English stopwords
func getStopwords() []string {
	return []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with",
	}
}
