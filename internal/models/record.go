package models

import "time"

// Record is a raw source document produced by a loader. Records are never
// mutated after the loader returns them.
type Record struct {
	Symbol     string    `json:"symbol"`
	FilingType string    `json:"filing_type,omitempty"`
	Title      string    `json:"title,omitempty"`
	Date       time.Time `json:"date"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	URL        string    `json:"url,omitempty"`
	Path       string    `json:"path,omitempty"`
}

// Metadata flattens the record fields that are worth keeping next to an
// indexed document.
func (r Record) Metadata() map[string]any {
	md := map[string]any{
		"symbol": r.Symbol,
		"source": r.Source,
		"date":   r.Date.Format(time.RFC3339),
	}
	if r.FilingType != "" {
		md["filing_type"] = r.FilingType
	}
	if r.Title != "" {
		md["title"] = r.Title
	}
	if r.URL != "" {
		md["url"] = r.URL
	}
	if r.Path != "" {
		md["path"] = r.Path
	}
	return md
}

// LoadQuery selects what a loader should return.
type LoadQuery struct {
	Symbol     string
	FilingType string
	Limit      int
}

// ProcessedRecord is a record split into indexable chunks.
type ProcessedRecord struct {
	Record
	Chunks []string
}
