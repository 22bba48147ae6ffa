package models

import "maps"

// Document is a stored piece of text together with its embedding.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`

	// Seq is the insertion sequence assigned by the store. Search ties are
	// broken by ascending Seq.
	Seq uint64 `json:"-"`
}

// Clone returns a deep copy so stored documents are never shared with callers.
func (d Document) Clone() Document {
	out := d
	if d.Metadata != nil {
		out.Metadata = maps.Clone(d.Metadata)
	} else {
		out.Metadata = map[string]any{}
	}
	if d.Embedding != nil {
		out.Embedding = append([]float32(nil), d.Embedding...)
	}
	return out
}

type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}
