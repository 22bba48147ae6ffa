package store

import (
	"fmt"
	"math"
	"sort"

	"github.com/xhad/finsight/internal/models"
)

// Cosine returns the cosine similarity of a and b in [-1, 1]. A zero-norm
// vector scores 0 against everything. a and b must have the same length.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("store: cosine of vectors with lengths %d and %d", len(a), len(b)))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Rounding can push identical vectors slightly past 1.
	return math.Max(-1, math.Min(1, s))
}

// rank scores docs against query and keeps those at or above minScore,
// best first with ties in insertion order, at most limit of them.
func rank(docs []models.Document, query []float32, limit int, minScore float64) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(docs))
	for _, doc := range docs {
		score := Cosine(query, doc.Embedding)
		if score >= minScore {
			results = append(results, models.SearchResult{Document: doc, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.Seq < results[j].Document.Seq
	})

	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Document = results[i].Document.Clone()
	}
	return results
}

func validateDocument(doc models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is empty", models.ErrInvalidInput)
	}
	if len(doc.Embedding) == 0 {
		return fmt.Errorf("%w: document %s has no embedding", models.ErrInvalidInput, doc.ID)
	}
	return nil
}

func validateSearch(query []float32, limit int) error {
	if len(query) == 0 {
		return fmt.Errorf("%w: query vector is empty", models.ErrInvalidInput)
	}
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", models.ErrInvalidInput, limit)
	}
	return nil
}

func dimensionError(want, got int) error {
	return fmt.Errorf("%w: got %d values, store holds %d", models.ErrDimensionMismatch, got, want)
}
