package precedent

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/ericksa/contractlens/internal/contract"
)

var (
	// ErrUnavailable is returned when the embedding service or the vector store cannot serve a query
	ErrUnavailable = errors.New("precedent search unavailable")
	// ErrDimensionMismatch is returned when a vector does not match the store dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Record is a historical clause variant with its embedding
type Record struct {
	ID        string
	Text      string
	Metadata  map[string]any
	Embedding []float32
}

// Match is a stored record scored against a query vector. Higher is more similar.
type Match struct {
	ID       string
	Text     string
	Metadata map[string]any
	Score    float64
}

func (m Match) precedent() contract.HistoricalPrecedent {
	meta := m.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return contract.HistoricalPrecedent{
		HistoricalID:    m.ID,
		Text:            m.Text,
		Metadata:        meta,
		SimilarityScore: m.Score,
	}
}

// Store persists precedent records and answers nearest-neighbour queries
type Store interface {
	Add(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, n int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	mag := math.Sqrt(sum)
	if mag == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / mag)
	}
	return v
}

// topN sorts matches by descending score (ties by id) and keeps the first n
func topN(matches []Match, n int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if n >= 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches
}
