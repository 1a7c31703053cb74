package precedent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ericksa/contractlens/internal/contract"
)

// Searcher finds historical precedents for clause text. It is safe for concurrent use
// when its store and embedder are.
type Searcher struct {
	embedder Embedder
	store    Store
	logger   *zap.Logger
}

func NewSearcher(embedder Embedder, store Store, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{embedder: embedder, store: store, logger: logger}
}

var _ contract.PrecedentFinder = (*Searcher)(nil)

// FindSimilar returns up to n precedents ordered by descending similarity.
func (s *Searcher) FindSimilar(ctx context.Context, text string, n int) ([]contract.HistoricalPrecedent, error) {
	if n <= 0 || strings.TrimSpace(text) == "" {
		return []contract.HistoricalPrecedent{}, nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %v", ErrUnavailable, err)
	}
	matches, err := s.store.Query(ctx, vec, n)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrUnavailable, err)
	}

	matches = topN(matches, n)
	out := make([]contract.HistoricalPrecedent, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.precedent())
	}
	s.logger.Debug("precedent search", zap.Int("requested", n), zap.Int("found", len(out)))
	return out, nil
}

// Entry is a precedent before embedding
type Entry struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// precedentNamespace makes seeded ids stable across runs so reseeding upserts
var precedentNamespace = uuid.MustParse("6f1c1c8e-4d2b-4b8e-9a57-3c0f7f3f9e21")

// EntryID derives a stable id from the text
func EntryID(text string) string {
	return uuid.NewSHA1(precedentNamespace, []byte(text)).String()
}

// Load embeds the entries and stores them. It returns the store size afterwards.
func (s *Searcher) Load(ctx context.Context, entries []Entry) (int, error) {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		vec, err := s.embedder.Embed(ctx, e.Text)
		if err != nil {
			return 0, fmt.Errorf("failed to embed precedent: %w", err)
		}
		records = append(records, Record{
			ID:        EntryID(e.Text),
			Text:      e.Text,
			Metadata:  e.Metadata,
			Embedding: vec,
		})
	}
	if err := s.store.Add(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to store precedents: %w", err)
	}
	return s.store.Count(ctx)
}

func (s *Searcher) Close() error {
	return s.store.Close()
}
