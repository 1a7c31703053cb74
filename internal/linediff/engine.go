package linediff

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/ericksa/contractlens/internal/contract"
)

// DescriptionUnavailable is used when no describer is configured
const DescriptionUnavailable = "Analysis unavailable: language model not configured."

// Engine compares two documents line by line and annotates the changed regions
// of the candidate (proposal) document.
type Engine struct {
	describer contract.DiffDescriber
	finder    contract.PrecedentFinder
	logger    *zap.Logger

	TopN    int
	Timeout time.Duration
}

// NewEngine creates a line-diff engine. Both collaborators are optional.
func NewEngine(describer contract.DiffDescriber, finder contract.PrecedentFinder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		describer: describer,
		finder:    finder,
		logger:    logger,
		TopN:      3,
		Timeout:   60 * time.Second,
	}
}

// Diff returns the proposal text with its changed regions. Replacements become
// MODIFIED and insertions become ADDED; deletions are logged but not reported
// because they have no extent in the proposal.
func (e *Engine) Diff(ctx context.Context, reference, candidate string) contract.ComparisonResponse {
	var changed []Span
	for _, s := range Spans(reference, candidate) {
		switch s.Op {
		case OpReplace, OpInsert:
			if strings.TrimSpace(s.CandidateText) == "" {
				continue
			}
			changed = append(changed, s)
		case OpDelete:
			e.logger.Info("text deleted from standard",
				zap.Int("reference_start", s.ReferenceStart),
				zap.Int("reference_end", s.ReferenceEnd),
				zap.String("snippet", preview(s.ReferenceText, 100)),
			)
		}
	}

	differences := []contract.Difference{}
	if len(changed) > 0 {
		mapper := iter.Mapper[Span, contract.Difference]{MaxGoroutines: len(changed)}
		differences = mapper.Map(changed, func(s *Span) contract.Difference {
			return e.annotate(ctx, *s)
		})
	}

	return contract.ComparisonResponse{
		FullProposalText: candidate,
		Differences:      differences,
	}
}

func (e *Engine) annotate(ctx context.Context, s Span) contract.Difference {
	kind := contract.DiffModified
	searchText := s.ReferenceText
	referenceSnippet := s.ReferenceText
	if s.Op == OpInsert {
		kind = contract.DiffAdded
		searchText = s.CandidateText
		referenceSnippet = ""
	}

	return contract.Difference{
		Type:                kind,
		ProposalStartIndex:  s.CandidateStart,
		ProposalEndIndex:    s.CandidateEnd,
		ProposalTextSnippet: s.CandidateText,
		LLMAnalysis: contract.DiffAnalysis{
			Description:          e.describe(ctx, referenceSnippet, s.CandidateText, kind),
			HistoricalVariations: e.variations(ctx, searchText),
		},
		BoundingBoxes: [][]float64{},
	}
}

func (e *Engine) describe(ctx context.Context, reference, proposal string, kind contract.DiffType) (description string) {
	if e.describer == nil {
		return DescriptionUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("describer panicked", zap.Any("panic", r))
			description = fmt.Sprintf("Analysis error: %v", r)
		}
	}()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	out, err := e.describer.DescribeDifference(ctx, reference, proposal, kind)
	if err != nil {
		e.logger.Warn("difference description failed", zap.String("type", string(kind)), zap.Error(err))
		return fmt.Sprintf("Analysis error: %v", err)
	}
	return strings.TrimSpace(out)
}

func (e *Engine) variations(ctx context.Context, text string) (found []contract.HistoricalPrecedent) {
	if e.finder == nil || strings.TrimSpace(text) == "" {
		return []contract.HistoricalPrecedent{}
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("precedent finder panicked", zap.Any("panic", r))
			found = []contract.HistoricalPrecedent{}
		}
	}()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	found, err := e.finder.FindSimilar(ctx, text, e.TopN)
	if err != nil {
		e.logger.Warn("historical variation search failed", zap.Error(err))
		return []contract.HistoricalPrecedent{}
	}
	if found == nil {
		return []contract.HistoricalPrecedent{}
	}
	return found
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.Timeout)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
