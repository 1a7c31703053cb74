package compare

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/ericksa/contractlens/internal/contract"
)

const (
	DefaultTopN             = 3
	DefaultPrecedentTimeout = 30 * time.Second
	DefaultAnalysisTimeout  = 60 * time.Second
)

// Dispatcher enriches changed clauses with precedents and a risk assessment.
type Dispatcher struct {
	finder  contract.PrecedentFinder
	analyst contract.ClauseAnalyst
	logger  *zap.Logger

	TopN             int
	PrecedentTimeout time.Duration
	AnalysisTimeout  time.Duration
}

// NewDispatcher creates a dispatcher. A nil finder disables precedent search
// and a nil analyst turns every eligible clause into a fallback assessment.
func NewDispatcher(finder contract.PrecedentFinder, analyst contract.ClauseAnalyst, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		finder:           finder,
		analyst:          analyst,
		logger:           logger,
		TopN:             DefaultTopN,
		PrecedentTimeout: DefaultPrecedentTimeout,
		AnalysisTimeout:  DefaultAnalysisTimeout,
	}
}

// Eligible reports whether a clause is sent to enrichment
func Eligible(c contract.AnalyzedClause) bool {
	return c.Status.Enrichable() && c.EligibleText() != ""
}

// Enrich runs one task per clause concurrently and waits for all of them.
// Results keep the order of the input. A failing task yields a fallback
// assessment and never affects the others.
func (d *Dispatcher) Enrich(ctx context.Context, clauses []contract.AnalyzedClause) []contract.AnalyzedClause {
	if len(clauses) == 0 {
		return []contract.AnalyzedClause{}
	}
	mapper := iter.Mapper[contract.AnalyzedClause, contract.AnalyzedClause]{MaxGoroutines: len(clauses)}
	return mapper.Map(clauses, func(c *contract.AnalyzedClause) contract.AnalyzedClause {
		return d.enrichOne(ctx, *c)
	})
}

func (d *Dispatcher) enrichOne(ctx context.Context, c contract.AnalyzedClause) (out contract.AnalyzedClause) {
	out = c
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("enrichment task panicked", zap.String("clause_id", c.ClauseID), zap.Any("panic", r))
			fallback := contract.FallbackAssessment(fmt.Errorf("enrichment panic: %v", r))
			out.LLMAnalysis = &fallback
			if out.HistoricalPrecedents == nil {
				out.HistoricalPrecedents = []contract.HistoricalPrecedent{}
			}
		}
	}()

	if !Eligible(c) {
		return out
	}

	text := c.EligibleText()
	out.HistoricalPrecedents = d.precedents(ctx, c.ClauseID, text)

	review := contract.ClauseReview{
		ClauseID:   c.ClauseID,
		Precedents: out.HistoricalPrecedents,
	}
	if c.StandardText != nil {
		review.StandardText = *c.StandardText
	}
	if c.CompanyText != nil {
		review.CompanyText = *c.CompanyText
	}

	assessment := d.assess(ctx, review)
	out.LLMAnalysis = &assessment
	return out
}

func (d *Dispatcher) precedents(ctx context.Context, clauseID, text string) []contract.HistoricalPrecedent {
	if d.finder == nil {
		return []contract.HistoricalPrecedent{}
	}
	ctx, cancel := withTimeout(ctx, d.PrecedentTimeout)
	defer cancel()

	found, err := d.finder.FindSimilar(ctx, text, d.TopN)
	if err != nil {
		d.logger.Warn("precedent search failed", zap.String("clause_id", clauseID), zap.Error(err))
		return []contract.HistoricalPrecedent{}
	}
	if found == nil {
		return []contract.HistoricalPrecedent{}
	}
	return found
}

func (d *Dispatcher) assess(ctx context.Context, review contract.ClauseReview) contract.Assessment {
	if d.analyst == nil {
		return contract.FallbackAssessment(ErrNoAnalyst)
	}
	ctx, cancel := withTimeout(ctx, d.AnalysisTimeout)
	defer cancel()

	a, err := d.analyst.AnalyzeClause(ctx, review)
	if err != nil {
		d.logger.Warn("clause analysis failed", zap.String("clause_id", review.ClauseID), zap.Error(err))
		return contract.FallbackAssessment(err)
	}
	return a
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
