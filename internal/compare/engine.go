package compare

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/ericksa/contractlens/internal/contract"
)

// ErrNoAnalyst is reported in fallback assessments when no language model is configured
var ErrNoAnalyst = errors.New("language model not configured")

// Assemble merges bypassed and enriched clauses into one list ordered by clause id.
func Assemble(bypassed, enriched []contract.AnalyzedClause) []contract.AnalyzedClause {
	out := make([]contract.AnalyzedClause, 0, len(bypassed)+len(enriched))
	out = append(out, bypassed...)
	out = append(out, enriched...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClauseID < out[j].ClauseID })
	return out
}

// Engine runs the clause comparison pipeline: segment, align, enrich, assemble.
type Engine struct {
	dispatcher *Dispatcher
	logger     *zap.Logger
}

func NewEngine(dispatcher *Dispatcher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{dispatcher: dispatcher, logger: logger}
}

// CompareClauses compares the company document against the standard document.
// Every clause id found in either document appears exactly once in the result.
func (e *Engine) CompareClauses(ctx context.Context, companyText, standardText string) []contract.AnalyzedClause {
	company := contract.Segment(companyText)
	standard := contract.Segment(standardText)
	aligned := contract.Align(company, standard)

	var bypassed, eligible []contract.AnalyzedClause
	for _, c := range aligned {
		if Eligible(c) {
			eligible = append(eligible, c)
		} else {
			bypassed = append(bypassed, c)
		}
	}

	e.logger.Info("comparing clauses",
		zap.Int("company_clauses", len(company)),
		zap.Int("standard_clauses", len(standard)),
		zap.Int("aligned", len(aligned)),
		zap.Int("enriching", len(eligible)),
	)

	enriched := e.dispatcher.Enrich(ctx, eligible)
	return Assemble(bypassed, enriched)
}
