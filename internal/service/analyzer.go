package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ericksa/contractlens/internal/audit"
	"github.com/ericksa/contractlens/internal/contract"
	"github.com/ericksa/contractlens/internal/extract"
	"github.com/ericksa/contractlens/internal/standards"
)

// ChatApology is returned in place of an answer whenever the model cannot respond
const ChatApology = "Sorry, an error occurred while processing your question."

// ErrStandardUnreadable marks a stored reference document that could not be extracted.
// Unlike a bad upload this is a server side fault.
var ErrStandardUnreadable = errors.New("standard document unreadable")

// Upload is a document received from a caller
type Upload struct {
	Filename string
	Data     []byte
}

type ClauseComparer interface {
	CompareClauses(ctx context.Context, companyText, standardText string) []contract.AnalyzedClause
}

type Differ interface {
	Diff(ctx context.Context, reference, candidate string) contract.ComparisonResponse
}

type Chatter interface {
	Answer(ctx context.Context, question string, analysis []contract.AnalyzedClause) (string, error)
}

// Analyzer ties extraction, the standards repository and both comparison
// engines together. It is shared by the HTTP API and the MCP tools.
type Analyzer struct {
	clauses   ClauseComparer
	diffs     Differ
	standards standards.Repository
	chatter   Chatter
	auditor   *audit.Auditor
	logger    *zap.Logger
}

// New builds an Analyzer. chatter may be nil when no language model is
// configured; auditor may be nil to disable auditing.
func New(clauses ClauseComparer, diffs Differ, repo standards.Repository, chatter Chatter, auditor *audit.Auditor, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		clauses:   clauses,
		diffs:     diffs,
		standards: repo,
		chatter:   chatter,
		auditor:   auditor,
		logger:    logger,
	}
}

// AnalyzeDocument compares an uploaded contract clause by clause against the
// stored standard with the given id.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, standardID string, doc Upload) (result []contract.AnalyzedClause, err error) {
	defer func() {
		a.auditor.Log("analyze", map[string]any{
			"standard_id": standardID,
			"filename":    doc.Filename,
			"size":        len(doc.Data),
		}, result, err)
	}()

	if err := extract.CheckExtension(doc.Filename); err != nil {
		return nil, err
	}
	companyText, err := extract.Text(doc.Filename, doc.Data)
	if err != nil {
		return nil, err
	}
	a.logger.Info("document received",
		zap.String("filename", doc.Filename),
		zap.Int("bytes", len(doc.Data)),
		zap.String("standard_id", standardID),
	)
	return a.analyze(ctx, standardID, companyText)
}

// AnalyzeText is AnalyzeDocument for callers that already hold plain text
func (a *Analyzer) AnalyzeText(ctx context.Context, standardID, companyText string) (result []contract.AnalyzedClause, err error) {
	defer func() {
		a.auditor.Log("analyze_text", map[string]any{
			"standard_id": standardID,
			"chars":       len([]rune(companyText)),
		}, result, err)
	}()
	return a.analyze(ctx, standardID, companyText)
}

func (a *Analyzer) analyze(ctx context.Context, standardID, companyText string) ([]contract.AnalyzedClause, error) {
	standardText, err := a.standardText(ctx, standardID)
	if err != nil {
		return nil, err
	}
	return a.clauses.CompareClauses(ctx, companyText, standardText), nil
}

func (a *Analyzer) standardText(ctx context.Context, standardID string) (string, error) {
	doc, err := a.standards.Load(ctx, standardID)
	if err != nil {
		return "", err
	}
	text, err := extract.Text(doc.Filename, doc.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrStandardUnreadable, doc.Filename, err)
	}
	a.logger.Debug("standard loaded", zap.String("standard_id", standardID), zap.String("filename", doc.Filename))
	return text, nil
}

// CompareDocuments line-diffs a proposal against a model contract. Both
// uploads are extracted concurrently.
func (a *Analyzer) CompareDocuments(ctx context.Context, model, proposal Upload) (resp contract.ComparisonResponse, err error) {
	defer func() {
		a.auditor.Log("compare", map[string]any{
			"model_file":    model.Filename,
			"proposal_file": proposal.Filename,
		}, len(resp.Differences), err)
	}()

	for _, u := range []Upload{model, proposal} {
		if err := extract.CheckExtension(u.Filename); err != nil {
			return contract.ComparisonResponse{}, err
		}
	}

	var modelText, proposalText string
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		modelText, err = extract.Text(model.Filename, model.Data)
		return err
	})
	g.Go(func() error {
		var err error
		proposalText, err = extract.Text(proposal.Filename, proposal.Data)
		return err
	})
	if err := g.Wait(); err != nil {
		return contract.ComparisonResponse{}, err
	}
	return a.diffs.Diff(ctx, modelText, proposalText), nil
}

// Segment splits plain text into clauses
func (a *Analyzer) Segment(_ context.Context, text string) (clauses []contract.Clause) {
	defer func() {
		a.auditor.Log("segment", map[string]any{
			"chars": len([]rune(text)),
		}, len(clauses), nil)
	}()
	return contract.Segment(text)
}

// CompareText line-diffs two plain texts
func (a *Analyzer) CompareText(ctx context.Context, standardText, proposalText string) (resp contract.ComparisonResponse) {
	defer func() {
		a.auditor.Log("compare_text", map[string]any{
			"standard_chars": len([]rune(standardText)),
			"proposal_chars": len([]rune(proposalText)),
		}, len(resp.Differences), nil)
	}()
	return a.diffs.Diff(ctx, standardText, proposalText)
}

// Chat answers a question about a previous analysis. Failures never surface
// to the caller; they become ChatApology.
func (a *Analyzer) Chat(ctx context.Context, req contract.ChatRequest) (resp contract.ChatResponse) {
	var err error
	defer func() {
		a.auditor.Log("chat", map[string]any{
			"question": req.Question,
			"clauses":  len(req.AnalysisContext),
		}, resp.Answer, err)
	}()

	if a.chatter == nil {
		err = errors.New("language model not configured")
		return contract.ChatResponse{Answer: ChatApology}
	}
	answer, err := a.chatter.Answer(ctx, req.Question, req.AnalysisContext)
	if err != nil {
		a.logger.Warn("chat failed", zap.Error(err))
		return contract.ChatResponse{Answer: ChatApology}
	}
	return contract.ChatResponse{Answer: answer}
}

// ListStandards returns the ids of every stored standard
func (a *Analyzer) ListStandards(ctx context.Context) ([]string, error) {
	ids, err := a.standards.List(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// AuditLog returns the most recent audited calls
func (a *Analyzer) AuditLog(ctx context.Context, limit int) ([]audit.Entry, error) {
	return a.auditor.Recent(ctx, limit)
}
