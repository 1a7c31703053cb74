package contract

import (
	"context"
	"encoding/json"
	"strings"
)

// Clause is a single addressable unit of contract text
type Clause struct {
	ClauseID string `json:"clause_id"`
	Text     string `json:"text"`
}

// Key is the normalized identity used to align clauses across documents
type Key string

// KeyOf normalizes a clause id (lower-cased, trimmed)
func KeyOf(clauseID string) Key {
	return Key(strings.ToLower(strings.TrimSpace(clauseID)))
}

type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusModified  Status = "modified"
	StatusNew       Status = "new"
	StatusDeleted   Status = "deleted"
)

// Enrichable reports whether clauses with this status get precedents and analysis
func (s Status) Enrichable() bool {
	return s == StatusModified || s == StatusNew
}

// HistoricalPrecedent is a previously negotiated clause variant returned by similarity search
type HistoricalPrecedent struct {
	HistoricalID    string         `json:"historical_id"`
	Text            string         `json:"text"`
	Metadata        map[string]any `json:"metadata"`
	SimilarityScore float64        `json:"similarity_score"`
}

// AnalyzedClause is the comparison result for one aligned clause
type AnalyzedClause struct {
	ClauseID             string                `json:"clause_id"`
	Status               Status                `json:"status"`
	CompanyText          *string               `json:"company_text"`
	StandardText         *string               `json:"standard_text"`
	HistoricalPrecedents []HistoricalPrecedent `json:"historical_precedents"`
	LLMAnalysis          *Assessment           `json:"llm_analysis"`
}

// EligibleText returns the company text used for similarity search, or "" when
// the company side is absent or blank.
func (c AnalyzedClause) EligibleText() string {
	if hasText(c.CompanyText) {
		return *c.CompanyText
	}
	return ""
}

// MarshalJSON keeps historical_precedents an array even when no precedent was attached
func (c AnalyzedClause) MarshalJSON() ([]byte, error) {
	type alias AnalyzedClause
	if c.HistoricalPrecedents == nil {
		c.HistoricalPrecedents = []HistoricalPrecedent{}
	}
	return json.Marshal(alias(c))
}

// ClauseReview is the input handed to the generative analyst for one changed clause
type ClauseReview struct {
	ClauseID     string
	StandardText string
	CompanyText  string
	Precedents   []HistoricalPrecedent
}

type DiffType string

const (
	DiffModified            DiffType = "MODIFIED"
	DiffAdded               DiffType = "ADDED"
	DiffDeletedFromStandard DiffType = "DELETED_FROM_STANDARD"
)

// DiffAnalysis annotates one line-diff region
type DiffAnalysis struct {
	Description          string                `json:"description"`
	HistoricalVariations []HistoricalPrecedent `json:"historical_variations"`
}

// Difference is one changed region of the proposal document.
// Indices are character (rune) offsets into the proposal text, end exclusive.
type Difference struct {
	Type                DiffType     `json:"type"`
	ProposalStartIndex  int          `json:"proposal_start_index"`
	ProposalEndIndex    int          `json:"proposal_end_index"`
	ProposalTextSnippet string       `json:"proposal_text_snippet"`
	LLMAnalysis         DiffAnalysis `json:"llm_analysis"`
	PageNumber          *int         `json:"page_number"`
	BoundingBoxes       [][]float64  `json:"bounding_boxes"`
}

type ComparisonResponse struct {
	FullProposalText          string       `json:"full_proposal_text"`
	Differences               []Difference `json:"differences"`
	HighlightedProposalPDFURL *string      `json:"highlighted_proposal_pdf_url"`
}

type ChatRequest struct {
	Question        string           `json:"question"`
	AnalysisContext []AnalyzedClause `json:"analysis_context"`
}

type ChatResponse struct {
	Answer string `json:"answer"`
}

// PrecedentFinder retrieves historically similar clause variants, best match first
type PrecedentFinder interface {
	FindSimilar(ctx context.Context, text string, n int) ([]HistoricalPrecedent, error)
}

// ClauseAnalyst produces a risk assessment for a changed clause
type ClauseAnalyst interface {
	AnalyzeClause(ctx context.Context, review ClauseReview) (Assessment, error)
}

// DiffDescriber describes a line-diff region in prose
type DiffDescriber interface {
	DescribeDifference(ctx context.Context, standardSnippet, proposalSnippet string, kind DiffType) (string, error)
}

func strPtr(s string) *string {
	return &s
}
