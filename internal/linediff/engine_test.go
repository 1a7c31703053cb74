package linediff

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericksa/contractlens/internal/contract"
)

type describeCall struct {
	reference string
	proposal  string
	kind      contract.DiffType
}

type fakeDescriber struct {
	mu    sync.Mutex
	calls []describeCall
	err   error
	delay time.Duration
}

func (f *fakeDescriber) DescribeDifference(ctx context.Context, reference, proposal string, kind contract.DiffType) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, describeCall{reference, proposal, kind})
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return "  described " + strings.TrimSpace(proposal) + "\n", nil
}

type fakeFinder struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (f *fakeFinder) FindSimilar(_ context.Context, text string, n int) ([]contract.HistoricalPrecedent, error) {
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []contract.HistoricalPrecedent{{HistoricalID: "h1", Text: "historic", SimilarityScore: 0.8}}, nil
}

func TestDiff_ModifiedLine(t *testing.T) {
	describer := &fakeDescriber{}
	finder := &fakeFinder{}
	engine := NewEngine(describer, finder, nil)

	resp := engine.Diff(context.Background(), "A\nB\nC\n", "A\nX\nC\n")

	assert.Equal(t, "A\nX\nC\n", resp.FullProposalText)
	assert.Nil(t, resp.HighlightedProposalPDFURL)
	require.Len(t, resp.Differences, 1)
	d := resp.Differences[0]
	assert.Equal(t, contract.DiffModified, d.Type)
	assert.Equal(t, 2, d.ProposalStartIndex)
	assert.Equal(t, 4, d.ProposalEndIndex)
	assert.Equal(t, "X\n", d.ProposalTextSnippet)
	assert.Equal(t, "described X", d.LLMAnalysis.Description)
	assert.Len(t, d.LLMAnalysis.HistoricalVariations, 1)
	assert.Nil(t, d.PageNumber)
	assert.NotNil(t, d.BoundingBoxes)

	require.Len(t, describer.calls, 1)
	assert.Equal(t, describeCall{"B\n", "X\n", contract.DiffModified}, describer.calls[0])
	assert.Equal(t, []string{"B\n"}, finder.queries)
}

func TestDiff_AddedLine(t *testing.T) {
	describer := &fakeDescriber{}
	finder := &fakeFinder{}
	engine := NewEngine(describer, finder, nil)

	resp := engine.Diff(context.Background(), "A\nC\n", "A\nB\nC\n")

	require.Len(t, resp.Differences, 1)
	d := resp.Differences[0]
	assert.Equal(t, contract.DiffAdded, d.Type)
	assert.Equal(t, 2, d.ProposalStartIndex)
	assert.Equal(t, 4, d.ProposalEndIndex)
	assert.Equal(t, describeCall{"", "B\n", contract.DiffAdded}, describer.calls[0])
	assert.Equal(t, []string{"B\n"}, finder.queries)
}

func TestDiff_DeletionNotReported(t *testing.T) {
	describer := &fakeDescriber{}
	engine := NewEngine(describer, nil, nil)

	resp := engine.Diff(context.Background(), "A\nB\nC\n", "A\nC\n")

	assert.Empty(t, resp.Differences)
	assert.NotNil(t, resp.Differences)
	assert.Empty(t, describer.calls)
}

func TestDiff_WhitespaceOnlySnippetDropped(t *testing.T) {
	engine := NewEngine(&fakeDescriber{}, nil, nil)

	resp := engine.Diff(context.Background(), "A\nB\n", "A\n\n")

	assert.Empty(t, resp.Differences)
}

func TestDiff_IdenticalDocuments(t *testing.T) {
	engine := NewEngine(&fakeDescriber{}, nil, nil)

	resp := engine.Diff(context.Background(), "same\ntext\n", "same\ntext\n")

	assert.Empty(t, resp.Differences)
}

func TestDiff_NoDescriberConfigured(t *testing.T) {
	engine := NewEngine(nil, nil, nil)

	resp := engine.Diff(context.Background(), "A\nB\n", "A\nZ\n")

	require.Len(t, resp.Differences, 1)
	assert.Equal(t, DescriptionUnavailable, resp.Differences[0].LLMAnalysis.Description)
	assert.Empty(t, resp.Differences[0].LLMAnalysis.HistoricalVariations)
}

func TestDiff_CollaboratorErrors(t *testing.T) {
	engine := NewEngine(&fakeDescriber{err: errors.New("rate limited")}, &fakeFinder{err: errors.New("offline")}, nil)

	resp := engine.Diff(context.Background(), "A\nB\n", "A\nZ\n")

	require.Len(t, resp.Differences, 1)
	assert.Equal(t, "Analysis error: rate limited", resp.Differences[0].LLMAnalysis.Description)
	assert.NotNil(t, resp.Differences[0].LLMAnalysis.HistoricalVariations)
	assert.Empty(t, resp.Differences[0].LLMAnalysis.HistoricalVariations)
}

type panickingFinder struct{}

func (panickingFinder) FindSimilar(context.Context, string, int) ([]contract.HistoricalPrecedent, error) {
	panic("index corrupted")
}

func TestDiff_FinderPanicRecovered(t *testing.T) {
	engine := NewEngine(&fakeDescriber{}, panickingFinder{}, nil)

	resp := engine.Diff(context.Background(), "A\nB\n", "A\nZ\nC\n")

	require.Len(t, resp.Differences, 1)
	diff := resp.Differences[0]
	assert.Equal(t, "described Z\nC", diff.LLMAnalysis.Description)
	assert.NotNil(t, diff.LLMAnalysis.HistoricalVariations)
	assert.Empty(t, diff.LLMAnalysis.HistoricalVariations)
}

func TestDiff_OutputFollowsDocumentOrder(t *testing.T) {
	engine := NewEngine(&fakeDescriber{delay: time.Millisecond}, nil, nil)

	reference := "one\ntwo\nthree\nfour\nfive\nsix\n"
	candidate := "one\nTWO\nthree\nFOUR\nfive\nSIX\n"
	resp := engine.Diff(context.Background(), reference, candidate)

	require.Len(t, resp.Differences, 3)
	for i := 1; i < len(resp.Differences); i++ {
		assert.Less(t, resp.Differences[i-1].ProposalStartIndex, resp.Differences[i].ProposalStartIndex)
	}
	assert.Equal(t, "TWO\n", resp.Differences[0].ProposalTextSnippet)
	assert.Equal(t, "SIX\n", resp.Differences[2].ProposalTextSnippet)
}

func TestDiff_OffsetsCountCharacters(t *testing.T) {
	engine := NewEngine(nil, nil, nil)

	candidate := "città\nperché\n"
	resp := engine.Diff(context.Background(), "città\npercio\n", candidate)

	require.Len(t, resp.Differences, 1)
	d := resp.Differences[0]
	assert.Equal(t, 6, d.ProposalStartIndex)
	assert.Equal(t, 13, d.ProposalEndIndex)
	assert.Equal(t, d.ProposalTextSnippet, string([]rune(candidate)[d.ProposalStartIndex:d.ProposalEndIndex]))
}
