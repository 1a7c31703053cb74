package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/ericksa/contractlens/internal/contract"
)

type fakeModel struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     [][]llms.MessageContent
	options   []llms.CallOptions
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.calls)
	m.calls = append(m.calls, messages)
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	m.options = append(m.options, opts)

	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.responses) {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.responses[idx]}}}, nil
	}
	return &llms.ContentResponse{}, nil
}

func promptText(t *testing.T, msg llms.MessageContent) string {
	t.Helper()
	require.NotEmpty(t, msg.Parts)
	part, ok := msg.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func testConfig() Config {
	return Config{Model: "test-model", RetryAttempts: 2, RetryBackoff: time.Millisecond, Timeout: time.Second}
}

func TestAnalyzeClause_ParsesFencedJSON(t *testing.T) {
	model := &fakeModel{responses: []string{"```json\n{\"summary\":\"s\",\"risk_assessment\":\"r\",\"recommendation\":\"counter-proposal\",\"suggested_counter_proposal\":\"cp\"}\n```"}}
	client := NewWithModel(model, testConfig(), nil)

	a, err := client.AnalyzeClause(context.Background(), contract.ClauseReview{
		ClauseID:     "ART. 231",
		StandardText: "standard wording",
		CompanyText:  "company wording",
		Precedents: []contract.HistoricalPrecedent{{
			Text:     "old wording",
			Metadata: map[string]any{"status": "rejected", "counter_proposal_text": "keep the standard"},
		}},
	})

	require.NoError(t, err)
	assert.Equal(t, contract.RecommendCounterProposal, a.Recommendation)
	assert.Equal(t, "cp", a.SuggestedCounterProposal)

	require.Len(t, model.calls, 1)
	require.Len(t, model.calls[0], 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.calls[0][0].Role)
	user := promptText(t, model.calls[0][1])
	assert.Contains(t, user, "ART. 231")
	assert.Contains(t, user, "standard wording")
	assert.Contains(t, user, "company wording")
	assert.Contains(t, user, "Status: REJECTED")
	assert.Contains(t, user, `Counter-proposal: "keep the standard"`)
	assert.InDelta(t, 0.7, model.options[0].Temperature, 1e-9)
	assert.Equal(t, 1024, model.options[0].MaxTokens)
}

func TestAnalyzeClause_MalformedOutput(t *testing.T) {
	model := &fakeModel{responses: []string{"Sure! The clause looks risky."}}
	client := NewWithModel(model, testConfig(), nil)

	_, err := client.AnalyzeClause(context.Background(), contract.ClauseReview{ClauseID: "1."})

	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrMalformedOutput)
	assert.Len(t, model.calls, 1)
}

func TestGenerate_RetriesTransientErrors(t *testing.T) {
	model := &fakeModel{
		errs:      []error{errors.New("502 bad gateway"), nil},
		responses: []string{"", "answer"},
	}
	client := NewWithModel(model, testConfig(), nil)

	out, err := client.Answer(context.Background(), "why?", nil)

	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Len(t, model.calls, 2)
}

func TestGenerate_GivesUpWithErrService(t *testing.T) {
	boom := errors.New("503 unavailable")
	model := &fakeModel{errs: []error{boom, boom, boom, boom}}
	client := NewWithModel(model, testConfig(), nil)

	_, err := client.Answer(context.Background(), "why?", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrService)
	assert.Contains(t, err.Error(), "503 unavailable")
	assert.Len(t, model.calls, 3)
}

func TestGenerate_EmptyChoices(t *testing.T) {
	client := NewWithModel(&fakeModel{}, testConfig(), nil)

	_, err := client.Answer(context.Background(), "why?", nil)

	assert.ErrorIs(t, err, ErrService)
}

func TestDescribeDifference(t *testing.T) {
	model := &fakeModel{responses: []string{"  The term changed.\n", "Adds a clause."}}
	client := NewWithModel(model, testConfig(), nil)

	desc, err := client.DescribeDifference(context.Background(), "30 days", "90 days", contract.DiffModified)
	require.NoError(t, err)
	assert.Equal(t, "The term changed.", desc)
	user := promptText(t, model.calls[0][1])
	assert.Contains(t, user, "30 days")
	assert.Contains(t, user, "90 days")
	assert.InDelta(t, 0.1, model.options[0].Temperature, 1e-9)
	assert.Equal(t, 500, model.options[0].MaxTokens)

	desc, err = client.DescribeDifference(context.Background(), "", "new clause", contract.DiffAdded)
	require.NoError(t, err)
	assert.Equal(t, "Adds a clause.", desc)
	assert.NotContains(t, promptText(t, model.calls[1][1]), "Standard clause")

	desc, err = client.DescribeDifference(context.Background(), "gone", "", contract.DiffDeletedFromStandard)
	require.NoError(t, err)
	assert.Contains(t, desc, "DELETED_FROM_STANDARD")
	assert.Len(t, model.calls, 2)
}

func TestAnswer_IncludesAnalysisContext(t *testing.T) {
	model := &fakeModel{responses: []string{"Clause 2 was rejected."}}
	client := NewWithModel(model, Config{ResponseLanguage: "Italian"}, nil)
	summary := contract.Assessment{Summary: "payment term extended", Recommendation: contract.RecommendReject}

	out, err := client.Answer(context.Background(), "What about payments?", []contract.AnalyzedClause{
		{ClauseID: "ART. 1", Status: contract.StatusUnchanged},
		{ClauseID: "ART. 2", Status: contract.StatusModified, LLMAnalysis: &summary},
	})

	require.NoError(t, err)
	assert.Equal(t, "Clause 2 was rejected.", out)
	prompt := promptText(t, model.calls[0][0])
	assert.Contains(t, prompt, "Clause: ART. 1\nStatus: unchanged\n---\n")
	assert.Contains(t, prompt, "AI recommendation: REJECT")
	assert.Contains(t, prompt, "Change summary: payment term extended")
	assert.Contains(t, prompt, "What about payments?")
	assert.Contains(t, prompt, "Italian")
}

func TestFormatPrecedents(t *testing.T) {
	assert.Equal(t, noPrecedents, FormatPrecedents(nil))

	out := FormatPrecedents([]contract.HistoricalPrecedent{
		{Text: "accepted text", Metadata: map[string]any{"status": "accepted", "counter_proposal_text": "ignored"}},
		{Text: "no status"},
	})
	assert.Equal(t, "1. Status: ACCEPTED\n   Text: \"accepted text\"\n2. Status: N/A\n   Text: \"no status\"\n", out)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestHeaderTransport(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	client := &http.Client{Transport: &headerTransport{
		base:    http.DefaultTransport,
		headers: map[string]string{"HTTP-Referer": "https://example.test", "X-Title": "contractlens", "X-Empty": ""},
	}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "https://example.test", got.Get("HTTP-Referer"))
	assert.Equal(t, "contractlens", got.Get("X-Title"))
	assert.Empty(t, got.Values("X-Empty"))
}
