package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/ericksa/contractlens/internal/contract"
)

var (
	// ErrService is returned when the model provider fails or returns nothing usable
	ErrService = errors.New("language model service error")
	// ErrNotConfigured is returned by New when no API key is available
	ErrNotConfigured = errors.New("language model not configured")
)

// Model is the subset of llms.Model used by the client
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Config struct {
	BaseURL          string
	Model            string
	APIKey           string
	Temperature      float64
	MaxTokens        int
	Timeout          time.Duration
	RetryAttempts    int
	RetryBackoff     time.Duration
	ResponseLanguage string
	Referer          string
	Title            string
}

func (c *Config) applyDefaults() {
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.ResponseLanguage == "" {
		c.ResponseLanguage = "English"
	}
}

const (
	diffTemperature = 0.1
	diffMaxTokens   = 500
)

// Client performs clause analysis, difference descriptions and chat answers
// against an OpenAI-compatible chat completion endpoint.
type Client struct {
	model  Model
	cfg    Config
	logger *zap.Logger
}

// New creates a client backed by langchaingo's OpenAI provider.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	cfg.applyDefaults()

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": cfg.Referer,
				"X-Title":      cfg.Title,
			},
		},
	}
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
		openai.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM model: %w", err)
	}
	return NewWithModel(model, cfg, logger), nil
}

// NewWithModel wraps an existing model
func NewWithModel(model Model, cfg Config, logger *zap.Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{model: model, cfg: cfg, logger: logger}
}

// AnalyzeClause asks the model for a structured assessment of one changed clause.
func (c *Client) AnalyzeClause(ctx context.Context, review contract.ClauseReview) (contract.Assessment, error) {
	out, err := c.generate(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(clauseSystemPrompt, c.cfg.ResponseLanguage)),
		llms.TextParts(llms.ChatMessageTypeHuman, clausePrompt(review)),
	}, c.cfg.Temperature, c.cfg.MaxTokens)
	if err != nil {
		return contract.Assessment{}, err
	}
	a, err := contract.ParseAssessment(out)
	if err != nil {
		c.logger.Warn("model returned malformed assessment",
			zap.String("clause_id", review.ClauseID),
			zap.String("output", out),
			zap.Error(err),
		)
		return contract.Assessment{}, err
	}
	return a, nil
}

// DescribeDifference describes a line-diff region in prose.
func (c *Client) DescribeDifference(ctx context.Context, standardSnippet, proposalSnippet string, kind contract.DiffType) (string, error) {
	var system, user string
	switch kind {
	case contract.DiffModified:
		system = fmt.Sprintf(modifiedSystemPrompt, c.cfg.ResponseLanguage)
		user = modifiedPrompt(standardSnippet, proposalSnippet)
	case contract.DiffAdded:
		system = fmt.Sprintf(addedSystemPrompt, c.cfg.ResponseLanguage)
		user = addedPrompt(proposalSnippet)
	default:
		return fmt.Sprintf("Difference type '%s' is not handled by detailed analysis.", kind), nil
	}

	out, err := c.generate(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}, diffTemperature, diffMaxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Answer responds to a question about a previous analysis.
func (c *Client) Answer(ctx context.Context, question string, analysis []contract.AnalyzedClause) (string, error) {
	return c.generate(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, chatPrompt(question, analysis, c.cfg.ResponseLanguage)),
	}, c.cfg.Temperature, c.cfg.MaxTokens)
}

func (c *Client) generate(ctx context.Context, messages []llms.MessageContent, temperature float64, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	retries := c.cfg.RetryAttempts
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(c.cfg.RetryBackoff))

	var content string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, callErr := c.model.GenerateContent(ctx, messages,
			llms.WithTemperature(temperature),
			llms.WithMaxTokens(maxTokens),
		)
		if callErr != nil {
			if ctx.Err() != nil {
				return callErr
			}
			c.logger.Debug("model call failed, retrying", zap.Error(callErr))
			return retry.RetryableError(callErr)
		}
		if resp == nil || len(resp.Choices) == 0 {
			return errors.New("empty response")
		}
		content = resp.Choices[0].Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrService, err)
	}
	return content, nil
}

// headerTransport adds fixed headers expected by hosted routers
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
