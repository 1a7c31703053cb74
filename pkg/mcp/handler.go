package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ericksa/contractlens/internal/contract"
	"github.com/ericksa/contractlens/internal/service"
)

type SegmentInput struct {
	Text string `json:"text" jsonschema:"plain contract text to split into clauses"`
}

type AnalyzeInput struct {
	StandardID  string `json:"standard_id" jsonschema:"id of the stored standard contract, without extension"`
	CompanyText string `json:"company_text" jsonschema:"plain text of the counterparty contract"`
}

type CompareInput struct {
	StandardText string `json:"standard_text" jsonschema:"plain text of the model contract"`
	ProposalText string `json:"proposal_text" jsonschema:"plain text of the proposed contract"`
}

type ChatInput struct {
	Question        string                    `json:"question" jsonschema:"question about a previous analysis"`
	AnalysisContext []contract.AnalyzedClause `json:"analysis_context,omitempty" jsonschema:"clauses returned by contract_analyze"`
}

type ListStandardsInput struct{}

// Handler serves the contract tools over the MCP streamable HTTP transport
type Handler struct {
	analyzer *service.Analyzer
	logger   *zap.Logger
	server   *mcp.Server
	http     http.Handler
}

func NewHandler(analyzer *service.Analyzer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{analyzer: analyzer, logger: logger}
	h.initMCPServer()
	h.http = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return h.server }, nil)
	return h
}

func (h *Handler) initMCPServer() {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "contractlens",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "contract_segment",
		Description: "Split contract text into numbered clauses (Art. N, Clause N, 1.2. headings)",
	}, wrapTool(h, "contract_segment", h.segment))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "contract_analyze",
		Description: "Compare contract text clause by clause against a stored standard, with precedents and risk analysis for changed clauses",
	}, wrapTool(h, "contract_analyze", h.analyze))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "contract_compare",
		Description: "Line diff a proposal against a model contract and describe each modified or added region",
	}, wrapTool(h, "contract_compare", h.compare))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "contract_chat",
		Description: "Answer a question about a clause analysis",
	}, wrapTool(h, "contract_chat", h.chat))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "contract_standards",
		Description: "List the ids of the stored standard contracts",
	}, wrapTool(h, "contract_standards", h.listStandards))

	h.server = server
}

// Server exposes the underlying MCP server, for in-process transports
func (h *Handler) Server() *mcp.Server {
	return h.server
}

func (h *Handler) segment(ctx context.Context, in SegmentInput) (any, error) {
	return h.analyzer.Segment(ctx, in.Text), nil
}

func (h *Handler) analyze(ctx context.Context, in AnalyzeInput) (any, error) {
	if strings.TrimSpace(in.StandardID) == "" {
		return nil, errors.New("standard_id is required")
	}
	return h.analyzer.AnalyzeText(ctx, in.StandardID, in.CompanyText)
}

func (h *Handler) compare(ctx context.Context, in CompareInput) (any, error) {
	return h.analyzer.CompareText(ctx, in.StandardText, in.ProposalText), nil
}

func (h *Handler) chat(ctx context.Context, in ChatInput) (any, error) {
	if strings.TrimSpace(in.Question) == "" {
		return nil, errors.New("question is required")
	}
	return h.analyzer.Chat(ctx, contract.ChatRequest{Question: in.Question, AnalysisContext: in.AnalysisContext}), nil
}

func (h *Handler) listStandards(ctx context.Context, _ ListStandardsInput) (any, error) {
	return h.analyzer.ListStandards(ctx)
}

// wrapTool turns a typed operation into an MCP tool handler. Operation
// errors are reported in the result with IsError set, not as protocol errors.
func wrapTool[In any](h *Handler, toolName string, fn func(context.Context, In) (any, error)) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input In) (*mcp.CallToolResult, any, error) {
		out, err := fn(ctx, input)
		if err == nil {
			var data []byte
			data, err = json.Marshal(out)
			if err == nil {
				return &mcp.CallToolResult{
					Content: []mcp.Content{
						&mcp.TextContent{Text: string(data)},
					},
				}, nil, nil
			}
		}
		h.logger.Warn("tool call failed", zap.String("tool", toolName), zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: err.Error()},
			},
		}, nil, nil
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.server == nil {
		http.Error(w, "MCP server not initialized", http.StatusInternalServerError)
		return
	}
	h.http.ServeHTTP(w, r)
}
