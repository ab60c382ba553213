// Package mcpadapter exposes template binding and scoring as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
)

const (
	serverName    = "civil-registry-forms"
	serverVersion = "0.1.0"
)

var ErrMissingBinder = errors.New("mcp: template binder is required")

// Ports aggregates the inbound use cases served as tools. Only Binder is
// mandatory; tools for nil ports are not registered.
type Ports struct {
	Binder   ports.TemplateBinder
	Scorer   ports.TemplateScorer
	Comparer ports.TemplateComparer
	Linter   ports.TemplateLinter
	Rescorer ports.RescoreRequester
}

func (p *Ports) Validate() error {
	if p == nil || p.Binder == nil {
		return ErrMissingBinder
	}
	return nil
}

type Server struct {
	ports  *Ports
	logger *slog.Logger
	mcp    *server.MCPServer
	tools  []string
}

func NewServer(p *Ports, logger *slog.Logger) (*Server, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ports:  p,
		logger: logger,
		mcp:    server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s, nil
}

// ServeStdio blocks serving JSON-RPC over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// Tools lists the registered tool names in registration order.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("bind_template",
		mcp.WithDescription("Fill a template's fields from an archived document's metadata"),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("template identifier")),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("document identifier")),
	), s.handleBind)

	if s.ports.Scorer != nil {
		s.addTool(mcp.NewTool("score_template",
			mcp.WithDescription("Weighted completeness of a template against a document type's field requirements"),
			mcp.WithString("template_id", mcp.Required(), mcp.Description("template identifier")),
			mcp.WithString("document_type_id", mcp.Required(), mcp.Description("document type identifier")),
		), s.handleScore)
	}
	if s.ports.Comparer != nil {
		s.addTool(mcp.NewTool("compare_templates",
			mcp.WithDescription("Compare field sets and quality of two templates"),
			mcp.WithString("template_a", mcp.Required(), mcp.Description("first template identifier")),
			mcp.WithString("template_b", mcp.Required(), mcp.Description("second template identifier")),
		), s.handleCompare)
	}
	if s.ports.Linter != nil {
		s.addTool(mcp.NewTool("lint_template",
			mcp.WithDescription("Report layout problems in a template's field definitions"),
			mcp.WithString("template_id", mcp.Required(), mcp.Description("template identifier")),
		), s.handleLint)
	}
	if s.ports.Rescorer != nil {
		s.addTool(mcp.NewTool("request_rescore",
			mcp.WithDescription("Queue a refresh of a template's cached completeness"),
			mcp.WithString("template_id", mcp.Required(), mcp.Description("template identifier")),
		), s.handleRescore)
	}
}

func (s *Server) handleBind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	documentID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	binding, err := s.ports.Binder.BindTemplate(ctx, templateID, documentID)
	if err != nil {
		return s.toolError("bind_template", err)
	}
	return jsonResult(binding)
}

func (s *Server) handleScore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	documentTypeID, err := req.RequireString("document_type_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	score, err := s.ports.Scorer.ScoreTemplate(ctx, templateID, documentTypeID)
	if err != nil {
		return s.toolError("score_template", err)
	}
	return jsonResult(score)
}

func (s *Server) handleCompare(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := req.RequireString("template_a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := req.RequireString("template_b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.ports.Comparer.CompareTemplates(ctx, a, b)
	if err != nil {
		return s.toolError("compare_templates", err)
	}
	return jsonResult(result)
}

func (s *Server) handleLint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.ports.Linter.LintTemplate(ctx, templateID)
	if err != nil {
		return s.toolError("lint_template", err)
	}
	return jsonResult(report)
}

func (s *Server) handleRescore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ports.Rescorer.RequestRescore(ctx, templateID); err != nil {
		return s.toolError("request_rescore", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("rescore queued for %s", templateID)), nil
}

// toolError reports caller errors inside the tool result and everything else
// as a protocol error.
func (s *Server) toolError(tool string, err error) (*mcp.CallToolResult, error) {
	switch {
	case domain.IsKind(err, domain.ErrNotFound), domain.IsKind(err, domain.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error()), nil
	case domain.IsKind(err, domain.ErrTemporary):
		s.logger.Warn("mcp_tool_temporary_failure", "tool", tool, "error", err)
		return mcp.NewToolResultError("temporarily unavailable, retry later"), nil
	default:
		s.logger.Error("mcp_tool_failed", "tool", tool, "error", err)
		return nil, fmt.Errorf("%s: %w", tool, err)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
