package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

type binderFake struct {
	err error
}

func (f binderFake) BindTemplate(_ context.Context, templateID, documentID string) (*domain.Binding, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Binding{
		TemplateID: templateID,
		DocumentID: documentID,
		Values:     map[string]string{"province": "Cebu"},
	}, nil
}

type scorerFake struct{}

func (scorerFake) ScoreTemplate(context.Context, string, string) (*domain.CompletenessScore, error) {
	return &domain.CompletenessScore{Percentage: 0.75}, nil
}

type rescorerFake struct {
	got string
}

func (f *rescorerFake) RequestRescore(_ context.Context, templateID string) error {
	f.got = templateID
	return nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected tool result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewServerRequiresBinder(t *testing.T) {
	if _, err := NewServer(&Ports{}, nil); !errors.Is(err, ErrMissingBinder) {
		t.Fatalf("expected ErrMissingBinder, got %v", err)
	}
}

func TestNewServerRegistersToolsForPresentPorts(t *testing.T) {
	s, err := NewServer(&Ports{Binder: binderFake{}, Scorer: scorerFake{}}, quietLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	got := strings.Join(s.Tools(), ",")
	if got != "bind_template,score_template" {
		t.Fatalf("unexpected tools %q", got)
	}
}

func TestHandleBindReturnsBindingJSON(t *testing.T) {
	s, err := NewServer(&Ports{Binder: binderFake{}}, quietLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	res, err := s.handleBind(context.Background(), callRequest("bind_template", map[string]any{
		"template_id": "tpl-1",
		"document_id": "doc-1",
	}))
	if err != nil {
		t.Fatalf("handleBind: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var binding domain.Binding
	if err := json.Unmarshal([]byte(resultText(t, res)), &binding); err != nil {
		t.Fatalf("decode binding: %v", err)
	}
	if binding.Values["province"] != "Cebu" || binding.DocumentID != "doc-1" {
		t.Fatalf("unexpected binding %#v", binding)
	}
}

func TestHandleBindMissingArgumentIsToolError(t *testing.T) {
	s, _ := NewServer(&Ports{Binder: binderFake{}}, quietLogger())

	res, err := s.handleBind(context.Background(), callRequest("bind_template", map[string]any{
		"template_id": "tpl-1",
	}))
	if err != nil {
		t.Fatalf("expected tool-level error, got %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected IsError result")
	}
}

func TestHandleBindMapsErrors(t *testing.T) {
	notFound := domain.WrapError(domain.ErrTemplateNotFound, "get template", errors.New("id=x"))
	s, _ := NewServer(&Ports{Binder: binderFake{err: notFound}}, quietLogger())
	args := map[string]any{"template_id": "x", "document_id": "d"}

	res, err := s.handleBind(context.Background(), callRequest("bind_template", args))
	if err != nil || !res.IsError {
		t.Fatalf("expected not found as tool error, got res=%v err=%v", res, err)
	}

	s, _ = NewServer(&Ports{Binder: binderFake{err: errors.New("db down")}}, quietLogger())
	if _, err := s.handleBind(context.Background(), callRequest("bind_template", args)); err == nil {
		t.Fatalf("expected protocol error for unexpected failure")
	}
}

func TestHandleRescoreQueues(t *testing.T) {
	rescorer := &rescorerFake{}
	s, _ := NewServer(&Ports{Binder: binderFake{}, Rescorer: rescorer}, quietLogger())

	res, err := s.handleRescore(context.Background(), callRequest("request_rescore", map[string]any{"template_id": "tpl-3"}))
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure res=%v err=%v", res, err)
	}
	if rescorer.got != "tpl-3" {
		t.Fatalf("expected tpl-3 queued, got %q", rescorer.got)
	}
}
