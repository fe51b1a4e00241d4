package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"chatrelay/internal/openai"
	"chatrelay/internal/source"
	"chatrelay/internal/storage"
)

type fakeMCPCompleter struct {
	captured   openai.ChatRequest
	reply      string
	configured bool
}

func (f *fakeMCPCompleter) ChatComplete(_ context.Context, req openai.ChatRequest) (string, error) {
	f.captured = req
	return f.reply, nil
}

func (f *fakeMCPCompleter) Configured() bool { return f.configured }

func newTestMCPDeps(t *testing.T) (MCPDeps, *fakeMCPCompleter) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	completer := &fakeMCPCompleter{reply: "ok", configured: true}
	return MCPDeps{
		Completer:    completer,
		Sources:      source.NewStore(db),
		DefaultModel: "gpt-4o",
	}, completer
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func TestMCPSendMessageIncludesSelectedSources(t *testing.T) {
	deps, completer := newTestMCPDeps(t)

	src, err := deps.Sources.Add(source.Source{Name: "notes", Text: "selected source body text"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := deps.Sources.Select(src.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}

	handler := mcpSendMessage(deps)
	result, err := handler(context.Background(), makeCallToolRequest("send_message",
		map[string]interface{}{"message": "hi"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var msgs []openai.ChatMessage
	if err := json.Unmarshal(completer.captured.Messages, &msgs); err != nil {
		t.Fatalf("unmarshaling captured messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %+v, want system + user", msgs)
	}
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "selected source body text") {
		t.Errorf("context message = %+v, want selected source text", msgs[0])
	}
	if msgs[1].Content != "hi" {
		t.Errorf("user message = %+v", msgs[1])
	}
}

func TestMCPSendMessageWithoutSelection(t *testing.T) {
	deps, completer := newTestMCPDeps(t)

	handler := mcpSendMessage(deps)
	result, err := handler(context.Background(), makeCallToolRequest("send_message",
		map[string]interface{}{"message": "hi"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); got != "ok" {
		t.Errorf("reply = %q, want completer reply", got)
	}

	var msgs []openai.ChatMessage
	if err := json.Unmarshal(completer.captured.Messages, &msgs); err != nil {
		t.Fatalf("unmarshaling captured messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != "user" {
		t.Errorf("messages = %+v, want the user message only", msgs)
	}
}
