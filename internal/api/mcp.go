package api

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"chatrelay/internal/composer"
	"chatrelay/internal/memory"
	"chatrelay/internal/openai"
	"chatrelay/internal/search"
	"chatrelay/internal/source"
)

// MCPCompleter abstracts the vendor chat call for the MCP layer.
type MCPCompleter interface {
	ChatComplete(ctx context.Context, req openai.ChatRequest) (string, error)
	Configured() bool
}

// MCPSearcher abstracts web search for the MCP layer.
type MCPSearcher interface {
	Browse(ctx context.Context, query string, urls []string) (search.Result, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Completer MCPCompleter
	Searcher  MCPSearcher
	Sources   *source.Store
	Memory    *memory.Manager

	// DefaultModel is used when a tool call names no model.
	DefaultModel string
}

// NewMCPServer creates an MCP server with all chatrelay tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"chatrelay",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("chatrelay — local chat relay with source management, user memory, and web search."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("send_message",
			mcp.WithDescription("Send a message to the configured chat model and return the reply."),
			mcp.WithString("message", mcp.Description("The message to send"), mcp.Required()),
			mcp.WithString("model", mcp.Description("Model to use (defaults to the configured model)")),
		),
		mcpSendMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("search_web",
			mcp.WithDescription("Search the web and return a summary with cited sources."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithArray("urls", mcp.Description("Optional URLs to read instead of searching")),
		),
		mcpSearchWeb(deps),
	)

	s.AddTool(
		mcp.NewTool("add_source",
			mcp.WithDescription("Store a named text source that can be selected into chat context."),
			mcp.WithString("name", mcp.Description("Source name"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Source text"), mcp.Required()),
		),
		mcpAddSource(deps),
	)

	s.AddTool(
		mcp.NewTool("list_sources",
			mcp.WithDescription("List stored sources with their selection state."),
		),
		mcpListSources(deps),
	)

	s.AddTool(
		mcp.NewTool("remember",
			mcp.WithDescription("Add facts or topics of interest to the user's persistent memory."),
			mcp.WithArray("facts", mcp.Description("Facts to remember")),
			mcp.WithArray("topics", mcp.Description("Topics of interest")),
		),
		mcpRemember(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://memory",
			"User Memory",
			mcp.WithResourceDescription("Persisted user preferences, facts, and topics as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceMemory(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"chatrelay://sources",
			"Stored Sources",
			mcp.WithResourceDescription("All stored sources (names and previews)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSources(deps),
	)

	return s
}

func mcpSendMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcp.NewToolResultError("message is required"), nil
		}
		if !deps.Completer.Configured() {
			return mcp.NewToolResultError("no API key configured"), nil
		}

		model := req.GetString("model", deps.DefaultModel)
		model = openai.ResolveModel(model)

		messages, err := json.Marshal([]openai.ChatMessage{
			{Role: "user", Content: message},
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal message: %v", err)), nil
		}

		// Selected sources ride along the same way the HTTP chat path
		// injects them.
		if selected, serr := deps.Sources.Selected(); serr == nil {
			if block := composer.Assemble(nil, selected); block != "" {
				messages, err = composer.Compose(messages, block)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("failed to compose context: %v", err)), nil
				}
			}
		}

		reply, err := deps.Completer.ChatComplete(ctx, openai.ChatRequest{
			Model:    model,
			Messages: messages,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
		}
		return mcp.NewToolResultText(reply), nil
	}
}

func mcpSearchWeb(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}
		urls := req.GetStringSlice("urls", nil)

		result, err := deps.Searcher.Browse(ctx, query, urls)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}

func mcpAddSource(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		src, err := deps.Sources.Add(source.Source{Name: name, Text: text})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to save: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Stored source %s", src.ID)), nil
	}
}

func mcpListSources(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sources, err := deps.Sources.List()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list sources: %v", err)), nil
		}
		selectedIDs, err := deps.Sources.SelectedIDs()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read selection: %v", err)), nil
		}
		selected := make(map[string]bool, len(selectedIDs))
		for _, id := range selectedIDs {
			selected[id] = true
		}

		type sourceSummary struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Preview  string `json:"preview"`
			Selected bool   `json:"selected"`
		}

		summaries := make([]sourceSummary, len(sources))
		for i, src := range sources {
			summaries[i] = sourceSummary{
				ID:       src.ID,
				Name:     src.Name,
				Preview:  previewText(src.Text, 200),
				Selected: selected[src.ID],
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal sources: %v", err)), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}

func mcpRemember(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		facts := req.GetStringSlice("facts", nil)
		topics := req.GetStringSlice("topics", nil)
		if len(facts) == 0 && len(topics) == 0 {
			return mcp.NewToolResultError("nothing to remember: provide facts or topics"), nil
		}

		if _, err := deps.Memory.Update(facts, topics, nil); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to update memory: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Remembered %d facts and %d topics", len(facts), len(topics))), nil
	}
}

func mcpResourceMemory(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Memory.Get())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal memory: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceSources(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sources, err := deps.Sources.List()
		if err != nil {
			return nil, fmt.Errorf("failed to list sources: %w", err)
		}

		type sourceEntry struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Preview string `json:"preview"`
		}

		entries := make([]sourceEntry, len(sources))
		for i, src := range sources {
			entries[i] = sourceEntry{
				ID:      src.ID,
				Name:    src.Name,
				Preview: previewText(src.Text, 200),
			}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sources: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func previewText(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}
