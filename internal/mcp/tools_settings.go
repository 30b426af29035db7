package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSettingsTools() {
	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Show the backend settings: selected backend, webhook URLs, table and file locations, reload schedule"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetSettings)

	s.mcp.AddTool(mcp.NewTool("set_webhooks",
		mcp.WithDescription("Switch to the webhook backend and set its load and save URLs"),
		mcp.WithString("loadUrl", mcp.Description("URL returning the record list (GET)"), mcp.Required()),
		mcp.WithString("saveUrl", mcp.Description("URL receiving mutations (POST)"), mcp.Required()),
	), s.handleSetWebhooks)
}

func (s *Server) handleGetSettings(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.settings.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return jsonResult(st)
}

func (s *Server) handleSetWebhooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	loadURL, _ := args["loadUrl"].(string)
	saveURL, _ := args["saveUrl"].(string)
	if loadURL == "" || saveURL == "" {
		return nil, fmt.Errorf("loadUrl and saveUrl are required")
	}
	st, err := s.settings.SetWebhooks(ctx, loadURL, saveURL)
	if err != nil {
		return nil, err
	}
	return jsonResult(st)
}
