package mcpserver

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"datadesk/internal/service"
)

// Server exposes the record list and settings to AI agents over MCP.
type Server struct {
	mcp      *server.MCPServer
	records  *service.RecordService
	settings *service.SettingsService
	approver Approver
}

// Deps holds everything the MCP server calls into.
type Deps struct {
	Records  *service.RecordService
	Settings *service.SettingsService
	// Approver gates destructive tools; nil rejects them.
	Approver Approver
	Version  string
}

// New creates the server and registers all tools.
func New(deps Deps) *Server {
	approver := deps.Approver
	if approver == nil {
		approver = DenyAll{}
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		records:  deps.Records,
		settings: deps.Settings,
		approver: approver,
	}

	s.mcp = server.NewMCPServer(
		"datadesk-mcp",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerRecordTools()
	s.registerSettingsTools()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server, e.g. for an in-process client.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
