package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"datadesk/internal/domain"
)

func (s *Server) registerRecordTools() {
	s.mcp.AddTool(mcp.NewTool("load_records",
		mcp.WithDescription("Load the record list from the configured backend. Returns every record with its index; later tools address records by that index."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleLoadRecords)

	s.mcp.AddTool(mcp.NewTool("list_columns",
		mcp.WithDescription("List the editable columns of the loaded records (system fields such as id and created_at are hidden)"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListColumns)

	s.mcp.AddTool(mcp.NewTool("create_record",
		mcp.WithDescription("Create a record. The backend persists it first; it is added to the list only when the save succeeds."),
		mcp.WithString("record", mcp.Description("Record as a JSON object {field: value, ...}"), mcp.Required()),
	), s.handleCreateRecord)

	s.mcp.AddTool(mcp.NewTool("update_record",
		mcp.WithDescription("Update the record at index. Fields in the patch replace existing ones; other fields are kept."),
		mcp.WithNumber("index", mcp.Description("Record index from load_records"), mcp.Required()),
		mcp.WithString("record", mcp.Description("Patch as a JSON object {field: value, ...}"), mcp.Required()),
	), s.handleUpdateRecord)

	s.mcp.AddTool(mcp.NewTool("delete_record",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete the record at index from the backend. Requires user approval."),
		mcp.WithNumber("index", mcp.Description("Record index from load_records"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteRecord)
}

// ensureLoaded fetches the list once so index-based tools work in a fresh session.
func (s *Server) ensureLoaded(ctx context.Context) error {
	if len(s.records.Records()) > 0 {
		return nil
	}
	if _, err := s.records.Fetch(ctx); err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	return nil
}

func (s *Server) handleLoadRecords(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.records.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return jsonResult(map[string]any{
		"count":   len(records),
		"records": recordsView(records),
	})
}

func (s *Server) handleListColumns(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return jsonResult(s.records.Columns())
}

func (s *Server) handleCreateRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := recordArg(req.GetArguments(), "record")
	if err != nil {
		return nil, err
	}
	saved, err := s.records.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return jsonResult(map[string]any{
		"index":  len(s.records.Records()) - 1,
		"record": saved,
	})
}

func (s *Server) handleUpdateRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	index, err := indexArg(args, "index")
	if err != nil {
		return nil, err
	}
	patch, err := recordArg(args, "record")
	if err != nil {
		return nil, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	saved, err := s.records.Update(ctx, index, patch)
	if err != nil {
		return nil, fmt.Errorf("update record %d: %w", index, err)
	}
	return jsonResult(map[string]any{"index": index, "record": saved})
}

func (s *Server) handleDeleteRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := indexArg(req.GetArguments(), "index")
	if err != nil {
		return nil, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	records := s.records.Records()
	if index >= len(records) {
		return nil, fmt.Errorf("row %d: %w", index, domain.ErrIndexOutOfRange)
	}

	approved, err := s.approver.Request(ctx, "delete_record", describe(index, records[index]))
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	if err := s.records.Delete(ctx, index); err != nil {
		return nil, fmt.Errorf("delete record %d: %w", index, err)
	}
	return textResult(fmt.Sprintf("Record %d deleted", index)), nil
}

// describe summarizes a record for the approval prompt.
func describe(index int, rec domain.Record) string {
	for _, f := range rec.Fields() {
		if f.Value.String() != "" && !isSystem(f.Name) {
			return fmt.Sprintf("Delete record %d (%s: %s)", index, f.Name, f.Value.String())
		}
	}
	return fmt.Sprintf("Delete record %d", index)
}

func isSystem(name string) bool {
	for _, s := range domain.SystemFields {
		if s == name {
			return true
		}
	}
	return false
}
