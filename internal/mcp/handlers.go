package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notecomb/notecomb/internal/config"
	"github.com/notecomb/notecomb/internal/errors"
	"github.com/notecomb/notecomb/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// CompileRequest represents the arguments for notes_compile.
type CompileRequest struct {
	Query          string `json:"query"`
	From           string `json:"from,omitempty"`
	To             string `json:"to,omitempty"`
	Format         string `json:"format,omitempty"`
	IncludeContext bool   `json:"include_context,omitempty"`
	Output         string `json:"output,omitempty"`
	NotesDir       string `json:"notes_dir,omitempty"`
}

// ListTagsRequest represents the arguments for notes_list_tags.
type ListTagsRequest struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	NotesDir string `json:"notes_dir,omitempty"`
}

// ListNotesRequest represents the arguments for notes_list.
type ListNotesRequest struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	NotesDir string `json:"notes_dir,omitempty"`
}

// RetagRequest represents the arguments for notes_retag.
type RetagRequest struct {
	Old      string `json:"old"`
	New      string `json:"new"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	DryRun   bool   `json:"dry_run,omitempty"`
	NotesDir string `json:"notes_dir,omitempty"`
}

// HistoryRequest represents the arguments for notes_history.
type HistoryRequest struct {
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// HandleCompile handles the notes_compile tool call.
func (h *Handlers) HandleCompile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CompileRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Compile(ctx, h.db, h.cfg, ops.CompileInput{
		Query:          input.Query,
		From:           input.From,
		To:             input.To,
		Format:         input.Format,
		IncludeContext: input.IncludeContext,
		Output:         input.Output,
		NotesDir:       input.NotesDir,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListTags handles the notes_list_tags tool call.
func (h *Handlers) HandleListTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListTagsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListTags(ctx, h.cfg, ops.ListTagsInput{
		From:     input.From,
		To:       input.To,
		NotesDir: input.NotesDir,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListNotes handles the notes_list tool call.
func (h *Handlers) HandleListNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListNotesRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListNotes(ctx, h.cfg, ops.ListNotesInput{
		From:     input.From,
		To:       input.To,
		Limit:    input.Limit,
		NotesDir: input.NotesDir,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRetag handles the notes_retag tool call.
func (h *Handlers) HandleRetag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RetagRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Retag(ctx, h.cfg, ops.RetagInput{
		Old:      input.Old,
		New:      input.New,
		From:     input.From,
		To:       input.To,
		DryRun:   input.DryRun,
		NotesDir: input.NotesDir,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the notes_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.History(ctx, h.db, ops.HistoryInput{
		Query: input.Query,
		Limit: input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if appErr, ok := err.(*errors.NotecombError); ok {
		errorObj := map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
			"status":  appErr.Status,
		}
		if appErr.Code != errors.ErrInternal && appErr.Details != nil {
			errorObj["details"] = appErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
