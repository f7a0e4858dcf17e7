package mcp

import (
	"context"
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/notecomb/notecomb/internal/config"
)

// Tool definitions

var compileToolDef = mcp.NewTool("notes_compile",
	mcp.WithDescription("Compile fragments matching a boolean tag query from the dated notes into a single markdown document. The query supports AND, OR, NOT, and parentheses; AND may be implicit between adjacent tags."),
	mcp.WithString("query", mcp.Required(),
		mcp.Description("Boolean tag expression, e.g. \"work AND sprint NOT meeting\"")),
	mcp.WithString("from",
		mcp.Description("Inclusive start date (YYYY-MM-DD)")),
	mcp.WithString("to",
		mcp.Description("Inclusive end date (YYYY-MM-DD)")),
	mcp.WithString("format",
		mcp.Description("Output layout: \"chronological\" (default) groups by date, \"grouped\" groups by source file")),
	mcp.WithBoolean("include_context",
		mcp.Description("Prefix each fragment with its originating section heading")),
	mcp.WithString("output",
		mcp.Description("Output file path; defaults to a query-derived name under the compilations directory")),
	mcp.WithString("notes_dir",
		mcp.Description("Notes directory; defaults to the configured one")),
)

var listTagsToolDef = mcp.NewTool("notes_list_tags",
	mcp.WithDescription("List every tag used in the notes, with per-note usage counts. Tags inside code blocks are ignored."),
	mcp.WithString("from",
		mcp.Description("Inclusive start date (YYYY-MM-DD)")),
	mcp.WithString("to",
		mcp.Description("Inclusive end date (YYYY-MM-DD)")),
	mcp.WithString("notes_dir",
		mcp.Description("Notes directory; defaults to the configured one")),
)

var listNotesToolDef = mcp.NewTool("notes_list",
	mcp.WithDescription("List note files in date order, undated notes last."),
	mcp.WithString("from",
		mcp.Description("Inclusive start date (YYYY-MM-DD)")),
	mcp.WithString("to",
		mcp.Description("Inclusive end date (YYYY-MM-DD)")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of notes to return")),
	mcp.WithString("notes_dir",
		mcp.Description("Notes directory; defaults to the configured one")),
)

var retagToolDef = mcp.NewTool("notes_retag",
	mcp.WithDescription("Rename a tag across the notes, case-insensitively. Occurrences inside code blocks are left alone."),
	mcp.WithString("old", mcp.Required(),
		mcp.Description("Existing tag name, with or without the leading #")),
	mcp.WithString("new", mcp.Required(),
		mcp.Description("Replacement tag name, with or without the leading #")),
	mcp.WithString("from",
		mcp.Description("Inclusive start date (YYYY-MM-DD)")),
	mcp.WithString("to",
		mcp.Description("Inclusive end date (YYYY-MM-DD)")),
	mcp.WithBoolean("dry_run",
		mcp.Description("Report what would change without writing")),
	mcp.WithString("notes_dir",
		mcp.Description("Notes directory; defaults to the configured one")),
)

var historyToolDef = mcp.NewTool("notes_history",
	mcp.WithDescription("List recorded compilation runs, newest first."),
	mcp.WithString("query",
		mcp.Description("Filter to runs with this exact query string")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of runs to return")),
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"notes_compile": {
		def:     compileToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCompile },
	},
	"notes_list_tags": {
		def:     listTagsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListTags },
	},
	"notes_list": {
		def:     listNotesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListNotes },
	},
	"notes_retag": {
		def:     retagToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRetag },
	},
	"notes_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the notecomb tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"notecomb",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, version string) error {
	s := NewServer(db, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
