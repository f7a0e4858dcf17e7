package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notecomb/notecomb/internal/config"
	"github.com/notecomb/notecomb/internal/db"
)

// testSetup creates a temporary database, config, and notes dir for testing.
func testSetup(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig(t.TempDir())
	if err := os.MkdirAll(cfg.NotesDir, 0o755); err != nil {
		t.Fatalf("mkdir notes: %v", err)
	}
	return database, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return tc.Text
}

func TestHandleCompile(t *testing.T) {
	database, cfg := testSetup(t)
	note := filepath.Join(cfg.NotesDir, "2025-01-15.md")
	if err := os.WriteFile(note, []byte("Shipped it. #work\n"), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}

	h := NewHandlers(database, cfg)
	res, err := h.HandleCompile(context.Background(), makeRequest(map[string]any{
		"query": "#work",
	}))
	if err != nil {
		t.Fatalf("HandleCompile: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}

	var out struct {
		RecordCount int    `json:"record_count"`
		OutputPath  string `json:"output_path"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if out.RecordCount != 1 {
		t.Errorf("record_count = %d", out.RecordCount)
	}
	if _, err := os.Stat(out.OutputPath); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestHandleCompile_ErrorCodes(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)

	res, err := h.HandleCompile(context.Background(), makeRequest(map[string]any{
		"query": "(#a OR",
	}))
	if err != nil {
		t.Fatalf("HandleCompile: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if text := resultText(t, res); !strings.Contains(text, "QUERY_SYNTAX") {
		t.Errorf("error payload = %s", text)
	}
}

func TestHandleCompile_BadArgumentType(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)

	res, err := h.HandleCompile(context.Background(), makeRequest(map[string]any{
		"query": 42,
	}))
	if err != nil {
		t.Fatalf("HandleCompile: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if text := resultText(t, res); !strings.Contains(text, "INVALID_REQUEST") {
		t.Errorf("error payload = %s", text)
	}
}

func TestHandleListTagsAndRetag(t *testing.T) {
	database, cfg := testSetup(t)
	note := filepath.Join(cfg.NotesDir, "2025-01-15.md")
	if err := os.WriteFile(note, []byte("Alpha. #work\n\nBeta. #home\n"), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}
	h := NewHandlers(database, cfg)

	res, err := h.HandleListTags(context.Background(), makeRequest(nil))
	if err != nil || res.IsError {
		t.Fatalf("HandleListTags: %v, %+v", err, res)
	}
	if text := resultText(t, res); !strings.Contains(text, "work") || !strings.Contains(text, "home") {
		t.Errorf("tags payload = %s", text)
	}

	res, err = h.HandleRetag(context.Background(), makeRequest(map[string]any{
		"old": "work", "new": "job",
	}))
	if err != nil || res.IsError {
		t.Fatalf("HandleRetag: %v, %+v", err, res)
	}
	data, _ := os.ReadFile(note)
	if !strings.Contains(string(data), "#job") {
		t.Errorf("note not retagged: %q", data)
	}
}

func TestHandleHistory(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)

	res, err := h.HandleHistory(context.Background(), makeRequest(nil))
	if err != nil || res.IsError {
		t.Fatalf("HandleHistory: %v, %+v", err, res)
	}
	if text := resultText(t, res); !strings.Contains(text, "total") {
		t.Errorf("history payload = %s", text)
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"notes_compile", "bogus_tool"})
	if len(unknown) != 1 || unknown[0] != "bogus_tool" {
		t.Errorf("unknown = %v", unknown)
	}
}

func TestNewServer_DisabledTools(t *testing.T) {
	database, cfg := testSetup(t)
	cfg.DisabledTools = []string{"notes_retag"}
	if s := NewServer(database, cfg, "test"); s == nil {
		t.Fatal("NewServer returned nil")
	}
}
