package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notecomb/notecomb/internal/config"
	"github.com/notecomb/notecomb/internal/db"
	"github.com/notecomb/notecomb/internal/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig(t.TempDir())
	if err := os.MkdirAll(cfg.NotesDir, 0o755); err != nil {
		t.Fatalf("mkdir notes: %v", err)
	}
	return cfg
}

func addNote(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(cfg.NotesDir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}
}

func TestExtractAll_StampsRecordDates(t *testing.T) {
	cfg := testConfig(t)
	addNote(t, cfg, "2025-01-14.md", "Dated note. #work\n")
	addNote(t, cfg, "scratch.md", "Undated note. #work\n")

	repo := repoFor(cfg, "")
	notes, err := repo.ListNotes("", "", true)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	files, warnings := extractAll(context.Background(), repo, notes)
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(files) != 2 {
		t.Fatalf("files = %d", len(files))
	}
	for _, f := range files {
		for _, r := range f.Records {
			if r.Date != f.Date {
				t.Errorf("%s: record date = %q, file date = %q", f.Path, r.Date, f.Date)
			}
		}
	}
	if files[0].Date != "2025-01-14" || files[0].Records[0].Date != "2025-01-14" {
		t.Errorf("dated record = %+v", files[0].Records[0])
	}
	if files[1].Date != "" {
		t.Errorf("undated file date = %q", files[1].Date)
	}
}

func TestCompile_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	addNote(t, cfg, "2025-01-14.md", "Prepared slides. #work\n")
	addNote(t, cfg, "2025-01-15.md", "## Sprint Planning #work #sprint\n\nDiscussed roadmap.\n")

	out, err := Compile(context.Background(), nil, cfg, CompileInput{Query: "#work"})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if out.RecordCount != 2 || out.FileCount != 2 {
		t.Errorf("counts = %d records, %d files", out.RecordCount, out.FileCount)
	}
	if out.OutputPath != filepath.Join(cfg.CompilationsDir, "work.md") {
		t.Errorf("default output path = %q", out.OutputPath)
	}

	data, err := os.ReadFile(out.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "# Compilation: #work\n") {
		t.Errorf("missing title:\n%s", text)
	}
	if !strings.Contains(text, "## 2025-01-14\n\nPrepared slides. #work") {
		t.Errorf("missing first day:\n%s", text)
	}
	if !strings.Contains(text, "## 2025-01-15\n\nDiscussed roadmap.") {
		t.Errorf("missing second day:\n%s", text)
	}
}

func TestCompile_RecordsHistory(t *testing.T) {
	cfg := testConfig(t)
	addNote(t, cfg, "2025-01-15.md", "Did things. #work\n")

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	defer database.Close()

	out, err := Compile(context.Background(), database, cfg, CompileInput{Query: "work AND work"})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	runs, err := db.ListCompilations(database, "", 0)
	if err != nil {
		t.Fatalf("ListCompilations: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(runs))
	}
	if runs[0].ID != out.RunID || runs[0].Query != "#work AND #work" || runs[0].RecordCount != 1 {
		t.Errorf("history row = %+v", runs[0])
	}
}

func TestCompile_DateRange(t *testing.T) {
	cfg := testConfig(t)
	addNote(t, cfg, "2025-01-10.md", "Too old. #work\n")
	addNote(t, cfg, "2025-01-15.md", "In range. #work\n")

	out, err := Compile(context.Background(), nil, cfg, CompileInput{
		Query: "#work",
		From:  "2025-01-12",
		To:    "2025-01-20",
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	data, _ := os.ReadFile(out.OutputPath)
	if strings.Contains(string(data), "Too old.") {
		t.Errorf("out-of-range note included:\n%s", data)
	}
	if !strings.Contains(string(data), "In range.") {
		t.Errorf("in-range note missing:\n%s", data)
	}
}

func TestCompile_UnreadableFileIsWarning(t *testing.T) {
	cfg := testConfig(t)
	addNote(t, cfg, "2025-01-14.md", "Fine. #work\n")
	bad := filepath.Join(cfg.NotesDir, "2025-01-15.md")
	if err := os.Symlink(filepath.Join(cfg.NotesDir, "missing.md"), bad); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	out, err := Compile(context.Background(), nil, cfg, CompileInput{Query: "#work"})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], bad) {
		t.Errorf("warnings = %v", out.Warnings)
	}
	if out.RecordCount != 1 {
		t.Errorf("record count = %d", out.RecordCount)
	}
}

func TestCompile_NoMatchesWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	addNote(t, cfg, "2025-01-15.md", "Tagged. #work\n")

	_, err := Compile(context.Background(), nil, cfg, CompileInput{Query: "#absent"})
	if !errors.Is(err, errors.ErrNoMatches) {
		t.Fatalf("expected NO_MATCHES, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.CompilationsDir, "absent.md")); !os.IsNotExist(statErr) {
		t.Error("no output file may exist after a zero-match compile")
	}
}

func TestCompile_BadQuery(t *testing.T) {
	cfg := testConfig(t)
	_, err := Compile(context.Background(), nil, cfg, CompileInput{Query: "(#a OR"})
	if !errors.Is(err, errors.ErrQuerySyntax) {
		t.Fatalf("expected QUERY_SYNTAX, got %v", err)
	}
}

func TestCompile_BadDate(t *testing.T) {
	cfg := testConfig(t)
	_, err := Compile(context.Background(), nil, cfg, CompileInput{Query: "#a", From: "15/01/2025"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestCompile_ExplicitOutputAndGrouped(t *testing.T) {
	cfg := testConfig(t)
	addNote(t, cfg, "2025-01-15.md", "A task. #work\n")
	target := filepath.Join(t.TempDir(), "custom", "out.md")

	out, err := Compile(context.Background(), nil, cfg, CompileInput{
		Query:  "#work",
		Format: "grouped",
		Output: target,
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if out.OutputPath != target {
		t.Errorf("output path = %q", out.OutputPath)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "## From: 2025-01-15.md") {
		t.Errorf("missing file group heading:\n%s", data)
	}
}
