package ops

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/notecomb/notecomb/internal/config"
	"github.com/notecomb/notecomb/internal/db"
	"github.com/notecomb/notecomb/internal/journal"
	"github.com/notecomb/notecomb/internal/tags"
)

// CompileInput contains parameters for the Compile operation.
type CompileInput struct {
	Query          string // boolean tag expression, required
	From           string // inclusive ISO date bound, optional
	To             string // inclusive ISO date bound, optional
	Format         string // "chronological" or "grouped"; default from config
	IncludeContext bool
	Output         string // output file; default under the compilations dir
	NotesDir       string // override the configured notes directory
}

// CompileOutput contains the result of the Compile operation.
type CompileOutput struct {
	RunID       string   `json:"run_id"`
	Query       string   `json:"query"`
	Format      string   `json:"format"`
	OutputPath  string   `json:"output_path"`
	RecordCount int      `json:"record_count"`
	FileCount   int      `json:"file_count"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Compile extracts tagged fragments from the notes in range, filters them
// through the query, and writes the compiled document atomically. Per-file
// read failures become warnings; query syntax errors, zero matches, and
// output write failures are fatal and leave no partial output. The run is
// recorded in the history database when one is provided.
func Compile(ctx context.Context, database *sql.DB, cfg *config.Config, input CompileInput) (*CompileOutput, error) {
	query, err := tags.ParseQuery(input.Query)
	if err != nil {
		return nil, err
	}

	formatName := input.Format
	if formatName == "" {
		formatName = cfg.DefaultFormat
	}
	format, err := tags.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}

	from, err := validateDate("from", input.From)
	if err != nil {
		return nil, err
	}
	to, err := validateDate("to", input.To)
	if err != nil {
		return nil, err
	}

	repo := repoFor(cfg, input.NotesDir)
	notes, err := repo.ListNotes(from, to, cfg.IncludeUndated)
	if err != nil {
		return nil, err
	}

	outputPath := input.Output
	if outputPath == "" {
		outputPath = filepath.Join(cfg.CompilationsDir, journal.SanitizeFilename(query.String())+".md")
	}

	files, warnings := extractAll(ctx, repo, notes)

	result, err := tags.Compile(files, tags.CompileOptions{
		Query:          query,
		Format:         format,
		IncludeContext: input.IncludeContext,
		OutputPath:     outputPath,
	})
	if err != nil {
		return nil, err
	}

	if err := journal.WriteAtomic(outputPath, []byte(result.Output)); err != nil {
		return nil, err
	}

	runID := ulid.Make().String()
	if database != nil {
		rec := &db.Compilation{
			ID:           runID,
			Query:        query.String(),
			Format:       formatName,
			OutputPath:   outputPath,
			RecordCount:  result.RecordCount,
			FileCount:    result.FileCount,
			WarningCount: len(warnings),
			CreatedAt:    time.Now().Unix(),
		}
		if err := db.InsertCompilation(database, rec); err != nil {
			warnings = append(warnings, fmt.Sprintf("history not recorded: %v", err))
		}
	}

	return &CompileOutput{
		RunID:       runID,
		Query:       query.String(),
		Format:      formatName,
		OutputPath:  outputPath,
		RecordCount: result.RecordCount,
		FileCount:   result.FileCount,
		Warnings:    warnings,
	}, nil
}

// extractAll reads and extracts every note, fanning out across files. Slot
// indexing keeps note order stable for the downstream sort and dedupe.
func extractAll(ctx context.Context, repo *journal.Repository, notes []journal.NoteEntry) ([]tags.FileRecords, []string) {
	slots := make([]tags.FileRecords, len(notes))
	readErrs := make([]error, len(notes))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(extractWorkers)
	for i, note := range notes {
		i, note := i, note
		g.Go(func() error {
			data, err := repo.Read(note.Path)
			if err != nil {
				readErrs[i] = err
				return nil
			}
			records := tags.Extract(data, note.Path)
			for ri := range records {
				records[ri].Date = note.Date
			}
			slots[i] = tags.FileRecords{
				Path:    note.Path,
				Date:    note.Date,
				Source:  data,
				Records: records,
			}
			return nil
		})
	}
	_ = g.Wait() // workers report failures through readErrs

	files := make([]tags.FileRecords, 0, len(notes))
	var warnings []string
	for i := range notes {
		if readErrs[i] != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", notes[i].Path, readErrs[i]))
			continue
		}
		files = append(files, slots[i])
	}
	return files, warnings
}
