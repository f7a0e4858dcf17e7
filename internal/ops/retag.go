package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/notecomb/notecomb/internal/config"
	"github.com/notecomb/notecomb/internal/errors"
	"github.com/notecomb/notecomb/internal/tags"
)

// RetagInput contains parameters for the Retag operation.
type RetagInput struct {
	Old      string // existing tag name, with or without "#"
	New      string // replacement tag name, with or without "#"
	From     string // inclusive ISO date bound, optional
	To       string // inclusive ISO date bound, optional
	DryRun   bool   // report what would change without writing
	NotesDir string
}

// RetagOutput contains the result of the Retag operation.
type RetagOutput struct {
	Old          string   `json:"old"`
	New          string   `json:"new"`
	Replacements int      `json:"replacements"`
	FilesChanged int      `json:"files_changed"`
	DryRun       bool     `json:"dry_run,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Retag renames a tag across the notes in range, case-insensitively,
// leaving occurrences inside code regions untouched. Each changed note is
// rewritten atomically. Unreadable notes become warnings.
func Retag(ctx context.Context, cfg *config.Config, input RetagInput) (*RetagOutput, error) {
	oldTag := strings.TrimPrefix(strings.TrimSpace(input.Old), "#")
	newTag := strings.TrimPrefix(strings.TrimSpace(input.New), "#")
	if !tags.ValidTagName(oldTag) {
		return nil, errors.NewInvalidRequest("old tag must match [A-Za-z0-9_-]+")
	}
	if !tags.ValidTagName(newTag) {
		return nil, errors.NewInvalidRequest("new tag must match [A-Za-z0-9_-]+")
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
	notes, err := repo.ListNotes(from, to, true)
	if err != nil {
		return nil, err
	}

	out := &RetagOutput{Old: oldTag, New: newTag, DryRun: input.DryRun}
	for _, note := range notes {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewInternal(err)
		}
		data, err := repo.Read(note.Path)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("skipped %s: %v", note.Path, err))
			continue
		}
		updated, count := tags.Retag(data, oldTag, newTag)
		if count == 0 {
			continue
		}
		if !input.DryRun {
			if err := repo.Write(note.Path, updated); err != nil {
				return nil, err
			}
		}
		out.Replacements += count
		out.FilesChanged++
	}
	return out, nil
}
