package ops

import (
	"context"

	"github.com/notecomb/notecomb/internal/config"
	"github.com/notecomb/notecomb/internal/journal"
)

// ListNotesInput contains parameters for the ListNotes operation.
type ListNotesInput struct {
	From     string // inclusive ISO date bound, optional
	To       string // inclusive ISO date bound, optional
	Limit    int    // 0 means no limit
	NotesDir string
}

// ListNotesOutput contains the result of the ListNotes operation.
type ListNotesOutput struct {
	Notes []journal.NoteEntry `json:"notes"`
	Total int                 `json:"total"`
}

// ListNotes returns the note files in range, ascending by date with
// undated notes last.
func ListNotes(ctx context.Context, cfg *config.Config, input ListNotesInput) (*ListNotesOutput, error) {
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

	total := len(notes)
	if input.Limit > 0 && len(notes) > input.Limit {
		notes = notes[:input.Limit]
	}
	return &ListNotesOutput{Notes: notes, Total: total}, nil
}
