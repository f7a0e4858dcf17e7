package ops

import (
	"context"
	"sort"

	"github.com/notecomb/notecomb/internal/config"
	"github.com/notecomb/notecomb/internal/journal"
	"github.com/notecomb/notecomb/internal/tags"
)

// ListTagsInput contains parameters for the ListTags operation.
type ListTagsInput struct {
	From     string // inclusive ISO date bound, optional
	To       string // inclusive ISO date bound, optional
	NotesDir string
}

// TagInfo is one tag with the number of notes using it.
type TagInfo struct {
	Name  string `json:"name"`
	Notes int    `json:"notes"`
}

// ListTagsOutput contains the result of the ListTags operation.
type ListTagsOutput struct {
	Tags  []TagInfo `json:"tags"`
	Total int       `json:"total"`
}

// ListTags scans the notes in range and returns every tag in use, sorted,
// with per-note usage counts. Tags inside code regions are ignored.
// Unreadable notes are skipped.
func ListTags(ctx context.Context, cfg *config.Config, input ListTagsInput) (*ListTagsOutput, error) {
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

	counts := countTags(ctx, repo, notes)

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &ListTagsOutput{Total: len(names), Tags: make([]TagInfo, 0, len(names))}
	for _, name := range names {
		out.Tags = append(out.Tags, TagInfo{Name: name, Notes: counts[name]})
	}
	return out, nil
}

func countTags(ctx context.Context, repo *journal.Repository, notes []journal.NoteEntry) map[string]int {
	counts := make(map[string]int)
	for _, note := range notes {
		if ctx.Err() != nil {
			break
		}
		data, err := repo.Read(note.Path)
		if err != nil {
			continue
		}
		for _, tag := range tags.CollectTags(data) {
			counts[tag]++
		}
	}
	return counts
}
