// Package journal locates dated note files on disk and handles reading
// them and atomically writing compilation output.
package journal

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/notecomb/notecomb/internal/errors"
)

// NoteEntry is one note file with its associated date.
type NoteEntry struct {
	Path string `json:"path"`
	Date string `json:"date,omitempty"` // ISO date, empty for undated notes
}

var dateNameRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.md$`)

// Repository reads and writes notes under a root directory.
type Repository struct {
	root string
}

func NewRepository(root string) *Repository {
	return &Repository{root: root}
}

func (r *Repository) Root() string { return r.root }

// ListNotes returns the markdown notes under the root, in ascending date
// order with undated notes last. Files named YYYY-MM-DD.md carry that date;
// other .md files are undated. from and to are inclusive ISO date bounds
// applied to dated notes only; empty means unbounded. includeUndated keeps
// undated notes in the result.
func (r *Repository) ListNotes(from, to string, includeUndated bool) ([]NoteEntry, error) {
	dirEntries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, errors.NewSourceRead(r.root, err)
	}

	var notes []NoteEntry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".md") {
			continue
		}
		entry := NoteEntry{Path: filepath.Join(r.root, de.Name())}
		if m := dateNameRe.FindStringSubmatch(de.Name()); m != nil {
			entry.Date = m[1]
		}
		if entry.Date == "" {
			if !includeUndated {
				continue
			}
		} else {
			// ISO dates compare correctly as strings
			if from != "" && entry.Date < from {
				continue
			}
			if to != "" && entry.Date > to {
				continue
			}
		}
		notes = append(notes, entry)
	}

	sort.Slice(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.Date != b.Date {
			if a.Date == "" {
				return false
			}
			if b.Date == "" {
				return true
			}
			return a.Date < b.Date
		}
		return a.Path < b.Path
	})
	return notes, nil
}

// Read returns the raw bytes of one note.
func (r *Repository) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewSourceRead(path, err)
	}
	return data, nil
}

// Write replaces a note's content in place, atomically.
func (r *Repository) Write(path string, data []byte) error {
	return WriteAtomic(path, data)
}

// WriteAtomic writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe a partial write. Parent
// directories are created as needed.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewOutputWrite(path, err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp-"+ulid.Make().String())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewOutputWrite(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.NewOutputWrite(path, err)
	}
	return nil
}

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SanitizeFilename converts a query string into a usable file stem, e.g.
// "#work AND #sprint" -> "work-AND-sprint".
func SanitizeFilename(s string) string {
	out := unsafeNameRe.ReplaceAllString(s, "-")
	out = strings.Trim(out, "-")
	if out == "" {
		return "compilation"
	}
	return out
}
