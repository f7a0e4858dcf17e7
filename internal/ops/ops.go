// Package ops implements the application's operations: compiling tagged
// fragments, listing tags and notes, renaming tags, and querying the
// compilation history. Each operation takes an Input struct and returns an
// Output struct so the CLI and MCP surfaces share one implementation.
package ops

import (
	"time"

	"github.com/notecomb/notecomb/internal/config"
	"github.com/notecomb/notecomb/internal/errors"
	"github.com/notecomb/notecomb/internal/journal"
)

// Pagination limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// extractWorkers bounds concurrent per-file extraction.
const extractWorkers = 8

// validateDate checks an optional ISO date bound.
func validateDate(field, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return "", errors.NewInvalidRequest(field + " must be an ISO date (YYYY-MM-DD)")
	}
	return value, nil
}

// repoFor resolves the notes repository for an operation, preferring an
// explicit override over the configured directory.
func repoFor(cfg *config.Config, override string) *journal.Repository {
	dir := override
	if dir == "" {
		dir = cfg.NotesDir
	}
	return journal.NewRepository(dir)
}
