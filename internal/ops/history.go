package ops

import (
	"context"
	"database/sql"

	"github.com/notecomb/notecomb/internal/db"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Query string // filter to runs with this exact query string, optional
	Limit int
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Runs  []*db.Compilation `json:"runs"`
	Total int               `json:"total"`
}

// History lists recorded compilation runs, newest first.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	runs, err := db.ListCompilations(database, input.Query, limit)
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{Runs: runs, Total: len(runs)}, nil
}
