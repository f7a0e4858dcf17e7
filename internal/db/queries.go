package db

import (
	"database/sql"
	"fmt"
)

// Compilation is one recorded compilation run.
type Compilation struct {
	ID           string `json:"id"`
	Query        string `json:"query"`
	Format       string `json:"format"`
	OutputPath   string `json:"output_path"`
	RecordCount  int    `json:"record_count"`
	FileCount    int    `json:"file_count"`
	WarningCount int    `json:"warning_count"`
	CreatedAt    int64  `json:"created_at"` // unix seconds
}

// InsertCompilation records one compilation run.
func InsertCompilation(db *sql.DB, c *Compilation) error {
	_, err := db.Exec(`
		INSERT INTO compilations
		  (id, query, format, output_path, record_count, file_count, warning_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Query, c.Format, c.OutputPath, c.RecordCount, c.FileCount, c.WarningCount, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert compilation: %w", err)
	}
	return nil
}

// ListCompilations returns recorded runs, newest first. A non-empty query
// filters to runs with that exact query string. limit <= 0 means no limit.
func ListCompilations(db *sql.DB, query string, limit int) ([]*Compilation, error) {
	sqlQuery := `
		SELECT id, query, format, output_path, record_count, file_count, warning_count, created_at
		FROM compilations`
	var args []any
	if query != "" {
		sqlQuery += " WHERE query = ?"
		args = append(args, query)
	}
	sqlQuery += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list compilations: %w", err)
	}
	defer rows.Close()

	var out []*Compilation
	for rows.Next() {
		c := &Compilation{}
		if err := rows.Scan(&c.ID, &c.Query, &c.Format, &c.OutputPath,
			&c.RecordCount, &c.FileCount, &c.WarningCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan compilation: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate compilations: %w", err)
	}
	return out, nil
}
