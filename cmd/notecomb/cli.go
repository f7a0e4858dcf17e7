package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/notecomb/notecomb/internal/config"
	"github.com/notecomb/notecomb/internal/errors"
	"github.com/notecomb/notecomb/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "notecomb",
		Usage:   "Tagged-note compiler for dated markdown journals",
		Version: Version,
		Commands: []*cli.Command{
			compileCmd(db, cfg),
			tagsCmd(cfg),
			notesCmd(cfg),
			retagCmd(cfg),
			historyCmd(db),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// compileCmd creates the compile command.
func compileCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "Compile fragments matching a boolean tag query into one document",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Inclusive start date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "to", Usage: "Inclusive end date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output layout: chronological|grouped"},
			&cli.BoolFlag{Name: "context", Usage: "Prefix fragments with their section heading"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path"},
			&cli.StringFlag{Name: "notes-dir", Usage: "Notes directory override"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("query argument is required"))
			}

			output, err := ops.Compile(c.Context, db, cfg, ops.CompileInput{
				Query:          c.Args().First(),
				From:           c.String("from"),
				To:             c.String("to"),
				Format:         c.String("format"),
				IncludeContext: c.Bool("context"),
				Output:         c.String("output"),
				NotesDir:       c.String("notes-dir"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// tagsCmd creates the tags command.
func tagsCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List every tag used in the notes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Inclusive start date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "to", Usage: "Inclusive end date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "notes-dir", Usage: "Notes directory override"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListTags(c.Context, cfg, ops.ListTagsInput{
				From:     c.String("from"),
				To:       c.String("to"),
				NotesDir: c.String("notes-dir"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// notesCmd creates the notes command.
func notesCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "List note files in date order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Inclusive start date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "to", Usage: "Inclusive end date (YYYY-MM-DD)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum number of notes"},
			&cli.StringFlag{Name: "notes-dir", Usage: "Notes directory override"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListNotes(c.Context, cfg, ops.ListNotesInput{
				From:     c.String("from"),
				To:       c.String("to"),
				Limit:    c.Int("limit"),
				NotesDir: c.String("notes-dir"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// retagCmd creates the retag command.
func retagCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "retag",
		Usage:     "Rename a tag across the notes",
		ArgsUsage: "<old> <new>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Inclusive start date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "to", Usage: "Inclusive end date (YYYY-MM-DD)"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Report changes without writing"},
			&cli.StringFlag{Name: "notes-dir", Usage: "Notes directory override"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("old and new tag arguments are required"))
			}

			output, err := ops.Retag(c.Context, cfg, ops.RetagInput{
				Old:      c.Args().Get(0),
				New:      c.Args().Get(1),
				From:     c.String("from"),
				To:       c.String("to"),
				DryRun:   c.Bool("dry-run"),
				NotesDir: c.String("notes-dir"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded compilation runs, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filter to runs with this exact query"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum number of runs"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, db, ops.HistoryInput{
				Query: c.String("query"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// outputJSON prints a result as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if appErr, ok := err.(*errors.NotecombError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
