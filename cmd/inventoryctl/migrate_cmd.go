package main

import (
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/configuration"
)

type migrationRow struct {
	Version   int64  `json:"version"`
	Path      string `json:"path"`
	State     string `json:"state"`
	AppliedAt string `json:"applied_at,omitempty"`
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}
	cmd.AddCommand(
		newMigrateRunCmd("up", "Apply all pending migrations", func(p *goose.Provider, cmd *cobra.Command) error {
			results, err := p.Up(cmd.Context())
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results...)
		}),
		newMigrateRunCmd("down", "Roll back the latest migration", func(p *goose.Provider, cmd *cobra.Command) error {
			result, err := p.Down(cmd.Context())
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), result)
		}),
		newMigrateRunCmd("status", "List migrations and their state", func(p *goose.Provider, cmd *cobra.Command) error {
			statuses, err := p.Status(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]migrationRow, 0, len(statuses))
			for _, s := range statuses {
				row := migrationRow{Version: s.Source.Version, Path: s.Source.Path, State: string(s.State)}
				if !s.AppliedAt.IsZero() {
					row.AppliedAt = s.AppliedAt.UTC().Format(time.RFC3339)
				}
				rows = append(rows, row)
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		}),
	)
	return cmd
}

func newMigrateRunCmd(use, short string, run func(*goose.Provider, *cobra.Command) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			app, err := loadApp(conf, &application.ApplicationOptions{})
			if err != nil {
				return err
			}
			fsys, err := migrationFS(app.Migrations().Sources())
			if err != nil {
				return err
			}

			db, err := sql.Open("postgres", conf.Database.Opts)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
			if err != nil {
				return fmt.Errorf("create migration provider: %w", err)
			}
			return run(provider, cmd)
		},
	}
}

// migrationFS returns the directory holding the registered migrations.
// Versions live in a single goose table, so only one source is accepted.
func migrationFS(sources []application.MigrationSource) (fs.FS, error) {
	if len(sources) != 1 {
		return nil, fmt.Errorf("expected exactly one migration source, got %d", len(sources))
	}
	sub, err := fs.Sub(sources[0].FS, sources[0].Dir)
	if err != nil {
		return nil, fmt.Errorf("open migration dir %q: %w", sources[0].Dir, err)
	}
	return sub, nil
}

func printResults(w io.Writer, results ...*goose.MigrationResult) error {
	rows := make([]map[string]any, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		row := map[string]any{
			"version":     r.Source.Version,
			"path":        r.Source.Path,
			"direction":   r.Direction,
			"duration_ms": r.Duration.Milliseconds(),
		}
		if r.Error != nil {
			row["error"] = r.Error.Error()
		}
		rows = append(rows, row)
	}
	return writeJSON(w, rows)
}
