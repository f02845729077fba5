package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/keel-orm/keel/cmd/keel/output"
	"github.com/keel-orm/keel/pkg/session"
)

// tablesCmd lists the tables in the public schema.
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List database tables",
	Long: `List every table in the public schema with its row count.

Examples:
  keel tables --db postgres://localhost/school
  keel tables --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTables(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

type tableInfo struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

func runTables(ctx context.Context) error {
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	names, err := listTables(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	if len(names) == 0 {
		output.Warning("No tables found in database")
		return nil
	}

	infos := make([]tableInfo, 0, len(names))
	for _, name := range names {
		var count int64
		sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{name}.Sanitize())
		if err := db.QueryRow(ctx, sql).Scan(&count); err != nil {
			return fmt.Errorf("failed to count rows in %s: %w", name, err)
		}
		infos = append(infos, tableInfo{Name: name, Rows: count})
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	output.Section(fmt.Sprintf("Database Tables (%d)", len(infos)))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tROWS")
	_, _ = fmt.Fprintln(w, "----\t----")
	for _, info := range infos {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", info.Name, info.Rows)
	}
	return w.Flush()
}

// listTables returns the names of every base table in the public schema.
func listTables(ctx context.Context, db *session.DB) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}
