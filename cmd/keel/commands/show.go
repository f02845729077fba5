package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/keel-orm/keel/cmd/keel/output"
	"github.com/keel-orm/keel/pkg/session"
)

// showCmd prints a table's rows as a grid.
var showCmd = &cobra.Command{
	Use:   "show <table>",
	Short: "Print a table's rows as a grid",
	Long: `Fetch a table's rows and render them in a bordered grid, in the
table's column order. Use --limit to cap the number of rows.

Examples:
  keel show students
  keel show enrollments --limit 20
  keel show courses --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShow(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(ctx context.Context, tableName string) error {
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	headers, rows, err := fetchRows(ctx, db, tableName, limit)
	if err != nil {
		return fmt.Errorf("failed to read table %s: %w", tableName, err)
	}

	if jsonOutput {
		records := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			record := make(map[string]any, len(headers))
			for i, name := range headers {
				record[name] = row[i]
			}
			records = append(records, record)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	fmt.Println(tableName)
	fmt.Println(output.Grid(headers, formatCells(rows)))
	output.Muted("%d row(s)", len(rows))
	return nil
}

// fetchRows reads up to limit rows from a table, returning column names and
// raw values in the table's column order. A limit of zero or less means all
// rows.
func fetchRows(ctx context.Context, db *session.DB, tableName string, limit int) ([]string, [][]any, error) {
	sql := fmt.Sprintf("SELECT * FROM %s", pgx.Identifier{tableName}.Sanitize())
	if limit > 0 {
		sql = fmt.Sprintf("%s LIMIT %d", sql, limit)
	}

	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	headers := make([]string, len(fds))
	for i, fd := range fds {
		headers[i] = fd.Name
	}

	var values [][]any
	for rows.Next() {
		row, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}
		values = append(values, row)
	}
	return headers, values, rows.Err()
}

func formatCells(rows [][]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatCell(v)
		}
		out[i] = cells
	}
	return out
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
