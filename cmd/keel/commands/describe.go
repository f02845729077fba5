package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/keel-orm/keel/pkg/session"
)

// describeCmd shows a table's columns and keys.
var describeCmd = &cobra.Command{
	Use:   "describe <table>",
	Short: "Describe a table's columns and keys",
	Long: `Query the PostgreSQL information_schema for a table's column
definitions, primary key, and foreign keys.

Examples:
  keel describe students
  keel describe enrollments --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDescribe(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

type columnInfo struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

type foreignKeyInfo struct {
	Column     string `json:"column"`
	References string `json:"references"`
	RefColumn  string `json:"ref_column"`
}

type tableDescription struct {
	Name        string           `json:"name"`
	Columns     []columnInfo     `json:"columns"`
	PrimaryKey  []string         `json:"primary_key,omitempty"`
	ForeignKeys []foreignKeyInfo `json:"foreign_keys,omitempty"`
}

func runDescribe(ctx context.Context, tableName string) error {
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	desc, err := describeTable(ctx, db, tableName)
	if err != nil {
		return fmt.Errorf("failed to describe table %s: %w", tableName, err)
	}
	if len(desc.Columns) == 0 {
		return fmt.Errorf("table %s not found", tableName)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	}

	printDescription(desc)
	return nil
}

func describeTable(ctx context.Context, db *session.DB, tableName string) (*tableDescription, error) {
	desc := &tableDescription{Name: tableName}

	columns, err := tableColumns(ctx, db, tableName)
	if err != nil {
		return nil, err
	}
	desc.Columns = columns

	pk, err := tablePrimaryKey(ctx, db, tableName)
	if err != nil {
		return nil, err
	}
	desc.PrimaryKey = pk

	fks, err := tableForeignKeys(ctx, db, tableName)
	if err != nil {
		return nil, err
	}
	desc.ForeignKeys = fks

	return desc, nil
}

func tableColumns(ctx context.Context, db *session.DB, tableName string) ([]columnInfo, error) {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := db.Query(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []columnInfo
	for rows.Next() {
		var col columnInfo
		var isNullable string
		if err := rows.Scan(&col.Name, &col.Type, &isNullable, &col.Default); err != nil {
			return nil, err
		}
		col.Nullable = isNullable == "YES"
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func tablePrimaryKey(ctx context.Context, db *session.DB, tableName string) ([]string, error) {
	query := `
		SELECT array_agg(kcu.column_name ORDER BY kcu.ordinal_position)
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = 'public'
			AND tc.table_name = $1
			AND tc.constraint_type = 'PRIMARY KEY'
		GROUP BY tc.constraint_name
	`

	var columns []string
	if err := db.QueryRow(ctx, query, tableName).Scan(&columns); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return columns, nil
}

func tableForeignKeys(ctx context.Context, db *session.DB, tableName string) ([]foreignKeyInfo, error) {
	query := `
		SELECT
			kcu.column_name,
			ccu.table_name,
			ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.table_schema = 'public'
			AND tc.table_name = $1
			AND tc.constraint_type = 'FOREIGN KEY'
		ORDER BY kcu.ordinal_position
	`

	rows, err := db.Query(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []foreignKeyInfo
	for rows.Next() {
		var fk foreignKeyInfo
		if err := rows.Scan(&fk.Column, &fk.References, &fk.RefColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}

func printDescription(desc *tableDescription) {
	fmt.Printf("Table: %s\n", desc.Name)
	fmt.Println(strings.Repeat("=", len(desc.Name)+7))
	fmt.Println()

	fmt.Println("Columns:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTYPE\tNULLABLE\tDEFAULT")
	_, _ = fmt.Fprintln(w, "----\t----\t--------\t-------")

	for _, col := range desc.Columns {
		nullable := "NO"
		if col.Nullable {
			nullable = "YES"
		}

		defaultVal := "NULL"
		if col.Default != nil {
			defaultVal = *col.Default
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", col.Name, col.Type, nullable, defaultVal)
	}
	_ = w.Flush()
	fmt.Println()

	if len(desc.PrimaryKey) > 0 {
		fmt.Printf("Primary Key: %s\n", strings.Join(desc.PrimaryKey, ", "))
		fmt.Println()
	}

	if len(desc.ForeignKeys) > 0 {
		fmt.Println("Foreign Keys:")
		for _, fk := range desc.ForeignKeys {
			fmt.Printf("  %s -> %s(%s)\n", fk.Column, fk.References, fk.RefColumn)
		}
	}
}
