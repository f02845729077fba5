// Package commands implements the keel CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/keel-orm/keel/pkg/session"
)

var (
	// Global flags
	dbURL      string
	limit      int
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "keel",
	Short: "Keel - Thin entity layer for PostgreSQL",
	Long: `Keel maps tagged Go structs to PostgreSQL tables and gives each model a
generic repository with create, update, save, delete, and upsert operations.

The CLI inspects a live database:
  keel tables              # list tables with row counts
  keel describe students   # show a table's columns and keys
  keel show students       # print a table's rows as a grid`,
	Version: "0.3.1",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (defaults to DATABASE_URL / PG* environment)")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 0, "Maximum rows to fetch (0 = all)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Echo SQL statements")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// connect opens a pool from the --db flag, falling back to the environment.
func connect(ctx context.Context) (*session.DB, error) {
	config, err := session.Load("")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dbURL != "" {
		config.URL = dbURL
	}

	var opts []session.Option
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithLogger(logger), session.WithEcho())
	}

	db, err := session.Connect(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
