package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB wraps a pgx connection pool. Statements run through DB execute in
// pool autocommit mode; use NewSession for transactional work.
type DB struct {
	pool   *pgxpool.Pool
	config *Config
	logger *zap.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for statement echoing.
func WithLogger(logger *zap.Logger) Option {
	return func(db *DB) { db.logger = logger }
}

// WithEcho turns on statement logging regardless of configuration.
func WithEcho() Option {
	return func(db *DB) { db.config.Echo = true }
}

// Connect opens a connection pool from config and verifies it with a
// ping.
func Connect(ctx context.Context, config *Config, opts ...Option) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newDB(pool, config, opts...), nil
}

// ConnectURL opens a connection pool from a connection URL.
func ConnectURL(ctx context.Context, url string, opts ...Option) (*DB, error) {
	cfg := DefaultConfig()
	cfg.URL = url
	return Connect(ctx, cfg, opts...)
}

// NewDB wraps an existing pool. The pool stays owned by the caller;
// Close still closes it.
func NewDB(pool *pgxpool.Pool, opts ...Option) *DB {
	return newDB(pool, DefaultConfig(), opts...)
}

func newDB(pool *pgxpool.Pool, config *Config, opts ...Option) *DB {
	cfg := *config
	db := &DB{
		pool:   pool,
		config: &cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Pool returns the underlying pgxpool.Pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Begin starts a new transaction on the pool.
func (db *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	return db.pool.Begin(ctx)
}

// NewSession opens a unit of work on this DB.
func (db *DB) NewSession() *Session {
	return &Session{db: db}
}

// Exec executes a statement outside any session and returns the number
// of rows affected. Useful for DDL and one-off SQL.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	start := time.Now()
	tag, err := db.pool.Exec(ctx, sql, args...)
	db.echo(sql, args, start, err)
	if err != nil {
		return 0, &PersistenceError{Op: "exec", Err: err}
	}
	return tag.RowsAffected(), nil
}

// Query executes a query outside any session.
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := db.pool.Query(ctx, sql, args...)
	db.echo(sql, args, start, err)
	if err != nil {
		return nil, &PersistenceError{Op: "query", Err: err}
	}
	return rows, nil
}

// QueryRow executes a query outside any session, returning at most one
// row.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	start := time.Now()
	row := db.pool.QueryRow(ctx, sql, args...)
	db.echo(sql, args, start, nil)
	return row
}

// echo logs a completed statement when echo mode is on.
func (db *DB) echo(sql string, args []any, start time.Time, err error) {
	if !db.config.Echo {
		return
	}
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Any("args", args),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		db.logger.Error("statement failed", append(fields, zap.Error(err))...)
		return
	}
	db.logger.Info("statement", fields...)
}
