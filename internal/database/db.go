package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect identifies the SQL backend behind a DB.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = fmt.Errorf("record not found: %w", sql.ErrNoRows)
	// ErrUniqueViolation is returned when an insert or update hits a unique constraint.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrOptimisticLock is returned when a versioned row changed underneath the caller.
	ErrOptimisticLock = errors.New("optimistic locking conflict")
)

// DB wraps a sql.DB with the dialect it talks to.
type DB struct {
	*sql.DB
	dialect Dialect
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// New opens the database named by databaseURL.
// postgres:// and postgresql:// URLs use lib/pq. sqlite://path, sqlite::memory:,
// file: URIs and bare paths use the pure Go SQLite driver.
func New(databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, errors.New("database URL is required")
	}
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return openPostgres(databaseURL)
	}
	return OpenSQLite(sqlitePath(databaseURL))
}

func openPostgres(url string) (*DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &DB{DB: db, dialect: DialectPostgres}, nil
}

func sqlitePath(url string) string {
	switch {
	case url == "sqlite::memory:":
		return ":memory:"
	case strings.HasPrefix(url, "sqlite://"):
		return strings.TrimPrefix(url, "sqlite://")
	case strings.HasPrefix(url, "sqlite:"):
		return strings.TrimPrefix(url, "sqlite:")
	}
	return url
}

// OpenSQLite opens a SQLite database at path. ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	return &DB{DB: db, dialect: DialectSQLite}, nil
}

// Dialect returns the SQL backend in use.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// HealthCheck pings the database.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// RunInTx runs fn inside a transaction carried by the context passed to fn.
// Repositories called with that context join the transaction. Nested calls reuse the
// outer transaction.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// conn returns the executor for ctx: the surrounding transaction if any, else the pool.
func (db *DB) conn(ctx context.Context) *querier {
	var ex executor = db.DB
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		ex = tx
	}
	return &querier{ex: ex, positional: db.dialect == DialectSQLite}
}

// querier rewrites $N placeholders to ? for SQLite.
type querier struct {
	ex         executor
	positional bool
}

func (q *querier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query, args = q.rebind(query, args)
	return q.ex.ExecContext(ctx, query, args...)
}

func (q *querier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query, args = q.rebind(query, args)
	return q.ex.QueryContext(ctx, query, args...)
}

func (q *querier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	query, args = q.rebind(query, args)
	return q.ex.QueryRowContext(ctx, query, args...)
}

func (q *querier) rebind(query string, args []any) (string, []any) {
	if !q.positional {
		return query, args
	}
	return rebindPositional(query, args)
}

// rebindPositional replaces each $N with ? and orders args to match, so a
// placeholder may be referenced more than once.
func rebindPositional(query string, args []any) (string, []any) {
	var b strings.Builder
	b.Grow(len(query))
	out := make([]any, 0, len(args))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		n, err := strconv.Atoi(query[i+1 : j])
		if err != nil || n < 1 || n > len(args) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('?')
		out = append(out, args[n-1])
		i = j - 1
	}
	return b.String(), out
}

// translateError maps driver constraint errors onto package sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrUniqueViolation, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
