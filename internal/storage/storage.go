// Package storage opens and drives the underlying relational engine. It
// binds the named placeholders of generated SQL to driver arguments, applies
// schema DDL, and provides transactions. SQLite is the primary provider;
// Postgres is reachable through the pgx database/sql driver.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"persistkit/internal/query"
	"persistkit/internal/schema"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/mattn/go-sqlite3"
)

// Providers accepted by Open.
const (
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
)

// Store is one logical connection to the storage engine. Connections are
// pooled by database/sql; concurrent callers each acquire their own.
type Store struct {
	db      *sql.DB
	dialect schema.Dialect
}

// Open connects to the named provider. SQLite paths get WAL journaling and
// a busy timeout unless the DSN already carries options.
func Open(provider, dsn string) (*Store, error) {
	switch provider {
	case "", ProviderSQLite:
		if dsn == "" {
			dsn = "./persistkit.db"
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Store{db: db, dialect: schema.SQLite{}}, nil
	case ProviderPostgres:
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Store{db: db, dialect: schema.Postgres{}}, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", provider)
	}
}

// Dialect returns the dialect the store was opened with.
func (s *Store) Dialect() schema.Dialect { return s.dialect }

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema applies the CREATE TABLE and CREATE INDEX statements for the
// given descriptors, in order, plus the shared audit-trail table when any
// descriptor is audit-capable. Statements are idempotent.
func (s *Store) EnsureSchema(ctx context.Context, descs ...*schema.Descriptor) error {
	audited := false
	for _, d := range descs {
		if _, err := s.db.ExecContext(ctx, d.CreateTableSQL(s.dialect)); err != nil {
			return fmt.Errorf("create table %s: %w", d.Table, err)
		}
		for _, stmt := range d.CreateIndexSQL(s.dialect) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create index on %s: %w", d.Table, err)
			}
		}
		audited = audited || d.Audit
	}
	if audited {
		if _, err := s.db.ExecContext(ctx, schema.AuditTableSQL(s.dialect)); err != nil {
			return fmt.Errorf("create table %s: %w", schema.AuditTable, err)
		}
	}
	return nil
}

// Exec runs a write statement and returns the affected-row count.
func (s *Store) Exec(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	text, args, err := s.bind(sqlText, params)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, text, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query runs a read statement.
func (s *Store) Query(ctx context.Context, sqlText string, params query.Params) (*sql.Rows, error) {
	text, args, err := s.bind(sqlText, params)
	if err != nil {
		return nil, err
	}
	return s.db.QueryContext(ctx, text, args...)
}

// QueryRow runs a single-row read statement.
func (s *Store) QueryRow(ctx context.Context, sqlText string, params query.Params) (*sql.Row, error) {
	text, args, err := s.bind(sqlText, params)
	if err != nil {
		return nil, err
	}
	return s.db.QueryRowContext(ctx, text, args...), nil
}

// WithTx runs fn inside a transaction, committing on nil and rolling back
// on error.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx, store: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Tx is a transaction handle with the same binding behavior as Store.
type Tx struct {
	tx    *sql.Tx
	store *Store
}

// Exec runs a write statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	text, args, err := t.store.bind(sqlText, params)
	if err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, text, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// QueryRow runs a single-row read inside the transaction.
func (t *Tx) QueryRow(ctx context.Context, sqlText string, params query.Params) (*sql.Row, error) {
	text, args, err := t.store.bind(sqlText, params)
	if err != nil {
		return nil, err
	}
	return t.tx.QueryRowContext(ctx, text, args...), nil
}

// TableExists reports whether the named table is present.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var probe string
	switch s.dialect.(type) {
	case schema.Postgres:
		probe = "SELECT table_name FROM information_schema.tables WHERE table_name = @name"
	default:
		probe = "SELECT name FROM sqlite_master WHERE type = 'table' AND name = @name"
	}
	row, err := s.QueryRow(ctx, probe, query.Params{{Name: "name", Value: table}})
	if err != nil {
		return false, err
	}
	var name string
	switch err := row.Scan(&name); err {
	case nil:
		return true, nil
	case sql.ErrNoRows:
		return false, nil
	default:
		return false, err
	}
}
