// Package sessionstore persists the dashboard session document in Postgres.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goliatone/go-leads-dashboard/components/leads"
)

// DefaultTable stores one JSON document per key.
const DefaultTable = "leads_session_documents"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// DBTX is the subset of *pgxpool.Pool used by the store.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements leads.Storage on a single key/value table.
type Postgres struct {
	db    DBTX
	table string
}

var _ leads.Storage = (*Postgres)(nil)

// Connect opens a pool for dsn, pings it and prepares the table.
func Connect(ctx context.Context, dsn, table string) (*Postgres, *pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sessionstore: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("sessionstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("sessionstore: ping: %w", err)
	}
	store, err := New(ctx, pool, table)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}

// New wraps db and creates the table when missing. An empty table name uses DefaultTable.
func New(ctx context.Context, db DBTX, table string) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("sessionstore: database is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("sessionstore: invalid table name %q", table)
	}
	store := &Postgres{db: db, table: table}
	if _, err := db.Exec(ctx, store.createSQL()); err != nil {
		return nil, fmt.Errorf("sessionstore: create table: %w", err)
	}
	return store, nil
}

// Load returns the document stored under key.
func (p *Postgres) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRow(ctx, "SELECT value FROM "+p.table+" WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sessionstore: load %s: %w", key, err)
	}
	return value, true, nil
}

// Save upserts value under key.
func (p *Postgres) Save(ctx context.Context, key string, value []byte) error {
	_, err := p.db.Exec(ctx,
		"INSERT INTO "+p.table+" (key, value, updated_at) VALUES ($1, $2, now()) "+
			"ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()",
		key, value)
	if err != nil {
		return fmt.Errorf("sessionstore: save %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, "DELETE FROM "+p.table+" WHERE key = $1", key); err != nil {
		return fmt.Errorf("sessionstore: delete %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) createSQL() string {
	return "CREATE TABLE IF NOT EXISTS " + p.table + " (" +
		"key TEXT PRIMARY KEY, " +
		"value JSONB NOT NULL, " +
		"updated_at TIMESTAMPTZ NOT NULL DEFAULT now())"
}
