package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes for constraint violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

var postgresDialect = dialect{
	name:     "postgres",
	bind:     dollarPlaceholders,
	date:     dateValue,
	classify: classifyPostgres,
	afterExplicitID: `SELECT setval(pg_get_serial_sequence('library', 'library_id'),
		GREATEST((SELECT MAX(library_id) FROM library), 1))`,
	insertIgnore:     "INSERT",
	onConflictIgnore: " ON CONFLICT DO NOTHING",
}

// classifyPostgres maps integrity violations to *ConstraintError.
func classifyPostgres(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return &ConstraintError{Kind: ErrDuplicate, Constraint: pgErr.ConstraintName, Err: err}
	case pgForeignKeyViolation:
		return &ConstraintError{Kind: ErrForeignKey, Constraint: pgErr.ConstraintName, Err: err}
	case pgCheckViolation:
		return &ConstraintError{Kind: ErrCheck, Constraint: pgErr.ConstraintName, Err: err}
	case pgNotNullViolation:
		return &ConstraintError{Kind: ErrCheck, Constraint: pgErr.ColumnName, Err: err}
	}
	return err
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to the database at url.
func OpenPostgres(ctx context.Context, url string, opts PoolOptions) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

// Close implements Store.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Migrate implements Store.
func (p *Postgres) Migrate(ctx context.Context) error {
	return migrate(ctx, pgConn{db: p.pool}, postgresDDL)
}

// Begin implements Store.
func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	c := pgConn{db: tx}
	return &pgTx{
		sqlQueries: sqlQueries{c: c, d: postgresDialect},
		sp:         savepoints{c: c},
		tx:         tx,
	}, nil
}

type pgTx struct {
	sqlQueries
	sp savepoints
	tx pgx.Tx
}

func (t *pgTx) Savepoint(ctx context.Context, fn func(Queries) error) error {
	return t.sp.run(ctx, t, fn)
}

func (t *pgTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

// Rollback is a no-op after Commit.
func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// pgConn runs statements on a pool or transaction.
type pgConn struct {
	db DBTX
}

func (c pgConn) exec(ctx context.Context, query string, args ...any) error {
	_, err := c.db.Exec(ctx, query, args...)
	return classifyPostgres(err)
}

func (c pgConn) scanOne(ctx context.Context, query string, args []any, dest ...any) (bool, error) {
	err := c.db.QueryRow(ctx, query, args...).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classifyPostgres(err)
	}
	return true, nil
}

func (c pgConn) insert(ctx context.Context, query, idColumn string, args ...any) (int64, error) {
	var id int64
	if err := c.db.QueryRow(ctx, query+" RETURNING "+idColumn, args...).Scan(&id); err != nil {
		return 0, classifyPostgres(err)
	}
	return id, nil
}
