package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry   = 1062
	mysqlNoReferencedRow  = 1452
	mysqlRowIsReferenced  = 1451
	mysqlCheckViolated    = 3819
	mysqlColumnCannotNull = 1048
)

var sqliteDialect = dialect{
	name:         "sqlite",
	bind:         questionMarks,
	date:         dateString,
	classify:     classifySQLite,
	insertIgnore: "INSERT OR IGNORE",
}

var mysqlDialect = dialect{
	name:         "mysql",
	bind:         questionMarks,
	date:         dateString,
	classify:     classifyMySQL,
	insertIgnore: "INSERT IGNORE",
}

// classifySQLite maps SQLite constraint errors to *ConstraintError.
func classifySQLite(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return &ConstraintError{Kind: ErrDuplicate, Err: err}
	case sqlite3.ErrConstraintForeignKey:
		return &ConstraintError{Kind: ErrForeignKey, Err: err}
	case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
		return &ConstraintError{Kind: ErrCheck, Err: err}
	}
	return err
}

// classifyMySQL maps MySQL constraint errors to *ConstraintError.
func classifyMySQL(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}
	switch myErr.Number {
	case mysqlDuplicateEntry:
		return &ConstraintError{Kind: ErrDuplicate, Err: err}
	case mysqlNoReferencedRow, mysqlRowIsReferenced:
		return &ConstraintError{Kind: ErrForeignKey, Err: err}
	case mysqlCheckViolated, mysqlColumnCannotNull:
		return &ConstraintError{Kind: ErrCheck, Err: err}
	}
	return err
}

// SQL is a Store over database/sql, used for SQLite and MySQL.
type SQL struct {
	db  *sql.DB
	d   dialect
	ddl []string
}

// OpenSQLite opens (creating if needed) the SQLite database at path with
// foreign keys enforced.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps the batch transaction and its savepoints on
	// one SQLite handle.
	db.SetMaxOpenConns(1)

	s := &SQL{db: db, d: sqliteDialect, ddl: sqliteDDL}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMySQL connects to MySQL. dsn is a go-sql-driver DSN such as
// "user:pass@tcp(localhost:3306)/library".
func OpenMySQL(ctx context.Context, dsn string, opts PoolOptions) (*SQL, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql DSN: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		db.SetMaxIdleConns(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(opts.MaxConnLifetime)
	}
	if opts.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.MaxConnIdleTime)
	}

	s := &SQL{db: db, d: mysqlDialect, ddl: mysqlDDL}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Ping implements Store.
func (s *SQL) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.d.name, err)
	}
	return nil
}

// Close implements Store.
func (s *SQL) Close() error { return s.db.Close() }

// Migrate implements Store.
func (s *SQL) Migrate(ctx context.Context) error {
	return migrate(ctx, sqlConn{db: s.db, d: s.d}, s.ddl)
}

// Begin implements Store.
func (s *SQL) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	c := sqlConn{db: tx, d: s.d}
	return &sqlTx{
		sqlQueries: sqlQueries{c: c, d: s.d},
		sp:         savepoints{c: c},
		tx:         tx,
	}, nil
}

type sqlTx struct {
	sqlQueries
	sp savepoints
	tx *sql.Tx
}

func (t *sqlTx) Savepoint(ctx context.Context, fn func(Queries) error) error {
	return t.sp.run(ctx, t, fn)
}

func (t *sqlTx) Commit(ctx context.Context) error { return t.tx.Commit() }

// Rollback is a no-op after Commit.
func (t *sqlTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// sqlExecer is satisfied by *sql.DB and *sql.Tx.
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlConn struct {
	db sqlExecer
	d  dialect
}

func (c sqlConn) exec(ctx context.Context, query string, args ...any) error {
	_, err := c.db.ExecContext(ctx, query, args...)
	return c.d.classify(err)
}

func (c sqlConn) scanOne(ctx context.Context, query string, args []any, dest ...any) (bool, error) {
	err := c.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, c.d.classify(err)
	}
	return true, nil
}

func (c sqlConn) insert(ctx context.Context, query, _ string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, c.d.classify(err)
	}
	return res.LastInsertId()
}
