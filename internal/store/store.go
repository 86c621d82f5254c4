// Package store is the persistence gateway for ingestion runs.
//
// A Store opens batch transactions. Within a Tx every row is written inside
// its own savepoint, so a failing row rolls back alone while the rows before
// it stay part of the batch. Constraint violations are classified into
// ErrDuplicate, ErrForeignKey and ErrCheck; a failed savepoint control
// statement is a *SavepointError and ends the run.
//
// Backends are chosen by URL scheme:
//
//	postgres://, postgresql://  pgx connection pool
//	sqlite://, file:            SQLite through database/sql
//	mysql://                    MySQL through database/sql
//	memory://                   in-process store for dry runs and tests
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/libingest/internal/schema"
)

// Store is a handle on the relational store.
type Store interface {
	// Begin opens a batch transaction.
	Begin(ctx context.Context) (Tx, error)

	// Migrate creates any missing tables.
	Migrate(ctx context.Context) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Tx is a batch transaction.
type Tx interface {
	Queries

	// Savepoint runs fn inside a savepoint. When fn returns an error the
	// savepoint is rolled back and fn's error is returned; otherwise it is
	// released. Errors from the savepoint statements themselves are
	// *SavepointError.
	Savepoint(ctx context.Context, fn func(q Queries) error) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Queries is the data-access surface used by ingestion.
type Queries interface {
	InsertLibrary(ctx context.Context, lib schema.Library) (int64, error)
	InsertAuthor(ctx context.Context, a schema.Author) (int64, error)
	InsertBook(ctx context.Context, b schema.Book) (int64, error)
	InsertMember(ctx context.Context, m schema.Member) (int64, error)

	LibraryExists(ctx context.Context, id int64) (bool, error)
	FindAuthor(ctx context.Context, key schema.AuthorKey) (id int64, found bool, err error)
	FindBookByISBN(ctx context.Context, isbn string) (id int64, found bool, err error)
	FindOrCreateCategory(ctx context.Context, name string) (int64, error)

	LinkBookAuthor(ctx context.Context, bookID, authorID int64) error
	LinkBookCategory(ctx context.Context, bookID, categoryID int64) error

	RecordRun(ctx context.Context, run Run) error
}

// Run is the audit record of one ingestion run.
type Run struct {
	ID            string
	Source        string // "bulk" or "api"
	StartedAt     time.Time
	FinishedAt    time.Time
	Inserted      int
	Duplicate     int
	Failed        int
	Target        int // Requested book count for API runs; zero for bulk runs
	TargetReached bool
}

// PoolOptions tunes connection pooling. Zero values keep driver defaults.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects to the store named by rawURL.
func Open(ctx context.Context, rawURL string, opts PoolOptions) (Store, error) {
	switch scheme := urlScheme(rawURL); scheme {
	case "postgres", "postgresql":
		return OpenPostgres(ctx, rawURL, opts)
	case "sqlite", "sqlite3", "file":
		return OpenSQLite(ctx, sqlitePath(rawURL))
	case "mysql":
		return OpenMySQL(ctx, strings.TrimPrefix(rawURL, "mysql://"), opts)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported database URL scheme %q", scheme)
	}
}

// Backend returns the backend name for rawURL, for logging.
func Backend(rawURL string) string {
	switch scheme := urlScheme(rawURL); scheme {
	case "postgres", "postgresql":
		return "postgres"
	case "sqlite", "sqlite3", "file":
		return "sqlite"
	default:
		return scheme
	}
}

func urlScheme(rawURL string) string {
	i := strings.Index(rawURL, ":")
	if i < 0 {
		return ""
	}
	return strings.ToLower(rawURL[:i])
}

// sqlitePath turns sqlite:///path/to.db or file:to.db into a file path.
func sqlitePath(rawURL string) string {
	for _, prefix := range []string{"sqlite3://", "sqlite://", "file:"} {
		if len(rawURL) >= len(prefix) && strings.EqualFold(rawURL[:len(prefix)], prefix) {
			rawURL = rawURL[len(prefix):]
			break
		}
	}
	if i := strings.Index(rawURL, "?"); i >= 0 {
		rawURL = rawURL[:i]
	}
	return rawURL
}
