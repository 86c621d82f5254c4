package store

// queries.go holds the SQL shared by the postgres, sqlite and mysql backends.
// Statements are written with '?' placeholders; a dialect rebinds them.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/libingest/internal/schema"
)

// conn is the statement runner behind a transaction.
type conn interface {
	exec(ctx context.Context, query string, args ...any) error
	// scanOne runs query and scans the first row into dest. found is false
	// when no row matched.
	scanOne(ctx context.Context, query string, args []any, dest ...any) (found bool, err error)
	// insert runs an INSERT and returns the generated key of idColumn.
	insert(ctx context.Context, query, idColumn string, args ...any) (int64, error)
}

// dialect adapts shared SQL to one backend.
type dialect struct {
	name string
	// bind rewrites '?' placeholders.
	bind func(query string) string
	// date converts a calendar date to a driver argument.
	date func(t time.Time) any
	// classify maps a driver error to a *ConstraintError when it is one.
	classify func(err error) error
	// afterExplicitID runs after inserting a library with an explicit id.
	afterExplicitID string
	// insertIgnore is the statement prefix for idempotent link inserts.
	insertIgnore string
	// onConflictIgnore is appended to idempotent link inserts.
	onConflictIgnore string
}

func questionMarks(query string) string { return query }

// dollarPlaceholders rewrites '?' to $1, $2, ...
func dollarPlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func dateString(t time.Time) any { return t.Format(schema.DateLayout) }

func dateValue(t time.Time) any { return t }

// sqlQueries implements Queries over a conn.
type sqlQueries struct {
	c conn
	d dialect
}

func (q *sqlQueries) optDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return q.d.date(*t)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (q *sqlQueries) InsertLibrary(ctx context.Context, lib schema.Library) (int64, error) {
	if lib.ID == nil {
		return q.c.insert(ctx, q.d.bind(`INSERT INTO library (name, campus_location, contact_email, phone_number)
			VALUES (?, ?, ?, ?)`), "library_id",
			lib.Name, lib.CampusLocation, lib.ContactEmail, lib.PhoneNumber)
	}

	_, err := q.c.insert(ctx, q.d.bind(`INSERT INTO library (library_id, name, campus_location, contact_email, phone_number)
		VALUES (?, ?, ?, ?, ?)`), "library_id",
		*lib.ID, lib.Name, lib.CampusLocation, lib.ContactEmail, lib.PhoneNumber)
	if err != nil {
		return 0, err
	}
	if q.d.afterExplicitID != "" {
		if err := q.c.exec(ctx, q.d.afterExplicitID); err != nil {
			return 0, fmt.Errorf("advance library id sequence: %w", err)
		}
	}
	return *lib.ID, nil
}

func (q *sqlQueries) InsertAuthor(ctx context.Context, a schema.Author) (int64, error) {
	return q.c.insert(ctx, q.d.bind(`INSERT INTO author (first_name, last_name, birth_date, nationality, biography)
		VALUES (?, ?, ?, ?, ?)`), "author_id",
		a.FirstName, a.LastName, q.optDate(a.BirthDate), nullIfEmpty(a.Nationality), nullIfEmpty(a.Biography))
}

func (q *sqlQueries) InsertBook(ctx context.Context, b schema.Book) (int64, error) {
	return q.c.insert(ctx, q.d.bind(`INSERT INTO book (title, isbn, publication_date, total_copies, available_copies, library_id)
		VALUES (?, ?, ?, ?, ?, ?)`), "book_id",
		b.Title, b.ISBN, q.optDate(b.PublicationDate), b.TotalCopies, b.AvailableCopies, b.LibraryID)
}

func (q *sqlQueries) InsertMember(ctx context.Context, m schema.Member) (int64, error) {
	return q.c.insert(ctx, q.d.bind(`INSERT INTO member (first_name, last_name, contact_email, phone_number, member_type, registration_date)
		VALUES (?, ?, ?, ?, ?, ?)`), "member_id",
		m.FirstName, m.LastName, m.ContactEmail, m.PhoneNumber, m.MemberType, q.d.date(m.RegistrationDate))
}

func (q *sqlQueries) LibraryExists(ctx context.Context, id int64) (bool, error) {
	var one int
	return q.c.scanOne(ctx, q.d.bind(`SELECT 1 FROM library WHERE library_id = ?`), []any{id}, &one)
}

func (q *sqlQueries) FindAuthor(ctx context.Context, key schema.AuthorKey) (int64, bool, error) {
	var id int64
	if key.BirthDate == "" {
		found, err := q.c.scanOne(ctx, q.d.bind(`SELECT author_id FROM author
			WHERE first_name = ? AND last_name = ? AND birth_date IS NULL
			ORDER BY author_id LIMIT 1`), []any{key.FirstName, key.LastName}, &id)
		return id, found, err
	}

	birth, err := time.Parse(schema.DateLayout, key.BirthDate)
	if err != nil {
		return 0, false, fmt.Errorf("author key birth date: %w", err)
	}
	found, err := q.c.scanOne(ctx, q.d.bind(`SELECT author_id FROM author
		WHERE first_name = ? AND last_name = ? AND birth_date = ?
		ORDER BY author_id LIMIT 1`), []any{key.FirstName, key.LastName, q.d.date(birth)}, &id)
	return id, found, err
}

func (q *sqlQueries) FindBookByISBN(ctx context.Context, isbn string) (int64, bool, error) {
	var id int64
	found, err := q.c.scanOne(ctx, q.d.bind(`SELECT book_id FROM book WHERE isbn = ?`), []any{isbn}, &id)
	return id, found, err
}

func (q *sqlQueries) FindOrCreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	found, err := q.c.scanOne(ctx, q.d.bind(`SELECT category_id FROM category WHERE name = ?`), []any{name}, &id)
	if err != nil || found {
		return id, err
	}
	return q.c.insert(ctx, q.d.bind(`INSERT INTO category (name) VALUES (?)`), "category_id", name)
}

func (q *sqlQueries) LinkBookAuthor(ctx context.Context, bookID, authorID int64) error {
	return q.c.exec(ctx, q.d.bind(q.d.insertIgnore+` INTO book_author (book_id, author_id) VALUES (?, ?)`+q.d.onConflictIgnore),
		bookID, authorID)
}

func (q *sqlQueries) LinkBookCategory(ctx context.Context, bookID, categoryID int64) error {
	return q.c.exec(ctx, q.d.bind(q.d.insertIgnore+` INTO book_category (book_id, category_id) VALUES (?, ?)`+q.d.onConflictIgnore),
		bookID, categoryID)
}

func (q *sqlQueries) RecordRun(ctx context.Context, run Run) error {
	return q.c.exec(ctx, q.d.bind(`INSERT INTO ingest_runs
		(run_id, source, started_at, finished_at, inserted, duplicate, failed, target, target_reached)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.Source, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Inserted, run.Duplicate, run.Failed, run.Target, run.TargetReached)
}

// savepoints implements Tx.Savepoint over a conn with numbered savepoints.
type savepoints struct {
	c conn
	n int
}

func (s *savepoints) run(ctx context.Context, q Queries, fn func(Queries) error) error {
	s.n++
	name := fmt.Sprintf("sp_%d", s.n)

	if err := s.c.exec(ctx, "SAVEPOINT "+name); err != nil {
		return &SavepointError{Op: "create", Name: name, Err: err}
	}

	if err := fn(q); err != nil {
		if rbErr := s.c.exec(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return &SavepointError{Op: "rollback", Name: name, Err: rbErr}
		}
		if relErr := s.c.exec(ctx, "RELEASE SAVEPOINT "+name); relErr != nil {
			return &SavepointError{Op: "release", Name: name, Err: relErr}
		}
		return err
	}

	if err := s.c.exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return &SavepointError{Op: "release", Name: name, Err: err}
	}
	return nil
}
