package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/JonMunkholm/libingest/internal/schema"
)

// ErrTxClosed is returned by operations on a committed or rolled back
// memory transaction.
var ErrTxClosed = errors.New("transaction already closed")

// Memory is an in-process Store. It enforces the same keys, references and
// checks as the SQL schema and supports nested savepoints through an undo
// log. Only one transaction is open at a time; Begin blocks until the
// previous one ends.
type Memory struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	seq            map[string]int64
	libraries      map[int64]schema.Library
	authors        map[int64]schema.Author
	books          map[int64]schema.Book
	members        map[int64]schema.Member
	categories     map[int64]string
	bookAuthors    map[[2]int64]struct{}
	bookCategories map[[2]int64]struct{}
	runs           []Run
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: &memData{
		seq:            make(map[string]int64),
		libraries:      make(map[int64]schema.Library),
		authors:        make(map[int64]schema.Author),
		books:          make(map[int64]schema.Book),
		members:        make(map[int64]schema.Member),
		categories:     make(map[int64]string),
		bookAuthors:    make(map[[2]int64]struct{}),
		bookCategories: make(map[[2]int64]struct{}),
	}}
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }

// Migrate implements Store. Tables always exist.
func (m *Memory) Migrate(context.Context) error { return nil }

// Begin implements Store.
func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	return &memTx{m: m, d: m.data}, nil
}

// Count returns the number of committed rows in table. It blocks while a
// transaction is open.
func (m *Memory) Count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch table {
	case "library":
		return len(m.data.libraries)
	case "author":
		return len(m.data.authors)
	case "book":
		return len(m.data.books)
	case "member":
		return len(m.data.members)
	case "category":
		return len(m.data.categories)
	case "book_author":
		return len(m.data.bookAuthors)
	case "book_category":
		return len(m.data.bookCategories)
	case "ingest_runs":
		return len(m.data.runs)
	}
	return 0
}

// Runs returns the recorded runs in insertion order.
func (m *Memory) Runs() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.data.runs)
}

// memTx mutates the store directly and records an undo step per write.
type memTx struct {
	m      *Memory
	d      *memData
	undo   []func()
	closed bool
}

func (t *memTx) check(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	return ctx.Err()
}

func (t *memTx) Savepoint(ctx context.Context, fn func(Queries) error) error {
	if err := t.check(ctx); err != nil {
		return &SavepointError{Op: "create", Name: "memory", Err: err}
	}
	mark := len(t.undo)
	if err := fn(t); err != nil {
		t.rollbackTo(mark)
		return err
	}
	return nil
}

func (t *memTx) rollbackTo(mark int) {
	for i := len(t.undo) - 1; i >= mark; i-- {
		t.undo[i]()
	}
	t.undo = t.undo[:mark]
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	if err := ctx.Err(); err != nil {
		t.Rollback(ctx)
		return err
	}
	t.undo = nil
	t.closed = true
	t.m.mu.Unlock()
	return nil
}

// Rollback is a no-op after Commit.
func (t *memTx) Rollback(context.Context) error {
	if t.closed {
		return nil
	}
	t.rollbackTo(0)
	t.closed = true
	t.m.mu.Unlock()
	return nil
}

// nextID allocates the next key for table.
func (t *memTx) nextID(table string) int64 {
	prev := t.d.seq[table]
	t.d.seq[table] = prev + 1
	t.undo = append(t.undo, func() { t.d.seq[table] = prev })
	return prev + 1
}

func duplicate(constraint string) error {
	return &ConstraintError{Kind: ErrDuplicate, Constraint: constraint, Err: fmt.Errorf("%s already exists", constraint)}
}

func (t *memTx) InsertLibrary(ctx context.Context, lib schema.Library) (int64, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	for _, l := range t.d.libraries {
		if l.ContactEmail == lib.ContactEmail {
			return 0, duplicate("library.contact_email")
		}
		if l.PhoneNumber == lib.PhoneNumber {
			return 0, duplicate("library.phone_number")
		}
	}

	var id int64
	if lib.ID != nil {
		id = *lib.ID
		if _, ok := t.d.libraries[id]; ok {
			return 0, duplicate("library.library_id")
		}
		if prev := t.d.seq["library"]; id > prev {
			t.d.seq["library"] = id
			t.undo = append(t.undo, func() { t.d.seq["library"] = prev })
		}
	} else {
		id = t.nextID("library")
	}

	lib.ID = &id
	t.d.libraries[id] = lib
	t.undo = append(t.undo, func() { delete(t.d.libraries, id) })
	return id, nil
}

func (t *memTx) InsertAuthor(ctx context.Context, a schema.Author) (int64, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	if a.BirthDate != nil {
		key := a.Key()
		for _, existing := range t.d.authors {
			if existing.Key() == key {
				return 0, duplicate("uq_author_identity")
			}
		}
	}

	id := t.nextID("author")
	t.d.authors[id] = a
	t.undo = append(t.undo, func() { delete(t.d.authors, id) })
	return id, nil
}

func (t *memTx) InsertBook(ctx context.Context, b schema.Book) (int64, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	switch {
	case b.TotalCopies < 0:
		return 0, &ConstraintError{Kind: ErrCheck, Constraint: "chk_total_copies", Err: errors.New("total_copies < 0")}
	case b.AvailableCopies < 0:
		return 0, &ConstraintError{Kind: ErrCheck, Constraint: "chk_available_copies_non_negative", Err: errors.New("available_copies < 0")}
	case b.AvailableCopies > b.TotalCopies:
		return 0, &ConstraintError{Kind: ErrCheck, Constraint: "chk_available_copies", Err: errors.New("available_copies > total_copies")}
	}
	for _, existing := range t.d.books {
		if existing.ISBN == b.ISBN {
			return 0, duplicate("book.isbn")
		}
	}
	if _, ok := t.d.libraries[b.LibraryID]; !ok {
		return 0, &ConstraintError{Kind: ErrForeignKey, Constraint: "book.library_id", Err: fmt.Errorf("library %d does not exist", b.LibraryID)}
	}

	id := t.nextID("book")
	t.d.books[id] = b
	t.undo = append(t.undo, func() { delete(t.d.books, id) })
	return id, nil
}

func (t *memTx) InsertMember(ctx context.Context, mem schema.Member) (int64, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	if mem.MemberType != schema.MemberStudent && mem.MemberType != schema.MemberFaculty {
		return 0, &ConstraintError{Kind: ErrCheck, Constraint: "chk_member_type", Err: fmt.Errorf("member_type %q", mem.MemberType)}
	}
	for _, existing := range t.d.members {
		if existing.ContactEmail == mem.ContactEmail {
			return 0, duplicate("member.contact_email")
		}
		if existing.PhoneNumber == mem.PhoneNumber {
			return 0, duplicate("member.phone_number")
		}
	}

	id := t.nextID("member")
	t.d.members[id] = mem
	t.undo = append(t.undo, func() { delete(t.d.members, id) })
	return id, nil
}

func (t *memTx) LibraryExists(ctx context.Context, id int64) (bool, error) {
	if err := t.check(ctx); err != nil {
		return false, err
	}
	_, ok := t.d.libraries[id]
	return ok, nil
}

func (t *memTx) FindAuthor(ctx context.Context, key schema.AuthorKey) (int64, bool, error) {
	if err := t.check(ctx); err != nil {
		return 0, false, err
	}
	var (
		best  int64
		found bool
	)
	for id, a := range t.d.authors {
		if a.Key() == key && (!found || id < best) {
			best, found = id, true
		}
	}
	return best, found, nil
}

func (t *memTx) FindBookByISBN(ctx context.Context, isbn string) (int64, bool, error) {
	if err := t.check(ctx); err != nil {
		return 0, false, err
	}
	for id, b := range t.d.books {
		if b.ISBN == isbn {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (t *memTx) FindOrCreateCategory(ctx context.Context, name string) (int64, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	for id, n := range t.d.categories {
		if n == name {
			return id, nil
		}
	}
	id := t.nextID("category")
	t.d.categories[id] = name
	t.undo = append(t.undo, func() { delete(t.d.categories, id) })
	return id, nil
}

func (t *memTx) LinkBookAuthor(ctx context.Context, bookID, authorID int64) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if _, ok := t.d.books[bookID]; !ok {
		return &ConstraintError{Kind: ErrForeignKey, Constraint: "book_author.book_id", Err: fmt.Errorf("book %d does not exist", bookID)}
	}
	if _, ok := t.d.authors[authorID]; !ok {
		return &ConstraintError{Kind: ErrForeignKey, Constraint: "book_author.author_id", Err: fmt.Errorf("author %d does not exist", authorID)}
	}
	return t.link(t.d.bookAuthors, [2]int64{bookID, authorID})
}

func (t *memTx) LinkBookCategory(ctx context.Context, bookID, categoryID int64) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if _, ok := t.d.books[bookID]; !ok {
		return &ConstraintError{Kind: ErrForeignKey, Constraint: "book_category.book_id", Err: fmt.Errorf("book %d does not exist", bookID)}
	}
	if _, ok := t.d.categories[categoryID]; !ok {
		return &ConstraintError{Kind: ErrForeignKey, Constraint: "book_category.category_id", Err: fmt.Errorf("category %d does not exist", categoryID)}
	}
	return t.link(t.d.bookCategories, [2]int64{bookID, categoryID})
}

// link adds key to set; existing links are left alone.
func (t *memTx) link(set map[[2]int64]struct{}, key [2]int64) error {
	if _, ok := set[key]; ok {
		return nil
	}
	set[key] = struct{}{}
	t.undo = append(t.undo, func() { delete(set, key) })
	return nil
}

func (t *memTx) RecordRun(ctx context.Context, run Run) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	for _, r := range t.d.runs {
		if r.ID == run.ID {
			return duplicate("ingest_runs.run_id")
		}
	}
	n := len(t.d.runs)
	t.d.runs = append(t.d.runs, run)
	t.undo = append(t.undo, func() { t.d.runs = t.d.runs[:n] })
	return nil
}
