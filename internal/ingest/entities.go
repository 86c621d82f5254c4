package ingest

// entities.go registers the four library entities in load order:
// libraries, then authors, then books (which reference libraries), then members.

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/libingest/internal/schema"
	"github.com/JonMunkholm/libingest/internal/store"
)

func init() {
	Register(EntityDefinition{
		Kind:       schema.EntityLibrary,
		File:       "libraries",
		Order:      1,
		Duplicates: DuplicateConstraint,
		Validate: func(v *schema.Validator, row schema.Row) (any, error) {
			return v.Library(row)
		},
		Insert: func(ctx context.Context, q store.Queries, rec any) (int64, error) {
			return q.InsertLibrary(ctx, rec.(schema.Library))
		},
	})

	Register(EntityDefinition{
		Kind:       schema.EntityAuthor,
		File:       "authors",
		Order:      2,
		Duplicates: DuplicatePrecheck,
		Validate: func(v *schema.Validator, row schema.Row) (any, error) {
			return v.Author(row)
		},
		Exists: func(ctx context.Context, q store.Queries, rec any) (bool, error) {
			_, found, err := q.FindAuthor(ctx, rec.(schema.Author).Key())
			return found, err
		},
		Insert: func(ctx context.Context, q store.Queries, rec any) (int64, error) {
			return q.InsertAuthor(ctx, rec.(schema.Author))
		},
	})

	Register(EntityDefinition{
		Kind:       schema.EntityBook,
		File:       "books",
		Order:      3,
		Duplicates: DuplicateConstraint,
		Validate: func(v *schema.Validator, row schema.Row) (any, error) {
			return v.Book(row)
		},
		Check: func(ctx context.Context, q store.Queries, rec any) error {
			libraryID := rec.(schema.Book).LibraryID
			ok, err := q.LibraryExists(ctx, libraryID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: library %d", ErrReferential, libraryID)
			}
			return nil
		},
		Insert: func(ctx context.Context, q store.Queries, rec any) (int64, error) {
			return q.InsertBook(ctx, rec.(schema.Book))
		},
	})

	Register(EntityDefinition{
		Kind:       schema.EntityMember,
		File:       "members",
		Order:      4,
		Duplicates: DuplicateConstraint,
		Validate: func(v *schema.Validator, row schema.Row) (any, error) {
			return v.Member(row)
		},
		Insert: func(ctx context.Context, q store.Queries, rec any) (int64, error) {
			return q.InsertMember(ctx, rec.(schema.Member))
		},
	})
}

// write runs the referential check, the duplicate pre-check and the insert
// for one validated record. It is called inside the record's savepoint.
func write(ctx context.Context, q store.Queries, def EntityDefinition, rec any) (int64, error) {
	if def.Check != nil {
		if err := def.Check(ctx, q, rec); err != nil {
			return 0, err
		}
	}

	if def.Duplicates == DuplicatePrecheck {
		exists, err := def.Exists(ctx, q, rec)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateRecord, def.Kind)
		}
	}

	return def.Insert(ctx, q, rec)
}
