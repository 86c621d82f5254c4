package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/JonMunkholm/libingest/internal/logging"
	"github.com/JonMunkholm/libingest/internal/normalize"
	"github.com/JonMunkholm/libingest/internal/openlibrary"
	"github.com/JonMunkholm/libingest/internal/schema"
	"github.com/JonMunkholm/libingest/internal/store"
)

// maxCategoryLen is the longest subject stored as a category.
const maxCategoryLen = 30

// ErrNoCatalogue is returned by Fetch on a Runner built without a catalogue.
var ErrNoCatalogue = errors.New("no catalogue configured")

// FetchRequest selects the books pulled by Fetch.
type FetchRequest struct {
	Author    string
	Limit     int   // Books to assemble; must be positive
	LibraryID int64 // Owning library; zero uses Options.DefaultLibraryID
}

// Fetch pulls books of one author from the catalogue and ingests them in
// one batch. It stops once req.Limit books with a usable edition have been
// assembled or the author's works run out; in the latter case the report's
// TargetReached is false and no error is returned.
//
// A remote failure stops the fetch. Rows written before it are committed
// and the error, matching openlibrary.ErrNetwork, is returned with the
// partial report.
func (r *Runner) Fetch(ctx context.Context, req FetchRequest) (*Report, error) {
	if r.catalogue == nil {
		return nil, ErrNoCatalogue
	}
	if req.Limit <= 0 {
		return nil, fmt.Errorf("fetch limit must be positive, got %d", req.Limit)
	}
	libraryID := req.LibraryID
	if libraryID == 0 {
		libraryID = r.opts.DefaultLibraryID
	}

	report, ctx := r.start(ctx, SourceAPI)
	report.Target = req.Limit
	log := logging.WithFields(ctx, "author", req.Author)
	log.Info("fetch started", "limit", req.Limit, "library_id", libraryID)

	author, err := r.catalogue.SearchAuthor(ctx, req.Author)
	if err != nil {
		return report, fmt.Errorf("search author: %w", err)
	}

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return report, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	authorID, err := r.fetchAuthor(ctx, tx, author, report)
	if err != nil {
		return report, err
	}

	bookDef, _ := Get(schema.EntityBook)
	report.Tally(schema.EntityBook)
	assembled := 0
	var remoteErr error

	for summary, err := range r.catalogue.Works(ctx, author.Key) {
		if err != nil {
			remoteErr = err
			break
		}

		work, err := r.catalogue.Work(ctx, summary.Key)
		if err != nil {
			remoteErr = err
			break
		}
		if len(work.Raw) > 0 {
			report.Raw = append(report.Raw, work.Raw)
		}

		isbn, published, found, err := r.catalogue.FindValidEdition(ctx, summary.ID())
		if err != nil {
			remoteErr = err
			break
		}
		if !found {
			log.Debug("no usable edition", "work", summary.Key)
			continue
		}
		assembled++
		report.Assembled = assembled

		title := lo.Ternary(work.Title != "", work.Title, summary.Title)
		row := r.bookRow(title, isbn, published, libraryID)
		subjects := r.subjects(work.Subjects)

		res, err := r.ingestRow(ctx, tx, bookDef, row, func(q store.Queries, bookID int64) error {
			if authorID != 0 {
				if err := q.LinkBookAuthor(ctx, bookID, authorID); err != nil {
					return err
				}
			}
			for _, subject := range subjects {
				categoryID, err := q.FindOrCreateCategory(ctx, subject)
				if err != nil {
					return err
				}
				if err := q.LinkBookCategory(ctx, bookID, categoryID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Error("fetch aborted", "work", summary.Key, "error", err)
			return report, err
		}
		if res.Outcome != OutcomeInserted {
			log.Warn("book skipped", "work", summary.Key, "outcome", res.Outcome, "error", res.Err)
		}
		report.record(schema.EntityBook, res.Outcome, FailedRow{RemoteKey: summary.Key}, res.Err)

		if assembled >= req.Limit {
			break
		}
	}

	if remoteErr != nil && ctx.Err() != nil {
		return report, ctx.Err()
	}

	report.TargetReached = assembled >= req.Limit
	if remoteErr == nil && !report.TargetReached {
		log.Warn("target not reached", "assembled", assembled, "limit", req.Limit)
	}

	if err := tx.Commit(ctx); err != nil {
		return report, fmt.Errorf("commit batch: %w", err)
	}
	report.Committed = true
	r.finish(ctx, report)

	if remoteErr != nil {
		log.Error("fetch stopped by remote failure", "assembled", assembled, "error", remoteErr)
		return report, fmt.Errorf("fetch works of %s: %w", author.Key, remoteErr)
	}
	return report, nil
}

// fetchAuthor finds or inserts the searched author and returns its id.
// An author that fails validation is reported and zero is returned, so its
// books are still loaded without an author link.
func (r *Runner) fetchAuthor(ctx context.Context, tx store.Tx, author openlibrary.Author, report *Report) (int64, error) {
	def, _ := Get(schema.EntityAuthor)
	failed := FailedRow{RemoteKey: author.Key}

	rec, err := def.Validate(r.validator, authorRow(author))
	if err != nil {
		report.record(def.Kind, OutcomeInvalid, failed, err)
		logging.FromContext(ctx).Warn("author rejected", "key", author.Key, "error", err)
		return 0, nil
	}

	id, found, err := tx.FindAuthor(ctx, rec.(schema.Author).Key())
	if err != nil {
		return 0, fmt.Errorf("find author: %w", err)
	}
	if found {
		report.record(def.Kind, OutcomeDuplicate, failed, fmt.Errorf("%w: %s", ErrDuplicateRecord, def.Kind))
		return id, nil
	}

	res, err := r.commit(ctx, tx, def, rec, nil)
	if err != nil {
		return 0, err
	}
	report.record(def.Kind, res.Outcome, failed, res.Err)
	return res.ID, nil
}

// authorRow maps a search hit to an author row. The last word of the name
// is the last name; a single word is used for both names.
func authorRow(a openlibrary.Author) schema.Row {
	first, last := splitName(a.Name)
	row := schema.Row{"first_name": first, "last_name": last}
	if _, err := normalize.ParseDate(a.BirthDate); err == nil {
		row["birth_date"] = a.BirthDate
	}
	return row
}

func splitName(name string) (first, last string) {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return "", ""
	case 1:
		return words[0], words[0]
	default:
		return strings.Join(words[:len(words)-1], " "), words[len(words)-1]
	}
}

// bookRow builds a book row for a fetched edition. A publish date the
// schema cannot parse is left out.
func (r *Runner) bookRow(title, isbn, published string, libraryID int64) schema.Row {
	copies := strconv.Itoa(r.opts.DefaultCopies)
	row := schema.Row{
		"title":            title,
		"isbn":             isbn,
		"total_copies":     copies,
		"available_copies": copies,
		"library_id":       strconv.FormatInt(libraryID, 10),
	}
	if _, err := normalize.ParseDate(published); err == nil {
		row["publication_date"] = published
	}
	return row
}

// subjects returns the distinct subjects to store as categories, in
// remote order.
func (r *Runner) subjects(all []string) []string {
	if r.opts.MaxSubjects < 0 {
		return nil
	}
	names := lo.Uniq(lo.FilterMap(all, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != "" && utf8.RuneCountInString(s) <= maxCategoryLen
	}))
	if len(names) > r.opts.MaxSubjects {
		names = names[:r.opts.MaxSubjects]
	}
	return names
}
