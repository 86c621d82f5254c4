// Package ingest loads library records into the store.
//
// A Runner drives one batch at a time. Rows come either from a directory of
// bulk files (LoadDir) or from the Open Library catalogue (Fetch). Every row
// is validated outside the database, then written inside its own savepoint
// of a single batch transaction, so a rejected row rolls back alone. Each
// row ends as exactly one Outcome, tallied per entity in the Report.
//
// Fatal errors (missing source files, store failures, cancellation) roll
// the batch back and are returned. Row problems never are.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/JonMunkholm/libingest/internal/logging"
	"github.com/JonMunkholm/libingest/internal/openlibrary"
	"github.com/JonMunkholm/libingest/internal/schema"
	"github.com/JonMunkholm/libingest/internal/source"
	"github.com/JonMunkholm/libingest/internal/store"
)

// Options configures a Runner.
type Options struct {
	SourceExt        string // Bulk file extension, default ".csv"
	Delimiter        rune   // Bulk field delimiter, default ','
	DefaultLibraryID int64  // Owning library of fetched books, default 1
	DefaultCopies    int    // Copies of each fetched book, default 1
	MaxSubjects      int    // Categories linked per fetched book, default 3; negative disables
}

// Catalogue is the remote source used by Fetch. *openlibrary.Client
// implements it.
type Catalogue interface {
	SearchAuthor(ctx context.Context, name string) (openlibrary.Author, error)
	Works(ctx context.Context, authorKey string) iter.Seq2[openlibrary.WorkSummary, error]
	Work(ctx context.Context, workKey string) (openlibrary.Work, error)
	FindValidEdition(ctx context.Context, workID string) (isbn, publishDate string, found bool, err error)
}

// Runner ingests batches into a store.
type Runner struct {
	store     store.Store
	validator *schema.Validator
	catalogue Catalogue
	opts      Options
}

// NewRunner creates a Runner. catalogue may be nil when only bulk loads are
// needed.
func NewRunner(st store.Store, v *schema.Validator, catalogue Catalogue, opts Options) *Runner {
	if v == nil {
		v = &schema.Validator{}
	}
	if opts.SourceExt == "" {
		opts.SourceExt = ".csv"
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.DefaultLibraryID == 0 {
		opts.DefaultLibraryID = 1
	}
	if opts.DefaultCopies == 0 {
		opts.DefaultCopies = 1
	}
	if opts.MaxSubjects == 0 {
		opts.MaxSubjects = 3
	}
	return &Runner{store: st, validator: v, catalogue: catalogue, opts: opts}
}

// LoadDir loads the libraries, authors, books and members files of dir in
// dependency order within one batch transaction.
func (r *Runner) LoadDir(ctx context.Context, dir string) (*Report, error) {
	defs := Ordered()
	stems := lo.Map(defs, func(def EntityDefinition, _ int) string { return def.File })

	paths, err := source.RequiredFiles(dir, r.opts.SourceExt, stems...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingSource, err)
	}

	report, ctx := r.start(ctx, SourceBulk)
	report.TargetReached = true
	log := logging.FromContext(ctx)
	log.Info("bulk load started", "dir", dir)

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return report, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, def := range defs {
		if err := r.loadFile(ctx, tx, def, paths[def.File], report); err != nil {
			log.Error("bulk load aborted", "entity", def.Kind, "error", err)
			return report, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return report, fmt.Errorf("commit batch: %w", err)
	}
	report.Committed = true

	r.finish(ctx, report)
	return report, nil
}

// loadFile ingests every row of one bulk file.
func (r *Runner) loadFile(ctx context.Context, tx store.Tx, def EntityDefinition, path string, report *Report) error {
	rd, err := source.Open(path, source.Options{Delimiter: r.opts.Delimiter})
	if err != nil {
		return err
	}
	defer rd.Close()

	log := logging.WithFields(ctx, "entity", def.Kind, "file", path)
	report.Tally(def.Kind)

	for rec, err := range rd.Rows() {
		var rowErr *source.RowError
		if errors.As(err, &rowErr) {
			log.Warn("row unreadable", "line", rowErr.Line, "error", rowErr.Err)
			report.record(def.Kind, OutcomeInvalid, FailedRow{File: path, Line: rowErr.Line}, err)
			continue
		}
		if err != nil {
			return err
		}

		res, err := r.ingestRow(ctx, tx, def, rec.Fields, nil)
		if err != nil {
			return err
		}
		if res.Outcome != OutcomeInserted {
			log.Warn("row skipped", "line", rec.Line, "outcome", res.Outcome, "error", res.Err)
		}
		report.record(def.Kind, res.Outcome, FailedRow{File: path, Line: rec.Line}, res.Err)
	}

	t := report.Tally(def.Kind)
	log.Info("file loaded",
		"inserted", t.Inserted,
		"duplicate", t.Duplicate,
		"failed", t.Failed(),
	)
	return nil
}

// rowResult is the outcome of one row. Err explains any outcome other
// than OutcomeInserted.
type rowResult struct {
	ID      int64
	Outcome Outcome
	Err     error
}

// ingestRow validates row and commits it. A non-nil error is fatal for the
// batch.
func (r *Runner) ingestRow(ctx context.Context, tx store.Tx, def EntityDefinition, row schema.Row, after afterInsert) (rowResult, error) {
	rec, err := def.Validate(r.validator, row)
	if err != nil {
		return rowResult{Outcome: OutcomeInvalid, Err: err}, nil
	}
	return r.commit(ctx, tx, def, rec, after)
}

// afterInsert runs inside the row's savepoint once the record is stored.
type afterInsert func(q store.Queries, id int64) error

// commit writes a validated record inside its own savepoint.
func (r *Runner) commit(ctx context.Context, tx store.Tx, def EntityDefinition, rec any, after afterInsert) (rowResult, error) {
	var id int64
	err := tx.Savepoint(ctx, func(q store.Queries) error {
		var err error
		if id, err = write(ctx, q, def, rec); err != nil {
			return err
		}
		if after != nil {
			return after(q, id)
		}
		return nil
	})
	if err == nil {
		return rowResult{ID: id, Outcome: OutcomeInserted}, nil
	}

	outcome, fatal := classify(ctx, err)
	if fatal {
		return rowResult{}, err
	}
	return rowResult{Outcome: outcome, Err: err}, nil
}

// classify maps a savepoint error to a row outcome. It reports fatal for
// errors that end the batch.
func classify(ctx context.Context, err error) (Outcome, bool) {
	var spErr *store.SavepointError
	switch {
	case errors.As(err, &spErr),
		ctx.Err() != nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, store.ErrTxClosed):
		return "", true
	case errors.Is(err, ErrReferential), errors.Is(err, store.ErrForeignKey):
		return OutcomeReferential, false
	case errors.Is(err, ErrDuplicateRecord), errors.Is(err, store.ErrDuplicate):
		return OutcomeDuplicate, false
	default:
		return OutcomeInvalid, false
	}
}

// start creates the report and tags ctx with a fresh run id.
func (r *Runner) start(ctx context.Context, src string) (*Report, context.Context) {
	runID := uuid.NewString()
	return newReport(runID, src, time.Now()), logging.WithRunID(ctx, runID)
}

// finish records the run in its own transaction and logs the totals. A
// failure to record the run does not undo the batch.
func (r *Runner) finish(ctx context.Context, report *Report) {
	report.Duration = time.Since(report.StartedAt)
	total := report.Total()
	log := logging.FromContext(ctx)

	run := store.Run{
		ID:            report.RunID,
		Source:        report.Source,
		StartedAt:     report.StartedAt,
		FinishedAt:    report.StartedAt.Add(report.Duration),
		Inserted:      total.Inserted,
		Duplicate:     total.Duplicate,
		Failed:        total.Failed(),
		Target:        report.Target,
		TargetReached: report.TargetReached,
	}
	if err := r.recordRun(ctx, run); err != nil {
		log.Warn("failed to record run", "error", err)
	}

	log.Info("run finished",
		"source", report.Source,
		"inserted", total.Inserted,
		"duplicate", total.Duplicate,
		"failed", total.Failed(),
		"duration", report.Duration,
	)
}

func (r *Runner) recordRun(ctx context.Context, run store.Run) error {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.RecordRun(ctx, run); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
