package ingest

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/JonMunkholm/libingest/internal/schema"
)

// Outcome is the terminal state of one row.
type Outcome string

const (
	OutcomeInserted    Outcome = "inserted"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeReferential Outcome = "referential"
)

// Run sources recorded in reports and ingest_runs.
const (
	SourceBulk = "bulk"
	SourceAPI  = "api"
)

// Tally counts row outcomes for one entity kind.
type Tally struct {
	Inserted    int
	Duplicate   int
	Invalid     int
	Referential int
}

// Failed returns rows that were rejected, excluding duplicates.
func (t Tally) Failed() int { return t.Invalid + t.Referential }

// Rows returns the number of rows counted.
func (t Tally) Rows() int { return t.Inserted + t.Duplicate + t.Failed() }

// Add counts one outcome.
func (t *Tally) Add(o Outcome) {
	switch o {
	case OutcomeInserted:
		t.Inserted++
	case OutcomeDuplicate:
		t.Duplicate++
	case OutcomeInvalid:
		t.Invalid++
	case OutcomeReferential:
		t.Referential++
	}
}

// EntityTally pairs an entity kind with its counts.
type EntityTally struct {
	Entity string
	Tally
}

// FailedRow locates one row that was not inserted.
type FailedRow struct {
	Entity    string
	File      string // Bulk file path; empty for API rows
	Line      int    // Physical line in File
	RemoteKey string // Remote work or author key for API rows
	Outcome   Outcome
	Code      string // Reason code from MapError
	Reason    string
	Fields    []string // Offending fields, when known
}

// Report summarizes one run.
type Report struct {
	RunID         string
	Source        string
	StartedAt     time.Time
	Duration      time.Duration
	Entities      []EntityTally // In load order
	FailedRows    []FailedRow
	Target        int  // Requested book count for API runs
	Assembled     int  // Works with a usable edition in API runs
	TargetReached bool // Always true for bulk runs
	Committed     bool // False when the batch was rolled back

	// Raw holds the verbatim work documents fetched during an API run.
	Raw []json.RawMessage
}

func newReport(runID, source string, started time.Time) *Report {
	return &Report{RunID: runID, Source: source, StartedAt: started}
}

// Tally returns the counts for entity, creating an entry when needed.
func (r *Report) Tally(entity string) *Tally {
	for i := range r.Entities {
		if r.Entities[i].Entity == entity {
			return &r.Entities[i].Tally
		}
	}
	r.Entities = append(r.Entities, EntityTally{Entity: entity})
	return &r.Entities[len(r.Entities)-1].Tally
}

// Total sums the tallies of every entity.
func (r *Report) Total() Tally {
	return lo.Reduce(r.Entities, func(acc Tally, e EntityTally, _ int) Tally {
		acc.Inserted += e.Inserted
		acc.Duplicate += e.Duplicate
		acc.Invalid += e.Invalid
		acc.Referential += e.Referential
		return acc
	}, Tally{})
}

// Failures returns the failed rows for one entity.
func (r *Report) Failures(entity string) []FailedRow {
	return lo.Filter(r.FailedRows, func(f FailedRow, _ int) bool {
		return f.Entity == entity
	})
}

// record counts outcome o for entity and keeps a FailedRow when the row
// was not inserted.
func (r *Report) record(entity string, o Outcome, row FailedRow, err error) {
	r.Tally(entity).Add(o)
	if o == OutcomeInserted {
		return
	}
	msg := MapError(err)
	row.Entity = entity
	row.Outcome = o
	row.Code = msg.Code
	if err != nil {
		row.Reason = err.Error()
	}
	var failure *schema.Failure
	if errors.As(err, &failure) {
		row.Fields = failure.Fields()
	}
	r.FailedRows = append(r.FailedRows, row)
}
