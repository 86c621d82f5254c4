package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/libingest/internal/ingest"
	"github.com/JonMunkholm/libingest/internal/schema"
	"github.com/JonMunkholm/libingest/internal/store"
)

func newFetchCommand(a *app) *cobra.Command {
	var (
		req    ingest.FetchRequest
		output string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Load books of an author from Open Library",
		Long: `
Searches Open Library for the author, then walks the author's works and
loads each one that has an edition with an ISBN and a publish date, until
--limit books are assembled or the works run out.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if req.Limit == 0 {
				req.Limit = a.cfg.Ingest.FetchLimit
			}
			if req.LibraryID == 0 {
				req.LibraryID = a.cfg.Ingest.DefaultLibraryID
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if a.dryRun {
				if err := seedLibrary(ctx, st, req.LibraryID); err != nil {
					return err
				}
			}

			report, fetchErr := a.newRunner(st).Fetch(ctx, req)
			if report != nil {
				printReport(a.stdout, report)
				if output != "" {
					if err := writeRaw(output, report.Raw); err != nil {
						return err
					}
					fmt.Fprintf(a.stdout, "Wrote %d work payloads to %s\n", len(report.Raw), output)
				}
			}
			if fetchErr != nil {
				return fmt.Errorf("fetch %q: %w", req.Author, fetchErr)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Author, "author", "", "author name to search for")
	flags.IntVar(&req.Limit, "limit", 0, "books to assemble (default FETCH_LIMIT)")
	flags.Int64Var(&req.LibraryID, "library-id", 0, "library owning the books (default INGEST_DEFAULT_LIBRARY_ID)")
	flags.StringVarP(&output, "output", "o", "", "write the fetched work documents to this JSON file")
	flags.BoolVar(&a.dryRun, "dry-run", false, "validate against an in-memory store without touching the database")
	cmd.MarkFlagRequired("author")
	return cmd
}

// seedLibrary stands in for the owning library in a dry run, whose
// in-memory store starts empty.
func seedLibrary(ctx context.Context, st store.Store, id int64) error {
	tx, err := st.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.InsertLibrary(ctx, schema.Library{
		ID:             &id,
		Name:           "Dry Run Library",
		CampusLocation: "Dry Run",
		ContactEmail:   "dry-run@example.invalid",
		PhoneNumber:    "+10000000000",
	})
	if err != nil {
		return fmt.Errorf("seed dry-run library: %w", err)
	}
	return tx.Commit(ctx)
}

// writeRaw stores payloads as a JSON array.
func writeRaw(path string, payloads []json.RawMessage) error {
	if payloads == nil {
		payloads = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return fmt.Errorf("encode payloads: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write payloads: %w", err)
	}
	return nil
}
