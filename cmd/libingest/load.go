package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoadCommand(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load libraries, authors, books and members from CSV files",
		Long: `
Loads <dir>/libraries, authors, books and members files in that order in
one batch. All four files must exist; a missing file aborts the run before
anything is written.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dir == "" {
				dir = a.cfg.Source.Dir
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := a.newRunner(st).LoadDir(ctx, dir)
			if report != nil {
				printReport(a.stdout, report)
			}
			if err != nil {
				return fmt.Errorf("load %s: %w", dir, err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dir, "dir", "", "directory holding the bulk files (default SOURCE_DIR)")
	flags.BoolVar(&a.dryRun, "dry-run", false, "validate against an in-memory store without touching the database")
	return cmd
}
