package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/libingest/internal/store"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db := a.cfg.Database

			st, err := store.Open(ctx, db.URL, store.PoolOptions{MaxConns: db.MaxConns, MinConns: db.MinConns})
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			slog.Info("schema up to date", "backend", store.Backend(db.URL))
			fmt.Fprintln(a.stdout, "Schema up to date.")
			return nil
		},
	}
}
