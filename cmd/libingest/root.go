package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/libingest/internal/config"
	"github.com/JonMunkholm/libingest/internal/ingest"
	"github.com/JonMunkholm/libingest/internal/logging"
	"github.com/JonMunkholm/libingest/internal/normalize"
	"github.com/JonMunkholm/libingest/internal/openlibrary"
	"github.com/JonMunkholm/libingest/internal/schema"
	"github.com/JonMunkholm/libingest/internal/store"
)

// memoryURL selects the in-process store used by dry runs.
const memoryURL = "memory://"

// app carries state shared by all subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// Persistent flags
	dbURL     string
	logLevel  string
	logFormat string

	// Set by the load and fetch --dry-run flags
	dryRun bool

	cfg    *config.Config
	logOut io.Closer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

// close releases the log file opened by setup. It is safe to call more than
// once and before setup has run.
func (a *app) close() error {
	if a.logOut == nil {
		return nil
	}
	err := a.logOut.Close()
	a.logOut = nil
	return err
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "libingest",
		Short: "Load library records into a database",
		Long: `
Loads libraries, authors, books and members from a directory of CSV files,
or books of one author from the Open Library catalogue. Every row is
validated and written in its own savepoint, so bad rows are reported and
skipped without aborting the batch.

Settings come from the environment (and a .env file); flags override them.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.dbURL, "db", "", "database URL, overrides DATABASE_URL")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		newLoadCommand(a),
		newFetchCommand(a),
		newMigrateCommand(a),
	)
	return root
}

// setup reads the configuration, applies flag overrides and configures
// logging.
func (a *app) setup() error {
	cfg, err := config.Read()
	if err != nil {
		return err
	}

	if a.dbURL != "" {
		cfg.Database.URL = a.dbURL
	}
	if a.dryRun {
		cfg.Database.URL = memoryURL
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logOut = closer

	slog.Debug("configuration loaded", "config", cfg.String())
	return nil
}

// openStore connects to the configured database and applies the schema
// when auto-migrate is on.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	db := a.cfg.Database
	st, err := store.Open(ctx, db.URL, store.PoolOptions{
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		MaxConnLifetime: db.MaxConnLifetime,
		MaxConnIdleTime: db.MaxConnIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if db.AutoMigrate {
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	slog.Info("connected to database", "backend", store.Backend(db.URL), "dry_run", a.dryRun)
	return st, nil
}

// newRunner builds a runner with the configured validator and client.
func (a *app) newRunner(st store.Store) *ingest.Runner {
	ic := a.cfg.Ingest
	v := schema.NewValidator(normalize.NewPhoneNormalizer(ic.PhoneRegion, ic.PhoneDomesticPrefix))

	client := openlibrary.New(openlibrary.Config{
		BaseURL:        a.cfg.API.BaseURL,
		RateLimitDelay: a.cfg.API.RateLimitDelay,
		Timeout:        a.cfg.API.Timeout,
		RetryMax:       a.cfg.API.RetryMax,
		UserAgent:      a.cfg.API.UserAgent,
		PageSize:       a.cfg.API.PageSize,
		Logger:         slog.Default(),
	})

	maxSubjects := ic.MaxSubjects
	if maxSubjects == 0 {
		maxSubjects = -1
	}

	return ingest.NewRunner(st, v, client, ingest.Options{
		SourceExt:        a.cfg.Source.Ext,
		Delimiter:        a.cfg.Source.DelimiterRune(),
		DefaultLibraryID: ic.DefaultLibraryID,
		DefaultCopies:    ic.DefaultCopies,
		MaxSubjects:      maxSubjects,
	})
}
