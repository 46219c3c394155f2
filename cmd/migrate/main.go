// Command migrate applies the ledger schema migrations to PostgreSQL.
package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/obras/backend/internal/infrastructure/config"
	"github.com/obras/backend/internal/infrastructure/logger"
	"github.com/obras/backend/internal/infrastructure/migration"
	"github.com/obras/backend/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagPath     string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Ledger database migration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagPath, "path", "", "Migrations directory (default: migrations embedded in the binary)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		dbCommand("up", "Apply all pending migrations", cobra.NoArgs, func(m *migration.Migrator, _ []string) error {
			return m.Up()
		}),
		dbCommand("down", "Roll back all migrations", cobra.NoArgs, func(m *migration.Migrator, _ []string) error {
			return m.Down()
		}),
		dbCommand("step <n>", "Apply n migrations (negative rolls back)", cobra.ExactArgs(1), func(m *migration.Migrator, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return m.Steps(n)
		}),
		dbCommand("force <version>", "Set the version without running migrations", cobra.ExactArgs(1), func(m *migration.Migrator, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return m.Force(v)
		}),
		dbCommand("version", "Show the current migration version", cobra.NoArgs, func(m *migration.Migrator, _ []string) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Printf("version %d (dirty: %t)\n", version, dirty)
			return nil
		}),
		createCommand(),
		listCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func source() fs.FS {
	if flagPath == "" {
		return migrations.FS
	}
	return os.DirFS(flagPath)
}

func newLogger() (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:      flagLogLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
}

func dbCommand(use, short string, args cobra.PositionalArgs, run func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if flagPath == "" {
				flagPath = cfg.Database.MigrationsPath
			}

			db, err := sql.Open("postgres", cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if err := db.PingContext(cmd.Context()); err != nil {
				_ = db.Close()
				return fmt.Errorf("ping database: %w", err)
			}

			m, err := migration.New(db, source(), log)
			if err != nil {
				_ = db.Close()
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					log.Warn("Closing migrator", zap.Error(err))
				}
			}()
			return run(m, args)
		},
	}
}

func createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create an empty up/down migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := flagPath
			if dir == "" {
				dir = "migrations"
			}
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], description, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\ncreated %s\n", mf.UpPath, mf.DownPath)
			return nil
		},
	}
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := migration.ListMigrations(source())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
