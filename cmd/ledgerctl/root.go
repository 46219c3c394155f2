package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	projectapp "github.com/obras/backend/internal/application/project"
	"github.com/obras/backend/internal/domain/shared/valueobject"
	"github.com/obras/backend/internal/infrastructure/config"
	"github.com/obras/backend/internal/infrastructure/logger"
	"github.com/obras/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

type globalFlags struct {
	sqlite   string
	logLevel string
	currency string
}

// app is the per-invocation wiring shared by every subcommand
type app struct {
	log     *zap.Logger
	store   *persistence.GormProjectStore
	service *projectapp.ProjectService
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect and edit construction project ledgers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.sqlite, "sqlite", "", "Use a SQLite file instead of the configured PostgreSQL database")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flags.currency, "currency", "", "Display currency: PEN or USD (default: app.currency)")

	root.AddCommand(
		listCommand(flags),
		showCommand(flags),
		createCommand(flags),
		setCommand(flags),
		setCategoryCommand(flags),
		addCategoryCommand(flags),
		refreshCommand(flags),
	)
	return root
}

// withApp opens the database, runs fn and flushes pending ledger writes
// before closing everything down.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	log, err := logger.New(&logger.Config{
		Level:      flags.logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := openDatabase(flags, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Closing database", zap.Error(err))
		}
	}()

	store := persistence.NewGormProjectStore(db.DB)
	a := &app{
		log:     log,
		store:   store,
		service: projectapp.NewProjectService(store, projectapp.ServiceConfig{Logger: log}),
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runErr := fn(ctx, a)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := a.service.Shutdown(flushCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush ledger writes: %w", err)
	}
	return runErr
}

func openDatabase(flags *globalFlags, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(flags.logLevel), 200*time.Millisecond)

	if flags.sqlite != "" {
		db, err := persistence.Open(sqlite.Open(flags.sqlite),
			&config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1},
			persistence.WithGormLogger(gormLog),
		)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", flags.sqlite, err)
		}
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate sqlite %s: %w", flags.sqlite, err)
		}
		return db, nil
	}

	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if flags.currency == "" {
		flags.currency = cfg.App.Currency
	}
	return persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
}

// resolve accepts either a project id or a project number
func (a *app) resolve(ctx context.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	p, err := a.store.FindByNumber(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (a *app) open(ctx context.Context, ref string) (*projectapp.ProjectDetailController, error) {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return a.service.Open(ctx, id)
}

func (f *globalFlags) displayCurrency() valueobject.Currency {
	if f.currency == "" {
		return valueobject.DefaultCurrency
	}
	return valueobject.Currency(f.currency)
}
