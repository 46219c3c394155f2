// Package persistence stores projects and their ledgers with GORM.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/obras/backend/internal/infrastructure/config"
	"github.com/obras/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database holds the database connection
type Database struct {
	DB *gorm.DB
}

// Plugin is installed on the connection after it opens (tracing, metrics)
type Plugin interface {
	RegisterOtelGorm(db *gorm.DB) error
}

// Option configures NewDatabase
type Option func(*options)

type options struct {
	logger  logger.Interface
	plugins []Plugin
}

// WithGormLogger replaces GORM's default silent logger
func WithGormLogger(l logger.Interface) Option {
	return func(o *options) { o.logger = l }
}

// WithPlugin installs p on the opened connection
func WithPlugin(p Plugin) Option {
	return func(o *options) { o.plugins = append(o.plugins, p) }
}

// NewDatabase connects to PostgreSQL and verifies the connection
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	return Open(postgres.Open(cfg.DSN()), cfg, opts...)
}

// Open connects through an arbitrary dialector. cfg only supplies the pool
// settings and may be nil.
func Open(dialector gorm.Dialector, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := &options{logger: logger.Default.LogMode(logger.Silent)}
	for _, opt := range opts {
		opt(o)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 o.logger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, p := range o.plugins {
		if err := p.RegisterOtelGorm(db); err != nil {
			return nil, fmt.Errorf("failed to register database plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg != nil {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Database{DB: db}, nil
}

// AutoMigrate creates the ledger tables from the models. Production
// schemas are managed by the SQL migrations; this serves tests and the
// embedded SQLite mode of ledgerctl.
func (d *Database) AutoMigrate() error {
	return d.DB.AutoMigrate(&models.ProjectModel{}, &models.ProjectCategoryModel{})
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
