package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans
	SlowQueryThresh time.Duration // default 200ms
	DBName          string
}

// DBTracingPlugin registers otelgorm plus a slow query callback.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// RegisterOtelGorm installs the otelgorm plugin on db. Every statement also
// gets rows, table and slow query attributes on its span.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string) gormRegistrar
		after  func(string) gormRegistrar
	}{
		{"create", func(n string) gormRegistrar { return cb.Create().Before(n) }, func(n string) gormRegistrar { return cb.Create().After(n) }},
		{"query", func(n string) gormRegistrar { return cb.Query().Before(n) }, func(n string) gormRegistrar { return cb.Query().After(n) }},
		{"update", func(n string) gormRegistrar { return cb.Update().Before(n) }, func(n string) gormRegistrar { return cb.Update().After(n) }},
		{"delete", func(n string) gormRegistrar { return cb.Delete().Before(n) }, func(n string) gormRegistrar { return cb.Delete().After(n) }},
		{"row", func(n string) gormRegistrar { return cb.Row().Before(n) }, func(n string) gormRegistrar { return cb.Row().After(n) }},
		{"raw", func(n string) gormRegistrar { return cb.Raw().Before(n) }, func(n string) gormRegistrar { return cb.Raw().After(n) }},
	}
	for _, h := range hooks {
		if err := h.before("gorm:"+h.op).Register("obras_timing:before_"+h.op, markQueryStart); err != nil {
			return err
		}
		if err := h.after("gorm:"+h.op).Register("obras_timing:after_"+h.op, p.annotate); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

type gormRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
