package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	projectapp "github.com/obras/backend/internal/application/project"
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/domain/shared/valueobject"
	"github.com/obras/backend/internal/infrastructure/cache"
	"github.com/obras/backend/internal/infrastructure/config"
	"github.com/obras/backend/internal/infrastructure/event"
	"github.com/obras/backend/internal/infrastructure/logger"
	"github.com/obras/backend/internal/infrastructure/persistence"
	"github.com/obras/backend/internal/infrastructure/telemetry"
	"github.com/obras/backend/internal/interfaces/http/handler"
	"github.com/obras/backend/internal/interfaces/http/middleware"
	"github.com/obras/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	if err := config.LoadDotEnv(); err != nil {
		panic("Failed to load .env: " + err.Error())
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.NewForEnvironment(cfg.App.Env, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting project ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = logsProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = tracerProvider.Shutdown(shutdownCtx)
		_ = logsProvider.Shutdown(shutdownCtx)
	}()

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Database with zap backed GORM logger and otelgorm tracing
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), 200*time.Millisecond)
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBName:     cfg.Database.DBName,
	}, log)
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithPlugin(dbTracing),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Store, optionally behind the snapshot cache
	var store project.ProjectStore = persistence.NewGormProjectStore(db.DB)
	snapshots, closeCache := cache.NewFromConfig(ctx, cfg.Cache, cfg.Redis, log)
	defer func() {
		if err := closeCache(); err != nil {
			log.Warn("Error closing cache", zap.Error(err))
		}
	}()
	if snapshots != nil {
		store = cache.NewCachingProjectStore(store, snapshots, log)
	}

	// Event bus
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewProjectAuditHandler(log))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	projectService := projectapp.NewProjectService(store, projectapp.ServiceConfig{
		Publisher:   bus,
		Metrics:     ledgerMetrics,
		Logger:      log,
		PushTimeout: cfg.Sync.PushTimeout,
		IdleTimeout: cfg.Sync.IdleTimeout,
	})
	if cfg.Sync.RefreshInterval > 0 || cfg.Sync.IdleTimeout > 0 {
		go projectService.RunRefresher(ctx, cfg.Sync.RefreshInterval)
		log.Info("Background refresh enabled",
			zap.Duration("interval", cfg.Sync.RefreshInterval),
			zap.Duration("idle_timeout", cfg.Sync.IdleTimeout),
		)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(meterProvider.Meter("http.server"))
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	// Global middleware
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(httpMetrics)
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db, projectService)
	projectHandler := handler.NewProjectHandler(projectService, valueobject.Currency(cfg.App.Currency))

	engine.GET("/health", systemHandler.Health)
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(router.ProjectRoutes(projectHandler)).
		Register(router.SystemRoutes(systemHandler)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	failed := false
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
		failed = true
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// Pending ledger writes go out before the database closes
	if err := projectService.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush open projects", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Failed to stop event bus", zap.Error(err))
	}

	if failed {
		exitCode = 1
		return
	}
	log.Info("Server exited gracefully")
}
