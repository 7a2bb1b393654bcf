// Package main provides the SDS registry server entry point. It hosts the
// document lifecycle API and the audit read API in a single process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang/glog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/solaius/sds-registry/pkg/audit"
	"github.com/solaius/sds-registry/pkg/identity"
	"github.com/solaius/sds-registry/pkg/sds"
	"github.com/solaius/sds-registry/pkg/tenancy"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to server config YAML")
	flag.Parse()

	_ = flag.Set("logtostderr", "true")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		glog.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("starting sds server",
		"listen", cfg.Listen,
		"dbType", cfg.Database.Type,
		"tenancyMode", cfg.Tenancy.Mode,
		"authMode", cfg.Auth.Mode,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := setupDatabase(cfg.Database)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}

	store := sds.NewDocumentStore(gormDB)
	if err := store.AutoMigrate(); err != nil {
		glog.Fatalf("Failed to migrate document tables: %v", err)
	}

	auditStore := audit.NewStore(gormDB)
	if err := auditStore.AutoMigrate(); err != nil {
		glog.Fatalf("Failed to migrate audit tables: %v", err)
	}

	var recorder audit.Recorder
	if cfg.Audit.Enabled {
		recorder = auditStore
		go audit.NewRetentionWorker(auditStore, cfg.Audit.RetentionDays, logger).Run(ctx)
	} else {
		logger.Info("audit recording disabled")
	}

	engine := sds.NewEngine(store, recorder, logger)

	actorExtractor, err := setupExtractor(cfg.Auth, logger)
	if err != nil {
		glog.Fatalf("Failed to configure auth: %v", err)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	router.Use(tenancy.NewMiddleware(tenancy.Mode(cfg.Tenancy.Mode)))
	router.Use(identity.Middleware(actorExtractor))

	router.Mount("/api/v1", sds.NewRouter(engine))
	router.Mount("/api/v1/audit", audit.NewRouter(auditStore))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: router,
	}

	go func() {
		logger.Info("sds server ready", "listen", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	logger.Info("sds server stopped")
}

func setupDatabase(cfg databaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	switch cfg.Type {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DSN), gormCfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unknown database type %q (expected postgres, mysql, or sqlite)", cfg.Type)
	}
}

func setupExtractor(cfg authConfig, logger *slog.Logger) (identity.Extractor, error) {
	switch cfg.Mode {
	case "jwt":
		return identity.NewJWTExtractor(identity.JWTExtractorConfig{
			SubjectClaim:  cfg.SubjectClaim,
			PublicKeyPath: cfg.PublicKeyPath,
			Issuer:        cfg.Issuer,
			Logger:        logger,
		})
	case "header", "":
		return identity.HeaderExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q (expected jwt or header)", cfg.Mode)
	}
}
