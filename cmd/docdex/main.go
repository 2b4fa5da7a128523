package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/config"
	"github.com/kailas-cloud/docdex/internal/db"
	dbBleve "github.com/kailas-cloud/docdex/internal/db/bleve"
	dbRedis "github.com/kailas-cloud/docdex/internal/db/redis"
	logpkg "github.com/kailas-cloud/docdex/internal/logger"
	"github.com/kailas-cloud/docdex/internal/metrics"
	catalogrepo "github.com/kailas-cloud/docdex/internal/repository/catalog"
	collectionrepo "github.com/kailas-cloud/docdex/internal/repository/collection"
	documentrepo "github.com/kailas-cloud/docdex/internal/repository/document"
	jobrepo "github.com/kailas-cloud/docdex/internal/repository/job"
	searchrepo "github.com/kailas-cloud/docdex/internal/repository/search"
	"github.com/kailas-cloud/docdex/internal/repository/source"
	chiTransport "github.com/kailas-cloud/docdex/internal/transport/chi"
	"github.com/kailas-cloud/docdex/internal/usecase/bulk"
	collectionuc "github.com/kailas-cloud/docdex/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/docdex/internal/usecase/document"
	"github.com/kailas-cloud/docdex/internal/usecase/expand"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
	"github.com/kailas-cloud/docdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	store, err := openStore(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register domain metrics explicitly (no init())
	metrics.RegisterDomainMetrics()

	// Repositories
	catalog := catalogrepo.New(store)
	collRepo := collectionrepo.New(store)
	docRepo := documentrepo.New(store)
	searchRepo := searchrepo.New(store)
	jobs := jobrepo.NewStore(time.Duration(cfg.Ingest.JobTTLMin) * time.Minute)

	// Use cases
	colls := collectionuc.New(collRepo, catalog, time.Duration(cfg.Search.ExistsCacheSec)*time.Second)
	docSvc := documentuc.New(docRepo, colls)
	expander := expand.New(searchRepo, colls).
		WithMaxKeys(cfg.Search.ExpandMaxKeys).
		WithMetrics(metrics.ExpansionTotal)
	searchSvc := searchuc.New(searchRepo, colls, expander).WithMetrics(metrics.SearchRequestsTotal)

	loader := bulk.New(docRepo, cfg.Ingest.ChunkSize).WithMetrics(metrics.IngestRowsTotal)
	coordinator := ingestuc.New(jobs, colls, loader, openSource, ingestuc.Config{
		SampleRows: cfg.Ingest.SampleRows,
		MaxFields:  cfg.Ingest.MaxFields,
		ChunkSize:  cfg.Ingest.ChunkSize,
		JobTimeout: time.Duration(cfg.Ingest.JobTimeoutMin) * time.Minute,
	}).
		WithCatalog(catalog).
		WithMetrics(metrics.IngestJobsTotal, metrics.IngestFileDuration)

	healthSvc := healthuc.New(store).
		WithCheck("uploads", healthuc.CheckFunc(func(context.Context) error {
			return os.MkdirAll(cfg.Ingest.UploadDir, 0o750)
		}))

	server := chiTransport.NewServer(colls, docSvc, searchSvc, coordinator, healthSvc, logger).
		WithUploads(chiTransport.UploadConfig{
			Dir:             cfg.Ingest.UploadDir,
			MaxBytes:        cfg.HTTP.MaxUploadMB << 20,
			AllowLocalPaths: cfg.Ingest.AllowLocalPaths,
		})

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Use(chiMiddleware.Timeout(time.Duration(cfg.Database.RequestTimeout) * time.Second))
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Running ingestion jobs finish before the store closes.
	done := make(chan struct{})
	go func() {
		coordinator.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("Ingestion jobs still running at shutdown")
	}

	logger.Info("Server stopped gracefully")
}

func openStore(cfg config.DatabaseConfig, logger *zap.Logger) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverBleve:
		return dbBleve.NewStore(dbBleve.Config{Path: cfg.Path, Logger: logger})
	case config.DriverRedis:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Addrs,
			Username:  cfg.Username,
			Password:  cfg.Password,
			DB:        cfg.DB,
			KeyPrefix: cfg.KeyPrefix,
			Logger:    logger,
		})
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func openSource(path, name string) (ingestuc.Source, error) {
	return source.Open(path, name)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorResponseCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("tenant", r.Header.Get(chiTransport.TenantHeader)),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
