package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/analysis"
	"github.com/kailas-cloud/kbsearch/internal/config"
	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/kbsearch/internal/db/redis"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
	logpkg "github.com/kailas-cloud/kbsearch/internal/logger"
	"github.com/kailas-cloud/kbsearch/internal/metrics"
	"github.com/kailas-cloud/kbsearch/internal/repository/bleveindex"
	counterrepo "github.com/kailas-cloud/kbsearch/internal/repository/counter"
	documentrepo "github.com/kailas-cloud/kbsearch/internal/repository/document"
	chiTransport "github.com/kailas-cloud/kbsearch/internal/transport/chi"
	documentuc "github.com/kailas-cloud/kbsearch/internal/usecase/document"
	healthuc "github.com/kailas-cloud/kbsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/kbsearch/internal/usecase/search"
	"github.com/kailas-cloud/kbsearch/internal/usecase/views"
	"github.com/kailas-cloud/kbsearch/internal/version"
)

// documentStore is satisfied by both document store backends.
type documentStore interface {
	documentuc.Repository
	searchuc.Repository
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}

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

	logger.Info("Starting kbsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("analyzer", cfg.Analysis.Analyzer),
	)

	// One analyzer for indexing and querying.
	analyzer, err := analysis.New(cfg.Analysis.Analyzer)
	if err != nil {
		logger.Fatal("Failed to create analyzer", zap.Error(err))
	}

	ctx := context.Background()
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	// Document store
	var (
		docs       documentStore
		docsPinger healthuc.Pinger
		kvStore    db.Store
	)
	switch cfg.Database.Driver {
	case config.DriverRedis:
		store := mustRedis(ctx, logger, cfg.Database.Addrs, cfg.Database.Password, readiness)
		defer store.Close()
		docs = documentrepo.New(store, cfg.Storage.KeyPrefix)
		docsPinger = store
		kvStore = store
	case config.DriverMemory:
		store := memory.NewStore()
		docs = documentrepo.New(store, cfg.Storage.KeyPrefix)
		docsPinger = store
		kvStore = store
	case config.DriverBleve:
		idx, err := bleveindex.Open(cfg.Database.BlevePath, analyzer.Name())
		if err != nil {
			logger.Fatal("Failed to open bleve index", zap.Error(err))
		}
		defer func() { _ = idx.Close() }()
		docs = idx
		docsPinger = idx
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	logger.Info("Document store ready")

	// Counter store: dedicated connection, the document store's keyspace, or in-process.
	var counterStore db.Store
	switch {
	case len(cfg.Counters.Addrs) > 0:
		store := mustRedis(ctx, logger, cfg.Counters.Addrs, cfg.Counters.Password, readiness)
		defer store.Close()
		counterStore = store
	case kvStore != nil:
		counterStore = kvStore
	default:
		logger.Warn("No counter store configured, view counts are kept in process")
		counterStore = memory.NewStore()
	}
	counters := counterrepo.New(counterStore, cfg.Storage.KeyPrefix)

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	tracker := views.New(counters, views.Config{
		MaxInFlight:    cfg.Views.MaxInFlight,
		MaxAttempts:    cfg.Views.MaxAttempts,
		Timeout:        time.Duration(cfg.Views.TimeoutMs) * time.Millisecond,
		InitialBackoff: time.Duration(cfg.Views.InitialBackoffMs) * time.Millisecond,
	}, logger.Named("views"))

	// Create use case services
	searchSvc, err := searchuc.New(analyzer, docs, counters, tracker, searchuc.Config{
		Policy: searchuc.Policy{
			TitleBoost: *cfg.Ranking.TitleBoost,
			BoostMode:  searchuc.BoostMode(cfg.Ranking.BoostMode),
			Precision:  *cfg.Ranking.Precision,
		},
		Scoring:         vector.Scoring(cfg.Ranking.Scoring),
		StoreTimeout:    cfg.Search.StoreTimeout(),
		CounterTimeout:  cfg.Search.CounterTimeout(),
		SkipHitTracking: !*cfg.Search.TrackSearchHits,
	})
	if err != nil {
		logger.Fatal("Invalid search configuration", zap.Error(err))
	}
	docSvc := documentuc.New(docs, analyzer, tracker, counters).
		WithTimeouts(cfg.Search.StoreTimeout(), cfg.Search.CounterTimeout())
	healthSvc := healthuc.New(docsPinger, counters)

	// Create chi server
	server := chiTransport.NewServer(docSvc, searchSvc, healthSvc, logger)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
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
	// Pending view writes go out before the stores close.
	if err := tracker.Close(shutdownCtx); err != nil {
		logger.Warn("View writes abandoned on shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func mustRedis(
	ctx context.Context, logger *zap.Logger, addrs []string, password string, readiness time.Duration,
) *dbRedis.Store {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    addrs,
		Password: password,
	})
	if err != nil {
		logger.Fatal("Failed to create redis store", zap.Error(err))
	}
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Redis not ready", zap.Strings("addrs", addrs), zap.Error(err))
	}
	return store
}
