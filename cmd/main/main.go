package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-pipeline/src/backend"
	"market-pipeline/src/candles"
	"market-pipeline/src/config"
	"market-pipeline/src/data_source/live"
	"market-pipeline/src/data_source/synthetic"
	"market-pipeline/src/interfaces"
	"market-pipeline/src/logger"
	"market-pipeline/src/normalizer"
	"market-pipeline/src/pipeline"
	"market-pipeline/src/rates"
	"market-pipeline/src/server"
	"market-pipeline/src/session"
	"market-pipeline/src/storage"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.Name, cfg.LogLevel)

	// 1. Durable storage (session cache + local candle archive)
	var db interfaces.IDatabase

	switch cfg.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(cfg.Storage, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewSQLiteDB(cfg.Storage, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	if err := db.CleanupOldData(); err != nil {
		appLogger.Warning("Startup cleanup failed: %v", err)
	}

	// 2. Backend client serves both session fetch and candle submission
	backendClient := backend.NewClient(cfg.Backend, appLogger)

	// 3. Core pipeline components
	resolver := session.NewResolver(backendClient, db, cfg.Session, appLogger)
	store := rates.NewStore(appLogger)
	norm := normalizer.NewNormalizer(appLogger)
	dispatcher := candles.NewDispatcher(backendClient, db, cfg.Source.QueueSize, appLogger)
	aggregator := candles.NewAggregator(resolver, dispatcher, appLogger)

	// 4. Tick source selection
	var source interfaces.ITickSource

	switch cfg.Source.Mode {
	case "live":
		source = live.NewSource(cfg.Source.WsURL, appLogger)
	default:
		interval := time.Duration(cfg.Source.TickIntervalMs) * time.Millisecond
		source = synthetic.NewSource(interval, store.Snapshot, appLogger)
	}

	engine := pipeline.NewEngine(source, norm, store, aggregator, dispatcher, resolver, cfg.Source.QueueSize, appLogger)

	// 5. Read surface: REST + websocket fan-out fed by the store
	srv := server.NewAPIServer(cfg.MConfig, resolver, engine, appLogger)
	store.Subscribe(srv.Broadcast)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 6. Start the pipeline
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		appLogger.Critical("Failed to start pipeline: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Pipeline running (source=%s)", source.Name())
	<-quit

	appLogger.Info("Shutting down...")
	engine.Stop() // flushes open candles and drains the submission queue
	srv.Stop()
}
