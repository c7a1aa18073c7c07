package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ordersync/meli-sync-backend/internal/api"
	"github.com/ordersync/meli-sync-backend/internal/application/service"
	appsync "github.com/ordersync/meli-sync-backend/internal/application/sync"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/config"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/logging"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
	"github.com/ordersync/meli-sync-backend/internal/meli"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	flag.Parse()

	// Load .env for local development; absence is fine
	_ = godotenv.Load()

	cfg, err := config.LoadOrEnvWithPath(*configFile)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		logger.Error("Invalid sync timezone", "timezone", cfg.Sync.Timezone, "error", err)
		os.Exit(1)
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	client := meli.NewClient(meli.Config{
		ClientID:     cfg.Marketplace.ClientID,
		ClientSecret: cfg.Marketplace.ClientSecret,
		RedirectURI:  cfg.Marketplace.RedirectURI,
		APIBaseURL:   cfg.Marketplace.APIBaseURL,
		AuthBaseURL:  cfg.Marketplace.AuthBaseURL,
	}, meli.NewRepositoryTokenStore(store), &http.Client{Timeout: 30 * time.Second},
		logging.NewLoggerWithSystem(cfg.Observability.Logging, "meli"))

	orchestrator := appsync.NewOrchestrator(client, store, cfg.Taxes, loc,
		logging.NewLoggerWithSystem(cfg.Observability.Logging, "sync"))
	syncService := service.NewSyncService(orchestrator, logger)

	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, store, client, syncService, logger)

	// Serve until interrupted, then drain in-flight requests
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("Received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
