package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	appsync "github.com/ordersync/meli-sync-backend/internal/application/sync"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/config"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/logging"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
	"github.com/ordersync/meli-sync-backend/internal/meli"
)

func main() {
	var (
		configFile   = flag.String("config", "config.yaml", "Configuration file path")
		lookbackDays = flag.Int("days", 0, "Number of days to look back (0 = configured default)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadOrEnvWithPath(*configFile)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	loggingCfg := cfg.Observability.Logging
	if *verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "sync")

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
		logging.NewLoggerWithSystem(loggingCfg, "meli"))

	orchestrator := appsync.NewOrchestrator(client, store, cfg.Taxes, loc, logger)

	days := *lookbackDays
	if days <= 0 {
		days = cfg.Sync.LookbackDays
	}

	result, err := orchestrator.Run(context.Background(), appsync.Options{
		LookbackDays: days,
		Concurrency:  cfg.Sync.Concurrency,
	})
	if err != nil {
		logger.Error("Sync failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("orders found:     %d\n", result.OrdersFound)
	fmt.Printf("orders processed: %d\n", result.OrdersProcessed)
	fmt.Printf("orders defaulted: %d\n", result.OrdersDefaulted)
	fmt.Printf("orders pruned:    %d\n", result.OrdersPruned)
	if len(result.Errors) > 0 {
		fmt.Printf("errors:           %d\n", len(result.Errors))
		for _, msg := range result.ErrorMessages() {
			fmt.Println("  - " + msg)
		}
	}
}
