package main

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"polymarket-tax-go/internal/config"
	"polymarket-tax-go/internal/database"
	"polymarket-tax-go/internal/importer"
	"polymarket-tax-go/internal/logger"
	"polymarket-tax-go/internal/polymarket"
	"polymarket-tax-go/internal/reports"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	client := polymarket.NewClient(&cfg.Polymarket, log)
	im := importer.NewImporter(db, client, log)
	generator := reports.NewGenerator(db, log, cfg.Tax.Rates)

	// Setup HTTP server
	mux := http.NewServeMux()

	// Create a handler that has access to the logger and db
	apiHandler := NewAPIHandler(log, db, client, im, generator, cfg.Tax.Rates)

	// API endpoints
	mux.HandleFunc("/api/status", apiHandler.StatusHandler)
	mux.HandleFunc("/api/calculate", apiHandler.CalculateHandler)
	mux.HandleFunc("/api/polymarket", apiHandler.PolymarketHandler)
	mux.HandleFunc("/api/positions", apiHandler.PositionsHandler)
	mux.HandleFunc("/api/transactions", apiHandler.TransactionsHandler)
	mux.HandleFunc("/api/wallets", apiHandler.WalletsHandler)
	mux.HandleFunc("/api/wallets/sync", apiHandler.SyncHandler)
	mux.HandleFunc("/api/transactions/import", apiHandler.ImportHandler)
	mux.HandleFunc("/api/reports", apiHandler.ReportsHandler)
	mux.HandleFunc("/api/reports/generate", apiHandler.GenerateReportHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting web server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
