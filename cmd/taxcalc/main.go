package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"polymarket-tax-go/internal/config"
	"polymarket-tax-go/internal/database"
	"polymarket-tax-go/internal/importer"
	"polymarket-tax-go/internal/logger"
	"polymarket-tax-go/internal/models"
	"polymarket-tax-go/internal/polymarket"
	"polymarket-tax-go/internal/reports"
	"polymarket-tax-go/internal/tax"
)

const usage = `Usage: taxcalc <command> [flags]

Commands:
  import     Import wallet history from the Polymarket Data API or a CSV file
  calculate  Replay stored transactions and print the tax summary for one year
  report     Generate a full tax report with Form 8949 lines

Run 'taxcalc <command> -h' for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Initialize database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	switch os.Args[1] {
	case "import":
		runImport(os.Args[2:], &cfg, log, db)
	case "calculate":
		runCalculate(os.Args[2:], &cfg, log, db)
	case "report":
		runReport(os.Args[2:], &cfg, log, db)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func runImport(args []string, cfg *config.Config, log *zap.Logger, db *gorm.DB) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	wallet := fs.String("wallet", "", "wallet address to import")
	label := fs.String("label", "", "optional wallet label")
	source := fs.String("source", "activity", "wallet import source: activity (Data API) or trades (CLOB fills)")
	csvPath := fs.String("csv", "", "CSV file to import")
	fs.Parse(args)

	client := polymarket.NewClient(&cfg.Polymarket, log)
	im := importer.NewImporter(db, client, log)

	var stats *importer.Stats
	var err error
	switch {
	case *wallet != "" && *source == "trades":
		stats, err = im.ImportWalletTrades(*wallet, *label)
	case *wallet != "":
		stats, err = im.ImportWallet(*wallet, *label)
	case *csvPath != "":
		var f *os.File
		f, err = os.Open(*csvPath)
		if err != nil {
			log.Fatal("Failed to open CSV file", zap.Error(err))
		}
		defer f.Close()
		stats, err = im.ImportCSV(f, 0)
	default:
		fmt.Fprintln(os.Stderr, "import requires -wallet or -csv")
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("Import failed", zap.Error(err))
	}

	log.Info("Import complete",
		zap.Int("imported", stats.Imported),
		zap.Int("duplicates", stats.Duplicates),
	)
}

func runCalculate(args []string, cfg *config.Config, log *zap.Logger, db *gorm.DB) {
	fs := flag.NewFlagSet("calculate", flag.ExitOnError)
	year := fs.Int("year", cfg.Tax.Year, "tax year")
	treatment := fs.String("treatment", cfg.Tax.Treatment, "capital_gains, gambling or business")
	method := fs.String("method", cfg.Tax.CostBasisMethod, "fifo, lifo or specific_id")
	fs.Parse(args)

	var records []models.Transaction
	if err := db.Order("timestamp asc").Find(&records).Error; err != nil {
		log.Fatal("Failed to load transactions", zap.Error(err))
	}

	transactions := make([]tax.Transaction, 0, len(records))
	for i := range records {
		transactions = append(transactions, records[i].ToTaxTransaction())
	}

	calc := tax.NewCalculator(log, tax.Treatment(*treatment), tax.CostBasisMethod(*method), *year, cfg.Tax.Rates)
	result, err := calc.Calculate(transactions)
	if err != nil {
		log.Fatal("Calculation failed", zap.Error(err))
	}

	printJSON(result.Summary)
}

func runReport(args []string, cfg *config.Config, log *zap.Logger, db *gorm.DB) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	year := fs.Int("year", cfg.Tax.Year, "tax year")
	treatment := fs.String("treatment", cfg.Tax.Treatment, "capital_gains, gambling or business")
	method := fs.String("method", cfg.Tax.CostBasisMethod, "fifo, lifo or specific_id")
	walletID := fs.Uint("wallet-id", 0, "restrict the report to one wallet (0 = all)")
	compare := fs.Bool("compare", false, "include a comparison of all three treatments")
	persist := fs.Bool("persist", false, "store a snapshot of the report")
	form8949 := fs.String("form8949", "", "write Form 8949 lines to this CSV file")
	fs.Parse(args)

	generator := reports.NewGenerator(db, log, cfg.Tax.Rates)
	result, err := generator.Generate(reports.Options{
		WalletID:        uint(*walletID),
		TaxYear:         *year,
		Treatment:       tax.Treatment(*treatment),
		CostBasisMethod: tax.CostBasisMethod(*method),
		Compare:         *compare,
		Persist:         *persist,
	})
	if err != nil {
		log.Fatal("Report generation failed", zap.Error(err))
	}

	if *form8949 != "" {
		f, err := os.Create(*form8949)
		if err != nil {
			log.Fatal("Failed to create Form 8949 file", zap.Error(err))
		}
		defer f.Close()
		if err := reports.WriteForm8949CSV(f, result.Report); err != nil {
			log.Fatal("Failed to write Form 8949 file", zap.Error(err))
		}
		log.Info("Wrote Form 8949 CSV", zap.String("path", *form8949))
	}

	printJSON(result)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		os.Exit(1)
	}
}
