package reports

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"polymarket-tax-go/internal/models"
	"polymarket-tax-go/internal/tax"
)

// Generator produces tax reports from persisted transactions and lots.
type Generator struct {
	db     *gorm.DB
	logger *zap.Logger
	rates  tax.Rates
}

// NewGenerator creates a report generator.
func NewGenerator(db *gorm.DB, logger *zap.Logger, rates tax.Rates) *Generator {
	return &Generator{db: db, logger: logger, rates: rates}
}

// Options selects what to generate.
type Options struct {
	WalletID        uint // 0 means all wallets
	TaxYear         int
	Treatment       tax.Treatment
	CostBasisMethod tax.CostBasisMethod
	Compare         bool
	Persist         bool
}

// Result is a generated report plus the optional treatment comparison.
type Result struct {
	Report     *tax.TaxReport           `json:"report"`
	Comparison *tax.TreatmentComparison `json:"comparison,omitempty"`
}

// Generate replays the year's stored transactions against the persisted
// lots and assembles the report. Disposals the lot pool cannot satisfy are
// logged and skipped so one inconsistent record does not block the report.
func (g *Generator) Generate(opts Options) (*Result, error) {
	yearStart := time.Date(opts.TaxYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(opts.TaxYear, time.December, 31, 23, 59, 59, 0, time.UTC)

	txQuery := g.db.Where("timestamp >= ? AND timestamp <= ?", yearStart, yearEnd)
	if opts.WalletID != 0 {
		txQuery = txQuery.Where("wallet_id = ?", opts.WalletID)
	}
	var txRecords []models.Transaction
	if err := txQuery.Order("timestamp asc").Find(&txRecords).Error; err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	lotQuery := g.db
	if opts.WalletID != 0 {
		lotQuery = lotQuery.Where("wallet_id = ?", opts.WalletID)
	}
	var lotRecords []models.TaxLot
	if err := lotQuery.Find(&lotRecords).Error; err != nil {
		return nil, fmt.Errorf("failed to load tax lots: %w", err)
	}

	workingLots := make([]tax.TaxLot, 0, len(lotRecords))
	lotWallets := make(map[string]uint, len(lotRecords))
	for i := range lotRecords {
		workingLots = append(workingLots, lotRecords[i].ToTaxLot())
		lotWallets[lotRecords[i].LotID] = lotRecords[i].WalletID
	}

	var (
		dispositions []tax.Disposition
		totalVolume  float64
		totalFees    float64
		winCount     int
		lossCount    int
	)

	for _, record := range txRecords {
		totalVolume += record.TotalAmount
		totalFees += record.Fee

		txType := tax.TransactionType(record.Type)
		switch {
		case txType == tax.TxBuy:
			lotWallets[fmt.Sprintf("tx-%d", record.ID)] = record.WalletID
			workingLots = append(workingLots, tax.TaxLot{
				ID:                fmt.Sprintf("tx-%d", record.ID),
				TransactionID:     fmt.Sprintf("%d", record.ID),
				MarketID:          record.MarketID,
				MarketTitle:       record.MarketTitle,
				Outcome:           tax.Outcome(record.Outcome),
				Quantity:          record.Quantity,
				OriginalQuantity:  record.Quantity,
				CostBasisPerShare: record.PricePerShare,
				AcquiredAt:        record.Timestamp,
				HoldingPeriod:     tax.ShortTerm,
				IsOpen:            true,
			})

		case txType.IsDisposal():
			proceedsPerShare := disposalProceeds(txType, record.PricePerShare)

			newDispositions, updatedLots, err := tax.ProcessDisposition(
				workingLots,
				record.MarketID,
				tax.Outcome(record.Outcome),
				record.Quantity,
				proceedsPerShare,
				record.Timestamp,
				opts.CostBasisMethod,
				nil,
			)
			if err != nil {
				g.logger.Warn("Skipping disposal with insufficient lots",
					zap.String("market_id", record.MarketID),
					zap.String("outcome", record.Outcome),
					zap.Float64("quantity", record.Quantity),
					zap.Error(err),
				)
				continue
			}

			dispositions = append(dispositions, newDispositions...)
			workingLots = updatedLots

			for _, d := range newDispositions {
				if d.GainLoss >= 0 {
					winCount++
				} else {
					lossCount++
				}
			}
		}
	}

	var openCount int
	var openValue float64
	for _, lot := range workingLots {
		if lot.IsOpen {
			openCount++
			openValue += lot.Quantity * lot.CostBasisPerShare
		}
	}

	report := tax.GenerateTaxReport(tax.ReportInput{
		UserID:             g.reportOwner(opts.WalletID),
		TaxYear:            opts.TaxYear,
		Treatment:          opts.Treatment,
		CostBasisMethod:    opts.CostBasisMethod,
		Dispositions:       dispositions,
		TotalTransactions:  len(txRecords),
		TotalVolume:        totalVolume,
		TotalFees:          totalFees,
		WinCount:           winCount,
		LossCount:          lossCount,
		OpenPositionsCount: openCount,
		OpenPositionsValue: openValue,
	}, g.rates)

	result := &Result{Report: report}
	if opts.Compare {
		comparison := tax.CompareTreatments(dispositions, opts.TaxYear, g.rates)
		result.Comparison = &comparison
	}

	if opts.Persist {
		if err := g.persistLots(workingLots, lotWallets); err != nil {
			return nil, err
		}

		record, err := models.NewTaxReportRecord(report, opts.WalletID, EstimatedTax(report, g.rates))
		if err != nil {
			return nil, err
		}
		if err := g.db.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("failed to persist report: %w", err)
		}
		g.logger.Info("Persisted tax report",
			zap.Uint("report_id", record.ID),
			zap.Int("tax_year", opts.TaxYear),
			zap.String("treatment", string(opts.Treatment)),
		)
	}

	return result, nil
}

// persistLots upserts the post-replay lot state keyed by lot id, so the next
// generation run carries these lots over instead of rebuilding from scratch.
func (g *Generator) persistLots(lots []tax.TaxLot, lotWallets map[string]uint) error {
	for i := range lots {
		record := models.NewTaxLot(lots[i], lotWallets[lots[i].ID])

		var existing models.TaxLot
		err := g.db.Where("lot_id = ?", record.LotID).First(&existing).Error
		switch {
		case err == nil:
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
			if err := g.db.Save(&record).Error; err != nil {
				return fmt.Errorf("failed to update tax lot %s: %w", record.LotID, err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := g.db.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to persist tax lot %s: %w", record.LotID, err)
			}
		default:
			return fmt.Errorf("failed to look up tax lot %s: %w", record.LotID, err)
		}
	}
	return nil
}

// disposalProceeds maps a disposal type to per-share proceeds. A recorded
// SETTLEMENT is a winning resolution paying out at 1.0; a REDEEM is the
// worthless side redeemed at 0.0.
func disposalProceeds(txType tax.TransactionType, pricePerShare float64) float64 {
	switch txType {
	case tax.TxSettlement:
		return 1.0
	case tax.TxRedeem:
		return 0.0
	default:
		return pricePerShare
	}
}

// reportOwner labels the report with the wallet address when a single
// wallet was selected.
func (g *Generator) reportOwner(walletID uint) string {
	if walletID == 0 {
		return "all-wallets"
	}
	var wallet models.Wallet
	if err := g.db.First(&wallet, walletID).Error; err != nil {
		return fmt.Sprintf("wallet-%d", walletID)
	}
	return wallet.Address
}

// EstimatedTax computes the estimated liability for the report's treatment
// using the same maximum-rate assumptions as the replay calculator.
func EstimatedTax(report *tax.TaxReport, rates tax.Rates) float64 {
	switch {
	case report.Gambling != nil:
		return math.Max(0, report.Gambling.NetGamblingIncome) * rates.MaxOrdinaryRate
	case report.Business != nil:
		b := report.Business
		return math.Max(0, b.NetBusinessIncome)*rates.MaxOrdinaryRate + b.SelfEmploymentTax
	case report.CapitalGains != nil:
		cg := report.CapitalGains
		if cg.TotalNet < 0 {
			return -(cg.CapitalLossDeduction * rates.MaxOrdinaryRate)
		}
		return math.Max(0, cg.ShortTermNet)*rates.MaxOrdinaryRate +
			math.Max(0, cg.LongTermNet)*rates.MaxLongTermRate
	}
	return 0
}
