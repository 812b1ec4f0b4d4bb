package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"polymarket-tax-go/internal/models"
	"polymarket-tax-go/internal/polymarket"
)

// Importer pulls wallet history from the Polymarket Data API or a CSV file
// and stores normalized transactions.
type Importer struct {
	db     *gorm.DB
	client polymarket.ClientInterface
	logger *zap.Logger
}

// NewImporter creates an importer.
func NewImporter(db *gorm.DB, client polymarket.ClientInterface, logger *zap.Logger) *Importer {
	return &Importer{db: db, client: client, logger: logger}
}

// Stats reports the outcome of one import.
type Stats struct {
	Imported   int  `json:"imported"`
	Duplicates int  `json:"duplicates"`
	WalletID   uint `json:"wallet_id,omitempty"`
}

// ImportWallet registers the wallet if needed, fetches its full activity
// history from the Data API and stores new transactions.
func (im *Importer) ImportWallet(address, label string) (*Stats, error) {
	wallet, err := im.ensureWallet(address, label)
	if err != nil {
		return nil, err
	}
	return im.syncWallet(wallet)
}

// ImportWalletTrades registers the wallet if needed and imports its fill
// history from the CLOB trades endpoint instead of the Data API. The CLOB
// only covers order-book fills, so redemptions are missed, but its records
// carry fee rates the activity feed lacks.
func (im *Importer) ImportWalletTrades(address, label string) (*Stats, error) {
	wallet, err := im.ensureWallet(address, label)
	if err != nil {
		return nil, err
	}
	return im.syncWalletTrades(wallet)
}

func (im *Importer) ensureWallet(address, label string) (*models.Wallet, error) {
	addr := strings.ToLower(strings.TrimSpace(address))
	if addr == "" {
		return nil, errors.New("wallet address is required")
	}

	var wallet models.Wallet
	err := im.db.Where("address = ?", addr).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = models.Wallet{Address: addr, Label: label}
		if err := im.db.Create(&wallet).Error; err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up wallet: %w", err)
	}

	return &wallet, nil
}

// SyncWallet re-fetches activity for an already registered wallet.
func (im *Importer) SyncWallet(walletID uint) (*Stats, error) {
	var wallet models.Wallet
	if err := im.db.First(&wallet, walletID).Error; err != nil {
		return nil, fmt.Errorf("failed to look up wallet %d: %w", walletID, err)
	}
	return im.syncWallet(&wallet)
}

func (im *Importer) syncWallet(wallet *models.Wallet) (*Stats, error) {
	activities, err := im.client.FetchActivity(wallet.Address)
	if err != nil {
		return nil, err
	}

	normalized := polymarket.NormalizeActivity(activities)
	stats := im.insert(normalized, wallet.ID)
	stats.WalletID = wallet.ID

	now := time.Now()
	wallet.LastSyncAt = &now
	if err := im.db.Save(wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to update wallet sync time: %w", err)
	}

	im.logger.Info("Synced wallet",
		zap.String("address", wallet.Address),
		zap.Int("imported", stats.Imported),
		zap.Int("duplicates", stats.Duplicates),
	)
	return stats, nil
}

func (im *Importer) syncWalletTrades(wallet *models.Wallet) (*Stats, error) {
	trades, err := im.client.FetchTrades(wallet.Address)
	if err != nil {
		return nil, err
	}

	conditionIDs := make([]string, 0, len(trades))
	seen := make(map[string]bool, len(trades))
	for _, trade := range trades {
		if !seen[trade.Market] {
			seen[trade.Market] = true
			conditionIDs = append(conditionIDs, trade.Market)
		}
	}

	markets, err := im.client.FetchMarkets(conditionIDs)
	if err != nil {
		return nil, err
	}

	normalized := polymarket.NormalizeTrades(trades, markets)
	stats := im.insert(normalized, wallet.ID)
	stats.WalletID = wallet.ID

	now := time.Now()
	wallet.LastSyncAt = &now
	if err := im.db.Save(wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to update wallet sync time: %w", err)
	}

	im.logger.Info("Imported wallet trade history",
		zap.String("address", wallet.Address),
		zap.Int("imported", stats.Imported),
		zap.Int("duplicates", stats.Duplicates),
	)
	return stats, nil
}

// ImportCSV reads transactions from a CSV file and stores the new ones.
// Column mapping is auto-detected from the header row.
func (im *Importer) ImportCSV(r io.Reader, walletID uint) (*Stats, error) {
	normalized, err := polymarket.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, errors.New("no importable rows found in CSV")
	}

	stats := im.insert(normalized, walletID)
	im.logger.Info("Imported CSV",
		zap.Int("imported", stats.Imported),
		zap.Int("duplicates", stats.Duplicates),
	)
	return stats, nil
}

// insert stores normalized transactions, skipping any whose transaction
// hash is already present.
func (im *Importer) insert(normalized []polymarket.NormalizedTransaction, walletID uint) *Stats {
	stats := &Stats{}

	for _, n := range normalized {
		if n.TransactionHash != "" {
			var count int64
			im.db.Model(&models.Transaction{}).
				Where("transaction_hash = ?", n.TransactionHash).
				Count(&count)
			if count > 0 {
				stats.Duplicates++
				continue
			}
		}

		record := models.NewTransaction(n, walletID)
		if err := im.db.Create(&record).Error; err != nil {
			im.logger.Warn("Failed to store transaction",
				zap.String("market_id", n.MarketID),
				zap.Error(err),
			)
			continue
		}
		stats.Imported++
	}

	return stats
}
