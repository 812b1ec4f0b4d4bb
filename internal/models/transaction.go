package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"

	"polymarket-tax-go/internal/polymarket"
	"polymarket-tax-go/internal/tax"
)

// Transaction is a normalized transaction record in the database.
// Imports deduplicate on the transaction hash so re-syncs are idempotent.
type Transaction struct {
	gorm.Model
	WalletID        uint      `gorm:"index" json:"wallet_id"`
	MarketID        string    `gorm:"index;not null" json:"market_id"`
	MarketTitle     string    `json:"market_title"`
	Outcome         string    `gorm:"not null" json:"outcome"` // YES | NO
	Type            string    `gorm:"not null" json:"type"`    // BUY | SELL | SETTLEMENT | REDEEM
	Quantity        float64   `gorm:"not null" json:"quantity"`
	PricePerShare   float64   `gorm:"not null" json:"price_per_share"`
	TotalAmount     float64   `gorm:"not null" json:"total_amount"`
	Fee             float64   `gorm:"default:0" json:"fee"`
	TransactionHash string    `gorm:"index" json:"transaction_hash,omitempty"`
	Timestamp       time.Time `gorm:"index;not null" json:"timestamp"`
	ImportSource    string    `json:"import_source"` // api | csv | manual
}

// NewTransaction builds a database record from a normalized import record.
func NewTransaction(n polymarket.NormalizedTransaction, walletID uint) Transaction {
	return Transaction{
		WalletID:        walletID,
		MarketID:        n.MarketID,
		MarketTitle:     n.MarketTitle,
		Outcome:         string(n.Outcome),
		Type:            string(n.Type),
		Quantity:        n.Quantity,
		PricePerShare:   n.PricePerShare,
		TotalAmount:     n.TotalAmount,
		Fee:             n.Fee,
		TransactionHash: n.TransactionHash,
		Timestamp:       n.Timestamp,
		ImportSource:    n.ImportSource,
	}
}

// ToTaxTransaction converts the record to the engine's input type.
func (t *Transaction) ToTaxTransaction() tax.Transaction {
	return tax.Transaction{
		ID:            strconv.FormatUint(uint64(t.ID), 10),
		MarketID:      t.MarketID,
		MarketTitle:   t.MarketTitle,
		Outcome:       tax.Outcome(t.Outcome),
		Type:          tax.TransactionType(t.Type),
		Quantity:      t.Quantity,
		PricePerShare: t.PricePerShare,
		TotalAmount:   t.TotalAmount,
		Fee:           t.Fee,
		Timestamp:     t.Timestamp,
	}
}
