package models

import (
	"time"

	"gorm.io/gorm"

	"polymarket-tax-go/internal/tax"
)

// TaxLot is a persisted cost-basis lot. LotID is the engine-assigned
// identifier; the gorm primary key is internal to the database.
type TaxLot struct {
	gorm.Model
	LotID             string     `gorm:"uniqueIndex;not null" json:"lot_id"`
	TransactionID     string     `gorm:"index" json:"transaction_id"`
	WalletID          uint       `gorm:"index" json:"wallet_id"`
	MarketID          string     `gorm:"index;not null" json:"market_id"`
	MarketTitle       string     `json:"market_title"`
	Outcome           string     `gorm:"not null" json:"outcome"`
	Quantity          float64    `gorm:"not null" json:"quantity"`
	OriginalQuantity  float64    `gorm:"not null" json:"original_quantity"`
	CostBasisPerShare float64    `gorm:"not null" json:"cost_basis_per_share"`
	AcquiredAt        time.Time  `gorm:"not null" json:"acquired_at"`
	DisposedAt        *time.Time `json:"disposed_at,omitempty"`
	ProceedsPerShare  float64    `json:"proceeds_per_share,omitempty"`
	GainLoss          float64    `json:"gain_loss,omitempty"`
	HoldingPeriod     string     `json:"holding_period,omitempty"`
	IsOpen            bool       `gorm:"index;default:true" json:"is_open"`
}

// NewTaxLot builds a database record from an engine lot.
func NewTaxLot(l tax.TaxLot, walletID uint) TaxLot {
	return TaxLot{
		LotID:             l.ID,
		TransactionID:     l.TransactionID,
		WalletID:          walletID,
		MarketID:          l.MarketID,
		MarketTitle:       l.MarketTitle,
		Outcome:           string(l.Outcome),
		Quantity:          l.Quantity,
		OriginalQuantity:  l.OriginalQuantity,
		CostBasisPerShare: l.CostBasisPerShare,
		AcquiredAt:        l.AcquiredAt,
		DisposedAt:        l.DisposedAt,
		ProceedsPerShare:  l.ProceedsPerShare,
		GainLoss:          l.GainLoss,
		HoldingPeriod:     string(l.HoldingPeriod),
		IsOpen:            l.IsOpen,
	}
}

// ToTaxLot converts the record back to the engine type.
func (l *TaxLot) ToTaxLot() tax.TaxLot {
	return tax.TaxLot{
		ID:                l.LotID,
		TransactionID:     l.TransactionID,
		MarketID:          l.MarketID,
		MarketTitle:       l.MarketTitle,
		Outcome:           tax.Outcome(l.Outcome),
		Quantity:          l.Quantity,
		OriginalQuantity:  l.OriginalQuantity,
		CostBasisPerShare: l.CostBasisPerShare,
		AcquiredAt:        l.AcquiredAt,
		DisposedAt:        l.DisposedAt,
		ProceedsPerShare:  l.ProceedsPerShare,
		GainLoss:          l.GainLoss,
		HoldingPeriod:     tax.HoldingPeriod(l.HoldingPeriod),
		IsOpen:            l.IsOpen,
	}
}
