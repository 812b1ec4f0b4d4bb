package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"polymarket-tax-go/internal/tax"
)

// TaxReportRecord is a persisted snapshot of one generated report. The
// full report is stored as JSON; the scalar columns exist for listing
// reports without deserializing everything.
type TaxReportRecord struct {
	gorm.Model
	WalletID          uint      `gorm:"index" json:"wallet_id"`
	TaxYear           int       `gorm:"index;not null" json:"tax_year"`
	Treatment         string    `gorm:"not null" json:"treatment"`
	CostBasisMethod   string    `gorm:"not null" json:"cost_basis_method"`
	GeneratedAt       time.Time `gorm:"not null" json:"generated_at"`
	TotalTransactions int       `json:"total_transactions"`
	TotalGainLoss     float64   `json:"total_gain_loss"`
	EstimatedTax      float64   `json:"estimated_tax"`
	ReportJSON        string    `gorm:"type:text" json:"-"`
}

// NewTaxReportRecord serializes a generated report into a database snapshot.
func NewTaxReportRecord(report *tax.TaxReport, walletID uint, estimatedTax float64) (TaxReportRecord, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return TaxReportRecord{}, fmt.Errorf("failed to serialize report: %w", err)
	}

	var totalGainLoss float64
	for _, d := range report.Dispositions {
		totalGainLoss += d.GainLoss
	}

	return TaxReportRecord{
		WalletID:          walletID,
		TaxYear:           report.TaxYear,
		Treatment:         string(report.Treatment),
		CostBasisMethod:   string(report.CostBasisMethod),
		GeneratedAt:       report.GeneratedAt,
		TotalTransactions: report.TotalTransactions,
		TotalGainLoss:     totalGainLoss,
		EstimatedTax:      estimatedTax,
		ReportJSON:        string(payload),
	}, nil
}

// Report deserializes the stored snapshot.
func (r *TaxReportRecord) Report() (*tax.TaxReport, error) {
	var report tax.TaxReport
	if err := json.Unmarshal([]byte(r.ReportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to deserialize report: %w", err)
	}
	return &report, nil
}
