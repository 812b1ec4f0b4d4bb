package tax

import "time"

// Treatment selects which IRS interpretation the calculator applies.
type Treatment string

const (
	TreatmentCapitalGains Treatment = "capital_gains"
	TreatmentGambling     Treatment = "gambling"
	TreatmentBusiness     Treatment = "business"
)

// CostBasisMethod selects the lot consumption order for disposals.
type CostBasisMethod string

const (
	MethodFIFO       CostBasisMethod = "fifo"
	MethodLIFO       CostBasisMethod = "lifo"
	MethodSpecificID CostBasisMethod = "specific_id"
)

// HoldingPeriod classifies a disposition as short-term or long-term.
type HoldingPeriod string

const (
	ShortTerm HoldingPeriod = "short-term"
	LongTerm  HoldingPeriod = "long-term"
)

// TransactionType is the kind of normalized transaction.
type TransactionType string

const (
	TxBuy        TransactionType = "BUY"
	TxSell       TransactionType = "SELL"
	TxSettlement TransactionType = "SETTLEMENT"
	TxRedeem     TransactionType = "REDEEM"
)

// Outcome is the binary market side a position is held on.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// Transaction is a normalized, immutable input record produced by the import
// pipeline. Prices are per share; for prediction markets they conventionally
// sit in [0,1] but the engine does not enforce that.
type Transaction struct {
	ID            string          `json:"id"`
	MarketID      string          `json:"market_id"`
	MarketTitle   string          `json:"market_title"`
	Outcome       Outcome         `json:"outcome"`
	Type          TransactionType `json:"type"`
	Quantity      float64         `json:"quantity"`
	PricePerShare float64         `json:"price_per_share"`
	TotalAmount   float64         `json:"total_amount"`
	Fee           float64         `json:"fee"`
	Timestamp     time.Time       `json:"timestamp"`
}

// TaxLot is an acquisition tracked for cost-basis purposes. Quantity shrinks
// as the lot is consumed by disposals; a lot whose quantity reaches zero is
// closed and keeps its disposal annotations as a historical record.
type TaxLot struct {
	ID                string        `json:"id"`
	TransactionID     string        `json:"transaction_id"`
	MarketID          string        `json:"market_id"`
	MarketTitle       string        `json:"market_title"`
	Outcome           Outcome       `json:"outcome"`
	Quantity          float64       `json:"quantity"`
	OriginalQuantity  float64       `json:"original_quantity"`
	CostBasisPerShare float64       `json:"cost_basis_per_share"`
	AcquiredAt        time.Time     `json:"acquired_at"`
	DisposedAt        *time.Time    `json:"disposed_at,omitempty"`
	ProceedsPerShare  float64       `json:"proceeds_per_share,omitempty"`
	GainLoss          float64       `json:"gain_loss,omitempty"`
	HoldingPeriod     HoldingPeriod `json:"holding_period"`
	IsOpen            bool          `json:"is_open"`
}

// DisposedLot is the immutable record of the portion of one lot consumed by
// one disposal. The holding period is computed from the pairing of the lot's
// acquisition date with this disposal's date.
type DisposedLot struct {
	LotID             string        `json:"lot_id"`
	Quantity          float64       `json:"quantity"`
	CostBasisPerShare float64       `json:"cost_basis_per_share"`
	ProceedsPerShare  float64       `json:"proceeds_per_share"`
	GainLoss          float64       `json:"gain_loss"`
	HoldingPeriod     HoldingPeriod `json:"holding_period"`
	AcquiredAt        time.Time     `json:"acquired_at"`
	DisposedAt        time.Time     `json:"disposed_at"`
}

// TaxEvent is the result of processing one disposal transaction. A single
// disposal may span multiple lots. The aggregate holding period is long-term
// only if every consumed lot is long-term.
type TaxEvent struct {
	Transaction    Transaction   `json:"transaction"`
	Lots           []DisposedLot `json:"lots"`
	TotalProceeds  float64       `json:"total_proceeds"`
	TotalCostBasis float64       `json:"total_cost_basis"`
	TotalGainLoss  float64       `json:"total_gain_loss"`
	HoldingPeriod  HoldingPeriod `json:"holding_period"`
	IsSettlement   bool          `json:"is_settlement"`
}

// TaxSummary aggregates all tax events for one (treatment, tax year).
// Treatment-specific fields are zero for the treatments they do not apply to.
type TaxSummary struct {
	Treatment       Treatment `json:"treatment"`
	TaxYear         int       `json:"tax_year"`
	TotalProceeds   float64   `json:"total_proceeds"`
	TotalCostBasis  float64   `json:"total_cost_basis"`
	TotalGainLoss   float64   `json:"total_gain_loss"`
	ShortTermGains  float64   `json:"short_term_gains"`
	ShortTermLosses float64   `json:"short_term_losses"`
	LongTermGains   float64   `json:"long_term_gains"`
	LongTermLosses  float64   `json:"long_term_losses"`
	NetShortTerm    float64   `json:"net_short_term"`
	NetLongTerm     float64   `json:"net_long_term"`

	// Capital gains treatment
	LossCarryforward        float64 `json:"loss_carryforward,omitempty"`
	NetCapitalLossDeduction float64 `json:"net_capital_loss_deduction,omitempty"`

	// Gambling treatment
	GrossWinnings    float64 `json:"gross_winnings,omitempty"`
	DeductibleLosses float64 `json:"deductible_losses,omitempty"`

	// Business treatment
	SelfEmploymentTax float64 `json:"self_employment_tax,omitempty"`
	NetBusinessIncome float64 `json:"net_business_income,omitempty"`

	EstimatedTaxLiability float64 `json:"estimated_tax_liability"`
}

// Form8949Entry is one Form 8949 row, mapped 1:1 from a disposed lot.
// Box B marks short-term and box E long-term dispositions for which no
// 1099-B was issued and basis was not reported to the IRS.
type Form8949Entry struct {
	Description   string        `json:"description"`
	DateAcquired  time.Time     `json:"date_acquired"`
	DateSold      time.Time     `json:"date_sold"`
	Proceeds      float64       `json:"proceeds"`
	CostBasis     float64       `json:"cost_basis"`
	Adjustments   float64       `json:"adjustments"`
	GainLoss      float64       `json:"gain_loss"`
	HoldingPeriod HoldingPeriod `json:"holding_period"`
	Box           string        `json:"box"`
}

// ScheduleDSummary combines Form 8949 totals into Schedule D Parts I-III.
type ScheduleDSummary struct {
	ShortTermFromForm8949      float64 `json:"short_term_from_form_8949"`
	LongTermFromForm8949       float64 `json:"long_term_from_form_8949"`
	NetShortTermGainLoss       float64 `json:"net_short_term_gain_loss"`
	NetLongTermGainLoss        float64 `json:"net_long_term_gain_loss"`
	NetCapitalGainLoss         float64 `json:"net_capital_gain_loss"`
	CapitalLossDeduction       float64 `json:"capital_loss_deduction"`
	LossCarryforwardToNextYear float64 `json:"loss_carryforward_to_next_year"`
}

// Disposition is the flattened, persistence-friendly analogue of a disposed
// lot, used by the report-generation path where lots span sessions and years.
type Disposition struct {
	LotID             string        `json:"lot_id"`
	MarketID          string        `json:"market_id"`
	MarketTitle       string        `json:"market_title"`
	Outcome           Outcome       `json:"outcome"`
	Quantity          float64       `json:"quantity"`
	CostBasisPerShare float64       `json:"cost_basis_per_share"`
	ProceedsPerShare  float64       `json:"proceeds_per_share"`
	AcquiredAt        time.Time     `json:"acquired_at"`
	DisposedAt        time.Time     `json:"disposed_at"`
	HoldingPeriod     HoldingPeriod `json:"holding_period"`
	GainLoss          float64       `json:"gain_loss"`
	TotalCostBasis    float64       `json:"total_cost_basis"`
	TotalProceeds     float64       `json:"total_proceeds"`
}

// Form8949Line is the disposition-based analogue of Form8949Entry used by the
// report path, one line per disposition.
type Form8949Line struct {
	Description   string        `json:"description"`
	DateAcquired  time.Time     `json:"date_acquired"`
	DateSold      time.Time     `json:"date_sold"`
	Proceeds      float64       `json:"proceeds"`
	CostBasis     float64       `json:"cost_basis"`
	Adjustments   float64       `json:"adjustments"`
	GainLoss      float64       `json:"gain_loss"`
	Box           string        `json:"box"`
	HoldingPeriod HoldingPeriod `json:"holding_period"`
}

// CapitalGainsSummary is the Schedule D shaped breakdown computed from
// dispositions for reports and treatment comparison.
type CapitalGainsSummary struct {
	ShortTermGains       float64 `json:"short_term_gains"`
	ShortTermLosses      float64 `json:"short_term_losses"`
	ShortTermNet         float64 `json:"short_term_net"`
	LongTermGains        float64 `json:"long_term_gains"`
	LongTermLosses       float64 `json:"long_term_losses"`
	LongTermNet          float64 `json:"long_term_net"`
	TotalNet             float64 `json:"total_net"`
	CapitalLossDeduction float64 `json:"capital_loss_deduction"`
	CarryforwardLoss     float64 `json:"carryforward_loss"`
}

// GamblingIncomeSummary reports gambling-treatment figures for dispositions.
type GamblingIncomeSummary struct {
	GrossWinnings     float64 `json:"gross_winnings"`
	TotalLosses       float64 `json:"total_losses"`
	DeductibleLosses  float64 `json:"deductible_losses"`
	NetGamblingIncome float64 `json:"net_gambling_income"`
	RequiresItemizing bool    `json:"requires_itemizing"`
}

// BusinessIncomeSummary reports business-treatment figures for dispositions.
type BusinessIncomeSummary struct {
	GrossIncome           float64 `json:"gross_income"`
	TotalExpenses         float64 `json:"total_expenses"`
	NetBusinessIncome     float64 `json:"net_business_income"`
	SelfEmploymentTax     float64 `json:"self_employment_tax"`
	SelfEmploymentTaxRate float64 `json:"self_employment_tax_rate"`
}

// TaxReport is the full report object handed to export collaborators.
type TaxReport struct {
	UserID             string                 `json:"user_id"`
	TaxYear            int                    `json:"tax_year"`
	Treatment          Treatment              `json:"treatment"`
	CostBasisMethod    CostBasisMethod        `json:"cost_basis_method"`
	GeneratedAt        time.Time              `json:"generated_at"`
	Dispositions       []Disposition          `json:"dispositions"`
	CapitalGains       *CapitalGainsSummary   `json:"capital_gains,omitempty"`
	Gambling           *GamblingIncomeSummary `json:"gambling,omitempty"`
	Business           *BusinessIncomeSummary `json:"business,omitempty"`
	Form8949Lines      []Form8949Line         `json:"form_8949_lines,omitempty"`
	TotalTransactions  int                    `json:"total_transactions"`
	TotalVolume        float64                `json:"total_volume"`
	TotalFees          float64                `json:"total_fees"`
	WinRate            float64                `json:"win_rate"`
	OpenPositionsCount int                    `json:"open_positions_count"`
	OpenPositionsValue float64                `json:"open_positions_value"`
}

// TreatmentComparison runs all three treatments over the same dispositions
// and recommends one.
type TreatmentComparison struct {
	TaxYear              int                   `json:"tax_year"`
	CapitalGains         CapitalGainsSummary   `json:"capital_gains"`
	Gambling             GamblingIncomeSummary `json:"gambling"`
	Business             BusinessIncomeSummary `json:"business"`
	Recommendation       Treatment             `json:"recommendation"`
	RecommendationReason string                `json:"recommendation_reason"`
}

// Rates is the injectable tax-rate table. The zero value is not usable;
// start from DefaultRates and override from configuration.
type Rates struct {
	MaxOrdinaryRate           float64 `mapstructure:"max_ordinary_rate"`
	MaxLongTermRate           float64 `mapstructure:"max_long_term_rate"`
	SelfEmploymentRate        float64 `mapstructure:"self_employment_rate"`
	SETaxableFactor           float64 `mapstructure:"se_taxable_factor"`
	SEWageBase                float64 `mapstructure:"se_wage_base"`
	MedicareRate              float64 `mapstructure:"medicare_rate"`
	CapitalLossDeductionCap   float64 `mapstructure:"capital_loss_deduction_cap"`
	GamblingLossDeductionRate float64 `mapstructure:"gambling_loss_deduction_rate"`
}

// DefaultRates returns the 2026 rate table: top ordinary rate 37%, top
// long-term capital gains rate 20%, SE tax 15.3% on 92.35% of net income up
// to the $168,600 wage base (2.9% Medicare above), $3,000 capital loss
// deduction cap, and the 90% gambling loss deduction limit.
func DefaultRates() Rates {
	return Rates{
		MaxOrdinaryRate:           0.37,
		MaxLongTermRate:           0.20,
		SelfEmploymentRate:        0.153,
		SETaxableFactor:           0.9235,
		SEWageBase:                168600,
		MedicareRate:              0.029,
		CapitalLossDeductionCap:   3000,
		GamblingLossDeductionRate: 0.90,
	}
}

// IsDisposal reports whether the transaction type reduces a position.
func (t TransactionType) IsDisposal() bool {
	return t == TxSell || t == TxSettlement || t == TxRedeem
}
