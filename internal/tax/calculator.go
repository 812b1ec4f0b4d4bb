package tax

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Calculator replays a transaction stream chronologically, matches disposals
// against open lots under the configured cost-basis method, and aggregates
// the resulting tax events under the configured treatment.
//
// A Calculator holds no state across Calculate calls, so one instance may be
// reused and separate instances run concurrently.
type Calculator struct {
	logger    *zap.Logger
	treatment Treatment
	method    CostBasisMethod
	taxYear   int
	rates     Rates
}

// NewCalculator creates a calculator for one (treatment, method, tax year)
// configuration with an injectable rate table.
func NewCalculator(logger *zap.Logger, treatment Treatment, method CostBasisMethod, taxYear int, rates Rates) *Calculator {
	return &Calculator{
		logger:    logger,
		treatment: treatment,
		method:    method,
		taxYear:   taxYear,
		rates:     rates,
	}
}

// CalculationResult is the output contract of Calculate.
type CalculationResult struct {
	Events  []TaxEvent `json:"events"`
	Summary TaxSummary `json:"summary"`
}

// positionKey identifies one open-lot pool. Lots for different markets or
// different outcomes of the same market never mix.
type positionKey struct {
	MarketID string
	Outcome  Outcome
}

// Calculate processes the transactions in ascending timestamp order (ties
// keep input order) and returns the tax events for the configured year plus
// the treatment summary. Lots are consumed and pools updated even for
// disposals outside the tax year so running state carries across year
// boundaries; only in-year events are reported.
//
// Disposals against an empty pool are skipped rather than failed. Upstream
// imports can contain duplicates or gaps and the replay path tolerates them;
// the stricter ProcessDisposition path raises instead.
func (c *Calculator) Calculate(transactions []Transaction) (*CalculationResult, error) {
	sorted := make([]Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var events []TaxEvent
	openLots := make(map[positionKey][]TaxLot)

	for _, tx := range sorted {
		key := positionKey{MarketID: tx.MarketID, Outcome: tx.Outcome}

		if tx.Type == TxBuy {
			openLots[key] = append(openLots[key], newTaxLot(tx))
			continue
		}

		if !tx.Type.IsDisposal() {
			c.logger.Warn("Skipping transaction with unknown type",
				zap.String("transaction_id", tx.ID),
				zap.String("type", string(tx.Type)))
			continue
		}

		pool := openLots[key]
		if len(pool) == 0 {
			c.logger.Debug("No open lots for disposal, skipping transaction",
				zap.String("transaction_id", tx.ID),
				zap.String("market_id", tx.MarketID),
				zap.String("outcome", string(tx.Outcome)))
			continue
		}

		event, err := c.processDisposal(tx, pool)
		if err != nil {
			return nil, fmt.Errorf("failed to process disposal %s: %w", tx.ID, err)
		}

		// Rebuild the pool in its original order so timestamp tie-breaks stay
		// stable across disposals regardless of the method's sort.
		disposedByLot := make(map[string]float64, len(event.Lots))
		for _, d := range event.Lots {
			disposedByLot[d.LotID] += d.Quantity
		}
		var remaining []TaxLot
		for _, lot := range pool {
			leftover := lot.Quantity - disposedByLot[lot.ID]
			if leftover > quantityEpsilon {
				lot.Quantity = leftover
				remaining = append(remaining, lot)
			}
		}
		openLots[key] = remaining

		if tx.Timestamp.Year() == c.taxYear {
			events = append(events, *event)
		}
	}

	summary := c.calculateSummary(events)
	return &CalculationResult{Events: events, Summary: summary}, nil
}

// newTaxLot constructs an open lot from a BUY transaction. The holding
// period stays undetermined until disposal pairs the dates.
func newTaxLot(tx Transaction) TaxLot {
	return TaxLot{
		ID:                uuid.NewString(),
		TransactionID:     tx.ID,
		MarketID:          tx.MarketID,
		MarketTitle:       tx.MarketTitle,
		Outcome:           tx.Outcome,
		Quantity:          tx.Quantity,
		OriginalQuantity:  tx.Quantity,
		CostBasisPerShare: tx.PricePerShare,
		AcquiredAt:        tx.Timestamp,
		HoldingPeriod:     ShortTerm,
		IsOpen:            true,
	}
}

// processDisposal consumes lots for one SELL/SETTLEMENT/REDEEM transaction
// and builds its tax event.
func (c *Calculator) processDisposal(tx Transaction, pool []TaxLot) (*TaxEvent, error) {
	proceedsPerShare := tx.PricePerShare
	if tx.Type == TxSettlement {
		proceedsPerShare = settlementProceeds(tx)
	}

	disposed, _, err := DisposeLots(c.method, pool, tx.Quantity, proceedsPerShare, tx.Timestamp, nil)
	if err != nil {
		var insufficient *InsufficientLotsError
		if errors.As(err, &insufficient) {
			insufficient.MarketID = tx.MarketID
			insufficient.Outcome = tx.Outcome
		}
		return nil, err
	}

	var totalProceeds, totalCostBasis, totalGainLoss float64
	allLongTerm := true
	for _, d := range disposed {
		totalProceeds += d.ProceedsPerShare * d.Quantity
		totalCostBasis += d.CostBasisPerShare * d.Quantity
		totalGainLoss += d.GainLoss
		if d.HoldingPeriod != LongTerm {
			allLongTerm = false
		}
	}

	// Conservative tie-break: a disposal spanning mixed lots is short-term.
	holdingPeriod := ShortTerm
	if allLongTerm && len(disposed) > 0 {
		holdingPeriod = LongTerm
	}

	return &TaxEvent{
		Transaction:    tx,
		Lots:           disposed,
		TotalProceeds:  totalProceeds,
		TotalCostBasis: totalCostBasis,
		TotalGainLoss:  totalGainLoss,
		HoldingPeriod:  holdingPeriod,
		IsSettlement:   tx.Type == TxSettlement,
	}, nil
}

// settlementProceeds derives a settlement's proceeds per share: 1.0 if the
// recorded price marks the position as won (>= 0.5), else 0.0.
func settlementProceeds(tx Transaction) float64 {
	if tx.PricePerShare >= 0.5 {
		return 1.0
	}
	return 0.0
}

// calculateSummary aggregates the in-year events and applies the configured
// treatment's liability rules.
func (c *Calculator) calculateSummary(events []TaxEvent) TaxSummary {
	summary := TaxSummary{
		Treatment: c.treatment,
		TaxYear:   c.taxYear,
	}

	for _, event := range events {
		summary.TotalProceeds += event.TotalProceeds
		summary.TotalCostBasis += event.TotalCostBasis

		for _, lot := range event.Lots {
			if lot.HoldingPeriod == ShortTerm {
				if lot.GainLoss >= 0 {
					summary.ShortTermGains += lot.GainLoss
				} else {
					summary.ShortTermLosses += math.Abs(lot.GainLoss)
				}
			} else {
				if lot.GainLoss >= 0 {
					summary.LongTermGains += lot.GainLoss
				} else {
					summary.LongTermLosses += math.Abs(lot.GainLoss)
				}
			}
		}
	}

	summary.NetShortTerm = summary.ShortTermGains - summary.ShortTermLosses
	summary.NetLongTerm = summary.LongTermGains - summary.LongTermLosses
	summary.TotalGainLoss = summary.NetShortTerm + summary.NetLongTerm

	switch c.treatment {
	case TreatmentGambling:
		c.applyGambling(&summary, events)
	case TreatmentBusiness:
		c.applyBusiness(&summary, events)
	default:
		c.applyCapitalGains(&summary)
	}

	return summary
}

// applyCapitalGains taxes net short-term gains at the top ordinary rate and
// net long-term gains at the top capital gains rate. A net loss yields the
// capped deduction, the carryforward of the excess, and a negative liability
// representing the tax savings of the deduction against ordinary income.
func (c *Calculator) applyCapitalGains(summary *TaxSummary) {
	totalNet := summary.NetShortTerm + summary.NetLongTerm

	if totalNet < 0 {
		deduction := math.Min(math.Abs(totalNet), c.rates.CapitalLossDeductionCap)
		summary.NetCapitalLossDeduction = deduction
		summary.LossCarryforward = math.Abs(totalNet) - deduction
		summary.EstimatedTaxLiability = -(deduction * c.rates.MaxOrdinaryRate)
		return
	}

	stTax := math.Max(0, summary.NetShortTerm) * c.rates.MaxOrdinaryRate
	ltTax := math.Max(0, summary.NetLongTerm) * c.rates.MaxLongTermRate
	summary.EstimatedTaxLiability = stTax + ltTax
}

// applyGambling treats each event's net result as a gambling session: gross
// winnings taxed at the ordinary rate, losses deductible only up to 90% of
// winnings.
func (c *Calculator) applyGambling(summary *TaxSummary, events []TaxEvent) {
	var grossWinnings, totalLosses float64
	for _, event := range events {
		if event.TotalGainLoss > 0 {
			grossWinnings += event.TotalGainLoss
		} else {
			totalLosses += math.Abs(event.TotalGainLoss)
		}
	}

	deductible := math.Min(totalLosses, grossWinnings) * c.rates.GamblingLossDeductionRate
	taxableIncome := grossWinnings - deductible

	summary.GrossWinnings = grossWinnings
	summary.DeductibleLosses = deductible
	summary.EstimatedTaxLiability = math.Max(0, taxableIncome) * c.rates.MaxOrdinaryRate
}

// applyBusiness nets event results into business income and adds
// self-employment tax: 15.3% on 92.35% of net income up to the wage base,
// 2.9% Medicare on the excess.
func (c *Calculator) applyBusiness(summary *TaxSummary, events []TaxEvent) {
	var grossIncome, totalLosses float64
	for _, event := range events {
		if event.TotalGainLoss > 0 {
			grossIncome += event.TotalGainLoss
		} else {
			totalLosses += math.Abs(event.TotalGainLoss)
		}
	}

	netIncome := grossIncome - totalLosses
	var seTax float64
	if netIncome > 0 {
		seTaxable := netIncome * c.rates.SETaxableFactor
		if seTaxable <= c.rates.SEWageBase {
			seTax = seTaxable * c.rates.SelfEmploymentRate
		} else {
			seTax = c.rates.SEWageBase*c.rates.SelfEmploymentRate +
				(seTaxable-c.rates.SEWageBase)*c.rates.MedicareRate
		}
	}

	summary.NetBusinessIncome = netIncome
	summary.SelfEmploymentTax = seTax
	summary.EstimatedTaxLiability = math.Max(0, netIncome)*c.rates.MaxOrdinaryRate + seTax
}
