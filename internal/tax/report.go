package tax

import (
	"errors"
	"math"
	"time"
)

// ProcessDisposition performs one disposal against an externally supplied,
// possibly cross-session lot slice. Unlike the replay engine it raises an
// *InsufficientLotsError when the open lots for the market and outcome
// cannot satisfy the quantity. It returns the new dispositions and the full
// updated lot slice, untouched lots included; fully consumed lots are kept,
// closed and annotated, for historical reporting.
func ProcessDisposition(openLots []TaxLot, marketID string, outcome Outcome, quantity, proceedsPerShare float64, disposedAt time.Time, method CostBasisMethod, specificLotIDs []string) ([]Disposition, []TaxLot, error) {
	var marketLots []TaxLot
	for _, lot := range openLots {
		if lot.MarketID == marketID && lot.Outcome == outcome && lot.IsOpen {
			marketLots = append(marketLots, lot)
		}
	}

	selected, err := SelectLots(marketLots, method, quantity, specificLotIDs)
	if err != nil {
		var insufficient *InsufficientLotsError
		if errors.As(err, &insufficient) {
			insufficient.MarketID = marketID
			insufficient.Outcome = outcome
		}
		return nil, nil, err
	}

	dispositions := make([]Disposition, 0, len(selected))
	updated := make([]TaxLot, len(openLots))
	copy(updated, openLots)

	for _, sel := range selected {
		holdingPeriod := ClassifyHoldingPeriod(sel.Lot.AcquiredAt, disposedAt)
		gainLoss := GainLoss(sel.QuantityFromLot, sel.Lot.CostBasisPerShare, proceedsPerShare)

		dispositions = append(dispositions, Disposition{
			LotID:             sel.Lot.ID,
			MarketID:          sel.Lot.MarketID,
			MarketTitle:       sel.Lot.MarketTitle,
			Outcome:           sel.Lot.Outcome,
			Quantity:          sel.QuantityFromLot,
			CostBasisPerShare: sel.Lot.CostBasisPerShare,
			ProceedsPerShare:  proceedsPerShare,
			AcquiredAt:        sel.Lot.AcquiredAt,
			DisposedAt:        disposedAt,
			HoldingPeriod:     holdingPeriod,
			GainLoss:          gainLoss,
			TotalCostBasis:    sel.Lot.CostBasisPerShare * sel.QuantityFromLot,
			TotalProceeds:     proceedsPerShare * sel.QuantityFromLot,
		})

		for i := range updated {
			if updated[i].ID != sel.Lot.ID {
				continue
			}
			remaining := updated[i].Quantity - sel.QuantityFromLot
			if remaining <= quantityEpsilon {
				disposedCopy := disposedAt
				updated[i].Quantity = 0
				updated[i].IsOpen = false
				updated[i].DisposedAt = &disposedCopy
				updated[i].ProceedsPerShare = proceedsPerShare
				updated[i].GainLoss = gainLoss
				updated[i].HoldingPeriod = holdingPeriod
			} else {
				updated[i].Quantity = remaining
			}
			break
		}
	}

	return dispositions, updated, nil
}

// CalculateCapitalGains breaks dispositions into short/long-term gains and
// losses and applies the capital-loss deduction cap and carryforward.
func CalculateCapitalGains(dispositions []Disposition, rates Rates) CapitalGainsSummary {
	var s CapitalGainsSummary
	for _, d := range dispositions {
		if d.HoldingPeriod == ShortTerm {
			if d.GainLoss >= 0 {
				s.ShortTermGains += d.GainLoss
			} else {
				s.ShortTermLosses += math.Abs(d.GainLoss)
			}
		} else {
			if d.GainLoss >= 0 {
				s.LongTermGains += d.GainLoss
			} else {
				s.LongTermLosses += math.Abs(d.GainLoss)
			}
		}
	}

	s.ShortTermNet = s.ShortTermGains - s.ShortTermLosses
	s.LongTermNet = s.LongTermGains - s.LongTermLosses
	s.TotalNet = s.ShortTermNet + s.LongTermNet

	if s.TotalNet < 0 {
		s.CapitalLossDeduction = math.Min(math.Abs(s.TotalNet), rates.CapitalLossDeductionCap)
		s.CarryforwardLoss = math.Abs(s.TotalNet) - s.CapitalLossDeduction
	}
	return s
}

// CalculateGamblingIncome nets dispositions as gambling winnings and losses,
// with losses deductible up to the configured share of winnings.
func CalculateGamblingIncome(dispositions []Disposition, rates Rates) GamblingIncomeSummary {
	var grossWinnings, totalLosses float64
	for _, d := range dispositions {
		if d.GainLoss > 0 {
			grossWinnings += d.GainLoss
		} else {
			totalLosses += math.Abs(d.GainLoss)
		}
	}

	deductible := math.Min(totalLosses, grossWinnings) * rates.GamblingLossDeductionRate
	return GamblingIncomeSummary{
		GrossWinnings:     grossWinnings,
		TotalLosses:       totalLosses,
		DeductibleLosses:  deductible,
		NetGamblingIncome: grossWinnings - deductible,
		RequiresItemizing: totalLosses > 0,
	}
}

// CalculateBusinessIncome nets dispositions as business income and computes
// self-employment tax. Additional expenses beyond trading losses can be
// folded in by the caller.
func CalculateBusinessIncome(dispositions []Disposition, additionalExpenses float64, rates Rates) BusinessIncomeSummary {
	var grossIncome, tradingLosses float64
	for _, d := range dispositions {
		if d.GainLoss > 0 {
			grossIncome += d.GainLoss
		} else {
			tradingLosses += math.Abs(d.GainLoss)
		}
	}

	totalExpenses := tradingLosses + additionalExpenses
	netIncome := grossIncome - totalExpenses

	var seTax float64
	if netIncome > 0 {
		seTaxable := netIncome * rates.SETaxableFactor
		if seTaxable <= rates.SEWageBase {
			seTax = seTaxable * rates.SelfEmploymentRate
		} else {
			seTax = rates.SEWageBase*rates.SelfEmploymentRate +
				(seTaxable-rates.SEWageBase)*rates.MedicareRate
		}
	}

	return BusinessIncomeSummary{
		GrossIncome:           grossIncome,
		TotalExpenses:         totalExpenses,
		NetBusinessIncome:     netIncome,
		SelfEmploymentTax:     seTax,
		SelfEmploymentTaxRate: rates.SelfEmploymentRate,
	}
}

// ReportInput carries the aggregate counters the report generator collects
// while replaying a year's transactions.
type ReportInput struct {
	UserID             string
	TaxYear            int
	Treatment          Treatment
	CostBasisMethod    CostBasisMethod
	Dispositions       []Disposition
	TotalTransactions  int
	TotalVolume        float64
	TotalFees          float64
	WinCount           int
	LossCount          int
	OpenPositionsCount int
	OpenPositionsValue float64
}

// GenerateTaxReport assembles the full report for one treatment, attaching
// Form 8949 lines for the capital-gains treatment only.
func GenerateTaxReport(in ReportInput, rates Rates) *TaxReport {
	report := &TaxReport{
		UserID:             in.UserID,
		TaxYear:            in.TaxYear,
		Treatment:          in.Treatment,
		CostBasisMethod:    in.CostBasisMethod,
		GeneratedAt:        time.Now(),
		Dispositions:       in.Dispositions,
		TotalTransactions:  in.TotalTransactions,
		TotalVolume:        in.TotalVolume,
		TotalFees:          in.TotalFees,
		OpenPositionsCount: in.OpenPositionsCount,
		OpenPositionsValue: in.OpenPositionsValue,
	}
	if in.WinCount+in.LossCount > 0 {
		report.WinRate = float64(in.WinCount) / float64(in.WinCount+in.LossCount)
	}

	switch in.Treatment {
	case TreatmentGambling:
		gambling := CalculateGamblingIncome(in.Dispositions, rates)
		report.Gambling = &gambling
	case TreatmentBusiness:
		business := CalculateBusinessIncome(in.Dispositions, 0, rates)
		report.Business = &business
	default:
		capitalGains := CalculateCapitalGains(in.Dispositions, rates)
		report.CapitalGains = &capitalGains
		report.Form8949Lines = Form8949Lines(in.Dispositions)
	}

	return report
}

// CompareTreatments runs all three calculators over the same dispositions
// and picks a recommendation. Losses always favor capital gains (deduction
// plus carryforward); otherwise capital gains wins whenever business income
// after SE tax or gambling income trails the capital-gains net.
func CompareTreatments(dispositions []Disposition, taxYear int, rates Rates) TreatmentComparison {
	capitalGains := CalculateCapitalGains(dispositions, rates)
	gambling := CalculateGamblingIncome(dispositions, rates)
	business := CalculateBusinessIncome(dispositions, 0, rates)

	recommendation := TreatmentCapitalGains
	reason := "Capital gains treatment provides loss carryforward and potential long-term rates."

	switch {
	case capitalGains.TotalNet < 0:
		reason = "Net losses are best handled under capital gains treatment with the annual deduction and unlimited carryforward."
	case business.NetBusinessIncome > 0 && business.NetBusinessIncome-business.SelfEmploymentTax < capitalGains.TotalNet:
		reason = "Capital gains treatment avoids the self-employment tax."
	case gambling.NetGamblingIncome < capitalGains.TotalNet:
		recommendation = TreatmentGambling
		reason = "Gambling treatment results in lower taxable income for this year."
	}

	return TreatmentComparison{
		TaxYear:              taxYear,
		CapitalGains:         capitalGains,
		Gambling:             gambling,
		Business:             business,
		Recommendation:       recommendation,
		RecommendationReason: reason,
	}
}
