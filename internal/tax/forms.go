package tax

import (
	"fmt"
	"math"
)

// irsDateLayout is the MM/DD/YYYY format IRS forms expect.
const irsDateLayout = "01/02/2006"

// boxForHoldingPeriod maps a holding period to its Form 8949 box. Polymarket
// issues no 1099-B, so basis is never reported to the IRS: short-term
// dispositions go in box B and long-term in box E.
func boxForHoldingPeriod(period HoldingPeriod) string {
	if period == ShortTerm {
		return "B"
	}
	return "E"
}

// Form8949Entries maps each disposed lot of each event to one Form 8949 row.
func Form8949Entries(events []TaxEvent) []Form8949Entry {
	var entries []Form8949Entry
	for _, event := range events {
		for _, lot := range event.Lots {
			entries = append(entries, Form8949Entry{
				Description:   fmt.Sprintf("%g %s shares - %s", lot.Quantity, event.Transaction.Outcome, event.Transaction.MarketTitle),
				DateAcquired:  lot.AcquiredAt,
				DateSold:      lot.DisposedAt,
				Proceeds:      lot.ProceedsPerShare * lot.Quantity,
				CostBasis:     lot.CostBasisPerShare * lot.Quantity,
				Adjustments:   0, // no wash-sale tracking for event contracts
				GainLoss:      lot.GainLoss,
				HoldingPeriod: lot.HoldingPeriod,
				Box:           boxForHoldingPeriod(lot.HoldingPeriod),
			})
		}
	}
	return entries
}

// GenerateScheduleD sums Form 8949 entries by holding period and re-derives
// the capital-loss deduction and carryforward. Fed the same dispositions it
// must agree with the capital-gains calculator's figures.
func GenerateScheduleD(entries []Form8949Entry, rates Rates) ScheduleDSummary {
	var shortTerm, longTerm float64
	for _, entry := range entries {
		if entry.HoldingPeriod == ShortTerm {
			shortTerm += entry.GainLoss
		} else {
			longTerm += entry.GainLoss
		}
	}

	net := shortTerm + longTerm
	var deduction, carryforward float64
	if net < 0 {
		deduction = math.Min(math.Abs(net), rates.CapitalLossDeductionCap)
		carryforward = math.Abs(net) - deduction
	}

	return ScheduleDSummary{
		ShortTermFromForm8949:      shortTerm,
		LongTermFromForm8949:       longTerm,
		NetShortTermGainLoss:       shortTerm,
		NetLongTermGainLoss:        longTerm,
		NetCapitalGainLoss:         net,
		CapitalLossDeduction:       deduction,
		LossCarryforwardToNextYear: carryforward,
	}
}

// FormattedForm8949Entry carries the IRS column labels (a)-(h) with values
// rendered the way the form expects them.
type FormattedForm8949Entry struct {
	Description  string `json:"a_description"`
	DateAcquired string `json:"b_date_acquired"`
	DateSold     string `json:"c_date_sold"`
	Proceeds     string `json:"d_proceeds"`
	CostBasis    string `json:"e_cost_basis"`
	Adjustments  string `json:"f_adjustments"`
	Code         string `json:"g_code"`
	GainLoss     string `json:"h_gain_loss"`
	Box          string `json:"box"`
}

// FormatForm8949Entry renders one entry for display or export.
func FormatForm8949Entry(entry Form8949Entry) FormattedForm8949Entry {
	return FormattedForm8949Entry{
		Description:  entry.Description,
		DateAcquired: entry.DateAcquired.Format(irsDateLayout),
		DateSold:     entry.DateSold.Format(irsDateLayout),
		Proceeds:     fmt.Sprintf("%.2f", entry.Proceeds),
		CostBasis:    fmt.Sprintf("%.2f", entry.CostBasis),
		Adjustments:  fmt.Sprintf("%.2f", entry.Adjustments),
		Code:         "",
		GainLoss:     fmt.Sprintf("%.2f", entry.GainLoss),
		Box:          entry.Box,
	}
}

// GroupEntriesByBox buckets Form 8949 entries by their box code for filing.
func GroupEntriesByBox(entries []Form8949Entry) map[string][]Form8949Entry {
	groups := make(map[string][]Form8949Entry)
	for _, entry := range entries {
		groups[entry.Box] = append(groups[entry.Box], entry)
	}
	return groups
}

// BoxTotals holds the per-box column sums for Form 8949.
type BoxTotals struct {
	TotalProceeds    float64 `json:"total_proceeds"`
	TotalCostBasis   float64 `json:"total_cost_basis"`
	TotalAdjustments float64 `json:"total_adjustments"`
	TotalGainLoss    float64 `json:"total_gain_loss"`
	Count            int     `json:"count"`
}

// CalculateBoxTotals sums each box group's proceeds, basis, adjustments and
// gain/loss columns.
func CalculateBoxTotals(entries []Form8949Entry) map[string]BoxTotals {
	totals := make(map[string]BoxTotals)
	for box, group := range GroupEntriesByBox(entries) {
		var t BoxTotals
		for _, entry := range group {
			t.TotalProceeds += entry.Proceeds
			t.TotalCostBasis += entry.CostBasis
			t.TotalAdjustments += entry.Adjustments
			t.TotalGainLoss += entry.GainLoss
			t.Count++
		}
		totals[box] = t
	}
	return totals
}

// FormattedScheduleD maps a Schedule D summary onto IRS line numbers for
// display.
type FormattedScheduleD struct {
	Line1B             string `json:"line_1b"`
	Line7              string `json:"line_7"`
	Line8B             string `json:"line_8b"`
	Line15             string `json:"line_15"`
	Line16             string `json:"line_16"`
	Line21             string `json:"line_21"`
	HasCarryforward    bool   `json:"has_carryforward"`
	CarryforwardAmount string `json:"carryforward_amount"`
}

// FormatScheduleD renders the summary against Schedule D Parts I-III.
func FormatScheduleD(summary ScheduleDSummary) FormattedScheduleD {
	line21 := "0.00"
	if summary.CapitalLossDeduction > 0 {
		line21 = fmt.Sprintf("%.2f", -summary.CapitalLossDeduction)
	}
	return FormattedScheduleD{
		Line1B:             fmt.Sprintf("%.2f", summary.ShortTermFromForm8949),
		Line7:              fmt.Sprintf("%.2f", summary.NetShortTermGainLoss),
		Line8B:             fmt.Sprintf("%.2f", summary.LongTermFromForm8949),
		Line15:             fmt.Sprintf("%.2f", summary.NetLongTermGainLoss),
		Line16:             fmt.Sprintf("%.2f", summary.NetCapitalGainLoss),
		Line21:             line21,
		HasCarryforward:    summary.LossCarryforwardToNextYear > 0,
		CarryforwardAmount: fmt.Sprintf("%.2f", summary.LossCarryforwardToNextYear),
	}
}

// Form8949Lines maps dispositions to Form 8949 lines, one per disposition.
// This is the report path's analogue of Form8949Entries.
func Form8949Lines(dispositions []Disposition) []Form8949Line {
	lines := make([]Form8949Line, 0, len(dispositions))
	for _, d := range dispositions {
		lines = append(lines, Form8949Line{
			Description:   fmt.Sprintf("%g %s shares - %s", d.Quantity, d.Outcome, d.MarketTitle),
			DateAcquired:  d.AcquiredAt,
			DateSold:      d.DisposedAt,
			Proceeds:      d.TotalProceeds,
			CostBasis:     d.TotalCostBasis,
			Adjustments:   0,
			GainLoss:      d.GainLoss,
			Box:           boxForHoldingPeriod(d.HoldingPeriod),
			HoldingPeriod: d.HoldingPeriod,
		})
	}
	return lines
}

// TaxDisclaimer is the report disclaimer shown to users. The IRS has not
// issued guidance on prediction-market event contracts; the calculators
// implement one of three possible interpretations each.
const TaxDisclaimer = `IMPORTANT DISCLAIMER: The IRS has not issued specific guidance on the tax treatment
of prediction market event contracts. This report is generated based on one of three
possible interpretations of tax law. Consult a qualified tax professional before
filing. This software is not a substitute for professional tax advice.

Polymarket does not issue 1099 forms. All income from Polymarket must be self-reported.
Polymarket operates through a non-US entity. Depending on account balances, you may have
FBAR (FinCEN 114) and/or FATCA (Form 8938) filing obligations.`
