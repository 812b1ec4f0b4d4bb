package tax

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestForm8949Entries(t *testing.T) {
	calc := NewCalculator(zap.NewNop(), TreatmentCapitalGains, MethodFIFO, 2025, DefaultRates())

	result, err := calc.Calculate([]Transaction{
		tx("buy-old", TxBuy, 100, 0.40, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
		tx("buy-new", TxBuy, 100, 0.50, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		tx("sell", TxSell, 200, 0.70, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	entries := Form8949Entries(result.Events)
	require.Len(t, entries, 2, "one row per disposed lot")

	longEntry, shortEntry := entries[0], entries[1]
	assert.Equal(t, "E", longEntry.Box)
	assert.Equal(t, LongTerm, longEntry.HoldingPeriod)
	assert.InDelta(t, 70.0, longEntry.Proceeds, 1e-6)
	assert.InDelta(t, 40.0, longEntry.CostBasis, 1e-6)
	assert.InDelta(t, 30.0, longEntry.GainLoss, 1e-6)
	assert.Zero(t, longEntry.Adjustments)
	assert.Contains(t, longEntry.Description, "100 YES shares")
	assert.Contains(t, longEntry.Description, "Will it rain tomorrow?")

	assert.Equal(t, "B", shortEntry.Box)
	assert.Equal(t, ShortTerm, shortEntry.HoldingPeriod)
	assert.InDelta(t, 20.0, shortEntry.GainLoss, 1e-6)
}

func TestGenerateScheduleD(t *testing.T) {
	testCases := []struct {
		name                 string
		entries              []Form8949Entry
		expectedNet          float64
		expectedDeduction    float64
		expectedCarryforward float64
	}{
		{
			name: "Net gain has no deduction",
			entries: []Form8949Entry{
				{GainLoss: 500, HoldingPeriod: ShortTerm},
				{GainLoss: 200, HoldingPeriod: LongTerm},
			},
			expectedNet: 700,
		},
		{
			name: "Small net loss fully deducted",
			entries: []Form8949Entry{
				{GainLoss: -1200, HoldingPeriod: ShortTerm},
			},
			expectedNet:       -1200,
			expectedDeduction: 1200,
		},
		{
			name: "Large net loss capped with carryforward",
			entries: []Form8949Entry{
				{GainLoss: -8000, HoldingPeriod: ShortTerm},
				{GainLoss: 1000, HoldingPeriod: LongTerm},
			},
			expectedNet:          -7000,
			expectedDeduction:    3000,
			expectedCarryforward: 4000,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			summary := GenerateScheduleD(tc.entries, DefaultRates())
			assert.InDelta(t, tc.expectedNet, summary.NetCapitalGainLoss, 1e-6)
			assert.InDelta(t, tc.expectedDeduction, summary.CapitalLossDeduction, 1e-6)
			assert.InDelta(t, tc.expectedCarryforward, summary.LossCarryforwardToNextYear, 1e-6)

			if summary.NetCapitalGainLoss < 0 {
				total := summary.CapitalLossDeduction + summary.LossCarryforwardToNextYear
				assert.InDelta(t, -summary.NetCapitalGainLoss, total, 1e-6)
			}
		})
	}
}

func TestScheduleDMatchesCapitalGainsCalculator(t *testing.T) {
	// Cross-check: the Schedule D derived from Form 8949 entries must agree
	// with the capital-gains calculator fed the same events.
	calc := NewCalculator(zap.NewNop(), TreatmentCapitalGains, MethodFIFO, 2025, DefaultRates())

	result, err := calc.Calculate([]Transaction{
		tx("buy-1", TxBuy, 1000, 0.40, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		tx("sell-1", TxSell, 1000, 0.20, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		tx("buy-2", TxBuy, 500, 0.60, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
		tx("sell-2", TxSell, 500, 0.75, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	scheduleD := GenerateScheduleD(Form8949Entries(result.Events), DefaultRates())

	assert.InDelta(t, result.Summary.TotalGainLoss, scheduleD.NetCapitalGainLoss, 1e-6)
	assert.InDelta(t, result.Summary.NetCapitalLossDeduction, scheduleD.CapitalLossDeduction, 1e-6)
	assert.InDelta(t, result.Summary.LossCarryforward, scheduleD.LossCarryforwardToNextYear, 1e-6)
}

func TestFormatForm8949Entry(t *testing.T) {
	entry := Form8949Entry{
		Description:  "100 YES shares - Will it rain tomorrow?",
		DateAcquired: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		DateSold:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Proceeds:     70.0,
		CostBasis:    40.0,
		GainLoss:     30.0,
		Box:          "B",
	}

	formatted := FormatForm8949Entry(entry)
	assert.Equal(t, "01/05/2025", formatted.DateAcquired)
	assert.Equal(t, "06/30/2025", formatted.DateSold)
	assert.Equal(t, "70.00", formatted.Proceeds)
	assert.Equal(t, "40.00", formatted.CostBasis)
	assert.Equal(t, "0.00", formatted.Adjustments)
	assert.Equal(t, "30.00", formatted.GainLoss)
	assert.Empty(t, formatted.Code)
}

func TestGroupEntriesByBoxAndTotals(t *testing.T) {
	entries := []Form8949Entry{
		{Box: "B", Proceeds: 70, CostBasis: 40, GainLoss: 30, HoldingPeriod: ShortTerm},
		{Box: "B", Proceeds: 20, CostBasis: 25, GainLoss: -5, HoldingPeriod: ShortTerm},
		{Box: "E", Proceeds: 90, CostBasis: 50, GainLoss: 40, HoldingPeriod: LongTerm},
	}

	groups := GroupEntriesByBox(entries)
	assert.Len(t, groups["B"], 2)
	assert.Len(t, groups["E"], 1)

	totals := CalculateBoxTotals(entries)
	assert.InDelta(t, 90.0, totals["B"].TotalProceeds, 1e-6)
	assert.InDelta(t, 25.0, totals["B"].TotalGainLoss, 1e-6)
	assert.Equal(t, 2, totals["B"].Count)
	assert.InDelta(t, 40.0, totals["E"].TotalGainLoss, 1e-6)
}

func TestFormatScheduleD(t *testing.T) {
	formatted := FormatScheduleD(ScheduleDSummary{
		ShortTermFromForm8949:      -5000,
		NetShortTermGainLoss:       -5000,
		NetCapitalGainLoss:         -5000,
		CapitalLossDeduction:       3000,
		LossCarryforwardToNextYear: 2000,
	})

	assert.Equal(t, "-5000.00", formatted.Line16)
	assert.Equal(t, "-3000.00", formatted.Line21)
	assert.True(t, formatted.HasCarryforward)
	assert.Equal(t, "2000.00", formatted.CarryforwardAmount)
}

func TestForm8949Lines(t *testing.T) {
	dispositions := []Disposition{
		{
			Quantity:       50,
			Outcome:        OutcomeNo,
			MarketTitle:    "Will the Fed cut rates?",
			AcquiredAt:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			DisposedAt:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			HoldingPeriod:  ShortTerm,
			GainLoss:       5,
			TotalProceeds:  30,
			TotalCostBasis: 25,
		},
	}

	lines := Form8949Lines(dispositions)
	require.Len(t, lines, 1)
	assert.Equal(t, "50 NO shares - Will the Fed cut rates?", lines[0].Description)
	assert.Equal(t, "B", lines[0].Box)
	assert.InDelta(t, 30.0, lines[0].Proceeds, 1e-6)
	assert.InDelta(t, 25.0, lines[0].CostBasis, 1e-6)
}
