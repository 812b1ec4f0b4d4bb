package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessDisposition(t *testing.T) {
	lots := []TaxLot{
		openLot("jan", 50, 0.30, day(0)),
		openLot("feb", 50, 0.50, day(31)),
	}

	t.Run("FIFO consumes oldest and closes the consumed lot", func(t *testing.T) {
		dispositions, updated, err := ProcessDisposition(lots, "market-1", OutcomeYes, 50, 0.60, day(60), MethodFIFO, nil)
		require.NoError(t, err)

		require.Len(t, dispositions, 1)
		assert.Equal(t, "jan", dispositions[0].LotID)
		assert.InDelta(t, 15.0, dispositions[0].GainLoss, 1e-6) // (0.60-0.30)*50
		assert.InDelta(t, 30.0, dispositions[0].TotalProceeds, 1e-6)
		assert.InDelta(t, 15.0, dispositions[0].TotalCostBasis, 1e-6)

		// The full lot slice comes back, closed lots included.
		require.Len(t, updated, 2)
		byID := map[string]TaxLot{}
		for _, lot := range updated {
			byID[lot.ID] = lot
		}
		jan := byID["jan"]
		assert.False(t, jan.IsOpen)
		assert.Zero(t, jan.Quantity)
		require.NotNil(t, jan.DisposedAt)
		assert.Equal(t, day(60), *jan.DisposedAt)
		assert.InDelta(t, 0.60, jan.ProceedsPerShare, 1e-9)
		assert.True(t, byID["feb"].IsOpen)
	})

	t.Run("Partial consumption keeps the lot open", func(t *testing.T) {
		dispositions, updated, err := ProcessDisposition(lots, "market-1", OutcomeYes, 20, 0.60, day(60), MethodFIFO, nil)
		require.NoError(t, err)

		require.Len(t, dispositions, 1)
		assert.InDelta(t, 20.0, dispositions[0].Quantity, 1e-9)

		byID := map[string]TaxLot{}
		for _, lot := range updated {
			byID[lot.ID] = lot
		}
		assert.True(t, byID["jan"].IsOpen)
		assert.InDelta(t, 30.0, byID["jan"].Quantity, 1e-9)
	})

	t.Run("Untouched markets pass through unchanged", func(t *testing.T) {
		other := openLot("other", 10, 0.80, day(2))
		other.MarketID = "market-2"
		withOther := append([]TaxLot{other}, lots...)

		_, updated, err := ProcessDisposition(withOther, "market-1", OutcomeYes, 20, 0.60, day(60), MethodFIFO, nil)
		require.NoError(t, err)

		byID := map[string]TaxLot{}
		for _, lot := range updated {
			byID[lot.ID] = lot
		}
		assert.InDelta(t, 10.0, byID["other"].Quantity, 1e-9)
		assert.True(t, byID["other"].IsOpen)
	})

	t.Run("Empty pool raises rather than skipping", func(t *testing.T) {
		_, _, err := ProcessDisposition(nil, "market-9", OutcomeYes, 50, 0.60, day(60), MethodFIFO, nil)
		require.Error(t, err)

		var insufficient *InsufficientLotsError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, "market-9", insufficient.MarketID)
		assert.InDelta(t, 50.0, insufficient.Requested, 1e-9)
		assert.Zero(t, insufficient.Available)
	})

	t.Run("Specific ID without ids fails fast", func(t *testing.T) {
		_, _, err := ProcessDisposition(lots, "market-1", OutcomeYes, 20, 0.60, day(60), MethodSpecificID, nil)
		assert.ErrorIs(t, err, ErrSpecificLotsRequired)
	})

	t.Run("Specific ID consumes named lots in order", func(t *testing.T) {
		dispositions, _, err := ProcessDisposition(lots, "market-1", OutcomeYes, 60, 0.60, day(60), MethodSpecificID, []string{"feb", "jan"})
		require.NoError(t, err)
		require.Len(t, dispositions, 2)
		assert.Equal(t, "feb", dispositions[0].LotID)
		assert.Equal(t, "jan", dispositions[1].LotID)
	})
}

func TestCalculateCapitalGainsFromDispositions(t *testing.T) {
	dispositions := []Disposition{
		{GainLoss: 500, HoldingPeriod: ShortTerm},
		{GainLoss: -200, HoldingPeriod: ShortTerm},
		{GainLoss: 300, HoldingPeriod: LongTerm},
		{GainLoss: -100, HoldingPeriod: LongTerm},
	}

	s := CalculateCapitalGains(dispositions, DefaultRates())
	assert.InDelta(t, 500.0, s.ShortTermGains, 1e-6)
	assert.InDelta(t, 200.0, s.ShortTermLosses, 1e-6)
	assert.InDelta(t, 300.0, s.ShortTermNet, 1e-6)
	assert.InDelta(t, 200.0, s.LongTermNet, 1e-6)
	assert.InDelta(t, 500.0, s.TotalNet, 1e-6)
	assert.Zero(t, s.CapitalLossDeduction)
	assert.Zero(t, s.CarryforwardLoss)
}

func TestCalculateGamblingIncomeFromDispositions(t *testing.T) {
	dispositions := []Disposition{
		{GainLoss: 1000},
		{GainLoss: -1200},
	}

	s := CalculateGamblingIncome(dispositions, DefaultRates())
	assert.InDelta(t, 1000.0, s.GrossWinnings, 1e-6)
	assert.InDelta(t, 1200.0, s.TotalLosses, 1e-6)
	assert.InDelta(t, 900.0, s.DeductibleLosses, 1e-6)
	assert.InDelta(t, 100.0, s.NetGamblingIncome, 1e-6)
	assert.True(t, s.RequiresItemizing)
}

func TestCalculateBusinessIncomeFromDispositions(t *testing.T) {
	dispositions := []Disposition{
		{GainLoss: 50000},
		{GainLoss: -10000},
	}

	s := CalculateBusinessIncome(dispositions, 5000, DefaultRates())
	assert.InDelta(t, 50000.0, s.GrossIncome, 1e-6)
	assert.InDelta(t, 15000.0, s.TotalExpenses, 1e-6)
	assert.InDelta(t, 35000.0, s.NetBusinessIncome, 1e-6)
	assert.InDelta(t, 35000.0*0.9235*0.153, s.SelfEmploymentTax, 1e-6)
	assert.InDelta(t, 0.153, s.SelfEmploymentTaxRate, 1e-9)
}

func TestGenerateTaxReport(t *testing.T) {
	dispositions := []Disposition{
		{GainLoss: 100, HoldingPeriod: ShortTerm, Quantity: 10, Outcome: OutcomeYes, MarketTitle: "m", TotalProceeds: 50, TotalCostBasis: 40,
			AcquiredAt: day(0), DisposedAt: day(30)},
		{GainLoss: -40, HoldingPeriod: ShortTerm, Quantity: 5, Outcome: OutcomeYes, MarketTitle: "m", TotalProceeds: 10, TotalCostBasis: 50,
			AcquiredAt: day(0), DisposedAt: day(40)},
	}

	in := ReportInput{
		UserID:             "user-1",
		TaxYear:            2025,
		Treatment:          TreatmentCapitalGains,
		CostBasisMethod:    MethodFIFO,
		Dispositions:       dispositions,
		TotalTransactions:  4,
		TotalVolume:        150,
		TotalFees:          1.5,
		WinCount:           1,
		LossCount:          1,
		OpenPositionsCount: 2,
		OpenPositionsValue: 80,
	}

	t.Run("Capital gains report carries Form 8949 lines", func(t *testing.T) {
		report := GenerateTaxReport(in, DefaultRates())
		require.NotNil(t, report.CapitalGains)
		assert.Nil(t, report.Gambling)
		assert.Nil(t, report.Business)
		assert.Len(t, report.Form8949Lines, 2)
		assert.InDelta(t, 0.5, report.WinRate, 1e-9)
		assert.Equal(t, 2, report.OpenPositionsCount)
		assert.InDelta(t, 60.0, report.CapitalGains.TotalNet, 1e-6)
	})

	t.Run("Gambling report omits forms", func(t *testing.T) {
		gamblingInput := in
		gamblingInput.Treatment = TreatmentGambling
		report := GenerateTaxReport(gamblingInput, DefaultRates())
		require.NotNil(t, report.Gambling)
		assert.Nil(t, report.CapitalGains)
		assert.Empty(t, report.Form8949Lines)
	})

	t.Run("Business report computes SE tax", func(t *testing.T) {
		businessInput := in
		businessInput.Treatment = TreatmentBusiness
		report := GenerateTaxReport(businessInput, DefaultRates())
		require.NotNil(t, report.Business)
		assert.InDelta(t, 60.0, report.Business.NetBusinessIncome, 1e-6)
	})
}

func TestCompareTreatments(t *testing.T) {
	testCases := []struct {
		name           string
		dispositions   []Disposition
		expectedChoice Treatment
	}{
		{
			name: "Net loss recommends capital gains",
			dispositions: []Disposition{
				{GainLoss: -5000, HoldingPeriod: ShortTerm},
			},
			expectedChoice: TreatmentCapitalGains,
		},
		{
			name: "Positive business income after SE tax below capital net recommends capital gains",
			dispositions: []Disposition{
				{GainLoss: 10000, HoldingPeriod: ShortTerm},
			},
			expectedChoice: TreatmentCapitalGains,
		},
		{
			name: "Gambling cap pushes income below capital net and wins",
			dispositions: []Disposition{
				// Winnings 1000, losses 990: capital net 10, gambling
				// net 1000 - 990*0.9 = 109.
				{GainLoss: 1000, HoldingPeriod: ShortTerm},
				{GainLoss: -990, HoldingPeriod: ShortTerm},
			},
			expectedChoice: TreatmentCapitalGains,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			comparison := CompareTreatments(tc.dispositions, 2025, DefaultRates())
			assert.Equal(t, tc.expectedChoice, comparison.Recommendation)
			assert.NotEmpty(t, comparison.RecommendationReason)
			assert.Equal(t, 2025, comparison.TaxYear)
		})
	}

	t.Run("All three summaries are populated", func(t *testing.T) {
		comparison := CompareTreatments([]Disposition{{GainLoss: 100, HoldingPeriod: ShortTerm}}, 2025, DefaultRates())
		assert.InDelta(t, 100.0, comparison.CapitalGains.TotalNet, 1e-6)
		assert.InDelta(t, 100.0, comparison.Gambling.GrossWinnings, 1e-6)
		assert.InDelta(t, 100.0, comparison.Business.GrossIncome, 1e-6)
	})
}
