package tax

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func openLot(id string, quantity, costBasis float64, acquiredAt time.Time) TaxLot {
	return TaxLot{
		ID:                id,
		MarketID:          "market-1",
		MarketTitle:       "Will it rain tomorrow?",
		Outcome:           OutcomeYes,
		Quantity:          quantity,
		OriginalQuantity:  quantity,
		CostBasisPerShare: costBasis,
		AcquiredAt:        acquiredAt,
		HoldingPeriod:     ShortTerm,
		IsOpen:            true,
	}
}

func TestClassifyHoldingPeriod(t *testing.T) {
	acquired := day(0)

	testCases := []struct {
		name       string
		disposedAt time.Time
		expected   HoldingPeriod
	}{
		{"Same day", day(0), ShortTerm},
		{"One day later", day(1), ShortTerm},
		{"Exactly 365 days", day(365), ShortTerm},
		{"366 days crosses the boundary", day(366), LongTerm},
		{"Two years later", day(730), LongTerm},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyHoldingPeriod(acquired, tc.disposedAt))
		})
	}
}

func TestGainLoss(t *testing.T) {
	assert.InDelta(t, 30.0, GainLoss(100, 0.40, 0.70), 1e-9)
	assert.InDelta(t, -15.0, GainLoss(50, 0.80, 0.50), 1e-9)
	assert.InDelta(t, 0.0, GainLoss(10, 0.25, 0.25), 1e-9)
}

func TestWeightedAverageCostBasis(t *testing.T) {
	lots := []TaxLot{
		openLot("a", 100, 0.40, day(0)),
		openLot("b", 300, 0.60, day(1)),
	}
	// (100*0.40 + 300*0.60) / 400 = 0.55
	assert.InDelta(t, 0.55, WeightedAverageCostBasis(lots), 1e-9)
	assert.Zero(t, WeightedAverageCostBasis(nil))
}

func TestSelectLotsOrdering(t *testing.T) {
	lots := []TaxLot{
		openLot("jan", 50, 0.30, day(0)),
		openLot("feb", 50, 0.50, day(31)),
		openLot("mar", 50, 0.70, day(59)),
	}

	t.Run("FIFO consumes only the oldest lot", func(t *testing.T) {
		selected, err := SelectLots(lots, MethodFIFO, 30, nil)
		require.NoError(t, err)
		require.Len(t, selected, 1)
		assert.Equal(t, "jan", selected[0].Lot.ID)
		assert.InDelta(t, 30.0, selected[0].QuantityFromLot, 1e-9)
	})

	t.Run("LIFO consumes only the newest lot", func(t *testing.T) {
		selected, err := SelectLots(lots, MethodLIFO, 30, nil)
		require.NoError(t, err)
		require.Len(t, selected, 1)
		assert.Equal(t, "mar", selected[0].Lot.ID)
	})

	t.Run("FIFO spans lots when one is not enough", func(t *testing.T) {
		selected, err := SelectLots(lots, MethodFIFO, 80, nil)
		require.NoError(t, err)
		require.Len(t, selected, 2)
		assert.Equal(t, "jan", selected[0].Lot.ID)
		assert.InDelta(t, 50.0, selected[0].QuantityFromLot, 1e-9)
		assert.Equal(t, "feb", selected[1].Lot.ID)
		assert.InDelta(t, 30.0, selected[1].QuantityFromLot, 1e-9)
	})

	t.Run("Ties in acquisition time keep input order", func(t *testing.T) {
		tied := []TaxLot{
			openLot("first", 10, 0.10, day(5)),
			openLot("second", 10, 0.20, day(5)),
		}
		selected, err := SelectLots(tied, MethodFIFO, 15, nil)
		require.NoError(t, err)
		require.Len(t, selected, 2)
		assert.Equal(t, "first", selected[0].Lot.ID)
		assert.Equal(t, "second", selected[1].Lot.ID)
	})
}

func TestSelectLotsSpecificID(t *testing.T) {
	lots := []TaxLot{
		openLot("jan", 50, 0.30, day(0)),
		openLot("feb", 50, 0.50, day(31)),
	}

	t.Run("Consumes the named lot first", func(t *testing.T) {
		selected, err := SelectLots(lots, MethodSpecificID, 20, []string{"feb"})
		require.NoError(t, err)
		require.Len(t, selected, 1)
		assert.Equal(t, "feb", selected[0].Lot.ID)
	})

	t.Run("Falls through to unlisted lots after named ones", func(t *testing.T) {
		selected, err := SelectLots(lots, MethodSpecificID, 70, []string{"feb"})
		require.NoError(t, err)
		require.Len(t, selected, 2)
		assert.Equal(t, "feb", selected[0].Lot.ID)
		assert.Equal(t, "jan", selected[1].Lot.ID)
	})

	t.Run("Fails fast without lot IDs", func(t *testing.T) {
		_, err := SelectLots(lots, MethodSpecificID, 20, nil)
		assert.ErrorIs(t, err, ErrSpecificLotsRequired)
	})
}

func TestSelectLotsInsufficient(t *testing.T) {
	lots := []TaxLot{openLot("only", 40, 0.30, day(0))}

	_, err := SelectLots(lots, MethodFIFO, 100, nil)
	require.Error(t, err)

	var insufficient *InsufficientLotsError
	require.ErrorAs(t, err, &insufficient)
	assert.InDelta(t, 100.0, insufficient.Requested, 1e-9)
	assert.InDelta(t, 40.0, insufficient.Available, 1e-9)
}

func TestSelectLotsEpsilonTolerance(t *testing.T) {
	// A float-drift shortfall below 1e-6 must not raise.
	lots := []TaxLot{openLot("only", 100-1e-8, 0.30, day(0))}
	selected, err := SelectLots(lots, MethodFIFO, 100, nil)
	require.NoError(t, err)
	require.Len(t, selected, 1)
}

func TestDisposeLotsConservation(t *testing.T) {
	lots := []TaxLot{
		openLot("a", 50, 0.30, day(0)),
		openLot("b", 50, 0.50, day(31)),
		openLot("c", 25, 0.60, day(59)),
	}

	disposed, remaining, err := DisposeLots(MethodFIFO, lots, 90, 0.70, day(90), nil)
	require.NoError(t, err)

	var disposedQty float64
	for _, d := range disposed {
		disposedQty += d.Quantity
	}
	assert.InDelta(t, 90.0, disposedQty, 1e-6, "disposed quantities must sum to the disposal quantity")

	var remainingQty float64
	for _, lot := range remaining {
		assert.Greater(t, lot.Quantity, 0.0)
		assert.LessOrEqual(t, lot.Quantity, lot.OriginalQuantity)
		remainingQty += lot.Quantity
	}
	assert.InDelta(t, 35.0, remainingQty, 1e-6)
}

func TestDisposePartialLotKeepsFieldsUnchanged(t *testing.T) {
	lots := []TaxLot{
		openLot("jan", 50, 0.30, day(0)),
		openLot("feb", 50, 0.50, day(31)),
	}

	disposed, remaining, err := DisposeLots(MethodLIFO, lots, 30, 0.60, day(60), nil)
	require.NoError(t, err)

	require.Len(t, disposed, 1)
	assert.Equal(t, "feb", disposed[0].LotID)
	assert.InDelta(t, 3.0, disposed[0].GainLoss, 1e-9) // (0.60-0.50)*30

	require.Len(t, remaining, 2)
	byID := map[string]TaxLot{}
	for _, lot := range remaining {
		byID[lot.ID] = lot
	}
	assert.InDelta(t, 50.0, byID["jan"].Quantity, 1e-9)
	assert.InDelta(t, 20.0, byID["feb"].Quantity, 1e-9)
	assert.InDelta(t, 0.50, byID["feb"].CostBasisPerShare, 1e-9)
	assert.Equal(t, day(31), byID["feb"].AcquiredAt)
	assert.True(t, byID["feb"].IsOpen)
}

func TestDisposeLotsHoldingPeriodPerLot(t *testing.T) {
	lots := []TaxLot{
		openLot("old", 10, 0.20, day(-400)),
		openLot("new", 10, 0.40, day(-10)),
	}

	disposed, _, err := DisposeLots(MethodFIFO, lots, 20, 0.50, day(0), nil)
	require.NoError(t, err)
	require.Len(t, disposed, 2)
	assert.Equal(t, LongTerm, disposed[0].HoldingPeriod)
	assert.Equal(t, ShortTerm, disposed[1].HoldingPeriod)
}

func TestDisposeLotsAnnotatesMethodOnError(t *testing.T) {
	_, _, err := DisposeLots(MethodLIFO, []TaxLot{openLot("a", 5, 0.30, day(0))}, 10, 0.50, day(1), nil)
	var insufficient *InsufficientLotsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, MethodLIFO, insufficient.Method)
}
