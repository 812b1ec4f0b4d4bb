package tax

import (
	"errors"
	"math"
	"sort"
	"time"
)

// quantityEpsilon absorbs floating-point drift on "fully consumed" checks.
const quantityEpsilon = 1e-6

// longTermThresholdDays is the IRS holding-period boundary: a position held
// strictly longer than one year qualifies as long-term.
const longTermThresholdDays = 365

// ClassifyHoldingPeriod returns long-term iff the number of whole days
// between acquisition and disposal is strictly greater than 365. A disposal
// before acquisition is not validated here; that is the caller's concern.
func ClassifyHoldingPeriod(acquiredAt, disposedAt time.Time) HoldingPeriod {
	days := int(disposedAt.Sub(acquiredAt).Hours() / 24)
	if days > longTermThresholdDays {
		return LongTerm
	}
	return ShortTerm
}

// GainLoss computes the realized gain or loss for a quantity disposed at
// proceedsPerShare against costBasisPerShare.
func GainLoss(quantity, costBasisPerShare, proceedsPerShare float64) float64 {
	return (proceedsPerShare - costBasisPerShare) * quantity
}

// WeightedAverageCostBasis returns the quantity-weighted average cost basis
// across the given open lots, or 0 if they hold no quantity.
func WeightedAverageCostBasis(lots []TaxLot) float64 {
	var totalCost, totalQuantity float64
	for _, lot := range lots {
		totalCost += lot.CostBasisPerShare * lot.Quantity
		totalQuantity += lot.Quantity
	}
	if totalQuantity <= 0 {
		return 0
	}
	return totalCost / totalQuantity
}

// LotSelection pairs a lot with the quantity to consume from it.
type LotSelection struct {
	Lot             TaxLot
	QuantityFromLot float64
}

// sortLotsForMethod orders candidate lots for consumption. FIFO consumes
// oldest acquisitions first, LIFO newest first. Ties in acquisition time keep
// input order, so the sorts must be stable. For specific_id the caller's id
// order wins, with unlisted lots appended in input order.
func sortLotsForMethod(openLots []TaxLot, method CostBasisMethod, specificLotIDs []string) ([]TaxLot, error) {
	sorted := make([]TaxLot, len(openLots))
	copy(sorted, openLots)

	switch method {
	case MethodFIFO:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].AcquiredAt.Before(sorted[j].AcquiredAt)
		})
	case MethodLIFO:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].AcquiredAt.After(sorted[j].AcquiredAt)
		})
	case MethodSpecificID:
		if len(specificLotIDs) == 0 {
			return nil, ErrSpecificLotsRequired
		}
		byID := make(map[string]TaxLot, len(openLots))
		for _, lot := range openLots {
			byID[lot.ID] = lot
		}
		specified := make([]TaxLot, 0, len(specificLotIDs))
		listed := make(map[string]bool, len(specificLotIDs))
		for _, id := range specificLotIDs {
			listed[id] = true
			if lot, ok := byID[id]; ok {
				specified = append(specified, lot)
			}
		}
		for _, lot := range openLots {
			if !listed[lot.ID] {
				specified = append(specified, lot)
			}
		}
		sorted = specified
	}

	return sorted, nil
}

// SelectLots orders the open lots per the cost-basis method and greedily
// consumes from the front until quantityToDispose is satisfied. It returns
// an *InsufficientLotsError if the candidates are exhausted first; it never
// silently under-disposes.
func SelectLots(openLots []TaxLot, method CostBasisMethod, quantityToDispose float64, specificLotIDs []string) ([]LotSelection, error) {
	sorted, err := sortLotsForMethod(openLots, method, specificLotIDs)
	if err != nil {
		return nil, err
	}

	var result []LotSelection
	remaining := quantityToDispose

	for _, lot := range sorted {
		if remaining <= 0 {
			break
		}
		take := math.Min(lot.Quantity, remaining)
		result = append(result, LotSelection{Lot: lot, QuantityFromLot: take})
		remaining -= take
	}

	if remaining > quantityEpsilon {
		return nil, &InsufficientLotsError{
			Method:    method,
			Requested: quantityToDispose,
			Available: quantityToDispose - remaining,
		}
	}

	return result, nil
}

// applyDisposal consumes quantity from the already-ordered lots, recording a
// DisposedLot for each portion taken. A fully consumed lot is dropped from
// the remaining pool; a partially consumed lot stays with its quantity
// reduced and every other field unchanged. On success the disposed
// quantities sum to quantity within the epsilon tolerance.
func applyDisposal(sortedLots []TaxLot, quantity, proceedsPerShare float64, disposedAt time.Time) ([]DisposedLot, []TaxLot, error) {
	var disposed []DisposedLot
	var remainingLots []TaxLot
	remaining := quantity

	for _, lot := range sortedLots {
		if remaining <= 0 {
			remainingLots = append(remainingLots, lot)
			continue
		}

		take := math.Min(lot.Quantity, remaining)
		disposed = append(disposed, DisposedLot{
			LotID:             lot.ID,
			Quantity:          take,
			CostBasisPerShare: lot.CostBasisPerShare,
			ProceedsPerShare:  proceedsPerShare,
			GainLoss:          GainLoss(take, lot.CostBasisPerShare, proceedsPerShare),
			HoldingPeriod:     ClassifyHoldingPeriod(lot.AcquiredAt, disposedAt),
			AcquiredAt:        lot.AcquiredAt,
			DisposedAt:        disposedAt,
		})

		remaining -= take
		leftover := lot.Quantity - take
		if leftover > quantityEpsilon {
			partial := lot
			partial.Quantity = leftover
			remainingLots = append(remainingLots, partial)
		}
	}

	if remaining > quantityEpsilon {
		return nil, nil, &InsufficientLotsError{
			Requested: quantity,
			Available: quantity - remaining,
		}
	}

	return disposed, remainingLots, nil
}

// DisposeFIFO disposes oldest lots first.
func DisposeFIFO(openLots []TaxLot, quantity, proceedsPerShare float64, disposedAt time.Time) ([]DisposedLot, []TaxLot, error) {
	sorted, _ := sortLotsForMethod(openLots, MethodFIFO, nil)
	return applyDisposal(sorted, quantity, proceedsPerShare, disposedAt)
}

// DisposeLIFO disposes newest lots first.
func DisposeLIFO(openLots []TaxLot, quantity, proceedsPerShare float64, disposedAt time.Time) ([]DisposedLot, []TaxLot, error) {
	sorted, _ := sortLotsForMethod(openLots, MethodLIFO, nil)
	return applyDisposal(sorted, quantity, proceedsPerShare, disposedAt)
}

// DisposeSpecificID disposes the identified lots in the given order, then any
// unlisted lots in input order.
func DisposeSpecificID(openLots []TaxLot, specificLotIDs []string, quantity, proceedsPerShare float64, disposedAt time.Time) ([]DisposedLot, []TaxLot, error) {
	sorted, err := sortLotsForMethod(openLots, MethodSpecificID, specificLotIDs)
	if err != nil {
		return nil, nil, err
	}
	return applyDisposal(sorted, quantity, proceedsPerShare, disposedAt)
}

// DisposeLots dispatches to the disposal routine for the given method and
// annotates insufficient-lot errors with the method that ran.
func DisposeLots(method CostBasisMethod, openLots []TaxLot, quantity, proceedsPerShare float64, disposedAt time.Time, specificLotIDs []string) ([]DisposedLot, []TaxLot, error) {
	var (
		disposed  []DisposedLot
		remaining []TaxLot
		err       error
	)

	switch method {
	case MethodLIFO:
		disposed, remaining, err = DisposeLIFO(openLots, quantity, proceedsPerShare, disposedAt)
	case MethodSpecificID:
		disposed, remaining, err = DisposeSpecificID(openLots, specificLotIDs, quantity, proceedsPerShare, disposedAt)
	default:
		disposed, remaining, err = DisposeFIFO(openLots, quantity, proceedsPerShare, disposedAt)
	}

	var insufficient *InsufficientLotsError
	if err != nil && errors.As(err, &insufficient) {
		insufficient.Method = method
	}
	return disposed, remaining, err
}
