package finance

import "fmt"

// CostOfStrandedAsset is the value given up by abandoning an asset before
// its amortization cycle ends: the discounted margin it would still have
// earned plus the debt that stays owed.
//
// remainingUnitOpex and remainingPriceForecast must cover remainingYears;
// remainingDebt may be shorter (debt that has already expired) but not longer.
// Callers normally want StrandedAssetCost, which applies the debt floor.
func CostOfStrandedAsset(remainingDebt, remainingUnitOpex, remainingPriceForecast []float64, remainingYears int, production, discountRate float64) (float64, error) {
	if remainingYears < 0 {
		return 0, fmt.Errorf("%w: remaining years %d", ErrInvalidArgument, remainingYears)
	}
	if len(remainingUnitOpex) < remainingYears || len(remainingPriceForecast) < remainingYears {
		return 0, fmt.Errorf("%w: need %d years of opex and prices, got %d and %d",
			ErrLengthMismatch, remainingYears, len(remainingUnitOpex), len(remainingPriceForecast))
	}
	if len(remainingDebt) > remainingYears {
		return 0, fmt.Errorf("%w: %d debt payments for %d remaining years", ErrLengthMismatch, len(remainingDebt), remainingYears)
	}
	flows := make([]float64, remainingYears)
	for i := range flows {
		flows[i] = (remainingPriceForecast[i] - remainingUnitOpex[i]) * production
		if i < len(remainingDebt) {
			flows[i] += remainingDebt[i]
		}
	}
	return NetPresentValue(flows, discountRate, 0, 0), nil
}

// StrandedAssetCost is CostOfStrandedAsset floored at the undiscounted sum of
// the remaining debt: abandoning an asset never costs less than what is
// still owed on it.
func StrandedAssetCost(remainingDebt, remainingUnitOpex, remainingPriceForecast []float64, remainingYears int, production, discountRate float64) (float64, error) {
	cosa, err := CostOfStrandedAsset(remainingDebt, remainingUnitOpex, remainingPriceForecast, remainingYears, production, discountRate)
	if err != nil {
		return 0, err
	}
	if floor := Sum(remainingDebt); cosa < floor {
		return floor, nil
	}
	return cosa, nil
}
