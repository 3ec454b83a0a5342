package finance

import "math"

// LearningCurveCapex applies a one-factor learning curve: every doubling of
// cumulative installed capacity beyond reference cuts base by learningRate.
func LearningCurveCapex(base, cumulative, reference, learningRate float64) float64 {
	if reference <= 0 || cumulative <= reference || learningRate <= 0 || learningRate >= 1 {
		return base
	}
	exponent := math.Log2(1 - learningRate)
	return base * math.Pow(cumulative/reference, exponent)
}
