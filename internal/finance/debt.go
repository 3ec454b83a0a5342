package finance

import "fmt"

// Payment is one year of debt service.
type Payment struct {
	Principal float64
	Interest  float64
}

func (p Payment) Total() float64 { return p.Principal + p.Interest }

// DebtSchedule returns a declining-balance amortization schedule for the
// debt-financed share of investment.
//
// Principal is repaid in equal yearly instalments over cycle years; interest
// accrues on the average of the opening and closing balance of each year.
// Only the last remaining entries are returned, which is the part of the
// schedule still owed by an asset that is cycle-remaining years into its
// amortization cycle.
func DebtSchedule(investment, equityShare float64, cycle int, rate float64, remaining int) ([]Payment, error) {
	if cycle <= 0 {
		return nil, fmt.Errorf("%w: cycle length %d", ErrInvalidArgument, cycle)
	}
	if remaining < 0 || remaining > cycle {
		return nil, fmt.Errorf("%w: remaining years %d outside [0, %d]", ErrInvalidArgument, remaining, cycle)
	}
	debt := investment * (1 - equityShare)
	principal := debt / float64(cycle)

	full := make([]Payment, cycle)
	for y := 0; y < cycle; y++ {
		opening := debt - principal*float64(y)
		closing := opening - principal
		full[y] = Payment{
			Principal: principal,
			Interest:  rate * (opening + closing) / 2,
		}
	}
	return full[cycle-remaining:], nil
}

// DebtPayments is DebtSchedule reduced to the yearly totals.
func DebtPayments(investment, equityShare float64, cycle int, rate float64, remaining int) ([]float64, error) {
	sched, err := DebtSchedule(investment, equityShare, cycle, rate, remaining)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(sched))
	for i, p := range sched {
		out[i] = p.Total()
	}
	return out, nil
}
