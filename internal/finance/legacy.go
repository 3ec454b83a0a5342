package finance

import "fmt"

// LegacyDebt is the queue of payments still owed on technologies an asset
// has switched away from. Index 0 is the payment due this year.
//
// The zero value is an empty queue.
type LegacyDebt struct {
	payments []float64
}

func NewLegacyDebt(payments ...float64) LegacyDebt {
	return LegacyDebt{payments: append([]float64(nil), payments...)}
}

func (l *LegacyDebt) Len() int { return len(l.payments) }

// Current is the legacy payment due this year.
func (l *LegacyDebt) Current() float64 {
	if len(l.payments) == 0 {
		return 0
	}
	return l.payments[0]
}

// AdvanceOneYear drops the payment for the year that just ended.
func (l *LegacyDebt) AdvanceOneYear() {
	if len(l.payments) == 0 {
		return
	}
	l.payments = l.payments[1:]
	if len(l.payments) == 0 {
		l.payments = nil
	}
}

func (l *LegacyDebt) Total() float64 { return Sum(l.payments) }

// Payments returns a copy of the queue.
func (l *LegacyDebt) Payments() []float64 {
	return append([]float64(nil), l.payments...)
}

// Cascade folds the unexpired payments of an outgoing technology into the
// queue, adding them to whatever is already owed at the same year offset.
// The queue grows in magnitude, not in length: the result is only as long as
// the longer of the two, and it must fit in maxLen years.
func (l *LegacyDebt) Cascade(remaining []float64, maxLen int) error {
	n := len(l.payments)
	if len(remaining) > n {
		n = len(remaining)
	}
	if n > maxLen {
		return fmt.Errorf("%w: legacy debt of %d years exceeds %d remaining years", ErrLengthMismatch, n, maxLen)
	}
	merged := make([]float64, n)
	for i := range merged {
		if i < len(l.payments) {
			merged[i] += l.payments[i]
		}
		if i < len(remaining) {
			merged[i] += remaining[i]
		}
	}
	if n == 0 {
		merged = nil
	}
	l.payments = merged
	return nil
}
