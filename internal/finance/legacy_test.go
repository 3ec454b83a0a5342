package finance

import (
	"errors"
	"math"
	"testing"

	"gotest.tools/v3/assert"
)

func TestLegacyDebtAdvance(t *testing.T) {
	l := NewLegacyDebt(3, 2, 1)
	assert.Equal(t, l.Current(), 3.0)
	l.AdvanceOneYear()
	assert.Equal(t, l.Current(), 2.0)
	assert.Equal(t, l.Len(), 2)
	l.AdvanceOneYear()
	l.AdvanceOneYear()
	l.AdvanceOneYear()
	assert.Equal(t, l.Len(), 0)
	assert.Equal(t, l.Current(), 0.0)
}

func TestLegacyDebtCascadeSumsNotExtends(t *testing.T) {
	var l LegacyDebt
	assert.NilError(t, l.Cascade([]float64{5, 5, 5}, 10))
	assert.NilError(t, l.Cascade([]float64{1, 1}, 10))
	assert.DeepEqual(t, l.Payments(), []float64{6, 6, 5})
	assert.Assert(t, math.Abs(l.Total()-17) < tol)
}

func TestLegacyDebtCascadeBoundedByRemainingYears(t *testing.T) {
	var l LegacyDebt
	err := l.Cascade([]float64{1, 1, 1, 1}, 3)
	assert.Assert(t, errors.Is(err, ErrLengthMismatch))
	assert.Equal(t, l.Len(), 0)
}

// Switches in year Y and Y+k: from Y+k on, the legacy payment due each year
// is the pointwise sum of both outgoing technologies' remaining payments.
func TestLegacyDebtTwoSwitches(t *testing.T) {
	const cycle = 10
	first, err := DebtPayments(1e6, 0.3, cycle, 0.05, 7) // first technology, 3 years in
	assert.NilError(t, err)
	second, err := DebtPayments(4e5, 0.3, cycle, 0.06, 8) // second technology, 2 years in
	assert.NilError(t, err)

	var l LegacyDebt
	assert.NilError(t, l.Cascade(first, cycle))
	const k = 2
	for i := 0; i < k; i++ {
		l.AdvanceOneYear()
	}
	assert.NilError(t, l.Cascade(second, cycle))

	for offset := 0; offset < 8; offset++ {
		want := second[offset]
		if k+offset < len(first) {
			want += first[k+offset]
		}
		assert.Assert(t, math.Abs(l.Current()-want) < 1e-6, "offset %d: got %f want %f", offset, l.Current(), want)
		l.AdvanceOneYear()
	}
	assert.Equal(t, l.Len(), 0)
}
