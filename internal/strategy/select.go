package strategy

import (
	"fmt"
	"math/rand"
)

// ArgMax picks the candidate with the highest NPV. Ties go to the earlier
// candidate, so staying wins a tie against switching.
type ArgMax struct{}

func (ArgMax) Name() string { return "argmax" }

func (ArgMax) Select(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.NPV > best.NPV {
			best = c
		}
	}
	return best, true
}

// Weighted draws a candidate with probability proportional to max(NPV, 0).
// Candidates with a non-positive NPV are never drawn.
type Weighted struct {
	Rand *rand.Rand
}

func (w *Weighted) Name() string { return "weighted" }

func (w *Weighted) Select(cands []Candidate) (Candidate, bool) {
	total := 0.0
	for _, c := range cands {
		if c.NPV > 0 {
			total += c.NPV
		}
	}
	if total <= 0 {
		return Candidate{}, false
	}
	r := w.Rand.Float64() * total
	var last Candidate
	for _, c := range cands {
		if c.NPV <= 0 {
			continue
		}
		last = c
		if r < c.NPV {
			return c, true
		}
		r -= c.NPV
	}
	// Rounding can leave r a hair above the last weight.
	return last, true
}

// NewSelector maps a configured name onto a selector.
func NewSelector(name string, rng *rand.Rand) (Selector, error) {
	switch name {
	case "", "argmax":
		return ArgMax{}, nil
	case "weighted":
		if rng == nil {
			return nil, fmt.Errorf("weighted selection needs a random source")
		}
		return &Weighted{Rand: rng}, nil
	default:
		return nil, fmt.Errorf("unknown selection strategy %q (supported: argmax, weighted)", name)
	}
}
