package model

import "math"

// CapacityLimits caps how much capacity, in t/yr, may be added per product
// in one year. Products without a limit are uncapped.
type CapacityLimits struct {
	limit map[Product]float64
	used  map[Product]float64
}

func NewCapacityLimits(limits map[Product]float64) *CapacityLimits {
	c := &CapacityLimits{limit: map[Product]float64{}, used: map[Product]float64{}}
	for p, v := range limits {
		c.limit[p] = v
	}
	return c
}

// Reset starts a new year.
func (c *CapacityLimits) Reset() { c.used = map[Product]float64{} }

func (c *CapacityLimits) Remaining(p Product) float64 {
	l, ok := c.limit[p]
	if !ok {
		return math.Inf(1)
	}
	return math.Max(l-c.used[p], 0)
}

// Consume reserves capacity for p. It returns false, reserving nothing, when
// the allowance cannot cover it.
func (c *CapacityLimits) Consume(p Product, capacity float64) bool {
	if capacity > c.Remaining(p) {
		return false
	}
	c.used[p] += capacity
	return true
}
