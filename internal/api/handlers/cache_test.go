package handlers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"

	"github.com/systemiqofficial/steel-iq-sub000/internal/simulation"
)

func TestRunCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewRunCache(time.Minute)
	c.now = func() time.Time { return now }

	id := uuid.New()
	res := &simulation.Result{StartYear: 2025}
	c.Set(id, res)
	got, ok := c.Get(id)
	assert.Assert(t, ok)
	assert.Equal(t, got, res)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(id)
	assert.Assert(t, !ok)
	assert.Equal(t, c.Len(), 1)
	assert.Equal(t, c.Cleanup(), 1)
	assert.Equal(t, c.Len(), 0)
}
