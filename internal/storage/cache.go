package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/julianstephens/barberbook/internal/models"
)

// CachedStore keeps the result of ReadAll for a fixed TTL. Every write drops
// the cached rows, whether or not it succeeded.
type CachedStore struct {
	Provider
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	rows     []models.Appointment
	loadedAt time.Time
	valid    bool
}

// NewCachedStore wraps p. A non-positive ttl disables caching.
func NewCachedStore(p Provider, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Provider: p,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (c *CachedStore) ReadAll(ctx context.Context) ([]models.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.now().Sub(c.loadedAt) < c.ttl {
		return slices.Clone(c.rows), nil
	}

	rows, err := c.Provider.ReadAll(ctx)
	if err != nil {
		c.valid = false
		return nil, err
	}
	c.rows = rows
	c.loadedAt = c.now()
	c.valid = c.ttl > 0
	return slices.Clone(rows), nil
}

func (c *CachedStore) Append(ctx context.Context, a models.Appointment) error {
	defer c.Invalidate()
	return c.Provider.Append(ctx, a)
}

func (c *CachedStore) DeleteMatching(ctx context.Context, a models.Appointment) error {
	defer c.Invalidate()
	return c.Provider.DeleteMatching(ctx, a)
}

// Invalidate drops the cached rows.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.rows = nil
	c.mu.Unlock()
}

// Refresh drops the cached rows and any connection state held by the wrapped store.
func (c *CachedStore) Refresh() {
	c.Invalidate()
	if r, ok := c.Provider.(Refresher); ok {
		r.Refresh()
	}
}

func (c *CachedStore) EnforcesUniqueSlots() bool {
	return EnforcesUniqueSlots(c.Provider)
}

// Unwrap returns the wrapped provider.
func (c *CachedStore) Unwrap() Provider {
	return c.Provider
}
