package storage

import (
	"context"
	"errors"

	"github.com/julianstephens/barberbook/internal/models"
)

var (
	// ErrNotFound is returned by DeleteMatching when no row equals the argument.
	ErrNotFound = errors.New("appointment not found")
	// ErrConflict is returned by stores that enforce one row per (date, slot, barber).
	ErrConflict = errors.New("slot already booked")
	// ErrNotInitialized is returned by Load when the backing store does not exist yet.
	ErrNotInitialized = errors.New("storage not initialized, run 'barberbook init' first")
)

// Provider is a row-oriented appointment table.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Appointments
	ReadAll(ctx context.Context) ([]models.Appointment, error)
	Append(ctx context.Context, a models.Appointment) error
	// DeleteMatching removes the first row, in store order, whose four fields
	// equal a. It returns ErrNotFound when nothing matches.
	DeleteMatching(ctx context.Context, a models.Appointment) error

	// Utility
	GetConfigPath() string
}

// UniqueSlotEnforcer is implemented by stores that reject a second row for
// the same (date, slot, barber) with ErrConflict.
type UniqueSlotEnforcer interface {
	EnforcesUniqueSlots() bool
}

// Invalidator is implemented by read caches.
type Invalidator interface {
	Invalidate()
}

// Refresher is implemented by stores holding connection state that can be
// dropped and lazily rebuilt on the next call.
type Refresher interface {
	Refresh()
}

// EnforcesUniqueSlots reports whether p, or the store it wraps, rejects duplicate slots.
func EnforcesUniqueSlots(p Provider) bool {
	if u, ok := p.(UniqueSlotEnforcer); ok {
		return u.EnforcesUniqueSlots()
	}
	return false
}

// ReadFresh reads all rows, bypassing any read cache in front of p.
func ReadFresh(ctx context.Context, p Provider) ([]models.Appointment, error) {
	if inv, ok := p.(Invalidator); ok {
		inv.Invalidate()
	}
	return p.ReadAll(ctx)
}

// FilterByDate returns the rows for date, preserving store order.
func FilterByDate(rows []models.Appointment, date string) []models.Appointment {
	var out []models.Appointment
	for _, r := range rows {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

// IndexOf returns the position of the first row equal to a, or -1.
func IndexOf(rows []models.Appointment, a models.Appointment) int {
	for i, r := range rows {
		if r.Matches(a) {
			return i
		}
	}
	return -1
}
