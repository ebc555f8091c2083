package storage

import (
	"context"
	"time"

	"github.com/julianstephens/barberbook/internal/models"
)

// Observer receives the outcome of every call to the wrapped store.
type Observer interface {
	ObserveStore(op string, d time.Duration, err error)
}

// InstrumentedStore reports ReadAll, Append and DeleteMatching to an Observer.
type InstrumentedStore struct {
	Provider
	obs Observer
	now func() time.Time
}

func NewInstrumentedStore(p Provider, obs Observer) *InstrumentedStore {
	return &InstrumentedStore{Provider: p, obs: obs, now: time.Now}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	s.obs.ObserveStore(op, s.now().Sub(start), err)
}

func (s *InstrumentedStore) ReadAll(ctx context.Context) (rows []models.Appointment, err error) {
	start := s.now()
	defer func() { s.observe("read_all", start, err) }()
	return s.Provider.ReadAll(ctx)
}

func (s *InstrumentedStore) Append(ctx context.Context, a models.Appointment) (err error) {
	start := s.now()
	defer func() { s.observe("append", start, err) }()
	return s.Provider.Append(ctx, a)
}

func (s *InstrumentedStore) DeleteMatching(ctx context.Context, a models.Appointment) (err error) {
	start := s.now()
	defer func() { s.observe("delete_matching", start, err) }()
	return s.Provider.DeleteMatching(ctx, a)
}

func (s *InstrumentedStore) Refresh() {
	if r, ok := s.Provider.(Refresher); ok {
		r.Refresh()
	}
}

func (s *InstrumentedStore) EnforcesUniqueSlots() bool {
	return EnforcesUniqueSlots(s.Provider)
}

func (s *InstrumentedStore) Unwrap() Provider {
	return s.Provider
}
