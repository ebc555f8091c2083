package booking

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/barberbook/internal/calendar"
	"github.com/julianstephens/barberbook/internal/logger"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
)

// Options configures a Service.
type Options struct {
	Hours   calendar.Hours
	Barbers []string
	Open    calendar.WeekdaySet
}

// Request is a booking to be validated and stored.
type Request struct {
	Date     string
	Slot     string
	Barber   string
	Customer string
}

// Service validates bookings and cancellations against the slot list and
// the current contents of the store. It holds no appointment state itself.
type Service struct {
	store   storage.Provider
	slots   []string
	barbers []string
	open    calendar.WeekdaySet
}

func NewService(store storage.Provider, opts Options) *Service {
	return &Service{
		store:   store,
		slots:   opts.Hours.Slots(),
		barbers: slices.Clone(opts.Barbers),
		open:    opts.Open,
	}
}

// Slots returns the ordered bookable slot labels.
func (s *Service) Slots() []string {
	return slices.Clone(s.slots)
}

// Barbers returns the configured barbers in display order.
func (s *Service) Barbers() []string {
	return slices.Clone(s.barbers)
}

// WorkingDays returns the open dates of year.
func (s *Service) WorkingDays(year int) []time.Time {
	return calendar.WorkingDays(year, s.open)
}

// IsOpen reports whether the shop works on date.
func (s *Service) IsOpen(date time.Time) bool {
	return calendar.IsWorkingDay(date, s.open)
}

// ListForDate returns the appointments on date ordered by slot, then barber.
// Rows with a slot or barber outside the configuration sort last in store order.
func (s *Service) ListForDate(ctx context.Context, date string) ([]models.Appointment, error) {
	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, storeError("read appointments", err)
	}
	day := storage.FilterByDate(rows, date)
	s.sort(day)
	return day, nil
}

func (s *Service) sort(rows []models.Appointment) {
	rank := func(list []string, v string) int {
		if i := slices.Index(list, v); i >= 0 {
			return i
		}
		return len(list)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		si, sj := rank(s.slots, rows[i].Slot), rank(s.slots, rows[j].Slot)
		if si != sj {
			return si < sj
		}
		return rank(s.barbers, rows[i].Barber) < rank(s.barbers, rows[j].Barber)
	})
}

// Validate normalizes req and checks it against the configuration. It does
// not touch the store.
func (s *Service) Validate(req Request) (models.Appointment, error) {
	a := models.Appointment{
		Date:     strings.TrimSpace(req.Date),
		Slot:     strings.TrimSpace(req.Slot),
		Barber:   strings.TrimSpace(req.Barber),
		Customer: strings.TrimSpace(req.Customer),
	}
	if a.Customer == "" {
		return models.Appointment{}, ErrEmptyCustomerName
	}
	if !slices.Contains(s.slots, a.Slot) {
		return models.Appointment{}, ErrInvalidSlot
	}
	if !slices.Contains(s.barbers, a.Barber) {
		return models.Appointment{}, ErrInvalidBarber
	}
	d, err := calendar.ParseDate(a.Date)
	if err != nil {
		return models.Appointment{}, ErrInvalidDate
	}
	if !s.IsOpen(d) {
		return models.Appointment{}, ErrClosedDay
	}
	return a, nil
}

// Book stores a new appointment if its (date, slot, barber) is free.
//
// The free check reads the store directly, bypassing any read cache. Stores
// that enforce unique slots reject a racing writer themselves; for the rest
// the write is verified afterwards and rolled back if another booking for
// the same slot landed first. Writes are not retried.
func (s *Service) Book(ctx context.Context, req Request) (models.Appointment, error) {
	a, err := s.Validate(req)
	if err != nil {
		return models.Appointment{}, err
	}

	rows, err := storage.ReadFresh(ctx, s.store)
	if err != nil {
		return models.Appointment{}, storeError("read appointments", err)
	}
	if taken(rows, a.Key()) {
		return models.Appointment{}, ErrSlotConflict
	}

	if err := s.store.Append(ctx, a); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return models.Appointment{}, ErrSlotConflict
		}
		return models.Appointment{}, storeError("append appointment", err)
	}

	if !storage.EnforcesUniqueSlots(s.store) {
		if err := s.verify(ctx, a); err != nil {
			return models.Appointment{}, err
		}
	}

	logger.Info("Appointment booked", "date", a.Date, "slot", a.Slot, "barber", a.Barber)
	return a, nil
}

// verify re-reads after an append to a store without slot uniqueness. The
// first row holding the slot wins. If that row is someone else's, or an
// identical row was written alongside ours, one copy of ours is removed
// again.
func (s *Service) verify(ctx context.Context, a models.Appointment) error {
	rows, err := storage.ReadFresh(ctx, s.store)
	if err != nil {
		// The row was written; we just cannot prove it is alone.
		logger.Warn("Could not verify booking", "date", a.Date, "slot", a.Slot, "barber", a.Barber, "error", err)
		return nil
	}

	first := -1
	copies := 0
	for i, r := range rows {
		if r.Key() != a.Key() {
			continue
		}
		if first < 0 {
			first = i
		}
		if r.Matches(a) {
			copies++
		}
	}
	if first >= 0 && rows[first].Matches(a) && copies == 1 {
		return nil
	}
	if copies == 0 {
		// Our row vanished; a concurrent cancel got to it first.
		return nil
	}

	logger.Warn("Concurrent booking detected, undoing", "date", a.Date, "slot", a.Slot, "barber", a.Barber, "copies", copies)
	if err := s.store.DeleteMatching(ctx, a); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return storeError("undo duplicate booking", err)
	}
	return ErrSlotConflict
}

// Cancel deletes exactly one appointment equal to a: the first in store order.
func (s *Service) Cancel(ctx context.Context, a models.Appointment) error {
	rows, err := storage.ReadFresh(ctx, s.store)
	if err != nil {
		return storeError("read appointments", err)
	}
	if storage.IndexOf(rows, a) < 0 {
		return ErrNotFound
	}

	if err := s.store.DeleteMatching(ctx, a); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return storeError("delete appointment", err)
	}

	logger.Info("Appointment cancelled", "date", a.Date, "slot", a.Slot, "barber", a.Barber)
	return nil
}

func taken(rows []models.Appointment, key models.SlotKey) bool {
	for _, r := range rows {
		if r.Key() == key {
			return true
		}
	}
	return false
}
