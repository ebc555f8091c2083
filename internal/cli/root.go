package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/barberbook/internal/backup"
	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/calendar"
	"github.com/julianstephens/barberbook/internal/config"
	"github.com/julianstephens/barberbook/internal/logger"
	"github.com/julianstephens/barberbook/internal/metrics"
	"github.com/julianstephens/barberbook/internal/storage"
)

// Context is handed to every command's Run method.
type Context struct {
	Config config.Config
	// Store is the cached, instrumented view of the backend.
	Store   storage.Provider
	Service *booking.Service
	Metrics *metrics.Collector
	// Backend is the raw store, for lifecycle calls and diagnostics.
	Backend storage.Provider
	// StoreErr is set when the backend could not be built; only commands
	// that tolerate a broken store (doctor) run with it.
	StoreErr error
	Now      func() time.Time
}

// NewContext wires backend behind the metrics decorator and the read cache
// and builds the booking service from cfg.
func NewContext(cfg config.Config, backend storage.Provider) (*Context, error) {
	hours, err := cfg.BusinessHours()
	if err != nil {
		return nil, fmt.Errorf("invalid hours: %w", err)
	}
	open, err := cfg.OpenDays()
	if err != nil {
		return nil, fmt.Errorf("invalid open_weekdays: %w", err)
	}

	m := metrics.New()
	store := storage.NewCachedStore(storage.NewInstrumentedStore(backend, m), cfg.Store.CacheTTL)
	return &Context{
		Config:  cfg,
		Store:   store,
		Backend: backend,
		Metrics: m,
		Service: booking.NewService(store, booking.Options{
			Hours:   hours,
			Barbers: cfg.Barbers,
			Open:    open,
		}),
		Now: time.Now,
	}, nil
}

// Today returns the current local date at midnight UTC.
func (c *Context) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return calendar.Truncate(now())
}

// ParseDate resolves "", "today" and "tomorrow" against the clock and
// otherwise expects YYYY-MM-DD.
func (c *Context) ParseDate(s string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return c.Today(), nil
	case "tomorrow":
		return c.Today().AddDate(0, 0, 1), nil
	}
	d, err := calendar.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", booking.ErrInvalidDate, s)
	}
	return d, nil
}

// DayLabel renders date with the configured weekday names.
func (c *Context) DayLabel(date time.Time) string {
	return calendar.FormatDayLabelWith(date, c.Config.DayNames())
}

// Backups returns the backup manager for the configured store.
func (c *Context) Backups() *backup.Manager {
	return backup.NewManager(c.Store, c.Config.Dir)
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup(ctx context.Context) {
	if _, err := c.Backups().CreateBackup(ctx); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}
