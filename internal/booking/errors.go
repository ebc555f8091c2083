package booking

import (
	"errors"
	"fmt"

	"github.com/julianstephens/barberbook/internal/config"
)

var (
	ErrEmptyCustomerName = errors.New("customer name is required")
	ErrInvalidSlot       = errors.New("slot is not a bookable time")
	ErrInvalidBarber     = errors.New("unknown barber")
	ErrInvalidDate       = errors.New("invalid date")
	ErrClosedDay         = errors.New("the shop is closed on that day")
	ErrSlotConflict      = errors.New("slot already booked")
	ErrNotFound          = errors.New("appointment not found")
	ErrStoreUnavailable  = errors.New("appointment store unavailable")
)

// storeError marks a collaborator failure as ErrStoreUnavailable while
// keeping the cause. Missing configuration is passed through unchanged.
func storeError(op string, err error) error {
	if errors.Is(err, config.ErrMissingConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
