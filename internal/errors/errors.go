package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/config"
	"github.com/julianstephens/barberbook/internal/logger"
)

// Message returns the text shown to the operator for err. Domain errors get
// a fixed sentence; anything else is reported as is.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, booking.ErrEmptyCustomerName):
		return "customer name is required"
	case errors.Is(err, booking.ErrInvalidSlot):
		return "that time is not a bookable slot"
	case errors.Is(err, booking.ErrInvalidBarber):
		return "unknown barber"
	case errors.Is(err, booking.ErrInvalidDate):
		return "invalid date, expected YYYY-MM-DD"
	case errors.Is(err, booking.ErrClosedDay):
		return "the shop is closed on that day"
	case errors.Is(err, booking.ErrSlotConflict):
		return "that slot is already booked for this barber"
	case errors.Is(err, booking.ErrNotFound):
		return "appointment not found, it may already have been cancelled"
	case errors.Is(err, config.ErrMissingConfiguration):
		return fmt.Sprintf("%v (run 'barberbook doctor' for details)", err)
	default:
		return err.Error()
	}
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %s", Message(err))
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
