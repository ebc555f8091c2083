package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/config"
	apperrors "github.com/julianstephens/barberbook/internal/errors"
	"github.com/julianstephens/barberbook/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondErr maps a service error to its status code.
func respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	}
	respondError(w, status, apperrors.Message(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrEmptyCustomerName),
		errors.Is(err, booking.ErrInvalidSlot),
		errors.Is(err, booking.ErrInvalidBarber),
		errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, booking.ErrClosedDay):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrSlotConflict):
		return http.StatusConflict
	case errors.Is(err, booking.ErrStoreUnavailable),
		errors.Is(err, config.ErrMissingConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
