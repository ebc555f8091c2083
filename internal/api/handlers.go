package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/calendar"
	"github.com/julianstephens/barberbook/internal/models"
)

const storeTimeout = 30 * time.Second

type configResponse struct {
	Barbers      []string `json:"barbers"`
	Slots        []string `json:"slots"`
	OpenWeekdays []string `json:"open_weekdays"`
}

type dayResponse struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Today bool   `json:"today,omitempty"`
}

type daysResponse struct {
	Year int           `json:"year"`
	Days []dayResponse `json:"days"`
}

type appointmentsResponse struct {
	Date         string               `json:"date"`
	Label        string               `json:"label"`
	Appointments []models.Appointment `json:"appointments"`
}

type gridResponse struct {
	Date    string   `json:"date"`
	Label   string   `json:"label"`
	Open    bool     `json:"open"`
	Slots   []string `json:"slots"`
	Barbers []string `json:"barbers"`
	// Cells[i][j] is the customer booked in Slots[i] with Barbers[j], or "".
	Cells [][]string `json:"cells"`
	// Outside lists rows the grid has no cell for.
	Outside []models.Appointment `json:"outside,omitempty"`
	Booked  int                  `json:"booked"`
	Free    int                  `json:"free"`
}

type bookRequest struct {
	Date     string `json:"date"`
	Slot     string `json:"slot"`
	Barber   string `json:"barber"`
	Customer string `json:"customer"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	if _, err := s.store.ReadAll(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, configResponse{
		Barbers:      s.svc.Barbers(),
		Slots:        s.svc.Slots(),
		OpenWeekdays: s.cfg.OpenWeekdays,
	})
}

// handleDays handles GET /api/v1/days?year=YYYY
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	year := today.Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			respondError(w, http.StatusBadRequest, "year must be a number between 1 and 9999")
			return
		}
		year = y
	}

	resp := daysResponse{Year: year, Days: []dayResponse{}}
	for _, d := range s.svc.WorkingDays(year) {
		resp.Days = append(resp.Days, dayResponse{
			Date:  calendar.FormatDate(d),
			Label: s.dayLabel(d),
			Today: d.Equal(today),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) pathDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	d, err := calendar.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		respondErr(w, booking.ErrInvalidDate)
		return time.Time{}, false
	}
	return d, true
}

// handleListDay handles GET /api/v1/days/{date}/appointments
func (s *Server) handleListDay(w http.ResponseWriter, r *http.Request) {
	d, ok := s.pathDate(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	date := calendar.FormatDate(d)
	appts, err := s.svc.ListForDate(ctx, date)
	if err != nil {
		respondErr(w, err)
		return
	}
	if appts == nil {
		appts = []models.Appointment{}
	}
	respondJSON(w, http.StatusOK, appointmentsResponse{Date: date, Label: s.dayLabel(d), Appointments: appts})
}

// handleGrid handles GET /api/v1/days/{date}/grid
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	d, ok := s.pathDate(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	g, err := s.svc.Day(ctx, calendar.FormatDate(d))
	if err != nil {
		respondErr(w, err)
		return
	}

	resp := gridResponse{
		Date:    g.Date,
		Label:   s.dayLabel(d),
		Open:    s.svc.IsOpen(d),
		Slots:   g.Slots,
		Barbers: g.Barbers,
		Cells:   g.Cells,
		Booked:  g.Booked(),
		Free:    len(g.Slots)*len(g.Barbers) - g.Booked(),
	}
	resp.Outside = g.Unplaced()
	respondJSON(w, http.StatusOK, resp)
}

// handleBook handles POST /api/v1/appointments
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	a, err := s.svc.Book(ctx, booking.Request{
		Date:     req.Date,
		Slot:     req.Slot,
		Barber:   req.Barber,
		Customer: req.Customer,
	})
	if s.metrics != nil {
		s.metrics.ObserveBooking("book", err)
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// handleCancel handles DELETE /api/v1/days/{date}/appointments?slot=&barber=&customer=
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	d, ok := s.pathDate(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	a := models.Appointment{
		Date:     calendar.FormatDate(d),
		Slot:     strings.TrimSpace(q.Get("slot")),
		Barber:   strings.TrimSpace(q.Get("barber")),
		Customer: strings.TrimSpace(q.Get("customer")),
	}
	if a.Slot == "" || a.Barber == "" || a.Customer == "" {
		respondError(w, http.StatusBadRequest, "slot, barber and customer are required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	err := s.svc.Cancel(ctx, a)
	if s.metrics != nil {
		s.metrics.ObserveBooking("cancel", err)
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
