package models

import (
	"fmt"
	"strings"
)

// Column names of the appointment table, in canonical order.
const (
	ColumnDate     = "date"
	ColumnSlot     = "slot"
	ColumnBarber   = "barber"
	ColumnCustomer = "customer"
)

// Columns lists the appointment table header in canonical order.
var Columns = []string{ColumnDate, ColumnSlot, ColumnBarber, ColumnCustomer}

// Appointment is one booked slot. There is no surrogate key: two
// appointments with equal fields are indistinguishable.
type Appointment struct {
	Date     string `json:"date"` // YYYY-MM-DD format
	Slot     string `json:"slot"` // HH:MM format
	Barber   string `json:"barber"`
	Customer string `json:"customer"`
}

// SlotKey identifies the (date, slot, barber) triple that may hold at most one booking.
type SlotKey struct {
	Date   string
	Slot   string
	Barber string
}

func (a Appointment) Key() SlotKey {
	return SlotKey{Date: a.Date, Slot: a.Slot, Barber: a.Barber}
}

// Matches reports whether all four fields are equal.
func (a Appointment) Matches(b Appointment) bool {
	return a == b
}

// Label renders the appointment for pickers: "<slot> • <barber> • <customer>".
func (a Appointment) Label() string {
	return fmt.Sprintf("%s • %s • %s", a.Slot, a.Barber, a.Customer)
}

// Row returns the fields in canonical column order.
func (a Appointment) Row() []string {
	return []string{a.Date, a.Slot, a.Barber, a.Customer}
}

// FromRow builds an appointment from a row laid out according to header.
// Columns missing from the header or the row are left empty.
func FromRow(header, row []string) Appointment {
	var a Appointment
	for i, name := range header {
		if i >= len(row) {
			break
		}
		v := strings.TrimSpace(row[i])
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ColumnDate:
			a.Date = v
		case ColumnSlot:
			a.Slot = v
		case ColumnBarber:
			a.Barber = v
		case ColumnCustomer:
			a.Customer = v
		}
	}
	return a
}
