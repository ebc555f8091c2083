package models

import "testing"

func TestFromRow(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		row    []string
		want   Appointment
	}{
		{
			name:   "canonical order",
			header: Columns,
			row:    []string{"2024-06-04", "09:00", "Fabrizio", "Mario"},
			want:   Appointment{"2024-06-04", "09:00", "Fabrizio", "Mario"},
		},
		{
			name:   "shuffled header with padding",
			header: []string{" Customer", "barber", "DATE", "slot"},
			row:    []string{"Mario ", "Fabrizio", "2024-06-04", "09:00"},
			want:   Appointment{"2024-06-04", "09:00", "Fabrizio", "Mario"},
		},
		{
			name:   "missing customer column",
			header: []string{"date", "slot", "barber"},
			row:    []string{"2024-06-04", "09:00", "Gianluca"},
			want:   Appointment{Date: "2024-06-04", Slot: "09:00", Barber: "Gianluca"},
		},
		{
			name:   "short row",
			header: Columns,
			row:    []string{"2024-06-04", "09:00"},
			want:   Appointment{Date: "2024-06-04", Slot: "09:00"},
		},
		{
			name:   "unknown columns ignored",
			header: []string{"date", "notes", "slot", "barber", "customer"},
			row:    []string{"2024-06-04", "vip", "10:00", "Fabrizio", "Luigi"},
			want:   Appointment{"2024-06-04", "10:00", "Fabrizio", "Luigi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromRow(tt.header, tt.row); got != tt.want {
				t.Errorf("FromRow() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAppointmentLabel(t *testing.T) {
	a := Appointment{Date: "2024-06-04", Slot: "09:30", Barber: "Gianluca", Customer: "Anna"}
	if got := a.Label(); got != "09:30 • Gianluca • Anna" {
		t.Errorf("Label() = %q", got)
	}
	if a.Key() != (SlotKey{"2024-06-04", "09:30", "Gianluca"}) {
		t.Errorf("Key() = %+v", a.Key())
	}
}
