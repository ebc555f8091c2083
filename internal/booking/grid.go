package booking

import (
	"context"

	"github.com/julianstephens/barberbook/internal/models"
)

// Grid is one day laid out as slots (rows) by barbers (columns).
type Grid struct {
	Date    string
	Slots   []string
	Barbers []string
	// Cells[i][j] is the customer in Slots[i] for Barbers[j], or "".
	Cells [][]string
	// Appointments holds the day's rows in display order, including any whose
	// slot or barber falls outside the grid.
	Appointments []models.Appointment
}

// BuildGrid lays appts out over slots and barbers. When two rows claim the
// same cell the first one wins.
func BuildGrid(date string, slots, barbers []string, appts []models.Appointment) Grid {
	g := Grid{
		Date:         date,
		Slots:        slots,
		Barbers:      barbers,
		Cells:        make([][]string, len(slots)),
		Appointments: appts,
	}
	slotIdx := make(map[string]int, len(slots))
	for i, s := range slots {
		slotIdx[s] = i
		g.Cells[i] = make([]string, len(barbers))
	}
	barberIdx := make(map[string]int, len(barbers))
	for j, b := range barbers {
		barberIdx[b] = j
	}

	for _, a := range appts {
		i, ok := slotIdx[a.Slot]
		if !ok {
			continue
		}
		j, ok := barberIdx[a.Barber]
		if !ok {
			continue
		}
		if g.Cells[i][j] == "" {
			g.Cells[i][j] = a.Customer
		}
	}
	return g
}

// Free reports whether barber has nothing booked in slot.
func (g Grid) Free(slot, barber string) bool {
	for i, s := range g.Slots {
		if s != slot {
			continue
		}
		for j, b := range g.Barbers {
			if b == barber {
				return g.Cells[i][j] == ""
			}
		}
	}
	return false
}

// FreeSlots returns the slots in which barber is available.
func (g Grid) FreeSlots(barber string) []string {
	var out []string
	for _, s := range g.Slots {
		if g.Free(s, barber) {
			out = append(out, s)
		}
	}
	return out
}

// Booked returns how many cells are taken.
func (g Grid) Booked() int {
	n := 0
	for _, row := range g.Cells {
		for _, c := range row {
			if c != "" {
				n++
			}
		}
	}
	return n
}

// Unplaced returns the rows no cell shows: those with a slot or barber
// outside the grid and any second booking of an occupied cell.
func (g Grid) Unplaced() []models.Appointment {
	slots := make(map[string]bool, len(g.Slots))
	for _, s := range g.Slots {
		slots[s] = true
	}
	barbers := make(map[string]bool, len(g.Barbers))
	for _, b := range g.Barbers {
		barbers[b] = true
	}

	shown := make(map[models.SlotKey]bool)
	var out []models.Appointment
	for _, a := range g.Appointments {
		k := a.Key()
		if !slots[a.Slot] || !barbers[a.Barber] || shown[k] {
			out = append(out, a)
			continue
		}
		shown[k] = true
	}
	return out
}

// Day loads date and lays it out as a grid.
func (s *Service) Day(ctx context.Context, date string) (Grid, error) {
	appts, err := s.ListForDate(ctx, date)
	if err != nil {
		return Grid{}, err
	}
	return BuildGrid(date, s.Slots(), s.Barbers(), appts), nil
}
