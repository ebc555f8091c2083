package tui

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/config"
	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
)

func setupModel(t *testing.T, now time.Time) (Model, *cli.Context) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Store.Backend = constants.BackendJSON
	cfg.Store.Path = filepath.Join(dir, constants.DefaultJSONFile)

	backend := storage.NewJSONStore(cfg.Store.Path)
	if err := backend.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	ctx, err := cli.NewContext(cfg, backend)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	ctx.Now = func() time.Time { return now }
	return NewModel(ctx), ctx
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds msgs through Update and keeps running the returned commands,
// the way the program loop would. Commands that do not finish quickly
// (ticks, cursor blinks) are dropped.
func drive(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		var cmd tea.Cmd
		m, cmd = update(t, m, msg)
		queue := []tea.Cmd{cmd}
		for steps := 0; len(queue) > 0 && steps < 200; steps++ {
			c := queue[0]
			queue = queue[1:]
			next, ok := runCmd(c)
			if !ok {
				continue
			}
			if cmds, ok := batched(next); ok {
				queue = append(queue, cmds...)
				continue
			}
			if _, ok := next.(tea.QuitMsg); ok {
				continue
			}
			m, cmd = update(t, m, next)
			queue = append(queue, cmd)
		}
	}
	return m
}

func runCmd(c tea.Cmd) (tea.Msg, bool) {
	if c == nil {
		return nil, false
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg, msg != nil
	case <-time.After(250 * time.Millisecond):
		return nil, false
	}
}

// batched unpacks tea.Batch and tea.Sequence results.
func batched(msg tea.Msg) ([]tea.Cmd, bool) {
	if b, ok := msg.(tea.BatchMsg); ok {
		return b, true
	}
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Slice || v.Type().Elem() != reflect.TypeOf((*tea.Cmd)(nil)).Elem() {
		return nil, false
	}
	cmds := make([]tea.Cmd, v.Len())
	for i := range cmds {
		cmds[i], _ = v.Index(i).Interface().(tea.Cmd)
	}
	return cmds, true
}

func load(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.loadCurrent()()
	m, _ = update(t, m, msg)
	return m
}

func TestNewModel_DefaultDay(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"open day", time.Date(2024, 6, 4, 15, 0, 0, 0, time.Local), "2024-06-04"},
		{"closed monday", time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local), "2024-01-02"},
		{"closed sunday", time.Date(2024, 6, 9, 10, 0, 0, 0, time.Local), "2024-01-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := setupModel(t, tt.now)
			if got := m.currentDate(); got != tt.want {
				t.Errorf("currentDate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNavigation(t *testing.T) {
	m, _ := setupModel(t, time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.currentDate(); got != "2024-06-05" {
		t.Errorf("after right = %q, want 2024-06-05", got)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if got := m.currentDate(); got != "2024-06-01" {
		t.Errorf("after two lefts = %q, want Saturday 2024-06-01", got)
	}

	m, _ = update(t, m, keyRunes("t"))
	if got := m.currentDate(); got != "2024-06-04" {
		t.Errorf("after t = %q, want 2024-06-04", got)
	}

	if !m.goTo("2024-01-02") {
		t.Fatal("goTo(2024-01-02) = false")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if got := m.currentDate(); got != "2023-12-30" {
		t.Errorf("left from first day = %q, want 2023-12-30", got)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.currentDate(); got != "2024-01-02" {
		t.Errorf("right back = %q, want 2024-01-02", got)
	}

	if m.goTo("2024-06-03") {
		t.Error("goTo(Monday) should fail")
	}
}

func TestGridLoadedMsg_StaleDayIgnored(t *testing.T) {
	m, _ := setupModel(t, time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))

	stale := gridLoadedMsg{date: "2024-06-05", grid: booking.Grid{Date: "2024-06-05"}}
	m, _ = update(t, m, stale)
	if _, ok := m.grid.Grid(); ok {
		t.Error("grid for another day should be ignored")
	}

	m = load(t, m)
	g, ok := m.grid.Grid()
	if !ok || g.Date != "2024-06-04" {
		t.Fatalf("grid = %+v, %v", g, ok)
	}
	if len(g.Slots) != 18 || len(g.Barbers) != 2 {
		t.Errorf("grid is %dx%d, want 18x2", len(g.Slots), len(g.Barbers))
	}
}

func TestBookAndCancelFlow(t *testing.T) {
	m, ctx := setupModel(t, time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))
	m = load(t, m)

	m, _ = update(t, m, keyRunes("a"))
	if m.state != constants.StateBook || m.form == nil {
		t.Fatalf("after a: state = %v, form = %v", m.state, m.form)
	}
	m.bookingInput.Barber = "Gianluca"
	m.bookingInput.Slot = "10:00"
	m.bookingInput.Customer = "  Mario  "

	next, cmd := m.completeForm()
	m = next.(Model)
	if m.state != constants.StateGrid {
		t.Errorf("state after booking form = %v, want grid", m.state)
	}
	m, _ = update(t, m, cmd())
	if !strings.Contains(m.status, "Booked 10:00 • Gianluca • Mario") || m.statusErr {
		t.Errorf("status = %q (err %v)", m.status, m.statusErr)
	}
	m = load(t, m)

	m = drive(t, m, keyRunes("d"))
	if m.state != constants.StateCancel {
		t.Fatalf("after d: state = %v, want cancel picker", m.state)
	}
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != constants.StateConfirmCancel {
		t.Fatalf("state = %v, want confirm", m.state)
	}
	if m.confirmAction == nil {
		t.Fatal("confirmation has no action")
	}

	m = drive(t, m, keyRunes("y"))
	if !strings.HasPrefix(m.status, "Cancelled") || m.statusErr {
		t.Errorf("status = %q (err %v)", m.status, m.statusErr)
	}

	rows, err := ctx.Store.ReadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("rows after cancel = %v", rows)
	}
}

func TestCancelPickerSecondRow(t *testing.T) {
	tests := []struct {
		name    string
		confirm []tea.Msg
		want    []string
		status  string
	}{
		{"toggle then enter", []tea.Msg{tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyEnter}}, []string{"Anna"}, "Cancelled 10:00 • Fabrizio • Bruno"},
		{"accept key", []tea.Msg{keyRunes("y")}, []string{"Anna"}, "Cancelled 10:00 • Fabrizio • Bruno"},
		{"declined", []tea.Msg{keyRunes("n")}, []string{"Anna", "Bruno"}, "Nothing cancelled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ctx := setupModel(t, time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))
			for _, a := range []models.Appointment{
				{Date: "2024-06-04", Slot: "09:00", Barber: "Fabrizio", Customer: "Anna"},
				{Date: "2024-06-04", Slot: "10:00", Barber: "Fabrizio", Customer: "Bruno"},
			} {
				if err := ctx.Store.Append(context.Background(), a); err != nil {
					t.Fatal(err)
				}
			}
			m = load(t, m)

			m = drive(t, m, keyRunes("d"), tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
			if m.state != constants.StateConfirmCancel {
				t.Fatalf("state = %v, want confirm", m.state)
			}
			m = drive(t, m, tt.confirm...)
			if m.status != tt.status {
				t.Errorf("status = %q, want %q", m.status, tt.status)
			}
			if m.state != constants.StateGrid || m.pick != nil {
				t.Errorf("form not closed: state = %v", m.state)
			}

			rows, err := ctx.Store.ReadAll(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, r := range rows {
				got = append(got, r.Customer)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("customers left = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDayPicker(t *testing.T) {
	m, _ := setupModel(t, time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))
	m = load(t, m)

	m = drive(t, m, keyRunes("g"))
	if m.state != constants.StatePickDay {
		t.Fatalf("after g: state = %v, want day picker", m.state)
	}
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.currentDate(); got != "2024-06-05" {
		t.Errorf("picked day = %q, want 2024-06-05", got)
	}
	if g, ok := m.grid.Grid(); !ok || g.Date != "2024-06-05" {
		t.Errorf("grid not reloaded for picked day: %+v", g)
	}

	m = drive(t, m, keyRunes("g"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != constants.StateGrid || m.currentDate() != "2024-06-05" {
		t.Errorf("esc: state = %v, day = %q", m.state, m.currentDate())
	}
}

func TestBookConflictShowsError(t *testing.T) {
	m, ctx := setupModel(t, time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))
	a := models.Appointment{Date: "2024-06-04", Slot: "09:00", Barber: "Fabrizio", Customer: "Anna"}
	if err := ctx.Store.Append(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	msg := bookCmd(ctx.Service, booking.Request{Date: a.Date, Slot: a.Slot, Barber: a.Barber, Customer: "Luca"})()
	m, _ = update(t, m, msg)
	if !m.statusErr || !strings.Contains(m.status, "already booked") {
		t.Errorf("status = %q (err %v), want conflict message", m.status, m.statusErr)
	}
}

func TestActionsNeedLoadedGrid(t *testing.T) {
	m, _ := setupModel(t, time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))

	for _, k := range []string{"a", "d"} {
		next, _ := update(t, m, keyRunes(k))
		if next.state != constants.StateGrid || !next.statusErr {
			t.Errorf("%s before load: state = %v, status = %q", k, next.state, next.status)
		}
	}

	m = load(t, m)
	next, _ := update(t, m, keyRunes("d"))
	if next.status != "No appointments to cancel" {
		t.Errorf("d on empty day status = %q", next.status)
	}
}

func TestClearStatus(t *testing.T) {
	m, _ := setupModel(t, time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))
	m.setStatus("first", false)
	old := m.statusSeq
	m.setStatus("second", false)

	m, _ = update(t, m, clearStatusMsg{seq: old})
	if m.status != "second" {
		t.Errorf("stale clear removed status %q", m.status)
	}
	m, _ = update(t, m, clearStatusMsg{seq: m.statusSeq})
	if m.status != "" {
		t.Errorf("status = %q, want cleared", m.status)
	}
}

func TestQuitAndView(t *testing.T) {
	m, _ := setupModel(t, time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = load(t, m)

	view := m.View()
	if !strings.Contains(view, "Tue 04/06/2024") {
		t.Errorf("view missing day label:\n%s", view)
	}

	m, cmd := update(t, m, keyRunes("q"))
	if !m.quitting || cmd == nil {
		t.Error("q should quit")
	}
	if m.View() != "" {
		t.Error("view after quit should be empty")
	}
}
