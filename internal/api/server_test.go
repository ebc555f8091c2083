package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/config"
	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
)

func setupServer(t *testing.T) (*httptest.Server, *cli.Context) {
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
	ctx.Now = func() time.Time { return time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local) }

	ts := httptest.NewServer(New(ctx).Handler())
	t.Cleanup(ts.Close)
	return ts, ctx
}

func do(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestBookListCancel(t *testing.T) {
	ts, _ := setupServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/v1/appointments", bookRequest{
		Date: "2024-06-04", Slot: "10:00", Barber: "Gianluca", Customer: " Mario ",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}
	var created models.Appointment
	decode(t, resp, &created)
	if created.Customer != "Mario" {
		t.Errorf("created = %+v, want trimmed customer", created)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("response has no request id")
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/days/2024-06-04/appointments", nil)
	var list appointmentsResponse
	decode(t, resp, &list)
	if len(list.Appointments) != 1 || list.Appointments[0] != created {
		t.Errorf("list = %+v", list)
	}
	if list.Label != "Tue 04/06/2024" {
		t.Errorf("label = %q", list.Label)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/v1/appointments", bookRequest{
		Date: "2024-06-04", Slot: "10:00", Barber: "Gianluca", Customer: "Luca",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate POST status = %d, want 409", resp.StatusCode)
	}

	resp = do(t, http.MethodDelete, ts.URL+"/api/v1/days/2024-06-04/appointments?slot=10:00&barber=Gianluca&customer=Mario", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", resp.StatusCode)
	}
	resp = do(t, http.MethodDelete, ts.URL+"/api/v1/days/2024-06-04/appointments?slot=10:00&barber=Gianluca&customer=Mario", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", resp.StatusCode)
	}
}

func TestBookErrors(t *testing.T) {
	ts, _ := setupServer(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"closed day", bookRequest{Date: "2024-06-03", Slot: "10:00", Barber: "Gianluca", Customer: "A"}, http.StatusBadRequest},
		{"bad slot", bookRequest{Date: "2024-06-04", Slot: "13:30", Barber: "Gianluca", Customer: "A"}, http.StatusBadRequest},
		{"unknown barber", bookRequest{Date: "2024-06-04", Slot: "10:00", Barber: "Marco", Customer: "A"}, http.StatusBadRequest},
		{"empty customer", bookRequest{Date: "2024-06-04", Slot: "10:00", Barber: "Gianluca", Customer: "  "}, http.StatusBadRequest},
		{"bad date", bookRequest{Date: "04/06/2024", Slot: "10:00", Barber: "Gianluca", Customer: "A"}, http.StatusBadRequest},
		{"unknown field", map[string]string{"when": "now"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, ts.URL+"/api/v1/appointments", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			var e errorResponse
			decode(t, resp, &e)
			if e.Error == "" {
				t.Error("error body is empty")
			}
		})
	}
}

func TestGrid(t *testing.T) {
	ts, ctx := setupServer(t)
	for _, a := range []models.Appointment{
		{Date: "2024-06-04", Slot: "09:00", Barber: "Fabrizio", Customer: "Mario"},
		{Date: "2024-06-04", Slot: "07:00", Barber: "Fabrizio", Customer: "Early"},
	} {
		if err := ctx.Store.Append(context.Background(), a); err != nil {
			t.Fatal(err)
		}
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/days/2024-06-04/grid", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var g gridResponse
	decode(t, resp, &g)
	if !g.Open || len(g.Slots) != 18 || len(g.Barbers) != 2 {
		t.Errorf("grid = %+v", g)
	}
	if g.Cells[0][0] != "Mario" || g.Booked != 1 || g.Free != 35 {
		t.Errorf("cells/booked/free = %v/%d/%d", g.Cells[0], g.Booked, g.Free)
	}
	if len(g.Outside) != 1 || g.Outside[0].Customer != "Early" {
		t.Errorf("outside = %v", g.Outside)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/days/tomorrow/grid", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", resp.StatusCode)
	}
}

func TestDaysAndConfig(t *testing.T) {
	ts, _ := setupServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/days", nil)
	var days daysResponse
	decode(t, resp, &days)
	if days.Year != 2024 || len(days.Days) == 0 {
		t.Fatalf("days = %+v", days)
	}
	if days.Days[0].Date != "2024-01-02" {
		t.Errorf("first working day = %s, want 2024-01-02", days.Days[0].Date)
	}
	todays := 0
	for _, d := range days.Days {
		if d.Today {
			todays++
			if d.Date != "2024-06-04" {
				t.Errorf("today marked on %s", d.Date)
			}
		}
	}
	if todays != 1 {
		t.Errorf("%d days marked today, want 1", todays)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/days?year=abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad year status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/config", nil)
	var cfg configResponse
	decode(t, resp, &cfg)
	if len(cfg.Barbers) != 2 || len(cfg.Slots) != 18 || cfg.Slots[0] != "09:00" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestCancelNeedsAllFields(t *testing.T) {
	ts, _ := setupServer(t)
	resp := do(t, http.MethodDelete, ts.URL+"/api/v1/days/2024-06-04/appointments?slot=10:00", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts, _ := setupServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	do(t, http.MethodGet, ts.URL+"/api/v1/days/2024-06-04/appointments", nil)

	resp = do(t, http.MethodGet, ts.URL+constants.DefaultMetricsPath, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`barberbook_http_requests_total{code="200",method="GET",route="/api/v1/days/{date}/appointments"} 1`,
		"barberbook_store_operations_total",
	} {
		if !strings.Contains(body.String(), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	resp = do(t, http.MethodGet, ts.URL+"/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{booking.ErrInvalidSlot, http.StatusBadRequest},
		{booking.ErrClosedDay, http.StatusBadRequest},
		{booking.ErrNotFound, http.StatusNotFound},
		{booking.ErrSlotConflict, http.StatusConflict},
		{booking.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{config.Missing("store.dsn", ""), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestServeShutsDown(t *testing.T) {
	ts, ctx := setupServer(t)
	ts.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(ctx).Serve(runCtx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
