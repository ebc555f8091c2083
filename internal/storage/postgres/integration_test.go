package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
)

// Set POSTGRES_TEST_URL to run, e.g.
// POSTGRES_TEST_URL="postgres://user@localhost:5432/testdb?sslmode=disable"
func setupIntegrationStore(t *testing.T) *Store {
	t.Helper()
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	store := New(connStr)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() {
		_, _ = store.db.Exec("TRUNCATE appointments")
		store.Close()
	})
	if _, err := store.db.Exec("TRUNCATE appointments"); err != nil {
		t.Fatalf("failed to reset table: %v", err)
	}
	return store
}

func TestIntegration_AppendReadDelete(t *testing.T) {
	ctx := context.Background()
	store := setupIntegrationStore(t)

	a := models.Appointment{Date: "2024-06-04", Slot: "09:00", Barber: "Fabrizio", Customer: "Mario"}
	if err := store.Append(ctx, a); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	clash := a
	clash.Customer = "Luigi"
	if err := store.Append(ctx, clash); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Append(clash) error = %v, want ErrConflict", err)
	}

	rows, err := store.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 1 || rows[0] != a {
		t.Errorf("ReadAll() = %+v", rows)
	}

	if err := store.DeleteMatching(ctx, clash); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteMatching(clash) error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteMatching(ctx, a); err != nil {
		t.Errorf("DeleteMatching() error = %v", err)
	}
	rows, _ = store.ReadAll(ctx)
	if len(rows) != 0 {
		t.Errorf("rows after delete = %+v", rows)
	}
}
