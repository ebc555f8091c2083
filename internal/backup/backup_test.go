package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
	"github.com/julianstephens/barberbook/internal/storage/sqlite"
)

func setupStore(t *testing.T) (storage.Provider, string) {
	t.Helper()
	dir := t.TempDir()
	store := storage.NewJSONStore(filepath.Join(dir, constants.DefaultJSONFile))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return store, dir
}

func seed(t *testing.T, store storage.Provider, rows ...models.Appointment) {
	t.Helper()
	for _, a := range rows {
		if err := store.Append(context.Background(), a); err != nil {
			t.Fatalf("Append(%v) error = %v", a, err)
		}
	}
}

func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

var (
	later  = models.Appointment{Date: "2024-06-05", Slot: "09:00", Barber: "Fabrizio", Customer: "Luca"}
	second = models.Appointment{Date: "2024-06-04", Slot: "10:00", Barber: "Fabrizio", Customer: "Anna"}
	first  = models.Appointment{Date: "2024-06-04", Slot: "09:00", Barber: "Gianluca", Customer: "Mario"}
)

func TestCreateBackup(t *testing.T) {
	store, dir := setupStore(t)
	seed(t, store, later, second, first)

	mgr := NewManager(store, dir)
	mgr.now, _ = fixedClock(time.Date(2024, 6, 4, 9, 30, 0, 0, time.Local))

	path, err := mgr.CreateBackup(context.Background())
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if want := filepath.Join(dir, constants.BackupDirName, "barberbook-20240604-0930.csv"); path != want {
		t.Errorf("CreateBackup() path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("backup has %d lines, want 5:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], idMarker) {
		t.Errorf("first line = %q, want id comment", lines[0])
	}
	want := []string{
		"date,slot,barber,customer",
		"2024-06-04,09:00,Gianluca,Mario",
		"2024-06-04,10:00,Fabrizio,Anna",
		"2024-06-05,09:00,Fabrizio,Luca",
	}
	for i, w := range want {
		if lines[i+1] != w {
			t.Errorf("line %d = %q, want %q", i+1, lines[i+1], w)
		}
	}

	rows, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(rows) != 3 || rows[0] != first {
		t.Errorf("ReadSnapshot() = %v", rows)
	}
}

func TestCreateBackup_UniqueNames(t *testing.T) {
	store, dir := setupStore(t)
	mgr := NewManager(store, dir)
	mgr.now, _ = fixedClock(time.Date(2024, 6, 4, 9, 30, 15, 0, time.Local))

	var names []string
	for i := 0; i < 3; i++ {
		path, err := mgr.CreateBackup(context.Background())
		if err != nil {
			t.Fatalf("CreateBackup() #%d error = %v", i, err)
		}
		names = append(names, filepath.Base(path))
	}

	want := []string{
		"barberbook-20240604-0930.csv",
		"barberbook-20240604-093015.csv",
		"barberbook-20240604-093015-1.csv",
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("backup %d = %q, want %q", i, names[i], want[i])
		}
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("ListBackups() returned %d backups, want 3", len(backups))
	}
	for _, b := range backups {
		if b.ID == "" {
			t.Errorf("backup %s has no id", b.Path)
		}
	}
}

func TestListBackups(t *testing.T) {
	store, dir := setupStore(t)
	mgr := NewManager(store, dir)

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() on missing dir error = %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("ListBackups() = %v, want none", backups)
	}

	var advance func(time.Duration)
	mgr.now, advance = fixedClock(time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))
	for i := 0; i < 3; i++ {
		if _, err := mgr.CreateBackup(context.Background()); err != nil {
			t.Fatalf("CreateBackup() error = %v", err)
		}
		advance(time.Hour)
	}
	if err := os.WriteFile(filepath.Join(mgr.GetBackupDir(), "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mgr.GetBackupDir(), "barberbook-garbage.csv"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	backups, err = mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("ListBackups() returned %d backups, want 3", len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if !backups[i-1].Timestamp.After(backups[i].Timestamp) {
			t.Errorf("backups not sorted newest first: %v then %v", backups[i-1].Timestamp, backups[i].Timestamp)
		}
	}
}

func TestRotateBackups(t *testing.T) {
	store, dir := setupStore(t)
	mgr := NewManager(store, dir)
	var advance func(time.Duration)
	mgr.now, advance = fixedClock(time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))

	for i := 0; i < constants.MaxBackups+3; i++ {
		if _, err := mgr.CreateBackup(context.Background()); err != nil {
			t.Fatalf("CreateBackup() error = %v", err)
		}
		advance(time.Minute)
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(backups) != constants.MaxBackups {
		t.Fatalf("kept %d backups, want %d", len(backups), constants.MaxBackups)
	}
	oldest := backups[len(backups)-1].Timestamp
	if want := time.Date(2024, 6, 4, 9, 3, 0, 0, time.Local); !oldest.Equal(want) {
		t.Errorf("oldest kept backup = %v, want %v", oldest, want)
	}
}

func TestRestoreBackup(t *testing.T) {
	ctx := context.Background()
	store, dir := setupStore(t)
	seed(t, store, first, second)

	mgr := NewManager(store, dir)
	var advance func(time.Duration)
	mgr.now, advance = fixedClock(time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))

	path, err := mgr.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	advance(time.Minute)

	if err := store.DeleteMatching(ctx, first); err != nil {
		t.Fatal(err)
	}
	seed(t, store, later)

	res, err := mgr.RestoreBackup(ctx, path)
	if err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}
	if res.Kept != 1 || res.Removed != 1 || res.Restored != 1 || res.Skipped != 0 {
		t.Errorf("RestoreBackup() = %+v, want 1 kept, 1 removed, 1 restored", res)
	}
	if res.SafetyBackup == "" || res.SafetyBackup == path {
		t.Errorf("SafetyBackup = %q, want a new file", res.SafetyBackup)
	}

	rows, err := store.ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || storage.IndexOf(rows, first) < 0 || storage.IndexOf(rows, second) < 0 {
		t.Errorf("rows after restore = %v", rows)
	}

	safety, err := ReadSnapshot(res.SafetyBackup)
	if err != nil {
		t.Fatalf("ReadSnapshot(safety) error = %v", err)
	}
	if storage.IndexOf(safety, later) < 0 {
		t.Errorf("safety backup %v is missing %v", safety, later)
	}
}

// countingStore records the writes a restore issues.
type countingStore struct {
	storage.Provider
	appends, deletes int
}

func (c *countingStore) Append(ctx context.Context, a models.Appointment) error {
	c.appends++
	return c.Provider.Append(ctx, a)
}

func (c *countingStore) DeleteMatching(ctx context.Context, a models.Appointment) error {
	c.deletes++
	return c.Provider.DeleteMatching(ctx, a)
}

func TestRestoreBackup_WritesOnlyDifference(t *testing.T) {
	ctx := context.Background()
	inner, dir := setupStore(t)
	seed(t, inner, first, second, second)
	store := &countingStore{Provider: inner}

	mgr := NewManager(store, dir)
	var advance func(time.Duration)
	mgr.now, advance = fixedClock(time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local))
	path, err := mgr.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	advance(time.Minute)

	seed(t, inner, later)
	if err := inner.DeleteMatching(ctx, second); err != nil {
		t.Fatal(err)
	}

	res, err := mgr.RestoreBackup(ctx, path)
	if err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}
	if res.Kept != 2 || res.Removed != 1 || res.Restored != 1 {
		t.Errorf("RestoreBackup() = %+v, want 2 kept, 1 removed, 1 restored", res)
	}
	if store.deletes != 1 || store.appends != 1 {
		t.Errorf("restore issued %d deletes and %d appends, want 1 each", store.deletes, store.appends)
	}

	rows, err := inner.ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[models.Appointment]int{}
	for _, r := range rows {
		counts[r]++
	}
	if len(rows) != 3 || counts[first] != 1 || counts[second] != 2 {
		t.Errorf("rows after restore = %v", rows)
	}
}

func TestRestoreBackup_SkipsDuplicateSlots(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := sqlite.NewStore(filepath.Join(dir, constants.DefaultDBFile))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer store.Close()

	snapshot := filepath.Join(dir, "import.csv")
	content := "date,slot,barber,customer\n" +
		"2024-06-04,09:00,Gianluca,Mario\n" +
		"2024-06-04,09:00,Gianluca,Someone Else\n"
	if err := os.WriteFile(snapshot, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(store, dir)
	res, err := mgr.RestoreBackup(ctx, snapshot)
	if err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}
	if res.Restored != 1 || res.Skipped != 1 {
		t.Errorf("RestoreBackup() = %+v, want 1 restored, 1 skipped", res)
	}
}

func TestRestoreBackup_Invalid(t *testing.T) {
	store, dir := setupStore(t)
	seed(t, store, first)
	mgr := NewManager(store, dir)

	if _, err := mgr.RestoreBackup(context.Background(), filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("RestoreBackup() of missing file should fail")
	}

	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("name,value\nx,1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := mgr.RestoreBackup(context.Background(), bad)
	if !errors.Is(err, ErrInvalidBackup) {
		t.Errorf("RestoreBackup() error = %v, want ErrInvalidBackup", err)
	}

	rows, err := store.ReadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("store changed by failed restore: %v", rows)
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
		want time.Time
	}{
		{"barberbook-20240604-0930.csv", true, time.Date(2024, 6, 4, 9, 30, 0, 0, time.Local)},
		{"barberbook-20240604-093015.csv", true, time.Date(2024, 6, 4, 9, 30, 15, 0, time.Local)},
		{"barberbook-20240604-093015-7.csv", true, time.Date(2024, 6, 4, 9, 30, 15, 0, time.Local)},
		{"barberbook-20240604.csv", false, time.Time{}},
		{"notes-20240604-0930.db", false, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseName(tt.name)
			if ok != tt.ok {
				t.Fatalf("parseName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("parseName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
