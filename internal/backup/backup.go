package backup

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/logger"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
)

const (
	minuteStamp = "20060102-1504"
	secondStamp = "20060102-150405"
	idMarker    = "# barberbook backup "
)

// ErrInvalidBackup is returned when a file is not a readable appointment snapshot.
var ErrInvalidBackup = errors.New("not a valid backup file")

// BackupInfo contains information about a backup file
type BackupInfo struct {
	ID        string
	Path      string
	Timestamp time.Time
	Size      int64
}

// RestoreResult summarizes what a restore changed.
type RestoreResult struct {
	SafetyBackup string
	Removed      int
	Restored     int
	// Kept counts rows already present in both the store and the snapshot.
	Kept int
	// Skipped counts rows the store refused as duplicates of an earlier row.
	Skipped int
}

// Manager writes CSV snapshots of every appointment in a store.
type Manager struct {
	store     storage.Provider
	backupDir string
	now       func() time.Time
}

// NewManager creates a backup manager storing snapshots under
// <configDir>/backups.
func NewManager(store storage.Provider, configDir string) *Manager {
	return &Manager{
		store:     store,
		backupDir: filepath.Join(configDir, constants.BackupDirName),
		now:       time.Now,
	}
}

// GetBackupDir returns the backup directory path
func (m *Manager) GetBackupDir() string {
	return m.backupDir
}

// CreateBackup snapshots the store and prunes old snapshots.
func (m *Manager) CreateBackup(ctx context.Context) (string, error) {
	return m.createBackup(ctx, false)
}

// createBackup skips rotation when taking the safety copy before a restore,
// so the file being restored cannot be pruned underneath us.
func (m *Manager) createBackup(ctx context.Context, skipRotation bool) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	rows, err := storage.ReadFresh(ctx, m.store)
	if err != nil {
		return "", fmt.Errorf("failed to read appointments: %w", err)
	}

	path, err := m.nextPath()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	if err := writeSnapshot(path, id, rows); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	logger.Info("Backup created", "path", path, "id", id, "rows", len(rows))

	if !skipRotation {
		if err := m.rotateBackups(); err != nil {
			logger.Warn("Failed to rotate old backups", "error", err)
		}
	}
	return path, nil
}

// nextPath picks a free file name: minute precision first, then seconds,
// then a counter.
func (m *Manager) nextPath() (string, error) {
	now := m.now()
	name := func(stamp string, n int) string {
		if n == 0 {
			return filepath.Join(m.backupDir, constants.BackupFilePrefix+stamp+constants.BackupFileSuffix)
		}
		return filepath.Join(m.backupDir, fmt.Sprintf("%s%s-%d%s", constants.BackupFilePrefix, stamp, n, constants.BackupFileSuffix))
	}

	path := name(now.Format(minuteStamp), 0)
	if !exists(path) {
		return path, nil
	}
	stamp := now.Format(secondStamp)
	for n := 0; n <= 100; n++ {
		path = name(stamp, n)
		if !exists(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique backup filename")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeSnapshot writes rows sorted by (date, slot, barber) after an id comment
// and the column header.
func writeSnapshot(path, id string, rows []models.Appointment) error {
	sorted := slices.Clone(rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Barber < b.Barber
	})

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s%s\n", idMarker, id); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(models.Columns); err != nil {
		return err
	}
	for _, a := range sorted {
		if err := w.Write(a.Row()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadSnapshot parses a backup file. The header row decides column order.
func ReadSnapshot(path string) ([]models.Appointment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseSnapshot(f)
}

func parseSnapshot(r io.Reader) ([]models.Appointment, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalidBackup)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}
	for _, col := range models.Columns {
		if !slices.ContainsFunc(header, func(h string) bool {
			return strings.EqualFold(strings.TrimSpace(h), col)
		}) {
			return nil, fmt.Errorf("%w: missing %q column", ErrInvalidBackup, col)
		}
	}

	var out []models.Appointment
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
		}
		a := models.FromRow(header, rec)
		if a == (models.Appointment{}) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// readID returns the id comment on the first line, or "".
func readID(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	if id, ok := strings.CutPrefix(strings.TrimSpace(line), strings.TrimSpace(idMarker)); ok {
		return strings.TrimSpace(id)
	}
	return ""
}

// ListBackups returns a list of all available backups, sorted by timestamp (newest first)
func (m *Manager) ListBackups() ([]BackupInfo, error) {
	if _, err := os.Stat(m.backupDir); os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}

	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ts, ok := parseName(name)
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(m.backupDir, name)
		backups = append(backups, BackupInfo{
			ID:        readID(path),
			Path:      path,
			Timestamp: ts,
			Size:      info.Size(),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Path > backups[j].Path
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// parseName extracts the timestamp from a backup file name, ignoring any
// trailing counter.
func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)

	parts := strings.Split(stamp, "-")
	if len(parts) == 3 && isDigits(parts[2]) {
		stamp = parts[0] + "-" + parts[1]
	}
	for _, layout := range []string{minuteStamp, secondStamp} {
		if ts, err := time.ParseInLocation(layout, stamp, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// rotateBackups removes old backups beyond the retention limit
func (m *Manager) rotateBackups() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}
	if len(backups) <= constants.MaxBackups {
		return nil
	}
	for _, b := range backups[constants.MaxBackups:] {
		if err := os.Remove(b.Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", b.Path, err)
		}
	}
	return nil
}

// RestoreBackup makes the store contents equal to the snapshot at path. The
// current contents are snapshotted first. Only the difference is written:
// rows missing from the snapshot are deleted, then snapshot rows missing from
// the store are appended. Duplicate rows are counted as a multiset.
//
// Rows are deleted and appended one at a time, so a restore interrupted
// half way leaves a partial table; the safety backup covers that case.
func (m *Manager) RestoreBackup(ctx context.Context, path string) (RestoreResult, error) {
	var res RestoreResult

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return res, fmt.Errorf("backup file does not exist: %s", path)
	}
	want, err := ReadSnapshot(path)
	if err != nil {
		return res, err
	}

	safety, err := m.createBackup(ctx, true)
	if err != nil {
		return res, fmt.Errorf("failed to backup current appointments before restore: %w", err)
	}
	res.SafetyBackup = safety

	current, err := storage.ReadFresh(ctx, m.store)
	if err != nil {
		return res, fmt.Errorf("failed to read appointments: %w", err)
	}
	stale, missing := diff(current, want)
	res.Kept = len(current) - len(stale)

	for _, a := range stale {
		if err := m.store.DeleteMatching(ctx, a); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return res, fmt.Errorf("failed to remove appointment %s: %w", a.Label(), err)
		}
		res.Removed++
	}

	for _, a := range missing {
		if err := m.store.Append(ctx, a); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("failed to restore appointment %s: %w", a.Label(), err)
		}
		res.Restored++
	}

	logger.Info("Backup restored", "path", path, "kept", res.Kept, "removed", res.Removed, "restored", res.Restored, "skipped", res.Skipped)
	return res, nil
}

// diff returns the rows of current that want does not hold, and the rows of
// want that current does not hold, both in their original order.
func diff(current, want []models.Appointment) (stale, missing []models.Appointment) {
	need := make(map[models.Appointment]int, len(want))
	for _, a := range want {
		need[a]++
	}
	for _, a := range current {
		if need[a] > 0 {
			need[a]--
			continue
		}
		stale = append(stale, a)
	}
	for _, a := range want {
		if need[a] > 0 {
			need[a]--
			missing = append(missing, a)
		}
	}
	return stale, missing
}
