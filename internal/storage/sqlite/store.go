package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/barberbook/internal/logger"
	"github.com/julianstephens/barberbook/internal/migration"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
	"github.com/julianstephens/barberbook/migrations"
)

const table = "appointments"

type Store struct {
	path string
	db   *sql.DB
	sb   sq.StatementBuilderType
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

func (s *Store) Init() error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return storage.ErrNotInitialized
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	// Bring older files forward; refuse files written by a newer binary
	return s.runMigrations()
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// GetDB returns the underlying database connection, or nil before Init/Load.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

func (s *Store) EnforcesUniqueSlots() bool {
	return true
}

// SchemaRunner returns a migration runner bound to the open database.
func (s *Store) SchemaRunner() (*migration.Runner, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not loaded")
	}
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DriverSQLite)
}

func (s *Store) runMigrations() error {
	runner, err := s.SchemaRunner()
	if err != nil {
		return err
	}
	_, err = runner.ApplyMigrations(func(msg string) {
		logger.Info(msg, "store", "sqlite")
	})
	return err
}

func (s *Store) ReadAll(ctx context.Context) ([]models.Appointment, error) {
	if s.db == nil {
		return nil, storage.ErrNotInitialized
	}

	rows, err := s.sb.Select("date", "slot", "barber", "customer").
		From(table).
		OrderBy("id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.Date, &a.Slot, &a.Barber, &a.Customer); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Append(ctx context.Context, a models.Appointment) error {
	if s.db == nil {
		return storage.ErrNotInitialized
	}

	_, err := s.sb.Insert(table).
		Columns("date", "slot", "barber", "customer").
		Values(a.Date, a.Slot, a.Barber, a.Customer).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	return nil
}

func (s *Store) DeleteMatching(ctx context.Context, a models.Appointment) error {
	if s.db == nil {
		return storage.ErrNotInitialized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = s.sb.Select("id").
		From(table).
		Where(sq.Eq{"date": a.Date, "slot": a.Slot, "barber": a.Barber, "customer": a.Customer}).
		OrderBy("id").
		Limit(1).
		RunWith(tx).
		QueryRowContext(ctx).
		Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to locate appointment: %w", err)
	}

	if _, err := s.sb.Delete(table).Where(sq.Eq{"id": id}).RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
