package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	pq "github.com/lib/pq"

	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/logger"
	"github.com/julianstephens/barberbook/internal/migration"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
	"github.com/julianstephens/barberbook/migrations"
)

const (
	table = "appointments"

	uniqueViolation = "23505"
)

type Store struct {
	connStr string
	db      *sql.DB
	sb      sq.StatementBuilderType
}

func New(connStr string) *Store {
	return &Store{
		connStr: withSearchPath(connStr),
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func (s *Store) ping(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasParam(s.connStr, "sslmode") {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

func (s *Store) Init() error {
	db, err := s.open()
	if err != nil {
		return err
	}
	if err := s.ping(db); err != nil {
		db.Close()
		return err
	}
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(constants.AppName)); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.db = db

	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	if err := s.ping(db); err != nil {
		db.Close()
		return err
	}
	s.db = db

	var exists bool
	if err := db.QueryRow("SELECT to_regclass('appointments') IS NOT NULL").Scan(&exists); err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	if !exists {
		return storage.ErrNotInitialized
	}
	return s.migrate()
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// SchemaRunner returns a migration runner bound to the open connection pool.
func (s *Store) SchemaRunner() (*migration.Runner, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not loaded")
	}
	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DriverPostgres)
}

func (s *Store) migrate() error {
	runner, err := s.SchemaRunner()
	if err != nil {
		return err
	}
	_, err = runner.ApplyMigrations(func(msg string) {
		logger.Info(msg, "store", "postgres")
	})
	return err
}

// GetConfigPath returns a non-sensitive identifier instead of the connection string.
func (s *Store) GetConfigPath() string {
	return "postgresql"
}

func (s *Store) EnforcesUniqueSlots() bool {
	return true
}

func (s *Store) ReadAll(ctx context.Context) ([]models.Appointment, error) {
	if s.db == nil {
		return nil, storage.ErrNotInitialized
	}

	rows, err := s.sb.Select("to_char(date, 'YYYY-MM-DD')", "slot", "barber", "customer").
		From(table).
		OrderBy("seq").
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
		Columns("id", "date", "slot", "barber", "customer").
		Values(uuid.New().String(), a.Date, a.Slot, a.Barber, a.Customer).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
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

	// Built with ? placeholders; the outer builder renumbers them.
	first := sq.Select("seq").
		From(table).
		Where(sq.Eq{"date": a.Date, "slot": a.Slot, "barber": a.Barber, "customer": a.Customer}).
		OrderBy("seq").
		Limit(1)
	firstSQL, args, err := first.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	res, err := s.sb.Delete(table).
		Where("seq = ("+firstSQL+")", args...).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
