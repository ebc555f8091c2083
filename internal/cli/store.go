package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/barberbook/internal/config"
	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/keyring"
	"github.com/julianstephens/barberbook/internal/logger"
	"github.com/julianstephens/barberbook/internal/storage"
	"github.com/julianstephens/barberbook/internal/storage/postgres"
	"github.com/julianstephens/barberbook/internal/storage/sheets"
	"github.com/julianstephens/barberbook/internal/storage/sqlite"
)

// OpenStore builds the backend named by cfg.Store.Backend. Nothing is
// connected yet; callers run Init or Load. A required connection setting
// that is absent yields config.ErrMissingConfiguration.
func OpenStore(cfg config.Config) (storage.Provider, error) {
	switch cfg.Store.Backend {
	case constants.BackendSQLite:
		return sqlite.NewStore(cfg.Store.Path), nil
	case constants.BackendJSON:
		return storage.NewJSONStore(cfg.Store.Path), nil
	case constants.BackendPostgres:
		dsn, err := postgresDSN(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.New(dsn), nil
	case constants.BackendSheets:
		return openSheets(cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func postgresDSN(cfg config.Config) (string, error) {
	dsn := cfg.Store.DSN
	fromKeyring := false
	if dsn == "" {
		v, err := keyring.Get(keyring.PostgresConnection)
		switch {
		case err == nil:
			dsn, fromKeyring = v, true
		case errors.Is(err, keyring.ErrNotFound), errors.Is(err, keyring.ErrKeyringUnavailable):
			return "", config.Missing("store.dsn",
				"run 'barberbook keyring set postgres <dsn>' or set "+constants.EnvPrefix+"_DATABASE_URL")
		default:
			return "", err
		}
	}

	if err := postgres.ValidateConnString(dsn); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return "", err
		}
		if !fromKeyring {
			logger.Warn("PostgreSQL connection string contains a password; prefer the keyring or ~/.pgpass")
		}
	}
	return dsn, nil
}

func openSheets(cfg config.Config) (storage.Provider, error) {
	if cfg.Store.SpreadsheetID == "" {
		return nil, config.Missing("store.spreadsheet_id", "set it in config.toml or "+constants.EnvPrefix+"_STORE_SPREADSHEET_ID")
	}
	id, err := sheets.ParseSpreadsheetID(cfg.Store.SpreadsheetID)
	if err != nil {
		return nil, err
	}

	creds, err := sheetsCredentials(cfg)
	if err != nil {
		return nil, err
	}
	worksheet := cfg.Store.Worksheet
	if worksheet == "" {
		worksheet = constants.DefaultWorksheet
	}
	return sheets.New(sheets.NewSession(creds), id, worksheet), nil
}

// sheetsCredentials prefers the keyring and falls back to credentials_file.
// The secret itself is read on every session build, so a rotated key is
// picked up after the session is invalidated.
func sheetsCredentials(cfg config.Config) (sheets.CredentialsFunc, error) {
	if _, err := keyring.Get(keyring.SheetsCredentials); err == nil {
		return func(context.Context) ([]byte, error) {
			v, err := keyring.Get(keyring.SheetsCredentials)
			if err != nil {
				return nil, err
			}
			return []byte(v), nil
		}, nil
	}

	path := strings.TrimSpace(cfg.Store.CredentialsFile)
	if path == "" {
		return nil, config.Missing("sheets credentials",
			"run 'barberbook keyring set sheets <key.json>' or set store.credentials_file")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, config.Missing("sheets credentials", fmt.Sprintf("credentials file %s is not readable", path))
	}
	return func(context.Context) ([]byte, error) {
		return os.ReadFile(path)
	}, nil
}
