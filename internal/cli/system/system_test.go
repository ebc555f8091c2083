package system

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/config"
	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/storage"
	"github.com/julianstephens/barberbook/internal/storage/sqlite"
)

// newContext builds a context over an uninitialized store of the given backend.
func newContext(t *testing.T, backend string) *cli.Context {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Store.Backend = backend

	var store storage.Provider
	switch backend {
	case constants.BackendJSON:
		cfg.Store.Path = filepath.Join(dir, constants.DefaultJSONFile)
		store = storage.NewJSONStore(cfg.Store.Path)
	default:
		s := sqlite.NewStore(cfg.Store.Path)
		t.Cleanup(func() { s.Close() })
		store = s
	}

	ctx, err := cli.NewContext(cfg, store)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	ctx.Now = func() time.Time { return time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local) }
	return ctx
}
