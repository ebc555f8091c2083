package system

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/config"
	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/storage"
)

type InitCmd struct {
	Force bool `help:"Back up and delete an existing local store before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	cfgPath := ctx.Config.File
	if cfgPath == "" {
		cfgPath = config.Path(ctx.Config.Dir)
	}
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.WriteDefault(cfgPath, ctx.Config, false); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to: %s\n", cfgPath)
	}

	loadErr := ctx.Backend.Load()
	switch {
	case loadErr == nil && !c.Force:
		fmt.Printf("Storage already initialized at: %s\n", ctx.Backend.GetConfigPath())
		return nil
	case loadErr != nil && !errors.Is(loadErr, storage.ErrNotInitialized) && !c.Force:
		return loadErr
	}

	if c.Force {
		if err := c.reset(ctx, loadErr == nil); err != nil {
			return err
		}
	}

	if err := ctx.Backend.Init(); err != nil {
		return err
	}
	if inv, ok := ctx.Store.(storage.Invalidator); ok {
		inv.Invalidate()
	}
	fmt.Printf("Initialized barberbook storage at: %s\n", ctx.Backend.GetConfigPath())
	return nil
}

// reset snapshots a loadable store and removes the file of a local backend.
// Remote tables are left in place; Init only ensures their schema.
func (c *InitCmd) reset(ctx *cli.Context, loaded bool) error {
	if loaded {
		path, err := ctx.Backups().CreateBackup(context.Background())
		if err != nil {
			return fmt.Errorf("refusing to reset, backup failed: %w", err)
		}
		fmt.Printf("Backed up existing appointments to: %s\n", path)
	}

	switch ctx.Config.Store.Backend {
	case constants.BackendSQLite, constants.BackendJSON:
	default:
		fmt.Printf("Note: --force does not delete data from the %s backend.\n", ctx.Config.Store.Backend)
		return nil
	}

	path := ctx.Backend.GetConfigPath()
	if _, err := os.Stat(path); err == nil {
		// Close first to release the file
		if err := ctx.Backend.Close(); err != nil {
			return fmt.Errorf("failed to close existing store: %w", err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete existing store: %w", err)
		}
		fmt.Printf("Deleted existing store at: %s\n", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing store: %w", err)
	}
	return nil
}
