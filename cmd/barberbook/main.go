package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/cli/appointments"
	"github.com/julianstephens/barberbook/internal/cli/backups"
	"github.com/julianstephens/barberbook/internal/cli/system"
	"github.com/julianstephens/barberbook/internal/config"
	"github.com/julianstephens/barberbook/internal/constants"
	apperrors "github.com/julianstephens/barberbook/internal/errors"
	"github.com/julianstephens/barberbook/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path (default: <config dir>/config.toml)." type:"path"`
	Backend string `help:"Override store.backend: sqlite, postgres, json or sheets." enum:",sqlite,postgres,json,sheets" default:""`
	Debug   bool   `help:"Log debug output to stderr."`

	Init   system.InitCmd         `cmd:"" help:"Write the default config and initialize the appointment store."`
	Doctor system.DoctorCmd       `cmd:"" help:"Run health checks and diagnostics."`
	Tui    system.TuiCmd          `cmd:"" help:"Launch the interactive day grid." default:"1"`
	Serve  system.ServeCmd        `cmd:"" help:"Serve the JSON API and metrics over HTTP."`
	Day    appointments.DayCmd    `cmd:"" help:"Show the booking grid for a day."`
	Days   appointments.DaysCmd   `cmd:"" help:"List the working days of a year."`
	Book   appointments.BookCmd   `cmd:"" help:"Book an appointment."`
	Cancel appointments.CancelCmd `cmd:"" help:"Cancel an appointment."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage appointment backups."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a credential in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show a stored credential (masked)."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove a credential from the OS keyring."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check keyring availability." default:"1"`
	} `cmd:"" help:"Manage backend credentials in the OS keyring."`
	Cfg struct {
		Show system.ConfigShowCmd `cmd:"" help:"Print the effective configuration." default:"1"`
		Path system.ConfigPathCmd `cmd:"" help:"Print the config file location."`
	} `cmd:"" name:"config" help:"Inspect configuration."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Appointment book for a small barber shop"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)
	command := strings.Fields(ctx.Command())[0]

	cfg, err := config.Load(CLI.Config, "")
	if err != nil {
		apperrors.Fatal(err)
	}
	if CLI.Backend != "" {
		cfg = cfg.WithBackend(CLI.Backend)
	}
	if CLI.Debug {
		cfg.Log.Debug = true
	}

	if err := logger.Init(logger.Config{
		Debug:     cfg.Log.Debug,
		ConfigDir: cfg.Dir,
		JSON:      cfg.Log.JSON,
		Stderr:    command == "serve",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	logger.Debug("Starting", "command", ctx.Command(), "config", cfg.File, "backend", cfg.Store.Backend)

	// Credential and config commands never touch the store
	if command == "keyring" || command == "config" {
		apperrors.Fatal(ctx.Run(&cli.Context{Config: cfg}))
		return
	}

	if command != "doctor" {
		if err := cfg.Validate(); err != nil {
			apperrors.Fatal(fmt.Errorf("invalid configuration: %w", err))
		}
	}

	backend, storeErr := cli.OpenStore(cfg)
	if storeErr != nil && command != "doctor" {
		apperrors.Fatal(storeErr)
	}

	appCtx, err := cli.NewContext(cfg, backend)
	if err != nil {
		if command != "doctor" {
			apperrors.Fatal(err)
		}
		appCtx = &cli.Context{Config: cfg, Store: backend}
	}
	appCtx.StoreErr = storeErr
	if storeErr != nil {
		appCtx.Backend = nil
	}

	// Load the store before running the command (init and doctor handle their own loading)
	if command != "init" && command != "doctor" {
		if err := backend.Load(); err != nil {
			apperrors.Fatal(err)
		}
	}

	err = ctx.Run(appCtx)
	if backend != nil {
		if cerr := backend.Close(); cerr != nil {
			logger.Warn("Failed to close store", "error", cerr)
		}
	}
	apperrors.Fatal(err)
}
