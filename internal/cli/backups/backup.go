package backups

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/storage"
)

// stdin is swapped out by tests.
var stdin io.Reader = os.Stdin

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	backupPath, err := ctx.Backups().CreateBackup(context.Background())
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	fmt.Printf("✓ Backup created: %s\n", filepath.Base(backupPath))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr := ctx.Backups()
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		fmt.Println("No backups found.")
		fmt.Printf("Backups are stored in: %s\n", mgr.GetBackupDir())
		return nil
	}

	fmt.Printf("Available backups (%d total, keeping most recent %d):\n\n", len(backups), constants.MaxBackups)
	for _, b := range backups {
		sizeKB := float64(b.Size) / 1024.0
		timestamp := b.Timestamp.Format("2006-01-02 15:04:05")
		id := b.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Printf("  %s  %s  %-8s  (%.1f KB)\n", timestamp, filepath.Base(b.Path), id, sizeKB)
	}
	fmt.Printf("\nBackup directory: %s\n", mgr.GetBackupDir())

	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
	Yes        bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr := ctx.Backups()

	backupPath, err := resolvePath(c.BackupFile, mgr.GetBackupDir())
	if err != nil {
		return err
	}

	if !c.Yes {
		fmt.Println("⚠️  WARNING: This will replace every appointment in the store with the backup.")
		fmt.Println("⚠️  IMPORTANT: Other barberbook processes (TUI, serve) should be stopped first.")
		fmt.Println("             Bookings made during the restore may be lost.")
		fmt.Println("A backup of the current appointments will be created before restoring.")
		fmt.Printf("\nRestore from: %s\n", backupPath)
		fmt.Print("Continue? [y/N]: ")

		ok, err := confirm(stdin)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	res, err := mgr.RestoreBackup(context.Background(), backupPath)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	refresh(ctx.Store)

	fmt.Println("✓ Appointments restored successfully!")
	fmt.Printf("  Kept %d, removed %d, restored %d", res.Kept, res.Removed, res.Restored)
	if res.Skipped > 0 {
		fmt.Printf(", skipped %d duplicate slot(s)", res.Skipped)
	}
	fmt.Println()
	fmt.Printf("  Previous appointments saved to %s\n", filepath.Base(res.SafetyBackup))

	return nil
}

// resolvePath accepts an absolute path, a path relative to the working
// directory, or a file name inside the backup directory.
func resolvePath(name, backupDir string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return "", fmt.Errorf("backup file not found: %s", name)
		}
		return name, nil
	}

	if _, err := os.Stat(name); err == nil {
		absPath, err := filepath.Abs(name)
		if err != nil {
			return "", fmt.Errorf("failed to resolve backup path: %w", err)
		}
		return absPath, nil
	}

	possiblePath := filepath.Join(backupDir, name)
	if _, err := os.Stat(possiblePath); err == nil {
		return possiblePath, nil
	}
	return "", fmt.Errorf("backup file not found: tried current directory and %s", backupDir)
}

func confirm(r io.Reader) (bool, error) {
	response, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

func refresh(store storage.Provider) {
	if inv, ok := store.(storage.Invalidator); ok {
		inv.Invalidate()
	}
}
