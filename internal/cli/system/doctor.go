package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/barberbook/internal/calendar"
	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/keyring"
	"github.com/julianstephens/barberbook/internal/migration"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
)

var (
	processesFunc = ps.Processes
	nowFunc       = time.Now
)

// schemaStore is implemented by the SQL backends.
type schemaStore interface {
	SchemaRunner() (*migration.Runner, error)
}

type checkStatus int

const (
	statusOK checkStatus = iota
	statusWarn
	statusFail
	statusSkip
)

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	report := func(name string, status checkStatus, detail string) {
		switch status {
		case statusOK:
			fmt.Printf("✓ %s: OK\n", name)
		case statusWarn:
			fmt.Printf("⚠ %s: WARNING\n", name)
		case statusFail:
			fmt.Printf("❌ %s: FAIL\n", name)
			hasError = true
		case statusSkip:
			fmt.Printf("⊘ %s: SKIPPED (%s)\n", name, detail)
			return
		}
		if detail != "" {
			fmt.Printf("   %s\n", detail)
		}
	}
	check := func(name string, err error) bool {
		if err != nil {
			report(name, statusFail, "Error: "+err.Error())
			return false
		}
		report(name, statusOK, "")
		return true
	}

	// Check 1: configuration
	check("Configuration", ctx.Config.Validate())

	// Check 2: store configured and reachable
	storeOK := false
	if ctx.StoreErr != nil || ctx.Backend == nil {
		err := ctx.StoreErr
		if err == nil {
			err = errors.New("no store configured")
		}
		check("Store configured", err)
		report("Store reachable", statusSkip, "store not configured")
	} else {
		check("Store configured", nil)
		storeOK = check("Store reachable", checkStoreReachable(ctx))
	}

	// Check 3: schema version (SQL backends only)
	if storeOK {
		check("Schema version", checkSchemaVersion(ctx.Backend))
	} else {
		report("Schema version", statusSkip, "store not reachable")
	}

	// Check 4: data integrity
	if storeOK {
		dupes, issues, err := checkIntegrity(ctx)
		switch {
		case err != nil:
			check("Data integrity", err)
		case len(dupes) > 0:
			report("Data integrity", statusFail, "Error: "+strings.Join(dupes, "\n   "))
		case len(issues) > 0:
			report("Data integrity", statusWarn, strings.Join(issues, "\n   "))
		default:
			report("Data integrity", statusOK, "")
		}
	} else {
		report("Data integrity", statusSkip, "store not reachable")
	}

	// Check 5: backups present (warning only)
	if err := checkBackupsPresent(ctx); err != nil {
		report("Backups present", statusWarn, err.Error())
	} else {
		report("Backups present", statusOK, "")
	}

	// Check 6: keyring (warning only)
	if keyring.IsAvailable() {
		report("OS keyring", statusOK, "")
	} else {
		report("OS keyring", statusWarn, "keyring unavailable; remote credentials must come from config or environment")
	}

	// Check 7: other barberbook processes (warning only)
	if others, err := otherInstances(); err != nil {
		report("Other instances", statusWarn, fmt.Sprintf("could not list processes: %v", err))
	} else if len(others) > 0 {
		report("Other instances", statusWarn, fmt.Sprintf("%d other barberbook process(es) running (pid %s); bookings they cache may be up to %s stale",
			len(others), strings.Join(others, ", "), ctx.Config.Store.CacheTTL))
	} else {
		report("Other instances", statusOK, "")
	}

	// Check 8: clock/timezone sanity
	check("Clock/timezone", checkClockTimezone())

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkStoreReachable(ctx *cli.Context) error {
	if err := ctx.Backend.Load(); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}
	c, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := ctx.Backend.ReadAll(c); err != nil {
		return fmt.Errorf("failed to read appointments: %w", err)
	}
	return nil
}

func checkSchemaVersion(store storage.Provider) error {
	s, ok := store.(schemaStore)
	if !ok {
		return nil
	}
	runner, err := s.SchemaRunner()
	if err != nil {
		return err
	}

	currentVersion, err := runner.GetCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	latestVersion, err := runner.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest schema version: %w", err)
	}

	if currentVersion > latestVersion {
		return fmt.Errorf("schema version (%d) is newer than supported version (%d)", currentVersion, latestVersion)
	}
	if currentVersion < latestVersion {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", currentVersion, latestVersion)
	}
	return nil
}

// checkIntegrity returns the slots booked more than once and, separately,
// rows the grid cannot show under the current configuration.
func checkIntegrity(ctx *cli.Context) (dupes, issues []string, err error) {
	c, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	rows, err := ctx.Backend.ReadAll(c)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read appointments: %w", err)
	}

	seen := make(map[models.SlotKey]int)
	for _, a := range rows {
		seen[a.Key()]++
	}
	for key, n := range seen {
		if n > 1 {
			dupes = append(dupes, fmt.Sprintf("%s %s %s is booked %d times", key.Date, key.Slot, key.Barber, n))
		}
	}
	slices.Sort(dupes)

	slots := ctx.Service.Slots()
	barbers := ctx.Service.Barbers()
	var badDate, closed, badSlot, badBarber int
	for _, a := range rows {
		d, err := calendar.ParseDate(a.Date)
		switch {
		case err != nil:
			badDate++
			continue
		case !ctx.Service.IsOpen(d):
			closed++
		}
		if !slices.Contains(slots, a.Slot) {
			badSlot++
		}
		if !slices.Contains(barbers, a.Barber) {
			badBarber++
		}
	}
	if badDate > 0 {
		issues = append(issues, fmt.Sprintf("%d appointment(s) with an invalid date", badDate))
	}
	if closed > 0 {
		issues = append(issues, fmt.Sprintf("%d appointment(s) on days the shop is closed", closed))
	}
	if badSlot > 0 {
		issues = append(issues, fmt.Sprintf("%d appointment(s) outside the configured slots", badSlot))
	}
	if badBarber > 0 {
		issues = append(issues, fmt.Sprintf("%d appointment(s) for barbers no longer configured", badBarber))
	}
	return dupes, issues, nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	backups, err := ctx.Backups().ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'barberbook backup create'")
	}
	return nil
}

// otherInstances lists the pids of other running barberbook processes.
func otherInstances() ([]string, error) {
	procs, err := processesFunc()
	if err != nil {
		return nil, err
	}
	self := os.Getpid()
	var pids []string
	for _, p := range procs {
		if p.Pid() == self {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(p.Executable()), ".exe")
		if name == constants.AppName {
			pids = append(pids, fmt.Sprint(p.Pid()))
		}
	}
	return pids, nil
}

func checkClockTimezone() error {
	now := nowFunc()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if now.Location() == nil || now.Location().String() == "" {
		return fmt.Errorf("local timezone is not set")
	}
	return nil
}
