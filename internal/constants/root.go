package constants

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SessionState represents the current state of the TUI application
type SessionState int

// ConfirmationMsg is a message to trigger a confirmation dialog
type ConfirmationMsg struct {
	Message string
	Action  func() tea.Cmd
}

const (
	AppName           = "barberbook"
	DefaultConfigFile = "config.toml"
	DefaultDBFile     = "barberbook.db"
	DefaultJSONFile   = "appointments.json"
	EnvPrefix         = "BARBERBOOK"
	Version           = "v0.1.0"

	// Keyring users
	KeyringUserPostgres = "postgres-connection"
	KeyringUserSheets   = "sheets-credentials"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// DisplayDateFormat is used in day labels (DD/MM/YYYY)
	DisplayDateFormat = "02/01/2006"

	// Storage backends
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendJSON     = "json"
	BackendSheets   = "sheets"

	DefaultCacheTTL  = 10 * time.Second
	DefaultWorksheet = "appointments"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "barberbook-"
	BackupFileSuffix = ".csv"

	// HTTP server defaults
	DefaultServerAddr  = "127.0.0.1:8080"
	DefaultMetricsPath = "/metrics"

	// Session States
	StateGrid SessionState = iota
	StatePickDay
	StateBook
	StateCancel
	StateConfirmCancel
)

// Default business configuration
var (
	DefaultBarbers        = []string{"Fabrizio", "Gianluca"}
	DefaultOpenWeekdays   = []string{"tue", "wed", "thu", "fri", "sat"}
	DefaultMorningStart   = "09:00"
	DefaultMorningEnd     = "13:30"
	DefaultAfternoonStart = "14:30"
	DefaultAfternoonEnd   = "19:00"
	DefaultStepMinutes    = 30
)
