package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/julianstephens/barberbook/internal/calendar"
	"github.com/julianstephens/barberbook/internal/constants"
)

// ErrMissingConfiguration is returned when a required store connection
// parameter is absent.
var ErrMissingConfiguration = errors.New("missing configuration")

type HoursConfig struct {
	MorningStart   string
	MorningEnd     string
	AfternoonStart string
	AfternoonEnd   string
	StepMinutes    int
}

type StoreConfig struct {
	Backend string
	// Path is the database or JSON file for the local backends.
	Path string
	// DSN is normally kept in the keyring; see `barberbook keyring set`.
	DSN             string
	SpreadsheetID   string
	Worksheet       string
	CredentialsFile string
	CacheTTL        time.Duration
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MetricsPath     string
}

type LogConfig struct {
	Debug bool
	JSON  bool
}

type Config struct {
	Barbers      []string
	OpenWeekdays []string
	DayLabels    string
	Hours        HoursConfig
	Store        StoreConfig
	Server       ServerConfig
	Log          LogConfig

	// Dir is the configuration directory; logs and backups live under it.
	Dir string
	// File is the config file that was read, if any.
	File string
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	if dir := os.Getenv(constants.EnvPrefix + "_HOME"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, constants.AppName)
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) Config {
	return Config{
		Barbers:      slices.Clone(constants.DefaultBarbers),
		OpenWeekdays: slices.Clone(constants.DefaultOpenWeekdays),
		DayLabels:    "en",
		Hours: HoursConfig{
			MorningStart:   constants.DefaultMorningStart,
			MorningEnd:     constants.DefaultMorningEnd,
			AfternoonStart: constants.DefaultAfternoonStart,
			AfternoonEnd:   constants.DefaultAfternoonEnd,
			StepMinutes:    constants.DefaultStepMinutes,
		},
		Store: StoreConfig{
			Backend:   constants.BackendSQLite,
			Path:      filepath.Join(dir, constants.DefaultDBFile),
			Worksheet: constants.DefaultWorksheet,
			CacheTTL:  constants.DefaultCacheTTL,
		},
		Server: ServerConfig{
			Addr:            constants.DefaultServerAddr,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MetricsPath:     constants.DefaultMetricsPath,
		},
		Dir: dir,
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("barbers", d.Barbers)
	v.SetDefault("open_weekdays", d.OpenWeekdays)
	v.SetDefault("day_labels", d.DayLabels)
	v.SetDefault("hours.morning_start", d.Hours.MorningStart)
	v.SetDefault("hours.morning_end", d.Hours.MorningEnd)
	v.SetDefault("hours.afternoon_start", d.Hours.AfternoonStart)
	v.SetDefault("hours.afternoon_end", d.Hours.AfternoonEnd)
	v.SetDefault("hours.step_minutes", d.Hours.StepMinutes)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.spreadsheet_id", "")
	v.SetDefault("store.worksheet", d.Store.Worksheet)
	v.SetDefault("store.credentials_file", "")
	v.SetDefault("store.cache_ttl", d.Store.CacheTTL.String())
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout.String())
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout.String())
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout.String())
	v.SetDefault("server.metrics_path", d.Server.MetricsPath)
	v.SetDefault("log.debug", false)
	v.SetDefault("log.json", false)
}

// Load reads path (if it exists) over the defaults for dir, then applies
// BARBERBOOK_* environment overrides. A missing file is not an error.
func Load(path, dir string) (Config, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if path == "" {
		path = filepath.Join(dir, constants.DefaultConfigFile)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default(dir))

	_ = v.BindEnv("store.dsn", constants.EnvPrefix+"_STORE_DSN", constants.EnvPrefix+"_DATABASE_URL")
	_ = v.BindEnv("store.credentials_file", constants.EnvPrefix+"_STORE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")

	cfg := Config{Dir: dir}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		cfg.File = path
	}

	var err error
	cfg.Barbers = splitList(v.GetStringSlice("barbers"))
	cfg.OpenWeekdays = splitList(v.GetStringSlice("open_weekdays"))
	cfg.DayLabels = v.GetString("day_labels")
	cfg.Hours = HoursConfig{
		MorningStart:   v.GetString("hours.morning_start"),
		MorningEnd:     v.GetString("hours.morning_end"),
		AfternoonStart: v.GetString("hours.afternoon_start"),
		AfternoonEnd:   v.GetString("hours.afternoon_end"),
		StepMinutes:    v.GetInt("hours.step_minutes"),
	}
	cfg.Store = StoreConfig{
		Backend:         strings.ToLower(strings.TrimSpace(v.GetString("store.backend"))),
		Path:            expandHome(v.GetString("store.path")),
		DSN:             strings.TrimSpace(v.GetString("store.dsn")),
		SpreadsheetID:   strings.TrimSpace(v.GetString("store.spreadsheet_id")),
		Worksheet:       v.GetString("store.worksheet"),
		CredentialsFile: expandHome(v.GetString("store.credentials_file")),
	}
	if cfg.Store.CacheTTL, err = duration(v, "store.cache_ttl"); err != nil {
		return Config{}, err
	}
	cfg.Server = ServerConfig{
		Addr:        v.GetString("server.addr"),
		MetricsPath: v.GetString("server.metrics_path"),
	}
	if cfg.Server.ReadTimeout, err = duration(v, "server.read_timeout"); err != nil {
		return Config{}, err
	}
	if cfg.Server.WriteTimeout, err = duration(v, "server.write_timeout"); err != nil {
		return Config{}, err
	}
	if cfg.Server.ShutdownTimeout, err = duration(v, "server.shutdown_timeout"); err != nil {
		return Config{}, err
	}
	cfg.Log = LogConfig{
		Debug: v.GetBool("log.debug"),
		JSON:  v.GetBool("log.json"),
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath(dir, cfg.Store.Backend)
	}

	return cfg, nil
}

func defaultStorePath(dir, backend string) string {
	if backend == constants.BackendJSON {
		return filepath.Join(dir, constants.DefaultJSONFile)
	}
	return filepath.Join(dir, constants.DefaultDBFile)
}

// WithBackend switches the store backend. A store path still at the old
// backend's default moves to the new backend's default.
func (c Config) WithBackend(backend string) Config {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if c.Store.Path == "" || c.Store.Path == defaultStorePath(c.Dir, c.Store.Backend) {
		c.Store.Path = defaultStorePath(c.Dir, backend)
	}
	c.Store.Backend = backend
	return c
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// splitList accepts both TOML arrays and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Validate checks the business configuration. Store connection targets are
// checked when the store is opened.
func (c Config) Validate() error {
	if _, err := c.BusinessHours(); err != nil {
		return fmt.Errorf("invalid hours: %w", err)
	}
	open, err := c.OpenDays()
	if err != nil {
		return fmt.Errorf("invalid open_weekdays: %w", err)
	}
	if open.Empty() {
		return fmt.Errorf("open_weekdays must name at least one day")
	}
	if len(c.Barbers) == 0 {
		return fmt.Errorf("at least one barber must be configured")
	}
	seen := make(map[string]bool, len(c.Barbers))
	for _, b := range c.Barbers {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("barber names cannot be empty")
		}
		if seen[b] {
			return fmt.Errorf("duplicate barber %q", b)
		}
		seen[b] = true
	}
	switch c.Store.Backend {
	case constants.BackendSQLite, constants.BackendPostgres, constants.BackendJSON, constants.BackendSheets:
	default:
		return fmt.Errorf("unknown store backend %q (use sqlite, postgres, json or sheets)", c.Store.Backend)
	}
	if c.Store.CacheTTL < 0 {
		return fmt.Errorf("store.cache_ttl cannot be negative")
	}
	return nil
}

// BusinessHours parses the configured hours.
func (c Config) BusinessHours() (calendar.Hours, error) {
	h := c.Hours
	return calendar.ParseHours(h.MorningStart, h.MorningEnd, h.AfternoonStart, h.AfternoonEnd, h.StepMinutes)
}

// OpenDays parses the configured open weekdays.
func (c Config) OpenDays() (calendar.WeekdaySet, error) {
	return calendar.ParseWeekdaySet(c.OpenWeekdays)
}

// DayNames returns the weekday names used in day labels.
func (c Config) DayNames() calendar.DayNames {
	return calendar.NamesFor(c.DayLabels)
}

// Missing wraps ErrMissingConfiguration with the name of the absent setting.
func Missing(setting, hint string) error {
	if hint == "" {
		return fmt.Errorf("%w: %s is not set", ErrMissingConfiguration, setting)
	}
	return fmt.Errorf("%w: %s is not set (%s)", ErrMissingConfiguration, setting, hint)
}

// WriteDefault writes cfg as TOML to path. It refuses to overwrite an
// existing file unless force is set.
func WriteDefault(path string, cfg Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "# %s configuration\n\n", constants.AppName)
	if err := Encode(f, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Encode writes cfg in the config file layout. The DSN is never written.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(toFile(cfg))
}

// Path returns the config file location for dir.
func Path(dir string) string {
	return filepath.Join(dir, constants.DefaultConfigFile)
}

// fileConfig is the on-disk layout. Durations are written as strings ("10s").
type fileConfig struct {
	Barbers      []string   `toml:"barbers"`
	OpenWeekdays []string   `toml:"open_weekdays"`
	DayLabels    string     `toml:"day_labels"`
	Hours        fileHours  `toml:"hours"`
	Store        fileStore  `toml:"store"`
	Server       fileServer `toml:"server"`
	Log          fileLog    `toml:"log"`
}

type fileHours struct {
	MorningStart   string `toml:"morning_start"`
	MorningEnd     string `toml:"morning_end"`
	AfternoonStart string `toml:"afternoon_start"`
	AfternoonEnd   string `toml:"afternoon_end"`
	StepMinutes    int    `toml:"step_minutes"`
}

type fileStore struct {
	Backend         string `toml:"backend"`
	Path            string `toml:"path"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	Worksheet       string `toml:"worksheet"`
	CredentialsFile string `toml:"credentials_file"`
	CacheTTL        string `toml:"cache_ttl"`
}

type fileServer struct {
	Addr            string `toml:"addr"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	MetricsPath     string `toml:"metrics_path"`
}

type fileLog struct {
	Debug bool `toml:"debug"`
	JSON  bool `toml:"json"`
}

// toFile drops the DSN; connection strings belong in the keyring.
func toFile(c Config) fileConfig {
	return fileConfig{
		Barbers:      c.Barbers,
		OpenWeekdays: c.OpenWeekdays,
		DayLabels:    c.DayLabels,
		Hours:        fileHours(c.Hours),
		Store: fileStore{
			Backend:         c.Store.Backend,
			Path:            c.Store.Path,
			SpreadsheetID:   c.Store.SpreadsheetID,
			Worksheet:       c.Store.Worksheet,
			CredentialsFile: c.Store.CredentialsFile,
			CacheTTL:        c.Store.CacheTTL.String(),
		},
		Server: fileServer{
			Addr:            c.Server.Addr,
			ReadTimeout:     c.Server.ReadTimeout.String(),
			WriteTimeout:    c.Server.WriteTimeout.String(),
			ShutdownTimeout: c.Server.ShutdownTimeout.String(),
			MetricsPath:     c.Server.MetricsPath,
		},
		Log: fileLog(c.Log),
	}
}
