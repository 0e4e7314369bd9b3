package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/christopherklint97/otlog/internal/duration"
	"github.com/christopherklint97/otlog/internal/entry"
	"github.com/christopherklint97/otlog/internal/report"
)

type Config struct {
	Store         StoreConfig    `toml:"store"`
	Sheets        SheetsConfig   `toml:"sheets"`
	Form          FormConfig     `toml:"form"`
	Periods       []PeriodConfig `toml:"periods"`
	Notifications NotifyConfig   `toml:"notifications"`
	Server        ServerConfig   `toml:"server"`
	Log           LogConfig      `toml:"log"`
}

type StoreConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "sheets"
	Path   string `toml:"path"`
}

type SheetsConfig struct {
	SpreadsheetID   string `toml:"spreadsheet_id"`
	Sheet           string `toml:"sheet"`
	CredentialsFile string `toml:"credentials_file"`
	BaseURL         string `toml:"base_url"`
	// TotalFormula writes the spreadsheet formula into Total Time instead of
	// a computed label.
	TotalFormula bool `toml:"total_formula"`
}

type FormConfig struct {
	Agents        []string `toml:"agents"`
	DefaultReason string   `toml:"default_reason"`
}

type PeriodConfig struct {
	Name  string `toml:"name"`
	Start string `toml:"start"`
	End   string `toml:"end"`
}

type NotifyConfig struct {
	Enabled  bool   `toml:"enabled"`
	RemindAt string `toml:"remind_at"` // HH:MM, used by "otlog remind"
	WorkDays []int  `toml:"work_days"` // 1=Monday ... 7=Sunday
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

const (
	DriverSQLite = "sqlite"
	DriverSheets = "sheets"
)

func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Driver: DriverSQLite,
		},
		Sheets: SheetsConfig{
			Sheet: "Sheet1",
		},
		Form: FormConfig{
			Agents:        []string{"Eliecid", "David", "Jhordan", "Brayan", "Luis", "Andrés", "Julio"},
			DefaultReason: entry.DefaultReason,
		},
		Notifications: NotifyConfig{
			Enabled:  false,
			RemindAt: "17:30",
			WorkDays: []int{1, 2, 3, 4, 5},
		},
		Server: ServerConfig{
			Addr: ":8484",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "otlog"), nil
}

func ConfigPath() (string, error) {
	if v := os.Getenv("OTLOG_CONFIG"); v != "" {
		return v, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(&cfg)
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OTLOG_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("OTLOG_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("OTLOG_SPREADSHEET_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
	if v := os.Getenv("OTLOG_SHEETS_CREDENTIALS"); v != "" {
		cfg.Sheets.CredentialsFile = v
	}
	if v := os.Getenv("OTLOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverSheets:
	default:
		return fmt.Errorf("unknown store driver %q (want %q or %q)", c.Store.Driver, DriverSQLite, DriverSheets)
	}
	if _, err := c.ReportPeriods(); err != nil {
		return err
	}
	if _, err := c.ReminderTime(); err != nil {
		return err
	}
	for _, d := range c.Notifications.WorkDays {
		if d < 1 || d > 7 {
			return fmt.Errorf("invalid work day %d (want 1-7)", d)
		}
	}
	return nil
}

// ReminderTime parses notifications.remind_at.
func (c *Config) ReminderTime() (duration.TimeOfDay, error) {
	t, ok, err := duration.ParseTimeOfDay(c.Notifications.RemindAt)
	if err != nil {
		return duration.TimeOfDay{}, fmt.Errorf("notifications.remind_at: %w", err)
	}
	if !ok {
		return duration.TimeOfDay{}, fmt.Errorf("notifications.remind_at: %w", &duration.ParseError{Kind: duration.ErrInvalidTime, Input: c.Notifications.RemindAt})
	}
	return t, nil
}

// ReportPeriods parses the configured [[periods]] tables.
func (c *Config) ReportPeriods() ([]report.Period, error) {
	periods := make([]report.Period, 0, len(c.Periods))
	for _, p := range c.Periods {
		period, err := report.ParsePeriod(p.Name, p.Start, p.End)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, nil
}

// LogLevel maps the configured level name to a slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// SaveAgents persists the agent roster to the config file at path using a
// read-modify-write approach to preserve other settings.
func SaveAgents(path string, agents []string) error {
	cfg := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	form, ok := cfg["form"].(map[string]any)
	if !ok {
		form = make(map[string]any)
	}
	form["agents"] = agents
	cfg["form"] = form

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

// Template is written by the config command on first run.
func Template() string {
	cfg := DefaultConfig()
	agents := make([]string, len(cfg.Form.Agents))
	for i, a := range cfg.Form.Agents {
		agents[i] = fmt.Sprintf("%q", a)
	}
	return fmt.Sprintf(`[store]
driver = "%s"   # "sqlite" or "sheets"
path = ""          # sqlite file, default ~/.config/otlog/otlog.db

[sheets]
spreadsheet_id = ""
sheet = "%s"
credentials_file = ""   # service account JSON
total_formula = false

[form]
agents = [%s]
default_reason = "%s"

[[periods]]
name = "Oct 06 - Nov 02"
start = "2025-10-06"
end = "2025-11-02"

[[periods]]
name = "Nov 03 - Dec 07"
start = "2025-11-03"
end = "2025-12-07"

[notifications]
enabled = %t
remind_at = "%s"
work_days = [1, 2, 3, 4, 5]

[server]
addr = "%s"

[log]
level = "%s"
`,
		cfg.Store.Driver,
		cfg.Sheets.Sheet,
		strings.Join(agents, ", "),
		cfg.Form.DefaultReason,
		cfg.Notifications.Enabled,
		cfg.Notifications.RemindAt,
		cfg.Server.Addr,
		cfg.Log.Level,
	)
}
