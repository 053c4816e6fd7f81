package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/daladno/upcoming/internal/domain"
)

const DefaultPath = "conf.json"

var (
	ErrUnknownTimezone = errors.New("unknown timezone")
	ErrNoSource        = errors.New("no url or ics feed is set")
	ErrBadInterval     = errors.New("wrong time interval")
)

// ConfigError is returned for anything wrong in the configuration. It is
// always reported before any calendar is contacted.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type CalDAVConfig struct {
	URL      string `validate:"omitempty,url"`
	Username string
	Password string
}

type ICSFeed struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`
}

type FilterConfig struct {
	// Calendars selects calendars by substring; empty means all.
	Calendars       []string
	Interval        domain.RelativeInterval
	Slack           time.Duration `validate:"gte=0"`
	ExclusiveBounds bool
}

type DisplayConfig struct {
	TimezoneName string `validate:"required"`
	Timezone     *time.Location
	EventFormat  string `validate:"required"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

type TelegramConfig struct {
	Token  string
	ChatID int64 `validate:"required_with=Token"`
}

func (t TelegramConfig) Enabled() bool {
	return t.Token != ""
}

type WatchConfig struct {
	Schedule string `validate:"required"`
}

// Config is the resolved, validated configuration of one run.
type Config struct {
	CalDAV   CalDAVConfig
	ICS      []ICSFeed `validate:"dive"`
	Filter   FilterConfig
	Display  DisplayConfig
	Logging  LoggingConfig
	Telegram TelegramConfig
	Watch    WatchConfig
}

// Defaults are the values used for every field the file leaves out.
type Defaults struct {
	Calendars       []string
	Interval        domain.RelativeInterval
	SlackDays       int
	ExclusiveBounds bool
	Timezone        string
	EventFormat     string
	LogLevel        string
	LogFormat       string
	WatchSchedule   string
}

// DefaultValues returns a fresh copy of the built-in defaults.
func DefaultValues() Defaults {
	return Defaults{
		Calendars:     []string{},
		Interval:      domain.RelativeInterval{StartDays: -7, EndDays: 365},
		SlackDays:     2,
		Timezone:      "UTC",
		EventFormat:   "{start:%d %b %Y}\t{summary}",
		LogLevel:      "info",
		LogFormat:     "console",
		WatchSchedule: "0 7 * * *",
	}
}

type fileConfig struct {
	URL      string         `yaml:"url"`
	Username string         `yaml:"username"`
	Password string         `yaml:"password"`
	ICS      []ICSFeed      `yaml:"ics"`
	Filter   *fileFilter    `yaml:"filter"`
	Display  *fileDisplay   `yaml:"display"`
	Logging  *LoggingConfig `yaml:"logging"`
	Telegram *fileTelegram  `yaml:"telegram"`
	Watch    *fileWatch     `yaml:"watch"`
}

type fileFilter struct {
	Calendars       []string `yaml:"calendars"`
	Interval        []any    `yaml:"interval"`
	SlackDays       *int     `yaml:"slack_days"`
	ExclusiveBounds *bool    `yaml:"exclusive_bounds"`
}

type fileDisplay struct {
	Timezone    string `yaml:"timezone"`
	EventFormat string `yaml:"event_format"`
}

type fileTelegram struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type fileWatch struct {
	Schedule string `yaml:"schedule"`
}

// Load reads path (JSON or YAML) and resolves it against DefaultValues.
// A missing file is not an error as long as the environment names a source.
func Load(path string) (*Config, error) {
	return LoadWithDefaults(path, DefaultValues())
}

func LoadWithDefaults(path string, defaults Defaults) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	var fc fileConfig
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, &ConfigError{Err: fmt.Errorf("read config file: %w", err)}
	default:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("parse config file %s: %w", path, err)}
		}
	}

	return resolve(fc, defaults, os.Getenv)
}

// Parse resolves an in-memory JSON or YAML document.
func Parse(data []byte, defaults Defaults) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("parse config: %w", err)}
	}
	return resolve(fc, defaults, os.Getenv)
}

// resolve merges fc over defaults field by field, applies environment
// overrides and validates the result.
func resolve(fc fileConfig, defaults Defaults, getenv func(string) string) (*Config, error) {
	cfg := &Config{
		CalDAV: CalDAVConfig{
			URL:      fc.URL,
			Username: fc.Username,
			Password: fc.Password,
		},
		ICS: fc.ICS,
		Filter: FilterConfig{
			Calendars:       append([]string(nil), defaults.Calendars...),
			Interval:        defaults.Interval,
			Slack:           time.Duration(defaults.SlackDays) * 24 * time.Hour,
			ExclusiveBounds: defaults.ExclusiveBounds,
		},
		Display: DisplayConfig{
			TimezoneName: defaults.Timezone,
			EventFormat:  defaults.EventFormat,
		},
		Logging: LoggingConfig{
			Level:  defaults.LogLevel,
			Format: defaults.LogFormat,
		},
		Watch: WatchConfig{Schedule: defaults.WatchSchedule},
	}

	if f := fc.Filter; f != nil {
		if f.Calendars != nil {
			cfg.Filter.Calendars = f.Calendars
		}
		if f.Interval != nil {
			rel, err := parseInterval(f.Interval)
			if err != nil {
				return nil, &ConfigError{Field: "filter.interval", Err: err}
			}
			cfg.Filter.Interval = rel
		}
		if f.SlackDays != nil {
			cfg.Filter.Slack = time.Duration(*f.SlackDays) * 24 * time.Hour
		}
		if f.ExclusiveBounds != nil {
			cfg.Filter.ExclusiveBounds = *f.ExclusiveBounds
		}
	}
	if d := fc.Display; d != nil {
		if d.Timezone != "" {
			cfg.Display.TimezoneName = d.Timezone
		}
		if d.EventFormat != "" {
			cfg.Display.EventFormat = d.EventFormat
		}
	}
	if l := fc.Logging; l != nil {
		if l.Level != "" {
			cfg.Logging.Level = l.Level
		}
		if l.Format != "" {
			cfg.Logging.Format = l.Format
		}
	}
	if tg := fc.Telegram; tg != nil {
		cfg.Telegram = TelegramConfig{Token: tg.Token, ChatID: tg.ChatID}
	}
	if w := fc.Watch; w != nil && w.Schedule != "" {
		cfg.Watch.Schedule = w.Schedule
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := splitUserinfo(&cfg.CalDAV); err != nil {
		return nil, &ConfigError{Field: "url", Err: err}
	}

	loc, err := ResolveTimezone(cfg.Display.TimezoneName)
	if err != nil {
		return nil, &ConfigError{Field: "display.timezone", Err: err}
	}
	cfg.Display.Timezone = loc

	if cfg.CalDAV.URL == "" && len(cfg.ICS) == 0 {
		return nil, &ConfigError{Err: ErrNoSource}
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{Err: err}
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("CALDAV_URL"); v != "" {
		cfg.CalDAV.URL = v
	}
	if v := getenv("CALDAV_USERNAME"); v != "" {
		cfg.CalDAV.Username = v
	}
	if v := getenv("CALDAV_PASSWORD"); v != "" {
		cfg.CalDAV.Password = v
	}
	if v := getenv("TIMEZONE"); v != "" {
		cfg.Display.TimezoneName = v
	}
	if v := getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &ConfigError{Field: "TELEGRAM_CHAT_ID", Err: fmt.Errorf("must be a number: %w", err)}
		}
		cfg.Telegram.ChatID = id
	}
	return nil
}

// splitUserinfo moves credentials embedded in the CalDAV URL into the
// username and password fields unless those are already set.
func splitUserinfo(c *CalDAVConfig) error {
	if c.URL == "" {
		return nil
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}
	if u.User == nil {
		return nil
	}
	if c.Username == "" {
		c.Username = u.User.Username()
	}
	if p, ok := u.User.Password(); ok && c.Password == "" {
		c.Password = p
	}
	u.User = nil
	c.URL = u.String()
	return nil
}

// ResolveTimezone loads an IANA zone by name.
func ResolveTimezone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownTimezone, name)
	}
	return loc, nil
}

// parseInterval reads the first two entries of raw; extra entries are
// ignored.
func parseInterval(raw []any) (domain.RelativeInterval, error) {
	if len(raw) < 2 {
		return domain.RelativeInterval{}, fmt.Errorf("%w: want 2 values, got %d", ErrBadInterval, len(raw))
	}
	var days [2]int
	for i, v := range raw[:2] {
		n, err := toDays(v)
		if err != nil {
			return domain.RelativeInterval{}, fmt.Errorf("%w: value %d: %w", ErrBadInterval, i, err)
		}
		days[i] = n
	}
	return domain.RelativeInterval{StartDays: days[0], EndDays: days[1]}, nil
}

// toDays converts a decoded YAML/JSON number to a day offset within
// domain.MaxOffsetDays.
func toDays(v any) (int, error) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not a whole number of days", n)
		}
		f = n
	default:
		return 0, fmt.Errorf("%v is not a number", v)
	}
	if math.Abs(f) > domain.MaxOffsetDays {
		return 0, fmt.Errorf("%v is out of range (at most %d days)", v, domain.MaxOffsetDays)
	}
	return int(f), nil
}
