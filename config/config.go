/*
Package config loads the server configuration and the installation settings.

PRIORITY:
  Environment variables (TIMEE_*) > config file > defaults

ORG SETTINGS:
  OrgConfig is the installation's settings snapshot (bot identity, rooms,
  accrual rates, check-in windows). It is immutable once built: core code
  receives one snapshot per operation and never reads settings from
  ambient state. A settings change produces a new snapshot, swapped into a
  Holder (holder.go).
*/
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/warp/timee/generic"
)

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Log    LogConfig    `mapstructure:"log"`
	Host   HostConfig   `mapstructure:"host"`
	Org    OrgConfig    `mapstructure:"org"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DBConfig points at the SQLite file. ":memory:" keeps everything in RAM.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig enables the shared status cache. An empty Addr keeps the
// status cache in process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HostConfig points at the chat host's REST API. An empty BaseURL runs
// against the in-memory host.
type HostConfig struct {
	BaseURL string `mapstructure:"base_url"`
	UserID  string `mapstructure:"user_id"`
	Token   string `mapstructure:"token"`
}

// =============================================================================
// ORG CONFIG
// =============================================================================

// Window holds morning and afternoon wall-clock times in "H:MM".
type Window struct {
	Morning   string `mapstructure:"morning" json:"morning"`
	Afternoon string `mapstructure:"afternoon" json:"afternoon"`
}

type OrgConfig struct {
	Scope        string   `mapstructure:"scope" json:"scope"`
	BotUsername  string   `mapstructure:"bot_username" json:"botUsername"`
	CheckinRooms []string `mapstructure:"checkin_rooms" json:"checkinRooms"`
	TimeoffRoom  string   `mapstructure:"timeoff_room" json:"timeoffRoom"`
	AdminUsers   []string `mapstructure:"admin_users" json:"adminUsers"`

	MonthlyAccrualOff float64 `mapstructure:"monthly_accrual_off" json:"monthlyAccrualOff"`
	MonthlyAccrualWFH float64 `mapstructure:"monthly_accrual_wfh" json:"monthlyAccrualWfh"`
	MonthlyLateLimit  float64 `mapstructure:"monthly_late_limit" json:"monthlyLateLimit"` // minutes

	CheckinWindow  Window `mapstructure:"checkin_window" json:"checkinWindow"`
	CheckoutWindow Window `mapstructure:"checkout_window" json:"checkoutWindow"`

	// Hours of advance notice below which a request is marked late.
	RequestOffBefore  float64 `mapstructure:"request_off_before" json:"requestOffBefore"`
	RequestWFHBefore  float64 `mapstructure:"request_wfh_before" json:"requestWfhBefore"`
	RequestLateBefore float64 `mapstructure:"request_late_before" json:"requestLateBefore"`

	DigestHour      int     `mapstructure:"digest_hour" json:"digestHour"`
	TimezoneOffset  float64 `mapstructure:"timezone_offset" json:"timezoneOffset"`
	DefaultTimezone float64 `mapstructure:"default_timezone" json:"defaultTimezone"`
}

// IsCheckinRoom reports whether room is one of the configured check-in rooms.
func (o *OrgConfig) IsCheckinRoom(room string) bool {
	for _, r := range o.CheckinRooms {
		if strings.EqualFold(r, room) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether username may run admin commands. The bot user
// always can.
func (o *OrgConfig) IsAdmin(username string) bool {
	if username != "" && username == o.BotUsername {
		return true
	}
	for _, a := range o.AdminUsers {
		if a == username {
			return true
		}
	}
	return false
}

// Validate checks the settings the bot cannot run without.
func (o *OrgConfig) Validate() error {
	var errs []error
	if o.BotUsername == "" {
		errs = append(errs, errors.New("org.bot_username is required"))
	}
	if len(o.CheckinRooms) == 0 {
		errs = append(errs, errors.New("org.checkin_rooms is required"))
	}
	if o.TimeoffRoom == "" {
		errs = append(errs, errors.New("org.timeoff_room is required"))
	}
	for name, v := range map[string]string{
		"org.checkin_window.morning":    o.CheckinWindow.Morning,
		"org.checkin_window.afternoon":  o.CheckinWindow.Afternoon,
		"org.checkout_window.morning":   o.CheckoutWindow.Morning,
		"org.checkout_window.afternoon": o.CheckoutWindow.Afternoon,
	} {
		if _, err := generic.HoursFromHHMM(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if o.DigestHour < 0 || o.DigestHour > 23 {
		errs = append(errs, errors.New("org.digest_hour must be between 0 and 23"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", generic.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// =============================================================================
// LOADING
// =============================================================================

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"*"})

	v.SetDefault("db.path", "./data/timee.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("org.scope", "default")
	v.SetDefault("org.monthly_accrual_off", 1)
	v.SetDefault("org.monthly_accrual_wfh", 1)
	v.SetDefault("org.monthly_late_limit", 120)
	v.SetDefault("org.checkin_window.morning", "9:00")
	v.SetDefault("org.checkin_window.afternoon", "13:30")
	v.SetDefault("org.checkout_window.morning", "12:00")
	v.SetDefault("org.checkout_window.afternoon", "18:00")
	v.SetDefault("org.request_off_before", 24)
	v.SetDefault("org.request_wfh_before", 12)
	v.SetDefault("org.request_late_before", 2)
	v.SetDefault("org.digest_hour", 8)
	v.SetDefault("org.timezone_offset", 7)
	v.SetDefault("org.default_timezone", 0)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TIMEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from file and environment and validates it.
// A missing config file is fine; defaults and env vars still apply.
func Load(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, *viper.Viper, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings required at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 1 and 65535", generic.ErrInvalidConfig)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("%w: db.path is required", generic.ErrInvalidConfig)
	}
	return c.Org.Validate()
}
