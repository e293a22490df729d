package readdash

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a readdash server.
type Config struct {
	Addr         string `mapstructure:"addr"`          // Listen address (default ":3000")
	DatabasePath string `mapstructure:"database_path"` // SQLite path (default "data/readdash.db")

	SessionSecret string `mapstructure:"session_secret"` // Generated and persisted when empty
	CookieSecure  bool   `mapstructure:"cookie_secure"`  // Set true for HTTPS

	Fetch  FetchConfig  `mapstructure:"fetch"`
	Limits LimitsConfig `mapstructure:"limits"`
	Log    LogConfig    `mapstructure:"log"`
}

// FetchConfig tunes the outbound statistics client.
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`    // default 10s
	UserAgent string        `mapstructure:"user_agent"` // default "readdash/<version>"
}

// LimitsConfig bounds how often one client may trigger fetches.
type LimitsConfig struct {
	ActionsPerMinute int `mapstructure:"actions_per_minute"` // default 30
}

// LogConfig selects the zap logger level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// Version is set at build time via ldflags.
var Version = "dev"

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/readdash.db"
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 10 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "readdash/" + Version
	}
	if c.Limits.ActionsPerMinute == 0 {
		c.Limits.ActionsPerMinute = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// LoadConfig merges readdash.yaml (from . or ./configs), READDASH_* env vars
// and whatever flags were bound on v. A missing file is not an error.
func LoadConfig(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetConfigName("readdash")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("readdash")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":3000")
	v.SetDefault("database_path", "data/readdash.db")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("session_secret", "")
	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("limits.actions_per_minute", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithStaticDir serves a directory of user assets under /public (default
// none; only the embedded assets are served).
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
