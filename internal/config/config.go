// Package config loads server configuration from defaults, an optional YAML file,
// a .env file and ADMIN_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"adminnext/internal/core/apperror"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/pkg/logger"
)

// EnvPrefix is prepended to every environment override: database.dsn -> ADMIN_DATABASE_DSN.
const EnvPrefix = "ADMIN"

// Config is the complete server configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	Prefix          string        `mapstructure:"prefix"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Metrics         bool          `mapstructure:"metrics"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Dialect         string        `mapstructure:"dialect"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// Bootstrap creates the demo schema on startup.
	Bootstrap bool `mapstructure:"bootstrap"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	// Format is json or console; empty lets Development decide.
	Format string `mapstructure:"format"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// CompressThreshold is the payload size in bytes above which changes are zstd-compressed.
	CompressThreshold int `mapstructure:"compress_threshold"`
}

// SetDefaults registers every key with its default so env overrides are picked up.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.prefix", "/admin")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.metrics", true)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.dialect", sqldb.DialectSQLite)
	v.SetDefault("database.dsn", "file:adminnext.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.bootstrap", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.format", "")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.compress_threshold", 10*1024)
}

// Load reads configuration. path may be empty; a missing .env file is ignored.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return LoadFrom(v)
}

// LoadFrom decodes and validates an already prepared viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if _, err := sqldb.DialectByName(c.Database.Dialect); err != nil {
		return err
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return apperror.NewConfiguration("database.dsn is required")
	}
	if !strings.HasPrefix(c.HTTP.Prefix, "/") {
		return apperror.NewConfiguration(fmt.Sprintf("http.prefix %q must start with /", c.HTTP.Prefix))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return apperror.NewConfiguration(fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}
	if c.Audit.CompressThreshold < 0 {
		return apperror.NewConfiguration("audit.compress_threshold must not be negative")
	}
	return nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// LoggerConfig converts the log section into logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.Log.Level,
		Development: c.Log.Development || c.IsDevelopment(),
		Encoding:    c.Log.Format,
		Fields:      map[string]any{"service": "adminnext", "env": c.App.Env},
	}
}

// DBConfig converts the database section into sqldb settings.
func (c *Config) DBConfig() sqldb.Config {
	cfg := sqldb.DefaultConfig(c.Database.Dialect, c.Database.DSN)
	cfg.MaxOpenConns = c.Database.MaxOpenConns
	cfg.MaxIdleConns = c.Database.MaxIdleConns
	cfg.ConnMaxLifetime = c.Database.ConnMaxLifetime
	cfg.ConnMaxIdleTime = c.Database.ConnMaxIdleTime
	return cfg
}
