package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageInMemory = "in-memory"
)

type Config struct {
	Env             string        `mapstructure:"ANIMEBLOG_ENV"`
	HTTPAddr        string        `mapstructure:"ANIMEBLOG_HTTP_ADDR"`
	ShutdownTimeout time.Duration `mapstructure:"ANIMEBLOG_SHUTDOWN_TIMEOUT"`

	Database DBConfig       `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type DBConfig struct {
	Storage     string `mapstructure:"ANIMEBLOG_STORAGE"`
	SQLitePath  string `mapstructure:"ANIMEBLOG_SQLITE_PATH"`
	PostgresDSN string `mapstructure:"ANIMEBLOG_POSTGRES_DSN"`
}

type SecurityConfig struct {
	CORSAllowedOrigins []string `mapstructure:"ANIMEBLOG_CORS_ALLOWED_ORIGINS"`
	RateLimitRPM       int      `mapstructure:"ANIMEBLOG_RATE_LIMIT_RPM"`
}

// flagKeys maps command-line flags to the settings they override.
var flagKeys = map[string]string{
	"storage":     "ANIMEBLOG_STORAGE",
	"addr":        "ANIMEBLOG_HTTP_ADDR",
	"sqlite-path": "ANIMEBLOG_SQLITE_PATH",
}

// Load reads settings from .env, the environment, and flags, in rising precedence.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = gotenv.Load(".env") // variables already set win
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ANIMEBLOG_ENV", "dev")
	v.SetDefault("ANIMEBLOG_HTTP_ADDR", ":5000")
	v.SetDefault("ANIMEBLOG_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("ANIMEBLOG_STORAGE", StorageSQLite)
	v.SetDefault("ANIMEBLOG_SQLITE_PATH", "app.sqlite")
	v.SetDefault("ANIMEBLOG_POSTGRES_DSN", "")
	v.SetDefault("ANIMEBLOG_CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("ANIMEBLOG_RATE_LIMIT_RPM", 0)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if origins := v.GetString("ANIMEBLOG_CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("ANIMEBLOG_CORS_ALLOWED_ORIGINS", splitList(origins))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid ANIMEBLOG_ENV %q (must be dev or prod)", c.Env)
	}

	switch c.Database.Storage {
	case StorageSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("ANIMEBLOG_SQLITE_PATH is required for sqlite storage")
		}
	case StoragePostgres:
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("ANIMEBLOG_POSTGRES_DSN is required for postgres storage")
		}
	case StorageInMemory:
	default:
		return fmt.Errorf("invalid ANIMEBLOG_STORAGE %q (must be sqlite, postgres, or in-memory)", c.Database.Storage)
	}

	if c.Security.RateLimitRPM < 0 {
		return fmt.Errorf("ANIMEBLOG_RATE_LIMIT_RPM must not be negative")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}
