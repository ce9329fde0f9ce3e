package config

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Configuration errors
var (
	ErrCSRFKeyRequired = errors.New("csrf_key is required in production")
	ErrBadCSRFKey      = errors.New("csrf_key must be 64 hex characters (32 bytes)")
)

// Config holds all runtime configuration for the routines server and CLI.
// Values are populated from .routines.yaml, ROUTINES_* env vars, and CLI flags.
type Config struct {
	DBPath             string   `mapstructure:"db_path"`
	Addr               string   `mapstructure:"addr"`
	Env                string   `mapstructure:"env"`
	CSRFKey            string   `mapstructure:"csrf_key"`
	TrustedOrigins     []string `mapstructure:"trusted_origins"`
	SlowQueryMs        int      `mapstructure:"slow_query_ms"`
	SlowRequestMs      int      `mapstructure:"slow_request_ms"`
	RateLimitPerSecond int      `mapstructure:"rate_limit_per_second"`
	LogLevel           string   `mapstructure:"log_level"`
	PerfRingSize       int      `mapstructure:"perf_ring_size"`
}

// Init points viper at the config file (or .routines.yaml in the working and
// home directories) and the ROUTINES_ environment. A missing file is not an error.
func Init(configFile string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".routines")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("ROUTINES")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("db_path", "routines.db")
	viper.SetDefault("addr", ":8080")
	viper.SetDefault("env", "development")
	viper.SetDefault("csrf_key", "")
	viper.SetDefault("trusted_origins", []string{})
	viper.SetDefault("slow_query_ms", 50)
	viper.SetDefault("slow_request_ms", 200)
	viper.SetDefault("rate_limit_per_second", 10)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("perf_ring_size", 10000)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the server runs with production safeguards.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// CSRFKeyBytes decodes the CSRF secret. An empty key yields nil outside
// production so the caller can generate a per-process key.
func (c Config) CSRFKeyBytes() ([]byte, error) {
	if c.CSRFKey == "" {
		if c.IsProduction() {
			return nil, ErrCSRFKeyRequired
		}
		return nil, nil
	}
	key, err := hex.DecodeString(c.CSRFKey)
	if err != nil || len(key) != 32 {
		return nil, ErrBadCSRFKey
	}
	return key, nil
}

// SlogLevel maps log_level to a slog level; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
