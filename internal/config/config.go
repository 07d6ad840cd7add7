package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	SessionBackendFile   = "file"
	SessionBackendSQLite = "sqlite"
)

// Config holds application configuration.
type Config struct {
	APIURL            string
	DataDir           string
	SessionBackend    string
	LogLevel          string
	Timeout           time.Duration
	DefaultPeriod     int
	DefaultInvestment decimal.Decimal
	MetricsFile       string
	UserAgent         string
}

// Overrides are CLI flag values; empty fields leave the loaded value alone.
type Overrides struct {
	APIURL   string
	DataDir  string
	LogLevel string
}

// Load reads configuration from environment variables (and optional .env file)
// and an optional stratlab.yaml. CLI flag values override both.
func Load(flags Overrides) (*Config, error) {
	// Load .env file if it exists (ignoring errors if missing)
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("STRATLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", "http://localhost:8000")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("session_backend", SessionBackendFile)
	v.SetDefault("log_level", "info")
	v.SetDefault("timeout", "2m")
	v.SetDefault("default_period", 3)
	v.SetDefault("default_investment", "1000000")
	v.SetDefault("metrics_file", "")

	v.SetConfigName("stratlab")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "stratlab"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return fromViper(v, flags)
}

func fromViper(v *viper.Viper, flags Overrides) (*Config, error) {
	cfg := &Config{
		APIURL:         strings.TrimRight(v.GetString("api_url"), "/"),
		DataDir:        v.GetString("data_dir"),
		SessionBackend: strings.ToLower(v.GetString("session_backend")),
		LogLevel:       v.GetString("log_level"),
		Timeout:        v.GetDuration("timeout"),
		DefaultPeriod:  v.GetInt("default_period"),
		MetricsFile:    v.GetString("metrics_file"),
		UserAgent:      "stratlab-cli (https://github.com/jefrnc/stratlab)",
	}

	// CLI flags override env vars
	if flags.APIURL != "" {
		cfg.APIURL = strings.TrimRight(flags.APIURL, "/")
	}
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}

	inv, err := decimal.NewFromString(v.GetString("default_investment"))
	if err != nil {
		return nil, fmt.Errorf("invalid default_investment %q: %w", v.GetString("default_investment"), err)
	}
	cfg.DefaultInvestment = inv

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("api url required: set --api-url or STRATLAB_API_URL in .env")
	}
	if cfg.SessionBackend != SessionBackendFile && cfg.SessionBackend != SessionBackendSQLite {
		return nil, fmt.Errorf("unknown session backend %q (use %q or %q)", cfg.SessionBackend, SessionBackendFile, SessionBackendSQLite)
	}
	if cfg.DefaultPeriod < 1 || cfg.DefaultPeriod > 10 {
		return nil, fmt.Errorf("default_period must be between 1 and 10, got %d", cfg.DefaultPeriod)
	}

	return cfg, nil
}
