// Package config handles application configuration from flags, environment
// variables and an optional .env file
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. THEFTGUARD_PORT.
const EnvPrefix = "THEFTGUARD"

// Config holds all application configuration
type Config struct {
	// Server settings
	Port               int           `mapstructure:"port"`
	Env                string        `mapstructure:"env"` // "development", "production"
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"` // "json" or "console"
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	MaxUploadMB        int64         `mapstructure:"max_upload_mb"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`

	// Dashboard table: DatabaseURL wins over DashboardCSV when set
	DashboardCSV string `mapstructure:"dashboard_csv"`
	DatabaseURL  string `mapstructure:"database_url"`

	// Model artifacts
	ScalerPath string `mapstructure:"scaler_path"`
	ModelPath  string `mapstructure:"model_path"`
}

const (
	DefaultPort            = 8080
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultDashboardCSV    = "data/dashboard_data.csv"
	DefaultScalerPath      = "artifacts/scaler.gob"
	DefaultModelPath       = "artifacts/model.gob"
	DefaultMaxUploadMB     = 32
	DefaultShutdownTimeout = 10 * time.Second
)

// SetDefaults registers defaults and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("env", DefaultEnv)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("max_upload_mb", DefaultMaxUploadMB)
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("dashboard_csv", DefaultDashboardCSV)
	v.SetDefault("database_url", "")
	v.SetDefault("scaler_path", DefaultScalerPath)
	v.SetDefault("model_path", DefaultModelPath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from v, after loading .env if present (for local
// development).
func Load(v *viper.Viper) (*Config, error) {
	// Ignore error if .env is not present
	_ = godotenv.Load()

	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DashboardCSV == "" && c.DatabaseURL == "" {
		return fmt.Errorf("one of dashboard_csv or database_url is required")
	}
	if c.ScalerPath == "" {
		return fmt.Errorf("scaler_path is required")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model_path is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// AllowedOrigins splits the CORS origin list.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
