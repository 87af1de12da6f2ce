package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/charlesng35/classroom/internal/pairing"
)

// Config represents the runtime configuration for the classroom backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Pairing    PairingConfig    `mapstructure:"pairing"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	LogLevel  string     `mapstructure:"log_level"`
	LogFormat string     `mapstructure:"log_format"`
	CORS      CORSConfig `mapstructure:"cors"`
}

// CORSConfig controls cross-origin access for the browser clients.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PairingConfig configures the QR pairing handshake.
type PairingConfig struct {
	Window                 time.Duration `mapstructure:"window"`
	Shards                 int           `mapstructure:"shards"`
	AuthenticatedRetention time.Duration `mapstructure:"authenticated_retention"`
	SweepSchedule          string        `mapstructure:"sweep_schedule"`
	QR                     QRConfig      `mapstructure:"qr"`
}

// QRConfig controls how pairing tokens are rendered as QR codes.
type QRConfig struct {
	Size          int    `mapstructure:"size"`
	Recovery      string `mapstructure:"recovery"`
	ContentPrefix string `mapstructure:"content_prefix"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CLASSROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &config, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("server.port must be between 1 and 65535 (current: %d)", c.Server.Port))
	}
	if c.Pairing.Window <= 0 {
		errs = multierr.Append(errs, errors.New("pairing.window must be positive"))
	}
	if c.Pairing.Shards <= 0 {
		errs = multierr.Append(errs, errors.New("pairing.shards must be positive"))
	}
	if c.Pairing.AuthenticatedRetention < 0 {
		errs = multierr.Append(errs, errors.New("pairing.authenticated_retention must not be negative"))
	}
	if _, err := pairing.ParseRecoveryLevel(c.Pairing.QR.Recovery); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("pairing.qr.recovery: %w", err))
	}

	return errs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("pairing.window", "5m")
	v.SetDefault("pairing.shards", 32)
	v.SetDefault("pairing.authenticated_retention", "0s") // keep confirmed tokens until restart
	v.SetDefault("pairing.sweep_schedule", "@every 1m")
	v.SetDefault("pairing.qr.size", 256)
	v.SetDefault("pairing.qr.recovery", "medium")
	v.SetDefault("pairing.qr.content_prefix", "")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
