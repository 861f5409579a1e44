package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Carrier CarrierConfig `yaml:"carrier" mapstructure:"carrier"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// CarrierConfig configures the upstream tracking service client.
type CarrierConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-request timeout.
func (c CarrierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// BatchConfig configures batch runs.
type BatchConfig struct {
	DelayMS       int  `yaml:"delay_ms" mapstructure:"delay_ms"`
	AbortInFlight bool `yaml:"abort_in_flight" mapstructure:"abort_in_flight"`
}

// Delay returns the pause between consecutive lookups.
func (c BatchConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port                 int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins       []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	PresenceIntervalSecs int      `yaml:"presence_interval_secs" mapstructure:"presence_interval_secs"`
	ProxyEnabled         bool     `yaml:"proxy_enabled" mapstructure:"proxy_enabled"`
}

// PresenceInterval returns how often the active user count is pushed.
func (c ServerConfig) PresenceInterval() time.Duration {
	return time.Duration(c.PresenceIntervalSecs) * time.Second
}

// ExportConfig configures spreadsheet export.
type ExportConfig struct {
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// MetricsConfig configures prometheus collectors.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("carrier.base_url", "https://excel-api-0x2r.onrender.com")
	v.SetDefault("carrier.timeout_secs", 30)
	v.SetDefault("carrier.rate_per_sec", 5)
	v.SetDefault("carrier.user_agent", "track-cli/1.0")
	v.SetDefault("batch.delay_ms", 200)
	v.SetDefault("batch.abort_in_flight", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.presence_interval_secs", 5)
	v.SetDefault("server.proxy_enabled", true)
	v.SetDefault("export.sheet_name", "Tracking")
	v.SetDefault("metrics.namespace", "track")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a given command depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Carrier.BaseURL == "" {
		errs = append(errs, "carrier.base_url is required")
	}
	if c.Carrier.TimeoutSecs <= 0 {
		errs = append(errs, "carrier.timeout_secs must be > 0")
	}
	if c.Carrier.RatePerSec < 0 {
		errs = append(errs, "carrier.rate_per_sec must be >= 0")
	}
	if c.Batch.DelayMS < 0 {
		errs = append(errs, "batch.delay_ms must be >= 0")
	}

	switch mode {
	case "track":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.PresenceIntervalSecs <= 0 {
			errs = append(errs, "server.presence_interval_secs must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
