// Package config loads the copilot configuration file and applies
// environment overrides. Poll intervals and budgets live here so no call
// site hardcodes them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fieldpulse/copilot/internal/agents"
	"github.com/fieldpulse/copilot/internal/dataaccess"
	"github.com/fieldpulse/copilot/internal/reasoning"
	"github.com/fieldpulse/copilot/internal/session"
	"github.com/fieldpulse/copilot/internal/transcript"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AdminPort       int           `mapstructure:"admin_port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RoutingConfig holds supervisor tunables.
type RoutingConfig struct {
	// ClassifyTimeout bounds the intent-classification call.
	ClassifyTimeout time.Duration `mapstructure:"classify_timeout"`
	// AgentRate caps capability invocations per second within a request;
	// zero disables the limiter.
	AgentRate float64 `mapstructure:"agent_rate"`
	// CatalogPath optionally overrides the built-in capability catalog.
	CatalogPath string `mapstructure:"catalog_path"`
}

// LoggingConfig mirrors the observability block of the config file.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Config is the full process configuration.
type Config struct {
	Server     ServerConfig                    `mapstructure:"server"`
	Logging    LoggingConfig                   `mapstructure:"logging"`
	Tracing    TracingConfig                   `mapstructure:"tracing"`
	Routing    RoutingConfig                   `mapstructure:"routing"`
	Reasoning  reasoning.Config                `mapstructure:"reasoning"`
	Analytical dataaccess.PostgresConfig       `mapstructure:"analytical"`
	Transcribe dataaccess.HTTPTranscribeConfig `mapstructure:"transcribe"`
	Transcript transcript.Config               `mapstructure:"transcript"`
	AgentHTTP  agents.HTTPConfig               `mapstructure:"agent_runtime"`
	Session    session.Config                  `mapstructure:"session"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.admin_port", 9090)
	v.SetDefault("server.request_timeout", 25*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("routing.classify_timeout", 30*time.Second)
	v.SetDefault("routing.agent_rate", 2.0)
	v.SetDefault("reasoning.provider", "anthropic")
	v.SetDefault("transcript.query_poll.interval", 500*time.Millisecond)
	v.SetDefault("transcript.query_poll.max_budget", 30*time.Second)
	v.SetDefault("transcript.job_poll.interval", 5*time.Second)
	v.SetDefault("transcript.job_poll.max_budget", 20*time.Minute)
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.ttl", 24*time.Hour)
}

// Load reads the config file from path, or from COPILOT_CONFIG when path
// is empty, falling back to config/copilot.yaml. COPILOT_* environment
// variables override file values (e.g. COPILOT_SERVER_PORT).
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("COPILOT_CONFIG")
	}
	if path == "" {
		path = "config/copilot.yaml"
	}

	v := viper.New()
	defaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("COPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Missing file is fine: defaults plus env cover local runs.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Transcript.QueryPoll.Validate(); err != nil {
		return nil, fmt.Errorf("transcript.query_poll: %w", err)
	}
	if err := cfg.Transcript.JobPoll.Validate(); err != nil {
		return nil, fmt.Errorf("transcript.job_poll: %w", err)
	}
	return &cfg, nil
}
