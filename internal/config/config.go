package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/danielpatrickdp/choice-experiment/internal/gate"
	"github.com/danielpatrickdp/choice-experiment/internal/protocol"
)

// Prefix is prepended to every environment variable name.
const Prefix = "EXPERIMENT_"

// #region config
// Config is the runtime configuration shared by every command.
type Config struct {
	Protocol string `env:"PROTOCOL" envDefault:"staircase"`
	Lang     string `env:"LANG" envDefault:"ko"`
	DB       string `env:"DB" envDefault:"experiment.db"`
	Catalog  string `env:"CATALOG"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":50051"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ResubmitMaxTries        uint          `env:"RESUBMIT_MAX_TRIES" envDefault:"5"`
	ResubmitInitialInterval time.Duration `env:"RESUBMIT_INITIAL_INTERVAL" envDefault:"500ms"`
	ResubmitMaxInterval     time.Duration `env:"RESUBMIT_MAX_INTERVAL" envDefault:"10s"`

	// Finished sessions are dropped from memory this long after submission; 0 keeps them.
	SessionRetention time.Duration `env:"SESSION_RETENTION" envDefault:"1h"`
}

// #endregion config

// #region load
// Load reads EXPERIMENT_* variables and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env parsing cannot.
func (c Config) Validate() error {
	switch protocol.Name(c.Protocol) {
	case protocol.NameFixed, protocol.NameStaircase:
	default:
		return fmt.Errorf("config: %w: %q", protocol.ErrUnknownProtocol, c.Protocol)
	}
	if strings.TrimSpace(c.DB) == "" {
		return fmt.Errorf("config: DB path is empty")
	}
	if c.ResubmitMaxTries == 0 {
		return fmt.Errorf("config: RESUBMIT_MAX_TRIES must be at least 1")
	}
	if c.SessionRetention < 0 {
		return fmt.Errorf("config: SESSION_RETENTION must not be negative")
	}
	return nil
}

// ProtocolName returns the configured protocol.
func (c Config) ProtocolName() protocol.Name {
	return protocol.Name(c.Protocol)
}

// Resubmit returns the backoff settings for draining the spool.
func (c Config) Resubmit() gate.ResubmitConfig {
	return gate.ResubmitConfig{
		MaxTries:        c.ResubmitMaxTries,
		InitialInterval: c.ResubmitInitialInterval,
		MaxInterval:     c.ResubmitMaxInterval,
	}
}

// #endregion load
