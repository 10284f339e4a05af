// Package config loads arena settings from defaults, an optional file and
// RPS_* environment variables.
package config

import (
	"ctchen222/rps-arena/internal/listener"
	"ctchen222/rps-arena/internal/player"
	"ctchen222/rps-arena/internal/validator"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "RPS"

// Config is the complete arena configuration.
type Config struct {
	Listen    ListenConfig    `mapstructure:"listen"`
	Conn      ConnConfig      `mapstructure:"conn"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// ListenConfig controls the bot listener.
type ListenConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required,listenaddr"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	// QueueSize is the capacity of the hand-off and diagnostic channels.
	QueueSize int `mapstructure:"queue_size" validate:"gte=1"`
}

// ConnConfig holds the per-connection deadlines.
type ConnConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" validate:"gt=0"`
	// Timeout of zero disables deadlines on battle I/O.
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
	DrainGrace time.Duration `mapstructure:"drain_grace" validate:"gt=0"`
}

// AdminConfig controls the operator HTTP API. An empty address disables it.
type AdminConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,listenaddr"`
}

// RedisConfig controls event publishing. An empty address disables it.
type RedisConfig struct {
	Addr    string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Channel string `mapstructure:"channel" validate:"required"`
}

// TelemetryConfig controls OpenTelemetry export. An empty endpoint keeps
// telemetry in-process.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint" validate:"omitempty,hostname_port"`
	ServiceName  string `mapstructure:"service_name" validate:"required"`
	Stdout       bool   `mapstructure:"stdout"`
}

// LogConfig controls the console logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Addr:         listener.DefaultAddr,
			PollInterval: listener.DefaultPollInterval,
			QueueSize:    16,
		},
		Conn: ConnConfig{
			HandshakeTimeout: player.DefaultHandshakeTimeout,
			Timeout:          player.DefaultTimeout,
			DrainGrace:       player.DefaultDrainGrace,
		},
		Admin: AdminConfig{
			Addr: ":8080",
		},
		Redis: RedisConfig{
			Channel: "channel:rps:events",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "rps-arena",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key with its default value on v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("listen.addr", defaults.Listen.Addr)
	v.SetDefault("listen.poll_interval", defaults.Listen.PollInterval)
	v.SetDefault("listen.queue_size", defaults.Listen.QueueSize)

	v.SetDefault("conn.handshake_timeout", defaults.Conn.HandshakeTimeout)
	v.SetDefault("conn.timeout", defaults.Conn.Timeout)
	v.SetDefault("conn.drain_grace", defaults.Conn.DrainGrace)

	v.SetDefault("admin.addr", defaults.Admin.Addr)

	v.SetDefault("redis.addr", defaults.Redis.Addr)
	v.SetDefault("redis.channel", defaults.Redis.Channel)

	v.SetDefault("telemetry.otlp_endpoint", defaults.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.service_name", defaults.Telemetry.ServiceName)
	v.SetDefault("telemetry.stdout", defaults.Telemetry.Stdout)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
}

// New returns a viper instance with defaults and RPS_ environment binding,
// e.g. RPS_LISTEN_ADDR for listen.addr.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads file when it is set, then decodes and validates v.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.GetValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// PlayerOptions returns the connection deadlines.
func (c *Config) PlayerOptions() player.Options {
	return player.Options{
		HandshakeTimeout: c.Conn.HandshakeTimeout,
		Timeout:          c.Conn.Timeout,
		DrainGrace:       c.Conn.DrainGrace,
	}
}

// ListenerConfig returns the settings for listener.Start.
func (c *Config) ListenerConfig() listener.Config {
	return listener.Config{
		Addr:         c.Listen.Addr,
		PollInterval: c.Listen.PollInterval,
		Player:       c.PlayerOptions(),
	}
}

// SlogLevel maps the configured level name.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
