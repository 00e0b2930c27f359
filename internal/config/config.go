package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/acme/dial-queue-engine/pkg/errors"
)

// BlendWeighted is the only implemented list selection algorithm.
const BlendWeighted = "weighted"

// Config captures the full configuration surface for the application.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Scylla    ScyllaConfig    `mapstructure:"scylla"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type ScyllaConfig struct {
	Hosts       []string      `mapstructure:"hosts"`
	Port        int           `mapstructure:"port"`
	Keyspace    string        `mapstructure:"keyspace"`
	Consistency string        `mapstructure:"consistency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	ClientID        string        `mapstructure:"client_id"`
	DialTopic       string        `mapstructure:"dial_topic"`
	OutcomeTopic    string        `mapstructure:"outcome_topic"`
	ConsumerGroupID string        `mapstructure:"consumer_group_id"`
	CommitInterval  time.Duration `mapstructure:"commit_interval"`
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type TelemetryConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	ServiceName     string        `mapstructure:"service_name"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	TracingEnabled  bool          `mapstructure:"tracing_enabled"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EngineConfig holds the dial queue engine tunables. It is read-only during a
// tick; a Stop/Start cycle picks up new values.
type EngineConfig struct {
	TickInterval        time.Duration `mapstructure:"tick_interval"`
	MaxQueueSize        int           `mapstructure:"max_queue_size"`
	ReplenishMultiplier int           `mapstructure:"replenish_multiplier"`
	StaleLockTimeout    time.Duration `mapstructure:"stale_lock_timeout"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	BlendAlgorithm      string        `mapstructure:"blend_algorithm"`
}

// Validate rejects configurations the engine must not start with.
func (c EngineConfig) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: engine tick_interval must be positive", apperrors.ErrValidation)
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("%w: engine max_queue_size must be positive", apperrors.ErrValidation)
	}
	if c.ReplenishMultiplier < 0 {
		return fmt.Errorf("%w: engine replenish_multiplier must not be negative", apperrors.ErrValidation)
	}
	if c.StaleLockTimeout <= 0 {
		return fmt.Errorf("%w: engine stale_lock_timeout must be positive", apperrors.ErrValidation)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: engine retry_delay must not be negative", apperrors.ErrValidation)
	}
	if c.BlendAlgorithm != "" && c.BlendAlgorithm != BlendWeighted {
		return fmt.Errorf("%w: unknown blend_algorithm %q", apperrors.ErrValidation, c.BlendAlgorithm)
	}
	return nil
}

// Multiplier returns the replenishment multiplier, defaulting to two queued
// contacts per free agent.
func (c EngineConfig) Multiplier() int {
	if c.ReplenishMultiplier == 0 {
		return 2
	}
	return c.ReplenishMultiplier
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("DIALQUEUE")
	v.SetEnvKeyReplacer(NewEnvReplacer())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// NewEnvReplacer standardizes environment variable names.
func NewEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}
