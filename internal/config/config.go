// Package config loads process configuration for cmd/engineserver via
// github.com/spf13/viper, reading an optional YAML file plus environment
// variable overrides. Grounded on
// None9527-NGOClaw/gateway/internal/infrastructure/config's viper setup
// (SetDefault table, SetConfigType("yaml"), SetEnvPrefix+AutomaticEnv
// layering), narrowed to this engine's own settings surface.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root process configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Channels ChannelsConfig `mapstructure:"channels"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the control-plane HTTP API.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig configures the Postgres relational store.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// MongoConfig configures the conversation transcript store.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// QueueConfig configures the dispatcher's task queue.
type QueueConfig struct {
	Backend    string `mapstructure:"backend"` // "inmem" or "nats"
	NATSURL    string `mapstructure:"nats_url"`
	Subject    string `mapstructure:"subject"`
	QueueGroup string `mapstructure:"queue_group"`
}

// TemporalConfig configures the Temporal engine adapter.
type TemporalConfig struct {
	Backend   string `mapstructure:"backend"` // "inmem" or "temporal"
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// RedisConfig configures the arbitration lock backend.
type RedisConfig struct {
	Backend string `mapstructure:"backend"` // "inmem" or "redis"
	Addr    string `mapstructure:"addr"`
}

// LLMConfig configures the Gateway's provider chain and rate limit.
type LLMConfig struct {
	OpenAIAPIKey      string        `mapstructure:"openai_api_key"`
	OpenAIModel       string        `mapstructure:"openai_model"`
	AnthropicAPIKey   string        `mapstructure:"anthropic_api_key"`
	AnthropicModel    string        `mapstructure:"anthropic_model"`
	RateLimitRPS      float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst    int           `mapstructure:"rate_limit_burst"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

// ChannelsConfig configures inbound channel webhook verification.
type ChannelsConfig struct {
	WhatsAppVerifyToken string `mapstructure:"whatsapp_verify_token"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load reads configuration from an optional YAML file plus
// WORKFLOW_ENGINE_-prefixed environment variables, environment taking
// precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix("WORKFLOW_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.dsn", "postgres://localhost:5432/workflow_engine?sslmode=disable")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "workflow_engine")

	v.SetDefault("queue.backend", "inmem")
	v.SetDefault("queue.subject", "workflow-engine.tasks")
	v.SetDefault("queue.queue_group", "workflow-engine-workers")

	v.SetDefault("temporal.backend", "inmem")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "workflow-engine")

	v.SetDefault("redis.backend", "inmem")
	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("llm.rate_limit_rps", 5.0)
	v.SetDefault("llm.rate_limit_burst", 10)
	v.SetDefault("llm.request_timeout", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
