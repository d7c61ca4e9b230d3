package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds typed configuration for the dispatcher service.
type Config struct {
	LogLevel          string
	PostgresDSN       string
	RedisAddr         string
	KafkaBrokers      string
	PollInterval      time.Duration
	BatchSize         int
	PublishTimeout    time.Duration
	PublishRateLimit  int
	PublishRateWindow time.Duration
	PlatformEndpoints map[string]string
	MetricsAddr       string
	OTelEndpoint      string
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:          v.GetString("log_level"),
		PostgresDSN:       v.GetString("postgres_dsn"),
		RedisAddr:         v.GetString("redis_addr"),
		KafkaBrokers:      v.GetString("kafka_brokers"),
		PollInterval:      v.GetDuration("poll_interval"),
		BatchSize:         v.GetInt("batch_size"),
		PublishTimeout:    v.GetDuration("publish_timeout"),
		PublishRateLimit:  v.GetInt("publish_rate_limit"),
		PublishRateWindow: v.GetDuration("publish_rate_window"),
		PlatformEndpoints: v.GetStringMapString("platform_endpoints"),
		MetricsAddr:       v.GetString("metrics_addr"),
		OTelEndpoint:      v.GetString("otel_endpoint"),
	}
}
