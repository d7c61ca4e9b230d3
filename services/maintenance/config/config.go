package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds typed configuration for the maintenance service.
type Config struct {
	LogLevel      string
	PostgresDSN   string
	RedisAddr     string
	KafkaBrokers  string
	JobTimeout    time.Duration
	TrendCron     string
	AnalyticsCron string
	GenAIBaseURL  string
	GenAIAPIKey   string
	GenAIModel    string
	GenAITimeout  time.Duration
	MetricsAddr   string
	OTelEndpoint  string
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:      v.GetString("log_level"),
		PostgresDSN:   v.GetString("postgres_dsn"),
		RedisAddr:     v.GetString("redis_addr"),
		KafkaBrokers:  v.GetString("kafka_brokers"),
		JobTimeout:    v.GetDuration("job_timeout"),
		TrendCron:     v.GetString("trend_cron"),
		AnalyticsCron: v.GetString("analytics_cron"),
		GenAIBaseURL:  v.GetString("genai_base_url"),
		GenAIAPIKey:   v.GetString("genai_api_key"),
		GenAIModel:    v.GetString("genai_model"),
		GenAITimeout:  v.GetDuration("genai_timeout"),
		MetricsAddr:   v.GetString("metrics_addr"),
		OTelEndpoint:  v.GetString("otel_endpoint"),
	}
}
