package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Elasticsearch ElasticsearchConfig
	LLM           LLMConfig
	Auth          AuthConfig
	Redis         RedisConfig
	Enrichment    EnrichmentConfig
	Feedback      FeedbackConfig
	RateLimit     RateLimitConfig
	Logging       LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type ElasticsearchConfig struct {
	Addresses        []string
	CloudID          string
	APIKey           string
	Username         string
	Password         string
	Index            string
	ChatHistoryIndex string
	MaxRetries       int
	TimeoutSec       int
}

type LLMConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type AuthConfig struct {
	Secret   string
	Username string
	Password string
	TokenTTL int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLHours int
}

type EnrichmentConfig struct {
	MaxWorkers     int
	WaitTimeoutSec int
}

type FeedbackConfig struct {
	AnalyticsURL string
	TimeoutSec   int
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/docuchat")

	viper.SetEnvPrefix("DOCUCHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 300)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	viper.SetDefault("elasticsearch.index", "search-internal")
	viper.SetDefault("elasticsearch.chatHistoryIndex", "search-internal-chat-history")
	viper.SetDefault("elasticsearch.maxRetries", 3)
	viper.SetDefault("elasticsearch.timeoutSec", 30)

	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.timeoutSec", 60)

	viper.SetDefault("auth.tokenTTL", 24)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlHours", 720)

	viper.SetDefault("enrichment.maxWorkers", 5)
	viper.SetDefault("enrichment.waitTimeoutSec", 30)

	viper.SetDefault("feedback.timeoutSec", 5)

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
