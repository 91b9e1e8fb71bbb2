package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DBConfig struct {
		DBHost     string `env:"STOREFRONT_DB_HOST"`
		DBPort     string `env:"STOREFRONT_DB_PORT"`
		DBUser     string `env:"STOREFRONT_DB_USER"`
		DBPassword string `env:"STOREFRONT_DB_PASSWORD"`
		DBName     string `env:"STOREFRONT_DB_NAME"`
		DBSSLMode  string `env:"STOREFRONT_DB_SSLMODE"`
	}

	HTTPPort      string `env:"HTTP_PORT"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	KafkaURL              string `env:"KAFKA_BROKER_URL"`
	KafkaFulfillmentTopic string `env:"KAFKA_FULFILLMENT_TOPIC"`
	KafkaConsumerGroup    string `env:"KAFKA_CONSUMER_GROUP"`

	PlatformFeeRate string `env:"PLATFORM_FEE_RATE"`
	Currency        string `env:"CURRENCY"`

	ProviderTimeout time.Duration `env:"PROVIDER_HTTP_TIMEOUT"`

	SMTPConfig struct {
		Host     string `env:"SMTP_HOST"`
		Port     int    `env:"SMTP_PORT"`
		User     string `env:"SMTP_USER"`
		Password string `env:"SMTP_PASSWORD"`
		From     string `env:"SMTP_FROM"`
	}

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL"`
	OutboxPollTimeout  time.Duration `env:"OUTBOX_POLL_TIMEOUT"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.DBConfig.DBHost = getEnvOrDefault("STOREFRONT_DB_HOST", "localhost")
	cfg.DBConfig.DBPort = getEnvOrDefault("STOREFRONT_DB_PORT", "5432")
	cfg.DBConfig.DBUser = getEnvOrDefault("STOREFRONT_DB_USER", "postgres")
	cfg.DBConfig.DBPassword = getEnvOrDefault("STOREFRONT_DB_PASSWORD", "postgres")
	cfg.DBConfig.DBName = getEnvOrDefault("STOREFRONT_DB_NAME", "storefront_db")
	cfg.DBConfig.DBSSLMode = getEnvOrDefault("STOREFRONT_DB_SSLMODE", "disable")

	cfg.HTTPPort = getEnvOrDefault("HTTP_PORT", "8080")
	cfg.PublicBaseURL = getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	cfg.KafkaURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaFulfillmentTopic = getEnvOrDefault("KAFKA_FULFILLMENT_TOPIC", "order_fulfillment")
	cfg.KafkaConsumerGroup = getEnvOrDefault("KAFKA_CONSUMER_GROUP", "storefront-fulfillment-group")

	cfg.PlatformFeeRate = getEnvOrDefault("PLATFORM_FEE_RATE", "0.10")
	cfg.Currency = getEnvOrDefault("CURRENCY", "USD")

	providerTimeoutStr := getEnvOrDefault("PROVIDER_HTTP_TIMEOUT", "15s")
	providerTimeout, err := time.ParseDuration(providerTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_HTTP_TIMEOUT: %w", err)
	}
	cfg.ProviderTimeout = providerTimeout

	cfg.SMTPConfig.Host = getEnvOrDefault("SMTP_HOST", "localhost")
	smtpPortStr := getEnvOrDefault("SMTP_PORT", "587")
	if _, err := fmt.Sscanf(smtpPortStr, "%d", &cfg.SMTPConfig.Port); err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	cfg.SMTPConfig.User = getEnvOrDefault("SMTP_USER", "")
	cfg.SMTPConfig.Password = getEnvOrDefault("SMTP_PASSWORD", "")
	cfg.SMTPConfig.From = getEnvOrDefault("SMTP_FROM", "noreply@storefront.local")

	outboxPollIntervalStr := getEnvOrDefault("OUTBOX_POLL_INTERVAL", "5s")
	interval, err := time.ParseDuration(outboxPollIntervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_POLL_INTERVAL: %w", err)
	}
	cfg.OutboxPollInterval = interval

	outboxPollTimeoutStr := getEnvOrDefault("OUTBOX_POLL_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(outboxPollTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_POLL_TIMEOUT: %w", err)
	}
	cfg.OutboxPollTimeout = timeout

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.DBHost, c.DBConfig.DBPort, c.DBConfig.DBUser, c.DBConfig.DBPassword, c.DBConfig.DBName, c.DBConfig.DBSSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("%s:%s@%s:%s/%s?sslmode=%s",
		c.DBConfig.DBUser, c.DBConfig.DBPassword, c.DBConfig.DBHost, c.DBConfig.DBPort, c.DBConfig.DBName, c.DBConfig.DBSSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return []string{c.KafkaURL}
}
