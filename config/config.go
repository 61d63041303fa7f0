package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisURL string

	KafkaBrokers    string
	OrderEventTopic string

	PaymentSNSTopicARN string

	StripeSecretKey  string
	StripeWebhookKey string

	// Storefront hosts a completion redirect URL may point at.
	AllowedRedirectHosts []string
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine; containers inject the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		PostgresUser:       os.Getenv("POSTGRES_USER"),
		PostgresPassword:   os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:         os.Getenv("POSTGRES_DB"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:    getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:   getEnv("POSTGRES_TIMEZONE", "UTC"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		KafkaBrokers:       getEnv("KAFKA_BROKERS", "localhost:9092"),
		OrderEventTopic:    getEnv("ORDER_EVENT_TOPIC", "order.events"),
		PaymentSNSTopicARN: getEnv("PAYMENT_SNS_TOPIC_ARN", "arn:aws:sns:eu-west-2:000000000000:payment-events"),
		StripeSecretKey:    os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}

	for _, host := range strings.Split(getEnv("ALLOWED_REDIRECT_HOSTS", "localhost"), ",") {
		if trimmed := strings.TrimSpace(host); trimmed != "" {
			cfg.AllowedRedirectHosts = append(cfg.AllowedRedirectHosts, trimmed)
		}
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" ||
		cfg.StripeSecretKey == "" || cfg.StripeWebhookKey == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
