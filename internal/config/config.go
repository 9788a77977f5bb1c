package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PGDSN              string
	MongoURI           string
	RedisAddr          string
	RabbitURL          string
	JWTSecret          string
	GatewayBaseURL     string
	GatewaySecret      string
	GatewayCallbackURL string
	GatewayReturnURL   string
	GatewayTimeout     time.Duration
	GatewayRetries     int
	ReserveRetries     int
	Currency           string
	OTLPEndpoint       string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	gatewayTimeout, _ := time.ParseDuration(os.Getenv("GATEWAY_TIMEOUT"))
	if gatewayTimeout == 0 {
		gatewayTimeout = 10 * time.Second
	}

	currency := os.Getenv("CURRENCY")
	if currency == "" {
		currency = "ETB"
	}

	return &Config{
		PGDSN:              os.Getenv("PG_DSN"),
		MongoURI:           os.Getenv("MONGO_URI"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RabbitURL:          os.Getenv("RABBIT_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GatewayBaseURL:     os.Getenv("GATEWAY_BASE_URL"),
		GatewaySecret:      os.Getenv("GATEWAY_SECRET"),
		GatewayCallbackURL: os.Getenv("GATEWAY_CALLBACK_URL"),
		GatewayReturnURL:   os.Getenv("GATEWAY_RETURN_URL"),
		GatewayTimeout:     gatewayTimeout,
		GatewayRetries:     intEnv("GATEWAY_RETRIES", 3),
		ReserveRetries:     intEnv("RESERVE_RETRIES", 3),
		Currency:           currency,
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

func intEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
