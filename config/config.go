package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis (HSS) configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration (realtime seat-state broadcast)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Reservation core timing
	HoldDuration       time.Duration // LOCKED entry TTL
	ReceiptRetention   time.Duration // receipt:* key TTL
	OTPTTL             time.Duration // otp:* key TTL
	DRSTxTimeout       time.Duration // timeout of the context Purchase passes to its DRS step; RunInTransaction takes no context, so the transaction does not observe it
	ReconcileInterval  time.Duration // background DRS/HSS reconciliation sweep

	// Rate limiting
	HoldBucketCapacity int
	HoldBucketWindow    time.Duration
	AuthBucketCapacity  int
	AuthBucketWindow    time.Duration

	// Auth
	JWTSecret   string
	JWTTokenTTL time.Duration
	BcryptCost  int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Reservation core timing
		HoldDuration:      getEnvAsDuration("HOLD_DURATION", "300s"),
		ReceiptRetention:  getEnvAsDuration("RECEIPT_RETENTION", "24h"),
		OTPTTL:            getEnvAsDuration("OTP_TTL", "300s"),
		DRSTxTimeout:      getEnvAsDuration("DRS_TX_TIMEOUT", "5s"),
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", "30s"),

		// Rate limiting
		HoldBucketCapacity: getEnvAsInt("HOLD_BUCKET_CAPACITY", 10),
		HoldBucketWindow:   getEnvAsDuration("HOLD_BUCKET_WINDOW", "1s"),
		AuthBucketCapacity: getEnvAsInt("AUTH_BUCKET_CAPACITY", 50),
		AuthBucketWindow:   getEnvAsDuration("AUTH_BUCKET_WINDOW", "15m"),

		// Auth
		JWTSecret:   getEnv("JWT_SECRET", "dev-only-secret-change-me"),
		JWTTokenTTL: getEnvAsDuration("JWT_TOKEN_TTL", "168h"),
		BcryptCost:  getEnvAsInt("BCRYPT_COST", 10),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
