package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the engine.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Delivery DeliveryConfig
	Scanner  ScannerConfig
	Billing  BillingConfig
	Queue    QueueConfig
	Channels ChannelConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// DeliveryConfig parameterizes the communication retry policy.
type DeliveryConfig struct {
	MaxRetries       int
	BaseDelayMinutes int
	MaxDelayMinutes  int
	RetryBatchSize   int
}

// ScannerConfig controls the periodic alert scanner.
type ScannerConfig struct {
	IntervalMinutes     int
	RiskBatchSize       int
	DeadlineCooldownHrs int
	AnomalyCooldownHrs  int
}

// BillingConfig controls the monthly invoice run.
type BillingConfig struct {
	LockTTLHours     int
	ChunkSize        int
	PenaltyDailyRate float64
	GraceDays        int
}

// QueueConfig bounds the durable job queue workers.
type QueueConfig struct {
	Concurrency        int
	MaxAttempts        int
	BaseBackoffSeconds int
	CompletedTTLHours  int
}

// ChannelConfig holds outbound provider endpoints.
type ChannelConfig struct {
	SMSEndpoint      string
	SMSAPIKey        string
	SMSFrom          string
	EmailEndpoint    string
	EmailFrom        string
	WhatsAppEndpoint string
	WhatsAppAPIKey   string
	LetterOutputDir  string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "notice-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Delivery: DeliveryConfig{
			MaxRetries:       getEnvAsInt("DELIVERY_MAX_RETRIES", 5),
			BaseDelayMinutes: getEnvAsInt("DELIVERY_BASE_DELAY_MINUTES", 1),
			MaxDelayMinutes:  getEnvAsInt("DELIVERY_MAX_DELAY_MINUTES", 1440),
			RetryBatchSize:   getEnvAsInt("DELIVERY_RETRY_BATCH_SIZE", 50),
		},
		Scanner: ScannerConfig{
			IntervalMinutes:     getEnvAsInt("SCANNER_INTERVAL_MINUTES", 60),
			RiskBatchSize:       getEnvAsInt("SCANNER_RISK_BATCH_SIZE", 50),
			DeadlineCooldownHrs: getEnvAsInt("SCANNER_DEADLINE_COOLDOWN_HOURS", 24),
			AnomalyCooldownHrs:  getEnvAsInt("SCANNER_ANOMALY_COOLDOWN_HOURS", 168),
		},
		Billing: BillingConfig{
			LockTTLHours:     getEnvAsInt("BILLING_LOCK_TTL_HOURS", 24),
			ChunkSize:        getEnvAsInt("BILLING_CHUNK_SIZE", 50),
			PenaltyDailyRate: getEnvAsFloat("BILLING_PENALTY_DAILY_RATE", 0.005),
			GraceDays:        getEnvAsInt("BILLING_PENALTY_GRACE_DAYS", 7),
		},
		Queue: QueueConfig{
			Concurrency:        getEnvAsInt("QUEUE_CONCURRENCY", 5),
			MaxAttempts:        getEnvAsInt("QUEUE_MAX_ATTEMPTS", 3),
			BaseBackoffSeconds: getEnvAsInt("QUEUE_BASE_BACKOFF_SECONDS", 1),
			CompletedTTLHours:  getEnvAsInt("QUEUE_COMPLETED_TTL_HOURS", 1),
		},
		Channels: ChannelConfig{
			SMSEndpoint:      getEnv("CHANNEL_SMS_ENDPOINT", ""),
			SMSAPIKey:        os.Getenv("CHANNEL_SMS_API_KEY"),
			SMSFrom:          getEnv("CHANNEL_SMS_FROM", ""),
			EmailEndpoint:    getEnv("CHANNEL_EMAIL_ENDPOINT", ""),
			EmailFrom:        getEnv("CHANNEL_EMAIL_FROM", "noreply@example.com"),
			WhatsAppEndpoint: getEnv("CHANNEL_WHATSAPP_ENDPOINT", ""),
			WhatsAppAPIKey:   os.Getenv("CHANNEL_WHATSAPP_API_KEY"),
			LetterOutputDir:  getEnv("CHANNEL_LETTER_OUTPUT_DIR", "./letters"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
