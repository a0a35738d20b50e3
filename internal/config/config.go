package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Google Sheets availability ledger
	SheetsSpreadsheetID   string
	SheetsCredentialsFile string
	SheetsScheduleRange   string
	SheetsTimeout         time.Duration

	// Slot quantization
	SlotUnitMinutes int

	// AWS (reminder queue, transcript bucket, Bedrock resolver)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ReminderQueueURL    string
	TranscriptBucket    string
	BedrockModelID      string

	// External-sync retry loop
	SyncRetryInterval  time.Duration
	SyncRetryBatchSize int

	AdminJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		SheetsSpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsFile: getEnv("SHEETS_CREDENTIALS_FILE", ""),
		SheetsScheduleRange:   getEnv("SHEETS_SCHEDULE_RANGE", "Schedule"),
		SheetsTimeout:         getEnvAsDuration("SHEETS_TIMEOUT", 20*time.Second),

		SlotUnitMinutes: getEnvAsInt("SLOT_UNIT_MINUTES", 30),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ReminderQueueURL:    getEnv("REMINDER_QUEUE_URL", ""),
		TranscriptBucket:    getEnv("TRANSCRIPT_BUCKET", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),

		SyncRetryInterval:  getEnvAsDuration("SYNC_RETRY_INTERVAL", 30*time.Second),
		SyncRetryBatchSize: getEnvAsInt("SYNC_RETRY_BATCH_SIZE", 25),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
