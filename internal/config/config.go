package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings read from the environment.
// godotenv is loaded in main before Load is called.
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string

	// External dispatch platform
	ExternalAPIBaseURL   string
	ExternalAPIKey       string
	ExternalAPIKeyHeader string
	ExternalAPIVersion   string
	ExternalAPITimeout   time.Duration

	// Periodic tasks
	RefreshInterval      time.Duration // active bookings cache refresh
	LocationPollInterval time.Duration // pending ping drain

	// Bulk sync policy
	SyncMaxBatchSize   int
	SyncRetryAttempts  int
	SyncRetryBaseDelay time.Duration

	// Optional Firebase credentials for push notifications
	FirebaseCredentialsFile   string
	FirebaseCredentialsBase64 string
}

// Load reads settings from environment variables, applying defaults for
// everything except DATABASE_URL (validated by the caller).
func Load() Config {
	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   os.Getenv("APP_JWT_SECRET"),

		ExternalAPIBaseURL:   getEnv("EXTERNAL_API_BASE_URL", "https://external.api"),
		ExternalAPIKey:       os.Getenv("EXTERNAL_API_KEY"),
		ExternalAPIKeyHeader: getEnv("EXTERNAL_API_KEY_HEADER", "X-Api-Key"),
		ExternalAPIVersion:   getEnv("EXTERNAL_API_VERSION", "2024-01"),
		ExternalAPITimeout:   time.Duration(getEnvInt("EXTERNAL_API_TIMEOUT_SECONDS", 15)) * time.Second,

		RefreshInterval:      time.Duration(getEnvInt("ACTIVE_BOOKINGS_REFRESH_SECONDS", 300)) * time.Second,
		LocationPollInterval: time.Duration(getEnvInt("LOCATION_POLL_SECONDS", 15)) * time.Second,

		SyncMaxBatchSize:   getEnvInt("SYNC_MAX_BATCH_SIZE", 100),
		SyncRetryAttempts:  getEnvInt("SYNC_RETRY_ATTEMPTS", 3),
		SyncRetryBaseDelay: time.Duration(getEnvInt("SYNC_RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,

		FirebaseCredentialsFile:   os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		FirebaseCredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
	}

	if cfg.ExternalAPIKey == "" {
		log.Println("⚠️  EXTERNAL_API_KEY not set, external sync calls will be rejected with 401")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️  Invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
