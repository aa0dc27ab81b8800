package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage backends selectable with STORAGE_BACKEND
const (
	BackendMemory     = "memory"
	BackendJSON       = "json"
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
)

// Config holds the application configuration
type Config struct {
	// Telegram front-end; the bot is disabled when the token is empty
	TelegramToken  string
	AllowedUserIDs []int64

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)

	Port     string
	LogLevel string
	UserName string

	StorageBackend    string
	StoragePath       string
	StorageQuotaBytes int
	DatabaseURL       string

	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	GoogleBooksAPIKey string

	// Optional YAML overlay
	ConfigFile      string
	Recommendations RecommendationFile
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		UserName: getEnv("USER_NAME", "Reader"),
	}

	// Telegram Bot Token (optional)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken != "" {
		// Allowed User IDs (required with a token)
		allowedIDsStr := os.Getenv("ALLOWED_USER_IDS")
		if allowedIDsStr == "" {
			return nil, fmt.Errorf("ALLOWED_USER_IDS is required when TELEGRAM_BOT_TOKEN is set (comma-separated list of Telegram user IDs)")
		}
		ids, err := parseUserIDs(allowedIDsStr)
		if err != nil {
			return nil, err
		}
		config.AllowedUserIDs = ids
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	if err := config.loadStorage(); err != nil {
		return nil, err
	}

	config.GoogleBooksAPIKey = os.Getenv("GOOGLE_BOOKS_API_KEY")

	config.ConfigFile = os.Getenv("CONFIG_FILE")
	if config.ConfigFile != "" {
		file, err := LoadFile(config.ConfigFile)
		if err != nil {
			return nil, err
		}
		config.Recommendations = file.Recommendations
	}

	return config, nil
}

func (config *Config) loadStorage() error {
	config.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", BackendJSON))

	if quota := os.Getenv("STORAGE_QUOTA_BYTES"); quota != "" {
		n, err := strconv.Atoi(quota)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid STORAGE_QUOTA_BYTES: %s", quota)
		}
		config.StorageQuotaBytes = n
	}

	switch config.StorageBackend {
	case BackendMemory:
	case BackendJSON:
		config.StoragePath = getEnv("STORAGE_PATH", "bookshelf.json")
	case BackendSQLite:
		config.StoragePath = getEnv("STORAGE_PATH", "bookshelf.db")
	case BackendPostgres:
		config.DatabaseURL = os.Getenv("DATABASE_URL")
		if config.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is postgres")
		}
	case BackendClickHouse:
		config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
		if config.ClickHouseHost == "" {
			return fmt.Errorf("CLICKHOUSE_HOST is required when STORAGE_BACKEND is clickhouse")
		}

		portStr := os.Getenv("CLICKHOUSE_PORT")
		if portStr == "" {
			config.ClickHousePort = 9000 // Default ClickHouse native port
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
			}
			config.ClickHousePort = port
		}

		config.ClickHouseDatabase = getEnv("CLICKHOUSE_DATABASE", "default")
		config.ClickHouseUser = getEnv("CLICKHOUSE_USER", "default")
		// Password is optional, can be empty
		config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
		config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %s", config.StorageBackend)
	}
	return nil
}

func parseUserIDs(s string) ([]int64, error) {
	var ids []int64
	for _, idStr := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in ALLOWED_USER_IDS: %s", idStr)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
