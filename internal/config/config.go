package config

import (
	"os"
	"strconv"
	"time"
)

// Directory backends selectable with DIRECTORY_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
	BackendLocalFS  = "localfs"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	TablePrefix string
	// Directory service
	DirectoryBackend string // postgres | remote | localfs
	DirectoryURL     string // Base URL of a remote directory API
	LocalRoot        string // Root directory for the localfs backend
	// Explorer behaviour
	ExplorerConfigPath string
	UploadMaxBytes     int64 // 0 = explorer config or DefaultMaxUploadBytes
	UploadMaxBatch     int64 // Body limit of one explorer upload request
	UploadConcurrency  int
	HistoryLimit       int
	SessionIdleTimeout time.Duration
	// Logging
	LogDir      string
	LogMaxFiles int
	// Debug flags
	Debug bool // Enables debug-level logging
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: tablePrefix,
		// Directory service
		DirectoryBackend: getEnv("DIRECTORY_BACKEND", BackendLocalFS),
		DirectoryURL:     getEnv("DIRECTORY_URL", ""),
		LocalRoot:        getEnv("LOCAL_ROOT", "./portfolios"),
		// Explorer behaviour
		ExplorerConfigPath: getEnv("EXPLORER_CONFIG", ""),
		UploadMaxBytes:     getEnvInt64("UPLOAD_MAX_BYTES", 0),
		UploadMaxBatch:     getEnvInt64("UPLOAD_MAX_BATCH_BYTES", DefaultMaxUploadBatchBytes),
		UploadConcurrency:  int(getEnvInt64("UPLOAD_CONCURRENCY", DefaultUploadConcurrency)),
		HistoryLimit:       int(getEnvInt64("HISTORY_LIMIT", DefaultHistoryLimit)),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", DefaultSessionIdleTimeout),
		// Logging
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: int(getEnvInt64("LOG_MAX_FILES", DefaultLogMaxFiles)),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	// Auto-generate based on environment
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	case "dev":
		return "dev_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt64 falls back to the default when the variable is unset or not a number.
func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
