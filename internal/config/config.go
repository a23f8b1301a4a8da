package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var DefaultEnvConfig *envConfig

type envConfig struct {
	// app config
	APP_PORT string
	// logger config
	LOG_FILE_PATH string
	LOG_LEVEL     string
	// report config
	REPORT_TEMPLATE_DIR  string
	REPORT_FETCH_WORKERS int
	REPORT_FETCH_RETRIES int
	REPORT_FETCH_BACKOFF time.Duration
	// database config
	DB_ENABLED           bool
	DB_HOST              string
	DB_PORT              int
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_CONN_MAX_LIFETIME time.Duration
	DB_MAX_IDLE_CONNS    int
	DB_MAX_OPEN_CONNS    int
	// elasticsearch config, empty url disables the source
	ES_URL      string
	ES_USERNAME string
	ES_PASSWORD string
	// datastore config, empty project disables the source
	DATASTORE_PROJECT_ID string
}

// LoadEnvConfig reads .env when present and fills DefaultEnvConfig from the
// environment.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	DefaultEnvConfig = &envConfig{
		APP_PORT:             getEnvString("APP_PORT", "8080"),
		LOG_FILE_PATH:        getEnvString("LOG_FILE_PATH", ""),
		LOG_LEVEL:            getEnvString("LOG_LEVEL", "info"),
		REPORT_TEMPLATE_DIR:  getEnvString("REPORT_TEMPLATE_DIR", "./templates"),
		REPORT_FETCH_WORKERS: getEnvInt("REPORT_FETCH_WORKERS", 4),
		REPORT_FETCH_RETRIES: getEnvInt("REPORT_FETCH_RETRIES", 2),
		REPORT_FETCH_BACKOFF: getEnvDuration("REPORT_FETCH_BACKOFF", 200*time.Millisecond),
		DB_ENABLED:           getEnvBool("DB_ENABLED", false),
		DB_HOST:              getEnvString("DB_HOST", "localhost"),
		DB_PORT:              getEnvInt("DB_PORT", 5432),
		DB_USER:              getEnvString("DB_USER", "postgres"),
		DB_PASSWORD:          getEnvString("DB_PASSWORD", "postgres"),
		DB_NAME:              getEnvString("DB_NAME", "postgres"),
		DB_SSL_MODE:          getEnvString("DB_SSL_MODE", "disable"),
		DB_CONN_MAX_LIFETIME: getEnvDuration("DB_CONN_MAX_LIFETIME", 20*time.Minute),
		DB_MAX_IDLE_CONNS:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DB_MAX_OPEN_CONNS:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
		ES_URL:               getEnvString("ES_URL", ""),
		ES_USERNAME:          getEnvString("ES_USERNAME", ""),
		ES_PASSWORD:          getEnvString("ES_PASSWORD", ""),
		DATASTORE_PROJECT_ID: getEnvString("DATASTORE_PROJECT_ID", ""),
	}
	return nil
}

func getEnvString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if i, err := strconv.Atoi(val); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
