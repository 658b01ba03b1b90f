package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv  string
	Port     string
	Database DatabaseConfig
	Log      LogConfig
	Import   ImportConfig
	Labels   LabelConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	// Embedded PostgreSQL, used when Host is localhost and no password is set
	EmbeddedPort     int
	EmbeddedDataPath string
	// Queries slower than this are logged as warnings
	SlowQuery  time.Duration
	LogQueries bool
}

// Embedded reports whether the embedded PostgreSQL should be started
func (c DatabaseConfig) Embedded() bool {
	return c.Host == "localhost" && c.Password == ""
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// ImportConfig controls the import pipeline
type ImportConfig struct {
	SessionTTL      time.Duration
	AllowDuplicates bool   // default for requests that do not set the flag
	FieldMapFile    string // optional YAML overrides for the field resolver
}

// LabelConfig controls nest sheet label sheets
type LabelConfig struct {
	Cols int
	Rows int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	ttl, err := time.ParseDuration(getEnv("IMPORT_SESSION_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMPORT_SESSION_TTL: %w", err)
	}
	slowQuery, err := time.ParseDuration(getEnv("DB_SLOW_QUERY", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_SLOW_QUERY: %w", err)
	}

	return &Config{
		NodeEnv: getEnv("NODE_ENV", "development"),
		Port:    getEnv("PORT", "3220"),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "eckcut"),

			EmbeddedPort:     getEnvInt("PG_EMBEDDED_PORT", 5434),
			EmbeddedDataPath: getEnv("PG_EMBEDDED_DATA", "./db_data"),
			SlowQuery:        slowQuery,
			LogQueries:       getEnv("DB_LOG_QUERIES", "false") == "true",
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Import: ImportConfig{
			SessionTTL:      ttl,
			AllowDuplicates: getEnv("IMPORT_ALLOW_DUPLICATES", "false") == "true",
			FieldMapFile:    os.Getenv("FIELD_MAP_FILE"),
		},
		Labels: LabelConfig{
			Cols: getEnvInt("LABEL_COLS", 3),
			Rows: getEnvInt("LABEL_ROWS", 7),
		},
	}, nil
}

// IsDevelopment reports whether the node runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.NodeEnv == "development"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
