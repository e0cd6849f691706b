package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Paths    PathsConfig
	Pipeline PipelineConfig
	Ledger   LedgerConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type PathsConfig struct {
	BillsDir      string
	InvoicesDir   string
	QuarantineDir string
	ProductsFile  string
}

type PipelineConfig struct {
	PollInterval time.Duration
	// MaxComputeAttempts caps how often a file that keeps failing during
	// invoice computation is retried before it is dead-lettered to
	// quarantine. Zero means retry forever.
	MaxComputeAttempts int
}

type LedgerConfig struct {
	Driver string // none, memory, sqlite, postgres
	DSN    string
}

type ServerConfig struct {
	Enabled         bool
	Host            string
	Port            string
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	return &Config{
		Paths: PathsConfig{
			BillsDir:      getEnv("BILLS_DIR", "data/bills"),
			InvoicesDir:   getEnv("INVOICES_DIR", "data/invoices"),
			QuarantineDir: getEnv("QUARANTINE_DIR", "data/bad_bills"),
			ProductsFile:  getEnv("PRODUCTS_FILE", "masterdata/products.csv"),
		},
		Pipeline: PipelineConfig{
			PollInterval:       getDurationEnv("POLL_INTERVAL", 3*time.Second),
			MaxComputeAttempts: getIntEnv("MAX_COMPUTE_ATTEMPTS", 0),
		},
		Ledger: LedgerConfig{
			Driver: getEnv("LEDGER_DRIVER", "none"),
			DSN:    getEnv("LEDGER_DSN", "data/ledger.db"),
		},
		Server: ServerConfig{
			Enabled:         getBoolEnv("OPS_SERVER_ENABLED", true),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

func getBoolEnv(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %t", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration for %s: %s, using default: %s", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}
