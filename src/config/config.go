package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// ImportMode selects the row-level parse policy: "strict" rejects rows
	// with unparseable required fields, "lenient" applies documented fallbacks.
	ImportMode string

	// MaxBatchRows caps how many rows a single import request may carry.
	MaxBatchRows int

	// MaxImportBodyBytes caps the import request body size.
	MaxImportBodyBytes int64

	// DefaultCommission is the per-contract round-trip fee applied to
	// instruments missing from the pricing table.
	DefaultCommission float64

	AllowedOrigin string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	importMode := strings.ToLower(getEnv("IMPORT_MODE", "strict"))
	if importMode != "strict" && importMode != "lenient" {
		log.Printf("WARNING: Invalid IMPORT_MODE '%s'. Using default 'strict'.", importMode)
		importMode = "strict"
	}

	maxBatchRows := getEnvAsInt("MAX_BATCH_ROWS", 1000)
	if maxBatchRows <= 0 {
		log.Printf("WARNING: MAX_BATCH_ROWS must be positive, got %d. Using default 1000.", maxBatchRows)
		maxBatchRows = 1000
	}

	maxImportBodyBytesStr := getEnv("MAX_IMPORT_BODY_BYTES", "5242880")
	maxImportBodyBytes, err := strconv.ParseInt(maxImportBodyBytesStr, 10, 64)
	if err != nil || maxImportBodyBytes <= 0 {
		log.Printf("WARNING: Invalid MAX_IMPORT_BODY_BYTES '%s'. Using default 5MB. Error (if any): %v", maxImportBodyBytesStr, err)
		maxImportBodyBytes = 5 * 1024 * 1024
	}

	defaultCommissionStr := getEnv("DEFAULT_COMMISSION", "4.00")
	defaultCommission, err := strconv.ParseFloat(defaultCommissionStr, 64)
	if err != nil || defaultCommission < 0 {
		log.Printf("WARNING: Invalid DEFAULT_COMMISSION '%s'. Using default 4.00. Error (if any): %v", defaultCommissionStr, err)
		defaultCommission = 4.00
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./tradejournal.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ImportMode:         importMode,
		MaxBatchRows:       maxBatchRows,
		MaxImportBodyBytes: maxImportBodyBytes,
		DefaultCommission:  defaultCommission,
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, ImportMode=%s, MaxBatchRows=%d",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.ImportMode, Cfg.MaxBatchRows)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}
