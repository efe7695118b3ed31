package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the pipeline configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	// Core settings consumed by the KPI engines.
	Timezone      string `validate:"required"`
	LastNDays     int    `validate:"gt=0"`
	TopNCustomers int    `validate:"gt=0"`

	// Source files and result directory.
	CustomersCSVPath string `validate:"required"`
	OrdersXMLPath    string `validate:"required"`
	ResultsDir       string `validate:"required"`

	DBType     string `validate:"oneof=postgres mysql sqlite"`
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// Load loads configuration from environment variables and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "order-kpi-pipeline"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		Timezone:      getenv("TIMEZONE", "Asia/Kolkata"),
		LastNDays:     getenvInt("LAST_N_DAYS", 30),
		TopNCustomers: getenvInt("TOP_N_CUSTOMERS", 10),

		CustomersCSVPath: getenv("CUSTOMERS_CSV_PATH", "data/customers.csv"),
		OrdersXMLPath:    getenv("ORDERS_XML_PATH", "data/orders.xml"),
		ResultsDir:       getenv("RESULTS_DIR", "results"),

		DBType:     getenv("DATABASE_TYPE", "sqlite"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "pipeline.db"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location resolves the configured civil timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
