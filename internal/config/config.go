package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store backends selectable via STORE_BACKEND.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds settings for all binaries. Values come from the environment,
// optionally seeded from a .env file.
type Config struct {
	Port         string
	StoreBackend string
	Database     DatabaseConfig
	Kafka        KafkaConfig
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// KafkaConfig holds event-stream settings. When Enabled is false the order
// service runs without publishing events.
type KafkaConfig struct {
	Enabled bool
	Brokers string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() *Config {
	godotenv.Load()

	return &Config{
		Port:         getEnv("ORDER_SERVICE_PORT", "8081"),
		StoreBackend: getEnv("STORE_BACKEND", StorePostgres),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "orderservice"),
			Password: getEnv("DB_PASSWORD", "orderservice"),
			Name:     getEnv("DB_NAME", "orders"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Brokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
