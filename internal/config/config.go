package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mudler/xlog"
)

type Config struct {
	Port string

	// Upstream platform API and realtime socket
	APIBaseURL     string
	APIToken       string
	RealtimeURL    string
	GatewayRPS     float64
	GatewayTimeout time.Duration

	// Local diagnostics store
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		xlog.Warn("No .env file loaded", "error", err)
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:3000"),
		APIToken:       getEnv("API_TOKEN", ""),
		RealtimeURL:    getEnv("REALTIME_URL", ""),
		GatewayRPS:     getEnvFloat("GATEWAY_RPS", 10),
		GatewayTimeout: getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second),
		DBPath:         getEnv("DB_PATH", "./agentai-console.db"),
		DBHost:         getEnv("DB_HOST", ""),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "agentai_console"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
	}
}

// UsePostgres reports whether a postgres host was configured.
func (c *Config) UsePostgres() bool {
	return c.DBHost != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		xlog.Warn("Invalid float in environment, using default", "key", key, "value", value)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		xlog.Warn("Invalid duration in environment, using default", "key", key, "value", value)
		return fallback
	}
	return d
}
