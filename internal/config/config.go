package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds tunables for both the conferencing service and the
// file-transfer programs. Not every field is consumed by every
// command; cmd/confserver reads ConfServer, cmd/ftsend and
// cmd/ftrecv read FileTransfer.
type Config struct {
	ConfServer   ConfServerConfig
	FileTransfer FileTransferConfig
}

type ConfServerConfig struct {
	Port           string
	MaxClients     int
	MaxSessions    int
	IdleTimeout    time.Duration
	ReaperInterval time.Duration
}

type FileTransferConfig struct {
	FragmentSize   int
	DropRate       float64
	RetryAttempts  int
	InitialTimeout time.Duration
	MaxTimeout     time.Duration
	SavedDir       string
}

// Load reads a local .env file if present, then layers environment
// variables over built-in defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		ConfServer: ConfServerConfig{
			Port:           getEnvOrDefault("CONF_PORT", "5000"),
			MaxClients:     getIntOrDefault("MAX_CLIENTS", 100),
			MaxSessions:    getIntOrDefault("MAX_SESSIONS", 100),
			IdleTimeout:    getDurationOrDefault("IDLE_TIMEOUT", "60s"),
			ReaperInterval: getDurationOrDefault("REAPER_INTERVAL", "5s"),
		},
		FileTransfer: FileTransferConfig{
			FragmentSize:   getIntOrDefault("FT_FRAGMENT_SIZE", 1000),
			DropRate:       getFloatOrDefault("FT_DROP_RATE", 0.01),
			RetryAttempts:  getIntOrDefault("FT_RETRY_ATTEMPTS", 5),
			InitialTimeout: getDurationOrDefault("FT_INITIAL_TIMEOUT", "1s"),
			MaxTimeout:     getDurationOrDefault("FT_MAX_TIMEOUT", "8s"),
			SavedDir:       getEnvOrDefault("FT_SAVED_DIR", "./saved"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid duration for %s: %v", key, err)
	}
	return duration
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid integer for %s: %v", key, err)
	}
	return intValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Fatalf("invalid float for %s: %v", key, err)
	}
	return floatValue
}
