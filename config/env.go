package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds all environment configuration
type Config struct {
	// Database
	DatabaseHost     string
	DatabasePort     string
	PostgresUser     string
	PostgresPassword string
	DatabaseName     string

	// CBT subsystem
	CbtBaseURL        string
	CbtApiKey         string
	CbtTimeoutSeconds int

	// Gradebook
	GradebookBaseURL        string
	GradebookApiKey         string
	GradebookTimeoutSeconds int
}

var (
	appConfig *Config
	onceEnv   sync.Once
)

func loadConfig() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		// Database - required
		DatabaseHost:     getEnvWithDefault("DATABASE_HOST", "localhost"),
		DatabasePort:     getEnvWithDefault("DATABASE_PORT", "5432"),
		PostgresUser:     getEnvWithDefault("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnvWithDefault("POSTGRES_PASSWORD", "postgres"),
		DatabaseName:     getEnvWithDefault("DATABASE_NAME", "postgres"),

		// CBT subsystem - required for imports
		CbtBaseURL:        getEnvWithDefault("CBT_BASE_URL", "http://localhost:8081"),
		CbtApiKey:         getEnv("CBT_API_KEY"),
		CbtTimeoutSeconds: getEnvAsInt("CBT_TIMEOUT_SECONDS", 30),

		// Gradebook - required for sync
		GradebookBaseURL:        getEnvWithDefault("GRADEBOOK_BASE_URL", "http://localhost:8082"),
		GradebookApiKey:         getEnv("GRADEBOOK_API_KEY"),
		GradebookTimeoutSeconds: getEnvAsInt("GRADEBOOK_TIMEOUT_SECONDS", 30),
	}

	appConfig = config
	return config
}

func Env() *Config {
	onceEnv.Do(func() {
		appConfig = loadConfig()
	})
	return appConfig
}

// Helper functions
func getEnv(key string) string {
	value := os.Getenv(key)
	if value == "" && IsProduction() {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// IsProduction returns true if running in production
func IsProduction() bool {
	return getEnvWithDefault("ENVIRONMENT", "development") == "production"
}
