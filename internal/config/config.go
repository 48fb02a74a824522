package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	CatalogSourceBackend  = "backend"
	CatalogSourcePostgres = "postgres"

	defaultPlaceholderImageURL = "https://placehold.co/200x200/e5e5ea/333?text=No+Image"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Backend
	BackendURL     string
	BackendTimeout time.Duration

	// Sessions
	SessionSecret        string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	// Redis (optional)
	RedisURL string

	// Catalogue
	CatalogSource string
	DatabaseURL   string

	// HTTP
	FrontendURL   string
	ChatRateLimit int

	// Presentation
	PlaceholderImageURL string
	LogLevel            string

	// Info view
	InfoName       string
	InfoRollNumber string
	InfoCollege    string
	InfoPhone      string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		BackendURL:           getEnvOrDefault("BACKEND_URL", "http://127.0.0.1:8000"),
		BackendTimeout:       getEnvAsDurationOrDefault("BACKEND_TIMEOUT", 30*time.Second),
		SessionSecret:        mustGetEnv("SESSION_SECRET"),
		SessionTTL:           getEnvAsDurationOrDefault("SESSION_TTL", 2*time.Hour),
		SessionSweepInterval: getEnvAsDurationOrDefault("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		CatalogSource:        getEnvOrDefault("CATALOG_SOURCE", CatalogSourceBackend),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "*"),
		ChatRateLimit:        getEnvAsIntOrDefault("CHAT_RATE_LIMIT", 30),
		PlaceholderImageURL:  getEnvOrDefault("PLACEHOLDER_IMAGE_URL", defaultPlaceholderImageURL),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		InfoName:             getEnvOrDefault("INFO_NAME", "Nikhilesh Dubey"),
		InfoRollNumber:       getEnvOrDefault("INFO_ROLL_NUMBER", "102253008"),
		InfoCollege:          getEnvOrDefault("INFO_COLLEGE", "Thapar Institute of Engineering and Technology"),
		InfoPhone:            getEnvOrDefault("INFO_PHONE", "+91 9041413468"),
	}

	if cfg.CatalogSource == CatalogSourcePostgres {
		cfg.DatabaseURL = mustGetEnv("DATABASE_URL")
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go duration strings ("45s") and bare
// integers, which are read as seconds.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(val); err == nil {
		if n < 0 {
			return defaultVal
		}
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}
