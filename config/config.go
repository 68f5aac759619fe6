package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"companion/database"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Upstream services
	CoreAPIBaseURL    string
	GameAPIBaseURL    string
	LotteryAPIBaseURL string

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Server configuration
	ListenAddr     string
	AllowedOrigins []string // Origin patterns allowed to open the websocket

	// Session configuration
	SessionTTL time.Duration

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from the environment, with .env picked up when present
func load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		// Upstream services
		CoreAPIBaseURL:    os.Getenv("CORE_API_BASE_URL"),
		GameAPIBaseURL:    os.Getenv("GAME_API_BASE_URL"),
		LotteryAPIBaseURL: os.Getenv("LOTTERY_API_BASE_URL"),

		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Server
		ListenAddr: getEnvWithDefault("LISTEN_ADDR", ":8080"),

		// Session
		SessionTTL: 12 * time.Hour,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		parsed, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		config.SessionTTL = parsed
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, origin)
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.CoreAPIBaseURL == "" {
			return nil, fmt.Errorf("CORE_API_BASE_URL is required")
		}
		if config.GameAPIBaseURL == "" {
			return nil, fmt.Errorf("GAME_API_BASE_URL is required")
		}
		if config.LotteryAPIBaseURL == "" {
			return nil, fmt.Errorf("LOTTERY_API_BASE_URL is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment: "test",
		ListenAddr:  ":0",
		SessionTTL:  time.Hour,
	}
}
