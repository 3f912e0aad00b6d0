package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Redis
	RedisURL        string
	EventsChannel   string
	EventsQueueSize int

	// Server
	Port        string
	FrontendURL string

	// Pinball
	TuningFile     string
	PlungerPolicy  string // overrides the tuning file when set
	BroadcastEvery int
	Debug          bool

	// Security
	JWTSecret          string
	ControllerPINHash  string
	ControllerTokenTTL int // minutes
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Redis (empty URL disables event publishing)
		RedisURL:        getEnv("REDIS_URL", ""),
		EventsChannel:   getEnv("PINBALL_EVENTS_CHANNEL", "pinball_events"),
		EventsQueueSize: getEnvInt("PINBALL_EVENTS_QUEUE", 256),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Pinball
		TuningFile:     getEnv("PINBALL_TUNING_FILE", ""),
		PlungerPolicy:  getEnv("PINBALL_PLUNGER_POLICY", ""),
		BroadcastEvery: getEnvInt("PINBALL_BROADCAST_EVERY", 6),
		Debug:          getEnvBool("PINBALL_DEBUG", false),

		// Security
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		ControllerPINHash:  getEnv("CONTROLLER_PIN_HASH", ""),
		ControllerTokenTTL: getEnvInt("CONTROLLER_TOKEN_TTL_MINUTES", 120),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
