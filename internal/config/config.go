package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the API.
type Config struct {
	MongoURI string
	Database string
	HTTPPort string

	// BaseURL overrides the scheme+host derived from the incoming request
	// when building image URLs. Empty means "use the request host".
	BaseURL     string
	FrontendURL string

	APIKey    string
	JWTSecret string
	JWTExpiry time.Duration

	// MapLimit caps the number of records the unpaginated map endpoints return.
	MapLimit int

	UploadDir string

	LogLevel string
	// LogFile is the append-only server log. Empty disables file logging.
	LogFile string

	// MQTTBrokerURL enables the incident event broadcaster when set.
	MQTTBrokerURL string
	MQTTTopic     string
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	cfg := &Config{
		MongoURI:      os.Getenv("MONGO_URI"),
		Database:      getEnv("MONGO_DATABASE", "incidentes_db"),
		HTTPPort:      getEnv("PORT", "8080"),
		BaseURL:       os.Getenv("BASE_URL"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:5173"),
		APIKey:        os.Getenv("API_KEY"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTExpiry:     getEnvAsDuration("JWT_EXPIRES_IN", 30*time.Minute),
		MapLimit:      getEnvAsInt("MAP_LIMIT", 3000),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads/img"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("SERVER_LOG", "server.log"),
		MQTTBrokerURL: os.Getenv("MQTT_BROKER_URL"),
		MQTTTopic:     getEnv("MQTT_TOPIC", "incidentes/eventos"),
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI environment variable is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.MapLimit < 1 {
		cfg.MapLimit = 1
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
