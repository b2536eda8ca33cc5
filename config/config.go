package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string

	AuthServiceURL string

	Mongo MongoConfig
	Redis RedisConfig
	Game  GameConfig
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GameConfig identifies this service to the game-execution service.
type GameConfig struct {
	URL       string
	ServiceID string
	Secret    string
	Timeout   time.Duration
}

func Load() *Config {
	// Parse allowed origins (comma-separated)
	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:5173")
	origins := strings.Split(originsStr, ",")

	timeout, err := time.ParseDuration(getEnv("GAME_SERVICE_TIMEOUT", "10s"))
	if err != nil {
		timeout = 10 * time.Second
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		redisDB = 0
	}

	return &Config{
		Port:           getEnv("PORT", "3001"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: origins,
		AuthServiceURL: getEnv("AUTH_SERVICE_URL", "http://auth-service:3000"),
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "lobby"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Game: GameConfig{
			URL:       getEnv("GAME_SERVICE_URL", "http://game-service:3002"),
			ServiceID: getEnv("GAME_SERVICE_ID", "lobby-service"),
			Secret:    getEnv("GAME_SERVICE_SECRET", "change-me-in-production"),
			Timeout:   timeout,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
