package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             string
	JWTSecret        string
	JWTExpiry        int // in hours
	DatabasePath     string
	MaxMessageLength int
	AdminUsername    string
	AdminPassword    string
}

func Load() Config {
	return Config{
		Port:             getEnv("PORT", "8081"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-super-secret-change-me"),
		JWTExpiry:        getEnvAsInt("JWT_EXPIRY", 8),
		DatabasePath:     getEnv("DATABASE_PATH", "roomchat.db"),
		MaxMessageLength: getEnvAsInt("MAX_MESSAGE_LENGTH", 1000),
		AdminUsername:    getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
