package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	Port              string
	AllowedOrigins    string
	DBHost            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBPort            string
	CohereAPIKey      string
	GeminiAPIKey      string
	JWTSecret         string
	TokenTTL          time.Duration
	GenerationTimeout time.Duration
}

// Load reads the configuration from the environment. The API keys and JWT
// secret are required; everything else has a sensible local default.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:5173"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "barnaby"),
		DBPort:            getEnv("DB_PORT", "5432"),
		CohereAPIKey:      os.Getenv("COHERE_API_KEY"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          24 * time.Hour,
		GenerationTimeout: 30 * time.Second,
	}

	if cfg.CohereAPIKey == "" {
		return nil, fmt.Errorf("COHERE_API_KEY is not set in the environment")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set in the environment")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set in the environment")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
