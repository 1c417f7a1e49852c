package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv               string
	AppName              string
	APIPrefix            string
	AppPort              string
	DatabaseURL          string
	SQLitePath           string
	JWTSecret            string
	JWTAlgorithm         string
	JWTAudience          string
	JWTIssuer            string
	CORSAllowOrigins     []string
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIBaseURL        string
	AIMaxOutputTokens    int
	AITemperature        float64
	AITimeoutSeconds     int
	ChatContextTurns     int
	DoctorDirectoryFile  string
	DoctorRecommendLimit int
	MetricsNamespace     string
	AppTimezone          string
}

func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		AppEnv:       getEnv("APP_ENV", "local"),
		AppName:      getEnv("APP_NAME", "ParentDoctor API"),
		APIPrefix:    getEnv("API_PREFIX", "/api/v1"),
		AppPort:      getEnv("APP_PORT", "8000"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SQLitePath:   getEnv("SQLITE_PATH", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTAlgorithm: getEnv("JWT_ALGORITHM", "HS256"),
		JWTAudience:  getEnv("JWT_AUDIENCE", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", ""),
		CORSAllowOrigins: getEnvCSV(
			"CORS_ALLOW_ORIGINS",
			[]string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AIMaxOutputTokens:    getEnvInt("AI_MAX_OUTPUT_TOKENS", 500),
		AITemperature:        getEnvFloat("AI_TEMPERATURE", 0.7),
		AITimeoutSeconds:     getEnvInt("AI_TIMEOUT_SECONDS", 20),
		ChatContextTurns:     getEnvInt("CHAT_CONTEXT_TURNS", 10),
		DoctorDirectoryFile:  getEnv("DOCTOR_DIRECTORY_FILE", ""),
		DoctorRecommendLimit: getEnvInt("DOCTOR_RECOMMEND_LIMIT", 3),
		MetricsNamespace:     getEnv("METRICS_NAMESPACE", "parentdoctor"),
		AppTimezone:          getEnv("APP_TIMEZONE", "UTC"),
	}
}

// Validate covers the HTTP service. The chat CLI only needs ValidateEngine.
func (c Config) Validate() error {
	secret := strings.TrimSpace(c.JWTSecret)
	if secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if secret == "change-me-in-production" {
		return errors.New("JWT_SECRET must not use insecure default value")
	}
	if len(secret) < 16 {
		return errors.New("JWT_SECRET is too short; use at least 16 characters")
	}
	if strings.TrimSpace(c.JWTAlgorithm) == "" {
		return errors.New("JWT_ALGORITHM is required")
	}
	return c.ValidateEngine()
}

func (c Config) ValidateEngine() error {
	if c.ChatContextTurns < 1 {
		return errors.New("CHAT_CONTEXT_TURNS must be at least 1")
	}
	if c.AITimeoutSeconds < 1 {
		return errors.New("AI_TIMEOUT_SECONDS must be at least 1")
	}
	if c.DoctorRecommendLimit < 1 {
		return errors.New("DOCTOR_RECOMMEND_LIMIT must be at least 1")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(c.AppTimezone)); err != nil {
		return fmt.Errorf("APP_TIMEZONE is invalid: %w", err)
	}
	return nil
}

// Location is the zone "today" is taken in for age arithmetic.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.AppTimezone))
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) AITimeout() time.Duration {
	if c.AITimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
