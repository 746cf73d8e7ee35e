package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI  string
	MongoDB   string
	RedisAddr string
	Port      string

	JWTSecret          string
	InstructorUsername string
	InstructorPassword string

	JoinCodeLength   int
	JoinCodeAttempts int

	CORSAllowedOrigins string
}

func Load() *Config {
	// Best-effort: a missing .env just means plain env vars.
	_ = godotenv.Load()

	return &Config{
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            getEnv("MONGO_DB", "classboard"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		InstructorUsername: getEnv("INSTRUCTOR_USERNAME", "instructor"),
		InstructorPassword: getEnv("INSTRUCTOR_PASSWORD", "classroom123"),
		JoinCodeLength:     getEnvInt("JOIN_CODE_LENGTH", 6),
		JoinCodeAttempts:   getEnvInt("JOIN_CODE_ATTEMPTS", 10),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
