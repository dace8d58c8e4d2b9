package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabaseDSN  string
	JWTSecret    string
	LogLevel     string
	CORSOrigins  []string
	SeedPolicies bool

	ScheduleLookupTimeout time.Duration
	ScheduleLookupRetries uint64
	ActiveVersionCacheTTL time.Duration
}

// Load reads configs/.env when present, then the process environment
func Load() *Config {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "postgres")
	dbSslMode := getEnv("DB_SSLMODE", "disable")

	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseDSN:  "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode,
		JWTSecret:    jwtSecret(),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitOrigins(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		SeedPolicies: getBool("SEED_POLICIES", true),

		ScheduleLookupTimeout: getDuration("SCHEDULE_LOOKUP_TIMEOUT", 2*time.Second),
		ScheduleLookupRetries: getUint("SCHEDULE_LOOKUP_RETRIES", 3),
		ActiveVersionCacheTTL: getDuration("ACTIVE_VERSION_CACHE_TTL", 10*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func jwtSecret() string {
	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only
	}
	return secret
}

func getBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("WARNING: invalid %s '%s', using %t", key, raw, fallback)
		return fallback
	}
	return v
}

func getUint(key string, fallback uint64) uint64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		log.Printf("WARNING: invalid %s '%s', using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("WARNING: invalid %s '%s', using %s", key, raw, fallback)
		return fallback
	}
	return v
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
