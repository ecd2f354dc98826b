package app

import (
	"os"
	"strconv"
	"time"

	"github.com/canopysaas/canopy/pkg/jwtx"
)

type Config struct {
	Issuer     string // Required: issuer claim for access tokens
	AdminToken string // Optional: bearer token for operator endpoints; empty disables them

	Algorithm      string // Optional: JWT signing algorithm (HS256, EdDSA) (default: EdDSA)
	TokenSecret    string // Required for HS256: HMAC secret, at least 32 bytes
	SigningKeyFile string // Optional for EdDSA: PKCS8 PEM key; empty generates an ephemeral key

	StoreDriver string // Storage driver (sqlite, postgres) (default: sqlite)
	DataDir     string // sqlite: directory holding catalog.db and tenant databases (default: ./data)
	DatabaseURL string // postgres: connection URL

	PepperFile string // Optional: path to the password pepper file (default: ./pepper)

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 168h)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-token sweep interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:     getEnvOrDefault("CANOPY_ISSUER", "canopy-accounts"),
		AdminToken: os.Getenv("CANOPY_ADMIN_TOKEN"),

		Algorithm:      getEnvOrDefault("CANOPY_ALGORITHM", "EdDSA"),
		TokenSecret:    os.Getenv("CANOPY_TOKEN_SECRET"),
		SigningKeyFile: os.Getenv("CANOPY_SIGNING_KEY_FILE"),

		StoreDriver: getEnvOrDefault("CANOPY_STORE_DRIVER", "sqlite"),
		DataDir:     getEnvOrDefault("CANOPY_DATA_DIR", "data"),
		DatabaseURL: os.Getenv("CANOPY_DATABASE_URL"),

		PepperFile: getEnvOrDefault("CANOPY_PEPPER_FILE", "pepper"),

		AccessTTL:  getEnvDurationOrDefault("CANOPY_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("CANOPY_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
