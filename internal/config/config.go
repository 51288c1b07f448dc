package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	PersistentTTL time.Duration
	FrontendURL   string
	CookieSecure  bool

	SMTPAddr string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

const defaultTestSecret = "test_secret_key_minimum_32_characters_long_for_testing_only"

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "auth"),

		AccessSecret:  getEnv("ACCESS_TOKEN_SECRET", defaultTestSecret),
		RefreshSecret: getEnv("REFRESH_TOKEN_SECRET", defaultTestSecret+"_refresh"),
		AccessTTL:     getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:    7 * 24 * time.Hour,
		PersistentTTL: 30 * 24 * time.Hour,
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:5173"),
		CookieSecure:  getEnvBool("COOKIE_SECURE", false),

		SMTPAddr: getEnv("SMTP_ADDR", ""),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		SMTPFrom: getEnv("SMTP_FROM", "noreply@localhost"),
	}

	log.Println("✅ Config loaded")
	return cfg
}

// ValidateSecrets refuses to boot on weak or shared signing keys.
// Access and refresh tokens must not be forgeable from each other,
// so the two secrets may never match.
func (c *Config) ValidateSecrets() error {
	for name, secret := range map[string]string{
		"ACCESS_TOKEN_SECRET":  c.AccessSecret,
		"REFRESH_TOKEN_SECRET": c.RefreshSecret,
	} {
		if secret == "" {
			return fmt.Errorf("%s environment variable is required", name)
		}
		if len(secret) < 32 {
			return fmt.Errorf("%s must be at least 32 characters long (current: %d)", name, len(secret))
		}
		if secret == defaultTestSecret {
			return fmt.Errorf("cannot use default test secret for %s in production", name)
		}
	}

	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("⚠️  Invalid duration for %s, using default %s", key, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
