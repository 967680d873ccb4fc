package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port          string
	MongoURI      string
	MongoDB       string
	StorageDriver string
	JWTSecret     string
	TokenExpiry   time.Duration
	SMTPHost      string
	SMTPPort      string
	SMTPSender    string
	SMTPPassword  string
	AppBaseURL    string
	CORSOrigins   []string
	LogLevel      string
	EnableCron    bool
}

// LoadConfig reads .env (when present) and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using process environment")
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "finance"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageMongo)),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPSender:    os.Getenv("SMTP_SENDER"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		AppBaseURL:    strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	if cfg.StorageDriver != StorageMongo && cfg.StorageDriver != StorageMemory {
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	expiry, err := time.ParseDuration(getEnv("TOKEN_EXPIRY", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_EXPIRY: %w", err)
	}
	cfg.TokenExpiry = expiry

	enableCron, err := strconv.ParseBool(getEnv("ENABLE_CRON", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENABLE_CRON: %w", err)
	}
	cfg.EnableCron = enableCron

	return cfg, nil
}

// MailEnabled reports whether SMTP settings are complete enough to send mail.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPSender != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
