package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	Port              string
	DatabaseURL       string
	JWTSecret         string
	JWTIssuer         string
	Currency          string
	DefaultLocale     string
	CORSOrigins       []string
	GeoIPDBPath       string
	AIVerifyAPIKey    string
	AIVerifyBaseURL   string
	CustodianAPIKey   string
	CustodianBaseURL  string
	BankAPIKey        string
	BankBaseURL       string
	BankWebhookSecret string
	WorkerPollEvery   time.Duration
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTIssuer:         getEnv("JWT_ISSUER", "charity-core"),
		Currency:          getEnv("PLATFORM_CURRENCY", "USD"),
		DefaultLocale:     getEnv("DEFAULT_LOCALE", "en"),
		CORSOrigins:       splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		GeoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),
		AIVerifyAPIKey:    os.Getenv("AIVERIFY_API_KEY"),
		AIVerifyBaseURL:   getEnv("AIVERIFY_BASE_URL", "https://api.aiverify.example.com/v1"),
		CustodianAPIKey:   os.Getenv("CUSTODIAN_API_KEY"),
		CustodianBaseURL:  getEnv("CUSTODIAN_BASE_URL", "https://custody.example.com/v1"),
		BankAPIKey:        os.Getenv("BANK_API_KEY"),
		BankBaseURL:       getEnv("BANK_BASE_URL", "https://bank.example.com/v1"),
		BankWebhookSecret: os.Getenv("BANK_WEBHOOK_SECRET"),
		WorkerPollEvery:   time.Second * time.Duration(getEnvInt("WORKER_POLL_SECONDS", 2)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
