package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	PostgresURI string
	RedisURI    string
	JWTSecret   string
	Port        string
	Environment string // ENV: production, development, etc.

	FrontendURL    string   // Base URL for links in verification/reset emails
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	DefaultAvatarURL    string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	AccessTokenTTL time.Duration // default 60m
	VerifyTokenTTL time.Duration // default 24h
	ResetTokenTTL  time.Duration // default 30m

	RateLimitMax    int           // requests per window per (IP, route)
	RateLimitWindow time.Duration // default 1m
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{getEnv("FRONTEND_URL", "http://localhost:3000")}
	}

	return &Config{
		PostgresURI: getEnv("POSTGRES_URI", "postgres://localhost:5432/contactbook?sslmode=disable"),
		RedisURI:    getEnv("REDIS_URI", "redis://localhost:6379/0"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		Port:        getEnv("PORT", "8080"),
		Environment: env,

		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins: allowedOrigins,

		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		DefaultAvatarURL:    getEnv("DEFAULT_AVATAR_URL", ""),

		SMTPHost:     getEnv("MAIL_SERVER", ""),
		SMTPPort:     getEnvInt("MAIL_PORT", 465),
		SMTPUsername: getEnv("MAIL_USERNAME", ""),
		SMTPPassword: getEnv("MAIL_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "noreply@contactbook.app"),

		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", 60*time.Minute),
		VerifyTokenTTL: getEnvDuration("VERIFY_TOKEN_TTL", 24*time.Hour),
		ResetTokenTTL:  getEnvDuration("RESET_TOKEN_TTL", 30*time.Minute),

		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 5),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MailConfigured reports whether SMTP credentials are present.
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUsername != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
