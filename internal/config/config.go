package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string

	SessionSecret string
	CSRFSecret    string
	SessionTTL    time.Duration

	// BaseURL is the externally visible origin, used to build the reset
	// link embedded in outgoing mail.
	BaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	FacebookClientID     string
	FacebookClientSecret string

	SecureCookies bool
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:          fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:     fallback(os.Getenv("REDIS_ADDR"), "localhost:6379"),
		SessionSecret: strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		CSRFSecret:    strings.TrimSpace(os.Getenv("CSRF_SECRET")),

		SMTPHost:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPUser:     strings.TrimSpace(os.Getenv("SMTP_USER")),
		SMTPPassword: strings.TrimSpace(os.Getenv("SMTP_PASSWORD")),
		MailFrom:     fallback(os.Getenv("MAIL_FROM"), "sousa.dfs@gmail.com"),

		FacebookClientID:     strings.TrimSpace(os.Getenv("FACEBOOK_CLIENT_ID")),
		FacebookClientSecret: strings.TrimSpace(os.Getenv("FACEBOOK_CLIENT_SECRET")),

		SecureCookies: os.Getenv("SECURE_COOKIES") == "true",
	}

	cfg.BaseURL = strings.TrimRight(fallback(os.Getenv("BASE_URL"), "http://localhost:"+cfg.Port), "/")

	hours := fallback(os.Getenv("SESSION_TTL_HOURS"), "168")
	if ttlHours, err := strconv.Atoi(hours); err == nil && ttlHours > 0 {
		cfg.SessionTTL = time.Duration(ttlHours) * time.Hour
	} else {
		cfg.SessionTTL = 168 * time.Hour
	}

	port := fallback(os.Getenv("SMTP_PORT"), "587")
	if smtpPort, err := strconv.Atoi(port); err == nil && smtpPort > 0 {
		cfg.SMTPPort = smtpPort
	} else {
		cfg.SMTPPort = 587
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET is required")
	}
	if cfg.CSRFSecret == "" {
		cfg.CSRFSecret = cfg.SessionSecret
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// MailEnabled reports whether outbound email is configured.
func (c Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// FacebookEnabled reports whether the Facebook OAuth app is configured.
func (c Config) FacebookEnabled() bool {
	return c.FacebookClientID != "" && c.FacebookClientSecret != ""
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
