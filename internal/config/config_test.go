package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/happe")
	t.Setenv("SESSION_SECRET", "segredo")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "segredo", cfg.CSRFSecret, "CSRF secret falls back to session secret")
	assert.False(t, cfg.MailEnabled())
	assert.False(t, cfg.FacebookEnabled())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "segredo")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/happe")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "3000")
	t.Setenv("SESSION_TTL_HOURS", "24")
	t.Setenv("BASE_URL", "https://happe.example.com/")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("FACEBOOK_CLIENT_ID", "abc")
	t.Setenv("FACEBOOK_CLIENT_SECRET", "def")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.HTTPAddress())
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "https://happe.example.com", cfg.BaseURL, "trailing slash trimmed")
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.True(t, cfg.MailEnabled())
	assert.True(t, cfg.FacebookEnabled())
}

func TestLoadBadTTLFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_TTL_HOURS", "banana")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
}
