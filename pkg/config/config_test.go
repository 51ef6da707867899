package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("STORE_OWNER", "")
	t.Setenv("SESSION_BACKEND", "")

	cfg := LoadConfig()

	assert.Equal(t, "https://backend-completo.vercel.app", cfg.APIBaseURL)
	assert.Equal(t, "010623008", cfg.StoreOwner)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "storefront_session", cfg.SessionCookieName)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("API_TIMEOUT", "5")
	t.Setenv("SESSION_COOKIE_SECURE", "yes")
	t.Setenv("OTEL_ENABLED", "false")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.GetAppPortInt())
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 5*time.Second, cfg.APITimeout)
	assert.True(t, cfg.SessionCookieSecure)
	assert.False(t, cfg.OTELEnabled)
}

func TestGetEnvDurationInvalidFallsBack(t *testing.T) {
	t.Setenv("CART_MONITOR_INTERVAL", "soon")
	assert.Equal(t, 30*time.Second, getEnvDuration("CART_MONITOR_INTERVAL", 30*time.Second))
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?parseTime=true&charset=utf8mb4", cfg.GetDSN())
}
