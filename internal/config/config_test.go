package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "https://backend-sql-9ck0.onrender.com", cfg.APIBaseURL)
	assert.Equal(t, "5000", cfg.HTTPPort)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
}

func TestBaseURLOverride(t *testing.T) {
	t.Setenv("WORKTRACK_API_BASE_URL", "http://localhost:5000/")
	cfg := Load()
	// Trailing slash is trimmed so path joins stay clean.
	assert.Equal(t, "http://localhost:5000", cfg.APIBaseURL)
}

func TestDurationEnvFallbackOnGarbage(t *testing.T) {
	t.Setenv("ACCESS_TTL", "soon")
	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)

	t.Setenv("ACCESS_TTL", "90s")
	cfg = Load()
	assert.Equal(t, 90*time.Second, cfg.AccessTTL)
}
