package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "DB_FILE", "DB_WATCH", "JWT_SECRET", "JWT_TTL", "SEED_DEMO_USER", "AMQP_URL", "LOG_FORMAT", "GIN_MODE"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, "5001", cfg.Port)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.True(t, cfg.DBWatch)
	assert.Equal(t, DevJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.False(t, cfg.SeedDemoUser)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/fin")
	t.Setenv("DB_WATCH", "no")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("SEED_DEMO_USER", "1")
	t.Setenv("LOG_FORMAT", "json")

	cfg := FromEnv()
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.False(t, cfg.DBWatch)
	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.True(t, cfg.SeedDemoUser)
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := &Config{
		Port:         "99999",
		StoreBackend: BackendPostgres,
		JWTSecret:    "",
		JWTTTL:       0,
		AMQPURL:      "http://broker",
		LogFormat:    "xml",
	}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "invalid port 99999")
	assert.Contains(t, msg, "DB_DSN is required")
	assert.Contains(t, msg, "JWT_SECRET cannot be empty")
	assert.Contains(t, msg, "invalid JWT_TTL")
	assert.Contains(t, msg, "invalid AMQP URL scheme")
	assert.Contains(t, msg, "AMQP_EXCHANGE cannot be empty")
	assert.Contains(t, msg, "invalid LOG_FORMAT")
	assert.Contains(t, msg, "invalid GIN_MODE")
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := FromEnv()
	cfg.StoreBackend = "mongo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid store backend "mongo"`)
}
