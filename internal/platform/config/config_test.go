package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ROL_ADMIN", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, devJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "HS256", cfg.Auth.JWTAlgorithm)
	assert.Equal(t, 2, cfg.Auth.AdminRoleID)
	assert.Equal(t, 1, cfg.Auth.ActiveStatusID)
	assert.Equal(t, 60*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.Auth.PasswordResetTTL)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ALGORITHM", "hs512")
	t.Setenv("ROL_ADMIN", "7")
	t.Setenv("ESTADO_ACTIVO", "4")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "15")
	t.Setenv("TZ_INFO", "America/Bogota")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "HS512", cfg.Auth.JWTAlgorithm)
	assert.Equal(t, 7, cfg.Auth.AdminRoleID)
	assert.Equal(t, 4, cfg.Auth.ActiveStatusID)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "America/Bogota", cfg.Location.String())
}

func TestFromEnvRejectsInvalidSettings(t *testing.T) {
	t.Run("missing secret outside dev", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("JWT_ALGORITHM", "none")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("zero request timeout", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("unknown time zone", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("TZ_INFO", "Mars/Olympus")
		_, err := FromEnv()
		assert.Error(t, err)
	})
}

func TestPostgresDSN(t *testing.T) {
	p := Postgres{User: "u", Password: "p", Host: "db", Port: "5432", Database: "biblioteca", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/biblioteca?sslmode=disable", p.DSN())
}
