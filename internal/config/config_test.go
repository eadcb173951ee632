// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/deneme")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("MONGODB_URL", "mongodb://localhost:27017")
	t.Setenv("S3_BUCKET", "deneme-library")
}

func TestLoadLayersFileAndEnv(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
jwt:
  access_token_expire: 5m
entitlements:
  revoke_on_extend: true
`), 0o600))
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTokenExpire)
	assert.Equal(t, 168*time.Hour, cfg.JWT.RefreshTokenExpire)
	assert.True(t, cfg.Entitlements.RevokeOnExtend)
	assert.Equal(t, "deneme-library", cfg.S3.Bucket)
	assert.Equal(t, "0.0.0.0:7070", cfg.Server.Address())
	assert.False(t, cfg.IsProduction())
}

func TestLoadReportsEveryMissingSetting(t *testing.T) {
	for _, name := range []string{"DATABASE_URL", "REDIS_URL", "MONGODB_URL", "S3_BUCKET"} {
		t.Setenv(name, "")
	}

	_, err := Load("")
	require.Error(t, err)

	for _, want := range []string{"DATABASE_URL", "REDIS_URL", "MONGODB_URL", "S3_BUCKET"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateProductionRules(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PADDLE_API_KEY")
	assert.Contains(t, err.Error(), "PADDLE_ENVIRONMENT")

	t.Setenv("PADDLE_API_KEY", "key")
	t.Setenv("PADDLE_WEBHOOK_SECRET", "secret")
	t.Setenv("PADDLE_ENVIRONMENT", "production")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestValidatePushMargin(t *testing.T) {
	cfg := Config{
		Push: PushConfig{
			Enabled:         true,
			ProjectID:       "p",
			CredentialsFile: "f.json",
			TokenTTL:        time.Minute,
			RefreshMargin:   time.Hour,
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh_margin")
}
