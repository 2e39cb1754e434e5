package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("SIGNING_TIMEOUT_SECONDS", "")

	cfg := Load()
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, "local", cfg.ObjectStoreType)
	require.Equal(t, 30*time.Second, cfg.Signing.Timeout)
	require.Equal(t, time.Hour, cfg.ArtifactURLTTL)
	require.Equal(t, "X-API-Key", cfg.Signing.APIKeyHeader)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "MinIO")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("SIGNING_API_BASE_URL", "https://sign.example.com/v1/")
	t.Setenv("WEBHOOK_RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	require.Equal(t, "production", cfg.Env)
	require.Equal(t, "minio", cfg.ObjectStoreType)
	require.True(t, cfg.MinIO.UseSSL)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowOrigin)
	require.Equal(t, "https://sign.example.com/v1", cfg.Signing.APIBaseURL)
	require.InDelta(t, 2.5, cfg.WebhookRateLimitRPS, 0.0001)
}
