package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"signflow-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string
	RedisURL        string

	ObjectStoreType string
	LocalStoreDir   string
	PublicBaseURL   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinIO           MinIOConfig
	ArtifactURLTTL  time.Duration

	Signing SigningConfig

	SQSQueueURL string

	WebhookRateLimitRPS   float64
	WebhookRateLimitBurst int
}

// MinIOConfig holds MinIO object store settings.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// SigningConfig configures the external signing provider.
type SigningConfig struct {
	APIBaseURL        string
	APIKey            string
	APIKeyHeader      string
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
	Timeout           time.Duration
	TestMode          bool
	WebhookSecret     string
}

// Load reads configuration from .env files and the environment with sensible defaults.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("ARTIFACT_URL_TTL_MINUTES", 60)
	v.SetDefault("SIGNING_API_KEY_HEADER", "X-API-Key")
	v.SetDefault("SIGNING_TIMEOUT_SECONDS", 30)
	v.SetDefault("SIGNING_TEST_MODE", true)
	v.SetDefault("WEBHOOK_RATE_LIMIT_RPS", 20)
	v.SetDefault("WEBHOOK_RATE_LIMIT_BURST", 40)

	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL", "env": env})
	}

	return Config{
		Port:            v.GetString("PORT"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		DatabaseURL:     dbURL,
		RedisURL:        strings.TrimSpace(v.GetString("REDIS_URL")),

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		ArtifactURLTTL: time.Duration(v.GetInt("ARTIFACT_URL_TTL_MINUTES")) * time.Minute,

		Signing: SigningConfig{
			APIBaseURL:        strings.TrimRight(v.GetString("SIGNING_API_BASE_URL"), "/"),
			APIKey:            v.GetString("SIGNING_API_KEY"),
			APIKeyHeader:      v.GetString("SIGNING_API_KEY_HEADER"),
			OAuthTokenURL:     v.GetString("SIGNING_OAUTH_TOKEN_URL"),
			OAuthClientID:     v.GetString("SIGNING_OAUTH_CLIENT_ID"),
			OAuthClientSecret: v.GetString("SIGNING_OAUTH_CLIENT_SECRET"),
			Timeout:           time.Duration(v.GetInt("SIGNING_TIMEOUT_SECONDS")) * time.Second,
			TestMode:          v.GetBool("SIGNING_TEST_MODE"),
			WebhookSecret:     v.GetString("SIGNING_WEBHOOK_SECRET"),
		},

		SQSQueueURL: strings.TrimSpace(v.GetString("SQS_QUEUE_URL")),

		WebhookRateLimitRPS:   v.GetFloat64("WEBHOOK_RATE_LIMIT_RPS"),
		WebhookRateLimitBurst: v.GetInt("WEBHOOK_RATE_LIMIT_BURST"),
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}
