package config

import (
	"strconv"
	"time"
)

// parseEnv overlays cfg with KUMO_* variables. Unset or empty variables
// are ignored; unparsable durations and booleans too.
func parseEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	str := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v := getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	boolean := func(dst *bool, key string) {
		if v := getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str(&cfg.BackendURL, "KUMO_BACKEND_URL")
	str(&cfg.AnonKey, "KUMO_ANON_KEY")
	str(&cfg.PostgresDSN, "KUMO_POSTGRES_DSN")
	boolean(&cfg.PostgresMigrate, "KUMO_POSTGRES_MIGRATE")
	boolean(&cfg.Demo, "KUMO_DEMO")
	str(&cfg.WebhookURL, "KUMO_WEBHOOK_URL")
	str(&cfg.WebhookTestURL, "KUMO_WEBHOOK_TEST_URL")
	str(&cfg.DataDir, "KUMO_DATA_DIR")
	str(&cfg.SessionSecret, "KUMO_SESSION_SECRET")
	dur(&cfg.RequestTimeout, "KUMO_REQUEST_TIMEOUT")
	dur(&cfg.WebhookTimeout, "KUMO_WEBHOOK_TIMEOUT")
	dur(&cfg.OnlineCheckInterval, "KUMO_ONLINE_CHECK_INTERVAL")
	dur(&cfg.RefreshMargin, "KUMO_REFRESH_MARGIN")
	str(&cfg.LogLevel, "KUMO_LOG_LEVEL")
	str(&cfg.LogFormat, "KUMO_LOG_FORMAT")

	str(&cfg.S3.Region, "KUMO_S3_REGION")
	str(&cfg.S3.Endpoint, "KUMO_S3_ENDPOINT")
	str(&cfg.S3.AccessKey, "KUMO_S3_ACCESS_KEY")
	str(&cfg.S3.SecretKey, "KUMO_S3_SECRET_KEY")
	str(&cfg.S3.Bucket, "KUMO_S3_BUCKET")
	str(&cfg.S3.PublicBaseURL, "KUMO_S3_PUBLIC_BASE_URL")

	str(&cfg.OpenAI.APIKey, "KUMO_OPENAI_API_KEY")
	str(&cfg.OpenAI.BaseURL, "KUMO_OPENAI_BASE_URL")
	str(&cfg.OpenAI.Model, "KUMO_OPENAI_MODEL")
}
