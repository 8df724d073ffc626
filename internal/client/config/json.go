package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/kumo/internal/flagx"
	"github.com/dmitrijs2005/kumo/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations go
// through timex.Duration so they may be strings like "3s" or nanoseconds.
// Absent fields leave the current value untouched.
type JsonConfig struct {
	BackendURL          *string         `json:"backend_url"`
	AnonKey             *string         `json:"anon_key"`
	PostgresDSN         *string         `json:"postgres_dsn"`
	PostgresMigrate     *bool           `json:"postgres_migrate"`
	Demo                *bool           `json:"demo"`
	WebhookURL          *string         `json:"webhook_url"`
	WebhookTestURL      *string         `json:"webhook_test_url"`
	DataDir             *string         `json:"data_dir"`
	SessionSecret       *string         `json:"session_secret"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	WebhookTimeout      *timex.Duration `json:"webhook_timeout"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RefreshMargin       *timex.Duration `json:"refresh_margin"`
	LogLevel            *string         `json:"log_level"`
	LogFormat           *string         `json:"log_format"`

	S3 *struct {
		Region        *string `json:"region"`
		Endpoint      *string `json:"endpoint"`
		AccessKey     *string `json:"access_key"`
		SecretKey     *string `json:"secret_key"`
		Bucket        *string `json:"bucket"`
		PublicBaseURL *string `json:"public_base_url"`
	} `json:"s3"`

	OpenAI *struct {
		APIKey  *string `json:"api_key"`
		BaseURL *string `json:"base_url"`
		Model   *string `json:"model"`
	} `json:"openai"`
}

// parseJSON overlays cfg with the JSON file selected by -c / -config in
// args. Without either flag nothing is read.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.BackendURL, jc.BackendURL)
	setString(&cfg.AnonKey, jc.AnonKey)
	setString(&cfg.PostgresDSN, jc.PostgresDSN)
	if jc.PostgresMigrate != nil {
		cfg.PostgresMigrate = *jc.PostgresMigrate
	}
	if jc.Demo != nil {
		cfg.Demo = *jc.Demo
	}
	setString(&cfg.WebhookURL, jc.WebhookURL)
	setString(&cfg.WebhookTestURL, jc.WebhookTestURL)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.SessionSecret, jc.SessionSecret)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.WebhookTimeout, jc.WebhookTimeout)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.RefreshMargin, jc.RefreshMargin)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if s3 := jc.S3; s3 != nil {
		setString(&cfg.S3.Region, s3.Region)
		setString(&cfg.S3.Endpoint, s3.Endpoint)
		setString(&cfg.S3.AccessKey, s3.AccessKey)
		setString(&cfg.S3.SecretKey, s3.SecretKey)
		setString(&cfg.S3.Bucket, s3.Bucket)
		setString(&cfg.S3.PublicBaseURL, s3.PublicBaseURL)
	}
	if oa := jc.OpenAI; oa != nil {
		setString(&cfg.OpenAI.APIKey, oa.APIKey)
		setString(&cfg.OpenAI.BaseURL, oa.BaseURL)
		setString(&cfg.OpenAI.Model, oa.Model)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
