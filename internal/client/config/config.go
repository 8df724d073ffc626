package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// S3 locates the avatar bucket. Empty Bucket disables avatar upload.
type S3 struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

// OpenAI configures the model responder. Empty APIKey keeps the fixed
// template reply.
type OpenAI struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Config holds runtime settings for the Kumo client.
type Config struct {
	// BackendURL is the base URL of the hosted backend (auth + tables).
	BackendURL string
	AnonKey    string

	// PostgresDSN, when set, sends table calls straight to Postgres instead
	// of the REST API. Auth still goes through BackendURL.
	PostgresDSN string
	// PostgresMigrate applies the remote schema before starting.
	PostgresMigrate bool

	// Demo runs against the in-memory gateway; no backend is needed.
	Demo bool

	WebhookURL     string
	WebhookTestURL string

	DataDir       string
	SessionSecret string

	RequestTimeout      time.Duration
	WebhookTimeout      time.Duration
	OnlineCheckInterval time.Duration
	RefreshMargin       time.Duration

	LogLevel  string
	LogFormat string

	S3     S3
	OpenAI OpenAI
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:54321"
	c.DataDir = defaultDataDir()
	c.RequestTimeout = 15 * time.Second
	c.WebhookTimeout = 10 * time.Second
	c.OnlineCheckInterval = 5 * time.Second
	c.RefreshMargin = time.Minute
	c.LogLevel = "warn"
	c.LogFormat = "text"
	c.S3.Region = "us-east-1"
	c.OpenAI.Model = "gpt-4o-mini"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "kumo")
	}
	return ".kumo"
}

// Validate reports settings the client cannot start with.
func (c *Config) Validate() error {
	if c.Demo {
		return nil
	}
	var errs []error
	if c.BackendURL == "" {
		errs = append(errs, errors.New("backend url is required"))
	}
	if c.AnonKey == "" {
		errs = append(errs, errors.New("anon key is required (set KUMO_ANON_KEY or -k)"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Load builds a Config from defaults, then the JSON file named by -c/-config
// in args, then environment variables, then flags. Later sources win.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	parseEnv(cfg, getenv)
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.Getenv)
}
