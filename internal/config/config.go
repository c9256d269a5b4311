package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environments selecting the Content-Security-Policy strictness.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port int
	Env  string

	// PublicURL is the origin the browser sees, usually the HTTPS dev proxy.
	PublicURL string

	UAEPassClientID     string
	UAEPassClientSecret string
	UAEPassBaseURL      string
	UAEPassScope        string
	UAEPassACRValues    string
	UAEPassStateSecret  string
	UpstreamTimeout     time.Duration

	SessionTTL     time.Duration
	MaxUploadBytes int64
}

// Load reads configuration from environment variables and validates required fields.
func Load() (Config, error) {
	port, err := getEnvInt("PORT", 8002)
	if err != nil {
		return Config{}, fmt.Errorf("parse PORT: %w", err)
	}

	timeout, err := getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_TIMEOUT: %w", err)
	}

	ttl, err := getEnvDuration("SESSION_TTL", 2*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}

	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", 5<<20)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_UPLOAD_BYTES: %w", err)
	}

	cfg := Config{
		Port:                port,
		Env:                 getEnv("APP_ENV", EnvDevelopment),
		PublicURL:           strings.TrimSuffix(getEnv("PUBLIC_URL", "https://localhost:8000"), "/"),
		UAEPassClientID:     getEnv("UAE_PASS_CLIENT_ID", "sandbox_stage"),
		UAEPassClientSecret: getEnv("UAE_PASS_CLIENT_SECRET", "sandbox_stage"),
		UAEPassBaseURL:      strings.TrimSuffix(getEnv("UAE_PASS_BASE_URL", "https://stg-id.uaepass.ae/idshub"), "/"),
		UAEPassScope:        getEnv("UAE_PASS_SCOPE", "urn:uae:digitalid:profile:general"),
		UAEPassACRValues:    getEnv("UAE_PASS_ACR_VALUES", "urn:safelayer:tws:policies:authentication:level:low"),
		UAEPassStateSecret:  getEnv("UAE_PASS_STATE_SECRET", ""),
		UpstreamTimeout:     timeout,
		SessionTTL:          ttl,
		MaxUploadBytes:      int64(maxUpload),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// RedirectURL is the callback registered with UAE PASS.
func (c Config) RedirectURL() string {
	return c.PublicURL + "/callback"
}

// IsDevelopment reports whether the relaxed development CSP applies.
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func (c Config) validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if c.PublicURL == "" {
		return fmt.Errorf("PUBLIC_URL is required")
	}
	if c.UAEPassBaseURL == "" {
		return fmt.Errorf("UAE_PASS_BASE_URL is required")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}
