package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration. It merges file defaults
// and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	IdentityAPIURL        string
	IdentitySecretKey     string
	IdentityWebhookSecret string

	SessionPublicKeyPEM      string
	AllowEphemeralSessionKey bool

	DefaultRole   string
	ListPageLimit int

	WebhookTolerance time.Duration
	ReplayTTL        time.Duration

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay
// internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Identity struct {
		APIURL        string `yaml:"api_url"`
		SecretKey     string `yaml:"secret_key"`
		WebhookSecret string `yaml:"webhook_secret"`
	} `yaml:"identity"`
}

// LoadConfig resolves configuration in priority order: defaults ->
// file -> env. This order keeps local bootstrap simple while allowing
// environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                "closedesk-transaction-service",
		HTTPPort:                 8080,
		GRPCPort:                 9090,
		IdentityAPIURL:           "https://api.clerk.com",
		AllowEphemeralSessionKey: true,
		DefaultRole:              "agent",
		ListPageLimit:            100,
		WebhookTolerance:         5 * time.Minute,
		ReplayTTL:                24 * time.Hour,
		MaxDBConns:               20,
		OutboxPollInterval:       2 * time.Second,
		OutboxBatchSize:          100,
		OutboxClaimTTL:           30 * time.Second,
		OutboxMaxRetries:         5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Identity.APIURL != "" {
			cfg.IdentityAPIURL = f.Identity.APIURL
		}
		if f.Identity.SecretKey != "" {
			cfg.IdentitySecretKey = f.Identity.SecretKey
		}
		if f.Identity.WebhookSecret != "" {
			cfg.IdentityWebhookSecret = f.Identity.WebhookSecret
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.IdentityAPIURL = envOrDefault("IDENTITY_API_URL", cfg.IdentityAPIURL)
	cfg.IdentitySecretKey = envOrDefault("IDENTITY_SECRET_KEY", cfg.IdentitySecretKey)
	cfg.IdentityWebhookSecret = envOrDefault("IDENTITY_WEBHOOK_SECRET", cfg.IdentityWebhookSecret)
	cfg.SessionPublicKeyPEM = envOrDefault("SESSION_JWT_PUBLIC_KEY_PEM", cfg.SessionPublicKeyPEM)
	cfg.AllowEphemeralSessionKey = envBool("SESSION_JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralSessionKey)
	cfg.DefaultRole = envOrDefault("DEFAULT_ROLE", cfg.DefaultRole)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.ListPageLimit = envInt("LIST_PAGE_LIMIT", cfg.ListPageLimit)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.WebhookTolerance = time.Duration(envInt("WEBHOOK_TOLERANCE_SECONDS", int(cfg.WebhookTolerance.Seconds()))) * time.Second
	cfg.ReplayTTL = time.Duration(envInt("WEBHOOK_REPLAY_TTL_HOURS", int(cfg.ReplayTTL.Hours()))) * time.Hour
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.IdentitySecretKey == "" {
		return Config{}, fmt.Errorf("missing IDENTITY_SECRET_KEY")
	}
	if cfg.IdentityWebhookSecret == "" {
		return Config{}, fmt.Errorf("missing IDENTITY_WEBHOOK_SECRET")
	}
	if cfg.SessionPublicKeyPEM == "" && !cfg.AllowEphemeralSessionKey {
		return Config{}, fmt.Errorf("missing SESSION_JWT_PUBLIC_KEY_PEM")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
