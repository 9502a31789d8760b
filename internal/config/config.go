package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// ForgeType identifies a source-control platform variant.
type ForgeType string

const (
	ForgeGitHub  ForgeType = "github"
	ForgeForgejo ForgeType = "forgejo"
	ForgeLocal   ForgeType = "local"
)

// AuthType identifies the forge authentication mechanism.
type AuthType string

const (
	AuthTypeToken AuthType = "token"
	AuthTypeNone  AuthType = "none"
)

// AuthConfig holds forge authentication settings. Tokens are referenced by
// environment variable name so config files stay free of secrets.
type AuthConfig struct {
	Type     AuthType `yaml:"type"`
	Token    string   `yaml:"token,omitempty"`
	TokenEnv string   `yaml:"token_env,omitempty"`
}

// ResolveToken returns the configured token, preferring the environment
// variable indirection over an inline value.
func (a *AuthConfig) ResolveToken() string {
	if a == nil {
		return ""
	}
	if a.TokenEnv != "" {
		if v := os.Getenv(a.TokenEnv); v != "" {
			return v
		}
	}
	return a.Token
}

// ForgeConfig describes one forge instance to watch.
type ForgeConfig struct {
	Name    string      `yaml:"name"`
	Type    ForgeType   `yaml:"type"`
	Domain  string      `yaml:"domain"`   // e.g. github.com, git.example.org
	BaseURL string      `yaml:"base_url"` // web UI base
	APIURL  string      `yaml:"api_url"`  // REST API base
	Path    string      `yaml:"path"`     // local variant: directory holding clones
	Auth    *AuthConfig `yaml:"auth"`
}

// LedgerConfig describes the attestation ledger read boundary.
type LedgerConfig struct {
	GraphQLURL          string        `yaml:"graphql_url"`
	IdentitySchemaID    string        `yaml:"identity_schema_id"`
	AttestationSchemaID string        `yaml:"attestation_schema_id"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
}

// SettlementConfig describes the delegated submission boundary.
type SettlementConfig struct {
	GatewayURL     string        `yaml:"gateway_url"`     // settlement gateway base URL
	TargetAddress  string        `yaml:"target_address"`  // the one target the credential covers
	SchemaAddress  string        `yaml:"schema_address"`  // contract emitting record events
	EventSignature string        `yaml:"event_signature"` // topic of the "record created" event
	CredentialEnv  string        `yaml:"credential_env"`  // env var holding the delegated credential
	ActionSelector string        `yaml:"action_selector"` // the single selector the credential covers
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"` // receipt polling cadence
}

// WatchConfig tunes discovery and submission behavior.
type WatchConfig struct {
	SkipOwners  []string      `yaml:"skip_owners"`  // owners never glob-expanded
	SubmitPause time.Duration `yaml:"submit_pause"` // fixed pause between submissions
}

// RateLimitConfig holds the per-identity submission quotas.
type RateLimitConfig struct {
	PerMinute     int           `yaml:"per_minute"`
	PerHour       int           `yaml:"per_hour"`
	PerDay        int           `yaml:"per_day"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// RetryConfig holds retry/backoff settings for transient failures.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	AbuseMinimum time.Duration `yaml:"abuse_minimum"`
}

// DaemonConfig holds scheduled-mode and HTTP settings.
type DaemonConfig struct {
	Interval  time.Duration `yaml:"interval"`
	HTTPPort  int           `yaml:"http_port"`
	AdminPort int           `yaml:"admin_port"`
	StateDB   string        `yaml:"state_db"` // sqlite path; ":memory:" for ephemeral
}

// NATSConfig holds optional event publishing settings.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Stream  string `yaml:"stream"`
}

// Config is the root configuration for attestbot.
type Config struct {
	Forges     []*ForgeConfig   `yaml:"forges"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Settlement SettlementConfig `yaml:"settlement"`
	Watch      WatchConfig      `yaml:"watch"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Retry      RetryConfig      `yaml:"retry"`
	Daemon     DaemonConfig     `yaml:"daemon"`
	NATS       NATSConfig       `yaml:"nats"`
}

// Load reads, defaults, and validates a configuration file. Environment
// files (.env, .env.local) are loaded first so token_env indirections
// resolve.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError("failed to read configuration file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.ConfigError("failed to parse configuration file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if len(c.Forges) == 0 {
		return errors.ConfigError("at least one forge must be configured").Build()
	}
	seen := make(map[string]bool, len(c.Forges))
	for _, f := range c.Forges {
		if f.Domain == "" {
			return errors.ConfigError("forge domain is required").
				WithContext("forge", f.Name).
				Build()
		}
		if seen[f.Domain] {
			return errors.ConfigError("duplicate forge domain").
				WithContext("domain", f.Domain).
				Build()
		}
		seen[f.Domain] = true
		switch f.Type {
		case ForgeGitHub, ForgeForgejo, ForgeLocal:
		default:
			return errors.ConfigError("unsupported forge type").
				WithContext("type", string(f.Type)).
				Build()
		}
	}
	if c.Ledger.GraphQLURL == "" {
		return errors.ConfigError("ledger graphql_url is required").Build()
	}
	if c.Ledger.IdentitySchemaID == "" || c.Ledger.AttestationSchemaID == "" {
		return errors.ConfigError("ledger schema ids are required").Build()
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.ConfigError("retry max_attempts must be at least 1").Build()
	}
	if c.Daemon.Interval <= 0 {
		return errors.ConfigError("daemon interval must be positive").Build()
	}
	return nil
}

// ForgeByDomain returns the forge configuration for a domain, or nil.
func (c *Config) ForgeByDomain(domain string) *ForgeConfig {
	for _, f := range c.Forges {
		if f.Domain == domain {
			return f
		}
	}
	return nil
}
