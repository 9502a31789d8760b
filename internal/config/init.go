package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// Init writes a starter configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	exampleConfig := Config{
		Forges: []*ForgeConfig{
			{
				Name:   "github",
				Type:   ForgeGitHub,
				Domain: "github.com",
				Auth: &AuthConfig{
					Type:     AuthTypeToken,
					TokenEnv: "GITHUB_TOKEN",
				},
			},
			{
				Name:    "internal-forgejo",
				Type:    ForgeForgejo,
				Domain:  "git.example.org",
				BaseURL: "https://git.example.org",
				APIURL:  "https://git.example.org/api/v1",
			},
		},
		Ledger: LedgerConfig{
			GraphQLURL:          "https://easscan.example.org/graphql",
			IdentitySchemaID:    "0xIDENTITY_SCHEMA",
			AttestationSchemaID: "0xATTESTATION_SCHEMA",
		},
		Settlement: SettlementConfig{
			GatewayURL:     "https://settlement.example.org",
			TargetAddress:  "0xDELEGATE_TARGET",
			SchemaAddress:  "0xSCHEMA_CONTRACT",
			EventSignature: "0xRECORD_CREATED_TOPIC",
			CredentialEnv:  "ATTESTBOT_CREDENTIAL",
			ActionSelector: "attestByDelegation",
		},
		Watch: WatchConfig{
			SkipOwners:  []string{"forks-and-mirrors"},
			SubmitPause: 2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 5,
			PerHour:   50,
			PerDay:    200,
		},
		Daemon: DaemonConfig{
			Interval: 10 * time.Minute,
			HTTPPort: 8080,
			StateDB:  "attestbot.db",
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return errors.ConfigError("failed to marshal starter configuration").
			WithCause(err).
			Build()
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.ConfigError("failed to write configuration file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}
	return nil
}
