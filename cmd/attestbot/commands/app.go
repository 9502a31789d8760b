package commands

import (
	"log/slog"
	"os"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/attestbot/internal/attest"
	"git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/forge"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
	"git.home.luguber.info/inful/attestbot/internal/ledger"
	"git.home.luguber.info/inful/attestbot/internal/logfields"
	"git.home.luguber.info/inful/attestbot/internal/metrics"
	"git.home.luguber.info/inful/attestbot/internal/quota"
	"git.home.luguber.info/inful/attestbot/internal/retry"
	"git.home.luguber.info/inful/attestbot/internal/runner"
)

// app bundles the wired services both the run and daemon commands need.
type app struct {
	cfg        *config.Config
	registry   *forge.Registry
	identities *ledger.IdentityResolver
	attested   *ledger.AttestedCommits
	limiter    *quota.Limiter
	store      runner.Store
	publisher  runner.Publisher
	registrar  *prom.Registry
	runner     *runner.Runner
	submitter  *attest.Submitter
}

// buildApp loads the config and wires the full pipeline.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	registry, err := forge.BuildRegistry(cfg.Forges)
	if err != nil {
		return nil, err
	}

	ledgerClient := ledger.NewClient(cfg.Ledger)
	identities := ledger.NewIdentityResolver(ledgerClient, cfg.Ledger.IdentitySchemaID)
	attested := ledger.NewAttestedCommits(ledgerClient, cfg.Ledger.AttestationSchemaID)

	limiter := quota.NewLimiter(quota.Limits{
		PerMinute: cfg.RateLimit.PerMinute,
		PerHour:   cfg.RateLimit.PerHour,
		PerDay:    cfg.RateLimit.PerDay,
	})

	credential := attest.DelegatedCredential{
		Secret:         os.Getenv(cfg.Settlement.CredentialEnv),
		TargetAddress:  cfg.Settlement.TargetAddress,
		ActionSelector: cfg.Settlement.ActionSelector,
	}
	if credential.Secret == "" {
		return nil, errors.ConfigError("delegated credential not set").
			WithContext("env", cfg.Settlement.CredentialEnv).
			Build()
	}

	policy := retry.NewPolicy(cfg.Retry)
	settlement := attest.NewHTTPSettlementClient(cfg.Settlement)
	submitter := attest.NewSubmitter(settlement, credential, policy, cfg.Settlement)

	store, err := runner.NewSQLiteStore(cfg.Daemon.StateDB)
	if err != nil {
		return nil, errors.ConfigError("failed to open state database").
			WithCause(err).
			WithContext("path", cfg.Daemon.StateDB).
			Build()
	}

	var publisher runner.Publisher = runner.NoopPublisher{}
	if cfg.NATS.Enabled {
		p, err := runner.NewNATSPublisher(cfg.NATS)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		publisher = p
	}

	registrar := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registrar)

	r := runner.NewRunner(runner.Deps{
		Registry:    registry,
		Identities:  identities,
		Attested:    attested,
		Submitter:   submitter,
		Limiter:     limiter,
		Store:       store,
		Publisher:   publisher,
		Recorder:    recorder,
		Policy:      policy,
		SkipOwners:  cfg.Watch.SkipOwners,
		SubmitPause: cfg.Watch.SubmitPause,
	})

	return &app{
		cfg:        cfg,
		registry:   registry,
		identities: identities,
		attested:   attested,
		limiter:    limiter,
		store:      store,
		publisher:  publisher,
		registrar:  registrar,
		runner:     r,
		submitter:  submitter,
	}, nil
}

// close releases held resources; safe to call once.
func (a *app) close() {
	a.publisher.Close()
	if err := a.store.Close(); err != nil {
		slog.Warn("closing state database failed", logfields.Error(err))
	}
}
