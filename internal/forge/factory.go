package forge

import (
	cfg "git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// NewClient creates a forge client based on the configuration.
func NewClient(fg *cfg.ForgeConfig) (Client, error) {
	switch fg.Type {
	case cfg.ForgeGitHub:
		return NewGitHubClient(fg)
	case cfg.ForgeForgejo:
		return NewForgejoClient(fg)
	case cfg.ForgeLocal:
		return NewLocalClient(fg)
	default:
		return nil, errors.ConfigError("unsupported forge type").
			WithContext("type", string(fg.Type)).
			Build()
	}
}

// BuildRegistry creates a registry with one client per configured forge,
// keyed by domain.
func BuildRegistry(configs []*cfg.ForgeConfig) (*Registry, error) {
	registry := NewRegistry()
	for _, fg := range configs {
		client, err := NewClient(fg)
		if err != nil {
			return nil, errors.ForgeError("failed to create forge client").
				WithCause(err).
				WithContext("name", fg.Name).
				Build()
		}
		registry.Add(client)
	}
	return registry, nil
}
