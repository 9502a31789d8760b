package watch

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/attestbot/internal/forge"
	"git.home.luguber.info/inful/attestbot/internal/ledger"
	"git.home.luguber.info/inful/attestbot/internal/logfields"
)

// GlobResolver expands repo watch globs into concrete repository lists
// using one forge client.
type GlobResolver struct {
	client forge.Client
}

// NewGlobResolver creates a resolver bound to a forge client.
func NewGlobResolver(client forge.Client) *GlobResolver {
	return &GlobResolver{client: client}
}

// Resolve expands globs in order. `owner/*` lists the owner's public repos
// (org listing, falling back to the user listing when empty); `owner/name`
// is literal. A wildcard owner (`*/...`) is unsupported policy, logged and
// skipped, never an error. Output order is stable first-seen order and the
// dedup set carries across calls that share it.
func (r *GlobResolver) Resolve(ctx context.Context, globs, skipOwners []string, seen map[string]bool) []forge.Repo {
	if seen == nil {
		seen = make(map[string]bool)
	}
	skip := make(map[string]bool, len(skipOwners))
	for _, owner := range skipOwners {
		skip[strings.ToLower(owner)] = true
	}
	expanded := make(map[string]bool)

	var repos []forge.Repo
	appendRepo := func(repo forge.Repo) {
		if key := repo.Key(); !seen[key] {
			seen[key] = true
			repos = append(repos, repo)
		}
	}

	for _, glob := range globs {
		glob = strings.TrimSpace(glob)
		if glob == "" {
			continue
		}
		if strings.HasPrefix(glob, "*/") {
			slog.Warn("wildcard owners are unsupported, skipping glob", logfields.Glob(glob))
			continue
		}

		owner, pattern, found := strings.Cut(glob, "/")
		if !found || owner == "" || pattern == "" {
			slog.Warn("malformed repo glob, skipping", logfields.Glob(glob))
			continue
		}

		if pattern != "*" {
			appendRepo(forge.Repo{Domain: r.client.Domain(), Owner: owner, Name: pattern})
			continue
		}

		if skip[strings.ToLower(owner)] || expanded[owner] {
			continue
		}
		expanded[owner] = true

		for _, repo := range r.expandOwner(ctx, owner) {
			appendRepo(repo)
		}
	}
	return repos
}

// expandOwner lists an owner's repositories, preferring the org listing and
// falling back to the user listing when the org answer is empty or absent.
func (r *GlobResolver) expandOwner(ctx context.Context, owner string) []forge.Repo {
	repos, err := r.client.ListOrgRepos(ctx, owner)
	if err != nil && !forge.IsSkippable(err) {
		slog.Warn("org repo listing failed",
			logfields.Owner(owner),
			logfields.Error(err))
	}
	if len(repos) > 0 {
		return repos
	}

	repos, err = r.client.ListUserRepos(ctx, owner)
	if err != nil {
		if !forge.IsSkippable(err) {
			slog.Warn("user repo listing failed",
				logfields.Owner(owner),
				logfields.Error(err))
		}
		return nil
	}
	return repos
}

// ResolveAll expands the watch globs of every identity, deduped globally
// across identities, in stable first-seen order.
func ResolveAll(ctx context.Context, registry *forge.Registry, identities []ledger.RegisteredIdentity, skipOwners []string) []forge.Repo {
	seen := make(map[string]bool)
	var repos []forge.Repo
	for _, identity := range identities {
		client, ok := registry.ByDomain(identity.Domain)
		if !ok {
			slog.Warn("no forge configured for identity domain",
				logfields.Domain(identity.Domain),
				logfields.Username(identity.Username))
			continue
		}
		resolver := NewGlobResolver(client)
		repos = append(repos, resolver.Resolve(ctx, identity.RepoGlobs, skipOwners, seen)...)
	}
	return repos
}
