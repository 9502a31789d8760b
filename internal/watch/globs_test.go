package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/attestbot/internal/forge"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
	"git.home.luguber.info/inful/attestbot/internal/ledger"
)

// fakeForge is an in-memory forge.Client for resolver and matcher tests.
type fakeForge struct {
	domain    string
	orgRepos  map[string][]forge.Repo
	userRepos map[string][]forge.Repo
	commits   map[string][]forge.Commit // keyed by owner/name
	orgCalls  int
}

func (f *fakeForge) Domain() string { return f.domain }

func (f *fakeForge) ListOrgRepos(_ context.Context, owner string) ([]forge.Repo, error) {
	f.orgCalls++
	repos, ok := f.orgRepos[owner]
	if !ok {
		return nil, errors.NotFoundError("org not found").WithStatus(404).Build()
	}
	return repos, nil
}

func (f *fakeForge) ListUserRepos(_ context.Context, owner string) ([]forge.Repo, error) {
	repos, ok := f.userRepos[owner]
	if !ok {
		return nil, errors.NotFoundError("user not found").WithStatus(404).Build()
	}
	return repos, nil
}

func (f *fakeForge) ListCommits(_ context.Context, owner, name string, since time.Time) ([]forge.Commit, error) {
	var out []forge.Commit
	for _, c := range f.commits[owner+"/"+name] {
		if !c.Timestamp.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeForge) GetCommit(_ context.Context, owner, name, sha string) (*forge.Commit, error) {
	for _, c := range f.commits[owner+"/"+name] {
		if c.SHA == sha {
			return &c, nil
		}
	}
	return nil, errors.NotFoundError("commit not found").WithStatus(404).Build()
}

func repo(domain, owner, name string) forge.Repo {
	return forge.Repo{Domain: domain, Owner: owner, Name: name}
}

// TestResolveGlobIdempotence: expanding acme/* alongside a literal already
// covered by the expansion yields no duplicates.
func TestResolveGlobIdempotence(t *testing.T) {
	client := &fakeForge{
		domain: "github.com",
		orgRepos: map[string][]forge.Repo{
			"acme": {repo("github.com", "acme", "repo-x"), repo("github.com", "acme", "repo-y")},
		},
	}

	resolver := NewGlobResolver(client)
	repos := resolver.Resolve(context.Background(), []string{"acme/*", "acme/repo-x"}, nil, nil)

	require.Equal(t, []forge.Repo{
		repo("github.com", "acme", "repo-x"),
		repo("github.com", "acme", "repo-y"),
	}, repos)
}

// TestResolveInvalidGlobPolicy: a wildcard owner is dropped without error.
func TestResolveInvalidGlobPolicy(t *testing.T) {
	client := &fakeForge{domain: "github.com"}
	resolver := NewGlobResolver(client)

	repos := resolver.Resolve(context.Background(), []string{"*/anything", "acme/one"}, nil, nil)
	require.Equal(t, []forge.Repo{repo("github.com", "acme", "one")}, repos)
}

// TestResolveOrgFallsBackToUser: an empty org listing falls back to the
// user listing.
func TestResolveOrgFallsBackToUser(t *testing.T) {
	client := &fakeForge{
		domain:    "github.com",
		userRepos: map[string][]forge.Repo{"alice": {repo("github.com", "alice", "dotfiles")}},
	}

	resolver := NewGlobResolver(client)
	repos := resolver.Resolve(context.Background(), []string{"alice/*"}, nil, nil)
	require.Equal(t, []forge.Repo{repo("github.com", "alice", "dotfiles")}, repos)
}

// TestResolveSkipOwnersAndSingleExpansion: skip owners are never expanded,
// and a repeated owner/* expands only once per call.
func TestResolveSkipOwnersAndSingleExpansion(t *testing.T) {
	client := &fakeForge{
		domain: "github.com",
		orgRepos: map[string][]forge.Repo{
			"acme": {repo("github.com", "acme", "repo-x")},
			"evil": {repo("github.com", "evil", "spam")},
		},
	}

	resolver := NewGlobResolver(client)
	repos := resolver.Resolve(context.Background(),
		[]string{"evil/*", "acme/*", "acme/*"}, []string{"Evil"}, nil)

	require.Equal(t, []forge.Repo{repo("github.com", "acme", "repo-x")}, repos)
	require.Equal(t, 1, client.orgCalls, "acme must be expanded once, evil never")
}

// TestResolveAllDedupsAcrossIdentities verifies the global dedup the run
// loop relies on.
func TestResolveAllDedupsAcrossIdentities(t *testing.T) {
	client := &fakeForge{
		domain: "github.com",
		orgRepos: map[string][]forge.Repo{
			"acme": {repo("github.com", "acme", "repo-x")},
		},
	}
	registry := forge.NewRegistry()
	registry.Add(client)

	identities := []ledger.RegisteredIdentity{
		{Domain: "github.com", Username: "alice", RepoGlobs: []string{"acme/*"}},
		{Domain: "github.com", Username: "bob", RepoGlobs: []string{"acme/repo-x", "acme/repo-z"}},
		{Domain: "unknown.example", Username: "carol", RepoGlobs: []string{"any/*"}},
	}

	repos := ResolveAll(context.Background(), registry, identities, nil)
	require.Equal(t, []forge.Repo{
		repo("github.com", "acme", "repo-x"),
		repo("github.com", "acme", "repo-z"),
	}, repos)
}
