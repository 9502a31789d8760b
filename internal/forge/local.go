package forge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	cfg "git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// LocalClient reads commits straight from local clones laid out as
// <path>/<owner>/<name>. It serves self-hosted mirrors synced out of band
// and doubles as a hermetic fixture for integration tests, with no forge
// API in the loop.
//
// Local commits carry no platform account, so the username is derived from
// the author email's local part; registrations against a local forge use
// that convention.
type LocalClient struct {
	config *cfg.ForgeConfig
	root   string
}

// NewLocalClient creates a local clone-backed client.
func NewLocalClient(fg *cfg.ForgeConfig) (*LocalClient, error) {
	if fg.Type != cfg.ForgeLocal {
		return nil, errors.ConfigError("invalid forge type for local client").
			WithContext("type", string(fg.Type)).
			Build()
	}
	if fg.Path == "" {
		return nil, errors.ConfigError("local forge requires path").
			WithContext("forge", fg.Name).
			Build()
	}
	return &LocalClient{config: fg, root: fg.Path}, nil
}

// Domain returns the forge domain.
func (c *LocalClient) Domain() string { return c.config.Domain }

// ListOrgRepos lists clone directories under the owner directory.
func (c *LocalClient) ListOrgRepos(_ context.Context, owner string) ([]Repo, error) {
	ownerDir := filepath.Join(c.root, owner)
	entries, err := os.ReadDir(ownerDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError("local owner directory not found").
				WithStatus(404).
				WithContext("owner", owner).
				Build()
		}
		return nil, errors.ForgeError("failed to read local owner directory").
			WithCause(err).
			WithContext("owner", owner).
			Build()
	}

	var repos []Repo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := git.PlainOpen(filepath.Join(ownerDir, e.Name())); err != nil {
			continue // not a git repository
		}
		repos = append(repos, Repo{Domain: c.config.Domain, Owner: owner, Name: e.Name()})
	}
	return repos, nil
}

// ListUserRepos is identical to ListOrgRepos for the local layout.
func (c *LocalClient) ListUserRepos(ctx context.Context, owner string) ([]Repo, error) {
	return c.ListOrgRepos(ctx, owner)
}

// ListCommits walks the clone's history at or after since.
func (c *LocalClient) ListCommits(_ context.Context, owner, name string, since time.Time) ([]Commit, error) {
	repo, err := c.open(owner, name)
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.ForgeError("failed to resolve HEAD").
			WithCause(err).
			WithContext("repo", owner+"/"+name).
			Build()
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Since: &since})
	if err != nil {
		return nil, errors.ForgeError("failed to walk commit log").
			WithCause(err).
			WithContext("repo", owner+"/"+name).
			Build()
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(gc *object.Commit) error {
		if gc.Author.When.Before(since) {
			return nil
		}
		commits = append(commits, c.convertCommit(gc, owner, name))
		return nil
	})
	if err != nil {
		return nil, errors.ForgeError("commit iteration failed").
			WithCause(err).
			WithContext("repo", owner+"/"+name).
			Build()
	}
	return commits, nil
}

// GetCommit fetches a single commit by sha.
func (c *LocalClient) GetCommit(_ context.Context, owner, name, sha string) (*Commit, error) {
	repo, err := c.open(owner, name)
	if err != nil {
		return nil, err
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(sha))
	if err != nil {
		return nil, errors.NotFoundError("commit not found").
			WithStatus(404).
			WithContext("sha", sha).
			Build()
	}
	gc, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, errors.NotFoundError("commit not found").
			WithStatus(404).
			WithContext("sha", sha).
			Build()
	}

	commit := c.convertCommit(gc, owner, name)
	return &commit, nil
}

func (c *LocalClient) open(owner, name string) (*git.Repository, error) {
	repo, err := git.PlainOpen(filepath.Join(c.root, owner, name))
	if err != nil {
		return nil, errors.NotFoundError("local repository not found").
			WithStatus(404).
			WithContext("repo", owner+"/"+name).
			Build()
	}
	return repo, nil
}

func (c *LocalClient) convertCommit(gc *object.Commit, owner, name string) Commit {
	email := gc.Author.Email
	username := email
	if idx := strings.Index(email, "@"); idx > 0 {
		username = email[:idx]
	}
	return Commit{
		SHA:       gc.Hash.String(),
		Author:    CommitAuthor{Name: gc.Author.Name, Email: email, Username: username},
		Message:   strings.TrimRight(gc.Message, "\n"),
		Timestamp: gc.Author.When.UTC(),
		Repo:      Repo{Domain: c.config.Domain, Owner: owner, Name: name},
	}
}
