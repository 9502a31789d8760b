package forge

import (
	"context"
	"fmt"
	"net/url"
	"time"

	cfg "git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

const forgejoPageSize = 50

// ForgejoClient implements Client for Forgejo (Gitea-compatible API),
// covering generic self-hosted forges.
type ForgejoClient struct {
	*BaseForge
	config *cfg.ForgeConfig
}

// NewForgejoClient creates a new Forgejo client.
func NewForgejoClient(fg *cfg.ForgeConfig) (*ForgejoClient, error) {
	if fg.Type != cfg.ForgeForgejo {
		return nil, errors.ConfigError("invalid forge type for Forgejo client").
			WithContext("type", string(fg.Type)).
			Build()
	}
	if fg.APIURL == "" {
		return nil, errors.ConfigError("forgejo forge requires api_url").
			WithContext("forge", fg.Name).
			Build()
	}

	base := NewBaseForge(fg.APIURL, fg.Auth.ResolveToken())
	// Forgejo uses "token " auth prefix instead of "Bearer ".
	base.SetAuthHeaderPrefix("token ")

	return &ForgejoClient{BaseForge: base, config: fg}, nil
}

// Domain returns the forge domain.
func (c *ForgejoClient) Domain() string { return c.config.Domain }

// forgejoRepo represents a Forgejo repository.
type forgejoRepo struct {
	Name     string `json:"name"`
	Private  bool   `json:"private"`
	Archived bool   `json:"archived"`
	Owner    struct {
		Username string `json:"username"`
	} `json:"owner"`
}

// forgejoCommit represents an entry from the commits listing API.
type forgejoCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
}

// ListOrgRepos lists the public repositories of an organization.
func (c *ForgejoClient) ListOrgRepos(ctx context.Context, owner string) ([]Repo, error) {
	return c.listRepos(ctx, fmt.Sprintf("/orgs/%s/repos", url.PathEscape(owner)))
}

// ListUserRepos lists the public repositories of a user account.
func (c *ForgejoClient) ListUserRepos(ctx context.Context, owner string) ([]Repo, error) {
	return c.listRepos(ctx, fmt.Sprintf("/users/%s/repos", url.PathEscape(owner)))
}

func (c *ForgejoClient) listRepos(ctx context.Context, endpoint string) ([]Repo, error) {
	var all []Repo
	page := 1

	for {
		paged := fmt.Sprintf("%s?limit=%d&page=%d", endpoint, forgejoPageSize, page)
		req, err := c.NewRequest(ctx, paged)
		if err != nil {
			return nil, err
		}

		var repos []forgejoRepo
		if err := c.DoRequest(req, &repos); err != nil {
			return nil, err
		}
		if len(repos) == 0 {
			break
		}

		for _, r := range repos {
			if r.Private || r.Archived {
				continue
			}
			all = append(all, Repo{Domain: c.config.Domain, Owner: r.Owner.Username, Name: r.Name})
		}

		if len(repos) < forgejoPageSize {
			break
		}
		page++
	}
	return all, nil
}

// ListCommits lists default-branch commits at or after since.
func (c *ForgejoClient) ListCommits(ctx context.Context, owner, name string, since time.Time) ([]Commit, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/commits?since=%s&limit=%d",
		url.PathEscape(owner), url.PathEscape(name),
		url.QueryEscape(since.UTC().Format(time.RFC3339)), forgejoPageSize)

	req, err := c.NewRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw []forgejoCommit
	if err := c.DoRequest(req, &raw); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(raw))
	for _, fc := range raw {
		commit := c.convertCommit(&fc, owner, name)
		if commit.Timestamp.Before(since) {
			continue
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// GetCommit fetches a single commit by sha.
func (c *ForgejoClient) GetCommit(ctx context.Context, owner, name, sha string) (*Commit, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/commits/%s",
		url.PathEscape(owner), url.PathEscape(name), url.PathEscape(sha))

	req, err := c.NewRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var fc forgejoCommit
	if err := c.DoRequest(req, &fc); err != nil {
		return nil, err
	}

	commit := c.convertCommit(&fc, owner, name)
	return &commit, nil
}

func (c *ForgejoClient) convertCommit(fc *forgejoCommit, owner, name string) Commit {
	author := CommitAuthor{
		Name:  fc.Commit.Author.Name,
		Email: fc.Commit.Author.Email,
	}
	if fc.Author != nil {
		author.Username = fc.Author.Login
	}
	return Commit{
		SHA:       fc.SHA,
		Author:    author,
		Message:   fc.Commit.Message,
		Timestamp: fc.Commit.Author.Date.UTC(),
		Repo:      Repo{Domain: c.config.Domain, Owner: owner, Name: name},
		URL:       CommitWebURL(c.config.BaseURL, owner, name, fc.SHA),
	}
}
