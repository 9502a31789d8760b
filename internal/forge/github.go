package forge

import (
	"context"
	"fmt"
	"net/url"
	"time"

	cfg "git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

const githubPageSize = 100

// GitHubClient implements Client for GitHub and GitHub-shaped APIs.
type GitHubClient struct {
	*BaseForge
	config *cfg.ForgeConfig
}

// NewGitHubClient creates a new GitHub client.
func NewGitHubClient(fg *cfg.ForgeConfig) (*GitHubClient, error) {
	if fg.Type != cfg.ForgeGitHub {
		return nil, errors.ConfigError("invalid forge type for GitHub client").
			WithContext("type", string(fg.Type)).
			Build()
	}

	base := NewBaseForge(fg.APIURL, fg.Auth.ResolveToken())
	base.SetCustomHeader("Accept", "application/vnd.github+json")
	base.SetCustomHeader("X-GitHub-Api-Version", "2022-11-28")

	return &GitHubClient{BaseForge: base, config: fg}, nil
}

// Domain returns the forge domain.
func (c *GitHubClient) Domain() string { return c.config.Domain }

// githubRepo represents a GitHub repository.
type githubRepo struct {
	Name     string `json:"name"`
	Archived bool   `json:"archived"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// githubCommit represents an entry from the commits listing API.
type githubCommit struct {
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
	} `json:"author"` // null when GitHub cannot attribute the commit
}

// ListOrgRepos lists the public repositories of an organization.
func (c *GitHubClient) ListOrgRepos(ctx context.Context, owner string) ([]Repo, error) {
	return c.listRepos(ctx, fmt.Sprintf("/orgs/%s/repos", url.PathEscape(owner)))
}

// ListUserRepos lists the public repositories of a user account.
func (c *GitHubClient) ListUserRepos(ctx context.Context, owner string) ([]Repo, error) {
	return c.listRepos(ctx, fmt.Sprintf("/users/%s/repos", url.PathEscape(owner)))
}

func (c *GitHubClient) listRepos(ctx context.Context, endpoint string) ([]Repo, error) {
	var all []Repo
	page := 1

	for {
		paged := fmt.Sprintf("%s?type=public&per_page=%d&page=%d", endpoint, githubPageSize, page)
		req, err := c.NewRequest(ctx, paged)
		if err != nil {
			return nil, err
		}

		var repos []githubRepo
		if err := c.DoRequest(req, &repos); err != nil {
			return nil, err
		}
		if len(repos) == 0 {
			break
		}

		for _, r := range repos {
			if r.Archived {
				continue
			}
			all = append(all, Repo{Domain: c.config.Domain, Owner: r.Owner.Login, Name: r.Name})
		}

		if len(repos) < githubPageSize {
			break
		}
		page++
	}
	return all, nil
}

// ListCommits lists default-branch commits at or after since.
func (c *GitHubClient) ListCommits(ctx context.Context, owner, name string, since time.Time) ([]Commit, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/commits?since=%s&per_page=%d",
		url.PathEscape(owner), url.PathEscape(name),
		url.QueryEscape(since.UTC().Format(time.RFC3339)), githubPageSize)

	req, err := c.NewRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw []githubCommit
	if err := c.DoRequest(req, &raw); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(raw))
	for _, gc := range raw {
		commit := c.convertCommit(&gc, owner, name)
		// The since parameter is a lower bound serverside already, but the
		// contract here is strict: never return anything older.
		if commit.Timestamp.Before(since) {
			continue
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// GetCommit fetches a single commit by sha.
func (c *GitHubClient) GetCommit(ctx context.Context, owner, name, sha string) (*Commit, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/commits/%s",
		url.PathEscape(owner), url.PathEscape(name), url.PathEscape(sha))

	req, err := c.NewRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var gc githubCommit
	if err := c.DoRequest(req, &gc); err != nil {
		return nil, err
	}

	commit := c.convertCommit(&gc, owner, name)
	return &commit, nil
}

func (c *GitHubClient) convertCommit(gc *githubCommit, owner, name string) Commit {
	author := CommitAuthor{
		Name:  gc.Commit.Author.Name,
		Email: gc.Commit.Author.Email,
	}
	if gc.Author != nil {
		author.Username = gc.Author.Login
	}
	return Commit{
		SHA:       gc.SHA,
		Author:    author,
		Message:   gc.Commit.Message,
		Timestamp: gc.Commit.Author.Date.UTC(),
		Repo:      Repo{Domain: c.config.Domain, Owner: owner, Name: name},
		URL:       CommitWebURL(c.config.BaseURL, owner, name, gc.SHA),
	}
}
