package forge

import (
	"context"
	"strings"
	"time"
)

// Repo identifies one repository on one forge.
type Repo struct {
	Domain string `json:"domain"`
	Owner  string `json:"owner"`
	Name   string `json:"name"`
}

// FullName returns the owner/name form.
func (r Repo) FullName() string {
	return r.Owner + "/" + r.Name
}

// Key returns the dedup key for resolved watch lists.
func (r Repo) Key() string {
	return r.Domain + ":" + r.Owner + "/" + r.Name
}

// CommitAuthor carries the authorship fields a forge exposes for a commit.
// Username is the platform account login when the forge can attribute the
// commit to one; it is empty for unattributed commits.
type CommitAuthor struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// Commit is an immutable record of one discovered commit.
type Commit struct {
	SHA       string       `json:"sha"`
	Author    CommitAuthor `json:"author"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"` // UTC
	Repo      Repo         `json:"repo"`
	URL       string       `json:"url,omitempty"` // web UI link, empty without one
}

// CommitWebURL builds the forge web link for a commit. Forges without a
// configured web UI base get no link.
func CommitWebURL(baseURL, owner, name, sha string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + owner + "/" + name + "/commit/" + sha
}

// Client is the polymorphic capability over forge platform variants.
//
// ListCommits returns only commits at or after since. Absence of a repo or
// insufficient access surfaces as a classified not-found/forbidden error
// carrying the transport status; callers branch on it (skip, not retry).
type Client interface {
	// Domain returns the forge domain this client serves.
	Domain() string

	// ListOrgRepos lists the public repositories of an organization.
	ListOrgRepos(ctx context.Context, owner string) ([]Repo, error)

	// ListUserRepos lists the public repositories of a user account.
	ListUserRepos(ctx context.Context, owner string) ([]Repo, error)

	// ListCommits lists commits on the default branch at or after since.
	ListCommits(ctx context.Context, owner, name string, since time.Time) ([]Commit, error)

	// GetCommit fetches a single commit by sha.
	GetCommit(ctx context.Context, owner, name, sha string) (*Commit, error)
}

// Registry resolves forge clients by domain, once per repo instead of
// re-checking platform strings throughout the pipeline.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Add registers a client under its domain.
func (r *Registry) Add(client Client) {
	r.clients[client.Domain()] = client
}

// ByDomain returns the client for a domain.
func (r *Registry) ByDomain(domain string) (Client, bool) {
	c, ok := r.clients[domain]
	return c, ok
}

// Domains returns all registered domains.
func (r *Registry) Domains() []string {
	domains := make([]string, 0, len(r.clients))
	for d := range r.clients {
		domains = append(domains, d)
	}
	return domains
}
