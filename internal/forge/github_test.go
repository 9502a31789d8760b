package forge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cfg "git.home.luguber.info/inful/attestbot/internal/config"
)

func newGitHubTestClient(t *testing.T, handler http.Handler) *GitHubClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGitHubClient(&cfg.ForgeConfig{
		Name:    "test",
		Type:    cfg.ForgeGitHub,
		Domain:  "github.com",
		APIURL:  srv.URL,
		BaseURL: "https://github.com",
		Auth:    &cfg.AuthConfig{Type: cfg.AuthTypeToken, Token: "tok"},
	})
	require.NoError(t, err)
	return client
}

func TestGitHubListOrgRepos(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[
			{"name":"repo-x","owner":{"login":"acme"}},
			{"name":"old","archived":true,"owner":{"login":"acme"}},
			{"name":"repo-y","owner":{"login":"acme"}}
		]`))
	})

	client := newGitHubTestClient(t, mux)
	repos, err := client.ListOrgRepos(context.Background(), "acme")
	require.NoError(t, err)
	require.Equal(t, []Repo{
		{Domain: "github.com", Owner: "acme", Name: "repo-x"},
		{Domain: "github.com", Owner: "acme", Name: "repo-y"},
	}, repos)
}

func TestGitHubListCommitsFiltersSince(t *testing.T) {
	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/repo-x/commits", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, since.Format(time.RFC3339), r.URL.Query().Get("since"))
		w.Write([]byte(`[
			{"sha":"aaa","commit":{"message":"new","author":{"name":"Alice","email":"a@example.org","date":"2026-02-02T10:00:00Z"}},"author":{"login":"alice"}},
			{"sha":"bbb","commit":{"message":"stale","author":{"name":"Alice","email":"a@example.org","date":"2026-01-01T10:00:00Z"}},"author":{"login":"alice"}},
			{"sha":"ccc","commit":{"message":"anon","author":{"name":"Ghost","email":"g@example.org","date":"2026-02-03T10:00:00Z"}},"author":null}
		]`))
	})

	client := newGitHubTestClient(t, mux)
	commits, err := client.ListCommits(context.Background(), "acme", "repo-x", since)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	require.Equal(t, "aaa", commits[0].SHA)
	require.Equal(t, "alice", commits[0].Author.Username)
	require.Equal(t, "anon", commits[1].Message)
	require.Empty(t, commits[1].Author.Username, "unattributed commits carry no username")
}

func TestGitHubNotFoundIsTyped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	client := newGitHubTestClient(t, mux)
	_, err := client.ListCommits(context.Background(), "acme", "gone", time.Now())
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.True(t, IsSkippable(err))
}

func TestGitHubAbuseDetectionIsNotSkippable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"You have triggered an abuse detection mechanism."}`, http.StatusForbidden)
	})

	client := newGitHubTestClient(t, mux)
	_, err := client.ListCommits(context.Background(), "acme", "busy", time.Now())
	require.Error(t, err)
	require.False(t, IsSkippable(err), "abuse 403 is a throttle, not an access answer")
	require.False(t, IsForbidden(err))
}

func TestGitHubGetCommit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/repo-x/commits/abc123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sha":"abc123","commit":{"message":"fix","author":{"name":"Alice","email":"a@example.org","date":"2026-02-02T10:00:00Z"}},"author":{"login":"Alice"}}`))
	})

	client := newGitHubTestClient(t, mux)
	commit, err := client.GetCommit(context.Background(), "acme", "repo-x", "abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", commit.SHA)
	require.Equal(t, "Alice", commit.Author.Username)
	require.Equal(t, "github.com", commit.Repo.Domain)
	require.Equal(t, "https://github.com/acme/repo-x/commit/abc123", commit.URL)
}

func TestCommitWebURL(t *testing.T) {
	require.Equal(t, "https://git.example.org/acme/repo-x/commit/abc",
		CommitWebURL("https://git.example.org/", "acme", "repo-x", "abc"))
	require.Empty(t, CommitWebURL("", "acme", "repo-x", "abc"))
}
