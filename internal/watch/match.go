package watch

import (
	"strings"

	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/attestbot/internal/forge"
	"git.home.luguber.info/inful/attestbot/internal/ledger"
)

// fold canonicalizes usernames for case-insensitive comparison.
var fold = cases.Fold()

// ExtractUsername pulls the candidate platform username out of a commit.
// Adapters fill Author.Username only when the platform attributed the
// commit to an account; adapters with other conventions supply their own
// extractor.
type ExtractUsername func(forge.Commit) string

// DefaultExtractUsername reads the adapter-populated username field.
func DefaultExtractUsername(c forge.Commit) string {
	return c.Author.Username
}

// Match pairs one discovered commit with the identity it belongs to.
type Match struct {
	Commit   forge.Commit
	Identity ledger.RegisteredIdentity
}

// Matcher maps commits to registered identities. Matching is strict: the
// candidate username must be present and equal (case-insensitively) a
// registered identity's username on the same domain. Commits without an
// extractable username are dropped, never matched by email or display name.
type Matcher struct {
	byKey map[string]ledger.RegisteredIdentity
}

// NewMatcher indexes identities by (domain, folded username).
func NewMatcher(identities []ledger.RegisteredIdentity) *Matcher {
	byKey := make(map[string]ledger.RegisteredIdentity, len(identities))
	for _, identity := range identities {
		byKey[identityKey(identity.Domain, identity.Username)] = identity
	}
	return &Matcher{byKey: byKey}
}

func identityKey(domain, username string) string {
	return domain + "\x00" + fold.String(username)
}

// Match looks up the identity for one commit.
func (m *Matcher) Match(commit forge.Commit, extract ExtractUsername) (ledger.RegisteredIdentity, bool) {
	if extract == nil {
		extract = DefaultExtractUsername
	}
	username := extract(commit)
	if username == "" {
		return ledger.RegisteredIdentity{}, false
	}
	identity, ok := m.byKey[identityKey(commit.Repo.Domain, username)]
	return identity, ok
}

// MatchAll filters commits through the dedup filter and pairs the
// survivors with identities. Unmatched commits disappear silently; they are
// somebody else's work.
func (m *Matcher) MatchAll(commits []forge.Commit, filter *DedupFilter, extract ExtractUsername) []Match {
	var matches []Match
	for _, commit := range filter.FilterNew(commits) {
		if identity, ok := m.Match(commit, extract); ok {
			matches = append(matches, Match{Commit: commit, Identity: identity})
		}
	}
	return matches
}

// DedupFilter removes commits that are already recorded on the ledger or
// already surfaced earlier in the same run. Both checks are required: the
// ledger set catches cross-run duplicates (e.g. after a crash), the in-run
// set catches the same commit surfacing twice within one discovery pass.
type DedupFilter struct {
	ledgerSHAs  map[string]bool
	seenThisRun map[string]bool
}

// NewDedupFilter creates a filter seeded with the ledger's known shas.
// The in-run set starts empty and lives exactly as long as the filter.
func NewDedupFilter(ledgerSHAs map[string]bool) *DedupFilter {
	if ledgerSHAs == nil {
		ledgerSHAs = make(map[string]bool)
	}
	return &DedupFilter{
		ledgerSHAs:  ledgerSHAs,
		seenThisRun: make(map[string]bool),
	}
}

// FilterNew returns the commits not seen before, marking survivors as seen
// so a second surfacing within the run is dropped.
func (f *DedupFilter) FilterNew(commits []forge.Commit) []forge.Commit {
	var fresh []forge.Commit
	for _, commit := range commits {
		sha := strings.ToLower(commit.SHA)
		if f.ledgerSHAs[sha] || f.seenThisRun[sha] {
			continue
		}
		f.seenThisRun[sha] = true
		fresh = append(fresh, commit)
	}
	return fresh
}
