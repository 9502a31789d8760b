package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/attestbot/internal/logfields"
)

// Identity payload field names as declared by the registration schema.
const (
	fieldUsername  = "username"
	fieldDomain    = "domain"
	fieldRepoGlobs = "repoGlobs"
	fieldDelegate  = "delegateTarget"
)

// IdentityResolver reads registered identities from the ledger.
type IdentityResolver struct {
	client   *Client
	schemaID string
}

// NewIdentityResolver creates a resolver for the identity registration
// schema.
func NewIdentityResolver(client *Client, schemaID string) *IdentityResolver {
	return &IdentityResolver{client: client, schemaID: schemaID}
}

// Resolve returns the registered identities that watch at least one repo
// glob. Duplicates per (domain, lowercase username) keep the newest record.
//
// A ledger failure is non-fatal: the resolver logs and returns an empty
// list, and callers treat "no identities" as a valid if unproductive state.
func (r *IdentityResolver) Resolve(ctx context.Context) []RegisteredIdentity {
	attestations, err := r.client.ListAttestations(ctx, r.schemaID, time.Unix(0, 0))
	if err != nil {
		slog.Warn("identity resolution failed, continuing with no identities",
			logfields.Error(err))
		return nil
	}

	// Newest-first ordering lets first-seen win the dedup.
	seen := make(map[string]bool)
	var identities []RegisteredIdentity
	for _, att := range attestations {
		identity, ok := identityFromAttestation(att)
		if !ok {
			continue
		}
		key := identity.Domain + "\x00" + strings.ToLower(identity.Username)
		if seen[key] {
			continue
		}
		seen[key] = true
		identities = append(identities, identity)
	}
	return identities
}

// identityFromAttestation decodes one registration record. Records with no
// usable repo globs are not watchable and are dropped here.
func identityFromAttestation(att Attestation) (RegisteredIdentity, bool) {
	username := att.Decoded.String(fieldUsername)
	domain := att.Decoded.String(fieldDomain)
	globs := att.Decoded.StringSlice(fieldRepoGlobs)
	if username == "" || domain == "" || len(globs) == 0 {
		return RegisteredIdentity{}, false
	}

	return RegisteredIdentity{
		Domain:                domain,
		Username:              username,
		PrincipalAddress:      att.Recipient,
		DelegateTargetAddress: att.Decoded.String(fieldDelegate),
		IdentityRecordID:      att.UID,
		RepoGlobs:             globs,
		RegisteredAt:          att.Time,
	}, true
}
