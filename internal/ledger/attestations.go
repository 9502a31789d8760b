package ledger

import (
	"context"
	"strings"
	"time"
)

// fieldCommitHash is the commit attestation payload field holding the sha.
const fieldCommitHash = "commitHash"

// AttestedCommits reads back which commit shas already have attestation
// records, for cross-run dedup (e.g. after a crash between submit and
// checkpoint advance).
type AttestedCommits struct {
	client   *Client
	schemaID string
}

// NewAttestedCommits creates a reader for the commit attestation schema.
func NewAttestedCommits(client *Client, schemaID string) *AttestedCommits {
	return &AttestedCommits{client: client, schemaID: schemaID}
}

// SHAsSince returns the set of commit shas attested at or after since,
// lowercased. A failed query surfaces as an error; the caller decides
// whether discovery can proceed without the dedup set.
func (a *AttestedCommits) SHAsSince(ctx context.Context, since time.Time) (map[string]bool, error) {
	attestations, err := a.client.ListAttestations(ctx, a.schemaID, since)
	if err != nil {
		return nil, err
	}

	shas := make(map[string]bool, len(attestations))
	for _, att := range attestations {
		if sha := att.Decoded.String(fieldCommitHash); sha != "" {
			shas[strings.ToLower(sha)] = true
		}
	}
	return shas, nil
}
