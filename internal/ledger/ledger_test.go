package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// payloadJSON builds a decodedDataJson string from name/value pairs.
func payloadJSON(t *testing.T, fields map[string]any) string {
	t.Helper()
	var arr []map[string]any
	for name, value := range fields {
		arr = append(arr, map[string]any{
			"name":  name,
			"value": map[string]any{"value": value},
		})
	}
	b, err := json.Marshal(arr)
	require.NoError(t, err)
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.LedgerConfig{GraphQLURL: srv.URL, RequestTimeout: 5 * time.Second})
}

func TestDecodeFields(t *testing.T) {
	payload := `[
		{"name":"username","value":{"value":"alice"}},
		{"name":"repoGlobs","value":{"value":["acme/*","acme/repo-x"]}}
	]`
	fields, err := DecodeFields(payload)
	require.NoError(t, err)
	require.Equal(t, "alice", fields.String("username"))
	require.Equal(t, []string{"acme/*", "acme/repo-x"}, fields.StringSlice("repoGlobs"))
	require.Empty(t, fields.String("missing"))
}

func TestDecodeFieldsCommaSeparatedGlobs(t *testing.T) {
	payload := `[{"name":"repoGlobs","value":{"value":"acme/* , acme/repo-x,"}}]`
	fields, err := DecodeFields(payload)
	require.NoError(t, err)
	require.Equal(t, []string{"acme/*", "acme/repo-x"}, fields.StringSlice("repoGlobs"))
}

func TestDecodeFieldsMalformed(t *testing.T) {
	_, err := DecodeFields(`{"not":"an array"}`)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryLedger))
}

func TestFetchAttestation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "0xuid", req.Variables["id"])

		fmt.Fprint(w, `{"data":{"attestation":{
			"id":"0xuid","txid":"0xtx","schemaId":"0xschema",
			"attester":"0xverifier","recipient":"0xprincipal",
			"time":1770000000,"revoked":false,"decodedDataJson":"[]"
		}}}`)
	})

	att, err := client.FetchAttestation(context.Background(), "0xuid")
	require.NoError(t, err)
	require.Equal(t, "0xuid", att.UID)
	require.Equal(t, "0xtx", att.TxID)
	require.Equal(t, "0xprincipal", att.Recipient)
}

func TestFetchAttestationNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"attestation":null}}`)
	})

	_, err := client.FetchAttestation(context.Background(), "0xmissing")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func identityResponse(t *testing.T, w http.ResponseWriter, entries ...string) {
	t.Helper()
	fmt.Fprintf(w, `{"data":{"attestations":[%s]}}`, joinComma(entries))
}

func joinComma(entries []string) string {
	out := ""
	for i, e := range entries {
		if i > 0 {
			out += ","
		}
		out += e
	}
	return out
}

func identityEntry(t *testing.T, uid, principal string, ts int64, fields map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(payloadJSON(t, fields))
	require.NoError(t, err)
	return fmt.Sprintf(`{"id":%q,"txid":"0xtx","schemaId":"0xid-schema","attester":"0xverifier","recipient":%q,"time":%d,"revoked":false,"decodedDataJson":%s}`,
		uid, principal, ts, payload)
}

func TestIdentityResolverDedupNewestWins(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Newest first, as the indexer orders by time desc.
		identityResponse(t, w,
			identityEntry(t, "0xnew", "0xP1", 1770000100, map[string]any{
				"username": "Alice", "domain": "github.com", "repoGlobs": []string{"acme/*"},
			}),
			identityEntry(t, "0xold", "0xP0", 1770000000, map[string]any{
				"username": "alice", "domain": "github.com", "repoGlobs": []string{"other/*"},
			}),
			identityEntry(t, "0xnoglobs", "0xP2", 1770000050, map[string]any{
				"username": "bob", "domain": "github.com", "repoGlobs": []string{},
			}),
		)
	})

	resolver := NewIdentityResolver(client, "0xid-schema")
	identities := resolver.Resolve(context.Background())

	require.Len(t, identities, 1, "case-insensitive dedup keeps one alice; bob has no globs")
	require.Equal(t, "0xnew", identities[0].IdentityRecordID)
	require.Equal(t, "0xP1", identities[0].PrincipalAddress)
	require.Equal(t, []string{"acme/*"}, identities[0].RepoGlobs)
}

func TestIdentityResolverFailureYieldsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	resolver := NewIdentityResolver(client, "0xid-schema")
	require.Empty(t, resolver.Resolve(context.Background()))
}

func TestAttestedCommitsSHAsSince(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		identityResponse(t, w,
			identityEntry(t, "0xa", "0xP", 1770000000, map[string]any{"commitHash": "ABCDEF"}),
			identityEntry(t, "0xb", "0xP", 1770000001, map[string]any{"commitHash": "123456"}),
		)
	})

	reader := NewAttestedCommits(client, "0xcommit-schema")
	shas, err := reader.SHAsSince(context.Background(), time.Unix(1769990000, 0))
	require.NoError(t, err)
	require.True(t, shas["abcdef"], "shas are lowercased")
	require.True(t, shas["123456"])
	require.Len(t, shas, 2)
}
