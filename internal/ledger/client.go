package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// Client is a thin GraphQL reader for the attestation ledger's indexer.
// The core only reads through it; writes happen through the delegated
// submitter, never here.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient creates a ledger client from config.
func NewClient(cfg config.LedgerConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		url:        cfg.GraphQLURL,
	}
}

// graphqlRequest is the envelope posted to the indexer.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query posts a GraphQL query and decodes the data object into out.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return errors.InternalError("failed to encode ledger query").
			WithCause(err).
			Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.LedgerError("failed to create ledger request").
			WithCause(err).
			Build()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NetworkError("ledger query failed").
			WithCause(err).
			WithContext("url", c.url).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.LedgerError("ledger query rejected").
			WithStatus(resp.StatusCode).
			WithContext("url", c.url).
			Build()
	}

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.LedgerError("failed to decode ledger response").
			WithCause(err).
			Build()
	}
	if len(envelope.Errors) > 0 {
		return errors.LedgerError("ledger query returned errors").
			WithContext("message", envelope.Errors[0].Message).
			Build()
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errors.LedgerError("unexpected ledger response shape").
				WithCause(err).
				Build()
		}
	}
	return nil
}

// rawAttestation mirrors the indexer's attestation shape.
type rawAttestation struct {
	ID              string `json:"id"`
	TxID            string `json:"txid"`
	SchemaID        string `json:"schemaId"`
	Attester        string `json:"attester"`
	Recipient       string `json:"recipient"`
	Time            int64  `json:"time"` // unix seconds
	Revoked         bool   `json:"revoked"`
	DecodedDataJSON string `json:"decodedDataJson"`
}

func (r *rawAttestation) convert() (Attestation, error) {
	decoded, err := DecodeFields(r.DecodedDataJSON)
	if err != nil {
		return Attestation{}, err
	}
	return Attestation{
		UID:       r.ID,
		TxID:      r.TxID,
		SchemaID:  r.SchemaID,
		Attester:  r.Attester,
		Recipient: r.Recipient,
		Time:      time.Unix(r.Time, 0).UTC(),
		Revoked:   r.Revoked,
		Decoded:   decoded,
	}, nil
}

const fetchAttestationQuery = `
query ($id: String!) {
  attestation(where: { id: $id }) {
    id
    txid
    schemaId
    attester
    recipient
    time
    revoked
    decodedDataJson
  }
}`

// FetchAttestation looks up a single attestation by UID. A missing record
// is a typed not-found, not a failure.
func (c *Client) FetchAttestation(ctx context.Context, uid string) (*Attestation, error) {
	var data struct {
		Attestation *rawAttestation `json:"attestation"`
	}
	if err := c.Query(ctx, fetchAttestationQuery, map[string]any{"id": uid}, &data); err != nil {
		return nil, err
	}
	if data.Attestation == nil {
		return nil, errors.NotFoundError("attestation not found").
			WithContext("uid", uid).
			Build()
	}
	att, err := data.Attestation.convert()
	if err != nil {
		return nil, err
	}
	return &att, nil
}

const listAttestationsQuery = `
query ($schemaId: String!, $since: Int!) {
  attestations(
    where: { schemaId: { equals: $schemaId }, revoked: { equals: false }, time: { gte: $since } }
    orderBy: { time: desc }
  ) {
    id
    txid
    schemaId
    attester
    recipient
    time
    revoked
    decodedDataJson
  }
}`

// ListAttestations returns non-revoked attestations for a schema at or
// after since, newest first.
func (c *Client) ListAttestations(ctx context.Context, schemaID string, since time.Time) ([]Attestation, error) {
	var data struct {
		Attestations []rawAttestation `json:"attestations"`
	}
	vars := map[string]any{"schemaId": schemaID, "since": since.UTC().Unix()}
	if err := c.Query(ctx, listAttestationsQuery, vars, &data); err != nil {
		return nil, err
	}

	out := make([]Attestation, 0, len(data.Attestations))
	for i := range data.Attestations {
		att, err := data.Attestations[i].convert()
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	return out, nil
}
