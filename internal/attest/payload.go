package attest

import (
	"encoding/json"

	"git.home.luguber.info/inful/attestbot/internal/forge"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// payloadField mirrors one entry of the ledger's serialized field array,
// the same shape the query boundary decodes.
type payloadField struct {
	Name  string       `json:"name"`
	Type  string       `json:"type"`
	Value payloadValue `json:"value"`
}

type payloadValue struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func field(name, typ string, value any) payloadField {
	return payloadField{Name: name, Type: typ, Value: payloadValue{Name: name, Type: typ, Value: value}}
}

// EncodePayload serializes one commit attestation into the record schema's
// declared field encoding. Timestamps are written as unix seconds UTC.
func EncodePayload(commit forge.Commit, identityRecordID string) ([]byte, error) {
	fields := []payloadField{
		field("repository", "string", commit.Repo.FullName()),
		field("commitHash", "string", commit.SHA),
		field("author", "string", commit.Author.Name),
		field("message", "string", commit.Message),
		field("timestamp", "uint64", commit.Timestamp.UTC().Unix()),
		field("identityRecordId", "bytes32", identityRecordID),
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.InternalError("encoding attestation payload").
			WithCause(err).
			Build()
	}
	return out, nil
}
