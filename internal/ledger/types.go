package ledger

import "time"

// RegisteredIdentity links a forge account to an on-chain principal. It is
// recreated on every resolution pass from ledger reads and never mutated
// locally.
type RegisteredIdentity struct {
	Domain                string
	Username              string
	PrincipalAddress      string
	DelegateTargetAddress string
	IdentityRecordID      string
	RepoGlobs             []string
	RegisteredAt          time.Time
}

// Attestation is one ledger record, as returned by the query boundary.
type Attestation struct {
	UID       string
	TxID      string
	SchemaID  string
	Attester  string
	Recipient string
	Time      time.Time
	Revoked   bool
	Decoded   DecodedFields
}
