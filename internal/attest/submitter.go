package attest

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/forge"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
	"git.home.luguber.info/inful/attestbot/internal/ledger"
	"git.home.luguber.info/inful/attestbot/internal/logfields"
	"git.home.luguber.info/inful/attestbot/internal/retry"
)

// Outcome is the terminal state of one (identity, commit) submission.
type Outcome string

const (
	// Attested: settled and the record id was recovered from the receipt.
	Attested Outcome = "attested"

	// FatalForIdentity: the principal cannot pay. The caller must skip
	// this identity for the remainder of the run, not retry.
	FatalForIdentity Outcome = "fatal_for_identity"

	// Rejected: the operation itself is bad (scope, payload). Surfaced
	// immediately, never retried.
	Rejected Outcome = "rejected"

	// SucceededWithoutRecordID: the network settled the operation but no
	// matching record event was found. Partially succeeded; must not be
	// treated as fully failed nor resubmitted.
	SucceededWithoutRecordID Outcome = "succeeded_without_record_id"
)

// Result reports one submission. SettlementID is set for every outcome
// that reached the network, including SucceededWithoutRecordID.
type Result struct {
	Outcome      Outcome
	Success      bool
	RecordID     string
	SettlementID string
	Err          error
}

// Submitter drives the delegated attestation state machine. Transient
// network failures during submit/await are retried under the policy;
// everything else is terminal on first sight.
type Submitter struct {
	client         SettlementClient
	credential     DelegatedCredential
	policy         retry.Policy
	schemaAddress  string
	eventSignature string
}

// NewSubmitter builds a submitter from the settlement config. The
// credential secret is read from the configured environment variable by
// the caller and passed in resolved.
func NewSubmitter(client SettlementClient, credential DelegatedCredential, policy retry.Policy, cfg config.SettlementConfig) *Submitter {
	return &Submitter{
		client:         client,
		credential:     credential,
		policy:         policy,
		schemaAddress:  cfg.SchemaAddress,
		eventSignature: cfg.EventSignature,
	}
}

// Submit runs one (identity, commit) pair to a terminal state.
func (s *Submitter) Submit(ctx context.Context, identity ledger.RegisteredIdentity, commit forge.Commit) Result {
	log := slog.With(
		logfields.Principal(identity.PrincipalAddress),
		logfields.CommitSHA(commit.SHA),
		logfields.Repository(commit.Repo.FullName()))

	status, err := s.client.AccountStatus(ctx, identity.PrincipalAddress)
	if err != nil || !status.Active || status.SpendableBalance == 0 {
		if err == nil {
			err = errors.AuthError("principal account cannot bear settlement cost").
				WithContext("active", status.Active).
				WithContext("spendable_balance", status.SpendableBalance).
				Fatal().
				Build()
		}
		log.Warn("skipping identity for this run", logfields.Error(err))
		return Result{Outcome: FatalForIdentity, Err: err}
	}

	payload, err := EncodePayload(commit, identity.IdentityRecordID)
	if err != nil {
		return Result{Outcome: Rejected, Err: err}
	}

	op, err := s.credential.Authorize(identity.DelegateTargetAddress, s.credential.ActionSelector, payload)
	if err != nil {
		log.Error("delegated operation rejected before submission", logfields.Error(err))
		return Result{Outcome: Rejected, Err: err}
	}

	receipt, err := retry.Do(ctx, s.policy, retry.ClassifyTransport, "settlement submit",
		func(ctx context.Context) (*Receipt, error) {
			settlementID, err := s.client.Submit(ctx, op)
			if err != nil {
				return nil, err
			}
			return s.client.AwaitReceipt(ctx, settlementID)
		})
	if err != nil {
		log.Error("settlement failed", logfields.Error(err))
		return Result{Outcome: Rejected, Err: err}
	}

	if !receipt.Succeeded {
		err := errors.SettlementError("operation reverted").
			WithContext("settlement_id", receipt.SettlementID).
			Build()
		log.Error("settlement reverted", logfields.SettlementID(receipt.SettlementID))
		return Result{Outcome: Rejected, SettlementID: receipt.SettlementID, Err: err}
	}

	recordID, ok := s.recordIDFrom(receipt)
	if !ok {
		log.Warn("settled without a record event",
			logfields.SettlementID(receipt.SettlementID))
		return Result{Outcome: SucceededWithoutRecordID, SettlementID: receipt.SettlementID}
	}

	log.Info("commit attested",
		logfields.RecordID(recordID),
		logfields.SettlementID(receipt.SettlementID))
	return Result{Outcome: Attested, Success: true, RecordID: recordID, SettlementID: receipt.SettlementID}
}

// recordIDFrom scans the receipt's events for the record-created event of
// the expected schema contract and returns its first indexed field.
func (s *Submitter) recordIDFrom(receipt *Receipt) (string, bool) {
	for _, ev := range receipt.Events {
		if !strings.EqualFold(ev.Address, s.schemaAddress) {
			continue
		}
		if len(ev.Topics) < 2 || ev.Topics[0] != s.eventSignature {
			continue
		}
		return ev.Topics[1], true
	}
	return "", false
}
