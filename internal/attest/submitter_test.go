package attest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/forge"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
	"git.home.luguber.info/inful/attestbot/internal/ledger"
	"git.home.luguber.info/inful/attestbot/internal/retry"
)

const (
	testSchema    = "0xSCHEMA"
	testSignature = "0xRECORD_CREATED"
)

// fakeSettlement scripts the settlement boundary per test.
type fakeSettlement struct {
	status     AccountStatus
	statusErr  error
	submitErrs []error // consumed one per Submit call, nil entries succeed
	receipt    *Receipt
	receiptErr error
	submits    int
	lastOp     DelegatedOperation
}

func (f *fakeSettlement) AccountStatus(context.Context, string) (AccountStatus, error) {
	return f.status, f.statusErr
}

func (f *fakeSettlement) Submit(_ context.Context, op DelegatedOperation) (string, error) {
	f.submits++
	f.lastOp = op
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return "settle-1", nil
}

func (f *fakeSettlement) AwaitReceipt(context.Context, string) (*Receipt, error) {
	return f.receipt, f.receiptErr
}

func activeAccount() AccountStatus {
	return AccountStatus{Address: "0xa11ce", Active: true, SpendableBalance: 100}
}

func testCredential() DelegatedCredential {
	return DelegatedCredential{Secret: "s3cret", TargetAddress: "0xTARGET", ActionSelector: "attestByDelegation"}
}

func testIdentity() ledger.RegisteredIdentity {
	return ledger.RegisteredIdentity{
		Domain:                "github.com",
		Username:              "alice",
		PrincipalAddress:      "0xa11ce",
		DelegateTargetAddress: "0xTARGET",
		IdentityRecordID:      "0xidrec",
	}
}

func testCommit() forge.Commit {
	return forge.Commit{
		SHA:       "abc123",
		Author:    forge.CommitAuthor{Name: "Alice", Email: "alice@example.com", Username: "alice"},
		Message:   "fix the thing",
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Repo:      forge.Repo{Domain: "github.com", Owner: "acme", Name: "repo-x"},
	}
}

func newTestSubmitter(client SettlementClient) *Submitter {
	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, AbuseMinimum: time.Millisecond}
	cfg := config.SettlementConfig{SchemaAddress: testSchema, EventSignature: testSignature, ActionSelector: "attestByDelegation"}
	return NewSubmitter(client, testCredential(), policy, cfg)
}

func recordReceipt(recordID string) *Receipt {
	return &Receipt{
		SettlementID: "settle-1",
		Succeeded:    true,
		Events: []Event{
			{Address: "0xOTHER", Topics: []string{testSignature, "0xdecoy"}},
			{Address: testSchema, Topics: []string{testSignature, recordID}},
		},
	}
}

func TestSubmitHappyPath(t *testing.T) {
	client := &fakeSettlement{status: activeAccount(), receipt: recordReceipt("0xrecord")}
	result := newTestSubmitter(client).Submit(context.Background(), testIdentity(), testCommit())

	require.Equal(t, Attested, result.Outcome)
	assert.True(t, result.Success)
	assert.Equal(t, "0xrecord", result.RecordID)
	assert.Equal(t, "settle-1", result.SettlementID)
	assert.NoError(t, result.Err)
	assert.Equal(t, "0xTARGET", client.lastOp.Target)
}

func TestSubmitInactiveAccountIsFatalForIdentity(t *testing.T) {
	client := &fakeSettlement{status: AccountStatus{Active: false}}
	result := newTestSubmitter(client).Submit(context.Background(), testIdentity(), testCommit())

	require.Equal(t, FatalForIdentity, result.Outcome)
	assert.False(t, result.Success)
	assert.Error(t, result.Err)
	assert.Zero(t, client.submits, "nothing must reach the network")
}

func TestSubmitZeroBalanceIsFatalForIdentity(t *testing.T) {
	client := &fakeSettlement{status: AccountStatus{Active: true, SpendableBalance: 0}}
	result := newTestSubmitter(client).Submit(context.Background(), testIdentity(), testCommit())

	require.Equal(t, FatalForIdentity, result.Outcome)
	assert.True(t, errors.HasCategory(result.Err, errors.CategoryAuth),
		"an unfunded principal is an authorization failure, not a settlement one")
	adapter := errors.NewHTTPErrorAdapter(nil)
	assert.Equal(t, 403, adapter.StatusCodeFor(result.Err))
}

func TestSubmitOutOfScopeTargetIsRejected(t *testing.T) {
	client := &fakeSettlement{status: activeAccount()}
	identity := testIdentity()
	identity.DelegateTargetAddress = "0xSOMEWHERE_ELSE"

	result := newTestSubmitter(client).Submit(context.Background(), identity, testCommit())

	require.Equal(t, Rejected, result.Outcome)
	assert.True(t, errors.HasCategory(result.Err, errors.CategoryValidation))
	assert.Zero(t, client.submits)
}

func TestSubmitRetriesTransientFailures(t *testing.T) {
	transient := errors.NetworkError("gateway timeout").WithStatus(504).Build()
	client := &fakeSettlement{
		status:     activeAccount(),
		submitErrs: []error{transient, nil},
		receipt:    recordReceipt("0xrecord"),
	}

	result := newTestSubmitter(client).Submit(context.Background(), testIdentity(), testCommit())

	require.Equal(t, Attested, result.Outcome)
	assert.Equal(t, 2, client.submits)
}

func TestSubmitNonRetryableFailureIsRejected(t *testing.T) {
	fatal := errors.SettlementError("malformed payload").WithStatus(400).Build()
	client := &fakeSettlement{status: activeAccount(), submitErrs: []error{fatal}}

	result := newTestSubmitter(client).Submit(context.Background(), testIdentity(), testCommit())

	require.Equal(t, Rejected, result.Outcome)
	assert.Equal(t, 1, client.submits, "fatal failures must not be retried")
	assert.ErrorIs(t, result.Err, fatal)
}

func TestSubmitRevertedReceiptIsRejected(t *testing.T) {
	client := &fakeSettlement{
		status:  activeAccount(),
		receipt: &Receipt{SettlementID: "settle-1", Succeeded: false},
	}

	result := newTestSubmitter(client).Submit(context.Background(), testIdentity(), testCommit())

	require.Equal(t, Rejected, result.Outcome)
	assert.Equal(t, "settle-1", result.SettlementID)
}

func TestSubmitMissingRecordEvent(t *testing.T) {
	client := &fakeSettlement{
		status: activeAccount(),
		receipt: &Receipt{
			SettlementID: "settle-1",
			Succeeded:    true,
			Events:       []Event{{Address: testSchema, Topics: []string{"0xunrelated", "0xvalue"}}},
		},
	}

	result := newTestSubmitter(client).Submit(context.Background(), testIdentity(), testCommit())

	require.Equal(t, SucceededWithoutRecordID, result.Outcome)
	assert.False(t, result.Success)
	assert.Empty(t, result.RecordID)
	assert.Equal(t, "settle-1", result.SettlementID)
	assert.NoError(t, result.Err)
}
