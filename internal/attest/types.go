package attest

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// AccountStatus reports whether a principal can bear settlement cost.
type AccountStatus struct {
	Address          string
	Active           bool
	SpendableBalance uint64
}

// DelegatedCredential authorizes operations on behalf of a principal,
// scoped to exactly one target and one action selector. The scope is
// enforced locally before anything hits the network so a misconfigured
// credential fails fast instead of burning a settlement attempt.
type DelegatedCredential struct {
	Secret         string
	TargetAddress  string
	ActionSelector string
}

// Authorize wraps the payload into a signed delegated operation. The
// operation's target and selector must match the credential's scope.
func (c DelegatedCredential) Authorize(target, selector string, payload []byte) (DelegatedOperation, error) {
	if c.Secret == "" {
		return DelegatedOperation{}, errors.ConfigError("delegated credential has no secret").Build()
	}
	if !strings.EqualFold(target, c.TargetAddress) {
		return DelegatedOperation{}, errors.ValidationError("operation target outside credential scope").
			WithContext("target", target).
			Build()
	}
	if selector != c.ActionSelector {
		return DelegatedOperation{}, errors.ValidationError("operation selector outside credential scope").
			WithContext("selector", selector).
			Build()
	}
	return DelegatedOperation{
		Target:   target,
		Selector: selector,
		Payload:  payload,
		Secret:   c.Secret,
	}, nil
}

// DelegatedOperation is one authorized submission, ready for the network.
type DelegatedOperation struct {
	Target   string
	Selector string
	Payload  []byte
	Secret   string
}

// Event is one log entry emitted during settlement. Topics[0] is the event
// signature; subsequent topics are the indexed fields.
type Event struct {
	Address string
	Topics  []string
}

// Receipt is the terminal confirmation of one settled operation.
type Receipt struct {
	SettlementID string
	Succeeded    bool
	Events       []Event
}

// SettlementClient is the narrow boundary to the settlement network. The
// production transport lives behind it; tests supply fakes.
type SettlementClient interface {
	// AccountStatus reports the principal's spendability.
	AccountStatus(ctx context.Context, principal string) (AccountStatus, error)

	// Submit sends a delegated operation and returns its settlement id.
	Submit(ctx context.Context, op DelegatedOperation) (string, error)

	// AwaitReceipt blocks until the network reports a terminal status.
	AwaitReceipt(ctx context.Context, settlementID string) (*Receipt, error)
}
