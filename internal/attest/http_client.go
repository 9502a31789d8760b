package attest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

const maxErrorBody = 4 << 10

// HTTPSettlementClient talks to a settlement gateway over its REST API.
// The gateway owns the chain mechanics; this client only moves delegated
// operations across the boundary and reads receipts back.
type HTTPSettlementClient struct {
	httpClient   *http.Client
	baseURL      string
	pollInterval time.Duration
}

// NewHTTPSettlementClient builds a gateway client from the settlement
// config.
func NewHTTPSettlementClient(cfg config.SettlementConfig) *HTTPSettlementClient {
	return &HTTPSettlementClient{
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:      strings.TrimSuffix(cfg.GatewayURL, "/"),
		pollInterval: cfg.PollInterval,
	}
}

type accountResponse struct {
	Address          string `json:"address"`
	Active           bool   `json:"active"`
	SpendableBalance uint64 `json:"spendableBalance"`
}

// AccountStatus reads the principal's account from the gateway.
func (c *HTTPSettlementClient) AccountStatus(ctx context.Context, principal string) (AccountStatus, error) {
	var account accountResponse
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+principal, nil, &account)
	if err != nil {
		return AccountStatus{}, err
	}
	return AccountStatus{
		Address:          account.Address,
		Active:           account.Active,
		SpendableBalance: account.SpendableBalance,
	}, nil
}

type submitRequest struct {
	Target        string `json:"target"`
	Selector      string `json:"selector"`
	Payload       string `json:"payload"` // base64
	Authorization string `json:"authorization"`
}

type submitResponse struct {
	ID string `json:"id"`
}

// Submit posts a delegated operation and returns the gateway's settlement id.
func (c *HTTPSettlementClient) Submit(ctx context.Context, op DelegatedOperation) (string, error) {
	req := submitRequest{
		Target:        op.Target,
		Selector:      op.Selector,
		Payload:       base64.StdEncoding.EncodeToString(op.Payload),
		Authorization: op.Secret,
	}
	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, "/v1/operations", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.SettlementError("gateway returned no settlement id").Build()
	}
	return resp.ID, nil
}

type operationResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"` // pending|confirmed|reverted
	Events []struct {
		Address string   `json:"address"`
		Topics  []string `json:"topics"`
	} `json:"events"`
}

// AwaitReceipt polls the operation until the gateway reports a terminal
// status.
func (c *HTTPSettlementClient) AwaitReceipt(ctx context.Context, settlementID string) (*Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var op operationResponse
		if err := c.do(ctx, http.MethodGet, "/v1/operations/"+settlementID, nil, &op); err != nil {
			return nil, err
		}

		switch op.Status {
		case "confirmed", "reverted":
			receipt := &Receipt{
				SettlementID: settlementID,
				Succeeded:    op.Status == "confirmed",
				Events:       make([]Event, 0, len(op.Events)),
			}
			for _, ev := range op.Events {
				receipt.Events = append(receipt.Events, Event{Address: ev.Address, Topics: ev.Topics})
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *HTTPSettlementClient) do(ctx context.Context, method, endpoint string, payload, result any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.InternalError("encoding gateway request").WithCause(err).Build()
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return errors.SettlementError("failed to create gateway request").
			WithCause(err).
			Build()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NetworkError("settlement gateway request failed").
			WithCause(err).
			WithContext("url", req.URL.String()).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classifyGatewayResponse(resp.StatusCode, raw)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.SettlementError("failed to decode gateway response").
				WithCause(err).
				Build()
		}
	}
	return nil
}

func classifyGatewayResponse(status int, body []byte) error {
	msg := fmt.Sprintf("settlement gateway returned %d", status)
	switch {
	case status == http.StatusNotFound:
		return errors.NotFoundError(msg).WithStatus(status).Build()
	case status == http.StatusTooManyRequests:
		return errors.RateLimitError(msg).WithStatus(status).Build()
	case status >= 500:
		// Retryability is decided by the transport status alone: 502/503/504
		// back off, a plain 500 is terminal.
		return errors.SettlementError(msg).
			WithStatus(status).
			WithContext("body", strings.TrimSpace(string(body))).
			Build()
	default:
		return errors.SettlementError(msg).
			WithStatus(status).
			WithContext("body", strings.TrimSpace(string(body))).
			Build()
	}
}
