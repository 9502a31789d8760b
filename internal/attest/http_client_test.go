package attest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
	"git.home.luguber.info/inful/attestbot/internal/retry"
)

func gatewayClient(url string) *HTTPSettlementClient {
	return NewHTTPSettlementClient(config.SettlementConfig{
		GatewayURL:     url,
		RequestTimeout: 5 * time.Second,
		PollInterval:   5 * time.Millisecond,
	})
}

func TestGatewayAccountStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts/0xa11ce", r.URL.Path)
		_ = json.NewEncoder(w).Encode(accountResponse{Address: "0xa11ce", Active: true, SpendableBalance: 42})
	}))
	defer srv.Close()

	status, err := gatewayClient(srv.URL).AccountStatus(context.Background(), "0xa11ce")
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, uint64(42), status.SpendableBalance)
}

func TestGatewayAccountNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such account", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := gatewayClient(srv.URL).AccountStatus(context.Background(), "0xnobody")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
	assert.Equal(t, http.StatusNotFound, errors.GetStatus(err))
}

func TestGatewaySubmitAndAwait(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/operations":
			var req submitRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "0xTARGET", req.Target)
			assert.NotEmpty(t, req.Payload)
			_ = json.NewEncoder(w).Encode(submitResponse{ID: "settle-7"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/operations/settle-7":
			polls++
			status := "pending"
			if polls >= 2 {
				status = "confirmed"
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "settle-7",
				"status": status,
				"events": []map[string]any{
					{"address": "0xSCHEMA", "topics": []string{"0xsig", "0xrecord"}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := gatewayClient(srv.URL)
	id, err := client.Submit(context.Background(), DelegatedOperation{
		Target: "0xTARGET", Selector: "attestByDelegation", Payload: []byte("{}"), Secret: "s3cret",
	})
	require.NoError(t, err)
	require.Equal(t, "settle-7", id)

	receipt, err := client.AwaitReceipt(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, []string{"0xsig", "0xrecord"}, receipt.Events[0].Topics)
	assert.GreaterOrEqual(t, polls, 2)
}

func TestGatewayServerErrorClassification(t *testing.T) {
	status := http.StatusBadGateway
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway unhappy", status)
	}))
	defer srv.Close()

	_, err := gatewayClient(srv.URL).AccountStatus(context.Background(), "0xa11ce")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errors.GetStatus(err))
	assert.True(t, retry.ClassifyTransport(err).Retryable, "502 backs off and retries")

	status = http.StatusInternalServerError
	_, err = gatewayClient(srv.URL).AccountStatus(context.Background(), "0xa11ce")
	require.Error(t, err)
	assert.False(t, retry.ClassifyTransport(err).Retryable, "a plain 500 is terminal")
}
