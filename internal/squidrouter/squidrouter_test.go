package squidrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

func TestGetRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/route", r.URL.Path)
		assert.Equal(t, "vortex", r.Header.Get("x-integrator-id"))

		var params RouteParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		require.NotNil(t, params.PostHook)
		assert.Equal(t, "0xreceiver", params.PostHook.Calls[0].Target)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("x-request-id", "req-1")
		_, _ = w.Write([]byte(`{"route":{"transactionRequest":{"target":"0xsquid","data":"0xdead","value":"0","gasLimit":"500000","gasPrice":"1"},"estimate":{"toAmount":"99","toAmountMin":"98"}}}`))
	}))
	defer srv.Close()

	router := New(srv.URL, "vortex", 5*time.Second, logger.New("test"))
	route, err := router.GetRoute(context.Background(), RouteParams{
		FromChain: "137",
		ToChain:   "1284",
		PostHook:  &PostHook{Calls: []HookCall{{Target: "0xreceiver"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "req-1", route.RequestID)
	assert.Equal(t, "0xsquid", route.TransactionRequest.Target)
	assert.Equal(t, "98", route.Estimate.ToAmountMin)
}

func TestGetRouteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"vendor error", http.StatusBadRequest, `{"message":"no route","type":"SQUID_ROUTE"}`},
		{"empty request", http.StatusOK, `{"route":{"transactionRequest":{}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "vortex", time.Second, logger.New("test")).GetRoute(context.Background(), RouteParams{})
			assert.Error(t, err)
		})
	}
}

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xabc", r.URL.Query().Get("transactionId"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"0xabc","status":"destination_executed","squidTransactionStatus":"success"}`))
	}))
	defer srv.Close()

	status, err := New(srv.URL, "vortex", time.Second, logger.New("test")).GetStatus(context.Background(), "0xabc", "req", "137", "1284")
	require.NoError(t, err)
	assert.True(t, status.Succeeded())
}
