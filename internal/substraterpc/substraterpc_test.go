package substraterpc

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

func newGateway(t *testing.T, handler http.HandlerFunc) ISubstrateRPC {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("pendulum", srv.URL, 5*time.Second, logger.New("test"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAccountNonceAndBalance(t *testing.T) {
	rpc := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/nonce"):
			writeJSON(w, 200, map[string]interface{}{"nonce": 3})
		case strings.HasSuffix(r.URL.Path, "/balances"):
			assert.Equal(t, `{"XCM":12}`, r.URL.Query().Get("currency"))
			writeJSON(w, 200, map[string]interface{}{"free": "123456789012345678901"})
		}
	})

	nonce, err := rpc.AccountNonce(context.Background(), "6abc")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), nonce)

	bal, err := rpc.FreeBalance(context.Background(), "6abc", `{"XCM":12}`)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901", bal.String())
}

func TestSubmitClassifiesErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]interface{}
		check func(t *testing.T, err error)
	}{
		{
			name: "amount exceeds balance",
			body: map[string]interface{}{"code": "redeem.AmountExceedsUserBalance", "message": "module error"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrAmountExceedsBalance)
			},
		},
		{
			name: "already included",
			body: map[string]interface{}{"code": "AlreadyIncluded", "message": "Transaction Already Imported", "blockHash": "0xblock"},
			check: func(t *testing.T, err error) {
				var inc *AlreadyIncludedError
				require.True(t, errors.As(err, &inc))
				assert.Equal(t, "0xblock", inc.BlockHash)
			},
		},
		{
			name: "stale nonce",
			body: map[string]interface{}{"code": "InvalidTransaction", "message": "Transaction is outdated"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNonceTooLow)
			},
		},
		{
			name: "in pool",
			body: map[string]interface{}{"code": "Pool", "message": "Transaction Already Imported"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrAlreadyInPool)
			},
		},
		{
			name: "unknown",
			body: map[string]interface{}{"code": "Boom", "message": "node down"},
			check: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.False(t, errors.Is(err, ErrAmountExceedsBalance))
				assert.Contains(t, err.Error(), "node down")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpc := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": tt.body})
			})
			_, err := rpc.Submit(context.Background(), &SignedExtrinsic{Signer: "6abc"})
			tt.check(t, err)
		})
	}
}

func TestSignExtrinsic(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	short := []byte("payload")
	long := []byte(strings.Repeat("x", 300))

	for _, payload := range [][]byte{short, long} {
		rpc := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, map[string]interface{}{"payload": "0x" + hex.EncodeToString(payload)})
		})

		ext, err := SignExtrinsic(context.Background(), rpc, priv, "6abc", Call{Pallet: "tokens", Method: "transfer"}, 7)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), ext.Nonce)

		raw, err := hex.DecodeString(strings.TrimPrefix(ext.Signature, "0x"))
		require.NoError(t, err)
		require.Len(t, raw, 65)
		assert.Equal(t, byte(multiSignatureEd25519), raw[0])
		assert.True(t, VerifyPayload(pub, payload, raw[1:]))
	}
}

func TestWaitForEvent(t *testing.T) {
	var head int64 = 10
	rpc := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/blocks/head":
			writeJSON(w, 200, map[string]interface{}{"number": atomic.AddInt64(&head, 1)})
		case r.URL.Path == "/blocks/12/events":
			writeJSON(w, 200, map[string]interface{}{"events": []Event{
				{Section: "redeem", Method: "ExecuteRedeem", Data: map[string]string{"redeemId": "0xabc"}},
			}})
		default:
			writeJSON(w, 200, map[string]interface{}{"events": []Event{}})
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := rpc.WaitForEvent(ctx, 10, 10*time.Millisecond, func(e Event) bool {
		return e.Is("redeem", "ExecuteRedeem") && e.Data["redeemId"] == "0xabc"
	})
	require.NoError(t, err)
	assert.Equal(t, "ExecuteRedeem", ev.Method)
}

func TestWaitForEventHonoursContext(t *testing.T) {
	rpc := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]interface{}{"number": 1, "events": []Event{}})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := rpc.WaitForEvent(ctx, 1, 10*time.Millisecond, func(Event) bool { return false })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
