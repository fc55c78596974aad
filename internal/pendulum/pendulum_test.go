package pendulum

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
)

type mockRPC struct {
	substraterpc.ISubstrateRPC
	mock.Mock
}

func (m *mockRPC) QueryContract(ctx context.Context, contract, method, caller string, args []interface{}) (json.RawMessage, error) {
	ret := m.Called(contract, method)
	out, _ := ret.Get(0).(json.RawMessage)
	return out, ret.Error(1)
}

func TestNablaQuoteAndAllowance(t *testing.T) {
	rpc := &mockRPC{}
	rpc.On("QueryContract", "6router", "getAmountOut").Return(json.RawMessage(`["99500000","500"]`), nil)
	rpc.On("QueryContract", "6token", "allowance").Return(json.RawMessage(`"0x64"`), nil)

	nabla := NewNabla(rpc, "6router", "6caller")

	out, err := nabla.Quote(context.Background(), big.NewInt(100000000), "6token", "6other")
	require.NoError(t, err)
	assert.Equal(t, "99500000", out.String())

	allowance, err := nabla.Allowance(context.Background(), "6token", "6owner")
	require.NoError(t, err)
	assert.Equal(t, int64(100), allowance.Int64())

	rpc.AssertExpectations(t)
}

func TestParseUint(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`123`, "123", true},
		{`"1,000"`, "1000", true},
		{`"0xff"`, "255", true},
		{`"-1"`, "", false},
		{`"abc"`, "", false},
	}
	for _, tt := range tests {
		n, err := parseUint(json.RawMessage(tt.in))
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, n.String())
	}
}

func TestCallBuilders(t *testing.T) {
	nabla := NewNabla(nil, "6router", "")
	approve := nabla.ApproveCall("6token", big.NewInt(5))
	assert.Equal(t, "contracts", approve.Pallet)
	assert.Equal(t, "approve", approve.Args[1])

	swap := nabla.SwapCall(big.NewInt(5), big.NewInt(4), "6a", "6b", "6to", 1700000000)
	assert.Equal(t, "6router", swap.Args[0])
	assert.Equal(t, "swapExactTokensForTokens", swap.Args[1])

	cleanup := CleanupCall([]string{`{"XCM":12}`, `{"XCM":12}`, ""}, "6funding")
	calls := cleanup.Args[0].([]substraterpc.Call)
	require.Len(t, calls, 2)
	assert.Equal(t, "tokens", calls[0].Pallet)
	assert.Equal(t, "balances", calls[1].Pallet)

	xcm := XTokensToMoonbeam(`{"XCM":13}`, big.NewInt(7), "0xABCDEF")
	encoded, err := json.Marshal(xcm)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"Parachain":2004`)
	assert.Contains(t, string(encoded), `0xabcdef`)
}

func TestRedeemCallAndMatchers(t *testing.T) {
	kp := keypair.MustRandom()
	call, err := RedeemCall(big.NewInt(10), kp.Address(), VaultID{AccountID: "6vault"})
	require.NoError(t, err)
	assert.Equal(t, "requestRedeem", call.Method)
	assert.Len(t, call.Args[1].(string), 66)

	_, err = RedeemCall(big.NewInt(10), "not-a-stellar-address", VaultID{})
	assert.Error(t, err)

	ev := substraterpc.Event{Section: "redeem", Method: "RequestRedeem", Data: map[string]string{"redeemer": "6eph", "redeemId": "0x01"}}
	assert.True(t, RequestRedeemMatcher("6eph")(ev))
	assert.False(t, RequestRedeemMatcher("6other")(ev))

	exec := substraterpc.Event{Section: "redeem", Method: "ExecuteRedeem", Data: map[string]string{"redeemId": "0x01"}}
	assert.True(t, ExecuteRedeemMatcher("0x01")(exec))
	assert.False(t, ExecuteRedeemMatcher("0x01")(ev))
}

func TestGetEligibleVaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spacewalk/vaults", r.URL.Path)
		assert.Equal(t, "EURC", r.URL.Query().Get("assetCode"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":{"accountId":"6small"},"redeemableTokens":"5"},
			{"id":{"accountId":"6big"},"redeemableTokens":"500"},
			{"id":{"accountId":"6bigger"},"redeemableTokens":"5000"}]`))
	}))
	defer srv.Close()

	vaults, err := NewSpacewalk(srv.URL, time.Second).GetEligibleVaults(context.Background(), "EURC", "GISSUER", big.NewInt(100))
	require.NoError(t, err)
	require.Len(t, vaults, 2)
	assert.Equal(t, "6big", vaults[0].ID.AccountID)
}
