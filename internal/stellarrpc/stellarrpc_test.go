package stellarrpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

const eurcIssuer = "GDHU6WRG4IEQXM5NZ4BMPKOXHW76MZM4Y2IEMFDVXBSDP6SJY4ITNPP2"

func horizonStub(t *testing.T, account string, submitStatus int, submitBody string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/accounts/"+account):
			fmt.Fprintf(w, `{"id":%q,"account_id":%q,"sequence":"4294967296","balances":[
				{"balance":"12.5000000","asset_type":"credit_alphanum4","asset_code":"EURC","asset_issuer":%q},
				{"balance":"2.4999900","asset_type":"native"}]}`, account, account, eurcIssuer)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/accounts/"):
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"type":"https://stellar.org/horizon-errors/not_found","title":"Resource Missing","status":404}`)
		case r.Method == http.MethodPost && r.URL.Path == "/transactions":
			w.WriteHeader(submitStatus)
			fmt.Fprint(w, submitBody)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
}

func TestAccountQueries(t *testing.T) {
	kp := keypair.MustRandom()
	srv := horizonStub(t, kp.Address(), http.StatusOK, `{}`)
	defer srv.Close()

	rpc := New(srv.URL, network.TestNetworkPassphrase, 5*time.Second, logger.New("test"))
	ctx := context.Background()

	exists, err := rpc.AccountExists(ctx, kp.Address())
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = rpc.AccountExists(ctx, keypair.MustRandom().Address())
	require.NoError(t, err)
	assert.False(t, exists)

	seq, err := rpc.SequenceNumber(ctx, kp.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(4294967296), seq)

	eurc, err := rpc.AssetBalance(ctx, kp.Address(), "EURC", eurcIssuer)
	require.NoError(t, err)
	assert.Equal(t, int64(125000000), eurc)

	native, err := rpc.AssetBalance(ctx, kp.Address(), "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(24999900), native)

	missing, err := rpc.AssetBalance(ctx, kp.Address(), "ARS", eurcIssuer)
	require.NoError(t, err)
	assert.Zero(t, missing)
}

func TestSubmitClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(t *testing.T, err error)
	}{
		{
			name:   "bad sequence",
			status: http.StatusBadRequest,
			body:   `{"type":"https://stellar.org/horizon-errors/transaction_failed","title":"Transaction Failed","status":400,"extras":{"result_codes":{"transaction":"tx_bad_seq"}}}`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrBadSequence)
			},
		},
		{
			name:   "operation failure",
			status: http.StatusBadRequest,
			body:   `{"type":"https://stellar.org/horizon-errors/transaction_failed","title":"Transaction Failed","status":400,"extras":{"result_codes":{"transaction":"tx_failed","operations":["op_underfunded"]}}}`,
			wantErr: func(t *testing.T, err error) {
				var rejected *RejectedError
				require.True(t, errors.As(err, &rejected))
				assert.Equal(t, "tx_failed", rejected.Code)
				assert.Equal(t, []string{"op_underfunded"}, rejected.Operations)
				assert.False(t, errors.Is(err, ErrBadSequence))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := horizonStub(t, "unused", tt.status, tt.body)
			defer srv.Close()
			rpc := New(srv.URL, network.TestNetworkPassphrase, 5*time.Second, logger.New("test"))

			_, err := rpc.SubmitXDR(context.Background(), "AAAA")
			require.Error(t, err)
			tt.wantErr(t, err)
		})
	}
}

func TestPayoutAndMergeEnvelopes(t *testing.T) {
	ephemeral := keypair.MustRandom()
	funding := keypair.MustRandom()
	params := PayoutParams{
		Ephemeral:      ephemeral.Address(),
		FundingAccount: funding.Address(),
		Sequence:       100,
		Destination:    keypair.MustRandom().Address(),
		Amount:         "10.5",
		AssetCode:      "EURC",
		AssetIssuer:    eurcIssuer,
		Memo:           "12345",
		MemoType:       "id",
		MaxTime:        1_900_000_000,
		BaseFee:        txnbuild.MinBaseFee,
	}

	cosign := func(tx *txnbuild.Transaction) string {
		hash, err := tx.Hash(network.TestNetworkPassphrase)
		require.NoError(t, err)
		sig, err := funding.SignBase64(hash[:])
		require.NoError(t, err)
		return sig
	}

	payment, err := BuildPayment(params)
	require.NoError(t, err)
	merge, err := BuildMerge(params)
	require.NoError(t, err)

	// the cosigner rebuilds identical bytes from the same params
	again, err := BuildPayment(params)
	require.NoError(t, err)
	h1, _ := payment.Hash(network.TestNetworkPassphrase)
	h2, _ := again.Hash(network.TestNetworkPassphrase)
	assert.Equal(t, h1, h2)

	paymentXDR, err := SignWithCosigner(payment, network.TestNetworkPassphrase, ephemeral, funding.Address(), cosign(payment))
	require.NoError(t, err)
	mergeXDR, err := SignWithCosigner(merge, network.TestNetworkPassphrase, ephemeral, funding.Address(), cosign(merge))
	require.NoError(t, err)

	seq, err := EnvelopeSequence(paymentXDR)
	require.NoError(t, err)
	assert.Equal(t, int64(101), seq)
	seq, err = EnvelopeSequence(mergeXDR)
	require.NoError(t, err)
	assert.Equal(t, int64(102), seq)

	generic, err := txnbuild.TransactionFromXDR(mergeXDR)
	require.NoError(t, err)
	tx, ok := generic.Transaction()
	require.True(t, ok)
	assert.Len(t, tx.Signatures(), 2)
	assert.Len(t, tx.Operations(), 2)
}

func TestBuildMemo(t *testing.T) {
	memo, err := BuildMemo("hello", "text")
	require.NoError(t, err)
	assert.Equal(t, txnbuild.MemoText("hello"), memo)

	memo, err = BuildMemo("", "")
	require.NoError(t, err)
	assert.Nil(t, memo)

	hashHex := strings.Repeat("ab", 32)
	memo, err = BuildMemo(hashHex, "hash")
	require.NoError(t, err)
	assert.IsType(t, txnbuild.MemoHash{}, memo)

	_, err = BuildMemo("short", "hash")
	assert.Error(t, err)
	_, err = BuildMemo("x", "carrier-pigeon")
	assert.Error(t, err)
}
