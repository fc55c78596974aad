package anchor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/stellar/go/amount"
	"github.com/stellar/go/strkey"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/stellarrpc"
)

// IAnchor reads the settlement descriptor of an interactive withdrawal once the user finished
// the anchor handshake. The handshake itself happens elsewhere.
type IAnchor interface {
	FetchSettlement(ctx context.Context, transferServer, bearerToken, transactionID string) (*model.StellarSettlement, error)
}

type Anchor struct {
	client *resty.Client
}

func New(timeout time.Duration) IAnchor {
	return &Anchor{client: resty.New().SetTimeout(timeout)}
}

type transactionResponse struct {
	Transaction struct {
		ID                    string `json:"id"`
		Status                string `json:"status"`
		AmountIn              string `json:"amount_in"`
		WithdrawAnchorAccount string `json:"withdraw_anchor_account"`
		WithdrawMemo          string `json:"withdraw_memo"`
		WithdrawMemoType      string `json:"withdraw_memo_type"`
	} `json:"transaction"`
}

func (a *Anchor) FetchSettlement(ctx context.Context, transferServer, bearerToken, transactionID string) (*model.StellarSettlement, error) {
	var out transactionResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(bearerToken).
		SetQueryParam("id", transactionID).
		SetResult(&out).
		Get(strings.TrimRight(transferServer, "/") + "/transaction")
	if err != nil {
		return nil, errors.Wrap(err, "anchor transaction lookup failed")
	}
	if resp.IsError() {
		return nil, fmt.Errorf("anchor transaction lookup status %d", resp.StatusCode())
	}

	tx := out.Transaction
	if tx.Status != "pending_user_transfer_start" {
		return nil, fmt.Errorf("anchor transaction %s is %s, not awaiting the transfer", tx.ID, tx.Status)
	}
	return &model.StellarSettlement{
		Amount:             tx.AmountIn,
		Memo:               tx.WithdrawMemo,
		MemoType:           tx.WithdrawMemoType,
		DestinationAccount: tx.WithdrawAnchorAccount,
		CorrelationID:      tx.ID,
	}, nil
}

// ValidateSettlement checks a descriptor can be turned into a payout envelope for token.
func ValidateSettlement(s *model.StellarSettlement, token model.TokenRef) error {
	if s == nil {
		return fmt.Errorf("settlement missing")
	}
	if !strkey.IsValidEd25519PublicKey(s.DestinationAccount) {
		return fmt.Errorf("settlement destination %q is not a stellar account", s.DestinationAccount)
	}
	stroops, err := amount.ParseInt64(s.Amount)
	if err != nil || stroops <= 0 {
		return fmt.Errorf("settlement amount %q invalid", s.Amount)
	}
	if _, err := stellarrpc.BuildMemo(s.Memo, s.MemoType); err != nil {
		return err
	}
	if token.StellarCode == "" || token.StellarIssuer == "" {
		return fmt.Errorf("token %s is not a stellar asset", token.Symbol)
	}
	return nil
}
