package pendulum

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/stellar/go/strkey"

	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
)

// VaultID is kept in the gateway's JSON form and echoed back in the redeem call.
type VaultID struct {
	AccountID  string          `json:"accountId"`
	Collateral json.RawMessage `json:"collateral"`
	Wrapped    json.RawMessage `json:"wrapped"`
}

type Vault struct {
	ID            VaultID `json:"id"`
	RedeemableRaw string  `json:"redeemableTokens"`
}

type Spacewalk struct {
	client *resty.Client
}

func NewSpacewalk(gatewayURL string, timeout time.Duration) ISpacewalk {
	return &Spacewalk{
		client: resty.New().
			SetBaseURL(strings.TrimRight(gatewayURL, "/")).
			SetTimeout(timeout),
	}
}

// GetEligibleVaults lists vaults for the asset that can redeem at least amountRaw, in gateway order.
func (s *Spacewalk) GetEligibleVaults(ctx context.Context, assetCode, assetIssuer string, amountRaw *big.Int) ([]Vault, error) {
	var vaults []Vault
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"assetCode": assetCode, "assetIssuer": assetIssuer}).
		SetResult(&vaults).
		Get("/spacewalk/vaults")
	if err != nil {
		return nil, errors.Wrap(err, "spacewalk vault discovery failed")
	}
	if resp.IsError() {
		return nil, fmt.Errorf("spacewalk vault discovery status %d", resp.StatusCode())
	}

	var eligible []Vault
	for _, v := range vaults {
		redeemable, ok := new(big.Int).SetString(v.RedeemableRaw, 10)
		if ok && redeemable.Cmp(amountRaw) >= 0 {
			eligible = append(eligible, v)
		}
	}
	return eligible, nil
}

// RedeemCall burns wrapped tokens on Pendulum for a payout to stellarAddress by vault.
func RedeemCall(amountRaw *big.Int, stellarAddress string, vault VaultID) (substraterpc.Call, error) {
	raw, err := strkey.Decode(strkey.VersionByteAccountID, stellarAddress)
	if err != nil {
		return substraterpc.Call{}, errors.Wrap(err, "stellar redeem address")
	}
	return substraterpc.Call{
		Pallet: "redeem",
		Method: "requestRedeem",
		Args:   []interface{}{amountRaw.String(), "0x" + hex.EncodeToString(raw), vault},
	}, nil
}

// RequestRedeemMatcher matches the RequestRedeem event emitted for redeemer.
func RequestRedeemMatcher(redeemer string) func(substraterpc.Event) bool {
	return func(ev substraterpc.Event) bool {
		return ev.Is("redeem", "RequestRedeem") && ev.Data["redeemer"] == redeemer
	}
}

// ExecuteRedeemMatcher matches the vault's execution of requestID.
func ExecuteRedeemMatcher(requestID string) func(substraterpc.Event) bool {
	return func(ev substraterpc.Event) bool {
		return ev.Is("redeem", "ExecuteRedeem") && ev.Data["redeemId"] == requestID
	}
}
