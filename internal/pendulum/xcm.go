package pendulum

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
)

const (
	MoonbeamParachainID = 2004
	AssetHubParachainID = 1000
)

func xTokensTransfer(currency string, amount *big.Int, interior []interface{}) substraterpc.Call {
	dest := map[string]interface{}{
		"V3": map[string]interface{}{
			"parents":  1,
			"interior": map[string]interface{}{"X2": interior},
		},
	}
	return substraterpc.Call{
		Pallet: "xTokens",
		Method: "transfer",
		Args:   []interface{}{json.RawMessage(currency), amount.String(), dest, "Unlimited"},
	}
}

// XTokensToMoonbeam sends currency to an H160 account on Moonbeam.
func XTokensToMoonbeam(currency string, amount *big.Int, evmAddress string) substraterpc.Call {
	return xTokensTransfer(currency, amount, []interface{}{
		map[string]interface{}{"Parachain": MoonbeamParachainID},
		map[string]interface{}{"AccountKey20": map[string]interface{}{"network": nil, "key": strings.ToLower(evmAddress)}},
	})
}

// XTokensToAssetHub sends currency to a 32 byte account on AssetHub.
func XTokensToAssetHub(currency string, amount *big.Int, accountID []byte) substraterpc.Call {
	return xTokensTransfer(currency, amount, []interface{}{
		map[string]interface{}{"Parachain": AssetHubParachainID},
		map[string]interface{}{"AccountId32": map[string]interface{}{"network": nil, "id": "0x" + hex.EncodeToString(accountID)}},
	})
}

// CleanupCall sweeps every listed currency and then the native balance to dest in one batch.
func CleanupCall(currencies []string, dest string) substraterpc.Call {
	calls := make([]substraterpc.Call, 0, len(currencies)+1)
	seen := map[string]bool{}
	for _, c := range currencies {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		calls = append(calls, substraterpc.Call{
			Pallet: "tokens",
			Method: "transferAll",
			Args:   []interface{}{dest, json.RawMessage(c), false},
		})
	}
	calls = append(calls, substraterpc.Call{
		Pallet: "balances",
		Method: "transferAll",
		Args:   []interface{}{dest, false},
	})
	return substraterpc.Call{Pallet: "utility", Method: "batchAll", Args: []interface{}{calls}}
}

// IsXcmSent matches the origin chain event emitted when an XCM transfer leaves the chain.
func IsXcmSent(ev substraterpc.Event) bool {
	return ev.Is("polkadotXcm", "Sent") || ev.Is("xcmpQueue", "XcmpMessageSent") || ev.Is("xTokens", "TransferredMultiAssets")
}
