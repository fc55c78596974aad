package substraterpc

import (
	"context"
	"encoding/json"
	"math/big"
	"time"
)

// ISubstrateRPC talks to a chain through the JSON gateway that fronts the node.
type ISubstrateRPC interface {
	Chain() string
	AccountNonce(ctx context.Context, address string) (uint64, error)
	// FreeBalance of currency, the native token when currency is empty.
	FreeBalance(ctx context.Context, address, currency string) (*big.Int, error)
	SigningPayload(ctx context.Context, call Call, signer string, nonce uint64) ([]byte, error)
	Submit(ctx context.Context, ext *SignedExtrinsic) (*Inclusion, error)
	SubmitRaw(ctx context.Context, raw string) (*Inclusion, error)
	BlockEvents(ctx context.Context, blockRef string) ([]Event, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	QueryContract(ctx context.Context, contract, method, caller string, args []interface{}) (json.RawMessage, error)
	WaitForEvent(ctx context.Context, fromBlock uint64, interval time.Duration, match func(Event) bool) (*Event, error)
}
