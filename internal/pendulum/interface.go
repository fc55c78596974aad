package pendulum

import (
	"context"
	"math/big"

	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
)

// INabla is the Nabla AMM router on Pendulum.
type INabla interface {
	Router() string
	// Quote is the router's current amount out for amountIn along tokenIn -> tokenOut.
	Quote(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut string) (*big.Int, error)
	Allowance(ctx context.Context, token, owner string) (*big.Int, error)
	ApproveCall(token string, amount *big.Int) substraterpc.Call
	SwapCall(amountIn, minOut *big.Int, tokenIn, tokenOut, to string, deadline int64) substraterpc.Call
}

// ISpacewalk discovers vaults able to redeem a Stellar asset.
type ISpacewalk interface {
	GetEligibleVaults(ctx context.Context, assetCode, assetIssuer string, amountRaw *big.Int) ([]Vault, error)
}
