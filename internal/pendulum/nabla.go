package pendulum

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
)

type Nabla struct {
	rpc    substraterpc.ISubstrateRPC
	router string
	// caller used for read-only queries; any existing account works.
	queryCaller string
}

func NewNabla(rpc substraterpc.ISubstrateRPC, router, queryCaller string) INabla {
	return &Nabla{rpc: rpc, router: router, queryCaller: queryCaller}
}

func (n *Nabla) Router() string {
	return n.router
}

func (n *Nabla) Quote(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut string) (*big.Int, error) {
	out, err := n.rpc.QueryContract(ctx, n.router, "getAmountOut", n.queryCaller, []interface{}{
		amountIn.String(),
		[]string{tokenIn, tokenOut},
	})
	if err != nil {
		return nil, errors.Wrap(err, "nabla quote")
	}
	return parseFirstUint(out)
}

func (n *Nabla) Allowance(ctx context.Context, token, owner string) (*big.Int, error) {
	out, err := n.rpc.QueryContract(ctx, token, "allowance", n.queryCaller, []interface{}{owner, n.router})
	if err != nil {
		return nil, errors.Wrap(err, "nabla allowance")
	}
	return parseUint(out)
}

func (n *Nabla) ApproveCall(token string, amount *big.Int) substraterpc.Call {
	return contractCall(token, "approve", n.router, amount.String())
}

func (n *Nabla) SwapCall(amountIn, minOut *big.Int, tokenIn, tokenOut, to string, deadline int64) substraterpc.Call {
	return contractCall(n.router, "swapExactTokensForTokens",
		amountIn.String(),
		minOut.String(),
		[]string{tokenIn, tokenOut},
		to,
		deadline,
	)
}

func contractCall(contract, message string, args ...interface{}) substraterpc.Call {
	return substraterpc.Call{
		Pallet: "contracts",
		Method: "call",
		Args:   []interface{}{contract, message, args},
	}
}
