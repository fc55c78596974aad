package evmrpc

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
)

type IEvmRPC interface {
	ChainID() *big.Int
	// AccountNonce is the confirmed (latest block) nonce.
	AccountNonce(ctx context.Context, address string) (uint64, error)
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	ERC20BalanceOf(ctx context.Context, token, holder string) (*big.Int, error)
	ERC20Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	SendRawTransaction(ctx context.Context, raw string) (string, error)
	WaitForReceipt(ctx context.Context, txHash string, interval time.Duration) (*types.Receipt, error)
	// ReceiverPayloadRegistered reports whether the receiver contract stored a payload under hash.
	ReceiverPayloadRegistered(ctx context.Context, receiver, receiverHash string) (bool, error)
}
