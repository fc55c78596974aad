package ephemeral

import (
	"context"
)

// NonceReader is satisfied by both the substrate gateway and the EVM client.
type NonceReader interface {
	AccountNonce(ctx context.Context, address string) (uint64, error)
}

// NonceConsumed reports whether the account already used the nonce assigned to an operation,
// meaning the operation (or something signed in its place) has landed on chain.
func NonceConsumed(ctx context.Context, reader NonceReader, address string, assigned uint64) (bool, error) {
	current, err := reader.AccountNonce(ctx, address)
	if err != nil {
		return false, err
	}
	return current > assigned, nil
}
