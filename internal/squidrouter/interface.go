package squidrouter

import (
	"context"
)

type ISquidRouter interface {
	GetRoute(ctx context.Context, params RouteParams) (*Route, error)
	// GetStatus reports the cross-chain status of a routed transaction.
	GetStatus(ctx context.Context, txHash, requestID, fromChainID, toChainID string) (*Status, error)
}
