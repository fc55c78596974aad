package stellarrpc

import (
	"context"
)

type IStellarRPC interface {
	NetworkPassphrase() string
	AccountExists(ctx context.Context, address string) (bool, error)
	SequenceNumber(ctx context.Context, address string) (int64, error)
	// AssetBalance is in stroops; an empty issuer means the native asset.
	AssetBalance(ctx context.Context, address, code, issuer string) (int64, error)
	// SubmitXDR broadcasts a signed base64 envelope and returns its hash.
	SubmitXDR(ctx context.Context, envelope string) (string, error)
}
