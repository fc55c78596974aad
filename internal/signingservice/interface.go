package signingservice

import (
	"context"
)

// ISigningService is the custodial collaborator that holds the long-lived keys. It serializes
// nonce use of its own funding accounts; callers never coordinate that.
type ISigningService interface {
	// CreateEphemeralFunding creates (Stellar) or tops up (substrate, EVM) an ephemeral account.
	CreateEphemeralFunding(ctx context.Context, req FundingRequest) error
	CosignPayout(ctx context.Context, req CosignRequest) (*CosignResponse, error)
	ExecuteBridgeCompletion(ctx context.Context, receiverID, payload string) (string, error)
	Subsidize(ctx context.Context, req SubsidyRequest) error
	// FundingAccounts returns the public funding account per chain.
	FundingAccounts(ctx context.Context) (map[string]string, error)
}
