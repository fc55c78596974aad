package brla

import (
	"context"
)

type IBRLA interface {
	// GetUser returns the subaccount of a tax id, including the Moonbeam deposit address for offramps.
	GetUser(ctx context.Context, taxID string) (*User, error)
	TriggerOfframp(ctx context.Context, req PayoutRequest) error
	// Teleport moves minted BRLA from the subaccount to a Moonbeam address.
	Teleport(ctx context.Context, req TeleportRequest) error
	GetEvents(ctx context.Context, taxID string) ([]Event, error)
}
