package ramp

import (
	"context"
	"time"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

// IRepository persists one RampState per session. The engine is its only writer.
type IRepository interface {
	Load(ctx context.Context, sessionID string) (*model.RampState, error)
	Save(ctx context.Context, state *model.RampState) error
	// Create stores a new flow. It fails with ErrActiveFlow when the session already holds a flow
	// that has not succeeded; a succeeded flow is replaced.
	Create(ctx context.Context, state *model.RampState) error
	// Clear removes the state together with its submitted and user transaction records.
	Clear(ctx context.Context, sessionID string) error
	ListActive(ctx context.Context) ([]*model.RampState, error)
}

// ILocker hands out per-session leases so only one task advances a flow at a time.
type ILocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ILease, error)
}

type ILease interface {
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

// IAuditor mirrors ramp events to an external log. Implementations never fail the caller.
type IAuditor interface {
	Post(ctx context.Context, event string, payload interface{})
}
