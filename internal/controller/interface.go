package controller

import (
	"context"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

type IController interface {
	// StartRamp builds a new flow for the session and hands it to the runner.
	StartRamp(ctx context.Context, params StartRampParams) (*StartRampResult, error)

	// GetRamp returns the session's state without ephemeral seeds.
	GetRamp(ctx context.Context, sessionID string) (*model.RampState, error)

	// RecoverRamp clears a recoverable failure and resumes the flow at the failed phase.
	RecoverRamp(ctx context.Context, sessionID string) (*model.RampState, error)

	// AbandonRamp stops the flow and clears everything stored for the session.
	AbandonRamp(ctx context.Context, sessionID string) error

	// SubmitUserTransaction records a transaction the user's wallet signed for the flow.
	SubmitUserTransaction(ctx context.Context, sessionID string, params UserTransactionParams) error
}

// IRunner is the part of the session runner the controller drives.
type IRunner interface {
	Kick(sessionID string)
	Cancel(sessionID string)
}

type IUserTransactionWriter interface {
	SaveUserTransaction(ctx context.Context, userTx *model.UserTransaction) error
}
