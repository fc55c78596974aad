package phase

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellar/go/amount"

	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/pendulum"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/stellarrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
)

// SpacewalkRedeem burns the swap output on Pendulum for a payout to the Stellar ephemeral and waits
// for the vault to execute it. A redeem the pallet refuses for lack of balance was already
// requested, so the phase waits for the Stellar side instead.
func (h *Handlers) SpacewalkRedeem(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)
	if state.Settlement == nil || state.Ephemerals.Stellar == nil {
		return nil, ramp.Unrecoverablef("stellar settlement missing")
	}

	res, inclusion, err := h.submitPendulum(ctx, state, model.TxSpacewalkRedeem, state.Nonces.PendulumTransferOut)
	switch {
	case errors.Is(err, substraterpc.ErrAmountExceedsBalance):
		h.ec.Logger.Info("[phase.SpacewalkRedeem] redeem already requested", fields)
		if err := h.waitStellarArrival(ctx, state); err != nil {
			return nil, err
		}
		return advance(state)
	case err != nil:
		return nil, err
	}

	if inclusion != nil {
		match := pendulum.RequestRedeemMatcher(state.Ephemerals.Pendulum.Address)
		for _, ev := range inclusion.Events {
			if match(ev) {
				state.RedeemRequestID = ev.Data["redeemId"]
				break
			}
		}
	}

	if res.AlreadyDone || inclusion == nil || state.RedeemRequestID == "" {
		if err := h.waitStellarArrival(ctx, state); err != nil {
			return nil, err
		}
		return advance(state)
	}

	fields["redeem_id"] = state.RedeemRequestID
	h.ec.Logger.Info("[phase.SpacewalkRedeem] waiting for vault execution", fields)

	waitCtx, cancel := context.WithTimeout(ctx, h.ec.Config.RedeemTimeout)
	defer cancel()
	if _, err := h.ec.Pendulum.WaitForEvent(waitCtx, inclusion.BlockNumber, h.ec.Config.PollInterval, pendulum.ExecuteRedeemMatcher(state.RedeemRequestID)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("redeem %s not executed: %w", state.RedeemRequestID, err)
	}
	return advance(state)
}

// waitStellarArrival waits, bounded by the redeem timeout, until the Stellar ephemeral holds the
// settlement amount.
func (h *Handlers) waitStellarArrival(ctx context.Context, state *model.RampState) error {
	target, err := amount.ParseInt64(state.Settlement.Amount)
	if err != nil {
		return ramp.Unrecoverable(fmt.Errorf("settlement amount %q: %w", state.Settlement.Amount, err))
	}
	fields := h.log(state)
	token := state.OutputToken
	address := state.Ephemerals.Stellar.Address

	return h.pollWithin(ctx, h.ec.Config.RedeemTimeout, func(ctx context.Context) (bool, error) {
		balance, err := h.ec.Stellar.AssetBalance(ctx, address, token.StellarCode, token.StellarIssuer)
		if err != nil {
			fields["error"] = err.Error()
			h.ec.Logger.Debug("[phase.waitStellarArrival] balance read failed", fields)
			return false, nil
		}
		return balance >= target, nil
	})
}

// StellarPayment submits the pre-signed payment to the anchor.
func (h *Handlers) StellarPayment(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	if err := h.submitStellar(ctx, state, model.TxStellarPayment); err != nil {
		return nil, err
	}
	return advance(state)
}

// StellarCleanup merges the Stellar ephemeral back into the funding account.
func (h *Handlers) StellarCleanup(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	if state.Ephemerals.Stellar == nil {
		return nil, ramp.Unrecoverablef("stellar ephemeral missing")
	}
	exists, err := h.ec.Stellar.AccountExists(ctx, state.Ephemerals.Stellar.Address)
	if err != nil {
		return nil, err
	}
	if !exists {
		h.ec.Logger.Info("[phase.StellarCleanup] ephemeral already merged", h.log(state))
		return advance(state)
	}
	if err := h.submitStellar(ctx, state, model.TxStellarCleanup); err != nil {
		return nil, err
	}
	return advance(state)
}

// submitStellar treats a consumed sequence as an earlier successful submission. Any other rejection
// is final.
func (h *Handlers) submitStellar(ctx context.Context, state *model.RampState, role model.TxRole) error {
	envelope, err := requireTx(state, role)
	if err != nil {
		return err
	}
	fields := h.log(state)
	fields["role"] = string(role)

	_, err = h.broadcastOnce(ctx, state, submission{
		role:  role,
		chain: consts.ChainStellar,
		submit: func(ctx context.Context) (string, error) {
			return h.ec.Stellar.SubmitXDR(ctx, envelope)
		},
	})

	var rejected *stellarrpc.RejectedError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stellarrpc.ErrBadSequence):
		h.ec.Logger.Info("[phase.submitStellar] sequence already used, treating as submitted", fields)
		return nil
	case errors.As(err, &rejected):
		return ramp.Unrecoverable(err)
	}
	return err
}

// PendulumCleanup sweeps what is left on the Pendulum ephemeral to the funding account. Failures are
// logged and the flow still completes.
func (h *Handlers) PendulumCleanup(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)
	if _, _, err := h.submitPendulum(ctx, state, model.TxPendulumCleanup, state.Nonces.PendulumCleanup); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fields["error"] = err.Error()
		h.ec.Logger.Error("[phase.PendulumCleanup] cleanup failed", fields)
	}
	return advance(state)
}
