package phase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pendulum-chain/vortex-sub005/internal/ephemeral"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
)

// ErrQuoteBelowMinimum is returned when the AMM quote fell under the soft minimum output. The
// engine retries it until the failure timeout.
var ErrQuoteBelowMinimum = errors.New("nabla quote below minimum output")

// approveSettleTimeout bounds the wait for the approve nonce once the allowance is already in place.
const approveSettleTimeout = 30 * time.Second

// NablaApprove lets the Nabla router spend the swap input. The allowance is read before anything
// is submitted; one that already covers the input means the approve landed and only its nonce
// has yet to show up.
func (h *Handlers) NablaApprove(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)

	s, err := h.pendulumSubmission(state, model.TxNablaApprove, state.Nonces.NablaApprove, nil)
	if err != nil {
		return nil, err
	}
	earlier, err := h.landed(ctx, state, s)
	if err != nil {
		return nil, err
	}
	if earlier != nil {
		return advance(state)
	}

	owner, err := pendulumAddress(state)
	if err != nil {
		return nil, err
	}
	token, amountIn := state.InputToken.PendulumWrapper, state.InputAmountPendulum.RawInt()

	allowance, err := h.ec.Nabla.Allowance(ctx, token, owner)
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(amountIn) >= 0 {
		fields["allowance"] = allowance.String()
		h.ec.Logger.Info("[phase.NablaApprove] allowance already covers the input", fields)

		err := h.pollWithin(ctx, approveSettleTimeout, func(ctx context.Context) (bool, error) {
			consumed, err := ephemeral.NonceConsumed(ctx, s.nonceReader, s.address, s.nonce)
			if err != nil {
				return false, nil
			}
			return consumed, nil
		})
		if err == nil {
			return advance(state)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// the swap is signed on the next nonce, so the approve still has to consume this one
		h.ec.Logger.Info("[phase.NablaApprove] approve nonce still open, submitting", fields)
	}

	res, _, err := h.submitPendulum(ctx, state, model.TxNablaApprove, state.Nonces.NablaApprove)
	if err != nil {
		return nil, err
	}
	if res.AlreadyDone {
		return advance(state)
	}

	allowance, err = h.ec.Nabla.Allowance(ctx, token, owner)
	if err != nil {
		fields["error"] = err.Error()
		h.ec.Logger.Error("[phase.NablaApprove] allowance read failed", fields)
		return advance(state)
	}
	if allowance.Cmp(amountIn) < 0 {
		return nil, ramp.Unrecoverablef("allowance %s below swap input %s after approve", allowance, state.InputAmountPendulum.Raw)
	}
	return advance(state)
}

// NablaSwap re-quotes right before submitting the pre-signed swap and refuses to go ahead below the
// soft minimum. A swap that already landed skips the quote.
func (h *Handlers) NablaSwap(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)

	s, err := h.pendulumSubmission(state, model.TxNablaSwap, state.Nonces.NablaSwap, nil)
	if err != nil {
		return nil, err
	}
	earlier, err := h.landed(ctx, state, s)
	if err != nil {
		return nil, err
	}
	if earlier != nil {
		return advance(state)
	}

	amountIn := state.InputAmountPendulum.RawInt()
	quote, err := h.ec.Nabla.Quote(ctx, amountIn, state.InputToken.PendulumWrapper, state.OutputToken.PendulumWrapper)
	if err != nil {
		return nil, err
	}
	minimum := model.SoftMinimumOutputRaw(state.OutputAmount.RawInt())
	fields["quote"] = quote.String()
	fields["minimum"] = minimum.String()
	if quote.Cmp(minimum) < 0 {
		h.ec.Logger.Info("[phase.NablaSwap] quote below minimum", fields)
		return nil, fmt.Errorf("%w: %s < %s", ErrQuoteBelowMinimum, quote, minimum)
	}

	if _, _, err := h.submitPendulum(ctx, state, model.TxNablaSwap, state.Nonces.NablaSwap); err != nil {
		return nil, err
	}
	h.ec.Logger.Info("[phase.NablaSwap] swap submitted", fields)
	return advance(state)
}
