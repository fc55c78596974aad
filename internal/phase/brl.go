package phase

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pendulum-chain/vortex-sub005/internal/brla"
	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/ephemeral"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
)

// brlCents converts a BRL unit amount to the integer cents BRLA expects, rounding down.
func brlCents(units string) (int64, error) {
	d, err := decimal.NewFromString(units)
	if err != nil {
		return 0, ramp.Unrecoverable(fmt.Errorf("brl amount %q: %w", units, err))
	}
	return d.Shift(2).Floor().IntPart(), nil
}

func requireBRLA(state *model.RampState) (*model.BRLAInfo, error) {
	if state.BRLA == nil || state.BRLA.TaxID == "" {
		return nil, ramp.Unrecoverablef("brla subaccount missing")
	}
	return state.BRLA, nil
}

// BrlaTeleport asks BRLA to move the minted BRL to the Moonbeam ephemeral. The first pass only
// persists the event cutoff; the request goes out on the next pass, at most once.
func (h *Handlers) BrlaTeleport(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)
	info, err := requireBRLA(state)
	if err != nil {
		return nil, err
	}
	if state.Ephemerals.Moonbeam == nil {
		return nil, ramp.Unrecoverablef("moonbeam ephemeral missing")
	}

	if info.TeleportRequestedAt == nil {
		info.TeleportRequestedAt = h.brlaCutoff()
		h.ec.Logger.Info("[phase.BrlaTeleport] teleport scheduled", fields)
		return state, nil
	}
	since := *info.TeleportRequestedAt

	cents, err := brlCents(state.InputAmount.Units)
	if err != nil {
		return nil, err
	}
	if err := h.requestBRLAOnce(ctx, state, model.TxBrlaTeleport, brla.EventTypeTeleport, since, func(ctx context.Context) error {
		return h.ec.BRLA.Teleport(ctx, brla.TeleportRequest{
			TaxID:           info.TaxID,
			Amount:          cents,
			ReceiverAddress: state.Ephemerals.Moonbeam.Address,
		})
	}); err != nil {
		return nil, err
	}

	if err := h.waitBRLAEvent(ctx, state, brla.EventTypeTeleport, since); err != nil {
		return nil, err
	}

	token, holder := state.InputToken.MoonbeamAddress, state.Ephemerals.Moonbeam.Address
	if _, err := ephemeral.WaitForBalance(ctx, h.ec.Logger, "brla teleport", func(ctx context.Context) (*big.Int, error) {
		return h.ec.Moonbeam.ERC20BalanceOf(ctx, token, holder)
	}, state.InputAmount.RawInt(), h.ec.Config.PollInterval); err != nil {
		return nil, err
	}
	return advance(state)
}

// BrlaPayout sends the BRLA to the user's deposit address and triggers the PIX payout, then waits
// for the burn to settle. Like the teleport, the cutoff is persisted before the payout request.
func (h *Handlers) BrlaPayout(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)
	info, err := requireBRLA(state)
	if err != nil {
		return nil, err
	}

	if info.PayoutRequestedAt == nil {
		if _, err := h.submitMoonbeam(ctx, state, model.TxMoonbeamPayoutTransfer, state.Nonces.MoonbeamPayout); err != nil {
			return nil, err
		}
		info.PayoutRequestedAt = h.brlaCutoff()
		h.ec.Logger.Info("[phase.BrlaPayout] payout scheduled", fields)
		return state, nil
	}
	since := *info.PayoutRequestedAt

	cents, err := brlCents(state.OutputAmount.Units)
	if err != nil {
		return nil, err
	}
	err = h.requestBRLAOnce(ctx, state, model.TxBrlaPayout, brla.EventTypeBurn, since, func(ctx context.Context) error {
		return h.ec.BRLA.TriggerOfframp(ctx, brla.PayoutRequest{
			TaxID:  info.TaxID,
			PixKey: info.PixDestination,
			Amount: cents,
		})
	})
	if errors.Is(err, brla.ErrPayoutRejected) {
		return nil, ramp.Unrecoverable(err)
	}
	if err != nil {
		return nil, err
	}

	if err := h.waitBRLAEvent(ctx, state, brla.EventTypeBurn, since); err != nil {
		return nil, err
	}
	return advance(state)
}

func (h *Handlers) brlaCutoff() *time.Time {
	cutoff := h.ec.Clock.Now().UTC().Add(-consts.BRLAClockSkew)
	return &cutoff
}

// requestBRLAOnce sends an off-chain BRLA request unless the submission index or the event feed
// shows it already went out. The feed covers a request whose index record was lost.
func (h *Handlers) requestBRLAOnce(ctx context.Context, state *model.RampState, role model.TxRole, kind string, since time.Time, request func(ctx context.Context) error) error {
	fields := h.log(state)
	fields["role"] = string(role)

	_, err := h.broadcastOnce(ctx, state, submission{
		role:  role,
		chain: consts.ChainBRLA,
		submit: func(ctx context.Context) (string, error) {
			events, err := h.ec.BRLA.GetEvents(ctx, state.BRLA.TaxID)
			if err != nil {
				return "", err
			}
			if ev := brla.FindEvent(events, kind, since); ev != nil {
				fields["event_id"] = ev.ID
				h.ec.Logger.Info("[phase.requestBRLAOnce] request already in the event feed", fields)
				return ev.ID, nil
			}
			if err := request(ctx); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s/%s", state.SessionID, role), nil
		},
	})
	return err
}

// waitBRLAEvent polls the event feed until an event of kind after since settles. An unavailable
// feed is retried; a failed event is final.
func (h *Handlers) waitBRLAEvent(ctx context.Context, state *model.RampState, kind string, since time.Time) error {
	fields := h.log(state)
	fields["event"] = kind

	return h.poll(ctx, func(ctx context.Context) (bool, error) {
		events, err := h.ec.BRLA.GetEvents(ctx, state.BRLA.TaxID)
		if errors.Is(err, brla.ErrFeedUnavailable) {
			fields["error"] = err.Error()
			h.ec.Logger.Debug("[phase.waitBRLAEvent] feed unavailable", fields)
			return false, nil
		}
		if err != nil {
			return false, err
		}
		ev := brla.FindEvent(events, kind, since)
		if ev == nil {
			return false, nil
		}
		switch ev.Status {
		case brla.EventStatusFailed:
			return false, ramp.Unrecoverablef("brla %s event %s failed", kind, ev.ID)
		case brla.EventStatusSuccess:
			return true, nil
		}
		return false, nil
	})
}

// MoonbeamToPendulum sends the teleported BRL from Moonbeam to the Pendulum ephemeral.
func (h *Handlers) MoonbeamToPendulum(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	if _, err := h.submitMoonbeam(ctx, state, model.TxMoonbeamToPendulum, state.Nonces.MoonbeamXcm); err != nil {
		return nil, err
	}
	if err := h.waitInputArrival(ctx, state); err != nil {
		return nil, err
	}
	return advance(state)
}
