package phase

import (
	"context"
	"math/big"

	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/ephemeral"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
)

// PendulumToMoonbeam moves the swap output to the Moonbeam ephemeral and waits until it holds the
// full amount the next Moonbeam transaction spends.
func (h *Handlers) PendulumToMoonbeam(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	if state.Ephemerals.Moonbeam == nil {
		return nil, ramp.Unrecoverablef("moonbeam ephemeral missing")
	}
	if _, _, err := h.submitPendulum(ctx, state, model.TxPendulumToMoonbeam, state.Nonces.PendulumTransferOut); err != nil {
		return nil, err
	}

	token, holder := state.OutputToken.MoonbeamAddress, state.Ephemerals.Moonbeam.Address
	if _, err := ephemeral.WaitForBalance(ctx, h.ec.Logger, "moonbeam output", func(ctx context.Context) (*big.Int, error) {
		return h.ec.Moonbeam.ERC20BalanceOf(ctx, token, holder)
	}, outputOnMoonbeam(state), h.ec.Config.PollInterval); err != nil {
		return nil, err
	}
	return advance(state)
}

// PendulumToAssetHub sends the swap output to the user's AssetHub account.
func (h *Handlers) PendulumToAssetHub(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	_, inclusion, err := h.submitPendulum(ctx, state, model.TxPendulumToAssetHub, state.Nonces.PendulumTransferOut)
	if err != nil {
		return nil, err
	}
	if inclusion != nil && !xcmSent(inclusion.Events) {
		return nil, ramp.Unrecoverablef("xcm transfer %s emitted no sent event", inclusion.Hash)
	}
	return advance(state)
}

// SquidRouterOnramp runs the ephemeral's approve and swap through Squid and follows the transfer to
// the destination chain.
func (h *Handlers) SquidRouterOnramp(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)

	approve, err := h.submitMoonbeam(ctx, state, model.TxSquidApprove, state.Nonces.SquidApprove)
	if err != nil {
		return nil, err
	}
	state.Bridge.ApproveHash = approve.Hash

	swap, err := h.submitMoonbeam(ctx, state, model.TxSquidSwap, state.Nonces.SquidSwap)
	if err != nil {
		return nil, err
	}
	if swap.Hash == "" {
		h.ec.Logger.Info("[phase.SquidRouterOnramp] swap landed without a recorded hash, skipping status", fields)
		return advance(state)
	}
	state.Bridge.SwapHash = swap.Hash

	fromChain, err := consts.EVMChainID(model.NetworkMoonbeam)
	if err != nil {
		return nil, ramp.Unrecoverable(err)
	}
	toChain, err := consts.EVMChainID(state.Network)
	if err != nil {
		return nil, ramp.Unrecoverable(err)
	}
	if err := h.waitSquid(ctx, state, swap.Hash, fromChain, toChain); err != nil {
		return nil, err
	}
	return advance(state)
}
