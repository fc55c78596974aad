package phase

import (
	"context"
	"errors"
	"math/big"

	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/pendulum"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/signingservice"
	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
)

func (h *Handlers) userTransaction(ctx context.Context, sessionID string, kind model.UserTransactionKind) (*model.UserTransaction, error) {
	txs, err := h.ec.UserTxs.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		if txs[i].Kind == kind {
			return &txs[i], nil
		}
	}
	return nil, nil
}

// SquidRouter waits for the user's approve and swap on the source EVM chain and follows the routed
// transfer until Squid reports it delivered on Moonbeam.
func (h *Handlers) SquidRouter(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)

	swap, err := h.userTransaction(ctx, state.SessionID, model.UserTxSquidSwap)
	if err != nil {
		return nil, err
	}
	if swap == nil || swap.TxHash == "" {
		h.ec.Logger.Info("[phase.SquidRouter] waiting for the user's swap", fields)
		return nil, ramp.ErrNotReady
	}
	approve, err := h.userTransaction(ctx, state.SessionID, model.UserTxSquidApprove)
	if err != nil {
		return nil, err
	}
	if approve != nil {
		state.Bridge.ApproveHash = approve.TxHash
	}
	state.Bridge.SwapHash = swap.TxHash

	fromChain, err := consts.EVMChainID(state.Network)
	if err != nil {
		return nil, ramp.Unrecoverable(err)
	}
	toChain, err := consts.EVMChainID(model.NetworkMoonbeam)
	if err != nil {
		return nil, ramp.Unrecoverable(err)
	}

	if err := h.waitSquid(ctx, state, swap.TxHash, fromChain, toChain); err != nil {
		return nil, err
	}
	return advance(state)
}

// waitSquid polls the router status until the routed transfer succeeded. The status endpoint
// answers with errors until it indexes the transaction, so read errors keep the poll going.
func (h *Handlers) waitSquid(ctx context.Context, state *model.RampState, txHash, fromChain, toChain string) error {
	fields := h.log(state)
	fields["tx_hash"] = txHash

	return h.poll(ctx, func(ctx context.Context) (bool, error) {
		status, err := h.ec.Squid.GetStatus(ctx, txHash, state.Bridge.SquidRequestID, fromChain, toChain)
		if err != nil {
			fields["error"] = err.Error()
			h.ec.Logger.Debug("[phase.waitSquid] status not available yet", fields)
			return false, nil
		}
		return status.Succeeded(), nil
	})
}

// AssetHubXcm broadcasts the transfer the user signed on AssetHub. A node reporting the extrinsic
// as already included is answered by reading that block's events instead of submitting again.
func (h *Handlers) AssetHubXcm(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)

	userTx, err := h.userTransaction(ctx, state.SessionID, model.UserTxAssetHubXcm)
	if err != nil {
		return nil, err
	}
	if userTx == nil || userTx.RawExtrinsic == "" {
		h.ec.Logger.Info("[phase.AssetHubXcm] waiting for the user's extrinsic", fields)
		return nil, ramp.ErrNotReady
	}

	var inclusion *substraterpc.Inclusion
	res, err := h.broadcastOnce(ctx, state, submission{
		role:  model.TxAssetHubXcm,
		chain: h.ec.AssetHub.Chain(),
		submit: func(ctx context.Context) (string, error) {
			inc, err := h.ec.AssetHub.SubmitRaw(ctx, userTx.RawExtrinsic)
			if err != nil {
				return "", err
			}
			inclusion = inc
			return inc.Hash, nil
		},
	})

	var included *substraterpc.AlreadyIncludedError
	switch {
	case errors.As(err, &included):
		fields["block_hash"] = included.BlockHash
		h.ec.Logger.Info("[phase.AssetHubXcm] extrinsic already included, reading block events", fields)
		events, err := h.ec.AssetHub.BlockEvents(ctx, included.BlockHash)
		if err != nil {
			return nil, err
		}
		if !xcmSent(events) {
			return nil, ramp.Unrecoverablef("block %s holds no xcm sent event", included.BlockHash)
		}
		state.Bridge.XcmHash = userTx.TxHash
		state.Bridge.XcmBlockHash = included.BlockHash

	case errors.Is(err, substraterpc.ErrNonceTooLow):
		// the funding phase still waits for the transfer to arrive
		h.ec.Logger.Info("[phase.AssetHubXcm] user nonce already used", fields)
		state.Bridge.XcmHash = userTx.TxHash

	case errors.Is(err, substraterpc.ErrDispatchFailed):
		return nil, ramp.Unrecoverable(err)

	case err != nil:
		return nil, err

	case res.AlreadyDone:
		state.Bridge.XcmHash = res.Hash

	default:
		if !xcmSent(inclusion.Events) {
			return nil, ramp.Unrecoverablef("xcm transfer %s emitted no sent event", inclusion.Hash)
		}
		state.Bridge.XcmHash = inclusion.Hash
		state.Bridge.XcmBlockHash = inclusion.BlockHash
	}

	return advance(state)
}

func xcmSent(events []substraterpc.Event) bool {
	for _, ev := range events {
		if pendulum.IsXcmSent(ev) {
			return true
		}
	}
	return false
}

// ensureNativeFunding tops up the Pendulum ephemeral's native balance through the signing service
// when it is below the configured minimum.
func (h *Handlers) ensureNativeFunding(ctx context.Context, state *model.RampState) error {
	minimum := h.ec.Config.PendulumFundingMinimumRaw
	if minimum == nil || minimum.Sign() <= 0 {
		return nil
	}
	address, err := pendulumAddress(state)
	if err != nil {
		return err
	}

	balance, err := h.ec.Pendulum.FreeBalance(ctx, address, "")
	if err != nil {
		return err
	}
	if balance.Cmp(minimum) >= 0 {
		return nil
	}

	fields := h.log(state)
	fields["balance"] = balance.String()
	h.ec.Logger.Info("[phase.ensureNativeFunding] requesting funding", fields)

	if err := h.ec.Signing.CreateEphemeralFunding(ctx, signingservice.FundingRequest{
		Chain:   consts.ChainPendulum,
		Address: address,
	}); err != nil {
		return err
	}
	_, err = h.waitPendulumBalance(ctx, state, "native", "", minimum)
	return err
}

func (h *Handlers) inputArrived(ctx context.Context, state *model.RampState) (bool, error) {
	address, err := pendulumAddress(state)
	if err != nil {
		return false, err
	}
	balance, err := h.ec.Pendulum.FreeBalance(ctx, address, state.InputToken.PendulumCurrency)
	if err != nil {
		return false, err
	}
	return balance.Cmp(arrivalThreshold(state.InputAmountPendulum.RawInt())) >= 0, nil
}

func (h *Handlers) waitInputArrival(ctx context.Context, state *model.RampState) error {
	_, err := h.waitPendulumBalance(ctx, state, "input", state.InputToken.PendulumCurrency, arrivalThreshold(state.InputAmountPendulum.RawInt()))
	return err
}

// FundEphemeralFromRouter funds the Pendulum ephemeral, then completes the Squid delivery on
// Moonbeam once the receiver contract holds the flow's payload, and waits for the tokens to arrive.
func (h *Handlers) FundEphemeralFromRouter(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)
	if err := h.ensureNativeFunding(ctx, state); err != nil {
		return nil, err
	}

	arrived, err := h.inputArrived(ctx, state)
	if err != nil {
		return nil, err
	}
	if arrived {
		h.ec.Logger.Info("[phase.FundEphemeralFromRouter] input already on pendulum", fields)
		return advance(state)
	}

	if state.Bridge.ReceiverHash == "" || state.Bridge.ReceiverID == "" {
		return nil, ramp.Unrecoverablef("receiver id and hash missing")
	}
	receiver := h.ec.Config.MoonbeamReceiver
	if err := h.poll(ctx, func(ctx context.Context) (bool, error) {
		registered, err := h.ec.Moonbeam.ReceiverPayloadRegistered(ctx, receiver, state.Bridge.ReceiverHash)
		if err != nil {
			fields["error"] = err.Error()
			h.ec.Logger.Debug("[phase.FundEphemeralFromRouter] receiver read failed", fields)
			return false, nil
		}
		return registered, nil
	}); err != nil {
		return nil, err
	}

	res, err := h.broadcastOnce(ctx, state, submission{
		role:  model.TxBridgeCompletion,
		chain: consts.ChainMoonbeam,
		submit: func(ctx context.Context) (string, error) {
			return h.ec.Signing.ExecuteBridgeCompletion(ctx, state.Bridge.ReceiverID, state.Bridge.Payload)
		},
	})
	if err != nil {
		return nil, err
	}
	if res.Hash != "" {
		if _, err := h.ec.Moonbeam.WaitForReceipt(ctx, res.Hash, h.ec.Config.PollInterval); err != nil {
			return nil, err
		}
		state.Bridge.CompletionHash = res.Hash
	}

	if err := h.waitInputArrival(ctx, state); err != nil {
		return nil, err
	}
	return advance(state)
}

// FundEphemeralFromMessage funds the Pendulum ephemeral and waits for the XCM transfer to arrive.
func (h *Handlers) FundEphemeralFromMessage(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	if err := h.ensureNativeFunding(ctx, state); err != nil {
		return nil, err
	}
	if err := h.waitInputArrival(ctx, state); err != nil {
		return nil, err
	}
	return advance(state)
}

// FundEphemeralForOnramp only funds fees; the input reaches Pendulum in a later phase.
func (h *Handlers) FundEphemeralForOnramp(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	if err := h.ensureNativeFunding(ctx, state); err != nil {
		return nil, err
	}
	return advance(state)
}

// outputOnMoonbeam is the swap output expressed in the token's Moonbeam decimals.
func outputOnMoonbeam(state *model.RampState) *big.Int {
	return state.OutputAmount.Rescale(state.OutputToken.PendulumDecimals, state.OutputToken.Decimals).RawInt()
}
