package phase

import (
	"context"
	"math/big"
	"time"

	"github.com/pendulum-chain/vortex-sub005/internal/ephemeral"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/poll"
)

// Handlers implements every phase against one ExecutionContext.
type Handlers struct {
	ec *ExecutionContext
}

func New(ec *ExecutionContext) *Handlers {
	return &Handlers{ec: ec}
}

// Table is the dispatch table of all flow families. offramp-brl shares the funding phase between
// both source networks, so that entry switches on the flow type.
func (h *Handlers) Table() ramp.DispatchTable {
	common := map[model.Phase]ramp.HandlerFunc{
		model.PhasePrepareTransactions: h.PrepareTransactions,
		model.PhaseSubsidizePreSwap:    h.SubsidizePreSwap,
		model.PhaseNablaApprove:        h.NablaApprove,
		model.PhaseNablaSwap:           h.NablaSwap,
		model.PhaseSubsidizePostSwap:   h.SubsidizePostSwap,
		model.PhasePendulumCleanup:     h.PendulumCleanup,
	}
	with := func(extra map[model.Phase]ramp.HandlerFunc) map[model.Phase]ramp.HandlerFunc {
		out := make(map[model.Phase]ramp.HandlerFunc, len(common)+len(extra))
		for p, fn := range common {
			out[p] = fn
		}
		for p, fn := range extra {
			out[p] = fn
		}
		return out
	}

	stellarTail := map[model.Phase]ramp.HandlerFunc{
		model.PhaseSpacewalkRedeem: h.SpacewalkRedeem,
		model.PhaseStellarPayment:  h.StellarPayment,
		model.PhaseStellarCleanup:  h.StellarCleanup,
	}

	router := with(stellarTail)
	router[model.PhaseSquidRouter] = h.SquidRouter
	router[model.PhasePendulumFundEphemeral] = h.FundEphemeralFromRouter

	message := with(stellarTail)
	message[model.PhaseAssetHubXcm] = h.AssetHubXcm
	message[model.PhasePendulumFundEphemeral] = h.FundEphemeralFromMessage

	offrampBRL := with(map[model.Phase]ramp.HandlerFunc{
		model.PhaseSquidRouter:        h.SquidRouter,
		model.PhaseAssetHubXcm:        h.AssetHubXcm,
		model.PhasePendulumToMoonbeam: h.PendulumToMoonbeam,
		model.PhaseBrlaPayout:         h.BrlaPayout,
	})
	offrampBRL[model.PhasePendulumFundEphemeral] = h.bySource(h.FundEphemeralFromRouter, h.FundEphemeralFromMessage)

	onramp := with(map[model.Phase]ramp.HandlerFunc{
		model.PhaseBrlaTeleport:          h.BrlaTeleport,
		model.PhasePendulumFundEphemeral: h.FundEphemeralForOnramp,
		model.PhaseMoonbeamToPendulum:    h.MoonbeamToPendulum,
		model.PhasePendulumToMoonbeam:    h.PendulumToMoonbeam,
		model.PhaseSquidRouterOnramp:     h.SquidRouterOnramp,
		model.PhasePendulumToAssetHub:    h.PendulumToAssetHub,
	})

	return ramp.DispatchTable{
		model.FamilyRouter:     router,
		model.FamilyMessage:    message,
		model.FamilyOfframpBRL: offrampBRL,
		model.FamilyOnramp:     onramp,
	}
}

// bySource picks the router or message variant from the flow's source network.
func (h *Handlers) bySource(router, message ramp.HandlerFunc) ramp.HandlerFunc {
	return func(ctx context.Context, state *model.RampState) (*model.RampState, error) {
		if state.FlowType.UsesRouterBridge() {
			return router(ctx, state)
		}
		return message(ctx, state)
	}
}

// advance moves state to its successor phase.
func advance(state *model.RampState) (*model.RampState, error) {
	next, err := model.NextPhase(state.FlowType, state.Phase)
	if err != nil {
		return nil, ramp.Unrecoverable(err)
	}
	state.Phase = next
	return state, nil
}

func (h *Handlers) poll(ctx context.Context, fn func(ctx context.Context) (bool, error)) error {
	return poll.Until(ctx, h.ec.Config.PollInterval, fn)
}

func (h *Handlers) pollWithin(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (bool, error)) error {
	return poll.Within(ctx, timeout, h.ec.Config.PollInterval, fn)
}

func (h *Handlers) log(state *model.RampState) map[string]string {
	return map[string]string{
		"session_id": state.SessionID,
		"flow_type":  string(state.FlowType),
		"phase":      string(state.Phase),
	}
}

func pendulumAddress(state *model.RampState) (string, error) {
	if state.Ephemerals.Pendulum == nil || state.Ephemerals.Pendulum.Address == "" {
		return "", ramp.Unrecoverablef("pendulum ephemeral missing")
	}
	return state.Ephemerals.Pendulum.Address, nil
}

// waitPendulumBalance blocks until the Pendulum ephemeral holds at least min of currency.
func (h *Handlers) waitPendulumBalance(ctx context.Context, state *model.RampState, what, currency string, min *big.Int) (*big.Int, error) {
	address, err := pendulumAddress(state)
	if err != nil {
		return nil, err
	}
	return ephemeral.WaitForBalance(ctx, h.ec.Logger, what, func(ctx context.Context) (*big.Int, error) {
		return h.ec.Pendulum.FreeBalance(ctx, address, currency)
	}, min, h.ec.Config.PollInterval)
}

// arrivalThreshold is the amount that counts as "arrived" after a bridge or XCM hop, which may
// shave fees off the transferred value. Subsidy phases top up the remainder.
func arrivalThreshold(expected *big.Int) *big.Int {
	return model.SoftMinimumOutputRaw(expected)
}

func parseRaw(raw, what string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok || n.Sign() < 0 {
		return nil, ramp.Unrecoverablef("invalid %s %q", what, raw)
	}
	return n, nil
}
