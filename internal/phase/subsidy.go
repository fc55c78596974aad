package phase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/signingservice"
)

// SubsidizePreSwap tops up the input token so the swap can spend the full quoted amount.
func (h *Handlers) SubsidizePreSwap(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	return h.subsidize(ctx, state, state.InputToken, state.InputAmountPendulum.RawInt())
}

// SubsidizePostSwap tops up the output token to the quoted output before it leaves Pendulum.
func (h *Handlers) SubsidizePostSwap(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	return h.subsidize(ctx, state, state.OutputToken, state.OutputAmount.RawInt())
}

func (h *Handlers) subsidize(ctx context.Context, state *model.RampState, token model.TokenRef, required *big.Int) (*model.RampState, error) {
	fields := h.log(state)
	fields["token"] = token.Symbol
	fields["required"] = required.String()

	address, err := pendulumAddress(state)
	if err != nil {
		return nil, err
	}
	balance, err := h.ec.Pendulum.FreeBalance(ctx, address, token.PendulumCurrency)
	if err != nil {
		return nil, err
	}
	fields["balance"] = balance.String()
	if balance.Cmp(required) >= 0 {
		h.ec.Logger.Info("[phase.subsidize] balance sufficient", fields)
		return advance(state)
	}

	missing := new(big.Int).Sub(required, balance)
	if token.MaxSubsidyRaw != "" {
		maxSubsidy, err := parseRaw(token.MaxSubsidyRaw, "max subsidy")
		if err != nil {
			return nil, err
		}
		if missing.Cmp(maxSubsidy) > 0 {
			return nil, fmt.Errorf("%w: %s needs %s, cap %s", signingservice.ErrSubsidyCapExceeded, token.Symbol, missing, maxSubsidy)
		}
	}

	fields["subsidy"] = missing.String()
	h.ec.Logger.Info("[phase.subsidize] requesting subsidy", fields)
	if err := h.ec.Signing.Subsidize(ctx, signingservice.SubsidyRequest{
		Chain:     consts.ChainPendulum,
		Address:   address,
		AmountRaw: missing.String(),
		Asset:     token.PendulumCurrency,
	}); err != nil {
		return nil, err
	}

	if _, err := h.waitPendulumBalance(ctx, state, token.Symbol, token.PendulumCurrency, required); err != nil {
		return nil, err
	}
	return advance(state)
}
