package controller

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofrs/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/stellar/go/amount"

	"github.com/pendulum-chain/vortex-sub005/internal/anchor"
	"github.com/pendulum-chain/vortex-sub005/internal/brla"
	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/ephemeral"
	"github.com/pendulum-chain/vortex-sub005/internal/evmrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/squidrouter"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/config"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

// routeSlippagePercent is the slippage requested for the user's Squid swap into Moonbeam.
const routeSlippagePercent = 1

type Controller struct {
	engine  *ramp.Engine
	runner  IRunner
	userTxs IUserTransactionWriter
	squid   squidrouter.ISquidRouter
	anchor  anchor.IAnchor
	brla    brla.IBRLA
	auditor ramp.IAuditor
	logger  *logger.Logger
	config  *config.AppConfig
}

func New(
	engine *ramp.Engine,
	runner IRunner,
	userTxs IUserTransactionWriter,
	squid squidrouter.ISquidRouter,
	anchor anchor.IAnchor,
	brla brla.IBRLA,
	auditor ramp.IAuditor,
	logger *logger.Logger,
	config *config.AppConfig,
) IController {
	return &Controller{
		engine:  engine,
		runner:  runner,
		userTxs: userTxs,
		squid:   squid,
		anchor:  anchor,
		brla:    brla,
		auditor: auditor,
		logger:  logger,
		config:  config,
	}
}

func (c *Controller) StartRamp(ctx context.Context, params StartRampParams) (*StartRampResult, error) {
	if err := validateFlow(params); err != nil {
		return nil, err
	}
	inputToken, outputToken, err := resolveTokens(params.FlowType, params.Network, params.InputToken, params.OutputToken)
	if err != nil {
		return nil, invalid(err)
	}

	sessionID := params.SessionID
	if sessionID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		sessionID = id.String()
	} else if err := c.ensureNoActiveFlow(ctx, sessionID); err != nil {
		return nil, err
	}

	state, err := c.newState(sessionID, params, inputToken, outputToken)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{
		"session_id": sessionID,
		"flow_type":  string(state.FlowType),
		"network":    string(state.Network),
	}

	if state.FlowType.PaysOutOnStellar() {
		if err := c.attachSettlement(ctx, state, params.Anchor); err != nil {
			return nil, err
		}
	} else {
		if err := c.attachBRLA(ctx, state, params.BRL); err != nil {
			return nil, err
		}
	}

	result := &StartRampResult{}
	switch {
	case state.FlowType.UsesRouterBridge() && !state.FlowType.IsOnramp():
		if result.UserTransactions, err = c.prepareRouterBridge(ctx, state); err != nil {
			c.logger.Error("[Controller.StartRamp][prepareRouterBridge]", map[string]string{"error": err.Error()})
			return nil, err
		}
	case !state.FlowType.IsOnramp():
		result.DepositAddress = state.Ephemerals.Pendulum.Address
	}

	// the early check above is advisory; Create is the atomic guard against a concurrent start
	if err := c.engine.Repository().Create(ctx, state); err != nil {
		fields["error"] = err.Error()
		c.logger.Error("[Controller.StartRamp][Create]", fields)
		return nil, err
	}
	c.auditor.Post(ctx, "ramp.started", state.Redacted())
	c.logger.Info("[Controller.StartRamp] flow created", fields)

	c.runner.Kick(sessionID)
	result.State = state.Redacted()
	return result, nil
}

func (c *Controller) ensureNoActiveFlow(ctx context.Context, sessionID string) error {
	existing, err := c.engine.Repository().Load(ctx, sessionID)
	if errors.Is(err, ramp.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !existing.IsTerminal() {
		return ramp.ErrActiveFlow
	}
	return nil
}

func (c *Controller) newState(sessionID string, params StartRampParams, in, out model.TokenRef) (*model.RampState, error) {
	inputAmount, err := model.NewAmountFromUnits(params.InputAmount, in.Decimals)
	if err != nil {
		return nil, invalid(err)
	}
	inputPendulum, err := model.NewAmountFromUnits(params.InputAmount, in.PendulumDecimals)
	if err != nil {
		return nil, invalid(err)
	}
	outputAmount, err := model.NewAmountFromUnits(params.OutputAmount, out.PendulumDecimals)
	if err != nil {
		return nil, invalid(err)
	}
	if inputAmount.IsZero() || outputAmount.IsZero() {
		return nil, invalid(errors.New("amounts must be positive"))
	}

	ephemerals, err := ephemeral.NewForFlow(params.FlowType)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "generate ephemeral accounts")
	}

	destination := params.DestinationAddress
	if destination == "" && params.FlowType.IsOnramp() {
		destination = params.UserAddress
	}

	now := c.engine.Now()
	return &model.RampState{
		SessionID:           sessionID,
		FlowType:            params.FlowType,
		Network:             params.Network,
		Phase:               params.FlowType.Phases()[0],
		FailureTimeoutAt:    now.Add(c.config.Engine.FailureTimeout),
		CreatedAt:           now,
		UpdatedAt:           now,
		UserAddress:         params.UserAddress,
		DestinationAddress:  destination,
		InputToken:          in,
		OutputToken:         out,
		InputAmount:         inputAmount,
		InputAmountPendulum: inputPendulum,
		OutputAmount:        outputAmount,
		MinimumOutputRaw:    model.HardMinimumOutputRaw(outputAmount.RawInt()).String(),
		Ephemerals:          ephemerals,
		Nonces:              noncePlan(params.FlowType),
	}, nil
}

// attachSettlement reads the anchor's withdrawal descriptor. The anchor must expect exactly the
// quoted output.
func (c *Controller) attachSettlement(ctx context.Context, state *model.RampState, params *AnchorParams) error {
	if params == nil || params.TransferServer == "" || params.TransactionID == "" {
		return invalid(errors.New("anchor session required for stellar payouts"))
	}
	settlement, err := c.anchor.FetchSettlement(ctx, params.TransferServer, params.BearerToken, params.TransactionID)
	if err != nil {
		c.logger.Error("[Controller.attachSettlement][FetchSettlement]", map[string]string{"error": err.Error()})
		return err
	}
	if err := anchor.ValidateSettlement(settlement, state.OutputToken); err != nil {
		return invalid(err)
	}

	stroops, err := amount.ParseInt64(settlement.Amount)
	if err != nil {
		return invalid(err)
	}
	quoted := state.OutputAmount.Rescale(state.OutputToken.PendulumDecimals, state.OutputToken.Decimals).RawInt()
	if big.NewInt(stroops).Cmp(quoted) != 0 {
		return invalid(fmt.Errorf("anchor expects %s but the quote pays %s", settlement.Amount, amount.StringFromInt64(quoted.Int64())))
	}
	state.Settlement = settlement
	return nil
}

func (c *Controller) attachBRLA(ctx context.Context, state *model.RampState, params *BRLParams) error {
	if params == nil || params.TaxID == "" {
		return invalid(errors.New("tax id required for BRL flows"))
	}
	user, err := c.brla.GetUser(ctx, params.TaxID)
	if errors.Is(err, brla.ErrUserNotFound) {
		return invalid(err)
	}
	if err != nil {
		c.logger.Error("[Controller.attachBRLA][GetUser]", map[string]string{"error": err.Error()})
		return err
	}

	info := &model.BRLAInfo{TaxID: params.TaxID}
	if !state.FlowType.IsOnramp() {
		if params.PixKey == "" {
			return invalid(errors.New("pix key required for BRL payouts"))
		}
		if !common.IsHexAddress(user.Wallets.EVM) {
			return fmt.Errorf("brla subaccount %s has no deposit address", user.ID)
		}
		info.PixDestination = params.PixKey
		info.DepositAddress = user.Wallets.EVM
	}
	state.BRLA = info
	return nil
}

// prepareRouterBridge registers the flow's receiver payload and asks Squid for the route the user
// signs. The route delivers to the Moonbeam receiver, which records the receiver hash.
func (c *Controller) prepareRouterBridge(ctx context.Context, state *model.RampState) ([]UnsignedTransaction, error) {
	pub, err := ephemeral.DecodeEd25519Address(state.Ephemerals.Pendulum.Address)
	if err != nil {
		return nil, err
	}
	id, err := evmrpc.NewReceiverID()
	if err != nil {
		return nil, err
	}
	amountRaw := state.InputAmount.RawInt()
	payload, err := evmrpc.EncodeReceiverPayload(pub, amountRaw)
	if err != nil {
		return nil, err
	}
	hash, err := evmrpc.ReceiverHash(id, payload)
	if err != nil {
		return nil, err
	}
	initCall, err := evmrpc.PackReceiverInit(hash, amountRaw)
	if err != nil {
		return nil, err
	}

	fromChain, err := consts.EVMChainID(state.Network)
	if err != nil {
		return nil, invalid(err)
	}
	toChain, err := consts.EVMChainID(model.NetworkMoonbeam)
	if err != nil {
		return nil, err
	}
	token := state.InputToken
	receiver := c.config.Moonbeam.ReceiverContract

	route, err := c.squid.GetRoute(ctx, squidrouter.RouteParams{
		FromAddress: state.UserAddress,
		FromChain:   fromChain,
		FromToken:   token.EVMAddress,
		FromAmount:  amountRaw.String(),
		ToChain:     toChain,
		ToToken:     token.MoonbeamAddress,
		ToAddress:   receiver,
		Slippage:    routeSlippagePercent,
		PostHook:    squidrouter.ReceiverPostHook(receiver, token.MoonbeamAddress, hexutil.Encode(initCall)),
	})
	if err != nil {
		return nil, err
	}

	state.Bridge = model.BridgeInfo{
		ReceiverID:     id.Hex(),
		ReceiverHash:   hash.Hex(),
		Payload:        hexutil.Encode(payload),
		SquidRequestID: route.RequestID,
	}

	approve, err := evmrpc.PackERC20Approve(common.HexToAddress(route.TransactionRequest.Target), amountRaw)
	if err != nil {
		return nil, err
	}
	return []UnsignedTransaction{
		{
			Kind:    model.UserTxSquidApprove,
			ChainID: fromChain,
			To:      token.EVMAddress,
			Data:    hexutil.Encode(approve),
			Value:   "0",
		},
		{
			Kind:     model.UserTxSquidSwap,
			ChainID:  fromChain,
			To:       route.TransactionRequest.Target,
			Data:     route.TransactionRequest.Data,
			Value:    route.TransactionRequest.Value,
			GasLimit: route.TransactionRequest.GasLimit,
		},
	}, nil
}

func (c *Controller) GetRamp(ctx context.Context, sessionID string) (*model.RampState, error) {
	state, err := c.engine.Repository().Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.Redacted(), nil
}

func (c *Controller) RecoverRamp(ctx context.Context, sessionID string) (*model.RampState, error) {
	state, err := c.engine.Repository().Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !state.IsFailed() {
		return state.Redacted(), nil
	}

	recovered, err := c.engine.RecoverFromFailure(ctx, state)
	if err != nil {
		c.logger.Error("[Controller.RecoverRamp][RecoverFromFailure]", map[string]string{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return nil, err
	}
	c.runner.Kick(sessionID)
	return recovered.Redacted(), nil
}

func (c *Controller) AbandonRamp(ctx context.Context, sessionID string) error {
	state, err := c.engine.Repository().Load(ctx, sessionID)
	if err != nil {
		return err
	}
	c.runner.Cancel(sessionID)

	if err := c.engine.Repository().Clear(ctx, sessionID); err != nil {
		c.logger.Error("[Controller.AbandonRamp][Clear]", map[string]string{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return err
	}
	c.auditor.Post(ctx, "ramp.abandoned", state.Redacted())
	c.logger.Info("[Controller.AbandonRamp] flow abandoned", map[string]string{
		"session_id": sessionID,
		"phase":      string(state.Phase),
	})
	return nil
}

func (c *Controller) SubmitUserTransaction(ctx context.Context, sessionID string, params UserTransactionParams) error {
	state, err := c.engine.Repository().Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if !acceptsUserTransaction(state.FlowType, params.Kind) {
		return invalid(fmt.Errorf("flow %s takes no %s transaction", state.FlowType, params.Kind))
	}

	userTx := &model.UserTransaction{
		SessionID: sessionID,
		Kind:      params.Kind,
		TxHash:    params.TxHash,
		CreatedAt: c.engine.Now(),
	}
	if params.Kind == model.UserTxAssetHubXcm {
		hash, err := extrinsicHash(params.RawExtrinsic)
		if err != nil {
			return invalid(err)
		}
		if params.TxHash != "" && !strings.EqualFold(params.TxHash, hash) {
			return invalid(fmt.Errorf("tx hash %s does not match extrinsic hash %s", params.TxHash, hash))
		}
		userTx.TxHash = hash
		userTx.RawExtrinsic = params.RawExtrinsic
	} else if !isTxHash(params.TxHash) {
		return invalid(fmt.Errorf("malformed tx hash %q", params.TxHash))
	}

	if err := c.userTxs.SaveUserTransaction(ctx, userTx); err != nil {
		c.logger.Error("[Controller.SubmitUserTransaction][SaveUserTransaction]", map[string]string{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return err
	}
	c.logger.Info("[Controller.SubmitUserTransaction] user transaction recorded", map[string]string{
		"session_id": sessionID,
		"kind":       string(params.Kind),
		"tx_hash":    userTx.TxHash,
	})

	c.runner.Kick(sessionID)
	return nil
}
