package phase

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/ephemeral"
	"github.com/pendulum-chain/vortex-sub005/internal/evmrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/pendulum"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/signingservice"
	"github.com/pendulum-chain/vortex-sub005/internal/squidrouter"
	"github.com/pendulum-chain/vortex-sub005/internal/stellarrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
)

// squidSlippagePercent is the slippage requested for the onramp's final Squid hop.
const squidSlippagePercent = 1

// PrepareTransactions signs every transaction the flow will broadcast, in one pass, against the
// nonces fixed at construction. Nothing is broadcast here. A failure part way leaves the state
// without a bundle and the whole phase runs again.
func (h *Handlers) PrepareTransactions(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	fields := h.log(state)
	if state.HasTransactions() {
		h.ec.Logger.Info("[phase.PrepareTransactions] bundle already prepared", fields)
		return advance(state)
	}

	bundle := model.TransactionBundle{}
	if err := h.preparePendulum(ctx, state, bundle); err != nil {
		return nil, err
	}
	if state.Ephemerals.Moonbeam != nil {
		if err := h.prepareMoonbeam(ctx, state, bundle); err != nil {
			return nil, err
		}
	}
	if state.FlowType.PaysOutOnStellar() {
		if err := h.prepareStellar(ctx, state, bundle); err != nil {
			return nil, err
		}
	}

	state.Transactions = bundle
	h.ec.Auditor.Post(ctx, "ramp.prepared", bundleDigest(state))

	fields["transactions"] = strconv.Itoa(len(bundle))
	h.ec.Logger.Info("[phase.PrepareTransactions] bundle prepared", fields)
	return advance(state)
}

// bundleDigest is what the audit log gets: roles and hashes of the blobs, never the blobs.
func bundleDigest(state *model.RampState) map[string]interface{} {
	roles := make([]string, 0, len(state.Transactions))
	for role := range state.Transactions {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)

	digests := make(map[string]string, len(roles))
	for _, role := range roles {
		digests[role] = crypto.Keccak256Hash([]byte(state.Transactions[model.TxRole(role)])).Hex()
	}
	return map[string]interface{}{
		"sessionId": state.SessionID,
		"flowType":  state.FlowType,
		"roles":     roles,
		"digests":   digests,
	}
}

func (h *Handlers) preparePendulum(ctx context.Context, state *model.RampState, bundle model.TransactionBundle) error {
	key, err := ephemeral.PendulumKey(state.Ephemerals.Pendulum)
	if err != nil {
		return ramp.Unrecoverable(err)
	}
	address := state.Ephemerals.Pendulum.Address

	amountIn := state.InputAmountPendulum.RawInt()
	amountOut := state.OutputAmount.RawInt()
	if amountIn.Sign() <= 0 || amountOut.Sign() <= 0 {
		return ramp.Unrecoverablef("flow amounts are not set")
	}
	minOut, err := parseRaw(state.MinimumOutputRaw, "minimum output")
	if err != nil {
		return err
	}

	sign := func(role model.TxRole, call substraterpc.Call, nonce uint64) error {
		ext, err := substraterpc.SignExtrinsic(ctx, h.ec.Pendulum, key, address, call, nonce)
		if err != nil {
			return errors.Wrapf(err, "sign %s", role)
		}
		blob, err := encodeExtrinsic(ext)
		if err != nil {
			return err
		}
		bundle[role] = blob
		return nil
	}

	// the transfer out is built first; approve and swap follow on the lower nonces
	transferRole, transferCall, err := h.transferOutCall(ctx, state, amountOut)
	if err != nil {
		return err
	}
	if err := sign(transferRole, transferCall, state.Nonces.PendulumTransferOut); err != nil {
		return err
	}

	inToken, outToken := state.InputToken.PendulumWrapper, state.OutputToken.PendulumWrapper
	if err := sign(model.TxNablaApprove, h.ec.Nabla.ApproveCall(inToken, amountIn), state.Nonces.NablaApprove); err != nil {
		return err
	}
	deadline := h.ec.Clock.Now().Add(h.ec.Config.SwapDeadline).Unix()
	swap := h.ec.Nabla.SwapCall(amountIn, minOut, inToken, outToken, address, deadline)
	if err := sign(model.TxNablaSwap, swap, state.Nonces.NablaSwap); err != nil {
		return err
	}

	funding, err := h.fundingAccount(ctx, consts.ChainPendulum)
	if err != nil {
		return err
	}
	cleanup := pendulum.CleanupCall([]string{state.InputToken.PendulumCurrency, state.OutputToken.PendulumCurrency}, funding)
	return sign(model.TxPendulumCleanup, cleanup, state.Nonces.PendulumCleanup)
}

// transferOutCall builds the call that moves the swap output off the ephemeral.
func (h *Handlers) transferOutCall(ctx context.Context, state *model.RampState, amountOut *big.Int) (model.TxRole, substraterpc.Call, error) {
	switch {
	case state.FlowType.PaysOutOnStellar():
		if state.Ephemerals.Stellar == nil {
			return "", substraterpc.Call{}, ramp.Unrecoverablef("stellar ephemeral missing")
		}
		token := state.OutputToken
		vaults, err := h.ec.Spacewalk.GetEligibleVaults(ctx, token.StellarCode, token.StellarIssuer, amountOut)
		if err != nil {
			return "", substraterpc.Call{}, err
		}
		if len(vaults) == 0 {
			return "", substraterpc.Call{}, fmt.Errorf("no vault can redeem %s %s", amountOut, token.StellarCode)
		}
		vault := vaults[0]
		call, err := pendulum.RedeemCall(amountOut, state.Ephemerals.Stellar.Address, vault.ID)
		if err != nil {
			return "", substraterpc.Call{}, ramp.Unrecoverable(err)
		}
		state.SpacewalkVaultID = vault.ID.AccountID
		return model.TxSpacewalkRedeem, call, nil

	case state.FlowType == model.FlowBRLToAssetHub:
		dest, _, err := ephemeral.DecodeSS58(state.DestinationAddress)
		if err != nil {
			return "", substraterpc.Call{}, ramp.Unrecoverable(errors.Wrap(err, "assethub destination"))
		}
		return model.TxPendulumToAssetHub, pendulum.XTokensToAssetHub(state.OutputToken.PendulumCurrency, amountOut, dest), nil

	default:
		if state.Ephemerals.Moonbeam == nil {
			return "", substraterpc.Call{}, ramp.Unrecoverablef("moonbeam ephemeral missing")
		}
		call := pendulum.XTokensToMoonbeam(state.OutputToken.PendulumCurrency, amountOut, state.Ephemerals.Moonbeam.Address)
		return model.TxPendulumToMoonbeam, call, nil
	}
}

func (h *Handlers) fundingAccount(ctx context.Context, chain string) (string, error) {
	accounts, err := h.ec.Signing.FundingAccounts(ctx)
	if err != nil {
		return "", err
	}
	account := accounts[chain]
	if account == "" {
		return "", fmt.Errorf("signing service has no %s funding account", chain)
	}
	return account, nil
}

type evmSigner struct {
	h        *Handlers
	state    *model.RampState
	bundle   model.TransactionBundle
	gasPrice *big.Int
}

func (s *evmSigner) sign(role model.TxRole, nonce uint64, to common.Address, data []byte, value *big.Int, gasLimit uint64) error {
	key, err := ephemeral.MoonbeamKey(s.state.Ephemerals.Moonbeam)
	if err != nil {
		return ramp.Unrecoverable(err)
	}
	if gasLimit == 0 {
		gasLimit = s.h.ec.Config.MoonbeamGasLimit
	}
	raw, _, err := evmrpc.SignTx(key, s.h.ec.Moonbeam.ChainID(), evmrpc.TxParams{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Data:     data,
		GasLimit: gasLimit,
		GasPrice: s.gasPrice,
	})
	if err != nil {
		return errors.Wrapf(err, "sign %s", role)
	}
	s.bundle[role] = raw
	return nil
}

func (h *Handlers) prepareMoonbeam(ctx context.Context, state *model.RampState, bundle model.TransactionBundle) error {
	gasPrice, err := h.ec.Moonbeam.GasPrice(ctx)
	if err != nil {
		return err
	}
	// the transactions go out minutes to hours later
	gasPrice = new(big.Int).Mul(gasPrice, big.NewInt(2))
	signer := &evmSigner{h: h, state: state, bundle: bundle, gasPrice: gasPrice}

	if state.FlowType.IsOnramp() {
		if err := h.prepareMoonbeamOnramp(ctx, state, signer); err != nil {
			return err
		}
	} else {
		if state.BRLA == nil || state.BRLA.DepositAddress == "" {
			return ramp.Unrecoverablef("brla deposit address missing")
		}
		amount := state.OutputAmount.Rescale(state.OutputToken.PendulumDecimals, state.OutputToken.Decimals).RawInt()
		data, err := evmrpc.PackERC20Transfer(common.HexToAddress(state.BRLA.DepositAddress), amount)
		if err != nil {
			return err
		}
		if err := signer.sign(model.TxMoonbeamPayoutTransfer, state.Nonces.MoonbeamPayout, common.HexToAddress(state.OutputToken.MoonbeamAddress), data, nil, 0); err != nil {
			return err
		}
	}

	return h.ec.Signing.CreateEphemeralFunding(ctx, signingservice.FundingRequest{
		Chain:   consts.ChainMoonbeam,
		Address: state.Ephemerals.Moonbeam.Address,
	})
}

func (h *Handlers) prepareMoonbeamOnramp(ctx context.Context, state *model.RampState, signer *evmSigner) error {
	pub, err := ephemeral.DecodeEd25519Address(state.Ephemerals.Pendulum.Address)
	if err != nil {
		return ramp.Unrecoverable(err)
	}
	data, err := evmrpc.PackXTokensTransfer(
		common.HexToAddress(state.InputToken.MoonbeamAddress),
		state.InputAmount.RawInt(),
		evmrpc.PendulumDestination(pub),
		h.ec.Config.XcmWeight,
	)
	if err != nil {
		return err
	}
	if err := signer.sign(model.TxMoonbeamToPendulum, state.Nonces.MoonbeamXcm, common.HexToAddress(h.ec.Config.XTokensPrecompile), data, nil, 0); err != nil {
		return err
	}

	if state.FlowType != model.FlowBRLToEVM {
		return nil
	}

	toChain, err := consts.EVMChainID(state.Network)
	if err != nil {
		return ramp.Unrecoverable(err)
	}
	fromChain, err := consts.EVMChainID(model.NetworkMoonbeam)
	if err != nil {
		return ramp.Unrecoverable(err)
	}
	destination := state.DestinationAddress
	if destination == "" {
		destination = state.UserAddress
	}
	amount := state.OutputAmount.Rescale(state.OutputToken.PendulumDecimals, state.OutputToken.Decimals).RawInt()

	route, err := h.ec.Squid.GetRoute(ctx, squidrouter.RouteParams{
		FromAddress: state.Ephemerals.Moonbeam.Address,
		FromChain:   fromChain,
		FromToken:   state.OutputToken.MoonbeamAddress,
		FromAmount:  amount.String(),
		ToChain:     toChain,
		ToToken:     state.OutputToken.EVMAddress,
		ToAddress:   destination,
		Slippage:    squidSlippagePercent,
	})
	if err != nil {
		return err
	}

	target := common.HexToAddress(route.TransactionRequest.Target)
	approve, err := evmrpc.PackERC20Approve(target, amount)
	if err != nil {
		return err
	}
	if err := signer.sign(model.TxSquidApprove, state.Nonces.SquidApprove, common.HexToAddress(state.OutputToken.MoonbeamAddress), approve, nil, 0); err != nil {
		return err
	}

	callData, err := hexutil.Decode(route.TransactionRequest.Data)
	if err != nil {
		return errors.Wrap(err, "squid call data")
	}
	value, ok := new(big.Int).SetString(route.TransactionRequest.Value, 10)
	if !ok {
		value = new(big.Int)
	}
	gasLimit, _ := strconv.ParseUint(route.TransactionRequest.GasLimit, 10, 64)
	if err := signer.sign(model.TxSquidSwap, state.Nonces.SquidSwap, target, callData, value, gasLimit); err != nil {
		return err
	}

	state.Bridge.SquidRequestID = route.RequestID
	return nil
}

// prepareStellar has the signing service create the Stellar ephemeral, then assembles the payout
// and merge envelopes on the sequence it was created with.
func (h *Handlers) prepareStellar(ctx context.Context, state *model.RampState, bundle model.TransactionBundle) error {
	kp, err := ephemeral.StellarKey(state.Ephemerals.Stellar)
	if err != nil {
		return ramp.Unrecoverable(err)
	}
	settlement := state.Settlement
	if settlement == nil {
		return ramp.Unrecoverablef("anchor settlement missing")
	}
	token := state.OutputToken
	address := kp.Address()

	exists, err := h.ec.Stellar.AccountExists(ctx, address)
	if err != nil {
		return err
	}
	if !exists {
		if err := h.ec.Signing.CreateEphemeralFunding(ctx, signingservice.FundingRequest{
			Chain:       consts.ChainStellar,
			Address:     address,
			AssetCode:   token.StellarCode,
			AssetIssuer: token.StellarIssuer,
		}); err != nil {
			return err
		}
		if err := h.poll(ctx, func(ctx context.Context) (bool, error) {
			return h.ec.Stellar.AccountExists(ctx, address)
		}); err != nil {
			return err
		}
	}

	sequence, err := h.ec.Stellar.SequenceNumber(ctx, address)
	if err != nil {
		return err
	}
	maxTime := h.ec.Clock.Now().Add(h.ec.Config.StellarMaxTime).Unix()

	cosigned, err := h.ec.Signing.CosignPayout(ctx, signingservice.CosignRequest{
		AccountID: address,
		PaymentData: signingservice.PaymentData{
			Destination: settlement.DestinationAccount,
			Amount:      settlement.Amount,
			Memo:        settlement.Memo,
			MemoType:    settlement.MemoType,
		},
		Sequence:    sequence,
		MaxTime:     maxTime,
		AssetCode:   token.StellarCode,
		AssetIssuer: token.StellarIssuer,
		BaseFee:     h.ec.Config.StellarBaseFee,
	})
	if err != nil {
		return err
	}
	if len(cosigned.Signatures) < 2 {
		return fmt.Errorf("signing service returned %d signatures, need payout and merge", len(cosigned.Signatures))
	}
	if cosigned.Sequence != 0 && cosigned.Sequence != sequence {
		return fmt.Errorf("cosigned sequence %d differs from account sequence %d", cosigned.Sequence, sequence)
	}

	params := stellarrpc.PayoutParams{
		Ephemeral:      address,
		FundingAccount: cosigned.Public,
		Sequence:       sequence,
		Destination:    settlement.DestinationAccount,
		Amount:         settlement.Amount,
		AssetCode:      token.StellarCode,
		AssetIssuer:    token.StellarIssuer,
		Memo:           settlement.Memo,
		MemoType:       settlement.MemoType,
		MaxTime:        maxTime,
		BaseFee:        h.ec.Config.StellarBaseFee,
	}
	payment, err := stellarrpc.BuildPayment(params)
	if err != nil {
		return ramp.Unrecoverable(err)
	}
	merge, err := stellarrpc.BuildMerge(params)
	if err != nil {
		return ramp.Unrecoverable(err)
	}

	passphrase := h.ec.Stellar.NetworkPassphrase()
	if bundle[model.TxStellarPayment], err = stellarrpc.SignWithCosigner(payment, passphrase, kp, cosigned.Public, cosigned.Signatures[0]); err != nil {
		return err
	}
	if bundle[model.TxStellarCleanup], err = stellarrpc.SignWithCosigner(merge, passphrase, kp, cosigned.Public, cosigned.Signatures[1]); err != nil {
		return err
	}
	return nil
}
