package controller

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"

	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/ephemeral"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

// Every ephemeral starts with nonce zero, so the plan is the same for every flow of a kind.
const (
	pendulumApproveNonce     = 0
	pendulumSwapNonce        = 1
	pendulumTransferOutNonce = 2
	pendulumCleanupNonce     = 3

	moonbeamPayoutNonce = 0

	moonbeamXcmNonce          = 0
	moonbeamSquidApproveNonce = 1
	moonbeamSquidSwapNonce    = 2
)

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
}

func noncePlan(flowType model.FlowType) model.Nonces {
	nonces := model.Nonces{
		NablaApprove:        pendulumApproveNonce,
		NablaSwap:           pendulumSwapNonce,
		PendulumTransferOut: pendulumTransferOutNonce,
		PendulumCleanup:     pendulumCleanupNonce,
	}
	if flowType.IsOnramp() {
		nonces.MoonbeamXcm = moonbeamXcmNonce
		nonces.SquidApprove = moonbeamSquidApproveNonce
		nonces.SquidSwap = moonbeamSquidSwapNonce
	} else {
		nonces.MoonbeamPayout = moonbeamPayoutNonce
	}
	return nonces
}

// validateFlow checks the request shape before anything external is contacted.
func validateFlow(params StartRampParams) error {
	if !params.FlowType.Valid() {
		return invalid(fmt.Errorf("unknown flow type %q", params.FlowType))
	}

	switch params.FlowType {
	case model.FlowAssetHubToStellar, model.FlowAssetHubToBRL, model.FlowBRLToAssetHub:
		if params.Network != model.NetworkAssetHub {
			return invalid(fmt.Errorf("flow %s runs on assethub, not %s", params.FlowType, params.Network))
		}
	default:
		if !params.Network.IsEVM() {
			return invalid(fmt.Errorf("flow %s needs an EVM network, got %q", params.FlowType, params.Network))
		}
	}

	if err := validateAddress(params.Network, params.UserAddress); err != nil {
		return invalid(fmt.Errorf("user address: %w", err))
	}
	if params.FlowType.IsOnramp() && params.DestinationAddress != "" {
		if err := validateAddress(params.Network, params.DestinationAddress); err != nil {
			return invalid(fmt.Errorf("destination address: %w", err))
		}
	}
	return nil
}

// validateAddress accepts a checksummed or lower case 0x address on EVM networks and any valid
// SS58 account on AssetHub.
func validateAddress(network model.Network, address string) error {
	if address == "" {
		return errors.New("address is empty")
	}
	if network.IsEVM() {
		if !common.IsHexAddress(address) {
			return fmt.Errorf("%q is not an EVM address", address)
		}
		return nil
	}
	if _, _, err := ephemeral.DecodeSS58(address); err != nil {
		return fmt.Errorf("%q is not an SS58 account: %w", address, err)
	}
	return nil
}

// resolveTokens maps the request symbols onto pinned token metadata. Offramps pay with the crypto
// asset and receive fiat; onramps the other way round.
func resolveTokens(flowType model.FlowType, network model.Network, inputSymbol, outputSymbol string) (model.TokenRef, model.TokenRef, error) {
	if flowType.IsOnramp() {
		in, err := consts.FiatToken(flowType, inputSymbol)
		if err != nil {
			return model.TokenRef{}, model.TokenRef{}, err
		}
		out, err := consts.InputToken(network, outputSymbol)
		if err != nil {
			return model.TokenRef{}, model.TokenRef{}, err
		}
		return in, out, nil
	}

	in, err := consts.InputToken(network, inputSymbol)
	if err != nil {
		return model.TokenRef{}, model.TokenRef{}, err
	}
	out, err := consts.FiatToken(flowType, outputSymbol)
	if err != nil {
		return model.TokenRef{}, model.TokenRef{}, err
	}
	return in, out, nil
}

func acceptsUserTransaction(flowType model.FlowType, kind model.UserTransactionKind) bool {
	switch kind {
	case model.UserTxSquidApprove, model.UserTxSquidSwap:
		return flowType.UsesRouterBridge() && !flowType.IsOnramp()
	case model.UserTxAssetHubXcm:
		return flowType == model.FlowAssetHubToStellar || flowType == model.FlowAssetHubToBRL
	}
	return false
}

// extrinsicHash is the blake2b-256 hash substrate nodes report for a signed extrinsic.
func extrinsicHash(rawHex string) (string, error) {
	raw, err := hexutil.Decode(rawHex)
	if err != nil {
		return "", fmt.Errorf("raw extrinsic: %w", err)
	}
	if len(raw) == 0 {
		return "", errors.New("raw extrinsic is empty")
	}
	sum := blake2b.Sum256(raw)
	return hexutil.Encode(sum[:]), nil
}

func isTxHash(hash string) bool {
	b, err := hexutil.Decode(hash)
	return err == nil && len(b) == common.HashLength
}
