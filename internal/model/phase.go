package model

import (
	"fmt"
)

type FlowType string

const (
	FlowEVMToStellar      FlowType = "evm-to-stellar"
	FlowAssetHubToStellar FlowType = "assethub-to-stellar"
	FlowEVMToBRL          FlowType = "evm-to-brl"
	FlowAssetHubToBRL     FlowType = "assethub-to-brl"
	FlowBRLToEVM          FlowType = "brl-to-evm"
	FlowBRLToAssetHub     FlowType = "brl-to-assethub"
)

// FlowFamily is the coarse dispatch key: how value enters and leaves the Pendulum hub.
type FlowFamily string

const (
	FamilyRouter     FlowFamily = "router"
	FamilyMessage    FlowFamily = "message"
	FamilyOfframpBRL FlowFamily = "offramp-brl"
	FamilyOnramp     FlowFamily = "onramp"
)

type Network string

const (
	NetworkPolygon   Network = "polygon"
	NetworkArbitrum  Network = "arbitrum"
	NetworkBase      Network = "base"
	NetworkEthereum  Network = "ethereum"
	NetworkAvalanche Network = "avalanche"
	NetworkBSC       Network = "bsc"
	NetworkMoonbeam  Network = "moonbeam"
	NetworkAssetHub  Network = "assethub"
)

func (n Network) IsEVM() bool {
	switch n {
	case NetworkPolygon, NetworkArbitrum, NetworkBase, NetworkEthereum, NetworkAvalanche, NetworkBSC, NetworkMoonbeam:
		return true
	}
	return false
}

type Phase string

const (
	PhasePrepareTransactions   Phase = "prepareTransactions"
	PhaseSquidRouter           Phase = "squidRouter"
	PhaseAssetHubXcm           Phase = "assetHubXcm"
	PhasePendulumFundEphemeral Phase = "pendulumFundEphemeral"
	PhaseSubsidizePreSwap      Phase = "subsidizePreSwap"
	PhaseNablaApprove          Phase = "nablaApprove"
	PhaseNablaSwap             Phase = "nablaSwap"
	PhaseSubsidizePostSwap     Phase = "subsidizePostSwap"
	PhaseSpacewalkRedeem       Phase = "spacewalkRedeem"
	PhasePendulumToMoonbeam    Phase = "pendulumToMoonbeam"
	PhasePendulumToAssetHub    Phase = "pendulumToAssetHub"
	PhaseBrlaPayout            Phase = "brlaPayout"
	PhaseBrlaTeleport          Phase = "brlaTeleport"
	PhaseMoonbeamToPendulum    Phase = "moonbeamToPendulum"
	PhaseSquidRouterOnramp     Phase = "squidRouterOnramp"
	PhasePendulumCleanup       Phase = "pendulumCleanup"
	PhaseStellarPayment        Phase = "stellarPayment"
	PhaseStellarCleanup        Phase = "stellarCleanup"
	PhaseSuccess               Phase = "success"
)

func (p Phase) IsTerminal() bool {
	return p == PhaseSuccess
}

var stellarOfframpTail = []Phase{
	PhasePendulumFundEphemeral,
	PhaseSubsidizePreSwap,
	PhaseNablaApprove,
	PhaseNablaSwap,
	PhaseSubsidizePostSwap,
	PhaseSpacewalkRedeem,
	PhasePendulumCleanup,
	PhaseStellarPayment,
	PhaseStellarCleanup,
	PhaseSuccess,
}

var brlOfframpTail = []Phase{
	PhasePendulumFundEphemeral,
	PhaseSubsidizePreSwap,
	PhaseNablaApprove,
	PhaseNablaSwap,
	PhaseSubsidizePostSwap,
	PhasePendulumToMoonbeam,
	PhaseBrlaPayout,
	PhasePendulumCleanup,
	PhaseSuccess,
}

var onrampHead = []Phase{
	PhasePrepareTransactions,
	PhaseBrlaTeleport,
	PhasePendulumFundEphemeral,
	PhaseMoonbeamToPendulum,
	PhaseSubsidizePreSwap,
	PhaseNablaApprove,
	PhaseNablaSwap,
	PhaseSubsidizePostSwap,
}

func concatPhases(parts ...[]Phase) []Phase {
	var out []Phase
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var phaseSequences = map[FlowType][]Phase{
	FlowEVMToStellar:      concatPhases([]Phase{PhasePrepareTransactions, PhaseSquidRouter}, stellarOfframpTail),
	FlowAssetHubToStellar: concatPhases([]Phase{PhasePrepareTransactions, PhaseAssetHubXcm}, stellarOfframpTail),
	FlowEVMToBRL:          concatPhases([]Phase{PhasePrepareTransactions, PhaseSquidRouter}, brlOfframpTail),
	FlowAssetHubToBRL:     concatPhases([]Phase{PhasePrepareTransactions, PhaseAssetHubXcm}, brlOfframpTail),
	FlowBRLToEVM:          concatPhases(onrampHead, []Phase{PhasePendulumToMoonbeam, PhaseSquidRouterOnramp, PhasePendulumCleanup, PhaseSuccess}),
	FlowBRLToAssetHub:     concatPhases(onrampHead, []Phase{PhasePendulumToAssetHub, PhasePendulumCleanup, PhaseSuccess}),
}

var flowFamilies = map[FlowType]FlowFamily{
	FlowEVMToStellar:      FamilyRouter,
	FlowAssetHubToStellar: FamilyMessage,
	FlowEVMToBRL:          FamilyOfframpBRL,
	FlowAssetHubToBRL:     FamilyOfframpBRL,
	FlowBRLToEVM:          FamilyOnramp,
	FlowBRLToAssetHub:     FamilyOnramp,
}

func FlowTypes() []FlowType {
	return []FlowType{
		FlowEVMToStellar,
		FlowAssetHubToStellar,
		FlowEVMToBRL,
		FlowAssetHubToBRL,
		FlowBRLToEVM,
		FlowBRLToAssetHub,
	}
}

func (f FlowType) Valid() bool {
	_, ok := phaseSequences[f]
	return ok
}

func (f FlowType) Family() FlowFamily {
	return flowFamilies[f]
}

// Phases returns a copy of the ordered phase sequence, ending with success.
func (f FlowType) Phases() []Phase {
	seq := phaseSequences[f]
	out := make([]Phase, len(seq))
	copy(out, seq)
	return out
}

func (f FlowType) IsOnramp() bool {
	return f.Family() == FamilyOnramp
}

func (f FlowType) PaysOutOnStellar() bool {
	return f == FlowEVMToStellar || f == FlowAssetHubToStellar
}

// UsesRouterBridge reports whether value crosses to or from the hub through Squid and Moonbeam.
func (f FlowType) UsesRouterBridge() bool {
	return f == FlowEVMToStellar || f == FlowEVMToBRL || f == FlowBRLToEVM
}

// PhaseIndex returns the position of p in the flow's sequence, or -1.
func PhaseIndex(f FlowType, p Phase) int {
	for i, candidate := range phaseSequences[f] {
		if candidate == p {
			return i
		}
	}
	return -1
}

func NextPhase(f FlowType, p Phase) (Phase, error) {
	idx := PhaseIndex(f, p)
	if idx < 0 {
		return "", fmt.Errorf("phase %s is not part of flow %s", p, f)
	}
	seq := phaseSequences[f]
	if idx == len(seq)-1 {
		return "", fmt.Errorf("phase %s is terminal for flow %s", p, f)
	}
	return seq[idx+1], nil
}
