package consts

import (
	"fmt"
	"strings"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

var inputTokens = map[model.Network]map[string]model.TokenRef{
	model.NetworkPolygon: {
		"usdc": {
			Symbol:           "USDC",
			Decimals:         6,
			EVMAddress:       "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
			MoonbeamAddress:  "0xCa01a1D0993565291051daFF390892518ACfAD3A",
			PendulumCurrency: `{"XCM":12}`,
			PendulumDecimals: 6,
			PendulumWrapper:  "6dZCR7KVmrcxBoUTcM3vUgpQagQAW2wg2izMrT3N4reftwW5",
			MaxSubsidyRaw:    "10000",
		},
	},
	model.NetworkArbitrum: {
		"usdc": {
			Symbol:           "USDC",
			Decimals:         6,
			EVMAddress:       "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
			MoonbeamAddress:  "0xCa01a1D0993565291051daFF390892518ACfAD3A",
			PendulumCurrency: `{"XCM":12}`,
			PendulumDecimals: 6,
			PendulumWrapper:  "6dZCR7KVmrcxBoUTcM3vUgpQagQAW2wg2izMrT3N4reftwW5",
			MaxSubsidyRaw:    "10000",
		},
	},
	model.NetworkAssetHub: {
		"usdc": {
			Symbol:           "USDC",
			Decimals:         6,
			AssetHubID:       "1337",
			PendulumCurrency: `{"XCM":2}`,
			PendulumDecimals: 6,
			PendulumWrapper:  "6dAegKXwGWEXkfhNbeqeKothqhe6G81McRxG8zvaDYrpdVHF",
			MaxSubsidyRaw:    "10000",
		},
	},
}

var stellarOutputTokens = map[string]model.TokenRef{
	"eurc": {
		Symbol:           "EURC",
		Decimals:         7,
		StellarCode:      "EURC",
		StellarIssuer:    "GDHU6WRG4IEQXM5NZ4BMPKOXHW76MZM4Y2IEMFDVXBSDP6SJY4ITNPP2",
		PendulumCurrency: `{"Stellar":{"AlphaNum4":{"code":"0x45555243","issuer":"0xcf4f5a26e2090bb3adcf02c7a9d73dbfe6659cc690461475b86437fa49c71136"}}}`,
		PendulumDecimals: 12,
		PendulumWrapper:  "6eNUvRWCKE3kejoyrJTXiSM7NxtWi37eRXTnKhGKPsJevAj5",
		MaxSubsidyRaw:    "10000000000",
	},
	"ars": {
		Symbol:           "ARS",
		Decimals:         7,
		StellarCode:      "ARS",
		StellarIssuer:    "GCYE7C77EB5AWAA25R5XMWNI2EDOKTTFTTPZKM2SR5DI4B4WFD52DARS",
		PendulumCurrency: `{"Stellar":{"AlphaNum4":{"code":"0x41525300","issuer":"0xb04f8bff207a0b001aec7b7659a0d106e54e659cdf9533528f468e079628fba1"}}}`,
		PendulumDecimals: 12,
		PendulumWrapper:  "6f7VMG1ERxpZMvFE2CbdWb7phxDgnoXrdornbV3CCd51nFsj",
		MaxSubsidyRaw:    "500000000000000",
	},
}

var brlToken = model.TokenRef{
	Symbol:           "BRLA",
	Decimals:         18,
	MoonbeamAddress:  "0xfeB25F3fDDad13F82C4d6dbc1481516F62236429",
	PendulumCurrency: `{"XCM":13}`,
	PendulumDecimals: 18,
	PendulumWrapper:  "6eRq1yvty6KorGcJ3nKpNYrCBn9FQnzsBhFn4JmAFqWUwpnh",
	MaxSubsidyRaw:    "1000000000000000000",
}

// InputToken resolves the crypto asset the user pays with (offramp) or receives (onramp).
func InputToken(network model.Network, symbol string) (model.TokenRef, error) {
	byNetwork, ok := inputTokens[network]
	if !ok {
		return model.TokenRef{}, fmt.Errorf("unsupported network %s", network)
	}
	token, ok := byNetwork[strings.ToLower(symbol)]
	if !ok {
		return model.TokenRef{}, fmt.Errorf("unsupported token %s on %s", symbol, network)
	}
	return token, nil
}

// FiatToken resolves the settlement side of a flow: a Stellar anchor asset or BRLA.
func FiatToken(flowType model.FlowType, symbol string) (model.TokenRef, error) {
	if flowType.PaysOutOnStellar() {
		token, ok := stellarOutputTokens[strings.ToLower(symbol)]
		if !ok {
			return model.TokenRef{}, fmt.Errorf("unsupported stellar asset %s", symbol)
		}
		return token, nil
	}
	if !strings.EqualFold(symbol, "brl") && !strings.EqualFold(symbol, "brla") {
		return model.TokenRef{}, fmt.Errorf("unsupported fiat %s for %s", symbol, flowType)
	}
	return brlToken, nil
}
