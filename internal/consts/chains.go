package consts

import (
	"fmt"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

var evmChainIDs = map[model.Network]string{
	model.NetworkEthereum:  "1",
	model.NetworkBSC:       "56",
	model.NetworkPolygon:   "137",
	model.NetworkMoonbeam:  "1284",
	model.NetworkBase:      "8453",
	model.NetworkArbitrum:  "42161",
	model.NetworkAvalanche: "43114",
}

// EVMChainID is the decimal chain id Squid expects for network.
func EVMChainID(network model.Network) (string, error) {
	id, ok := evmChainIDs[network]
	if !ok {
		return "", fmt.Errorf("network %s is not an EVM chain", network)
	}
	return id, nil
}
