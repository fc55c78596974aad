package evmrpc

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
 {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function","stateMutability":"view"},
 {"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function","stateMutability":"view"},
 {"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function","stateMutability":"nonpayable"},
 {"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function","stateMutability":"nonpayable"}
]`

const receiverABIJSON = `[
 {"inputs":[{"name":"","type":"bytes32"}],"name":"xcmDataMapping","outputs":[{"name":"","type":"bytes"}],"stateMutability":"view","type":"function"},
 {"inputs":[{"name":"xcmHash","type":"bytes32"},{"name":"amount","type":"uint256"}],"name":"initXcm","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const xtokensABIJSON = `[
 {"inputs":[
   {"name":"currencyAddress","type":"address"},
   {"name":"amount","type":"uint256"},
   {"components":[{"name":"parents","type":"uint8"},{"name":"interior","type":"bytes[]"}],"name":"destination","type":"tuple"},
   {"name":"weight","type":"uint64"}],
  "name":"transfer","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var (
	erc20ABI    = mustParseABI(erc20ABIJSON)
	receiverABI = mustParseABI(receiverABIJSON)
	xtokensABI  = mustParseABI(xtokensABIJSON)
)

// PendulumParachainID is the destination parachain for XCM transfers from Moonbeam.
const PendulumParachainID uint32 = 2094

// Multilocation mirrors the xtokens precompile tuple.
type Multilocation struct {
	Parents  uint8
	Interior [][]byte
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

func PackERC20Transfer(to common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("transfer", to, amount)
}

func PackERC20Approve(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}

// PackReceiverInit is the post hook call that registers an inbound transfer under its receiver
// hash. Squid overwrites the amount with what actually arrived.
func PackReceiverInit(receiverHash common.Hash, amount *big.Int) ([]byte, error) {
	return receiverABI.Pack("initXcm", [32]byte(receiverHash), amount)
}

// PendulumDestination builds the multilocation of an AccountId32 on Pendulum as seen from Moonbeam.
func PendulumDestination(accountID []byte) Multilocation {
	parachain := []byte{0x00, 0, 0, 0, 0}
	id := PendulumParachainID
	parachain[1] = byte(id >> 24)
	parachain[2] = byte(id >> 16)
	parachain[3] = byte(id >> 8)
	parachain[4] = byte(id)

	account := append([]byte{0x01}, accountID...)
	account = append(account, 0x00)

	return Multilocation{Parents: 1, Interior: [][]byte{parachain, account}}
}

func PackXTokensTransfer(currency common.Address, amount *big.Int, dest Multilocation, weight uint64) ([]byte, error) {
	return xtokensABI.Pack("transfer", currency, amount, dest, weight)
}
