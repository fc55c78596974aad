package evmrpc

import (
	"crypto/rand"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	bytesType, _   = abi.NewType("bytes", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
)

// NewReceiverID returns the random correlation id handed to the receiver contract.
func NewReceiverID() (common.Hash, error) {
	var id common.Hash
	if _, err := rand.Read(id[:]); err != nil {
		return common.Hash{}, err
	}
	return id, nil
}

// EncodeReceiverPayload is abi.encode(bytes32 pendulumAccount, uint256 amount).
func EncodeReceiverPayload(pendulumAccount []byte, amountRaw *big.Int) ([]byte, error) {
	var dest [32]byte
	copy(dest[:], pendulumAccount)
	return abi.Arguments{{Type: bytes32Type}, {Type: uint256Type}}.Pack(dest, amountRaw)
}

// ReceiverHash is keccak256(abi.encode(bytes32 id, bytes payload)); the receiver contract keys
// inbound transfers by it.
func ReceiverHash(id common.Hash, payload []byte) (common.Hash, error) {
	encoded, err := abi.Arguments{{Type: bytes32Type}, {Type: bytesType}}.Pack([32]byte(id), payload)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}
