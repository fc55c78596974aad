package evmrpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/poll"
)

// Backend is the subset of ethclient.Client used here; the simulated backend satisfies it too.
type Backend interface {
	ethereum.ChainStateReader
	ethereum.ContractCaller
	ethereum.GasPricer
	ethereum.TransactionSender
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type EvmRPC struct {
	backend Backend
	chainID *big.Int
	logger  *logger.Logger
}

func Dial(rpcURL string, chainID int64, logger *logger.Logger) (IEvmRPC, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}
	return New(client, big.NewInt(chainID), logger), nil
}

func New(backend Backend, chainID *big.Int, logger *logger.Logger) IEvmRPC {
	return &EvmRPC{backend: backend, chainID: chainID, logger: logger}
}

func (e *EvmRPC) ChainID() *big.Int {
	return new(big.Int).Set(e.chainID)
}

func (e *EvmRPC) AccountNonce(ctx context.Context, address string) (uint64, error) {
	return e.backend.NonceAt(ctx, common.HexToAddress(address), nil)
}

func (e *EvmRPC) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	return e.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
}

func (e *EvmRPC) ERC20BalanceOf(ctx context.Context, token, holder string) (*big.Int, error) {
	return e.callUint256(ctx, erc20ABI, common.HexToAddress(token), "balanceOf", common.HexToAddress(holder))
}

func (e *EvmRPC) ERC20Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	return e.callUint256(ctx, erc20ABI, common.HexToAddress(token), "allowance", common.HexToAddress(owner), common.HexToAddress(spender))
}

func (e *EvmRPC) GasPrice(ctx context.Context) (*big.Int, error) {
	return e.backend.SuggestGasPrice(ctx)
}

func (e *EvmRPC) SendRawTransaction(ctx context.Context, raw string) (string, error) {
	tx, err := DecodeRawTx(raw)
	if err != nil {
		return "", err
	}
	if err := e.backend.SendTransaction(ctx, tx); err != nil {
		return tx.Hash().Hex(), classifySendError(err)
	}

	e.logger.Info("[EvmRPC.SendRawTransaction] broadcast", map[string]string{
		"txHash": tx.Hash().Hex(),
		"nonce":  fmt.Sprintf("%d", tx.Nonce()),
	})
	return tx.Hash().Hex(), nil
}

func (e *EvmRPC) WaitForReceipt(ctx context.Context, txHash string, interval time.Duration) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := poll.Until(ctx, interval, func(ctx context.Context) (bool, error) {
		r, err := e.backend.TransactionReceipt(ctx, common.HexToHash(txHash))
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		if err != nil {
			e.logger.Debug("[EvmRPC.WaitForReceipt] receipt lookup failed", map[string]string{
				"txHash": txHash,
				"error":  err.Error(),
			})
			return false, nil
		}
		receipt = r
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, txHash)
	}
	return receipt, nil
}

func (e *EvmRPC) ReceiverPayloadRegistered(ctx context.Context, receiver, receiverHash string) (bool, error) {
	data, err := receiverABI.Pack("xcmDataMapping", [32]byte(common.HexToHash(receiverHash)))
	if err != nil {
		return false, err
	}
	to := common.HexToAddress(receiver)
	out, err := e.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return false, err
	}
	values, err := receiverABI.Unpack("xcmDataMapping", out)
	if err != nil {
		return false, err
	}
	payload, ok := values[0].([]byte)
	if !ok {
		return false, fmt.Errorf("unexpected xcmDataMapping output %T", values[0])
	}
	return len(payload) > 0, nil
}

func (e *EvmRPC) callUint256(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := e.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := contract.Unpack(method, out)
	if err != nil {
		return nil, err
	}
	n, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output %T", method, values[0])
	}
	return n, nil
}
