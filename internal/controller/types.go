package controller

import (
	"errors"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

// ErrInvalidRequest wraps every rejection caused by the caller's input.
var ErrInvalidRequest = errors.New("invalid ramp request")

type StartRampParams struct {
	// SessionID is optional; a new one is generated when empty.
	SessionID          string
	FlowType           model.FlowType
	Network            model.Network
	InputToken         string
	OutputToken        string
	InputAmount        string
	OutputAmount       string
	UserAddress        string
	DestinationAddress string
	Anchor             *AnchorParams
	BRL                *BRLParams
}

// AnchorParams locate the interactive withdrawal the user opened with a Stellar anchor.
type AnchorParams struct {
	TransferServer string
	BearerToken    string
	TransactionID  string
}

type BRLParams struct {
	TaxID  string
	PixKey string
}

// UnsignedTransaction is a transaction the user's wallet must sign and broadcast.
type UnsignedTransaction struct {
	Kind     model.UserTransactionKind `json:"kind"`
	ChainID  string                    `json:"chainId"`
	To       string                    `json:"to"`
	Data     string                    `json:"data"`
	Value    string                    `json:"value"`
	GasLimit string                    `json:"gasLimit,omitempty"`
}

type StartRampResult struct {
	State *model.RampState `json:"state"`
	// DepositAddress receives the user's XCM transfer on AssetHub flows.
	DepositAddress   string                `json:"depositAddress,omitempty"`
	UserTransactions []UnsignedTransaction `json:"userTransactions,omitempty"`
}

type UserTransactionParams struct {
	Kind         model.UserTransactionKind
	TxHash       string
	RawExtrinsic string
}
