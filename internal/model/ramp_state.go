package model

import (
	"encoding/json"
	"time"
)

type FailureKind string

const (
	FailureRecoverable   FailureKind = "recoverable"
	FailureUnrecoverable FailureKind = "unrecoverable"
)

type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Phase   Phase       `json:"phase"`
	At      time.Time   `json:"at"`
}

// TokenRef pins everything the flow needs to know about one asset at construction time,
// so a resumed flow never depends on a registry that may have changed meanwhile.
type TokenRef struct {
	Symbol           string `json:"symbol"`
	Decimals         int32  `json:"decimals"`
	PendulumCurrency string `json:"pendulumCurrency"`
	PendulumDecimals int32  `json:"pendulumDecimals"`
	PendulumWrapper  string `json:"pendulumWrapper"`
	EVMAddress       string `json:"evmAddress,omitempty"`
	MoonbeamAddress  string `json:"moonbeamAddress,omitempty"`
	AssetHubID       string `json:"assetHubId,omitempty"`
	StellarCode      string `json:"stellarCode,omitempty"`
	StellarIssuer    string `json:"stellarIssuer,omitempty"`
	MaxSubsidyRaw    string `json:"maxSubsidyRaw,omitempty"`
}

type EphemeralAccount struct {
	Address string `json:"address"`
	Seed    string `json:"seed"`
}

type Ephemerals struct {
	Stellar  *EphemeralAccount `json:"stellar,omitempty"`
	Pendulum *EphemeralAccount `json:"pendulum,omitempty"`
	Moonbeam *EphemeralAccount `json:"moonbeam,omitempty"`
}

// Nonces are assigned once when the flow is built. A chain nonce above the assigned one
// means the operation already landed.
type Nonces struct {
	NablaApprove        uint64 `json:"nablaApprove"`
	NablaSwap           uint64 `json:"nablaSwap"`
	PendulumTransferOut uint64 `json:"pendulumTransferOut"`
	PendulumCleanup     uint64 `json:"pendulumCleanup"`
	MoonbeamPayout      uint64 `json:"moonbeamPayout"`
	MoonbeamXcm         uint64 `json:"moonbeamXcm"`
	SquidApprove        uint64 `json:"squidApprove"`
	SquidSwap           uint64 `json:"squidSwap"`
}

type TxRole string

const (
	TxStellarPayment         TxRole = "stellarPayment"
	TxStellarCleanup         TxRole = "stellarCleanup"
	TxNablaApprove           TxRole = "nablaApprove"
	TxNablaSwap              TxRole = "nablaSwap"
	TxSpacewalkRedeem        TxRole = "spacewalkRedeem"
	TxAssetHubXcm            TxRole = "assetHubXcm"
	TxPendulumToMoonbeam     TxRole = "pendulumToMoonbeam"
	TxPendulumToAssetHub     TxRole = "pendulumToAssetHub"
	TxPendulumCleanup        TxRole = "pendulumCleanup"
	TxMoonbeamPayoutTransfer TxRole = "moonbeamPayoutTransfer"
	TxMoonbeamToPendulum     TxRole = "moonbeamToPendulum"
	TxSquidApprove           TxRole = "squidApprove"
	TxSquidSwap              TxRole = "squidSwap"
	// TxBridgeCompletion is the signing service's receiver call; it never enters the bundle.
	TxBridgeCompletion TxRole = "bridgeCompletion"
	// TxBrlaTeleport and TxBrlaPayout index the off-chain BRLA requests; they never enter the bundle.
	TxBrlaTeleport TxRole = "brlaTeleport"
	TxBrlaPayout   TxRole = "brlaPayout"
)

// TransactionBundle holds encoded pre-signed transactions by role. Stellar entries are base64 XDR,
// EVM entries are 0x prefixed RLP, Pendulum entries are JSON signed extrinsics.
type TransactionBundle map[TxRole]string

type StellarSettlement struct {
	Amount             string `json:"amount"`
	Memo               string `json:"memo"`
	MemoType           string `json:"memoType"`
	DestinationAccount string `json:"destinationAccount"`
	CorrelationID      string `json:"correlationId"`
}

// BRLAInfo carries the BRLA subaccount of a flow. The *RequestedAt fields are the event cutoffs,
// persisted before the matching request goes out.
type BRLAInfo struct {
	TaxID               string     `json:"taxId"`
	PixDestination      string     `json:"pixDestination,omitempty"`
	DepositAddress      string     `json:"depositAddress,omitempty"`
	PayoutRequestedAt   *time.Time `json:"payoutRequestedAt,omitempty"`
	TeleportRequestedAt *time.Time `json:"teleportRequestedAt,omitempty"`
}

type BridgeInfo struct {
	ReceiverID     string `json:"receiverId,omitempty"`
	ReceiverHash   string `json:"receiverHash,omitempty"`
	Payload        string `json:"payload,omitempty"`
	SquidRequestID string `json:"squidRequestId,omitempty"`
	ApproveHash    string `json:"approveHash,omitempty"`
	SwapHash       string `json:"swapHash,omitempty"`
	CompletionHash string `json:"completionHash,omitempty"`
	XcmHash        string `json:"xcmHash,omitempty"`
	XcmBlockHash   string `json:"xcmBlockHash,omitempty"`
}

type RampState struct {
	SessionID        string    `json:"sessionId"`
	FlowType         FlowType  `json:"flowType"`
	Network          Network   `json:"network"`
	Phase            Phase     `json:"phase"`
	InProgress       bool      `json:"inProgress"`
	Failure          *Failure  `json:"failure,omitempty"`
	FailureTimeoutAt time.Time `json:"failureTimeoutAt"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`

	UserAddress        string `json:"userAddress"`
	DestinationAddress string `json:"destinationAddress,omitempty"`

	InputToken          TokenRef `json:"inputToken"`
	OutputToken         TokenRef `json:"outputToken"`
	InputAmount         Amount   `json:"inputAmount"`
	InputAmountPendulum Amount   `json:"inputAmountPendulum"`
	OutputAmount        Amount   `json:"outputAmount"`
	MinimumOutputRaw    string   `json:"minimumOutputRaw"`

	Ephemerals   Ephemerals        `json:"ephemerals"`
	Nonces       Nonces            `json:"nonces"`
	Transactions TransactionBundle `json:"transactions,omitempty"`

	Settlement       *StellarSettlement `json:"settlement,omitempty"`
	BRLA             *BRLAInfo          `json:"brla,omitempty"`
	Bridge           BridgeInfo         `json:"bridge"`
	RedeemRequestID  string             `json:"redeemRequestId,omitempty"`
	SpacewalkVaultID string             `json:"spacewalkVaultId,omitempty"`
}

func (s *RampState) IsTerminal() bool {
	return s.Phase.IsTerminal()
}

func (s *RampState) IsFailed() bool {
	return s.Failure != nil
}

func (s *RampState) HasTransactions() bool {
	return len(s.Transactions) > 0
}

// Clone returns a deep copy. Handlers work on clones so a failing handler never leaks partial edits.
func (s *RampState) Clone() *RampState {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	var out RampState
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return &out
}

// Redacted strips ephemeral seeds for read-only consumers.
func (s *RampState) Redacted() *RampState {
	out := s.Clone()
	for _, acc := range []*EphemeralAccount{out.Ephemerals.Stellar, out.Ephemerals.Pendulum, out.Ephemerals.Moonbeam} {
		if acc != nil {
			acc.Seed = ""
		}
	}
	return out
}

// RampStateRecord is the persisted row; State carries the JSON encoded RampState.
type RampStateRecord struct {
	SessionID   string    `gorm:"column:session_id;type:varchar(64);primaryKey"`
	FlowType    string    `gorm:"column:flow_type;type:varchar(50);not null"`
	Phase       string    `gorm:"column:phase;type:varchar(50);not null"`
	InProgress  bool      `gorm:"column:in_progress;not null;default:false"`
	FailureKind string    `gorm:"column:failure_kind;type:varchar(20)"`
	State       string    `gorm:"column:state;type:jsonb;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (RampStateRecord) TableName() string {
	return "ramp_states"
}
