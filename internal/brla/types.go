package brla

import (
	"time"
)

const (
	EventTypeBurn     = "BURN"
	EventTypeMint     = "MINT"
	EventTypeTeleport = "MOONBEAM-TELEPORT"

	EventStatusSuccess = "SUCCESS"
	EventStatusFailed  = "FAILED"
)

type User struct {
	ID      string `json:"id"`
	TaxID   string `json:"taxId"`
	Wallets struct {
		EVM string `json:"evm"`
	} `json:"wallets"`
	KYCLevel int `json:"kycLevel"`
}

type PayoutRequest struct {
	TaxID  string `json:"taxId"`
	PixKey string `json:"pixKey"`
	// Amount in BRL cents.
	Amount int64 `json:"amount"`
}

type TeleportRequest struct {
	TaxID           string `json:"taxId"`
	Amount          int64  `json:"amount"`
	ReceiverAddress string `json:"receiverAddress"`
}

type Event struct {
	ID           string    `json:"id"`
	SubaccountID string    `json:"subaccountId"`
	Type         string    `json:"userOperationType"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	Amount       int64     `json:"amount"`
}

type eventsResponse struct {
	Events []Event `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}
