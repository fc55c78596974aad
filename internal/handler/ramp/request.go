package ramp

import (
	"github.com/pendulum-chain/vortex-sub005/internal/controller"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

type StartRampRequest struct {
	SessionID          string         `json:"sessionId"`
	FlowType           string         `json:"flowType" binding:"required" validate:"required"`
	Network            string         `json:"network" binding:"required" validate:"required"`
	InputToken         string         `json:"inputToken" binding:"required" validate:"required"`
	OutputToken        string         `json:"outputToken" binding:"required" validate:"required"`
	InputAmount        string         `json:"inputAmount" binding:"required" validate:"required,numeric"`
	OutputAmount       string         `json:"outputAmount" binding:"required" validate:"required,numeric"`
	UserAddress        string         `json:"userAddress" binding:"required" validate:"required"`
	DestinationAddress string         `json:"destinationAddress"`
	Anchor             *AnchorRequest `json:"anchor,omitempty"`
	BRL                *BRLRequest    `json:"brl,omitempty"`
}

type AnchorRequest struct {
	TransferServer string `json:"transferServer" validate:"required,url"`
	BearerToken    string `json:"bearerToken" validate:"required"`
	TransactionID  string `json:"transactionId" validate:"required"`
}

type BRLRequest struct {
	TaxID  string `json:"taxId" validate:"required"`
	PixKey string `json:"pixKey"`
}

type UserTransactionRequest struct {
	Kind         string `json:"kind" binding:"required" validate:"required,oneof=squidApprove squidSwap assetHubXcm"`
	TxHash       string `json:"txHash" validate:"required_without=RawExtrinsic"`
	RawExtrinsic string `json:"rawExtrinsic"`
}

func (r StartRampRequest) params() controller.StartRampParams {
	params := controller.StartRampParams{
		SessionID:          r.SessionID,
		FlowType:           model.FlowType(r.FlowType),
		Network:            model.Network(r.Network),
		InputToken:         r.InputToken,
		OutputToken:        r.OutputToken,
		InputAmount:        r.InputAmount,
		OutputAmount:       r.OutputAmount,
		UserAddress:        r.UserAddress,
		DestinationAddress: r.DestinationAddress,
	}
	if r.Anchor != nil {
		params.Anchor = &controller.AnchorParams{
			TransferServer: r.Anchor.TransferServer,
			BearerToken:    r.Anchor.BearerToken,
			TransactionID:  r.Anchor.TransactionID,
		}
	}
	if r.BRL != nil {
		params.BRL = &controller.BRLParams{
			TaxID:  r.BRL.TaxID,
			PixKey: r.BRL.PixKey,
		}
	}
	return params
}

func (r UserTransactionRequest) params() controller.UserTransactionParams {
	return controller.UserTransactionParams{
		Kind:         model.UserTransactionKind(r.Kind),
		TxHash:       r.TxHash,
		RawExtrinsic: r.RawExtrinsic,
	}
}
