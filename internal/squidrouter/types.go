package squidrouter

// PostHook is forwarded untouched; for offramps it calls the Moonbeam receiver contract with the
// receiver id and payload so the inbound transfer can be correlated.
type PostHook struct {
	ChainType   string     `json:"chainType"`
	Calls       []HookCall `json:"calls"`
	Provider    string     `json:"provider"`
	Description string     `json:"description"`
	Logo        string     `json:"logoURI,omitempty"`
}

type HookCall struct {
	ChainType    string      `json:"chainType"`
	CallType     int         `json:"callType"`
	Target       string      `json:"target"`
	Value        string      `json:"value"`
	CallData     string      `json:"callData"`
	Payload      HookPayload `json:"payload"`
	EstimatedGas string      `json:"estimatedGas"`
}

type HookPayload struct {
	TokenAddress string `json:"tokenAddress"`
	InputPos     int    `json:"inputPos"`
}

type RouteParams struct {
	FromAddress string    `json:"fromAddress"`
	FromChain   string    `json:"fromChain"`
	FromToken   string    `json:"fromToken"`
	FromAmount  string    `json:"fromAmount"`
	ToChain     string    `json:"toChain"`
	ToToken     string    `json:"toToken"`
	ToAddress   string    `json:"toAddress"`
	Slippage    int       `json:"slippage"`
	QuoteOnly   bool      `json:"quoteOnly"`
	PostHook    *PostHook `json:"postHook,omitempty"`
}

// TransactionRequest is treated as opaque call data to sign and broadcast.
type TransactionRequest struct {
	Target   string `json:"target"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasLimit string `json:"gasLimit"`
	GasPrice string `json:"gasPrice"`
}

type Estimate struct {
	ToAmount    string `json:"toAmount"`
	ToAmountMin string `json:"toAmountMin"`
}

type Route struct {
	RequestID          string
	TransactionRequest TransactionRequest
	Estimate           Estimate
}

type routeResponse struct {
	Route struct {
		TransactionRequest TransactionRequest `json:"transactionRequest"`
		Estimate           Estimate           `json:"estimate"`
	} `json:"route"`
}

type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	SquidStatus string `json:"squidTransactionStatus"`
}

func (s Status) Succeeded() bool {
	return s.SquidStatus == "success"
}

type errorResponse struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// amountInputPos is the calldata argument Squid overwrites with the delivered amount.
const amountInputPos = 1

// ReceiverPostHook calls the Moonbeam receiver with callData once the routed tokens arrived.
func ReceiverPostHook(receiver, token, callData string) *PostHook {
	return &PostHook{
		ChainType: "evm",
		Calls: []HookCall{{
			ChainType: "evm",
			CallType:  1,
			Target:    receiver,
			Value:     "0",
			CallData:  callData,
			Payload: HookPayload{
				TokenAddress: token,
				InputPos:     amountInputPos,
			},
			EstimatedGas: "700000",
		}},
		Provider:    "Pendulum",
		Description: "Pendulum bridge",
	}
}
