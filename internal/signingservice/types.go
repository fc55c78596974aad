package signingservice

type FundingRequest struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	// Stellar only: the trustline opened while creating the account.
	AssetCode   string `json:"assetCode,omitempty"`
	AssetIssuer string `json:"assetIssuer,omitempty"`
}

type PaymentData struct {
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Memo        string `json:"memo"`
	MemoType    string `json:"memoType"`
}

type CosignRequest struct {
	AccountID   string      `json:"accountId"`
	PaymentData PaymentData `json:"paymentData"`
	Sequence    int64       `json:"sequence,string"`
	MaxTime     int64       `json:"maxTime"`
	AssetCode   string      `json:"assetCode"`
	AssetIssuer string      `json:"assetIssuer"`
	BaseFee     int64       `json:"baseFee,string"`
}

// CosignResponse carries the payment signature first and the merge signature second.
type CosignResponse struct {
	Signatures []string `json:"signature"`
	Public     string   `json:"public"`
	Sequence   int64    `json:"sequence,string"`
}

type SubsidyRequest struct {
	Chain     string `json:"chain"`
	Address   string `json:"address"`
	AmountRaw string `json:"amountRaw"`
	Asset     string `json:"asset"`
}

type bridgeCompletionResponse struct {
	TxHash string `json:"txHash"`
}

type fundingAccountsResponse map[string]struct {
	Public string `json:"public"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}
