package substraterpc

// Call is a runtime call in the gateway's JSON form, e.g. {"pallet":"tokens","method":"transfer","args":[...]}.
type Call struct {
	Pallet string        `json:"pallet"`
	Method string        `json:"method"`
	Args   []interface{} `json:"args"`
}

// SignedExtrinsic is a call signed by an ephemeral ed25519 key against a fixed nonce.
type SignedExtrinsic struct {
	Signer    string `json:"signer"`
	Nonce     uint64 `json:"nonce"`
	Call      Call   `json:"call"`
	Signature string `json:"signature"`
}

type Event struct {
	Section string            `json:"section"`
	Method  string            `json:"method"`
	Data    map[string]string `json:"data"`
}

func (e Event) Is(section, method string) bool {
	return e.Section == section && e.Method == method
}

type Inclusion struct {
	Hash        string  `json:"hash"`
	BlockHash   string  `json:"blockHash"`
	BlockNumber uint64  `json:"blockNumber"`
	Events      []Event `json:"events"`
}

type gatewayError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		BlockHash string `json:"blockHash"`
	} `json:"error"`
}

type nonceResponse struct {
	Nonce uint64 `json:"nonce"`
}

type balanceResponse struct {
	Free string `json:"free"`
}

type payloadResponse struct {
	Payload string `json:"payload"`
}

type headResponse struct {
	Number uint64 `json:"number"`
}

type eventsResponse struct {
	Events []Event `json:"events"`
}

type queryResponse struct {
	Output string `json:"output"`
}
