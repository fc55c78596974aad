package pendulum

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// parseUint accepts the gateway's numeric encodings: a JSON number, a decimal string or a 0x hex string.
func parseUint(raw json.RawMessage) (*big.Int, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	text = strings.ReplaceAll(text, ",", "")

	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(text, "0x") {
		_, ok = n.SetString(text[2:], 16)
	} else {
		_, ok = n.SetString(text, 10)
	}
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("malformed contract output %s", string(raw))
	}
	return n, nil
}

// parseFirstUint reads element 0 of a tuple output such as [amountOut, swapFee].
func parseFirstUint(raw json.RawMessage) (*big.Int, error) {
	var tuple []json.RawMessage
	if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) == 0 {
		return parseUint(raw)
	}
	return parseUint(tuple[0])
}
