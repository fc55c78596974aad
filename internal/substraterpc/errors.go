package substraterpc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAmountExceedsBalance is returned when a redeem or transfer asks for more than the account holds.
	ErrAmountExceedsBalance = errors.New("amount exceeds user balance")
	// ErrNonceTooLow means an extrinsic with this nonce was already applied.
	ErrNonceTooLow          = errors.New("extrinsic nonce already used")
	// ErrAlreadyInPool means the same extrinsic is waiting in the pool.
	ErrAlreadyInPool        = errors.New("extrinsic already in pool")
	ErrDispatchFailed       = errors.New("extrinsic dispatch failed")
)

// AlreadyIncludedError reports an extrinsic the node already included in BlockHash.
type AlreadyIncludedError struct {
	BlockHash string
}

func (e *AlreadyIncludedError) Error() string {
	return fmt.Sprintf("extrinsic already included in block %s", e.BlockHash)
}

// classifyGatewayError is the only place node and pallet error text is interpreted.
func classifyGatewayError(status int, body gatewayError) error {
	code := body.Error.Code
	msg := body.Error.Message
	lower := strings.ToLower(code + " " + msg)

	switch {
	case strings.Contains(lower, "amountexceedsuserbalance"), strings.Contains(lower, "balancetoolow"):
		return fmt.Errorf("%w: %s", ErrAmountExceedsBalance, msg)
	case body.Error.BlockHash != "" && (strings.Contains(lower, "alreadyincluded") || strings.Contains(lower, "already imported")):
		return &AlreadyIncludedError{BlockHash: body.Error.BlockHash}
	case strings.Contains(lower, "stale"), strings.Contains(lower, "outdated"):
		return fmt.Errorf("%w: %s", ErrNonceTooLow, msg)
	case strings.Contains(lower, "already imported"), strings.Contains(lower, "priority is too low"):
		return fmt.Errorf("%w: %s", ErrAlreadyInPool, msg)
	case strings.Contains(lower, "dispatch"):
		return fmt.Errorf("%w: %s %s", ErrDispatchFailed, code, msg)
	}

	return fmt.Errorf("gateway error status %d: %s %s", status, code, msg)
}
