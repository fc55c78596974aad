package evmrpc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNonceTooLow  = errors.New("nonce too low")
	ErrAlreadyKnown = errors.New("transaction already known")
	ErrReverted     = errors.New("transaction reverted")
)

// classifySendError maps txpool rejection text onto typed errors.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "nonce too low"):
		return fmt.Errorf("%w: %s", ErrNonceTooLow, err.Error())
	case strings.Contains(msg, "already known"), strings.Contains(msg, "already imported"):
		return fmt.Errorf("%w: %s", ErrAlreadyKnown, err.Error())
	}
	return err
}
