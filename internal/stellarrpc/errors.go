package stellarrpc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stellar/go/clients/horizonclient"
)

// ErrBadSequence means the envelope's sequence was already consumed, which for the pre-signed
// payout and merge means a previous attempt went through.
var ErrBadSequence = errors.New("stellar transaction sequence already used")

// RejectedError is any other horizon rejection.
type RejectedError struct {
	Code       string
	Operations []string
}

func (e *RejectedError) Error() string {
	if len(e.Operations) == 0 {
		return fmt.Sprintf("stellar transaction rejected: %s", e.Code)
	}
	return fmt.Sprintf("stellar transaction rejected: %s (%s)", e.Code, strings.Join(e.Operations, ","))
}

// classifySubmitError reads horizon result codes; transport errors pass through untouched.
func classifySubmitError(err error) error {
	var hErr *horizonclient.Error
	if !errors.As(err, &hErr) {
		return err
	}
	codes, codeErr := hErr.ResultCodes()
	if codeErr != nil || codes == nil {
		return &RejectedError{Code: hErr.Problem.Title}
	}
	if codes.TransactionCode == "tx_bad_seq" {
		return fmt.Errorf("%w: %s", ErrBadSequence, codes.TransactionCode)
	}
	return &RejectedError{Code: codes.TransactionCode, Operations: codes.OperationCodes}
}
