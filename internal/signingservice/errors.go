package signingservice

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrSubsidyCapExceeded = errors.New("subsidy exceeds the per-asset cap")
	ErrUnauthorized       = errors.New("signing service rejected credentials")
	ErrInvalidRequest     = errors.New("signing service rejected request")
)

func classifyResponse(status int, body errorResponse) error {
	switch {
	case body.Code == "subsidy_cap_exceeded":
		return fmt.Errorf("%w: %s", ErrSubsidyCapExceeded, body.Message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: %s %s", ErrInvalidRequest, body.Code, body.Message)
	}
	return fmt.Errorf("signing service status %d: %s", status, body.Message)
}
