package brla

import (
	"errors"
)

var (
	// ErrFeedUnavailable covers transport failures and 5xx from the event feed; callers retry.
	ErrFeedUnavailable = errors.New("brla event feed unavailable")
	ErrUserNotFound    = errors.New("brla subaccount not found")
	ErrPayoutRejected  = errors.New("brla payout rejected")
)
