package ramp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady means a precondition outside the engine is missing. The state is returned unchanged
	// and the flow is retried on a later tick without touching the failure timeout.
	ErrNotReady = errors.New("ramp not ready")
	// ErrRestartRequired is returned by Advance for a transient error inside the failure window.
	// The caller must tear down the session task and start again from persisted state.
	ErrRestartRequired = errors.New("transient error, restart required")
	ErrUnknownPhase    = errors.New("no handler for phase")
	ErrSessionBusy     = errors.New("session is being advanced elsewhere")
	ErrNotFound        = errors.New("ramp state not found")
	ErrActiveFlow      = errors.New("session already has an active flow")
	ErrNotRecoverable  = errors.New("flow failed unrecoverably and must be restarted")
)

// UnrecoverableError marks a handler error that must halt the flow for good.
type UnrecoverableError struct {
	Err error
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("unrecoverable: %v", e.Err)
}

func (e *UnrecoverableError) Unwrap() error {
	return e.Err
}

func Unrecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &UnrecoverableError{Err: err}
}

func Unrecoverablef(format string, args ...interface{}) error {
	return &UnrecoverableError{Err: fmt.Errorf(format, args...)}
}

func IsUnrecoverable(err error) bool {
	var u *UnrecoverableError
	return errors.As(err, &u)
}
