package consts

import "time"

const (
	// FailureTimeoutWindow is how long transient errors are retried before a phase records a failure.
	FailureTimeoutWindow  = 10 * time.Minute
	RecoveryTimeoutWindow = 5 * time.Minute
	TransientRetryDelay   = 30 * time.Second

	// RedeemExecutionTimeout bounds the wait for the spacewalk ExecuteRedeem event.
	RedeemExecutionTimeout = 10 * time.Minute
	// StellarPaymentTimeout is the max time bound baked into the pre-signed Stellar transactions.
	StellarPaymentTimeout = 7 * 24 * time.Hour

	DefaultPollInterval = 6 * time.Second

	// BRLAClockSkew is subtracted from the event cutoff of a BRLA request. BRLA stamps events with
	// its own clock when it accepts the request, before the response reaches us.
	BRLAClockSkew = 2 * time.Minute
)

const (
	ChainPendulum = "pendulum"
	ChainAssetHub = "assethub"
	ChainMoonbeam = "moonbeam"
	ChainStellar  = "stellar"
	ChainBRLA     = "brla"
)

// RampTickJob is the background job that resumes active sessions.
const RampTickJob = "ramp_tick"
