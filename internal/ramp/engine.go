package ramp

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/facebookgo/clock"
	pkgerrors "github.com/pkg/errors"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/monitoring"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

type EngineConfig struct {
	// RetryDelay is waited before a transient error asks for a restart.
	RetryDelay time.Duration
	// FailureTimeout is the transient window granted each time a flow enters a new phase.
	FailureTimeout time.Duration
	// RecoveryTimeout is the transient window granted after an explicit recovery.
	RecoveryTimeout time.Duration
}

// Engine advances persisted ramp states one phase at a time. It holds no per-flow state of its
// own, so any number of sessions may be advanced concurrently through one Engine.
type Engine struct {
	repo     IRepository
	dispatch DispatchTable
	clock    clock.Clock
	cfg      EngineConfig
	logger   *logger.Logger
	metrics  *monitoring.RampMetrics
}

func NewEngine(repo IRepository, dispatch DispatchTable, clk clock.Clock, cfg EngineConfig, logger *logger.Logger, metrics *monitoring.RampMetrics) *Engine {
	return &Engine{
		repo:     repo,
		dispatch: dispatch,
		clock:    clk,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

func (e *Engine) Repository() IRepository {
	return e.repo
}

func (e *Engine) Now() time.Time {
	return e.clock.Now().UTC()
}

// Validate checks the dispatch table covers every flow type. Call it once at startup.
func (e *Engine) Validate() error {
	return e.dispatch.Validate()
}

// Advance runs the handler for the state's current phase once and persists the outcome.
//
// Terminal and failed states are returned unchanged. A handler error inside the failure window
// yields ErrRestartRequired after RetryDelay; past the window it becomes a recoverable failure.
func (e *Engine) Advance(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	if state == nil {
		return nil, nil
	}
	if state.IsTerminal() || state.IsFailed() {
		return state, nil
	}

	handler, err := e.dispatch.Lookup(state.FlowType, state.Phase)
	if err != nil {
		e.logger.Error("[Engine.Advance] dispatch lookup failed", map[string]string{
			"session_id": state.SessionID,
			"flow_type":  string(state.FlowType),
			"phase":      string(state.Phase),
		})
		return state, err
	}

	current := state.Clone()
	current.InProgress = true
	current.UpdatedAt = e.Now()
	if err := e.repo.Save(ctx, current); err != nil {
		return state, pkgerrors.Wrap(err, "mark in progress")
	}

	started := e.clock.Now()
	next, handlerErr := handler(ctx, current.Clone())
	elapsed := e.clock.Now().Sub(started).Seconds()

	if handlerErr == nil {
		handlerErr = e.checkTransition(current, next)
	}
	if handlerErr == nil {
		return e.commit(ctx, current, next, elapsed)
	}

	return e.handleError(ctx, current, handlerErr, elapsed)
}

func (e *Engine) commit(ctx context.Context, current, next *model.RampState, elapsed float64) (*model.RampState, error) {
	now := e.Now()
	next.InProgress = false
	next.UpdatedAt = now

	result := "waiting"
	if next.Phase != current.Phase {
		result = "advanced"
		next.FailureTimeoutAt = now.Add(e.cfg.FailureTimeout)
		e.logger.Info("[Engine.Advance] phase advanced", map[string]string{
			"session_id": next.SessionID,
			"from":       string(current.Phase),
			"to":         string(next.Phase),
		})
	}
	e.metrics.ObservePhase(string(current.FlowType), string(current.Phase), result, elapsed)

	if err := e.repo.Save(ctx, next); err != nil {
		return current, pkgerrors.Wrap(err, "persist advanced state")
	}
	return next, nil
}

func (e *Engine) handleError(ctx context.Context, current *model.RampState, handlerErr error, elapsed float64) (*model.RampState, error) {
	flowType, phase := string(current.FlowType), string(current.Phase)
	fields := map[string]string{
		"session_id": current.SessionID,
		"flow_type":  flowType,
		"phase":      phase,
		"error":      handlerErr.Error(),
	}

	switch {
	case errors.Is(handlerErr, ErrNotReady):
		e.logger.Debug("[Engine.Advance] phase not ready", fields)
		e.metrics.ObservePhase(flowType, phase, "waiting", elapsed)
		return e.release(ctx, current)

	case ctx.Err() != nil:
		// the session task was cancelled, not the phase
		e.logger.Info("[Engine.Advance] advance cancelled", fields)
		return current, ctx.Err()

	case IsUnrecoverable(handlerErr):
		e.logger.Error("[Engine.Advance] unrecoverable failure", fields)
		e.metrics.ObservePhase(flowType, phase, "failed", elapsed)
		return e.fail(ctx, current, model.FailureUnrecoverable, handlerErr)

	case e.Now().Before(current.FailureTimeoutAt):
		e.logger.Info("[Engine.Advance] transient error, restarting", fields)
		e.metrics.ObservePhase(flowType, phase, "retry", elapsed)
		e.metrics.RecordRestart(flowType, phase)
		if _, err := e.release(ctx, current); err != nil {
			return current, err
		}
		if err := e.sleep(ctx, e.cfg.RetryDelay); err != nil {
			return current, err
		}
		return current, fmt.Errorf("%w: %v", ErrRestartRequired, handlerErr)

	default:
		e.logger.Error("[Engine.Advance] failure timeout reached", fields)
		e.metrics.ObservePhase(flowType, phase, "failed", elapsed)
		return e.fail(ctx, current, model.FailureRecoverable, handlerErr)
	}
}

func (e *Engine) release(ctx context.Context, current *model.RampState) (*model.RampState, error) {
	current.InProgress = false
	if err := e.repo.Save(ctx, current); err != nil {
		return current, pkgerrors.Wrap(err, "release in progress marker")
	}
	return current, nil
}

func (e *Engine) fail(ctx context.Context, current *model.RampState, kind model.FailureKind, cause error) (*model.RampState, error) {
	now := e.Now()
	failed := current.Clone()
	failed.InProgress = false
	failed.UpdatedAt = now
	failed.Failure = &model.Failure{
		Kind:    kind,
		Message: cause.Error(),
		Phase:   current.Phase,
		At:      now,
	}
	e.metrics.RecordFailure(string(current.FlowType), string(current.Phase), string(kind))

	if err := e.repo.Save(ctx, failed); err != nil {
		return current, pkgerrors.Wrap(err, "persist failure")
	}
	return failed, nil
}

// checkTransition rejects handler results that break the phase order or rewrite the bundle.
func (e *Engine) checkTransition(current, next *model.RampState) error {
	if next == nil {
		return Unrecoverablef("handler for %s returned no state", current.Phase)
	}
	if next.SessionID != current.SessionID || next.FlowType != current.FlowType {
		return Unrecoverablef("handler for %s changed flow identity", current.Phase)
	}
	from := model.PhaseIndex(current.FlowType, current.Phase)
	to := model.PhaseIndex(next.FlowType, next.Phase)
	if to < 0 || to < from || to > from+1 {
		return Unrecoverablef("illegal transition %s -> %s for %s", current.Phase, next.Phase, current.FlowType)
	}
	if current.HasTransactions() && !reflect.DeepEqual(current.Transactions, next.Transactions) {
		return Unrecoverablef("handler for %s modified the prepared transactions", current.Phase)
	}
	return nil
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.After(d):
		return nil
	}
}

// RecoverFromFailure clears a recoverable failure so the next Advance retries the same phase.
// Non-failed states are returned unchanged. Unrecoverable failures cannot be recovered.
func (e *Engine) RecoverFromFailure(ctx context.Context, state *model.RampState) (*model.RampState, error) {
	if state == nil || !state.IsFailed() {
		return state, nil
	}
	if state.Failure.Kind == model.FailureUnrecoverable {
		return state, ErrNotRecoverable
	}

	now := e.Now()
	recovered := state.Clone()
	recovered.Failure = nil
	recovered.InProgress = false
	recovered.FailureTimeoutAt = now.Add(e.cfg.RecoveryTimeout)
	recovered.UpdatedAt = now
	if err := e.repo.Save(ctx, recovered); err != nil {
		return state, pkgerrors.Wrap(err, "persist recovery")
	}

	e.logger.Info("[Engine.RecoverFromFailure] failure cleared", map[string]string{
		"session_id": state.SessionID,
		"phase":      string(state.Phase),
	})
	return recovered, nil
}
