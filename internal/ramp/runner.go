package ramp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/monitoring"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

const leaseKeyPrefix = "ramp:lease:"

type RunnerConfig struct {
	LeaseTTL time.Duration
}

// Runner drives every active session on its own goroutine. Tick is meant to be scheduled
// periodically; a session whose task ended (restart, not ready, crash) is picked up again there.
type Runner struct {
	engine  *Engine
	locker  ILocker
	auditor IAuditor
	logger  *logger.Logger
	metrics *monitoring.RampMetrics
	cfg     RunnerConfig

	mu      sync.Mutex
	baseCtx context.Context
	stop    context.CancelFunc
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewRunner(engine *Engine, locker ILocker, auditor IAuditor, logger *logger.Logger, metrics *monitoring.RampMetrics, cfg RunnerConfig) *Runner {
	baseCtx, stop := context.WithCancel(context.Background())
	return &Runner{
		engine:  engine,
		locker:  locker,
		auditor: auditor,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		baseCtx: baseCtx,
		stop:    stop,
		running: map[string]context.CancelFunc{},
	}
}

// Tick starts a task for each active session that is not already running in this process.
func (r *Runner) Tick(ctx context.Context) error {
	states, err := r.engine.Repository().ListActive(ctx)
	if err != nil {
		return err
	}
	for _, state := range states {
		r.Kick(state.SessionID)
	}
	return nil
}

// Kick starts the session task unless one is already running. It returns immediately.
func (r *Runner) Kick(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.baseCtx.Err() != nil {
		return
	}
	if _, ok := r.running[sessionID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(r.baseCtx)
	r.running[sessionID] = cancel
	r.wg.Add(1)
	r.metrics.SessionStarted()

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.running, sessionID)
			r.mu.Unlock()
			r.metrics.SessionStopped()
			r.wg.Done()
		}()
		r.runSession(ctx, sessionID)
	}()
}

// Cancel stops the session task if it runs in this process.
func (r *Runner) Cancel(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.running[sessionID]; ok {
		cancel()
	}
}

// Active returns how many session tasks run in this process.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// Stop cancels every session task and waits for them to return.
func (r *Runner) Stop() {
	r.stop()
	r.wg.Wait()
}

func (r *Runner) runSession(ctx context.Context, sessionID string) {
	l := r.logger.With(map[string]string{"session_id": sessionID})

	lease, err := r.locker.Acquire(ctx, leaseKeyPrefix+sessionID, r.cfg.LeaseTTL)
	if err != nil {
		if !errors.Is(err, ErrSessionBusy) {
			l.Error("[Runner.runSession] failed to acquire lease", map[string]string{"error": err.Error()})
		}
		return
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			l.Error("[Runner.runSession] failed to release lease", map[string]string{"error": err.Error()})
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.keepAlive(ctx, cancel, lease, l)

	for {
		state, err := r.engine.Repository().Load(ctx, sessionID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
				l.Error("[Runner.runSession] failed to load state", map[string]string{"error": err.Error()})
			}
			return
		}

		next, err := r.engine.Advance(ctx, state)
		switch {
		case errors.Is(err, ErrRestartRequired):
			// returning cancels ctx, which tears down every poll the handler left behind
			return
		case err != nil:
			if ctx.Err() == nil {
				l.Error("[Runner.runSession] advance failed", map[string]string{"error": err.Error()})
			}
			return
		case next == nil:
			return
		case next.IsTerminal():
			r.finish(ctx, next, l)
			return
		case next.IsFailed():
			l.Error("[Runner.runSession] flow halted", map[string]string{
				"phase":        string(next.Phase),
				"failure_kind": string(next.Failure.Kind),
			})
			return
		case next.Phase == state.Phase:
			// still waiting on something external
			return
		}
	}
}

func (r *Runner) finish(ctx context.Context, state *model.RampState, l *logger.Logger) {
	r.auditor.Post(ctx, "ramp.completed", state.Redacted())
	r.metrics.RecordCompletion(string(state.FlowType))

	if err := r.engine.Repository().Clear(ctx, state.SessionID); err != nil {
		l.Error("[Runner.finish] failed to clear completed flow", map[string]string{"error": err.Error()})
		return
	}
	l.Info("[Runner.finish] flow completed", map[string]string{"flow_type": string(state.FlowType)})
}

func (r *Runner) keepAlive(ctx context.Context, cancel context.CancelFunc, lease ILease, l *logger.Logger) {
	interval := r.cfg.LeaseTTL / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lease.Refresh(ctx); err != nil {
				if ctx.Err() == nil {
					l.Error("[Runner.keepAlive] lease lost", map[string]string{"error": err.Error()})
				}
				cancel()
				return
			}
		}
	}
}
