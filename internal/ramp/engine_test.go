package ramp_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/monitoring"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/types/environments"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// advancingTable maps every phase of every flow to a handler that moves to the successor.
func advancingTable() ramp.DispatchTable {
	table := ramp.DispatchTable{}
	for _, flowType := range model.FlowTypes() {
		family := flowType.Family()
		if table[family] == nil {
			table[family] = map[model.Phase]ramp.HandlerFunc{}
		}
		for _, phase := range flowType.Phases() {
			if phase.IsTerminal() {
				continue
			}
			table[family][phase] = func(_ context.Context, s *model.RampState) (*model.RampState, error) {
				next, err := model.NextPhase(s.FlowType, s.Phase)
				if err != nil {
					return nil, err
				}
				s.Phase = next
				return s, nil
			}
		}
	}
	return table
}

func newState(sessionID string, phase model.Phase) *model.RampState {
	return &model.RampState{
		SessionID:        sessionID,
		FlowType:         model.FlowEVMToStellar,
		Network:          model.NetworkPolygon,
		Phase:            phase,
		CreatedAt:        t0,
		UpdatedAt:        t0,
		FailureTimeoutAt: t0.Add(10 * time.Minute),
	}
}

var _ = Describe("Engine", func() {
	var (
		ctx       context.Context
		mockClock *clock.Mock
		repo      *ramp.MemoryRepository
		table     ramp.DispatchTable
		engine    *ramp.Engine
		calls     int
	)

	cfg := ramp.EngineConfig{
		RetryDelay:      0,
		FailureTimeout:  10 * time.Minute,
		RecoveryTimeout: 5 * time.Minute,
	}

	build := func() {
		engine = ramp.NewEngine(repo, table, mockClock, cfg, logger.New(environments.Test), monitoring.NewRampMetrics())
	}

	setHandler := func(phase model.Phase, fn ramp.HandlerFunc) {
		table[model.FamilyRouter][phase] = func(ctx context.Context, s *model.RampState) (*model.RampState, error) {
			calls++
			return fn(ctx, s)
		}
		build()
	}

	BeforeEach(func() {
		ctx = context.Background()
		mockClock = clock.NewMock()
		mockClock.Add(t0.Sub(mockClock.Now()))
		repo = ramp.NewMemoryRepository()
		table = advancingTable()
		calls = 0
		build()
	})

	Describe("Validate", func() {
		It("accepts a table covering every flow", func() {
			Expect(engine.Validate()).To(Succeed())
		})

		It("reports a missing phase", func() {
			delete(table[model.FamilyOnramp], model.PhaseBrlaTeleport)
			err := engine.Validate()
			Expect(errors.Is(err, ramp.ErrUnknownPhase)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("brl-to-evm/brlaTeleport"))
		})
	})

	Describe("Advance", func() {
		It("returns nil for a nil state", func() {
			next, err := engine.Advance(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(BeNil())
		})

		It("is a no-op on a terminal state, twice in a row", func() {
			setHandler(model.PhaseStellarCleanup, func(_ context.Context, s *model.RampState) (*model.RampState, error) {
				return s, nil
			})
			state := newState("s-1", model.PhaseSuccess)

			first, err := engine.Advance(ctx, state)
			Expect(err).NotTo(HaveOccurred())
			second, err := engine.Advance(ctx, first)
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(BeIdenticalTo(state))
			Expect(calls).To(Equal(0))
			_, err = repo.Load(ctx, "s-1")
			Expect(err).To(MatchError(ramp.ErrNotFound))
		})

		It("is a no-op on a failed state", func() {
			setHandler(model.PhaseNablaSwap, func(_ context.Context, s *model.RampState) (*model.RampState, error) {
				return s, nil
			})
			state := newState("s-2", model.PhaseNablaSwap)
			state.Failure = &model.Failure{Kind: model.FailureRecoverable, Message: "boom"}

			first, _ := engine.Advance(ctx, state)
			second, err := engine.Advance(ctx, first)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeIdenticalTo(state))
			Expect(calls).To(Equal(0))
		})

		It("advances, persists and refreshes the failure window", func() {
			mockClock.Add(3 * time.Minute)
			state := newState("s-3", model.PhaseNablaApprove)

			next, err := engine.Advance(ctx, state)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Phase).To(Equal(model.PhaseNablaSwap))
			Expect(next.InProgress).To(BeFalse())
			Expect(next.FailureTimeoutAt).To(BeTemporally("==", t0.Add(13*time.Minute)))

			stored, err := repo.Load(ctx, "s-3")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Phase).To(Equal(model.PhaseNablaSwap))
		})

		It("persists the in-progress marker before running the handler", func() {
			var seen bool
			setHandler(model.PhaseNablaApprove, func(ctx context.Context, s *model.RampState) (*model.RampState, error) {
				stored, err := repo.Load(ctx, s.SessionID)
				Expect(err).NotTo(HaveOccurred())
				seen = stored.InProgress
				return s, nil
			})

			next, err := engine.Advance(ctx, newState("s-4", model.PhaseNablaApprove))
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(BeTrue())
			Expect(next.InProgress).To(BeFalse())
		})

		It("does not let a failing handler leak edits into the state", func() {
			setHandler(model.PhaseNablaApprove, func(_ context.Context, s *model.RampState) (*model.RampState, error) {
				s.RedeemRequestID = "leaked"
				return nil, ramp.ErrNotReady
			})

			next, err := engine.Advance(ctx, newState("s-5", model.PhaseNablaApprove))
			Expect(err).NotTo(HaveOccurred())
			Expect(next.RedeemRequestID).To(BeEmpty())
		})

		It("returns the state unchanged when not ready", func() {
			setHandler(model.PhaseSquidRouter, func(_ context.Context, _ *model.RampState) (*model.RampState, error) {
				return nil, ramp.ErrNotReady
			})
			mockClock.Add(time.Hour)

			next, err := engine.Advance(ctx, newState("s-6", model.PhaseSquidRouter))
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Phase).To(Equal(model.PhaseSquidRouter))
			Expect(next.Failure).To(BeNil())
		})

		It("retries silently inside the window and fails recoverably after it", func() {
			transient := errors.New("node unreachable")
			setHandler(model.PhaseNablaSwap, func(_ context.Context, _ *model.RampState) (*model.RampState, error) {
				return nil, transient
			})
			state := newState("s-7", model.PhaseNablaSwap)

			mockClock.Add(t0.Add(2 * time.Minute).Sub(mockClock.Now()))
			next, err := engine.Advance(ctx, state)
			Expect(errors.Is(err, ramp.ErrRestartRequired)).To(BeTrue())
			Expect(next.Failure).To(BeNil())

			stored, err := repo.Load(ctx, "s-7")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Failure).To(BeNil())

			mockClock.Add(t0.Add(11 * time.Minute).Sub(mockClock.Now()))
			next, err = engine.Advance(ctx, stored)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Failure).NotTo(BeNil())
			Expect(next.Failure.Kind).To(Equal(model.FailureRecoverable))
			Expect(next.Failure.Message).To(ContainSubstring("node unreachable"))
			Expect(next.Phase).To(Equal(model.PhaseNablaSwap))

			stored, err = repo.Load(ctx, "s-7")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Failure.Kind).To(Equal(model.FailureRecoverable))
		})

		It("records unrecoverable errors immediately", func() {
			setHandler(model.PhaseStellarPayment, func(_ context.Context, _ *model.RampState) (*model.RampState, error) {
				return nil, ramp.Unrecoverablef("tx_failed")
			})

			next, err := engine.Advance(ctx, newState("s-8", model.PhaseStellarPayment))
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Failure.Kind).To(Equal(model.FailureUnrecoverable))
		})

		It("treats a missing handler as fatal", func() {
			delete(table[model.FamilyRouter], model.PhaseNablaSwap)
			build()

			_, err := engine.Advance(ctx, newState("s-9", model.PhaseNablaSwap))
			Expect(errors.Is(err, ramp.ErrUnknownPhase)).To(BeTrue())
		})

		It("rejects a handler that skips phases", func() {
			setHandler(model.PhaseNablaApprove, func(_ context.Context, s *model.RampState) (*model.RampState, error) {
				s.Phase = model.PhaseSpacewalkRedeem
				return s, nil
			})

			next, err := engine.Advance(ctx, newState("s-10", model.PhaseNablaApprove))
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Failure.Kind).To(Equal(model.FailureUnrecoverable))
		})

		It("rejects a handler that rewrites prepared transactions", func() {
			setHandler(model.PhaseNablaApprove, func(_ context.Context, s *model.RampState) (*model.RampState, error) {
				s.Transactions[model.TxNablaApprove] = "rewritten"
				s.Phase = model.PhaseNablaSwap
				return s, nil
			})
			state := newState("s-11", model.PhaseNablaApprove)
			state.Transactions = model.TransactionBundle{model.TxNablaApprove: "original"}

			next, err := engine.Advance(ctx, state)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Failure.Kind).To(Equal(model.FailureUnrecoverable))
			Expect(next.Transactions[model.TxNablaApprove]).To(Equal("original"))
		})

		It("waits the retry delay on the engine clock", func() {
			table[model.FamilyRouter][model.PhaseNablaSwap] = func(_ context.Context, _ *model.RampState) (*model.RampState, error) {
				return nil, errors.New("flaky")
			}
			engine = ramp.NewEngine(repo, table, mockClock, ramp.EngineConfig{
				RetryDelay:     30 * time.Second,
				FailureTimeout: 10 * time.Minute,
			}, logger.New(environments.Test), monitoring.NewRampMetrics())

			var (
				mu     sync.Mutex
				result error
				done   bool
			)
			go func() {
				_, err := engine.Advance(ctx, newState("s-12", model.PhaseNablaSwap))
				mu.Lock()
				result, done = err, true
				mu.Unlock()
			}()

			Eventually(func() bool {
				mockClock.Add(time.Second)
				mu.Lock()
				defer mu.Unlock()
				return done
			}, 5*time.Second, 10*time.Millisecond).Should(BeTrue())
			Expect(errors.Is(result, ramp.ErrRestartRequired)).To(BeTrue())
		})
	})

	Describe("RecoverFromFailure", func() {
		It("returns a non-failed state unchanged", func() {
			state := newState("r-1", model.PhaseNablaSwap)
			next, err := engine.RecoverFromFailure(ctx, state)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(BeIdenticalTo(state))
		})

		It("clears a recoverable failure and keeps the phase", func() {
			mockClock.Add(t0.Add(time.Hour).Sub(mockClock.Now()))
			state := newState("r-2", model.PhaseNablaSwap)
			state.Failure = &model.Failure{Kind: model.FailureRecoverable, Message: "timeout"}

			next, err := engine.RecoverFromFailure(ctx, state)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Failure).To(BeNil())
			Expect(next.Phase).To(Equal(model.PhaseNablaSwap))
			Expect(next.FailureTimeoutAt).To(BeTemporally("==", t0.Add(time.Hour+5*time.Minute)))

			advanced, err := engine.Advance(ctx, next)
			Expect(err).NotTo(HaveOccurred())
			Expect(advanced.Phase).To(Equal(model.PhaseSubsidizePostSwap))
		})

		It("refuses an unrecoverable failure", func() {
			state := newState("r-3", model.PhaseStellarPayment)
			state.Failure = &model.Failure{Kind: model.FailureUnrecoverable, Message: "tx_failed"}

			next, err := engine.RecoverFromFailure(ctx, state)
			Expect(err).To(MatchError(ramp.ErrNotRecoverable))
			Expect(next.Failure).NotTo(BeNil())
		})
	})
})
