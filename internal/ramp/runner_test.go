package ramp_test

import (
	"context"
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

type recordingAuditor struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAuditor) Post(_ context.Context, event string, _ interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAuditor) Events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

var _ = Describe("Runner", func() {
	var (
		ctx     context.Context
		repo    *ramp.MemoryRepository
		locker  *ramp.MemoryLocker
		auditor *recordingAuditor
		table   ramp.DispatchTable
		runner  *ramp.Runner
	)

	newRunner := func() {
		l := logger.New(environments.Test)
		metrics := monitoring.NewRampMetrics()
		engine := ramp.NewEngine(repo, table, clock.New(), ramp.EngineConfig{
			FailureTimeout:  10 * time.Minute,
			RecoveryTimeout: 5 * time.Minute,
		}, l, metrics)
		runner = ramp.NewRunner(engine, locker, auditor, l, metrics, ramp.RunnerConfig{LeaseTTL: time.Minute})
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = ramp.NewMemoryRepository()
		locker = ramp.NewMemoryLocker(clock.New())
		auditor = &recordingAuditor{}
		table = advancingTable()
	})

	AfterEach(func() {
		runner.Stop()
	})

	It("drives a flow to success, audits it and clears it", func() {
		newRunner()
		state := newState("run-1", model.PhasePrepareTransactions)
		state.FailureTimeoutAt = time.Now().Add(10 * time.Minute)
		Expect(repo.Save(ctx, state)).To(Succeed())

		Expect(runner.Tick(ctx)).To(Succeed())

		Eventually(func() error {
			_, err := repo.Load(ctx, "run-1")
			return err
		}, 5*time.Second, 10*time.Millisecond).Should(MatchError(ramp.ErrNotFound))
		Eventually(auditor.Events, time.Second, 10*time.Millisecond).Should(ContainElement("ramp.completed"))
		Eventually(runner.Active, time.Second, 10*time.Millisecond).Should(BeZero())
	})

	It("stops at a waiting phase and resumes on a later tick", func() {
		var mu sync.Mutex
		ready := false
		table[model.FamilyRouter][model.PhaseSquidRouter] = func(_ context.Context, s *model.RampState) (*model.RampState, error) {
			mu.Lock()
			defer mu.Unlock()
			if !ready {
				return nil, ramp.ErrNotReady
			}
			s.Phase = model.PhasePendulumFundEphemeral
			return s, nil
		}
		newRunner()

		state := newState("run-2", model.PhaseSquidRouter)
		state.FailureTimeoutAt = time.Now().Add(10 * time.Minute)
		Expect(repo.Save(ctx, state)).To(Succeed())

		Expect(runner.Tick(ctx)).To(Succeed())
		Consistently(func() model.Phase {
			s, err := repo.Load(ctx, "run-2")
			if err != nil {
				return ""
			}
			return s.Phase
		}, 100*time.Millisecond, 10*time.Millisecond).Should(Equal(model.PhaseSquidRouter))

		mu.Lock()
		ready = true
		mu.Unlock()

		Eventually(func() error {
			Expect(runner.Tick(ctx)).To(Succeed())
			_, err := repo.Load(ctx, "run-2")
			return err
		}, 5*time.Second, 20*time.Millisecond).Should(MatchError(ramp.ErrNotFound))
	})

	It("leaves failed flows alone", func() {
		newRunner()
		state := newState("run-3", model.PhaseNablaSwap)
		state.Failure = &model.Failure{Kind: model.FailureRecoverable, Message: "timeout"}
		Expect(repo.Save(ctx, state)).To(Succeed())

		Expect(runner.Tick(ctx)).To(Succeed())
		Consistently(func() *model.Failure {
			s, err := repo.Load(ctx, "run-3")
			Expect(err).NotTo(HaveOccurred())
			return s.Failure
		}, 100*time.Millisecond, 10*time.Millisecond).ShouldNot(BeNil())
		Expect(auditor.Events()).To(BeEmpty())
	})

	It("skips a session whose lease is held elsewhere", func() {
		newRunner()
		lease, err := locker.Acquire(ctx, "ramp:lease:run-4", time.Minute)
		Expect(err).NotTo(HaveOccurred())
		defer lease.Release(ctx)

		state := newState("run-4", model.PhasePrepareTransactions)
		state.FailureTimeoutAt = time.Now().Add(10 * time.Minute)
		Expect(repo.Save(ctx, state)).To(Succeed())

		Expect(runner.Tick(ctx)).To(Succeed())
		Consistently(func() model.Phase {
			s, err := repo.Load(ctx, "run-4")
			Expect(err).NotTo(HaveOccurred())
			return s.Phase
		}, 100*time.Millisecond, 10*time.Millisecond).Should(Equal(model.PhasePrepareTransactions))
	})
})

var _ = Describe("MemoryLocker", func() {
	It("hands out one lease per key until it expires or is released", func() {
		ctx := context.Background()
		mockClock := clock.NewMock()
		locker := ramp.NewMemoryLocker(mockClock)

		lease, err := locker.Acquire(ctx, "k", time.Minute)
		Expect(err).NotTo(HaveOccurred())

		_, err = locker.Acquire(ctx, "k", time.Minute)
		Expect(err).To(MatchError(ramp.ErrSessionBusy))

		mockClock.Add(2 * time.Minute)
		second, err := locker.Acquire(ctx, "k", time.Minute)
		Expect(err).NotTo(HaveOccurred())

		Expect(lease.Refresh(ctx)).To(MatchError(ramp.ErrSessionBusy))
		Expect(lease.Release(ctx)).To(Succeed())

		_, err = locker.Acquire(ctx, "k", time.Minute)
		Expect(err).To(MatchError(ramp.ErrSessionBusy))

		Expect(second.Release(ctx)).To(Succeed())
		_, err = locker.Acquire(ctx, "k", time.Minute)
		Expect(err).NotTo(HaveOccurred())
	})
})
