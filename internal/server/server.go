package server

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookgo/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/pendulum-chain/vortex-sub005/internal/anchor"
	"github.com/pendulum-chain/vortex-sub005/internal/brla"
	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/controller"
	"github.com/pendulum-chain/vortex-sub005/internal/evmrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/handler"
	"github.com/pendulum-chain/vortex-sub005/internal/monitoring"
	"github.com/pendulum-chain/vortex-sub005/internal/pendulum"
	"github.com/pendulum-chain/vortex-sub005/internal/phase"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/signingservice"
	"github.com/pendulum-chain/vortex-sub005/internal/squidrouter"
	"github.com/pendulum-chain/vortex-sub005/internal/stellarrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/store"
	pgstore "github.com/pendulum-chain/vortex-sub005/internal/store/postgres"
	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
	transporthttp "github.com/pendulum-chain/vortex-sub005/internal/transport/http"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/config"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/vault"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/webhook"
)

const (
	lockerPrefix = "vortex:"

	vaultSigningServiceKey = "signing_service_api_key"
	vaultBRLAKey           = "brla_api_key"
)

func Init() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	loadSecrets(appConfig, logger)

	db := pgstore.New(appConfig, logger)
	if err := pgstore.Migrate(db, pgstore.DefaultMigrationDir); err != nil {
		logger.Fatal("[Init][Migrate] failed to run migrations", map[string]string{
			"error": err.Error(),
		})
	}
	s := store.New()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     appConfig.Redis.Addr,
		Password: appConfig.Redis.Password,
		DB:       appConfig.Redis.DB,
	})
	defer redisClient.Close()

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	apiMetrics := monitoring.NewExternalAPIMetrics()
	apiMetrics.MustRegister(registry)
	httpMetrics := monitoring.NewHTTPMetrics()
	httpMetrics.MustRegister(registry)
	jobMetrics := monitoring.NewBackgroundJobMetrics()
	jobMetrics.MustRegister(registry)
	rampMetrics := monitoring.NewRampMetrics()
	rampMetrics.MustRegister(registry)

	timeout := appConfig.Engine.HTTPTimeout

	// collaborators, chain clients behind circuit breakers
	pendulumRPC := monitoring.NewCircuitBreakerSubstrateRPC(
		monitoring.APIPendulumRPC,
		substraterpc.New(consts.ChainPendulum, appConfig.Pendulum.GatewayURL, timeout, logger),
		monitoring.CircuitBreakerConfigs[monitoring.APIPendulumRPC], apiMetrics, logger,
	)
	assetHubRPC := monitoring.NewCircuitBreakerSubstrateRPC(
		monitoring.APIAssetHubRPC,
		substraterpc.New(consts.ChainAssetHub, appConfig.AssetHub.GatewayURL, timeout, logger),
		monitoring.CircuitBreakerConfigs[monitoring.APIAssetHubRPC], apiMetrics, logger,
	)
	moonbeamClient, err := evmrpc.Dial(appConfig.Moonbeam.RPCURL, appConfig.Moonbeam.ChainID, logger)
	if err != nil {
		logger.Fatal("[Init][evmrpc.Dial] failed to dial moonbeam", map[string]string{
			"error": err.Error(),
		})
	}
	moonbeamRPC := monitoring.NewCircuitBreakerEvmRPC(
		moonbeamClient,
		monitoring.CircuitBreakerConfigs[monitoring.APIMoonbeamRPC], apiMetrics, logger,
	)
	signing := monitoring.NewCircuitBreakerSigningService(
		signingservice.New(appConfig.SigningService.URL, appConfig.SigningService.APIKey, appConfig.SigningService.Timeout, logger),
		monitoring.CircuitBreakerConfigs[monitoring.APISigningService], apiMetrics, logger,
	)
	stellar := stellarrpc.New(appConfig.Stellar.HorizonURL, appConfig.Stellar.NetworkPassphrase, timeout, logger)
	squid := squidrouter.New(appConfig.Squid.URL, appConfig.Squid.IntegratorID, timeout, logger)
	brlaClient := brla.New(appConfig.BRLA.URL, appConfig.BRLA.APIKey, timeout, logger)
	anchorClient := anchor.New(timeout)
	auditor := webhook.New(appConfig.AuditWebhookURL, logger)

	fundingMinimum, ok := new(big.Int).SetString(appConfig.Pendulum.FundingMinimumRaw, 10)
	if !ok {
		logger.Fatal("[Init] invalid PENDULUM_FUNDING_MINIMUM_RAW", map[string]string{
			"value": appConfig.Pendulum.FundingMinimumRaw,
		})
	}

	index := phase.NewStoreIndex(db, s)
	clk := clock.New()

	ec := &phase.ExecutionContext{
		Pendulum:  pendulumRPC,
		AssetHub:  assetHubRPC,
		Moonbeam:  moonbeamRPC,
		Stellar:   stellar,
		Signing:   signing,
		Nabla:     pendulum.NewNabla(pendulumRPC, appConfig.Pendulum.NablaRouter, appConfig.Pendulum.FundingAccount),
		Spacewalk: pendulum.NewSpacewalk(appConfig.Pendulum.GatewayURL, timeout),
		Squid:     squid,
		BRLA:      brlaClient,
		Submitted: index,
		UserTxs:   index,
		Auditor:   auditor,
		Clock:     clk,
		Logger:    logger,
		Config: phase.Config{
			PollInterval:              appConfig.Engine.PollInterval,
			PendulumFundingMinimumRaw: fundingMinimum,
			MoonbeamReceiver:          appConfig.Moonbeam.ReceiverContract,
			XTokensPrecompile:         appConfig.Moonbeam.XTokensPrecompile,
			StellarBaseFee:            appConfig.Stellar.BaseFee,
			RedeemTimeout:             appConfig.Engine.RedeemTimeout,
			StellarMaxTime:            appConfig.Engine.StellarMaxTime,
			SwapDeadline:              appConfig.Engine.SwapDeadline,
			MoonbeamGasLimit:          appConfig.Moonbeam.GasLimit,
			XcmWeight:                 appConfig.Moonbeam.XcmWeight,
		},
	}

	engine := ramp.NewEngine(
		ramp.NewStoreRepository(db, s),
		phase.New(ec).Table(),
		clk,
		ramp.EngineConfig{
			RetryDelay:      appConfig.Engine.RetryDelay,
			FailureTimeout:  appConfig.Engine.FailureTimeout,
			RecoveryTimeout: appConfig.Engine.RecoveryTimeout,
		},
		logger,
		rampMetrics,
	)
	if err := engine.Validate(); err != nil {
		logger.Fatal("[Init][Engine.Validate] incomplete dispatch table", map[string]string{
			"error": err.Error(),
		})
	}

	runner := ramp.NewRunner(engine, ramp.NewRedisLocker(redisClient, lockerPrefix), auditor, logger, rampMetrics, ramp.RunnerConfig{
		LeaseTTL: appConfig.Engine.LeaseTTL,
	})
	ctrl := controller.New(engine, runner, index, squid, anchorClient, brlaClient, auditor, logger, appConfig)

	// background jobs
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobStatusManager := monitoring.NewJobStatusManager(logger, jobMetrics)
	jobStatusManager.Start(ctx)

	c := cron.New()
	tickJob := monitoring.NewInstrumentedJob(consts.RampTickJob, runner.Tick, jobStatusManager, logger, appConfig.Engine.TickInterval)
	if _, err := c.AddJob(fmt.Sprintf("@every %s", appConfig.Engine.TickInterval), tickJob); err != nil {
		logger.Fatal("[Init][cron.AddJob] invalid tick interval", map[string]string{
			"error": err.Error(),
		})
	}
	c.Start()

	// resume whatever was in flight before the restart
	go tickJob.Execute()

	h := handler.New(appConfig, logger, ctrl, handler.Dependencies{
		DB:       db,
		Pendulum: pendulumRPC,
		Moonbeam: moonbeamRPC,
		Signing:  signing,
		Sessions: runner,
	}, registry, httpMetrics, jobStatusManager)

	srv := &http.Server{
		Addr:    ":" + appConfig.ApiServer.Port,
		Handler: transporthttp.NewHttpServer(appConfig, h, httpMetrics),
	}

	go func() {
		logger.Info("Starting HTTP server", map[string]string{
			"port": appConfig.ApiServer.Port,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("[Init][ListenAndServe] http server stopped", map[string]string{
				"error": err.Error(),
			})
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("[Init][Shutdown] http server shutdown failed", map[string]string{
			"error": err.Error(),
		})
	}

	// session tasks stop at their next cancellation point; persisted state resumes on restart
	runner.Stop()
}

// loadSecrets replaces API keys from env with the Vault copies when Vault is configured.
func loadSecrets(appConfig *config.AppConfig, logger *logger.Logger) {
	if appConfig.Vault.Addr == "" {
		return
	}

	vc, err := vault.New(appConfig.Vault.Addr, appConfig.Vault.KVSecretPath, appConfig.Vault.Role, appConfig.Vault.Token)
	if err != nil {
		logger.Fatal("[loadSecrets][vault.New] failed to log into vault", map[string]string{
			"error": err.Error(),
		})
	}

	for key, target := range map[string]*string{
		vaultSigningServiceKey: &appConfig.SigningService.APIKey,
		vaultBRLAKey:           &appConfig.BRLA.APIKey,
	} {
		secret, err := vc.GetKV(key)
		if err != nil {
			logger.Fatal("[loadSecrets][GetKV] failed to read secret", map[string]string{
				"key":   key,
				"error": err.Error(),
			})
		}
		*target = secret
	}
}
