package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sony/gobreaker"

	"github.com/pendulum-chain/vortex-sub005/internal/evmrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/signingservice"
	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

// breaker holds what every collaborator wrapper shares: one gobreaker per API plus metrics.
type breaker struct {
	apiName        string
	circuitBreaker *gobreaker.CircuitBreaker
	metrics        *ExternalAPIMetrics
	logger         *logger.Logger
	timeoutConfig  TimeoutConfig
}

func newBreaker(apiName string, config CircuitBreakerConfig, timeoutConfig TimeoutConfig, metrics *ExternalAPIMetrics, logger *logger.Logger, isDomainError func(error) bool) *breaker {
	b := &breaker{
		apiName:       apiName,
		metrics:       metrics,
		logger:        logger,
		timeoutConfig: timeoutConfig,
	}

	settings := gobreaker.Settings{
		Name:        apiName,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.ConsecutiveFailureThreshold)
		},
		// a collaborator that answered with a typed domain error is healthy
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || isDomainError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state change", map[string]string{
				"service": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.UpdateCircuitBreakerState(apiName, to)
		},
	}

	b.circuitBreaker = gobreaker.NewCircuitBreaker(settings)
	return b
}

// execute runs fn through the breaker with a per-request timeout and records metrics.
func (b *breaker) execute(ctx context.Context, operation string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	start := time.Now()

	timeout := b.timeoutConfig.RequestTimeout
	if operation == "health_check" {
		timeout = b.timeoutConfig.HealthCheckTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := b.circuitBreaker.Execute(func() (interface{}, error) {
		return fn(callCtx)
	})

	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			b.metrics.RecordTimeout(b.apiName, operation)
		}
		b.logError(operation, duration, err)
	}
	b.metrics.RecordAPICall(b.apiName, operation, status, duration)
	return result, err
}

// State returns the current breaker state.
func (b *breaker) State() gobreaker.State {
	return b.circuitBreaker.State()
}

func (b *breaker) logError(operation string, duration float64, err error) {
	b.logger.Error("External API call failed", map[string]string{
		"api":        b.apiName,
		"operation":  operation,
		"duration":   fmt.Sprintf("%.3fs", duration),
		"error":      err.Error(),
		"error_type": string(classifyError(err)),
		"cb_state":   b.circuitBreaker.State().String(),
	})
}

// CircuitBreakerSigningService wraps signingservice.ISigningService with circuit breaker functionality
type CircuitBreakerSigningService struct {
	*breaker
	wrapped signingservice.ISigningService
}

func NewCircuitBreakerSigningService(wrapped signingservice.ISigningService, config CircuitBreakerConfig, metrics *ExternalAPIMetrics, logger *logger.Logger) *CircuitBreakerSigningService {
	return &CircuitBreakerSigningService{
		breaker: newBreaker(APISigningService, config, DefaultTimeoutConfig, metrics, logger, isSigningDomainError),
		wrapped: wrapped,
	}
}

func isSigningDomainError(err error) bool {
	return errors.Is(err, signingservice.ErrSubsidyCapExceeded) || errors.Is(err, signingservice.ErrInvalidRequest)
}

func (cb *CircuitBreakerSigningService) CreateEphemeralFunding(ctx context.Context, req signingservice.FundingRequest) error {
	_, err := cb.execute(ctx, "create_ephemeral_funding", func(ctx context.Context) (interface{}, error) {
		return nil, cb.wrapped.CreateEphemeralFunding(ctx, req)
	})
	return err
}

func (cb *CircuitBreakerSigningService) CosignPayout(ctx context.Context, req signingservice.CosignRequest) (*signingservice.CosignResponse, error) {
	result, err := cb.execute(ctx, "cosign_payout", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.CosignPayout(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*signingservice.CosignResponse), nil
}

func (cb *CircuitBreakerSigningService) ExecuteBridgeCompletion(ctx context.Context, receiverID, payload string) (string, error) {
	result, err := cb.execute(ctx, "execute_bridge_completion", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.ExecuteBridgeCompletion(ctx, receiverID, payload)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (cb *CircuitBreakerSigningService) Subsidize(ctx context.Context, req signingservice.SubsidyRequest) error {
	_, err := cb.execute(ctx, "subsidize", func(ctx context.Context) (interface{}, error) {
		return nil, cb.wrapped.Subsidize(ctx, req)
	})
	return err
}

func (cb *CircuitBreakerSigningService) FundingAccounts(ctx context.Context) (map[string]string, error) {
	result, err := cb.execute(ctx, "funding_accounts", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.FundingAccounts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

// CircuitBreakerSubstrateRPC wraps substraterpc.ISubstrateRPC. WaitForEvent is passed through
// because it is a long suspension, not a request.
type CircuitBreakerSubstrateRPC struct {
	*breaker
	wrapped substraterpc.ISubstrateRPC
}

func NewCircuitBreakerSubstrateRPC(apiName string, wrapped substraterpc.ISubstrateRPC, config CircuitBreakerConfig, metrics *ExternalAPIMetrics, logger *logger.Logger) *CircuitBreakerSubstrateRPC {
	return &CircuitBreakerSubstrateRPC{
		breaker: newBreaker(apiName, config, DefaultTimeoutConfig, metrics, logger, isSubstrateDomainError),
		wrapped: wrapped,
	}
}

func isSubstrateDomainError(err error) bool {
	var included *substraterpc.AlreadyIncludedError
	return errors.As(err, &included) ||
		errors.Is(err, substraterpc.ErrAmountExceedsBalance) ||
		errors.Is(err, substraterpc.ErrNonceTooLow) ||
		errors.Is(err, substraterpc.ErrAlreadyInPool) ||
		errors.Is(err, substraterpc.ErrDispatchFailed)
}

func (cb *CircuitBreakerSubstrateRPC) Chain() string {
	return cb.wrapped.Chain()
}

func (cb *CircuitBreakerSubstrateRPC) AccountNonce(ctx context.Context, address string) (uint64, error) {
	result, err := cb.execute(ctx, "account_nonce", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.AccountNonce(ctx, address)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

func (cb *CircuitBreakerSubstrateRPC) FreeBalance(ctx context.Context, address, currency string) (*big.Int, error) {
	result, err := cb.execute(ctx, "free_balance", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.FreeBalance(ctx, address, currency)
	})
	if err != nil {
		return nil, err
	}
	return result.(*big.Int), nil
}

func (cb *CircuitBreakerSubstrateRPC) SigningPayload(ctx context.Context, call substraterpc.Call, signer string, nonce uint64) ([]byte, error) {
	result, err := cb.execute(ctx, "signing_payload", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.SigningPayload(ctx, call, signer, nonce)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (cb *CircuitBreakerSubstrateRPC) Submit(ctx context.Context, ext *substraterpc.SignedExtrinsic) (*substraterpc.Inclusion, error) {
	result, err := cb.execute(ctx, "submit", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.Submit(ctx, ext)
	})
	if err != nil {
		return nil, err
	}
	return result.(*substraterpc.Inclusion), nil
}

func (cb *CircuitBreakerSubstrateRPC) SubmitRaw(ctx context.Context, raw string) (*substraterpc.Inclusion, error) {
	result, err := cb.execute(ctx, "submit_raw", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.SubmitRaw(ctx, raw)
	})
	if err != nil {
		return nil, err
	}
	return result.(*substraterpc.Inclusion), nil
}

func (cb *CircuitBreakerSubstrateRPC) BlockEvents(ctx context.Context, blockRef string) ([]substraterpc.Event, error) {
	result, err := cb.execute(ctx, "block_events", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.BlockEvents(ctx, blockRef)
	})
	if err != nil {
		return nil, err
	}
	return result.([]substraterpc.Event), nil
}

func (cb *CircuitBreakerSubstrateRPC) LatestBlockNumber(ctx context.Context) (uint64, error) {
	result, err := cb.execute(ctx, "latest_block", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.LatestBlockNumber(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

func (cb *CircuitBreakerSubstrateRPC) QueryContract(ctx context.Context, contract, method, caller string, args []interface{}) (json.RawMessage, error) {
	result, err := cb.execute(ctx, "query_contract", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.QueryContract(ctx, contract, method, caller, args)
	})
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

func (cb *CircuitBreakerSubstrateRPC) WaitForEvent(ctx context.Context, fromBlock uint64, interval time.Duration, match func(substraterpc.Event) bool) (*substraterpc.Event, error) {
	return cb.wrapped.WaitForEvent(ctx, fromBlock, interval, match)
}

// CircuitBreakerEvmRPC wraps evmrpc.IEvmRPC. WaitForReceipt is passed through.
type CircuitBreakerEvmRPC struct {
	*breaker
	wrapped evmrpc.IEvmRPC
}

func NewCircuitBreakerEvmRPC(wrapped evmrpc.IEvmRPC, config CircuitBreakerConfig, metrics *ExternalAPIMetrics, logger *logger.Logger) *CircuitBreakerEvmRPC {
	return &CircuitBreakerEvmRPC{
		breaker: newBreaker(APIMoonbeamRPC, config, DefaultTimeoutConfig, metrics, logger, isEvmDomainError),
		wrapped: wrapped,
	}
}

func isEvmDomainError(err error) bool {
	return errors.Is(err, evmrpc.ErrNonceTooLow) || errors.Is(err, evmrpc.ErrAlreadyKnown) || errors.Is(err, evmrpc.ErrReverted)
}

func (cb *CircuitBreakerEvmRPC) ChainID() *big.Int {
	return cb.wrapped.ChainID()
}

func (cb *CircuitBreakerEvmRPC) AccountNonce(ctx context.Context, address string) (uint64, error) {
	result, err := cb.execute(ctx, "account_nonce", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.AccountNonce(ctx, address)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

func (cb *CircuitBreakerEvmRPC) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	result, err := cb.execute(ctx, "native_balance", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.NativeBalance(ctx, address)
	})
	if err != nil {
		return nil, err
	}
	return result.(*big.Int), nil
}

func (cb *CircuitBreakerEvmRPC) ERC20BalanceOf(ctx context.Context, token, holder string) (*big.Int, error) {
	result, err := cb.execute(ctx, "erc20_balance", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.ERC20BalanceOf(ctx, token, holder)
	})
	if err != nil {
		return nil, err
	}
	return result.(*big.Int), nil
}

func (cb *CircuitBreakerEvmRPC) ERC20Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	result, err := cb.execute(ctx, "erc20_allowance", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.ERC20Allowance(ctx, token, owner, spender)
	})
	if err != nil {
		return nil, err
	}
	return result.(*big.Int), nil
}

func (cb *CircuitBreakerEvmRPC) GasPrice(ctx context.Context) (*big.Int, error) {
	result, err := cb.execute(ctx, "gas_price", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.GasPrice(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*big.Int), nil
}

func (cb *CircuitBreakerEvmRPC) SendRawTransaction(ctx context.Context, raw string) (string, error) {
	result, err := cb.execute(ctx, "send_raw_transaction", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.SendRawTransaction(ctx, raw)
	})
	hash, _ := result.(string)
	return hash, err
}

func (cb *CircuitBreakerEvmRPC) WaitForReceipt(ctx context.Context, txHash string, interval time.Duration) (*types.Receipt, error) {
	return cb.wrapped.WaitForReceipt(ctx, txHash, interval)
}

func (cb *CircuitBreakerEvmRPC) ReceiverPayloadRegistered(ctx context.Context, receiver, receiverHash string) (bool, error) {
	result, err := cb.execute(ctx, "receiver_payload", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.ReceiverPayloadRegistered(ctx, receiver, receiverHash)
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// classifyError classifies errors into different types for metrics and logging
func classifyError(err error) APIErrorType {
	if err == nil {
		return ""
	}
	if isSigningDomainError(err) || isSubstrateDomainError(err) || isEvmDomainError(err) {
		return ErrorTypeDomain
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "timeout"), strings.Contains(errMsg, "deadline exceeded"):
		return ErrorTypeTimeout
	case strings.Contains(errMsg, "connection"), strings.Contains(errMsg, "unreachable"),
		strings.Contains(errMsg, "no such host"), strings.Contains(errMsg, "network"):
		return ErrorTypeNetworkError
	case strings.Contains(errMsg, "status 5"), strings.Contains(errMsg, "bad gateway"),
		strings.Contains(errMsg, "service unavailable"):
		return ErrorTypeServerError
	case strings.Contains(errMsg, "status 4"), strings.Contains(errMsg, "unauthorized"),
		strings.Contains(errMsg, "rejected credentials"), strings.Contains(errMsg, "rate limit"):
		return ErrorTypeClientError
	}
	return ErrorTypeUnknown
}

// validateCircuitBreakerConfig validates circuit breaker configuration
func validateCircuitBreakerConfig(config CircuitBreakerConfig) error {
	if config.MaxRequests == 0 {
		return fmt.Errorf("max_requests must be greater than 0")
	}
	if config.ConsecutiveFailureThreshold <= 0 {
		return fmt.Errorf("consecutive_failure_threshold must be greater than 0")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if config.Interval < 0 {
		return fmt.Errorf("interval must be non-negative")
	}
	return nil
}

// ValidateCircuitBreakerConfigs checks every configured breaker; called at startup.
func ValidateCircuitBreakerConfigs() error {
	for name, config := range CircuitBreakerConfigs {
		if err := validateCircuitBreakerConfig(config); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
