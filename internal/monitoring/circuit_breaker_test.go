package monitoring

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pendulum-chain/vortex-sub005/internal/signingservice"
	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

// MockSigningService for testing
type MockSigningService struct {
	mock.Mock
	block time.Duration
}

func (m *MockSigningService) CreateEphemeralFunding(ctx context.Context, req signingservice.FundingRequest) error {
	return m.Called(req).Error(0)
}

func (m *MockSigningService) CosignPayout(ctx context.Context, req signingservice.CosignRequest) (*signingservice.CosignResponse, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*signingservice.CosignResponse)
	return resp, args.Error(1)
}

func (m *MockSigningService) ExecuteBridgeCompletion(ctx context.Context, receiverID, payload string) (string, error) {
	args := m.Called(receiverID, payload)
	return args.String(0), args.Error(1)
}

func (m *MockSigningService) Subsidize(ctx context.Context, req signingservice.SubsidyRequest) error {
	if m.block > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.block):
		}
	}
	return m.Called(req).Error(0)
}

func (m *MockSigningService) FundingAccounts(ctx context.Context) (map[string]string, error) {
	args := m.Called()
	accounts, _ := args.Get(0).(map[string]string)
	return accounts, args.Error(1)
}

// MockSubstrateRPC only implements what the tests call
type MockSubstrateRPC struct {
	substraterpc.ISubstrateRPC
	mock.Mock
}

func (m *MockSubstrateRPC) FreeBalance(ctx context.Context, address, currency string) (*big.Int, error) {
	args := m.Called(address, currency)
	balance, _ := args.Get(0).(*big.Int)
	return balance, args.Error(1)
}

func (m *MockSubstrateRPC) SubmitRaw(ctx context.Context, raw string) (*substraterpc.Inclusion, error) {
	args := m.Called(raw)
	inclusion, _ := args.Get(0).(*substraterpc.Inclusion)
	return inclusion, args.Error(1)
}

func setupTestLogger() *logger.Logger {
	return logger.New("test")
}

func testBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests:                 1,
		Interval:                    time.Minute,
		Timeout:                     time.Minute,
		ConsecutiveFailureThreshold: 2,
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.GetCounter().GetValue()
}

func TestCircuitBreakerSigningService_Success(t *testing.T) {
	mockSvc := &MockSigningService{}
	metrics := NewExternalAPIMetrics()
	metrics.MustRegister(prometheus.NewRegistry())

	accounts := map[string]string{"stellar": "GFUNDING"}
	mockSvc.On("FundingAccounts").Return(accounts, nil)

	cb := NewCircuitBreakerSigningService(mockSvc, testBreakerConfig(), metrics, setupTestLogger())
	got, err := cb.FundingAccounts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, accounts, got)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, float64(1), counterValue(t, metrics.apiCalls.WithLabelValues(APISigningService, "success")))
	mockSvc.AssertExpectations(t)
}

func TestCircuitBreakerSigningService_OpensAfterConsecutiveFailures(t *testing.T) {
	mockSvc := &MockSigningService{}
	metrics := NewExternalAPIMetrics()
	mockSvc.On("ExecuteBridgeCompletion", "0xid", "0xpayload").Return("", errors.New("signing service status 502: bad gateway"))

	cb := NewCircuitBreakerSigningService(mockSvc, testBreakerConfig(), metrics, setupTestLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cb.ExecuteBridgeCompletion(ctx, "0xid", "0xpayload")
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.ExecuteBridgeCompletion(ctx, "0xid", "0xpayload")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	mockSvc.AssertNumberOfCalls(t, "ExecuteBridgeCompletion", 2)
}

func TestCircuitBreakerSigningService_DomainErrorsDoNotTrip(t *testing.T) {
	mockSvc := &MockSigningService{}
	req := signingservice.SubsidyRequest{Chain: "pendulum", Address: "6eph", AmountRaw: "1", Asset: "native"}
	mockSvc.On("Subsidize", req).Return(signingservice.ErrSubsidyCapExceeded)

	cb := NewCircuitBreakerSigningService(mockSvc, testBreakerConfig(), NewExternalAPIMetrics(), setupTestLogger())
	for i := 0; i < 5; i++ {
		err := cb.Subsidize(context.Background(), req)
		assert.ErrorIs(t, err, signingservice.ErrSubsidyCapExceeded)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerSigningService_Timeout(t *testing.T) {
	mockSvc := &MockSigningService{block: time.Second}
	metrics := NewExternalAPIMetrics()
	cb := &CircuitBreakerSigningService{
		breaker: newBreaker(APISigningService, testBreakerConfig(), TimeoutConfig{RequestTimeout: 20 * time.Millisecond}, metrics, setupTestLogger(), isSigningDomainError),
		wrapped: mockSvc,
	}

	err := cb.Subsidize(context.Background(), signingservice.SubsidyRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, float64(1), counterValue(t, metrics.timeouts.WithLabelValues(APISigningService, "subsidize")))
}

func TestCircuitBreakerSubstrateRPC(t *testing.T) {
	mockRPC := &MockSubstrateRPC{}
	mockRPC.On("FreeBalance", "6eph", "").Return(big.NewInt(42), nil)
	mockRPC.On("SubmitRaw", "0xraw").Return(nil, &substraterpc.AlreadyIncludedError{BlockHash: "0xblock"})

	cb := NewCircuitBreakerSubstrateRPC(APIAssetHubRPC, mockRPC, testBreakerConfig(), NewExternalAPIMetrics(), setupTestLogger())
	ctx := context.Background()

	balance, err := cb.FreeBalance(ctx, "6eph", "")
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance.Int64())

	for i := 0; i < 3; i++ {
		_, err = cb.SubmitRaw(ctx, "0xraw")
		var included *substraterpc.AlreadyIncludedError
		require.True(t, errors.As(err, &included))
		assert.Equal(t, "0xblock", included.BlockHash)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want APIErrorType
	}{
		{nil, ""},
		{context.DeadlineExceeded, ErrorTypeTimeout},
		{signingservice.ErrSubsidyCapExceeded, ErrorTypeDomain},
		{substraterpc.ErrNonceTooLow, ErrorTypeDomain},
		{errors.New("dial tcp: connection refused"), ErrorTypeNetworkError},
		{errors.New("squid route status 503: down"), ErrorTypeServerError},
		{errors.New("brla user lookup status 404: missing"), ErrorTypeClientError},
		{errors.New("something odd"), ErrorTypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyError(tt.err), "%v", tt.err)
	}
}

func TestValidateCircuitBreakerConfig(t *testing.T) {
	assert.NoError(t, ValidateCircuitBreakerConfigs())

	invalid := []CircuitBreakerConfig{
		{MaxRequests: 0, ConsecutiveFailureThreshold: 1},
		{MaxRequests: 1, ConsecutiveFailureThreshold: 0},
		{MaxRequests: 1, ConsecutiveFailureThreshold: 1, Timeout: -time.Second},
		{MaxRequests: 1, ConsecutiveFailureThreshold: 1, Interval: -time.Second},
	}
	for _, cfg := range invalid {
		assert.Error(t, validateCircuitBreakerConfig(cfg))
	}
}
