package monitoring

import (
	"time"
)

// CircuitBreakerConfig defines the configuration for circuit breakers
type CircuitBreakerConfig struct {
	MaxRequests                 uint32        `json:"max_requests"`
	Interval                    time.Duration `json:"interval"`
	Timeout                     time.Duration `json:"timeout"`
	ConsecutiveFailureThreshold int           `json:"consecutive_failure_threshold"`
}

// TimeoutConfig bounds a single collaborator request. Long waits (event scans, receipts) are
// never wrapped by it.
type TimeoutConfig struct {
	RequestTimeout     time.Duration `json:"request_timeout"`
	HealthCheckTimeout time.Duration `json:"health_check_timeout"`
}

// APIErrorType represents different types of API errors for classification
type APIErrorType string

const (
	ErrorTypeTimeout      APIErrorType = "timeout"
	ErrorTypeNetworkError APIErrorType = "network_error"
	ErrorTypeServerError  APIErrorType = "server_error"
	ErrorTypeClientError  APIErrorType = "client_error"
	ErrorTypeDomain       APIErrorType = "domain"
	ErrorTypeUnknown      APIErrorType = "unknown"
)

const (
	APISigningService = "signing_service"
	APIPendulumRPC    = "pendulum_rpc"
	APIAssetHubRPC    = "assethub_rpc"
	APIMoonbeamRPC    = "moonbeam_rpc"
)

// CircuitBreakerConfigs provides default configurations for different services
var CircuitBreakerConfigs = map[string]CircuitBreakerConfig{
	APISigningService: {
		MaxRequests:                 3,
		Interval:                    30 * time.Second,
		Timeout:                     60 * time.Second,
		ConsecutiveFailureThreshold: 5,
	},
	APIPendulumRPC: {
		MaxRequests:                 5,
		Interval:                    30 * time.Second,
		Timeout:                     45 * time.Second,
		ConsecutiveFailureThreshold: 5,
	},
	APIAssetHubRPC: {
		MaxRequests:                 5,
		Interval:                    30 * time.Second,
		Timeout:                     45 * time.Second,
		ConsecutiveFailureThreshold: 5,
	},
	APIMoonbeamRPC: {
		MaxRequests:                 3,
		Interval:                    45 * time.Second,
		Timeout:                     120 * time.Second,
		ConsecutiveFailureThreshold: 5,
	},
}

// DefaultTimeoutConfig provides default timeout configurations
var DefaultTimeoutConfig = TimeoutConfig{
	RequestTimeout:     30 * time.Second,
	HealthCheckTimeout: 3 * time.Second,
}
