package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pendulum-chain/vortex-sub005/internal/evmrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/monitoring"
	"github.com/pendulum-chain/vortex-sub005/internal/signingservice"
	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/config"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

// ISessionCounter reports the number of ramp sessions driven by this process.
type ISessionCounter interface {
	Active() int
}

// HealthHandler implements IHealthHandler interface
type HealthHandler struct {
	config           *config.AppConfig
	logger           *logger.Logger
	db               *gorm.DB
	pendulum         substraterpc.ISubstrateRPC
	moonbeam         evmrpc.IEvmRPC
	signing          signingservice.ISigningService
	jobStatusManager *monitoring.JobStatusManager
	sessions         ISessionCounter
}

// New creates a new health handler instance
func New(config *config.AppConfig, logger *logger.Logger, db *gorm.DB, pendulum substraterpc.ISubstrateRPC, moonbeam evmrpc.IEvmRPC, signing signingservice.ISigningService, jobStatusManager *monitoring.JobStatusManager, sessions ISessionCounter) IHealthHandler {
	return &HealthHandler{
		config:           config,
		logger:           logger,
		db:               db,
		pendulum:         pendulum,
		moonbeam:         moonbeam,
		signing:          signing,
		jobStatusManager: jobStatusManager,
		sessions:         sessions,
	}
}

// Basic handles the basic health check endpoint (/healthz)
// @Summary Basic health check
// @Description Returns basic system availability status
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} BasicHealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Basic(c *gin.Context) {
	response := BasicHealthResponse{
		Message: "ok",
	}
	c.JSON(http.StatusOK, response)
}

// Database handles the database health check endpoint
// @Summary Database health check
// @Description Validates database connectivity and performance
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/v1/health/db [get]
func (h *HealthHandler) Database(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	// Get context safely
	ctx := context.Background()
	if c.Request != nil {
		ctx = c.Request.Context()
	}

	// Check database health
	dbCheck := h.checkDatabase(ctx)
	response.Checks["database"] = dbCheck
	response.DurationMs = time.Since(start).Milliseconds()

	// Determine overall status
	if dbCheck.Status == "healthy" {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
	} else {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

// External handles the external API dependencies health check endpoint
// @Summary External dependencies health check
// @Description Validates connectivity to the Pendulum node, the Moonbeam RPC and the signing service
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/v1/health/external [get]
func (h *HealthHandler) External(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	// Get context safely and create overall context with timeout
	baseCtx := context.Background()
	if c.Request != nil {
		baseCtx = c.Request.Context()
	}
	ctx, cancel := context.WithTimeout(baseCtx, 10*time.Second)
	defer cancel()

	probes := map[string]probe{
		"pendulum_rpc":    h.pendulumProbe(),
		"moonbeam_rpc":    h.moonbeamProbe(),
		"signing_service": h.signingProbe(),
	}

	// Check external APIs in parallel
	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, p := range probes {
		wg.Add(1)
		go func(name string, p probe) {
			defer wg.Done()
			check := runProbe(ctx, p)
			mu.Lock()
			response.Checks[name] = check
			mu.Unlock()
		}(name, p)
	}

	wg.Wait()
	response.DurationMs = time.Since(start).Milliseconds()

	// Determine overall status
	allHealthy := true
	for _, check := range response.Checks {
		if check.Status != "healthy" {
			allHealthy = false
			break
		}
	}

	if allHealthy {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
	} else {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

// checkDatabase performs database health validation
func (h *HealthHandler) checkDatabase(ctx context.Context) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Metadata: make(map[string]interface{}),
	}

	// Handle nil database
	if h.db == nil {
		check.Status = "unhealthy"
		check.Error = "database connection not available"
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	// Get underlying SQL DB
	sqlDB, err := h.db.DB()
	if err != nil {
		check.Status = "unhealthy"
		check.Error = fmt.Sprintf("failed to get underlying database: %v", err)
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	// Create context with timeout
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Ping database
	if err := sqlDB.PingContext(pingCtx); err != nil {
		check.Status = "unhealthy"
		if pingCtx.Err() == context.DeadlineExceeded {
			check.Error = "timeout"
		} else {
			check.Error = err.Error()
		}
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	// Get connection pool stats
	stats := sqlDB.Stats()

	check.Status = "healthy"
	check.Latency = time.Since(start).Milliseconds()
	check.Metadata["driver"] = "postgres"
	check.Metadata["connection_pool"] = map[string]interface{}{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"max_open":         stats.MaxOpenConnections,
	}

	return check
}

// probe is a lightweight call against one collaborator. A nil call means the client is not configured.
type probe struct {
	missing string
	call    func(ctx context.Context) (map[string]interface{}, error)
}

func (h *HealthHandler) pendulumProbe() probe {
	p := probe{missing: "pendulum rpc not available"}
	if h.pendulum == nil {
		return p
	}
	p.call = func(ctx context.Context) (map[string]interface{}, error) {
		block, err := h.pendulum.LatestBlockNumber(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"chain": h.pendulum.Chain(), "latest_block": block}, nil
	}
	return p
}

func (h *HealthHandler) moonbeamProbe() probe {
	p := probe{missing: "moonbeam rpc not available"}
	if h.moonbeam == nil {
		return p
	}
	p.call = func(ctx context.Context) (map[string]interface{}, error) {
		price, err := h.moonbeam.GasPrice(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"chain_id": h.moonbeam.ChainID().String(), "gas_price": price.String()}, nil
	}
	return p
}

func (h *HealthHandler) signingProbe() probe {
	p := probe{missing: "signing service not available"}
	if h.signing == nil {
		return p
	}
	p.call = func(ctx context.Context) (map[string]interface{}, error) {
		accounts, err := h.signing.FundingAccounts(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"funding_accounts": len(accounts)}, nil
	}
	return p
}

func runProbe(ctx context.Context, p probe) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Metadata: make(map[string]interface{}),
	}

	if p.call == nil {
		check.Status = "unhealthy"
		check.Error = p.missing
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	// Create context with timeout for individual check
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	type result struct {
		metadata map[string]interface{}
		err      error
	}
	done := make(chan result, 1)
	go func() {
		metadata, err := p.call(checkCtx)
		done <- result{metadata: metadata, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			check.Status = "unhealthy"
			check.Error = res.err.Error()
		} else {
			check.Status = "healthy"
			for k, v := range res.metadata {
				check.Metadata[k] = v
			}
		}
	case <-checkCtx.Done():
		check.Status = "unhealthy"
		if checkCtx.Err() == context.DeadlineExceeded {
			check.Error = "timeout"
		} else {
			check.Error = checkCtx.Err().Error()
		}
	}

	check.Latency = time.Since(start).Milliseconds()
	return check
}
