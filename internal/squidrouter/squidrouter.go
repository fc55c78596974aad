package squidrouter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

type SquidRouter struct {
	client *resty.Client
	logger *logger.Logger
}

func New(baseURL, integratorID string, timeout time.Duration, logger *logger.Logger) ISquidRouter {
	return &SquidRouter{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("x-integrator-id", integratorID),
		logger: logger,
	}
}

func (s *SquidRouter) GetRoute(ctx context.Context, params RouteParams) (*Route, error) {
	var out routeResponse
	var apiErr errorResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(params).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v2/route")
	if err != nil {
		return nil, errors.Wrap(err, "squid route request failed")
	}
	if resp.IsError() {
		return nil, fmt.Errorf("squid route status %d: %s %s", resp.StatusCode(), apiErr.Type, apiErr.Message)
	}
	if out.Route.TransactionRequest.Target == "" || out.Route.TransactionRequest.Data == "" {
		return nil, fmt.Errorf("squid route without transaction request")
	}

	route := &Route{
		RequestID:          resp.Header().Get("x-request-id"),
		TransactionRequest: out.Route.TransactionRequest,
		Estimate:           out.Route.Estimate,
	}
	s.logger.Info("[SquidRouter.GetRoute] route received", map[string]string{
		"requestId": route.RequestID,
		"fromChain": params.FromChain,
		"toChain":   params.ToChain,
		"toAmount":  route.Estimate.ToAmount,
	})
	return route, nil
}

func (s *SquidRouter) GetStatus(ctx context.Context, txHash, requestID, fromChainID, toChainID string) (*Status, error) {
	var out Status
	var apiErr errorResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"transactionId": txHash,
			"requestId":     requestID,
			"fromChainId":   fromChainID,
			"toChainId":     toChainID,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Get("/v2/status")
	if err != nil {
		return nil, errors.Wrap(err, "squid status request failed")
	}
	if resp.IsError() {
		return nil, fmt.Errorf("squid status %d: %s", resp.StatusCode(), apiErr.Message)
	}
	return &out, nil
}
