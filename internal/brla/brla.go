package brla

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

type BRLA struct {
	client *resty.Client
	logger *logger.Logger
}

func New(baseURL, apiKey string, timeout time.Duration, logger *logger.Logger) IBRLA {
	return &BRLA{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetAuthToken(apiKey),
		logger: logger,
	}
}

func (b *BRLA) GetUser(ctx context.Context, taxID string) (*User, error) {
	var out User
	var apiErr errorResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("taxId", taxID).
		SetResult(&out).
		SetError(&apiErr).
		Get("/v1/business/subaccounts")
	if err != nil {
		return nil, errors.Wrap(err, "brla user lookup failed")
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("brla user lookup status %d: %s", resp.StatusCode(), apiErr.Error)
	}
	return &out, nil
}

func (b *BRLA) TriggerOfframp(ctx context.Context, req PayoutRequest) error {
	var apiErr errorResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(req).
		SetError(&apiErr).
		Post("/v1/business/pay-out")
	if err != nil {
		return errors.Wrap(err, "brla payout request failed")
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return fmt.Errorf("%w: %s", ErrPayoutRejected, apiErr.Error)
	}
	if resp.IsError() {
		return fmt.Errorf("brla payout status %d: %s", resp.StatusCode(), apiErr.Error)
	}

	b.logger.Info("[BRLA.TriggerOfframp] payout requested", map[string]string{
		"amount": strconv.FormatInt(req.Amount, 10),
	})
	return nil
}

func (b *BRLA) Teleport(ctx context.Context, req TeleportRequest) error {
	var apiErr errorResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(req).
		SetError(&apiErr).
		Post("/v1/business/teleport")
	if err != nil {
		return errors.Wrap(err, "brla teleport request failed")
	}
	if resp.IsError() {
		return fmt.Errorf("brla teleport status %d: %s", resp.StatusCode(), apiErr.Error)
	}

	b.logger.Info("[BRLA.Teleport] teleport requested", map[string]string{
		"receiver": req.ReceiverAddress,
		"amount":   strconv.FormatInt(req.Amount, 10),
	})
	return nil
}

func (b *BRLA) GetEvents(ctx context.Context, taxID string) ([]Event, error) {
	var out eventsResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("taxId", taxID).
		SetResult(&out).
		Get("/v1/business/events")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFeedUnavailable, err.Error())
	}
	if resp.StatusCode() >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode())
	}
	if resp.IsError() {
		return nil, fmt.Errorf("brla events status %d", resp.StatusCode())
	}
	return out.Events, nil
}

// FindEvent returns the first event of kind that happened after since.
func FindEvent(events []Event, kind string, since time.Time) *Event {
	for i := range events {
		if events[i].Type == kind && !events[i].CreatedAt.Before(since) {
			return &events[i]
		}
	}
	return nil
}
