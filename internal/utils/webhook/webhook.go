package webhook

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

// Client mirrors ramp events to an external audit log. Every call is best effort.
type Client struct {
	httpClient *resty.Client
	url        string
	logger     *logger.Logger
}

func New(url string, logger *logger.Logger) *Client {
	return &Client{
		httpClient: resty.New().SetTimeout(10 * time.Second),
		url:        url,
		logger:     logger,
	}
}

// Post sends payload as JSON. Errors are logged and swallowed.
func (c *Client) Post(ctx context.Context, event string, payload interface{}) {
	if c == nil || c.url == "" {
		return
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"event":     event,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"payload":   payload,
		}).
		Post(c.url)
	if err != nil {
		c.logger.Error("[webhook.Post] failed to call audit webhook", map[string]string{
			"event": event,
			"error": err.Error(),
		})
		return
	}
	if resp.IsError() {
		c.logger.Error("[webhook.Post] audit webhook rejected event", map[string]string{
			"event":       event,
			"status_code": strconv.Itoa(resp.StatusCode()),
		})
		return
	}

	c.logger.Debug("[webhook.Post] audit event delivered", map[string]string{"event": event})
}
