package webhook

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

const (
	heartbeatTimeout = 10 * time.Second
	heartbeatRetries = 2
)

// Client sends heartbeats to uptime monitors (healthchecks.io style GET
// endpoints) after background jobs succeed.
type Client struct {
	http   *resty.Client
	logger *logger.Logger
}

func New(logger *logger.Logger) *Client {
	rc := resty.New().
		SetTimeout(heartbeatTimeout).
		SetHeader("User-Agent", "escrow-history-heartbeat").
		SetRetryCount(heartbeatRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Client{http: rc, logger: logger}
}

// CallUptimeWebhook GETs webhookURL, retrying 5xx and transport errors.
// Failures are logged, never returned. An empty url is a no-op.
func (c *Client) CallUptimeWebhook(ctx context.Context, webhookURL string) {
	if webhookURL == "" {
		return
	}

	resp, err := c.http.R().SetContext(ctx).Get(webhookURL)
	fields := map[string]string{"url": webhookURL}
	switch {
	case err != nil:
		fields["error"] = err.Error()
		c.logger.Error("[CallUptimeWebhook][Get]", fields)
	case resp.IsError():
		fields["status_code"] = strconv.Itoa(resp.StatusCode())
		fields["attempts"] = strconv.Itoa(resp.Request.Attempt)
		c.logger.Error("[CallUptimeWebhook] heartbeat rejected", fields)
	default:
		fields["status_code"] = strconv.Itoa(resp.StatusCode())
		c.logger.Debug("[CallUptimeWebhook] heartbeat sent", fields)
	}
}
