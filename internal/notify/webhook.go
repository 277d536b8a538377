// Package notify delivers run completions to external endpoints.
package notify

import (
	"context"
	"time"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/pkg/httputil"
	"github.com/wonny/sas/pkg/logger"
	"github.com/wonny/sas/pkg/redis"
)

// Payload is the JSON body posted for each completion
type Payload struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"` // success | failed
	ElapsedSec float64   `json:"elapsed_s"`
	OutputPath string    `json:"output_path"`
	Results    int       `json:"results"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewPayload builds the webhook body for a completion
func NewPayload(c contracts.Completion, now time.Time) Payload {
	status := "success"
	if !c.Succeeded() {
		status = "failed"
	}
	return Payload{
		RunID:      c.RunID,
		Status:     status,
		ElapsedSec: c.Elapsed.Seconds(),
		OutputPath: c.OutputPath,
		Results:    c.Results,
		Error:      c.ErrorString(),
		FinishedAt: now,
	}
}

// Webhook posts completions to a URL. Delivery is best effort: failures are
// logged and never retried.
// ⭐ SSOT: 완료 웹훅 전송은 여기서만
type Webhook struct {
	url     string
	client  *httputil.Client
	timeout time.Duration
	logger  *logger.Logger
}

// NewWebhook creates a webhook observer. limiter may be nil.
func NewWebhook(url string, timeout time.Duration, limiter *redis.RateLimiter, log *logger.Logger) *Webhook {
	client := httputil.NewWithTimeout(log, timeout).DisableRetry()
	if limiter != nil {
		client = client.WithRateLimiter(limiter, redis.WebhookRateLimit)
	}
	return &Webhook{
		url:     url,
		client:  client,
		timeout: timeout,
		logger:  log.WithComponent("notify"),
	}
}

// RunCompleted implements contracts.Observer
func (w *Webhook) RunCompleted(c contracts.Completion) {
	if w == nil || w.url == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	log := w.logger.WithRun(c.RunID)
	if err := w.client.PostJSON(ctx, w.url, NewPayload(c, time.Now())); err != nil {
		log.WithError(err).Warn("Completion webhook failed")
		return
	}
	log.Debug("Completion webhook delivered")
}
