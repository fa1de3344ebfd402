package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// RetryPolicy is an exponential backoff schedule for one sender.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns 3 attempts starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 500 * time.Millisecond, MaxBackoff: 5 * time.Second}
}

// retryable covers transport errors, 429 and 5xx.
func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
}

// newHTTPClient builds the resty client owned by one sender, retrying per
// policy.
func newHTTPClient(timeout time.Duration, policy RetryPolicy) *resty.Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(max(policy.MaxAttempts, 1)-1).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "marketsync-notify").
		AddRetryCondition(retryable)
	if policy.InitialBackoff > 0 {
		c.SetRetryWaitTime(policy.InitialBackoff)
	}
	if policy.MaxBackoff > 0 {
		c.SetRetryMaxWaitTime(policy.MaxBackoff)
	}
	return c
}

// post sends body to url and reports the final outcome. Attempts is taken
// from the request, so it counts resty's retries.
func post(ctx context.Context, client *resty.Client, channel, event, url string, headers map[string]string, body []byte) domain.DeliveryReport {
	report := domain.DeliveryReport{Channel: channel, Event: event, SentAt: time.Now().UTC()}

	req := client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body)
	resp, err := req.Post(url)
	report.Attempts = max(req.Attempt, 1)

	switch {
	case err != nil:
		report.Error = fmt.Sprintf("%s: send request: %v", channel, err)
	case resp.IsSuccess():
		report.OK = true
		report.StatusCode = resp.StatusCode()
	default:
		report.StatusCode = resp.StatusCode()
		report.Error = fmt.Sprintf("%s: unexpected status %d: %s", channel, resp.StatusCode(), truncate(resp.String(), 256))
	}
	return report
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
