// Package executor forwards live actions to an external signer service over
// HTTP. Signing and broadcasting stay on the other side of the bridge.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// Result statuses the bridge may report that count as failure.
var failedStatuses = map[string]bool{
	"failed":   true,
	"rejected": true,
	"error":    true,
}

// Client is the HTTP executor bridge.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// New creates a bridge client. token is sent as a bearer token when set.
func New(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{
		http:   c,
		logger: logger.With(slog.String("component", "executor")),
	}
}

type actionRequest struct {
	Kind       domain.ActionKind `json:"kind"`
	Venue      domain.Venue      `json:"venue"`
	MarketID   string            `json:"marketId"`
	Side       string            `json:"side"`
	Token      string            `json:"token,omitempty"`
	AmountUsdc float64           `json:"amountUsdc"`
	Params     map[string]any    `json:"params,omitempty"`
}

// Execute posts action to the bridge endpoint for its kind: /execute for
// trades, /hedge and /rebalance otherwise. Requests are not retried.
func (c *Client) Execute(ctx context.Context, action domain.PlannedAction) (*domain.ExecutionResult, error) {
	path, err := endpoint(action.Kind)
	if err != nil {
		return nil, err
	}

	var out domain.ExecutionResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(actionRequest{
			Kind:       action.Kind,
			Venue:      action.Venue,
			MarketID:   action.MarketID,
			Side:       action.Side,
			Token:      action.Token,
			AmountUsdc: action.AmountUsdc,
			Params:     action.Params,
		}).
		SetResult(&out).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("executor: %s: http request: %w", action.Kind, err)
	}

	switch sc := resp.StatusCode(); {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return nil, fmt.Errorf("executor: %s: %w: %s", action.Kind, domain.ErrUnauthorized, resp.String())
	case sc == http.StatusTooManyRequests:
		return nil, fmt.Errorf("executor: %s: %w: %s", action.Kind, domain.ErrRateLimited, resp.String())
	case sc < 200 || sc >= 300:
		return nil, fmt.Errorf("executor: %s: HTTP %d: %s", action.Kind, sc, resp.String())
	}

	if failedStatuses[strings.ToLower(out.Status)] {
		return &out, fmt.Errorf("executor: %s: bridge reported %s", action.Kind, out.Status)
	}

	c.logger.InfoContext(ctx, "action executed",
		slog.String("kind", string(action.Kind)),
		slog.String("market_id", action.MarketID),
		slog.Float64("amount_usdc", action.AmountUsdc),
		slog.String("tx_ref", out.TxRef),
	)
	return &out, nil
}

func endpoint(kind domain.ActionKind) (string, error) {
	switch kind {
	case domain.ActionTrade:
		return "/execute", nil
	case domain.ActionHedge:
		return "/hedge", nil
	case domain.ActionRebalance:
		return "/rebalance", nil
	default:
		return "", fmt.Errorf("executor: unsupported action kind %q", kind)
	}
}
