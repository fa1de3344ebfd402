// Package pandora reads markets from the Pandora indexer GraphQL endpoint and
// maps them to market legs.
package pandora

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/marketsync/internal/crypto"
	"github.com/alanyoungcy/marketsync/internal/domain"
)

const marketFields = `
	id
	question
	title
	rules
	sources
	active
	status
	closeTimestamp
	yesPct
	noPct
	odds
	yesProbability
	noProbability
	yesPrice
	noPrice
	yesReserve
	noReserve
	liquidityUsd
	volumeUsd
	liquidityEvents(limit: 5, orderBy: "timestamp", orderDirection: "desc") {
		timestamp
		yesReserve
		noReserve
	}
`

const marketsQuery = `query Markets($limit: Int!, $offset: Int!) {
	markets(limit: $limit, offset: $offset, where: {active: true}) {
		items {` + marketFields + `}
	}
}`

const marketQuery = `query Market($id: String!) {
	market(id: $id) {` + marketFields + `}
}`

// Client is the Pandora indexer client.
type Client struct {
	http *resty.Client
}

// NewClient creates an indexer client. apiKey is optional and sent as a
// bearer token.
func NewClient(indexerURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(indexerURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &Client{http: c}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// ListRaw returns one page of raw market items.
func (c *Client) ListRaw(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	var data struct {
		Markets struct {
			Items []map[string]any `json:"items"`
		} `json:"markets"`
	}
	if err := c.query(ctx, marketsQuery, map[string]any{"limit": limit, "offset": offset}, &data); err != nil {
		return nil, fmt.Errorf("pandora: list markets: %w", err)
	}
	return data.Markets.Items, nil
}

// GetRaw returns one raw market item.
func (c *Client) GetRaw(ctx context.Context, id string) (map[string]any, error) {
	var data struct {
		Market map[string]any `json:"market"`
	}
	if err := c.query(ctx, marketQuery, map[string]any{"id": strings.ToLower(id)}, &data); err != nil {
		return nil, fmt.Errorf("pandora: get market %s: %w", id, err)
	}
	if data.Market == nil {
		return nil, fmt.Errorf("pandora: get market %s: %w", id, domain.ErrNotFound)
	}
	return data.Market, nil
}

// ListLegs pages through active markets until a short page or maxMarkets is
// reached. Items that cannot be mapped are skipped and reported as
// diagnostics.
func (c *Client) ListLegs(ctx context.Context, pageSize, maxMarkets int) ([]domain.MarketLeg, []string, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	if maxMarkets <= 0 {
		maxMarkets = pageSize
	}

	var (
		legs  []domain.MarketLeg
		diags []string
	)
	for offset := 0; offset < maxMarkets; offset += pageSize {
		items, err := c.ListRaw(ctx, min(pageSize, maxMarkets-offset), offset)
		if err != nil {
			return nil, nil, err
		}
		for _, raw := range items {
			m, err := ToMarket(raw)
			if err != nil {
				diags = append(diags, err.Error())
				continue
			}
			legs = append(legs, m.Leg)
		}
		if len(items) < pageSize {
			break
		}
	}
	return legs, diags, nil
}

// GetMarket fetches and maps one market.
func (c *Client) GetMarket(ctx context.Context, id string) (Market, error) {
	if !crypto.IsMarketAddress(id) {
		return Market{}, fmt.Errorf("pandora: market id %q is not a hex address", id)
	}
	raw, err := c.GetRaw(ctx, id)
	if err != nil {
		return Market{}, err
	}
	return ToMarket(raw)
}

// Quote returns the current odds of a market.
func (c *Client) Quote(ctx context.Context, id string) (domain.Quote, error) {
	m, err := c.GetMarket(ctx, id)
	if err != nil {
		return domain.Quote{}, err
	}
	if m.Leg.YesPct == nil {
		return domain.Quote{}, fmt.Errorf("pandora: market %s: %w", id, domain.ErrOddsUnavailable)
	}
	return domain.Quote{
		YesPct: m.Leg.YesPct,
		NoPct:  m.Leg.NoPct,
		Estimate: map[string]any{
			"source":   m.Leg.OddsSource,
			"marketId": m.Leg.MarketID,
		},
	}, nil
}

func (c *Client) query(ctx context.Context, query string, vars map[string]any, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(gqlRequest{Query: query, Variables: vars}).
		Post("")
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	switch sc := resp.StatusCode(); {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, resp.String())
	case sc == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, resp.String())
	case sc < 200 || sc >= 300:
		return fmt.Errorf("HTTP %d: %s", sc, resp.String())
	}

	var env gqlResponse
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
	}

	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
