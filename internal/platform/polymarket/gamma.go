// Package polymarket reads market metadata from the Gamma API and order
// books from the CLOB API. It never places orders.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata.
type GammaClient struct {
	http *resty.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, timeout time.Duration) *GammaClient {
	return &GammaClient{http: newRestClient(baseURL, timeout)}
}

// GetMarkets returns one page of open markets.
func (g *GammaClient) GetMarkets(ctx context.Context, limit, offset int) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("active", "true")
	params.Set("closed", "false")

	body, err := g.doGet(ctx, "/markets", params)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	return markets, nil
}

// GetMarket returns a single market by its ID.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (APIMarket, error) {
	body, err := g.doGet(ctx, "/markets/"+url.PathEscape(id), nil)
	if err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var m APIMarket
	if err := json.Unmarshal(body, &m); err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}
	return m, nil
}

// ListLegs pages through open markets until a short page or maxMarkets is
// reached. maxMarkets <= 0 means a single page.
func (g *GammaClient) ListLegs(ctx context.Context, pageSize, maxMarkets int) ([]domain.MarketLeg, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	if maxMarkets <= 0 {
		maxMarkets = pageSize
	}

	legs := make([]domain.MarketLeg, 0, pageSize)
	for offset := 0; offset < maxMarkets; offset += pageSize {
		page, err := g.GetMarkets(ctx, min(pageSize, maxMarkets-offset), offset)
		if err != nil {
			return nil, err
		}
		for i := range page {
			legs = append(legs, page[i].ToLeg())
		}
		if len(page) < pageSize {
			break
		}
	}
	return legs, nil
}

// GetLeg returns one market as a leg.
func (g *GammaClient) GetLeg(ctx context.Context, id string) (domain.MarketLeg, error) {
	m, err := g.GetMarket(ctx, id)
	if err != nil {
		return domain.MarketLeg{}, err
	}
	return m.ToLeg(), nil
}

// Quote returns the current YES/NO prices of a market.
func (g *GammaClient) Quote(ctx context.Context, id string) (domain.Quote, error) {
	m, err := g.GetMarket(ctx, id)
	if err != nil {
		return domain.Quote{}, err
	}
	q, ok := m.Quote()
	if !ok {
		return domain.Quote{}, fmt.Errorf("polymarket/gamma: market %s: %w", id, domain.ErrOddsUnavailable)
	}
	return q, nil
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req := g.http.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParamsFromValues(params)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode(), resp.Body()); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
