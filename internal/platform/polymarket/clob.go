package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/sizing"
)

// ClobClient is a read-only client for the Polymarket CLOB order book API.
type ClobClient struct {
	http *resty.Client
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, timeout time.Duration) *ClobClient {
	return &ClobClient{http: newRestClient(baseURL, timeout)}
}

// GetBook returns the order book for one outcome token.
func (c *ClobClient) GetBook(ctx context.Context, tokenID string) (*domain.OrderbookSnapshot, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		Get("/book")
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: get book %s: http request: %w", tokenID, err)
	}
	if err := checkHTTPStatus(resp.StatusCode(), resp.Body()); err != nil {
		return nil, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(resp.Body(), &book); err != nil {
		return nil, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	snap := book.ToDomainSnapshot()
	return &snap, nil
}

// Depth fetches both outcome books and measures the depth available within
// slippageBps of each side's best ask. A side whose book cannot be fetched
// contributes nothing.
func (c *ClobClient) Depth(ctx context.Context, yesToken, noToken string, slippageBps float64) (*domain.DepthEstimate, error) {
	var yesBook, noBook *domain.OrderbookSnapshot

	var g errgroup.Group
	g.Go(func() error {
		b, err := c.GetBook(ctx, yesToken)
		yesBook = b
		return err
	})
	g.Go(func() error {
		b, err := c.GetBook(ctx, noToken)
		noBook = b
		return err
	})
	err := g.Wait()
	if yesBook == nil && noBook == nil {
		return nil, err
	}

	est := sizing.DepthWithinSlippage(yesBook, noBook, slippageBps)
	return &est, nil
}
