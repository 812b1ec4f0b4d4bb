package polymarket

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"polymarket-tax-go/internal/config"
)

const (
	defaultClobBaseURL    = "https://clob.polymarket.com"
	defaultGammaBaseURL   = "https://gamma-api.polymarket.com"
	defaultDataApiBaseURL = "https://data-api.polymarket.com"
	defaultPageLimit      = 500
)

// ClientInterface defines the interface for the Polymarket API clients.
type ClientInterface interface {
	FetchTrades(walletAddress string) ([]Trade, error)
	FetchMarket(conditionID string) (*Market, error)
	FetchMarkets(conditionIDs []string) (map[string]*Market, error)
	FetchActivity(walletAddress string) ([]Activity, error)
	FetchPositions(walletAddress string) ([]Position, error)
}

// Client fetches trade history and market data from the three Polymarket
// APIs: the CLOB (order fills), Gamma (market metadata) and the Data API
// (wallet activity and positions). All requests share one rate limiter.
type Client struct {
	clob      *resty.Client
	gamma     *resty.Client
	dataAPI   *resty.Client
	pageLimit int
	logger    *zap.Logger
	limiter   *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Polymarket API client.
func NewClient(cfg *config.Polymarket, logger *zap.Logger) *Client {
	clobURL := cfg.ClobBaseURL
	if clobURL == "" {
		clobURL = defaultClobBaseURL
	}
	gammaURL := cfg.GammaBaseURL
	if gammaURL == "" {
		gammaURL = defaultGammaBaseURL
	}
	dataURL := cfg.DataApiBaseURL
	if dataURL == "" {
		dataURL = defaultDataApiBaseURL
	}
	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = defaultPageLimit
	}

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		clob:      resty.New().SetBaseURL(clobURL),
		gamma:     resty.New().SetBaseURL(gammaURL),
		dataAPI:   resty.New().SetBaseURL(dataURL),
		pageLimit: pageLimit,
		logger:    logger,
		limiter:   limiter,
	}
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// FetchTrades fetches all CLOB fills for a wallet address, following the
// cursor until the API stops returning one.
func (c *Client) FetchTrades(walletAddress string) ([]Trade, error) {
	var allTrades []Trade
	cursor := ""
	ctx := context.Background()

	for {
		req := c.clob.R().
			SetResult(&TradesResponse{}).
			SetQueryParam("maker_address", walletAddress).
			SetQueryParam("limit", strconv.Itoa(c.pageLimit))
		if cursor != "" {
			req.SetQueryParam("next_cursor", cursor)
		}

		resp, err := c.doRequest(ctx, "GET", "/trades", req)
		if err != nil {
			c.logger.Error("Failed to fetch trades", zap.Error(err), zap.String("wallet", walletAddress))
			return nil, fmt.Errorf("failed to fetch trades: %w", err)
		}

		page := resp.Result().(*TradesResponse)
		allTrades = append(allTrades, page.Data...)

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	c.logger.Info("Fetched trades", zap.String("wallet", walletAddress), zap.Int("count", len(allTrades)))
	return allTrades, nil
}

// FetchMarket fetches market metadata by condition ID.
func (c *Client) FetchMarket(conditionID string) (*Market, error) {
	req := c.gamma.R().SetResult(&Market{})
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/markets/"+conditionID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market %s: %w", conditionID, err)
	}

	return resp.Result().(*Market), nil
}

// FetchMarkets fetches metadata for each unique condition ID, returning a
// map keyed by condition ID. Individual failures are logged and skipped so
// one delisted market does not block an import.
func (c *Client) FetchMarkets(conditionIDs []string) (map[string]*Market, error) {
	markets := make(map[string]*Market)
	for _, id := range conditionIDs {
		if id == "" {
			continue
		}
		if _, ok := markets[id]; ok {
			continue
		}
		market, err := c.FetchMarket(id)
		if err != nil {
			c.logger.Warn("Skipping market lookup", zap.String("condition_id", id), zap.Error(err))
			continue
		}
		markets[id] = market
	}
	return markets, nil
}

// FetchActivity fetches the full activity history for a wallet from the
// Data API using offset pagination. Activity includes on-chain redemptions
// the CLOB trades endpoint never sees.
func (c *Client) FetchActivity(walletAddress string) ([]Activity, error) {
	var allActivity []Activity
	offset := 0
	ctx := context.Background()

	for {
		var page []Activity
		req := c.dataAPI.R().
			SetResult(&page).
			SetQueryParam("user", walletAddress).
			SetQueryParam("limit", strconv.Itoa(c.pageLimit)).
			SetQueryParam("offset", strconv.Itoa(offset))

		resp, err := c.doRequest(ctx, "GET", "/activity", req)
		if err != nil {
			c.logger.Error("Failed to fetch activity", zap.Error(err), zap.String("wallet", walletAddress))
			return nil, fmt.Errorf("failed to fetch activity: %w", err)
		}

		page = *resp.Result().(*[]Activity)
		allActivity = append(allActivity, page...)

		if len(page) < c.pageLimit {
			break
		}
		offset += c.pageLimit
	}

	c.logger.Info("Fetched activity", zap.String("wallet", walletAddress), zap.Int("count", len(allActivity)))
	return allActivity, nil
}

// FetchPositions fetches current open positions for a wallet from the Data API.
func (c *Client) FetchPositions(walletAddress string) ([]Position, error) {
	var positions []Position
	req := c.dataAPI.R().
		SetResult(&positions).
		SetQueryParam("user", walletAddress)
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/positions", req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch positions: %w", err)
	}

	return *resp.Result().(*[]Position), nil
}
