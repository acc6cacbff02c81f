package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/wallet-insights/internal/cache"
	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/metrics"
	"github.com/wallet-insights/internal/retry"
	"github.com/wallet-insights/internal/types"
)

const (
	coinGeckoProvider = "coingecko"

	// DefaultHistoryDays is the history window used when none is given
	DefaultHistoryDays = 30

	currentPricesKey = "prices:current"
)

// CoinGeckoConfig configures a CoinGeckoClient
type CoinGeckoConfig struct {
	BaseURL       string
	APIKey        string
	RatePerMinute int
	Timeout       time.Duration
}

// CoinGeckoClient fetches spot and historical prices. Responses are cached and
// requests are retried with exponential backoff.
type CoinGeckoClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      cache.Cache
	policy     retry.Policy
}

// cgMarketChartResponse is the /market_chart payload
type cgMarketChartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// NewCoinGeckoClient creates a price client
func NewCoinGeckoClient(cfg CoinGeckoConfig, c cache.Cache) *CoinGeckoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &CoinGeckoClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1),
		cache:      c,
		policy:     retry.DefaultPolicy(coinGeckoProvider),
	}
}

// WithRetryPolicy replaces the retry policy
func (c *CoinGeckoClient) WithRetryPolicy(p retry.Policy) *CoinGeckoClient {
	c.policy = p
	return c
}

// WithRateLimiter replaces the outbound limiter
func (c *CoinGeckoClient) WithRateLimiter(l *rate.Limiter) *CoinGeckoClient {
	c.limiter = l
	return c
}

// GetCurrentPrices returns USD prices and 24h change for bitcoin and ethereum.
func (c *CoinGeckoClient) GetCurrentPrices(ctx context.Context) (types.CurrentPrices, error) {
	logger := logging.FromContext(ctx)

	var cached types.CurrentPrices
	if found, err := c.cache.Get(ctx, currentPricesKey, &cached); err != nil {
		logger.WithError(err).Warn("Price cache lookup failed")
	} else if found {
		logger.Debug("Returning cached prices")
		return cached, nil
	}

	return c.RefreshCurrentPrices(ctx)
}

// RefreshCurrentPrices fetches spot prices without consulting the cache and
// stores the result for later readers.
func (c *CoinGeckoClient) RefreshCurrentPrices(ctx context.Context) (types.CurrentPrices, error) {
	logger := logging.FromContext(ctx)

	return retry.Do(ctx, c.policy, func(ctx context.Context) (types.CurrentPrices, error) {
		query := url.Values{}
		query.Set("ids", "bitcoin,ethereum")
		query.Set("vs_currencies", "usd")
		query.Set("include_24hr_change", "true")

		var prices types.CurrentPrices
		if err := c.request(ctx, "/simple/price", query, &prices); err != nil {
			return nil, err
		}

		if err := c.cache.Set(ctx, currentPricesKey, prices); err != nil {
			logger.WithError(err).Warn("Failed to cache prices")
		}
		return prices, nil
	})
}

// GetCoinPrice returns the USD price of one coin
func (c *CoinGeckoClient) GetCoinPrice(ctx context.Context, coin string) (float64, error) {
	prices, err := c.GetCurrentPrices(ctx)
	if err != nil {
		return 0, err
	}

	price, ok := prices[coin]
	if !ok {
		return 0, apperrors.NewProviderError(coinGeckoProvider, fmt.Sprintf("Price not available for %s", coin))
	}
	return price.USD, nil
}

// GetHistoricalPrices returns the USD price series for coin over the last days.
func (c *CoinGeckoClient) GetHistoricalPrices(ctx context.Context, coin string, days int) ([]types.PricePoint, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}

	logger := logging.FromContext(ctx)
	key := cache.Key("history", coin, strconv.Itoa(days))

	var cached []types.PricePoint
	if found, err := c.cache.Get(ctx, key, &cached); err != nil {
		logger.WithError(err).WithField("key", key).Warn("History cache lookup failed")
	} else if found {
		return cached, nil
	}

	return retry.Do(ctx, c.policy, func(ctx context.Context) ([]types.PricePoint, error) {
		query := url.Values{}
		query.Set("vs_currency", "usd")
		query.Set("days", strconv.Itoa(days))

		var chart cgMarketChartResponse
		if err := c.request(ctx, "/coins/"+url.PathEscape(coin)+"/market_chart", query, &chart); err != nil {
			return nil, err
		}

		points := make([]types.PricePoint, 0, len(chart.Prices))
		for _, p := range chart.Prices {
			points = append(points, types.PricePoint{
				Timestamp: int64(p[0]),
				Price:     p[1],
			})
		}

		if err := c.cache.Set(ctx, key, points); err != nil {
			logger.WithError(err).WithField("key", key).Warn("Failed to cache price history")
		}
		return points, nil
	})
}

// request performs one rate-limited GET and decodes the JSON body into result.
func (c *CoinGeckoClient) request(ctx context.Context, endpoint string, query url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamLatency.WithLabelValues(coinGeckoProvider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(coinGeckoProvider, "error").Inc()
		return fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		metrics.UpstreamRequests.WithLabelValues(coinGeckoProvider, "error").Inc()
		return apperrors.NewProviderError(coinGeckoProvider, fmt.Sprintf("CoinGecko API error: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		metrics.UpstreamRequests.WithLabelValues(coinGeckoProvider, "error").Inc()
		return fmt.Errorf("failed to decode coingecko response: %w", err)
	}

	metrics.UpstreamRequests.WithLabelValues(coinGeckoProvider, "success").Inc()
	return nil
}
