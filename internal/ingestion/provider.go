package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/guttosm/stockdaily/config"
)

// clientTimeout bounds one provider call.
const clientTimeout = 30 * time.Second

// Fetcher returns the raw daily time series payload for a symbol.
type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string) ([]byte, error)
}

// ProviderStatusError reports a non-200 answer from the provider.
type ProviderStatusError struct {
	Symbol     string
	StatusCode int
}

func (e *ProviderStatusError) Error() string {
	return fmt.Sprintf("alphavantage %s: unexpected status %d", e.Symbol, e.StatusCode)
}

// AlphaVantageClient calls the Alpha Vantage query endpoint.
type AlphaVantageClient struct {
	client     *resty.Client
	endpoint   string
	function   string
	outputSize string
	apiKey     string
}

// NewAlphaVantageClient builds a client from provider settings.
func NewAlphaVantageClient(cfg config.ProviderConfig) *AlphaVantageClient {
	client := resty.New()
	client.SetTimeout(clientTimeout)
	client.SetHeader("Accept", "application/json")

	return &AlphaVantageClient{
		client:     client,
		endpoint:   cfg.Endpoint(),
		function:   cfg.Function,
		outputSize: cfg.OutputSize,
		apiKey:     cfg.APIKey,
	}
}

// FetchDaily issues GET {base}/{action}?function&symbol&outputsize&apikey.
// Anything other than 200 is a *ProviderStatusError. No retries.
func (c *AlphaVantageClient) FetchDaily(ctx context.Context, symbol string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   c.function,
			"symbol":     symbol,
			"outputsize": c.outputSize,
			"apikey":     c.apiKey,
		}).
		Get(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &ProviderStatusError{Symbol: symbol, StatusCode: resp.StatusCode()}
	}
	return resp.Body(), nil
}
