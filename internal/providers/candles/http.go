package candles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"eventpulse/internal/adapters/config"
	"eventpulse/internal/domain/candle"
	"eventpulse/internal/metrics"
	"eventpulse/pkg/errors"
)

// Compile-time check
var _ Provider = (*HTTPProvider)(nil)

// HTTPProvider fetches candles from the price history API over HTTP. All
// requests pass through a shared rate limiter so concurrent batch workers
// cannot exceed the provider's quota between them.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPProvider creates a provider from config
func NewHTTPProvider(cfg config.ProviderConfig) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
	}
}

// candleResponse is the provider's wire format
type candleResponse struct {
	Candles []struct {
		Timestamp int64   `json:"t"`
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
	} `json:"candles"`
}

// FetchMinute returns one-minute candles in [fromMs, toMs]
func (p *HTTPProvider) FetchMinute(ctx context.Context, pair string, fromMs, toMs int64) ([]candle.Candle, error) {
	return p.fetch(ctx, pair, "1m", fromMs, toMs)
}

// FetchHourly returns one-hour candles in [fromMs, toMs]
func (p *HTTPProvider) FetchHourly(ctx context.Context, pair string, fromMs, toMs int64) ([]candle.Candle, error) {
	return p.fetch(ctx, pair, "1h", fromMs, toMs)
}

func (p *HTTPProvider) fetch(ctx context.Context, pair, resolution string, fromMs, toMs int64) ([]candle.Candle, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter wait")
	}

	endpoint := fmt.Sprintf("%s/v1/candles/%s", p.baseURL, url.PathEscape(pair))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build candle request")
	}

	q := req.URL.Query()
	q.Set("resolution", resolution)
	q.Set("from", fmt.Sprintf("%d", fromMs))
	q.Set("to", fmt.Sprintf("%d", toMs))
	req.URL.RawQuery = q.Encode()

	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	metrics.ProviderLatency.WithLabelValues(resolution).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(resolution, "error").Inc()
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "fetch %s %s: %v", pair, resolution, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.ProviderCalls.WithLabelValues(resolution, "rate_limited").Inc()
		return nil, errors.Wrapf(errors.ErrRateLimitExceeded, "provider throttled %s", pair)
	case resp.StatusCode >= 500:
		metrics.ProviderCalls.WithLabelValues(resolution, "error").Inc()
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "provider returned %d for %s", resp.StatusCode, pair)
	case resp.StatusCode != http.StatusOK:
		metrics.ProviderCalls.WithLabelValues(resolution, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Newf("provider returned %d for %s: %s", resp.StatusCode, pair, string(body))
	}
	metrics.ProviderCalls.WithLabelValues(resolution, "success").Inc()

	var parsed candleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrapf(err, "decode candles for %s", pair)
	}

	out := make([]candle.Candle, 0, len(parsed.Candles))
	for _, c := range parsed.Candles {
		out = append(out, candle.Candle{
			Timestamp: c.Timestamp,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	return out, nil
}
