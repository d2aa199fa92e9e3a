package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"idxscreener/internal/metrics"
	"idxscreener/internal/ratelimit"
	"idxscreener/pkg/model"
)

const (
	yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	// IDX listings carry the .JK suffix on Yahoo
	idxSuffix = ".JK"
)

// YahooProvider fetches daily IDX bars from the Yahoo Finance chart API (unofficial)
type YahooProvider struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	baseURL string
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewYahooProvider creates a new Yahoo Finance provider.
// perMinute caps request rate; baseURL may be empty for the public endpoint.
func NewYahooProvider(baseURL string, perMinute int, timeout time.Duration, m *metrics.Metrics) *YahooProvider {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	if perMinute <= 0 {
		perMinute = 60
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooProvider{
		client:  &http.Client{Timeout: timeout},
		limiter: ratelimit.NewLimiter("yahoo", perMinute),
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: m,
		now:     time.Now,
	}
}

// Name returns the provider name
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// IsAvailable always returns true (no API key needed)
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// YahooSymbol maps an IDX ticker to its Yahoo symbol
func YahooSymbol(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if strings.Contains(t, ".") {
		return t
	}
	return t + idxSuffix
}

// yahooResponse represents the Yahoo Finance API response.
// Quote arrays hold nulls on halted or partial days.
type yahooResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetBars fetches up to daysBack daily bars, oldest first
func (p *YahooProvider) GetBars(ctx context.Context, ticker string, daysBack int) ([]model.Candle, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Calendar span covering daysBack sessions plus weekends and holidays
	end := p.now()
	start := end.AddDate(0, 0, -(daysBack*3/2 + 10))

	url := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&includePrePost=false&events=history",
		p.baseURL, YahooSymbol(ticker), start.Unix(), end.Unix())

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := p.client.Do(req)
	if err != nil {
		p.metrics.ProviderRequest(p.Name(), "error")
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.SignalRateLimited()
		p.metrics.ProviderRequest(p.Name(), "rate_limited")
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		p.metrics.ProviderRequest(p.Name(), "error")
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	p.limiter.ResetBackoff()

	var data yahooResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		p.metrics.ProviderRequest(p.Name(), "error")
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if data.Chart.Error != nil {
		p.metrics.ProviderRequest(p.Name(), "error")
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.Chart.Error.Description), Retryable: false}
	}

	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Timestamp) == 0 || len(data.Chart.Result[0].Indicators.Quote) == 0 {
		p.metrics.ProviderRequest(p.Name(), "empty")
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	p.metrics.ProviderRequest(p.Name(), "ok")

	result := data.Chart.Result[0]
	quotes := result.Indicators.Quote[0]
	loc := jakarta()

	candles := make([]model.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quotes.Open, i), at(quotes.High, i), at(quotes.Low, i), at(quotes.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		if !finite(*o, *h, *l, *c) {
			continue
		}

		var volume int64
		if v := at(quotes.Volume, i); v != nil {
			volume = *v
		}

		candles = append(candles, model.Candle{
			Time:   time.Unix(ts, 0).In(loc),
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *c,
			Volume: volume,
		})
	}

	if len(candles) > daysBack {
		candles = candles[len(candles)-daysBack:]
	}
	return candles, nil
}

func at[T any](values []*T, i int) *T {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func jakarta() *time.Location {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		return time.FixedZone("WIB", 7*3600)
	}
	return loc
}
