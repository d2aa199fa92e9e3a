package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"idxscreener/internal/metrics"
	"idxscreener/internal/ratelimit"
	"idxscreener/pkg/model"
)

// HTTPFlowProvider reads daily broker summaries from a JSON endpoint:
//
//	GET {base}/broker-summary/{ticker}?date=YYYY-MM-DD
type HTTPFlowProvider struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	baseURL string
	token   string
	metrics *metrics.Metrics
}

// NewHTTPFlowProvider creates a broker-summary client. token is sent as a bearer token when set.
func NewHTTPFlowProvider(baseURL, token string, perMinute int, m *metrics.Metrics) *HTTPFlowProvider {
	if perMinute <= 0 {
		perMinute = 50
	}
	return &HTTPFlowProvider{
		client:  &http.Client{Timeout: 20 * time.Second},
		limiter: ratelimit.NewLimiter("flow", perMinute),
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		metrics: m,
	}
}

func (p *HTTPFlowProvider) Name() string { return "broker-summary" }

type flowEntryJSON struct {
	BrokerCode string  `json:"broker_code"`
	Value      float64 `json:"value"`
	Lots       int64   `json:"lots"`
	Category   string  `json:"category"`
}

type flowResponse struct {
	Date       string          `json:"date"`
	AccDistTag string          `json:"acc_dist_tag"`
	TopBuyers  []flowEntryJSON `json:"top_buyers"`
	TopSellers []flowEntryJSON `json:"top_sellers"`
}

func toEntries(in []flowEntryJSON) []model.BrokerEntry {
	out := make([]model.BrokerEntry, 0, len(in))
	for _, e := range in {
		out = append(out, model.BrokerEntry{
			BrokerCode: strings.ToUpper(e.BrokerCode),
			Value:      e.Value,
			Lots:       e.Lots,
			Category:   model.ParseBrokerCategory(e.Category),
		})
	}
	return out
}

// GetDailyBrokerFlow fetches one day's leaderboard; 404 or an empty board is no data
func (p *HTTPFlowProvider) GetDailyBrokerFlow(ctx context.Context, ticker string, date time.Time) (*model.DailyBrokerFlow, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	day := date.Format("2006-01-02")
	u := fmt.Sprintf("%s/broker-summary/%s?date=%s", p.baseURL, url.PathEscape(strings.ToUpper(ticker)), day)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.metrics.ProviderRequest(p.Name(), "error")
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		p.metrics.ProviderRequest(p.Name(), "empty")
		return nil, nil
	case http.StatusTooManyRequests:
		p.limiter.SignalRateLimited()
		p.metrics.ProviderRequest(p.Name(), "rate_limited")
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true}
	default:
		p.metrics.ProviderRequest(p.Name(), "error")
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: resp.StatusCode >= 500}
	}

	p.limiter.ResetBackoff()

	var data flowResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		p.metrics.ProviderRequest(p.Name(), "error")
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(data.TopBuyers) == 0 && len(data.TopSellers) == 0 {
		p.metrics.ProviderRequest(p.Name(), "empty")
		return nil, nil
	}
	p.metrics.ProviderRequest(p.Name(), "ok")

	flowDate := date
	if data.Date != "" {
		if d, err := time.Parse("2006-01-02", data.Date); err == nil {
			flowDate = d
		}
	}

	return &model.DailyBrokerFlow{
		Date:       flowDate,
		TopBuyers:  toEntries(data.TopBuyers),
		TopSellers: toEntries(data.TopSellers),
		AccDistTag: model.ParseAccDistTag(data.AccDistTag),
	}, nil
}
