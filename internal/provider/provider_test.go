package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"idxscreener/internal/cache"
	"idxscreener/internal/logging"
	"idxscreener/pkg/model"
)

type fakeBars struct {
	name      string
	bars      []model.Candle
	err       error
	available bool
	calls     int
	lastDays  int
}

func (f *fakeBars) Name() string      { return f.name }
func (f *fakeBars) IsAvailable() bool { return f.available }
func (f *fakeBars) GetBars(ctx context.Context, ticker string, daysBack int) ([]model.Candle, error) {
	f.calls++
	f.lastDays = daysBack
	return f.bars, f.err
}

func makeBars(n int) []model.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = model.Candle{Time: start.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: float64(100 + i), Volume: 1000}
	}
	return out
}

func TestYahooSymbol(t *testing.T) {
	tests := map[string]string{
		"bbca":    "BBCA.JK",
		"TLKM":    "TLKM.JK",
		"BBRI.JK": "BBRI.JK",
	}
	for in, want := range tests {
		if got := YahooSymbol(in); got != want {
			t.Errorf("YahooSymbol(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestYahooGetBars(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("Expected daily interval, got %q", r.URL.Query().Get("interval"))
		}
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"BBCA.JK","currency":"IDR"},
			"timestamp":[1714608000,1714694400,1714953600],
			"indicators":{"quote":[{
				"open":[9000,null,9100],"high":[9100,9200,9250],"low":[8950,9000,9050],
				"close":[9050,9150,9200],"volume":[1000,2000,null]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	p := NewYahooProvider(srv.URL, 600, 5*time.Second, nil)
	bars, err := p.GetBars(context.Background(), "bbca", 10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if path != "/BBCA.JK" {
		t.Errorf("Expected /BBCA.JK, got %s", path)
	}
	// The bar with a null open is dropped, a null volume becomes 0
	if len(bars) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 9050 || bars[1].Close != 9200 || bars[1].Volume != 0 {
		t.Errorf("Unexpected bars %+v", bars)
	}
}

func TestYahooTrimsToDaysBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1,2,3],
			"indicators":{"quote":[{"open":[1,2,3],"high":[1,2,3],"low":[1,2,3],"close":[1,2,3],"volume":[1,1,1]}]}}]}}`)
	}))
	defer srv.Close()

	bars, err := NewYahooProvider(srv.URL, 600, 0, nil).GetBars(context.Background(), "TLKM", 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(bars) != 2 || bars[0].Close != 2 {
		t.Errorf("Expected the 2 most recent bars, got %+v", bars)
	}
}

func TestYahooErrors(t *testing.T) {
	serve := func(status int) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
	}
	limited := serve(http.StatusTooManyRequests)
	defer limited.Close()
	missing := serve(http.StatusNotFound)
	defer missing.Close()

	_, err := NewYahooProvider(limited.URL, 600, 0, nil).GetBars(context.Background(), "BBCA", 10)
	if !IsRetryable(err) {
		t.Errorf("Expected retryable error on 429, got %v", err)
	}

	_, err = NewYahooProvider(missing.URL, 600, 0, nil).GetBars(context.Background(), "BBCA", 10)
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Retryable {
		t.Errorf("Expected non-retryable provider error on 404, got %v", err)
	}
}

func TestYahooPausesAfterRateLimit(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewYahooProvider(srv.URL, 6000, 0, nil)
	if _, err := p.GetBars(context.Background(), "BBCA", 10); !IsRetryable(err) {
		t.Fatalf("Expected retryable error on 429, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.GetBars(ctx, "BBCA", 10); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected the next call to wait out the backoff, got %v", err)
	}
	if hits != 1 {
		t.Errorf("Expected no request during the backoff, got %d", hits)
	}
}

func TestFallbackProvider(t *testing.T) {
	store := &fakeBars{name: "store", available: true, err: &ProviderError{Provider: "store", Err: ErrNoData}}
	live := &fakeBars{name: "yahoo", available: true, bars: makeBars(3)}
	off := &fakeBars{name: "off", available: false, bars: makeBars(1)}

	f := NewFallbackProvider(off, store, live)
	if len(f.Providers()) != 2 {
		t.Errorf("Expected unavailable providers filtered, got %d", len(f.Providers()))
	}

	bars, err := f.GetBars(context.Background(), "BBCA", 300)
	if err != nil || len(bars) != 3 {
		t.Fatalf("Expected bars from the live provider, got %d (%v)", len(bars), err)
	}
	if store.calls != 1 || live.calls != 1 || off.calls != 0 {
		t.Errorf("Unexpected call counts store=%d live=%d off=%d", store.calls, live.calls, off.calls)
	}
}

func TestFallbackProviderAllFail(t *testing.T) {
	f := NewFallbackProvider(
		&fakeBars{name: "a", available: true, err: errors.New("a down")},
		&fakeBars{name: "b", available: true},
	)
	if _, err := f.GetBars(context.Background(), "BBCA", 10); err == nil || err.Error() != "a down" {
		t.Errorf("Expected last real error, got %v", err)
	}

	empty := NewFallbackProvider()
	if _, err := empty.GetBars(context.Background(), "BBCA", 10); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData with no providers, got %v", err)
	}
}

func TestFallbackProviderMinBars(t *testing.T) {
	tests := []struct {
		name      string
		store     int
		live      int
		minBars   int
		wantLen   int
		liveCalls int
	}{
		{"store long enough", 300, 300, 252, 300, 0},
		{"short store falls through", 60, 300, 252, 300, 1},
		{"both short keeps longest", 60, 40, 252, 60, 1},
		{"plain GetBars semantics", 60, 300, 1, 60, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeBars{name: "store", available: true, bars: makeBars(tt.store)}
			live := &fakeBars{name: "yahoo", available: true, bars: makeBars(tt.live)}
			f := NewFallbackProvider(store, live)

			bars, err := f.GetBarsMin(context.Background(), "BBCA", 300, tt.minBars)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(bars) != tt.wantLen {
				t.Errorf("Expected %d bars, got %d", tt.wantLen, len(bars))
			}
			if live.calls != tt.liveCalls {
				t.Errorf("Expected %d live calls, got %d", tt.liveCalls, live.calls)
			}
		})
	}
}

func TestCachingProvider(t *testing.T) {
	inner := &fakeBars{name: "yahoo", available: true, bars: makeBars(300)}
	p := NewCachingProvider(inner, cache.NewMemory(), time.Hour, 300)
	ctx := context.Background()

	bars, err := p.GetBars(ctx, "BBCA", 60)
	if err != nil || len(bars) != 60 {
		t.Fatalf("Expected 60 bars, got %d (%v)", len(bars), err)
	}
	if inner.lastDays != 300 {
		t.Errorf("Expected a full 300-day fetch, got %d", inner.lastDays)
	}

	bars, _ = p.GetBars(ctx, "BBCA", 300)
	if inner.calls != 1 {
		t.Errorf("Expected the second call to hit the cache, got %d fetches", inner.calls)
	}
	if len(bars) != 300 || bars[299].Close != 399 {
		t.Errorf("Unexpected cached bars (len %d)", len(bars))
	}
}

func TestCachingProviderDoesNotCacheErrors(t *testing.T) {
	inner := &fakeBars{name: "yahoo", available: true, err: errors.New("timeout")}
	p := NewCachingProvider(inner, cache.NewMemory(), time.Hour, 300)

	p.GetBars(context.Background(), "BBCA", 10)
	p.GetBars(context.Background(), "BBCA", 10)
	if inner.calls != 2 {
		t.Errorf("Expected errors to bypass the cache, got %d fetches", inner.calls)
	}
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string, dest any) error {
	return cache.ErrMiss
}

func (brokenCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return errors.New("redis: connection refused")
}

func TestCachingProviderLogsWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	inner := &fakeBars{name: "yahoo", available: true, bars: makeBars(20)}
	p := NewCachingProvider(inner, brokenCache{}, time.Hour, 300)
	p.SetLogger(logging.NewWithWriter("debug", "json", &buf))

	bars, err := p.GetBars(context.Background(), "BBCA", 10)
	if err != nil || len(bars) != 10 {
		t.Fatalf("Expected bars despite the cache failure, got %d (%v)", len(bars), err)
	}

	out := buf.String()
	for _, want := range []string{"cache write failed", "BBCA", "connection refused"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %q, got %s", want, out)
		}
	}
}

func TestHTTPFlowProvider(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		switch {
		case r.URL.Path == "/broker-summary/BBCA" && r.URL.Query().Get("date") == "2024-05-02":
			fmt.Fprint(w, `{"date":"2024-05-02","acc_dist_tag":"Big Acc",
				"top_buyers":[{"broker_code":"ak","value":5000000000,"lots":50000}],
				"top_sellers":[{"broker_code":"YP","value":1000000000,"lots":10000,"category":"Retail"}]}`)
		case r.URL.Path == "/broker-summary/BBCA":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	p := NewHTTPFlowProvider(srv.URL+"/", "secret", 600, nil)
	ctx := context.Background()
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	flow, err := p.GetDailyBrokerFlow(ctx, "bbca", day)
	if err != nil || flow == nil {
		t.Fatalf("Expected a flow, got %v (%v)", flow, err)
	}
	if auth != "Bearer secret" {
		t.Errorf("Expected bearer token, got %q", auth)
	}
	if flow.AccDistTag != model.TagBigAcc || flow.TopBuyers[0].BrokerCode != "AK" || flow.TopSellers[0].Category != model.CategoryRetail {
		t.Errorf("Unexpected flow %+v", flow)
	}

	flow, err = p.GetDailyBrokerFlow(ctx, "BBCA", day.AddDate(0, 0, 1))
	if err != nil || flow != nil {
		t.Errorf("Expected no data on 404, got %v (%v)", flow, err)
	}

	_, err = p.GetDailyBrokerFlow(ctx, "TLKM", day)
	if !IsRetryable(err) {
		t.Errorf("Expected retryable error on 500, got %v", err)
	}
}

type fakeFlowStore struct {
	flow *model.DailyBrokerFlow
	err  error
}

func (f fakeFlowStore) GetBrokerFlow(ctx context.Context, ticker string, date time.Time) (*model.DailyBrokerFlow, error) {
	return f.flow, f.err
}

type fakeFlowSource struct {
	flow  *model.DailyBrokerFlow
	calls int
}

func (f *fakeFlowSource) Name() string { return "live" }
func (f *fakeFlowSource) GetDailyBrokerFlow(ctx context.Context, ticker string, date time.Time) (*model.DailyBrokerFlow, error) {
	f.calls++
	return f.flow, nil
}

func TestFallbackFlowProvider(t *testing.T) {
	live := &fakeFlowSource{flow: &model.DailyBrokerFlow{AccDistTag: model.TagAcc}}
	stored := NewStoreFlowProvider(fakeFlowStore{})

	f := NewFallbackFlowProvider(stored, nil, live)
	flow, err := f.GetDailyBrokerFlow(context.Background(), "BBCA", time.Now())
	if err != nil || flow == nil || flow.AccDistTag != model.TagAcc {
		t.Errorf("Expected the live flow, got %v (%v)", flow, err)
	}

	hit := NewFallbackFlowProvider(NewStoreFlowProvider(fakeFlowStore{flow: &model.DailyBrokerFlow{AccDistTag: model.TagDist}}), live)
	flow, _ = hit.GetDailyBrokerFlow(context.Background(), "BBCA", time.Now())
	if flow.AccDistTag != model.TagDist || live.calls != 1 {
		t.Errorf("Expected the stored flow without a live call, got %s (%d calls)", flow.AccDistTag, live.calls)
	}
}

func TestStoreProvider(t *testing.T) {
	if NewStoreProvider(nil).IsAvailable() {
		t.Error("Nil store should be unavailable")
	}

	_, err := NewStoreProvider(emptyStore{}).GetBars(context.Background(), "BBCA", 10)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData for an empty table, got %v", err)
	}
}

type emptyStore struct{}

func (emptyStore) GetBars(ctx context.Context, ticker string, daysBack int) ([]model.Candle, error) {
	return nil, nil
}

func TestStaticSectors(t *testing.T) {
	s := NewStaticSectors(map[string]string{"bbca": "Financials", "XXXX": ""})
	if got := s.GetSector("BBCA"); got != "Financials" {
		t.Errorf("Expected Financials, got %s", got)
	}
	if got := s.GetSector("XXXX"); got != UnknownSector {
		t.Errorf("Expected Unknown for a blank sector, got %s", got)
	}
	if got := s.GetSector("ZZZZ"); !strings.EqualFold(got, "unknown") {
		t.Errorf("Expected Unknown, got %s", got)
	}
}
