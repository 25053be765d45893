package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tokenpulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func newTestProvider(serverURL string) *CoinGeckoProvider {
	p := NewCoinGeckoProvider(serverURL, "test-key", trace.NewNoopTracerProvider().Tracer("test"))
	p.limiter = NewRateLimiter(1000, time.Millisecond)
	return p
}

func TestFetchTopMarketsRanksAndTruncates(t *testing.T) {
	var rows []string
	for i := 0; i < 150; i++ {
		rows = append(rows, fmt.Sprintf(`{"symbol":"c%d","name":"Coin %d","current_price":10,"market_cap":%d,"total_volume":1,"high_24h":2,"low_24h":1}`, i, i, i+1))
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-cg-api-key"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}
		fmt.Fprintf(w, "[%s]", strings.Join(rows, ","))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	snaps, err := p.FetchTopMarkets(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 100 {
		t.Fatalf("expected 100 snapshots, got %d", len(snaps))
	}
	if snaps[0].MarketCap != 150 {
		t.Fatalf("expected max market cap first, got %v", snaps[0].MarketCap)
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i].MarketCap > snaps[i-1].MarketCap {
			t.Fatalf("snapshots not sorted by market cap at index %d", i)
		}
	}
}

func TestFetchTopMarketsBatchStamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"btc","market_cap":2},{"symbol":"eth","market_cap":1}]`)
	}))
	defer srv.Close()

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newTestProvider(srv.URL)
	p.now = func() time.Time { return fixed }

	snaps, err := p.FetchTopMarkets(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range snaps {
		if !s.FetchedAt.Equal(fixed) {
			t.Fatalf("expected shared batch stamp %v, got %v", fixed, s.FetchedAt)
		}
	}
}

func TestFetchTopMarketsStableTieBreak(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"a","market_cap":5},{"symbol":"b","market_cap":5},{"symbol":"c","market_cap":9}]`)
	}))
	defer srv.Close()

	snaps, err := newTestProvider(srv.URL).FetchTopMarkets(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snaps[0].Symbol != "c" || snaps[1].Symbol != "a" || snaps[2].Symbol != "b" {
		t.Fatalf("tie break must keep provider order, got %s %s %s", snaps[0].Symbol, snaps[1].Symbol, snaps[2].Symbol)
	}
}

func TestFetchTopMarketsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	snaps, err := newTestProvider(srv.URL).FetchTopMarkets(context.Background(), 10)
	if err != nil {
		t.Fatalf("empty listing must not be an error, got %v", err)
	}
	if len(snaps) != 0 {
		t.Fatalf("expected zero snapshots, got %d", len(snaps))
	}
}

func TestFetchTopMarketsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).FetchTopMarkets(context.Background(), 10)
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", upErr.Status)
	}
	if !strings.Contains(upErr.Body, "rate limited") {
		t.Fatalf("expected body to carry upstream message, got %q", upErr.Body)
	}
}

func TestFetchTopMarketsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"not":"an array"}`)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).FetchTopMarkets(context.Background(), 10)
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError for malformed body, got %v", err)
	}
}
