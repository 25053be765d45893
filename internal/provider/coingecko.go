package provider

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"tokenpulse/internal/domain"
	"tokenpulse/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultMarketsURL = "https://api.coingecko.com/api/v3/coins/markets?vs_currency=usd&per_page=250"

// CoinGecko's public tier allows roughly 30 calls per minute; a budget
// of 8 with one token accruing every 7.5s keeps sustained use well
// under it while letting a restart burst through immediately.
const (
	requestBudget = 8
	tokenInterval = 7500 * time.Millisecond
)

// CoinGeckoProvider fetches the market listing from the CoinGecko API and
// turns it into enriched snapshot rows.
type CoinGeckoProvider struct {
	client  *http.Client
	url     string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
	now     func() time.Time
}

// NewCoinGeckoProvider creates a provider with built-in rate limiting.
// An empty url falls back to the public markets endpoint.
func NewCoinGeckoProvider(url, apiKey string, tracer trace.Tracer) *CoinGeckoProvider {
	if url == "" {
		url = defaultMarketsURL
	}
	return &CoinGeckoProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		url:     url,
		apiKey:  apiKey,
		tracer:  tracer,
		limiter: NewRateLimiter(requestBudget, tokenInterval),
		now:     time.Now,
	}
}

// FetchTopMarkets issues one GET to the markets endpoint, ranks the
// returned assets by market cap descending (stable, so provider order
// breaks ties), truncates to limit, and enriches every row with the
// derived metrics. All rows share one fetched_at stamp captured once per
// call so a slow response cannot skew timestamps within a batch.
func (p *CoinGeckoProvider) FetchTopMarkets(ctx context.Context, limit int) ([]domain.CoinSnapshot, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-top-markets")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	body, err := p.doRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	entries, err := domain.DecodeMarketEntries(body)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", &domain.UpstreamError{Body: "malformed body: " + err.Error()})
	}

	if len(entries) == 0 {
		log.Println("Warning: provider returned zero market entries")
		return nil, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].MarketCapValue() > entries[j].MarketCapValue()
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	fetchedAt := p.now().UTC()
	snapshots := make([]domain.CoinSnapshot, 0, len(entries))
	for _, entry := range entries {
		snapshots = append(snapshots, metrics.Enrich(entry, fetchedAt))
	}

	return snapshots, nil
}

func (p *CoinGeckoProvider) doRequest(ctx context.Context) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-cg-api-key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}
