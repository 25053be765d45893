package domain

import (
	"encoding/json"
	"time"
)

// MarketEntry is one raw asset row as returned by the CoinGecko
// /coins/markets endpoint. Numeric fields are pointers because the API
// sends JSON null for assets it has no data for.
type MarketEntry struct {
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	CurrentPrice   *float64 `json:"current_price"`
	MarketCap      *float64 `json:"market_cap"`
	TotalVolume    *float64 `json:"total_volume"`
	High24h        *float64 `json:"high_24h"`
	Low24h         *float64 `json:"low_24h"`
	PriceChange24h *float64 `json:"price_change_percentage_24h"`
	TotalSupply    *float64 `json:"total_supply"`
}

// MarketCapValue returns the market cap with absent values read as 0,
// which is the ranking default.
func (e *MarketEntry) MarketCapValue() float64 {
	if e.MarketCap == nil {
		return 0
	}
	return *e.MarketCap
}

// CoinSnapshot is one enriched, persisted row of the snapshot table.
// Derived fields are pointers: an undefined metric is stored as SQL NULL
// and serialized as JSON null.
type CoinSnapshot struct {
	Symbol               string    `json:"symbol"`
	Name                 string    `json:"name"`
	CurrentPrice         float64   `json:"current_price"`
	MarketCap            float64   `json:"market_cap"`
	TotalVolume          float64   `json:"total_volume"`
	High24h              float64   `json:"high_24h"`
	Low24h               float64   `json:"low_24h"`
	PriceChange24h       *float64  `json:"price_change_percentage_24h"`
	TotalSupply          *float64  `json:"total_supply"`
	VolumeMarketCapRatio *float64  `json:"volume_marketcap_ratio"`
	Volatility           *float64  `json:"volatility"`
	FetchedAt            time.Time `json:"fetched_at"`
}

// DecodeMarketEntries parses the provider response body. An empty array
// is valid and yields an empty slice.
func DecodeMarketEntries(body []byte) ([]MarketEntry, error) {
	var entries []MarketEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
