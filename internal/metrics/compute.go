// Package metrics computes the derived risk/liquidity fields persisted
// with each snapshot row. All functions are pure and total: an undefined
// metric comes back nil instead of an error.
package metrics

import (
	"time"

	"tokenpulse/internal/domain"
)

// VolumeMarketCapRatio returns total volume over market cap, or nil when
// the market cap is zero or negative.
func VolumeMarketCapRatio(totalVolume, marketCap float64) *float64 {
	if marketCap <= 0 {
		return nil
	}
	ratio := totalVolume / marketCap
	return &ratio
}

// Volatility returns the 24h high/low spread as a percentage of the
// current price, or nil when the price is zero or negative. A genuinely
// zero price yields nil rather than a fabricated value.
func Volatility(high, low, price float64) *float64 {
	if price <= 0 {
		return nil
	}
	v := (high - low) * 100 / price
	return &v
}

// Enrich turns one raw market entry into a persisted snapshot row,
// applying the decode defaults (absent price reads as 1, other absent
// numerics as 0) and stamping the row with the batch timestamp.
func Enrich(entry domain.MarketEntry, fetchedAt time.Time) domain.CoinSnapshot {
	price := 1.0
	if entry.CurrentPrice != nil {
		price = *entry.CurrentPrice
	}
	marketCap := orZero(entry.MarketCap)
	volume := orZero(entry.TotalVolume)
	high := orZero(entry.High24h)
	low := orZero(entry.Low24h)

	return domain.CoinSnapshot{
		Symbol:               entry.Symbol,
		Name:                 entry.Name,
		CurrentPrice:         price,
		MarketCap:            marketCap,
		TotalVolume:          volume,
		High24h:              high,
		Low24h:               low,
		PriceChange24h:       entry.PriceChange24h,
		TotalSupply:          entry.TotalSupply,
		VolumeMarketCapRatio: VolumeMarketCapRatio(volume, marketCap),
		Volatility:           Volatility(high, low, price),
		FetchedAt:            fetchedAt,
	}
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
