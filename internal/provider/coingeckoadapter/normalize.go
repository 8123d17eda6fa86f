package coingeckoadapter

import (
	"strings"

	"coinproxy/internal/provider"
	"coinproxy/internal/provider/coingecko"
)

// currencySchema lists every per-currency block of a coin's market data.
// Each one goes through currencyValues, so the zero-fill rule lives in one place.
var currencySchema = []struct {
	src func(*coingecko.MarketData) coingecko.CurrencyMap
	dst func(*provider.MarketData) *provider.CurrencyValues
}{
	{
		src: func(m *coingecko.MarketData) coingecko.CurrencyMap { return m.CurrentPrice },
		dst: func(m *provider.MarketData) *provider.CurrencyValues { return &m.CurrentPrice },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.CurrencyMap { return m.MarketCap },
		dst: func(m *provider.MarketData) *provider.CurrencyValues { return &m.MarketCap },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.CurrencyMap { return m.TotalVolume },
		dst: func(m *provider.MarketData) *provider.CurrencyValues { return &m.TotalVolume },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.CurrencyMap { return m.FullyDilutedValuation },
		dst: func(m *provider.MarketData) *provider.CurrencyValues { return &m.FullyDilutedValuation },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.CurrencyMap { return m.PriceChangePercentage24hInCurrency },
		dst: func(m *provider.MarketData) *provider.CurrencyValues { return &m.PriceChangePercentage24hInCurrency },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.CurrencyMap { return m.PriceChangePercentage7dInCurrency },
		dst: func(m *provider.MarketData) *provider.CurrencyValues { return &m.PriceChangePercentage7dInCurrency },
	},
}

// numberSchema lists the scalar fields; missing or null becomes 0.
var numberSchema = []struct {
	src func(*coingecko.MarketData) coingecko.NullFloat
	dst func(*provider.MarketData) *float64
}{
	{
		src: func(m *coingecko.MarketData) coingecko.NullFloat { return m.CirculatingSupply },
		dst: func(m *provider.MarketData) *float64 { return &m.CirculatingSupply },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.NullFloat { return m.TotalSupply },
		dst: func(m *provider.MarketData) *float64 { return &m.TotalSupply },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.NullFloat { return m.MaxSupply },
		dst: func(m *provider.MarketData) *float64 { return &m.MaxSupply },
	},
	{
		// The API has no top-level 1h change; the USD in-currency value is used.
		src: func(m *coingecko.MarketData) coingecko.NullFloat { return m.PriceChangePercentage1hInCurrency["usd"] },
		dst: func(m *provider.MarketData) *float64 { return &m.PriceChangePercentage1h },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.NullFloat { return m.PriceChangePercentage24h },
		dst: func(m *provider.MarketData) *float64 { return &m.PriceChangePercentage24h },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.NullFloat { return m.PriceChangePercentage7d },
		dst: func(m *provider.MarketData) *float64 { return &m.PriceChangePercentage7d },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.NullFloat { return m.PriceChangePercentage30d },
		dst: func(m *provider.MarketData) *float64 { return &m.PriceChangePercentage30d },
	},
	{
		src: func(m *coingecko.MarketData) coingecko.NullFloat { return m.MarketCapChangePercentage24h },
		dst: func(m *provider.MarketData) *float64 { return &m.MarketCapChangePercentage24h },
	},
}

// currencyValues zero-fills the required currencies and copies every valid
// upstream value over them.
func currencyValues(m coingecko.CurrencyMap) provider.CurrencyValues {
	out := make(provider.CurrencyValues, len(provider.RequiredCurrencies)+len(m))
	for _, c := range provider.RequiredCurrencies {
		out[c] = 0
	}
	for k, v := range m {
		if v.Valid {
			out[strings.ToLower(k)] = v.Value
		}
	}
	return out
}

// NormalizeMarketData applies both schemas to a raw block. A nil block yields
// fully zero-filled market data.
func NormalizeMarketData(raw *coingecko.MarketData) provider.MarketData {
	if raw == nil {
		raw = &coingecko.MarketData{}
	}
	var md provider.MarketData
	for _, f := range currencySchema {
		*f.dst(&md) = currencyValues(f.src(raw))
	}
	for _, f := range numberSchema {
		*f.dst(&md) = f.src(raw).Float()
	}
	return md
}

// NormalizeCoin converts a raw coin into a CoinDetail.
func NormalizeCoin(c *coingecko.Coin) provider.CoinDetail {
	if c == nil {
		c = &coingecko.Coin{}
	}
	return provider.CoinDetail{
		ID:            c.ID,
		Name:          c.Name,
		Symbol:        strings.ToUpper(c.Symbol),
		Image:         firstNonEmpty(c.Image.Large, c.Image.Small, c.Image.Thumb),
		MarketCapRank: int(c.MarketCapRank.Float()),
		MarketData:    NormalizeMarketData(c.MarketData),
		LastUpdated:   c.LastUpdated,
	}
}

// NormalizeMarket converts a raw listing record into a CoinSummary. Null
// sparkline points are dropped; a missing sparkline stays omitted.
func NormalizeMarket(m coingecko.Market) provider.CoinSummary {
	out := provider.CoinSummary{
		ID:                       m.ID,
		Name:                     m.Name,
		Symbol:                   m.Symbol,
		Image:                    m.Image,
		CurrentPrice:             m.CurrentPrice.Float(),
		MarketCap:                m.MarketCap.Float(),
		MarketCapRank:            int(m.MarketCapRank.Float()),
		TotalVolume:              m.TotalVolume.Float(),
		PriceChangePercentage24h: m.PriceChangePercentage24h.Float(),
	}
	if m.SparklineIn7d != nil {
		prices := make([]float64, 0, len(m.SparklineIn7d.Price))
		for _, p := range m.SparklineIn7d.Price {
			if p.Valid {
				prices = append(prices, p.Value)
			}
		}
		out.SparklineIn7d = &provider.Sparkline{Price: prices}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
