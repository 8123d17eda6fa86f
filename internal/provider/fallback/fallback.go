// Package fallback holds the hand-authored records served when neither the
// upstream nor the cache can answer.
package fallback

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"coinproxy/internal/provider"
)

// DefaultCoin is served for detail lookups of unknown ids.
const DefaultCoin = "bitcoin"

// sparklinePoints is one point per hour over 7 days.
const sparklinePoints = 168

var records = []provider.CoinDetail{
	{
		ID:            "bitcoin",
		Name:          "Bitcoin",
		Symbol:        "BTC",
		Image:         "https://coin-images.coingecko.com/coins/images/1/large/bitcoin.png",
		MarketCapRank: 1,
		MarketData: provider.MarketData{
			CurrentPrice:                       provider.CurrencyValues{"usd": 45000, "brl": 225000, "eur": 41000},
			MarketCap:                          provider.CurrencyValues{"usd": 880000000000, "brl": 4400000000000, "eur": 800000000000},
			TotalVolume:                        provider.CurrencyValues{"usd": 30000000000, "brl": 150000000000, "eur": 27000000000},
			FullyDilutedValuation:              provider.CurrencyValues{"usd": 945000000000, "brl": 4725000000000, "eur": 861000000000},
			CirculatingSupply:                  19500000,
			TotalSupply:                        21000000,
			MaxSupply:                          21000000,
			PriceChangePercentage1h:            0.2,
			PriceChangePercentage24h:           2.5,
			PriceChangePercentage7d:            5.2,
			PriceChangePercentage30d:           8.1,
			PriceChangePercentage24hInCurrency: provider.CurrencyValues{"usd": 2.5, "brl": 2.5, "eur": 2.5},
			PriceChangePercentage7dInCurrency:  provider.CurrencyValues{"usd": 5.2, "brl": 5.2, "eur": 5.2},
			MarketCapChangePercentage24h:       2.4,
		},
	},
	{
		ID:            "ethereum",
		Name:          "Ethereum",
		Symbol:        "ETH",
		Image:         "https://coin-images.coingecko.com/coins/images/279/large/ethereum.png",
		MarketCapRank: 2,
		MarketData: provider.MarketData{
			CurrentPrice:                       provider.CurrencyValues{"usd": 2400, "brl": 12000, "eur": 2200},
			MarketCap:                          provider.CurrencyValues{"usd": 288000000000, "brl": 1440000000000, "eur": 260000000000},
			TotalVolume:                        provider.CurrencyValues{"usd": 15000000000, "brl": 75000000000, "eur": 13500000000},
			FullyDilutedValuation:              provider.CurrencyValues{"usd": 288000000000, "brl": 1440000000000, "eur": 260000000000},
			CirculatingSupply:                  120000000,
			PriceChangePercentage1h:            0.1,
			PriceChangePercentage24h:           1.8,
			PriceChangePercentage7d:            3.5,
			PriceChangePercentage30d:           6.4,
			PriceChangePercentage24hInCurrency: provider.CurrencyValues{"usd": 1.8, "brl": 1.8, "eur": 1.8},
			PriceChangePercentage7dInCurrency:  provider.CurrencyValues{"usd": 3.5, "brl": 3.5, "eur": 3.5},
			MarketCapChangePercentage24h:       1.7,
		},
	},
}

// Set is an immutable collection of fallback records. Every accessor returns
// copies, so the records can never be mutated through it.
type Set struct {
	byID      map[string]provider.CoinDetail
	order     []string
	defaultID string
}

// Records returns copies of the built-in records.
func Records() []provider.CoinDetail {
	out := make([]provider.CoinDetail, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Default returns the built-in records with bitcoin as the default coin.
func Default() *Set {
	return New(records, DefaultCoin)
}

// New builds a set from recs, ordered as given. If defaultID is not one of
// the records, the first record becomes the default.
func New(recs []provider.CoinDetail, defaultID string) *Set {
	s := &Set{byID: make(map[string]provider.CoinDetail, len(recs))}
	for _, r := range recs {
		id := strings.ToLower(r.ID)
		if _, dup := s.byID[id]; dup {
			continue
		}
		s.byID[id] = r.Clone()
		s.order = append(s.order, id)
	}
	s.defaultID = strings.ToLower(defaultID)
	if _, ok := s.byID[s.defaultID]; !ok && len(s.order) > 0 {
		s.defaultID = s.order[0]
	}
	return s
}

// Empty reports whether the set has no records at all.
func (s *Set) Empty() bool { return s == nil || len(s.order) == 0 }

// Len returns the number of records.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Detail returns the record for id, or the default record when id is unknown.
// exact reports whether id itself was found. ok is false only for an empty set.
func (s *Set) Detail(id string) (rec provider.CoinDetail, exact, ok bool) {
	if s.Empty() {
		return provider.CoinDetail{}, false, false
	}
	if r, found := s.byID[strings.ToLower(strings.TrimSpace(id))]; found {
		return r.Clone(), true, true
	}
	return s.byID[s.defaultID].Clone(), false, true
}

// Listing synthesizes listing rows for page/perPage in the given currency,
// using each record's value for that currency or its USD value when absent.
func (s *Set) Listing(q provider.ListingQuery) []provider.CoinSummary {
	if s.Empty() {
		return []provider.CoinSummary{}
	}
	q = q.WithDefaults(0, "")
	ids := slices.Clone(s.order)
	sortIDs(ids, s.byID, q.Order)

	pages := len(ids) / q.PerPage
	if len(ids)%q.PerPage != 0 {
		pages++
	}
	if q.Page > pages {
		return []provider.CoinSummary{}
	}
	start := (q.Page - 1) * q.PerPage
	end := min(start+q.PerPage, len(ids))

	out := make([]provider.CoinSummary, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, summary(s.byID[id], q.Currency))
	}
	return out
}

func summary(r provider.CoinDetail, currency string) provider.CoinSummary {
	md := r.MarketData
	price := md.CurrentPrice.Get(currency)
	return provider.CoinSummary{
		ID:                       r.ID,
		Name:                     r.Name,
		Symbol:                   strings.ToLower(r.Symbol),
		Image:                    r.Image,
		CurrentPrice:             price,
		MarketCap:                md.MarketCap.Get(currency),
		MarketCapRank:            r.MarketCapRank,
		TotalVolume:              md.TotalVolume.Get(currency),
		PriceChangePercentage24h: md.PriceChangePercentage24h,
		SparklineIn7d:            &provider.Sparkline{Price: sparkline(price)},
	}
}

// sparkline draws a gentle deterministic wave around price.
func sparkline(price float64) []float64 {
	out := make([]float64, sparklinePoints)
	amp := price * 0.02
	for i := range out {
		out[i] = price + math.Sin(float64(i)/10)*amp
	}
	return out
}

func sortIDs(ids []string, byID map[string]provider.CoinDetail, order string) {
	mcap := func(id string) float64 { return byID[id].MarketData.MarketCap.Get("usd") }
	vol := func(id string) float64 { return byID[id].MarketData.TotalVolume.Get("usd") }
	switch order {
	case "market_cap_asc":
		slices.SortStableFunc(ids, func(a, b string) int { return cmp.Compare(mcap(a), mcap(b)) })
	case "volume_desc":
		slices.SortStableFunc(ids, func(a, b string) int { return cmp.Compare(vol(b), vol(a)) })
	case "volume_asc":
		slices.SortStableFunc(ids, func(a, b string) int { return cmp.Compare(vol(a), vol(b)) })
	case "id_asc":
		slices.Sort(ids)
	case "id_desc":
		slices.Sort(ids)
		slices.Reverse(ids)
	default:
		slices.SortStableFunc(ids, func(a, b string) int { return cmp.Compare(mcap(b), mcap(a)) })
	}
}

