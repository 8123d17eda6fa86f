package coingecko

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// NullFloat is a lenient JSON number. It accepts numbers, numeric strings and
// null, and never fails decoding: anything else leaves it invalid.
type NullFloat struct {
	Value float64
	Valid bool
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	*n = NullFloat{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		b = []byte(s)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return nil
	}
	n.Value, n.Valid = v, true
	return nil
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Float returns the value or 0 when invalid.
func (n NullFloat) Float() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

// CurrencyMap is a per-currency block such as current_price.
type CurrencyMap map[string]NullFloat

// Market is one raw record of /coins/markets.
type Market struct {
	ID                       string     `json:"id"`
	Symbol                   string     `json:"symbol"`
	Name                     string     `json:"name"`
	Image                    string     `json:"image"`
	CurrentPrice             NullFloat  `json:"current_price"`
	MarketCap                NullFloat  `json:"market_cap"`
	MarketCapRank            NullFloat  `json:"market_cap_rank"`
	TotalVolume              NullFloat  `json:"total_volume"`
	PriceChangePercentage24h NullFloat  `json:"price_change_percentage_24h"`
	SparklineIn7d            *Sparkline `json:"sparkline_in_7d"`
	LastUpdated              string     `json:"last_updated"`
}

// Sparkline is the raw 7 day series.
type Sparkline struct {
	Price []NullFloat `json:"price"`
}

// Image holds the image URLs of a coin.
type Image struct {
	Thumb string `json:"thumb"`
	Small string `json:"small"`
	Large string `json:"large"`
}

// Coin is the raw record of /coins/{id}.
type Coin struct {
	ID            string      `json:"id"`
	Symbol        string      `json:"symbol"`
	Name          string      `json:"name"`
	Image         Image       `json:"image"`
	MarketCapRank NullFloat   `json:"market_cap_rank"`
	MarketData    *MarketData `json:"market_data"`
	LastUpdated   string      `json:"last_updated"`
}

// MarketData is the raw market_data block of a Coin.
type MarketData struct {
	CurrentPrice                       CurrencyMap `json:"current_price"`
	MarketCap                          CurrencyMap `json:"market_cap"`
	TotalVolume                        CurrencyMap `json:"total_volume"`
	FullyDilutedValuation              CurrencyMap `json:"fully_diluted_valuation"`
	CirculatingSupply                  NullFloat   `json:"circulating_supply"`
	TotalSupply                        NullFloat   `json:"total_supply"`
	MaxSupply                          NullFloat   `json:"max_supply"`
	PriceChangePercentage24h           NullFloat   `json:"price_change_percentage_24h"`
	PriceChangePercentage7d            NullFloat   `json:"price_change_percentage_7d"`
	PriceChangePercentage30d           NullFloat   `json:"price_change_percentage_30d"`
	PriceChangePercentage1hInCurrency  CurrencyMap `json:"price_change_percentage_1h_in_currency"`
	PriceChangePercentage24hInCurrency CurrencyMap `json:"price_change_percentage_24h_in_currency"`
	PriceChangePercentage7dInCurrency  CurrencyMap `json:"price_change_percentage_7d_in_currency"`
	MarketCapChangePercentage24h       NullFloat   `json:"market_cap_change_percentage_24h"`
}
