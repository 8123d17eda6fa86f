package fallback

import (
	"math"
	"testing"

	"coinproxy/internal/provider"

	"github.com/stretchr/testify/require"
)

func TestDefault_Detail(t *testing.T) {
	t.Parallel()

	s := Default()
	require.Equal(t, 2, s.Len())

	tests := []struct {
		name      string
		id        string
		wantID    string
		wantExact bool
	}{
		{name: "bitcoin", id: "bitcoin", wantID: "bitcoin", wantExact: true},
		{name: "ethereum mixed case", id: " Ethereum ", wantID: "ethereum", wantExact: true},
		{name: "unknown falls back to default", id: "dogecoin", wantID: "bitcoin"},
		{name: "empty id", id: "", wantID: "bitcoin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, exact, ok := s.Detail(tt.id)
			require.True(t, ok)
			require.Equal(t, tt.wantExact, exact)
			require.Equal(t, tt.wantID, rec.ID)
		})
	}
}

func TestDefault_RecordsCarryRequiredCurrencies(t *testing.T) {
	t.Parallel()

	s := Default()
	for _, id := range []string{"bitcoin", "ethereum"} {
		rec, _, _ := s.Detail(id)
		for _, cv := range []provider.CurrencyValues{
			rec.MarketData.CurrentPrice,
			rec.MarketData.MarketCap,
			rec.MarketData.TotalVolume,
		} {
			for _, c := range provider.RequiredCurrencies {
				_, ok := cv[c]
				require.Truef(t, ok, "%s missing %s", id, c)
			}
		}
	}

	btc, _, _ := s.Detail("bitcoin")
	require.Equal(t, 45000.0, btc.MarketData.CurrentPrice["usd"])
	require.Equal(t, 225000.0, btc.MarketData.CurrentPrice["brl"])
	require.Equal(t, 41000.0, btc.MarketData.CurrentPrice["eur"])
}

func TestDetail_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := Default()
	rec, _, _ := s.Detail("bitcoin")
	rec.Name = "mutated"
	rec.MarketData.CurrentPrice["usd"] = -1

	again, _, _ := s.Detail("bitcoin")
	require.Equal(t, "Bitcoin", again.Name)
	require.Equal(t, 45000.0, again.MarketData.CurrentPrice["usd"])
}

func TestNew_DefaultIDNotPresent(t *testing.T) {
	t.Parallel()

	s := New([]provider.CoinDetail{{ID: "ethereum"}, {ID: "litecoin"}}, "bitcoin")
	rec, exact, ok := s.Detail("unknown")
	require.True(t, ok)
	require.False(t, exact)
	require.Equal(t, "ethereum", rec.ID)
}

func TestEmptySet(t *testing.T) {
	t.Parallel()

	for _, s := range []*Set{nil, New(nil, "bitcoin")} {
		require.True(t, s.Empty())
		require.Zero(t, s.Len())
		_, _, ok := s.Detail("bitcoin")
		require.False(t, ok)
		require.Empty(t, s.Listing(provider.ListingQuery{}))
		require.NotNil(t, s.Listing(provider.ListingQuery{}))
	}
}

func TestListing(t *testing.T) {
	t.Parallel()

	s := Default()

	rows := s.Listing(provider.ListingQuery{Currency: "BRL"})
	require.Len(t, rows, 2)
	require.Equal(t, "bitcoin", rows[0].ID)
	require.Equal(t, "btc", rows[0].Symbol)
	require.Equal(t, 225000.0, rows[0].CurrentPrice)
	require.Equal(t, 1, rows[0].MarketCapRank)
	require.NotNil(t, rows[0].SparklineIn7d)
	require.Len(t, rows[0].SparklineIn7d.Price, sparklinePoints)
	require.Equal(t, "ethereum", rows[1].ID)

	// Unknown currencies use the USD value.
	jpy := s.Listing(provider.ListingQuery{Currency: "jpy"})
	require.Equal(t, 45000.0, jpy[0].CurrentPrice)
}

func TestListing_OrderAndPagination(t *testing.T) {
	t.Parallel()

	s := Default()

	asc := s.Listing(provider.ListingQuery{Order: "market_cap_asc"})
	require.Equal(t, "ethereum", asc[0].ID)

	page2 := s.Listing(provider.ListingQuery{Page: 2, PerPage: 1})
	require.Len(t, page2, 1)
	require.Equal(t, "ethereum", page2[0].ID)

	beyond := s.Listing(provider.ListingQuery{Page: 3, PerPage: 1})
	require.Empty(t, beyond)
}

func TestListing_HugePagesAreEmpty(t *testing.T) {
	t.Parallel()

	s := Default()

	tests := []provider.ListingQuery{
		{Page: 2305843009213693953, PerPage: 4},
		{Page: math.MaxInt, PerPage: math.MaxInt},
		{Page: 2, PerPage: math.MaxInt},
	}
	for _, q := range tests {
		require.NotPanics(t, func() {
			require.Empty(t, s.Listing(q))
		})
	}

	all := s.Listing(provider.ListingQuery{PerPage: math.MaxInt})
	require.Len(t, all, 2)
}

func TestSparkline_Deterministic(t *testing.T) {
	t.Parallel()

	a := sparkline(100)
	b := sparkline(100)
	require.Equal(t, a, b)
	require.Equal(t, 100.0, a[0])
	for _, p := range a {
		require.InDelta(t, 100, p, 2.0001)
	}
}
