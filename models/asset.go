package models

// Asset is one tradable instrument. Name is the unique key. Payout is
// the percentage of stake returned as profit on a winning trade and is
// the only admin-mutable field. Volatility scales the per-tick price
// delta of the synthetic feed.
type Asset struct {
	Name         string  `json:"name"`
	InitialPrice float64 `json:"initialPrice"`
	Payout       float64 `json:"payout"`
	Volatility   float64 `json:"volatility"`
	Color        string  `json:"color"`
}

// DefaultAssets is the catalogue the venue boots with when the
// persistence store holds no assets.
func DefaultAssets() []Asset {
	return []Asset{
		{Name: "BTC/USD", InitialPrice: 68420.55, Payout: 95, Volatility: 50.5, Color: "hsl(45, 93%, 47%)"},
		{Name: "Crypto", InitialPrice: 641.86, Payout: 85, Volatility: 0.1, Color: "hsl(210, 80%, 55%)"},
		{Name: "EUR/USD (OTC)", InitialPrice: 1.07, Payout: 88, Volatility: 0.005, Color: "hsl(120, 70%, 50%)"},
		{Name: "Stocks", InitialPrice: 175.2, Payout: 80, Volatility: 0.5, Color: "hsl(150, 80%, 50%)"},
		{Name: "USD/JPY (OTC)", InitialPrice: 157.5, Payout: 90, Volatility: 0.1, Color: "hsl(200, 80%, 50%)"},
		{Name: "CAD/CHF (OTC)", InitialPrice: 0.65, Payout: 82, Volatility: 0.002, Color: "hsl(300, 80%, 50%)"},
		{Name: "USD/CAD (OTC)", InitialPrice: 1.37, Payout: 87, Volatility: 0.003, Color: "hsl(240, 80%, 60%)"},
		{Name: "GBP/NZD (OTC)", InitialPrice: 2.08, Payout: 86, Volatility: 0.004, Color: "hsl(330, 80%, 60%)"},
	}
}
