package feed

// Asset is one selectable instrument in the coin list. BasePrice anchors the
// synthetic fallback generator when every market endpoint is unreachable.
type Asset struct {
	Symbol    string
	Name      string
	BasePrice float64
}

// Catalog returns the built-in asset list.
func Catalog() []Asset {
	return []Asset{
		{Symbol: "BTCUSDT", Name: "Bitcoin", BasePrice: 60000},
		{Symbol: "ETHUSDT", Name: "Ethereum", BasePrice: 3000},
		{Symbol: "SOLUSDT", Name: "Solana", BasePrice: 150},
		{Symbol: "XRPUSDT", Name: "XRP", BasePrice: 0.55},
		{Symbol: "ADAUSDT", Name: "Cardano", BasePrice: 0.45},
		{Symbol: "DOGEUSDT", Name: "Dogecoin", BasePrice: 0.12},
		{Symbol: "DOTUSDT", Name: "Polkadot", BasePrice: 6.5},
		{Symbol: "LINKUSDT", Name: "Chainlink", BasePrice: 14},
		{Symbol: "AVAXUSDT", Name: "Avalanche", BasePrice: 30},
		{Symbol: "LTCUSDT", Name: "Litecoin", BasePrice: 80},
	}
}

// LookupAsset finds an asset by symbol. Unknown symbols get a catalog-less
// asset with a neutral base price so the widget still works for them.
func LookupAsset(symbol string) Asset {
	for _, a := range Catalog() {
		if a.Symbol == symbol {
			return a
		}
	}
	return Asset{Symbol: symbol, Name: symbol, BasePrice: 100}
}
