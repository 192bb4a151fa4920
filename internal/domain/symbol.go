package domain

import "github.com/shopspring/decimal"

// SymbolEntry is one tracked instrument of the scanning universe together
// with its latest per-timeframe candle cache. The cache is refreshed in place
// as new data arrives; it is a working copy, not a source of truth.
type SymbolEntry struct {
	Symbol       string
	Price        decimal.Decimal
	Volume24h    decimal.Decimal
	OpenInterest decimal.Decimal
	Change24h    decimal.Decimal
	Candles      map[Timeframe][]Candle
}

// SetCandles replaces the cached series for a timeframe.
func (e *SymbolEntry) SetCandles(tf Timeframe, candles []Candle) {
	if e.Candles == nil {
		e.Candles = make(map[Timeframe][]Candle)
	}
	e.Candles[tf] = candles
}
