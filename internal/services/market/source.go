// Package market provides candle and universe data from cryptocurrency
// exchanges behind a single CandleSource contract.
package market

import (
	"context"
	"fmt"

	"github.com/vadiminshakov/volscan/internal/domain"
)

// RankingMetric selects how the instrument universe is ranked.
type RankingMetric string

const (
	RankByVolume       RankingMetric = "volume"
	RankByOpenInterest RankingMetric = "openinterest"
)

// ParseRankingMetric validates a metric string.
func ParseRankingMetric(s string) (RankingMetric, error) {
	switch RankingMetric(s) {
	case RankByVolume, RankByOpenInterest:
		return RankingMetric(s), nil
	default:
		return "", fmt.Errorf("unsupported ranking metric: %s", s)
	}
}

// MaxUniverseSize caps how many instruments a universe fetch may return.
const MaxUniverseSize = 50

// CandleSource supplies ordered OHLCV history and the tradable universe.
// Both operations may fail with network or protocol errors; callers never
// assume success.
type CandleSource interface {
	// FetchUniverse returns up to maxCount instruments ranked descending by
	// the chosen metric. Candle caches of returned entries are empty.
	FetchUniverse(ctx context.Context, metric RankingMetric, maxCount int) ([]domain.SymbolEntry, error)

	// FetchCandles returns up to limit candles for the symbol and timeframe,
	// ordered oldest first.
	FetchCandles(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]domain.Candle, error)
}

func clampUniverseSize(maxCount int) int {
	if maxCount < 1 {
		return 1
	}
	if maxCount > MaxUniverseSize {
		return MaxUniverseSize
	}
	return maxCount
}
