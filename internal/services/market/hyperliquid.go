package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/volscan/internal/domain"
)

// HyperliquidSource implements candle fetching over the Hyperliquid public
// Info API. The API exposes no ranked ticker listing, so universe discovery
// is not supported; feed it an explicit symbol list instead.
type HyperliquidSource struct {
	info *hyperliquid.Info
}

// NewHyperliquidSource creates a new Hyperliquid candle source.
func NewHyperliquidSource(info *hyperliquid.Info) *HyperliquidSource {
	return &HyperliquidSource{info: info}
}

// FetchUniverse is not supported on Hyperliquid.
func (s *HyperliquidSource) FetchUniverse(ctx context.Context, metric RankingMetric, maxCount int) ([]domain.SymbolEntry, error) {
	return nil, fmt.Errorf("universe ranking is not available on the Hyperliquid Info API - configure an explicit symbol list")
}

// FetchCandles fetches a candle snapshot, oldest first.
func (s *HyperliquidSource) FetchCandles(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]domain.Candle, error) {
	if s.info == nil {
		return nil, fmt.Errorf("hyperliquid info client is nil")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	dur := tf.Duration()
	if dur == 0 {
		return nil, fmt.Errorf("unsupported timeframe for Hyperliquid: %s", tf)
	}

	endMs := time.Now().UnixMilli()
	// fetch a slightly wider window to account for rounding
	startMs := endMs - (int64(limit)+2)*dur.Milliseconds()

	// Hyperliquid keys markets by base coin, e.g. "BTC"
	coin := strings.ToUpper(symbol)

	snapshot, err := s.info.CandlesSnapshot(ctx, coin, string(tf), startMs, endMs)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return nil, fmt.Errorf("no candles from hyperliquid for %s %s", coin, tf)
	}

	if len(snapshot) > limit {
		snapshot = snapshot[len(snapshot)-limit:]
	}

	out := make([]domain.Candle, 0, len(snapshot))
	for i, c := range snapshot {
		open, err := decimal.NewFromString(c.Open)
		if err != nil {
			return nil, fmt.Errorf("parse open at %d: %w", i, err)
		}
		high, err := decimal.NewFromString(c.High)
		if err != nil {
			return nil, fmt.Errorf("parse high at %d: %w", i, err)
		}
		low, err := decimal.NewFromString(c.Low)
		if err != nil {
			return nil, fmt.Errorf("parse low at %d: %w", i, err)
		}
		closePrice, err := decimal.NewFromString(c.Close)
		if err != nil {
			return nil, fmt.Errorf("parse close at %d: %w", i, err)
		}
		volume, err := decimal.NewFromString(c.Volume)
		if err != nil {
			return nil, fmt.Errorf("parse volume at %d: %w", i, err)
		}

		out = append(out, domain.Candle{
			OpenTime: time.UnixMilli(c.TimeOpen),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		})
	}

	return out, nil
}
