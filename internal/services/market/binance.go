package market

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/volscan/internal/domain"
)

// BinanceSource implements CandleSource for the Binance spot market.
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource creates a new Binance candle source.
func NewBinanceSource(client *binance.Client) *BinanceSource {
	return &BinanceSource{client: client}
}

// FetchUniverse ranks spot USDT pairs by 24h quote volume. The spot ticker
// API carries no open interest, so that metric is rejected with a descriptive
// error - use the Bybit platform for open interest ranking.
func (s *BinanceSource) FetchUniverse(ctx context.Context, metric RankingMetric, maxCount int) ([]domain.SymbolEntry, error) {
	if metric == RankByOpenInterest {
		return nil, errors.New("open interest ranking is not available on the Binance spot API - use the bybit platform")
	}
	maxCount = clampUniverseSize(maxCount)

	tickers, err := s.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch 24h tickers from Binance")
	}

	entries := make([]domain.SymbolEntry, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}

		price, err := decimal.NewFromString(t.LastPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse last price for %s", t.Symbol)
		}
		volume, err := decimal.NewFromString(t.QuoteVolume)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse quote volume for %s", t.Symbol)
		}
		change, err := decimal.NewFromString(t.PriceChangePercent)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse price change for %s", t.Symbol)
		}

		entries = append(entries, domain.SymbolEntry{
			Symbol:    t.Symbol,
			Price:     price,
			Volume24h: volume,
			Change24h: change,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Volume24h.GreaterThan(entries[j].Volume24h)
	})

	if len(entries) > maxCount {
		entries = entries[:maxCount]
	}
	return entries, nil
}

// FetchCandles fetches kline data from Binance, oldest first.
func (s *BinanceSource) FetchCandles(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(string(tf)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", symbol)
	}

	candles := make([]domain.Candle, len(klines))
	for i, k := range klines {
		open, err := decimal.NewFromString(k.Open)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse open price at index %d", i)
		}
		high, err := decimal.NewFromString(k.High)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse high price at index %d", i)
		}
		low, err := decimal.NewFromString(k.Low)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse low price at index %d", i)
		}
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse volume at index %d", i)
		}

		candles[i] = domain.Candle{
			OpenTime: time.Unix(0, k.OpenTime*int64(time.Millisecond)),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		}
	}

	return candles, nil
}
