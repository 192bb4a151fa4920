package market

import (
	"context"
	"fmt"
	"sort"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/volscan/internal/domain"
)

// BybitSource implements CandleSource for Bybit USDT perpetuals.
type BybitSource struct {
	client *bybit.Client
}

// NewBybitSource creates a new Bybit candle source.
func NewBybitSource(client *bybit.Client) *BybitSource {
	return &BybitSource{client: client}
}

// FetchUniverse ranks linear tickers by the chosen metric. Bybit reports both
// turnover and open interest per ticker, so both metrics are supported.
func (s *BybitSource) FetchUniverse(ctx context.Context, metric RankingMetric, maxCount int) ([]domain.SymbolEntry, error) {
	maxCount = clampUniverseSize(maxCount)

	result, err := s.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Linear,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch tickers from Bybit")
	}
	if result == nil || result.Result.LinearInverse == nil {
		return nil, errors.New("empty tickers result from Bybit API")
	}

	entries := make([]domain.SymbolEntry, 0, len(result.Result.LinearInverse.List))
	for i, t := range result.Result.LinearInverse.List {
		price, err := decimal.NewFromString(t.LastPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse last price at index %d", i)
		}
		// quote turnover, comparable across symbols
		volume, err := decimal.NewFromString(t.Turnover24H)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse 24h turnover at index %d", i)
		}
		openInterest, err := decimal.NewFromString(t.OpenInterest)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse open interest at index %d", i)
		}
		change, err := decimal.NewFromString(t.Price24HPcnt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse 24h change at index %d", i)
		}

		entries = append(entries, domain.SymbolEntry{
			Symbol:       string(t.Symbol),
			Price:        price,
			Volume24h:    volume,
			OpenInterest: openInterest,
			Change24h:    change,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if metric == RankByOpenInterest {
			return entries[i].OpenInterest.GreaterThan(entries[j].OpenInterest)
		}
		return entries[i].Volume24h.GreaterThan(entries[j].Volume24h)
	})

	if len(entries) > maxCount {
		entries = entries[:maxCount]
	}
	return entries, nil
}

// FetchCandles fetches kline data, paging through the Bybit per-request cap.
func (s *BybitSource) FetchCandles(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	interval, err := bybitInterval(tf)
	if err != nil {
		return nil, err
	}

	const maxPerRequest = 200

	var (
		allKlines []bybit.V5GetKlineItem
		endCursor *int64
	)
	remaining := limit

	for remaining > 0 {
		batchSize := remaining
		if batchSize > maxPerRequest {
			batchSize = maxPerRequest
		}

		param := bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Linear,
			Symbol:   bybit.SymbolV5(symbol),
			Interval: bybit.Interval(interval),
			Limit:    &batchSize,
			End:      endCursor,
		}

		result, err := s.client.V5().Market().GetKline(param)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", symbol)
		}
		if result == nil {
			return nil, errors.Errorf("empty result from Bybit API for %s", symbol)
		}

		klines := result.Result.List
		if len(klines) == 0 {
			if len(allKlines) == 0 {
				return nil, errors.Errorf("no kline data returned from Bybit for %s", symbol)
			}
			break
		}

		allKlines = append(allKlines, klines...)

		// fewer results than requested means we've reached the end
		if len(klines) < batchSize {
			break
		}

		remaining -= len(klines)

		// the list is newest first, so the next page ends just before the
		// oldest bar seen so far
		oldest, err := parseMilliTimestamp(klines[len(klines)-1].StartTime)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse kline start time")
		}
		cursor := oldest.UnixMilli() - 1
		endCursor = &cursor

		// avoid rate limiting by small delay between requests
		if remaining > 0 {
			time.Sleep(100 * time.Millisecond)
		}
	}

	candles := make([]domain.Candle, len(allKlines))
	for i, k := range allKlines {
		openTime, err := parseMilliTimestamp(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time at index %d", i)
		}

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

		// Bybit lists klines newest first, fill the result in reverse so
		// callers always see oldest first
		candles[len(allKlines)-1-i] = domain.Candle{
			OpenTime: openTime,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		}
	}

	return candles, nil
}

// bybitInterval converts a timeframe to the Bybit interval format:
// minutes as a bare number, days as "D".
func bybitInterval(tf domain.Timeframe) (string, error) {
	switch tf {
	case domain.Timeframe5m:
		return "5", nil
	case domain.Timeframe15m:
		return "15", nil
	case domain.Timeframe30m:
		return "30", nil
	case domain.Timeframe1h:
		return "60", nil
	case domain.Timeframe4h:
		return "240", nil
	case domain.Timeframe1d:
		return "D", nil
	default:
		return "", fmt.Errorf("unsupported timeframe for Bybit: %s", tf)
	}
}

// parseMilliTimestamp converts a millisecond timestamp string to time.Time.
func parseMilliTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	var msec int64
	if _, err := fmt.Sscanf(ts, "%d", &msec); err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}

	return time.UnixMilli(msec), nil
}
