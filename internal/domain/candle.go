package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Candle is a single OHLCV bar. Sequences of candles are always ordered
// oldest to newest and are immutable once fetched.
type Candle struct {
	OpenTime time.Time       `json:"open_time"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// Timeframe identifies the fixed interval of a candle series. It is a closed
// set: both the fetch granularity and the tag on derived events come from it.
type Timeframe string

const (
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// Timeframes lists all supported timeframes from shortest to longest.
func Timeframes() []Timeframe {
	return []Timeframe{Timeframe5m, Timeframe15m, Timeframe30m, Timeframe1h, Timeframe4h, Timeframe1d}
}

// ParseTimeframe validates a string against the supported set.
func ParseTimeframe(s string) (Timeframe, error) {
	for _, tf := range Timeframes() {
		if string(tf) == s {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unsupported timeframe: %s", s)
}

// Duration returns the bar interval length.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe5m:
		return 5 * time.Minute
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe30m:
		return 30 * time.Minute
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

func (t Timeframe) String() string {
	return string(t)
}
