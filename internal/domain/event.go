package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Direction qualitative direction of the bar that produced an event.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Title returns a human-readable representation.
func (d Direction) Title() string {
	if d == DirectionUp {
		return "Up"
	}
	return "Down"
}

// Severity tier of a volume anomaly.
type Severity string

const (
	SeverityElevated Severity = "elevated"
	SeverityExtreme  Severity = "extreme"
)

// Title returns a human-readable representation.
func (s Severity) Title() string {
	if s == SeverityExtreme {
		return "Extreme"
	}
	return "Elevated"
}

// extremeZScore is the fixed tier boundary above which an anomaly is extreme.
const extremeZScore = 3.0

// VolumeEvent is a single detected volume anomaly. Events are immutable once
// created; they are only ever evicted, never mutated.
type VolumeEvent struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Timeframe  Timeframe       `json:"timeframe"`
	Time       time.Time       `json:"time"`
	Direction  Direction       `json:"direction"`
	Severity   Severity        `json:"severity"`
	ZScore     float64         `json:"z_score"`
	OpenPrice  decimal.Decimal `json:"open_price"`
	ClosePrice decimal.Decimal `json:"close_price"`
}

// EventID builds the deterministic dedup key for an anomaly. It depends only
// on (symbol, timeframe, bar open time) so that re-scanning the same bar is
// idempotent.
func EventID(symbol string, tf Timeframe, openTime time.Time) string {
	return fmt.Sprintf("%s|%s|%d", symbol, tf, openTime.UnixMilli())
}

// NewVolumeEvent classifies a threshold-crossing bar into an event.
// The z-score is rounded to 2 decimals.
func NewVolumeEvent(symbol string, tf Timeframe, candle Candle, zScore float64) VolumeEvent {
	direction := DirectionDown
	if candle.Close.GreaterThanOrEqual(candle.Open) {
		direction = DirectionUp
	}

	severity := SeverityElevated
	if zScore > extremeZScore {
		severity = SeverityExtreme
	}

	return VolumeEvent{
		ID:         EventID(symbol, tf, candle.OpenTime),
		Symbol:     symbol,
		Timeframe:  tf,
		Time:       candle.OpenTime,
		Direction:  direction,
		Severity:   severity,
		ZScore:     math.Round(zScore*100) / 100,
		OpenPrice:  candle.Open,
		ClosePrice: candle.Close,
	}
}
