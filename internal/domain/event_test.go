package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIDDeterministic(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	id1 := EventID("BTCUSDT", Timeframe5m, ts)
	id2 := EventID("BTCUSDT", Timeframe5m, ts)
	assert.Equal(t, id1, id2)

	assert.NotEqual(t, id1, EventID("ETHUSDT", Timeframe5m, ts))
	assert.NotEqual(t, id1, EventID("BTCUSDT", Timeframe30m, ts))
	assert.NotEqual(t, id1, EventID("BTCUSDT", Timeframe5m, ts.Add(5*time.Minute)))
}

func TestNewVolumeEventClassification(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	up := Candle{
		OpenTime: ts,
		Open:     decimal.NewFromInt(100),
		Close:    decimal.NewFromInt(105),
	}
	ev := NewVolumeEvent("BTCUSDT", Timeframe5m, up, 2.5)
	assert.Equal(t, DirectionUp, ev.Direction)
	assert.Equal(t, SeverityElevated, ev.Severity)

	down := Candle{
		OpenTime: ts,
		Open:     decimal.NewFromInt(100),
		Close:    decimal.NewFromInt(95),
	}
	ev = NewVolumeEvent("BTCUSDT", Timeframe5m, down, 3.5)
	assert.Equal(t, DirectionDown, ev.Direction)
	assert.Equal(t, SeverityExtreme, ev.Severity)

	// close == open maps to up, the comparison is non-strict
	flat := Candle{
		OpenTime: ts,
		Open:     decimal.NewFromInt(100),
		Close:    decimal.NewFromInt(100),
	}
	ev = NewVolumeEvent("BTCUSDT", Timeframe5m, flat, 2.0)
	assert.Equal(t, DirectionUp, ev.Direction)

	// the extreme tier starts strictly above 3.0
	ev = NewVolumeEvent("BTCUSDT", Timeframe5m, up, 3.0)
	assert.Equal(t, SeverityElevated, ev.Severity)
}

func TestNewVolumeEventRoundsZScore(t *testing.T) {
	candle := Candle{
		OpenTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Open:     decimal.NewFromInt(100),
		Close:    decimal.NewFromInt(101),
	}

	ev := NewVolumeEvent("BTCUSDT", Timeframe5m, candle, 2.34567)
	assert.Equal(t, 2.35, ev.ZScore)

	ev = NewVolumeEvent("BTCUSDT", Timeframe5m, candle, 2.344)
	assert.Equal(t, 2.34, ev.ZScore)
}

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("30m")
	require.NoError(t, err)
	assert.Equal(t, Timeframe30m, tf)
	assert.Equal(t, 30*time.Minute, tf.Duration())

	_, err = ParseTimeframe("7m")
	require.Error(t, err)
}
