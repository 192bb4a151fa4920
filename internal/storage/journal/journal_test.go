package journal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/volscan/internal/domain"
)

func journalEvent(symbol string, offset int) domain.VolumeEvent {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(offset) * 30 * time.Minute)
	return domain.VolumeEvent{
		ID:         domain.EventID(symbol, domain.Timeframe30m, ts),
		Symbol:     symbol,
		Timeframe:  domain.Timeframe30m,
		Time:       ts,
		Direction:  domain.DirectionUp,
		Severity:   domain.SeverityExtreme,
		ZScore:     3.42,
		OpenPrice:  decimal.NewFromInt(100),
		ClosePrice: decimal.NewFromInt(110),
	}
}

func TestAppendAndReplay(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, uint64(0), s.CurrentIndex())

	require.NoError(t, s.Append(journalEvent("BTCUSDT", 0)))
	require.NoError(t, s.Append(journalEvent("ETHUSDT", 1)))
	require.NoError(t, s.Append(journalEvent("SOLUSDT", 2)))

	assert.Equal(t, uint64(3), s.CurrentIndex())

	records, err := s.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, uint64(1), records[0].Index)
	assert.Equal(t, "BTCUSDT", records[0].Event.Symbol)
	assert.Equal(t, 3.42, records[0].Event.ZScore)
	assert.Equal(t, "SOLUSDT", records[2].Event.Symbol)
}

func TestEventsAfterSkipsConsumed(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(journalEvent("BTCUSDT", 0)))
	require.NoError(t, s.Append(journalEvent("ETHUSDT", 1)))

	records, err := s.EventsAfter(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ETHUSDT", records[0].Event.Symbol)

	records, err = s.EventsAfter(2)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAppendRejectsEmptyID(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	err = s.Append(domain.VolumeEvent{Symbol: "BTCUSDT"})
	require.Error(t, err)
	assert.Equal(t, uint64(0), s.CurrentIndex())
}

func TestReplayAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Append(journalEvent("BTCUSDT", 0)))
	require.NoError(t, s.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, uint64(1), reopened.CurrentIndex())

	records, err := reopened.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "BTCUSDT", records[0].Event.Symbol)
}
