package events

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/volscan/internal/domain"
)

var baseTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func event(symbol string, offset int) domain.VolumeEvent {
	ts := baseTime.Add(time.Duration(offset) * 5 * time.Minute)
	return domain.VolumeEvent{
		ID:         domain.EventID(symbol, domain.Timeframe5m, ts),
		Symbol:     symbol,
		Timeframe:  domain.Timeframe5m,
		Time:       ts,
		Direction:  domain.DirectionUp,
		Severity:   domain.SeverityElevated,
		ZScore:     2.5,
		OpenPrice:  decimal.NewFromInt(100),
		ClosePrice: decimal.NewFromInt(101),
	}
}

func TestAddInsertsNewestFirst(t *testing.T) {
	s := NewStore(10)

	require.True(t, s.Add(event("BTCUSDT", 0)))
	require.True(t, s.Add(event("BTCUSDT", 1)))
	require.True(t, s.Add(event("BTCUSDT", 2)))

	evs := s.Events()
	require.Len(t, evs, 3)
	assert.Equal(t, baseTime.Add(10*time.Minute), evs[0].Time)
	assert.Equal(t, baseTime, evs[2].Time)
}

func TestAddDuplicateIsNoOp(t *testing.T) {
	s := NewStore(10)

	var notifications int
	s.Subscribe(func(added []domain.VolumeEvent) { notifications++ })

	require.True(t, s.Add(event("BTCUSDT", 0)))
	require.False(t, s.Add(event("BTCUSDT", 0)))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, notifications, "a dropped duplicate must not notify")
}

func TestAddEvictsOldestBeyondCapacity(t *testing.T) {
	s := NewStore(5)

	for i := 0; i < 8; i++ {
		require.True(t, s.Add(event("BTCUSDT", i)))
	}

	evs := s.Events()
	require.Len(t, evs, 5)
	// the five newest survive
	assert.Equal(t, baseTime.Add(35*time.Minute), evs[0].Time)
	assert.Equal(t, baseTime.Add(15*time.Minute), evs[4].Time)

	// an evicted ID can be re-added
	assert.True(t, s.Add(event("BTCUSDT", 0)))
}

func TestReplaceSortsAndBounds(t *testing.T) {
	s := NewStore(3)
	s.Add(event("OLD", 0))

	var lastBatch []domain.VolumeEvent
	var notifications int
	s.Subscribe(func(added []domain.VolumeEvent) {
		notifications++
		lastBatch = added
	})

	// deliberately unsorted and over capacity
	s.Replace([]domain.VolumeEvent{
		event("ETHUSDT", 2),
		event("BTCUSDT", 5),
		event("SOLUSDT", 1),
		event("XRPUSDT", 4),
	})

	evs := s.Events()
	require.Len(t, evs, 3)
	assert.Equal(t, "BTCUSDT", evs[0].Symbol)
	assert.Equal(t, "XRPUSDT", evs[1].Symbol)
	assert.Equal(t, "ETHUSDT", evs[2].Symbol)

	// one bulk notification, not one per event
	assert.Equal(t, 1, notifications)
	assert.Len(t, lastBatch, 3)

	// the pre-replace event is gone and its ID is free again
	assert.True(t, s.Add(event("OLD", 0)))
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := NewStore(10)

	var first, second int
	unsubFirst := s.Subscribe(func([]domain.VolumeEvent) { first++ })
	s.Subscribe(func([]domain.VolumeEvent) { second++ })

	s.Add(event("BTCUSDT", 0))
	unsubFirst()
	s.Add(event("BTCUSDT", 1))

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestUnsubscribeDuringNotification(t *testing.T) {
	s := NewStore(10)

	var calls int
	var unsub func()
	unsub = s.Subscribe(func([]domain.VolumeEvent) {
		calls++
		unsub()
	})

	// must not deadlock or panic
	s.Add(event("BTCUSDT", 0))
	s.Add(event("BTCUSDT", 1))

	assert.Equal(t, 1, calls)
}

func TestSymbolCacheLastWriteWins(t *testing.T) {
	s := NewStore(10)

	s.UpsertSymbol(domain.SymbolEntry{Symbol: "BTCUSDT", Price: decimal.NewFromInt(50000)})
	s.UpsertSymbol(domain.SymbolEntry{Symbol: "BTCUSDT", Price: decimal.NewFromInt(51000)})

	entry, ok := s.Symbol("BTCUSDT")
	require.True(t, ok)
	assert.True(t, entry.Price.Equal(decimal.NewFromInt(51000)))
}

func TestSymbolsSortedAndReset(t *testing.T) {
	s := NewStore(10)

	s.UpsertSymbol(domain.SymbolEntry{Symbol: "ETHUSDT"})
	s.UpsertSymbol(domain.SymbolEntry{Symbol: "BTCUSDT"})
	s.UpsertSymbol(domain.SymbolEntry{Symbol: "SOLUSDT"})

	universe := s.Symbols()
	require.Len(t, universe, 3)
	assert.Equal(t, "BTCUSDT", universe[0].Symbol)
	assert.Equal(t, "ETHUSDT", universe[1].Symbol)
	assert.Equal(t, "SOLUSDT", universe[2].Symbol)

	s.ResetSymbols([]domain.SymbolEntry{{Symbol: "XRPUSDT"}})
	universe = s.Symbols()
	require.Len(t, universe, 1)
	assert.Equal(t, "XRPUSDT", universe[0].Symbol)

	_, ok := s.Symbol("BTCUSDT")
	assert.False(t, ok)
}

func TestEventsReturnsCopy(t *testing.T) {
	s := NewStore(10)
	s.Add(event("BTCUSDT", 0))

	evs := s.Events()
	evs[0].Symbol = "MUTATED"

	assert.Equal(t, "BTCUSDT", s.Events()[0].Symbol)
}

func TestNewStoreDefaultCap(t *testing.T) {
	s := NewStore(0)

	for i := 0; i < DefaultCap+20; i++ {
		s.Add(event("BTCUSDT", i))
	}
	assert.Equal(t, DefaultCap, s.Len())
}
