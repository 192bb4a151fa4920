package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/volscan/internal/domain"
	"github.com/vadiminshakov/volscan/internal/services/market"
)

func TestParseCurrentVersion(t *testing.T) {
	doc := []byte(`
version: 2
platform: bybit
universe_size: 15
ranking_metric: openinterest
timeframes: [5m, 1h]
period: 34
min_zscore: 2.5
min_volume_ratio: 1.5
lookback: 200
live_window: 3
poll_interval: 30s
batch_size: 8
batch_delay: 500ms
event_cap: 250
alert_sound: true
display_timezone: Europe/Berlin
web_addr: ":9090"
journal_dir: /tmp/volscan-wal
`)

	cfg, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, "bybit", cfg.Platform)
	assert.Equal(t, 15, cfg.UniverseSize)
	assert.Equal(t, market.RankByOpenInterest, cfg.RankingMetric)
	assert.Equal(t, []domain.Timeframe{domain.Timeframe5m, domain.Timeframe1h}, cfg.Timeframes)
	assert.Equal(t, 34, cfg.Period)
	assert.Equal(t, 2.5, cfg.MinZScore)
	assert.Equal(t, 1.5, cfg.MinVolumeRatio)
	assert.Equal(t, 200, cfg.Lookback)
	assert.Equal(t, 3, cfg.LiveWindow)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchDelay)
	assert.Equal(t, 250, cfg.EventCap)
	assert.True(t, cfg.AlertSound)
	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.Equal(t, ":9090", cfg.WebAddr)
	assert.Equal(t, "/tmp/volscan-wal", cfg.JournalDir)
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("version: 2\nplatform: bybit\n"))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.UniverseSize)
	assert.Equal(t, market.RankByVolume, cfg.RankingMetric)
	assert.Equal(t, []domain.Timeframe{domain.Timeframe5m, domain.Timeframe30m, domain.Timeframe4h}, cfg.Timeframes)
	assert.Equal(t, 21, cfg.Period)
	assert.Equal(t, 2.0, cfg.MinZScore)
	assert.Equal(t, 100, cfg.Lookback)
	assert.Equal(t, 1, cfg.LiveWindow)
	assert.Equal(t, 45*time.Second, cfg.PollInterval)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 300*time.Millisecond, cfg.BatchDelay)
	assert.Equal(t, 500, cfg.EventCap)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, ":8085", cfg.WebAddr)
}

func TestParseMigratesVersion1(t *testing.T) {
	// version 1 had no version field, "universe", "metric" and flat strings
	// for min_zscore and timeframes
	doc := []byte(`
platform: binance
universe: 20
metric: volume
min_zscore: "2.5"
timeframes: "5m, 30m"
`)

	cfg, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, "binance", cfg.Platform)
	assert.Equal(t, 20, cfg.UniverseSize)
	assert.Equal(t, market.RankByVolume, cfg.RankingMetric)
	assert.Equal(t, 2.5, cfg.MinZScore)
	assert.Equal(t, []domain.Timeframe{domain.Timeframe5m, domain.Timeframe30m}, cfg.Timeframes)
}

func TestParseRejectsNewerVersion(t *testing.T) {
	_, err := Parse([]byte("version: 3\nplatform: bybit\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestParseRejectsEmptyDocument(t *testing.T) {
	_, err := Parse([]byte(""))
	require.Error(t, err)
}

func TestBuildValidation(t *testing.T) {
	_, err := Parse([]byte("version: 2\nplatform: kraken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported platform")

	_, err = Parse([]byte("version: 2\nplatform: bybit\ntimeframes: [7m]\n"))
	require.Error(t, err)

	_, err = Parse([]byte("version: 2\nplatform: bybit\nranking_metric: liquidity\n"))
	require.Error(t, err)

	_, err = Parse([]byte("version: 2\nplatform: bybit\nmin_volume_ratio: -1\n"))
	require.Error(t, err)

	_, err = Parse([]byte("version: 2\nplatform: bybit\npoll_interval: fast\n"))
	require.Error(t, err)

	_, err = Parse([]byte("version: 2\nplatform: bybit\ndisplay_timezone: Mars/Olympus\n"))
	require.Error(t, err)
}

func TestBuildClampsBounds(t *testing.T) {
	doc := []byte(`
version: 2
platform: bybit
universe_size: 500
lookback: 5000
live_window: 99
batch_size: 100
poll_interval: 1s
`)

	cfg, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.UniverseSize)
	assert.Equal(t, 1000, cfg.Lookback)
	assert.Equal(t, 10, cfg.LiveWindow)
	assert.Equal(t, 20, cfg.BatchSize)
	// the poll interval has a 5s floor
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestBuildEnforcesLookbackWarmup(t *testing.T) {
	cfg, err := Parse([]byte("version: 2\nplatform: bybit\nperiod: 50\nlookback: 55\n"))
	require.NoError(t, err)

	// lookback must leave the baseline room past the period
	assert.Equal(t, 60, cfg.Lookback)
}

func TestBuildNormalizesSymbols(t *testing.T) {
	cfg, err := Parse([]byte("version: 2\nplatform: bybit\nsymbols: [\" btcusdt \", ethusdt, \"\"]\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
}
