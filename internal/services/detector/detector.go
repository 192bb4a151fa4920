// Package detector holds the bar-scanning logic shared by the live scanner
// and the historical report generator.
package detector

import (
	"github.com/vadiminshakov/volscan/internal/domain"
	"github.com/vadiminshakov/volscan/internal/stats"
)

// Detector evaluates candle series against a volume anomaly threshold.
// The zero MinVolumeRatio disables the ratio floor.
type Detector struct {
	Period         int
	MinZScore      float64
	MinVolumeRatio float64
}

// ScanAll replays the whole series and returns an event for every bar that
// crosses the threshold, starting from the first bar with a full warm-up
// window. Results are ordered oldest to newest.
func (d Detector) ScanAll(symbol string, tf domain.Timeframe, candles []domain.Candle) []domain.VolumeEvent {
	return d.scanFrom(symbol, tf, candles, d.Period)
}

// ScanRecent evaluates only the newest window bars of the series. The live
// scanner calls this every poll cycle; re-scanning a still-forming bar is
// safe because event IDs are deterministic.
func (d Detector) ScanRecent(symbol string, tf domain.Timeframe, candles []domain.Candle, window int) []domain.VolumeEvent {
	if window < 1 {
		window = 1
	}
	start := len(candles) - window
	if start < d.Period {
		start = d.Period
	}
	return d.scanFrom(symbol, tf, candles, start)
}

func (d Detector) scanFrom(symbol string, tf domain.Timeframe, candles []domain.Candle, start int) []domain.VolumeEvent {
	if len(candles) <= start {
		return nil
	}

	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i], _ = c.Volume.Float64()
	}

	var events []domain.VolumeEvent
	for i := start; i < len(candles); i++ {
		// the candidate bar is excluded from its own baseline window so a
		// spike cannot inflate its own detection threshold
		baseline, ok := stats.ComputeBaseline(volumes[:i], d.Period)
		if !ok {
			continue
		}

		z, ok := stats.ZScore(volumes[i], baseline)
		if !ok {
			continue
		}
		if z < d.MinZScore {
			continue
		}
		if d.MinVolumeRatio > 0 && baseline.EMA > 0 && volumes[i]/baseline.EMA < d.MinVolumeRatio {
			continue
		}

		events = append(events, domain.NewVolumeEvent(symbol, tf, candles[i], z))
	}

	return events
}
