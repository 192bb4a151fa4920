// Package report generates historical anomaly reports over an explicit
// symbol x timeframe x lookback grid. It shares the detection core with the
// live scanner but never touches its state: a report is a pure query against
// the candle source and is safe to run alongside a live scan.
package report

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/volscan/internal/domain"
	"github.com/vadiminshakov/volscan/internal/services/detector"
	"github.com/vadiminshakov/volscan/internal/services/market"
)

const (
	minLookback = 100
	maxLookback = 1000
)

// Config describes one report run.
type Config struct {
	Symbols        []string
	Timeframes     []domain.Timeframe
	Lookback       int
	Period         int
	MinZScore      float64
	MinVolumeRatio float64

	// Concurrency bounds how many tasks run at once; BatchDelay is the
	// courtesy pause between task batches.
	Concurrency int
	BatchDelay  time.Duration
}

func (c *Config) normalize() {
	if c.Lookback < minLookback {
		c.Lookback = minLookback
	}
	if c.Lookback > maxLookback {
		c.Lookback = maxLookback
	}
	if c.Period <= 0 {
		c.Period = 21
	}
	if c.MinZScore == 0 {
		c.MinZScore = 2.0
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = 200 * time.Millisecond
	}
}

type task struct {
	symbol    string
	timeframe domain.Timeframe
}

// Generator runs historical replays against a candle source.
type Generator struct {
	source market.CandleSource
	logger *zap.Logger
}

// NewGenerator creates a report generator.
func NewGenerator(source market.CandleSource, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{source: source, logger: logger}
}

// Generate fetches the full lookback window for every (symbol, timeframe)
// pair and replays detection over every bar. A failed task is logged and
// skipped; the report is whatever subset succeeded. progress, when non-nil,
// is called with the completed and total task counts after each batch.
// Results are sorted newest first by bar time.
func (g *Generator) Generate(ctx context.Context, cfg Config, progress func(done, total int)) ([]domain.VolumeEvent, error) {
	cfg.normalize()

	det := detector.Detector{
		Period:         cfg.Period,
		MinZScore:      cfg.MinZScore,
		MinVolumeRatio: cfg.MinVolumeRatio,
	}

	var tasks []task
	for _, symbol := range cfg.Symbols {
		for _, tf := range cfg.Timeframes {
			tasks = append(tasks, task{symbol: symbol, timeframe: tf})
		}
	}

	var (
		resultMu sync.Mutex
		result   []domain.VolumeEvent
	)

	for start := 0; start < len(tasks); start += cfg.Concurrency {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + cfg.Concurrency
		if end > len(tasks) {
			end = len(tasks)
		}

		eg, gctx := errgroup.WithContext(ctx)
		for _, t := range tasks[start:end] {
			t := t
			eg.Go(func() error {
				candles, err := g.source.FetchCandles(gctx, t.symbol, t.timeframe, cfg.Lookback)
				if err != nil {
					// skip the task, the report covers whatever succeeded
					g.logger.Warn("report task failed",
						zap.String("symbol", t.symbol),
						zap.String("timeframe", t.timeframe.String()),
						zap.Error(err))
					return nil
				}

				evs := det.ScanAll(t.symbol, t.timeframe, candles)
				if len(evs) == 0 {
					return nil
				}

				resultMu.Lock()
				result = append(result, evs...)
				resultMu.Unlock()
				return nil
			})
		}
		_ = eg.Wait() // task errors are swallowed above

		if progress != nil {
			progress(end, len(tasks))
		}

		if end < len(tasks) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.BatchDelay):
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Time.After(result[j].Time)
	})

	return result, nil
}
