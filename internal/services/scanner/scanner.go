// Package scanner runs the live volume-anomaly scan loop: it discovers the
// instrument universe, polls candle history in rate-limited batches and feeds
// detected anomalies into the event store.
package scanner

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
	"github.com/vadiminshakov/volscan/internal/storage/events"
	"github.com/vadiminshakov/volscan/pkg/retrier"
)

// State of the controller. A started controller passes through a one-shot
// backfill before settling into steady-state live polling.
type State string

const (
	StateIdle        State = "idle"
	StateBackfilling State = "backfilling"
	StateLive        State = "live"
)

const (
	discoveryRetries = 3
	discoveryBackoff = 2 * time.Second
)

// Config holds the scan loop knobs. New normalizes zero values to defaults.
type Config struct {
	Timeframes     []domain.Timeframe
	Metric         market.RankingMetric
	UniverseSize   int
	Period         int
	MinZScore      float64
	MinVolumeRatio float64

	// Lookback is how many bars are fetched per symbol and timeframe each
	// cycle. It must leave the EMA enough warm-up room past Period.
	Lookback int

	// LiveWindow is how many of the newest bars are re-evaluated per live
	// cycle.
	LiveWindow int

	PollInterval time.Duration
	BatchSize    int
	BatchDelay   time.Duration
}

func (c *Config) normalize() {
	if len(c.Timeframes) == 0 {
		c.Timeframes = []domain.Timeframe{domain.Timeframe5m, domain.Timeframe30m, domain.Timeframe4h}
	}
	if c.Metric == "" {
		c.Metric = market.RankByVolume
	}
	if c.UniverseSize <= 0 {
		c.UniverseSize = 10
	}
	if c.Period <= 0 {
		c.Period = 21
	}
	if c.MinZScore == 0 {
		c.MinZScore = 2.0
	}
	if c.Lookback < c.Period+10 {
		c.Lookback = c.Period + 79 // 100 bars at the default period
	}
	if c.LiveWindow < 1 {
		c.LiveWindow = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 45 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = 300 * time.Millisecond
	}
}

// Controller owns the polling loop. It is created once by the composition
// root and handed its collaborators; it is the only writer of the event
// store.
type Controller struct {
	cfg    Config
	source market.CandleSource
	store  *events.Store
	det    detector.Detector
	logger *zap.Logger

	// alert fires on every newly inserted live event of the extreme tier.
	alert func(domain.VolumeEvent)

	discoveryBackoff time.Duration

	mu         sync.Mutex
	state      State
	running    bool
	backfilled bool
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewController creates a stopped controller. alert may be nil.
func NewController(cfg Config, source market.CandleSource, store *events.Store, logger *zap.Logger, alert func(domain.VolumeEvent)) *Controller {
	cfg.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		cfg:              cfg,
		source:           source,
		store:            store,
		logger:           logger,
		alert:            alert,
		state:            StateIdle,
		discoveryBackoff: discoveryBackoff,
		det: detector.Detector{
			Period:         cfg.Period,
			MinZScore:      cfg.MinZScore,
			MinVolumeRatio: cfg.MinVolumeRatio,
		},
	}
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start enters the scan loop: one cycle immediately, then one per poll
// interval. Calling Start on a running controller is a no-op. Restarting a
// stopped controller re-enters the backfill phase.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.backfilled = false
	c.state = StateBackfilling

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	c.logger.Info("scanner started",
		zap.Int("universe_size", c.cfg.UniverseSize),
		zap.Duration("poll_interval", c.cfg.PollInterval))

	go c.loop(runCtx, done)
}

// Stop leaves the loop. The in-flight cycle is allowed to finish; it checks
// the running flag at every batch boundary and stops mutating shared state
// once the flag is down.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.state = StateIdle
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.logger.Info("scanner stopped")
}

// Wait blocks until the scan loop goroutine has exited.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// RefreshUniverse drops the tracked universe and rediscovers it. The error of
// an exhausted discovery retry is surfaced to the caller.
func (c *Controller) RefreshUniverse(ctx context.Context) error {
	entries, err := c.discoverUniverse(ctx)
	if err != nil {
		return err
	}
	c.store.ResetSymbols(entries)
	return nil
}

func (c *Controller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	c.runCycle(ctx)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.isRunning() {
				return
			}
			c.runCycle(ctx)
		}
	}
}

func (c *Controller) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// runCycle performs one poll cycle: universe discovery when the universe is
// empty, otherwise a batched scan of every tracked symbol.
func (c *Controller) runCycle(ctx context.Context) {
	universe := c.store.Symbols()
	if len(universe) == 0 {
		entries, err := c.discoverUniverse(ctx)
		if err != nil {
			// no universe this cycle, try again on the next tick
			c.logger.Warn("universe discovery failed", zap.Error(err))
			return
		}
		for _, e := range entries {
			c.store.UpsertSymbol(e)
		}
		c.logger.Info("universe discovered", zap.Int("symbols", len(entries)))
		return
	}

	backfill := !c.isBackfilled()
	var (
		collectedMu sync.Mutex
		collected   []domain.VolumeEvent
	)

	for start := 0; start < len(universe); start += c.cfg.BatchSize {
		if ctx.Err() != nil || !c.isRunning() {
			return
		}

		end := start + c.cfg.BatchSize
		if end > len(universe) {
			end = len(universe)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, entry := range universe[start:end] {
			entry := entry
			g.Go(func() error {
				evs, updated, err := c.scanSymbol(gctx, entry, backfill)
				if err != nil {
					// partial coverage is fine, the next cycle self-heals
					c.logger.Warn("symbol scan failed",
						zap.String("symbol", entry.Symbol),
						zap.Error(err))
					return nil
				}

				c.store.UpsertSymbol(updated)

				if backfill {
					collectedMu.Lock()
					collected = append(collected, evs...)
					collectedMu.Unlock()
					return nil
				}

				for _, ev := range evs {
					if inserted := c.store.Add(ev); inserted {
						c.logger.Info("volume anomaly",
							zap.String("symbol", ev.Symbol),
							zap.String("timeframe", ev.Timeframe.String()),
							zap.Float64("z_score", ev.ZScore),
							zap.String("severity", string(ev.Severity)))
						if ev.Severity == domain.SeverityExtreme && c.alert != nil {
							c.alert(ev)
						}
					}
				}
				return nil
			})
		}
		_ = g.Wait() // per-symbol errors are swallowed above

		// courtesy delay between batches so the upstream API is not hammered
		if end < len(universe) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.BatchDelay):
			}
		}
	}

	if backfill {
		// the running flag alone is not enough: after a rapid Stop/Start it
		// belongs to the next session, which must do its own backfill
		if ctx.Err() != nil || !c.isRunning() {
			return
		}
		sort.SliceStable(collected, func(i, j int) bool {
			return collected[i].Time.After(collected[j].Time)
		})
		c.store.Replace(collected)

		c.mu.Lock()
		c.backfilled = true
		if c.running {
			c.state = StateLive
		}
		c.mu.Unlock()

		c.logger.Info("backfill complete", zap.Int("events", len(collected)))
	}
}

func (c *Controller) isBackfilled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backfilled
}

// scanSymbol refreshes the candle cache of one symbol across all configured
// timeframes and runs detection on each series.
func (c *Controller) scanSymbol(ctx context.Context, entry domain.SymbolEntry, backfill bool) ([]domain.VolumeEvent, domain.SymbolEntry, error) {
	var found []domain.VolumeEvent

	for _, tf := range c.cfg.Timeframes {
		candles, err := c.source.FetchCandles(ctx, entry.Symbol, tf, c.cfg.Lookback)
		if err != nil {
			return nil, entry, err
		}

		entry.SetCandles(tf, candles)

		if backfill {
			found = append(found, c.det.ScanAll(entry.Symbol, tf, candles)...)
		} else {
			found = append(found, c.det.ScanRecent(entry.Symbol, tf, candles, c.cfg.LiveWindow)...)
		}
	}

	return found, entry, nil
}

// discoverUniverse fetches the ranked universe, retrying transient failures a
// few times with a fixed backoff.
func (c *Controller) discoverUniverse(ctx context.Context) ([]domain.SymbolEntry, error) {
	r := retrier.New(
		retrier.WithAttempts(discoveryRetries),
		retrier.WithBackoff(c.discoveryBackoff),
	)

	attempt := 0
	return retrier.DoWithData(r, ctx, func(ctx context.Context) ([]domain.SymbolEntry, error) {
		attempt++
		entries, err := c.source.FetchUniverse(ctx, c.cfg.Metric, c.cfg.UniverseSize)
		if err != nil {
			c.logger.Warn("universe fetch attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return entries, err
	})
}
