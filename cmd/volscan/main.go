// Command volscan runs the live volume-anomaly scanner. It discovers a
// ranked instrument universe, backfills recent history into an event feed
// and then polls for fresh anomalies, serving the feed over HTTP (SSE
// stream + CSV export).
//
// Usage:
//
//	volscan --config config.yaml
//	volscan --platform bybit --universe 15 --minzscore 2.5
//
// Optional environment variables:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
//
// Market data endpoints are public; keys are only needed when an endpoint
// override requires them.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/volscan/config"
	"github.com/vadiminshakov/volscan/internal/clients"
	"github.com/vadiminshakov/volscan/internal/domain"
	"github.com/vadiminshakov/volscan/internal/services/market"
	"github.com/vadiminshakov/volscan/internal/services/scanner"
	"github.com/vadiminshakov/volscan/internal/storage/events"
	"github.com/vadiminshakov/volscan/internal/storage/journal"
	"github.com/vadiminshakov/volscan/internal/web"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := newCandleSource(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create candle source", zap.Error(err))
	}

	store := events.NewStore(cfg.EventCap)

	jstore, err := journal.NewStore(cfg.JournalDir)
	if err != nil {
		logger.Fatal("failed to open event journal", zap.Error(err))
	}
	defer jstore.Close()

	unsubscribe := store.Subscribe(func(added []domain.VolumeEvent) {
		for _, ev := range added {
			if err := jstore.Append(ev); err != nil {
				logger.Warn("failed to journal event", zap.String("id", ev.ID), zap.Error(err))
			}
		}
	})
	defer unsubscribe()

	alert := func(ev domain.VolumeEvent) {
		logger.Warn("extreme volume anomaly",
			zap.String("symbol", ev.Symbol),
			zap.String("timeframe", ev.Timeframe.String()),
			zap.Float64("z_score", ev.ZScore),
			zap.String("direction", string(ev.Direction)))
		if cfg.AlertSound {
			fmt.Print("\a")
		}
	}

	ctrl := scanner.NewController(scanner.Config{
		Timeframes:     cfg.Timeframes,
		Metric:         cfg.RankingMetric,
		UniverseSize:   cfg.UniverseSize,
		Period:         cfg.Period,
		MinZScore:      cfg.MinZScore,
		MinVolumeRatio: cfg.MinVolumeRatio,
		Lookback:       cfg.Lookback,
		LiveWindow:     cfg.LiveWindow,
		PollInterval:   cfg.PollInterval,
		BatchSize:      cfg.BatchSize,
		BatchDelay:     cfg.BatchDelay,
	}, source, store, logger, alert)

	// explicit symbol list skips discovery
	if len(cfg.Symbols) > 0 {
		entries := make([]domain.SymbolEntry, 0, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			entries = append(entries, domain.SymbolEntry{Symbol: s})
		}
		store.ResetSymbols(entries)
	}

	ctrl.Start(ctx)
	defer ctrl.Stop()

	server := web.NewServer(cfg.WebAddr, jstore, store, cfg.Location)
	logger.Info("web server listening", zap.String("addr", cfg.WebAddr))
	if err := server.Start(ctx); err != nil {
		logger.Error("web server failed", zap.Error(err))
		os.Exit(1)
	}
}

func newCandleSource(ctx context.Context, cfg config.Config) (market.CandleSource, error) {
	switch cfg.Platform {
	case "binance":
		client := clients.NewBinanceClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"), cfg.Endpoint)
		return market.NewBinanceSource(client), nil
	case "bybit":
		client := clients.NewBybitClient(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"), cfg.Endpoint)
		return market.NewBybitSource(client), nil
	case "hyperliquid":
		return market.NewHyperliquidSource(clients.NewHyperliquidInfo(ctx, cfg.Endpoint)), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", cfg.Platform)
	}
}
