// Command volreport generates a historical volume-anomaly report over an
// explicit symbol x timeframe grid and writes it as CSV.
//
// Usage:
//
//	volreport --platform bybit --symbols BTCUSDT,ETHUSDT --timeframes 30m,4h --lookback 500 --out report.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/volscan/internal/clients"
	"github.com/vadiminshakov/volscan/internal/domain"
	"github.com/vadiminshakov/volscan/internal/export"
	"github.com/vadiminshakov/volscan/internal/services/market"
	"github.com/vadiminshakov/volscan/internal/services/report"
)

func main() {
	platform := flag.String("platform", "bybit", "market data platform: binance, bybit or hyperliquid")
	endpoint := flag.String("endpoint", "", "API base URL override")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbol list (required)")
	timeframesFlag := flag.String("timeframes", "30m,4h", "comma-separated timeframes")
	lookback := flag.Int("lookback", 500, "bars of history per task, 100-1000")
	period := flag.Int("period", 21, "EMA baseline period")
	minZScore := flag.Float64("minzscore", 2.0, "minimum z-score threshold")
	minVolumeRatio := flag.Float64("minvolumeratio", 0, "minimum volume/EMA ratio, 0 to disable")
	timezone := flag.String("timezone", "UTC", "display timezone for report timestamps")
	out := flag.String("out", "report.csv", "output CSV path")
	flag.Parse()

	if *symbolsFlag == "" {
		log.Fatal("--symbols is required")
	}

	var symbols []string
	for _, s := range strings.Split(*symbolsFlag, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	var timeframes []domain.Timeframe
	for _, s := range strings.Split(*timeframesFlag, ",") {
		tf, err := domain.ParseTimeframe(strings.TrimSpace(s))
		if err != nil {
			log.Fatal(err)
		}
		timeframes = append(timeframes, tf)
	}

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()

	source, err := newCandleSource(ctx, *platform, *endpoint)
	if err != nil {
		log.Fatal(err)
	}

	generator := report.NewGenerator(source, logger)

	events, err := generator.Generate(ctx, report.Config{
		Symbols:        symbols,
		Timeframes:     timeframes,
		Lookback:       *lookback,
		Period:         *period,
		MinZScore:      *minZScore,
		MinVolumeRatio: *minVolumeRatio,
	}, func(done, total int) {
		fmt.Printf("%d / %d\n", done, total)
	})
	if err != nil {
		log.Fatal(err)
	}

	file, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	if err := export.WriteCSV(file, events, loc); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("wrote %d events to %s\n", len(events), *out)
}

func newCandleSource(ctx context.Context, platform, endpoint string) (market.CandleSource, error) {
	switch strings.ToLower(platform) {
	case "binance":
		return market.NewBinanceSource(clients.NewBinanceClient("", "", endpoint)), nil
	case "bybit":
		return market.NewBybitSource(clients.NewBybitClient("", "", endpoint)), nil
	case "hyperliquid":
		return market.NewHyperliquidSource(clients.NewHyperliquidInfo(ctx, endpoint)), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}
