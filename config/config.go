// Package config loads scanner configuration from a YAML file or CLI flags.
// The YAML schema is versioned; old documents are upgraded by explicit
// migration functions before parsing.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/volscan/internal/domain"
	"github.com/vadiminshakov/volscan/internal/services/market"
)

// CurrentVersion is the schema version written by this build.
const CurrentVersion = 2

const (
	minUniverseSize = 1
	maxUniverseSize = 50
)

// Config is the resolved, validated configuration.
type Config struct {
	Platform       string
	Endpoint       string
	Symbols        []string
	UniverseSize   int
	RankingMetric  market.RankingMetric
	Timeframes     []domain.Timeframe
	Period         int
	MinZScore      float64
	MinVolumeRatio float64
	Lookback       int
	LiveWindow     int
	PollInterval   time.Duration
	BatchSize      int
	BatchDelay     time.Duration
	EventCap       int
	AlertSound     bool
	Location       *time.Location
	WebAddr        string
	JournalDir     string
}

// rawConfig mirrors the version-2 YAML document.
type rawConfig struct {
	Version         int      `yaml:"version"`
	Platform        string   `yaml:"platform"`
	Endpoint        string   `yaml:"endpoint,omitempty"`
	Symbols         []string `yaml:"symbols,omitempty"`
	UniverseSize    int      `yaml:"universe_size,omitempty"`
	RankingMetric   string   `yaml:"ranking_metric,omitempty"`
	Timeframes      []string `yaml:"timeframes,omitempty"`
	Period          int      `yaml:"period,omitempty"`
	MinZScore       float64  `yaml:"min_zscore,omitempty"`
	MinVolumeRatio  float64  `yaml:"min_volume_ratio,omitempty"`
	Lookback        int      `yaml:"lookback,omitempty"`
	LiveWindow      int      `yaml:"live_window,omitempty"`
	PollInterval    string   `yaml:"poll_interval,omitempty"`
	BatchSize       int      `yaml:"batch_size,omitempty"`
	BatchDelay      string   `yaml:"batch_delay,omitempty"`
	EventCap        int      `yaml:"event_cap,omitempty"`
	AlertSound      bool     `yaml:"alert_sound,omitempty"`
	DisplayTimezone string   `yaml:"display_timezone,omitempty"`
	WebAddr         string   `yaml:"web_addr,omitempty"`
	JournalDir      string   `yaml:"journal_dir,omitempty"`
}

// Get resolves configuration from the --config YAML file when provided,
// otherwise from CLI flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", "bybit", "market data platform: binance, bybit or hyperliquid")
	symbols := flag.String("symbols", "", "comma-separated symbol list, empty to discover the universe")
	universe := flag.Int("universe", 10, "universe size, 1-50")
	metric := flag.String("metric", "volume", "universe ranking metric: volume or openinterest")
	minZScore := flag.Float64("minzscore", 2.0, "minimum z-score threshold")
	pollInterval := flag.Duration("pollinterval", 45*time.Second, "poll cycle interval")
	webAddr := flag.String("web", ":8085", "web server listen address")
	flag.Parse()

	if *configPath != "" {
		return Load(*configPath)
	}

	raw := rawConfig{
		Version:       CurrentVersion,
		Platform:      *platform,
		UniverseSize:  *universe,
		RankingMetric: *metric,
		MinZScore:     *minZScore,
		PollInterval:  pollInterval.String(),
		WebAddr:       *webAddr,
	}
	if *symbols != "" {
		raw.Symbols = strings.Split(*symbols, ",")
	}

	return raw.build()
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config file")
	}
	return Parse(data)
}

// Parse decodes a YAML document, migrating old schema versions first.
func Parse(data []byte) (Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, errors.Wrap(err, "decode yaml config")
	}
	if doc == nil {
		return Config{}, errors.New("empty config document")
	}

	version := 1
	if v, ok := doc["version"].(int); ok {
		version = v
	}
	if version > CurrentVersion {
		return Config{}, fmt.Errorf("config version %d is newer than supported version %d", version, CurrentVersion)
	}
	if version < 2 {
		doc = migrateV1(doc)
	}

	buf, err := yaml.Marshal(doc)
	if err != nil {
		return Config{}, errors.Wrap(err, "re-encode migrated config")
	}

	var raw rawConfig
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	return raw.build()
}

// build applies defaults, clamps bounds and validates enumerated values.
func (r rawConfig) build() (Config, error) {
	cfg := Config{
		Platform:       strings.ToLower(strings.TrimSpace(r.Platform)),
		Endpoint:       r.Endpoint,
		UniverseSize:   r.UniverseSize,
		Period:         r.Period,
		MinZScore:      r.MinZScore,
		MinVolumeRatio: r.MinVolumeRatio,
		Lookback:       r.Lookback,
		LiveWindow:     r.LiveWindow,
		BatchSize:      r.BatchSize,
		EventCap:       r.EventCap,
		AlertSound:     r.AlertSound,
		WebAddr:        r.WebAddr,
		JournalDir:     r.JournalDir,
	}

	switch cfg.Platform {
	case "binance", "bybit", "hyperliquid":
	case "":
		cfg.Platform = "bybit"
	default:
		return Config{}, fmt.Errorf("unsupported platform: %s", r.Platform)
	}

	for _, s := range r.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			cfg.Symbols = append(cfg.Symbols, s)
		}
	}

	if cfg.UniverseSize < minUniverseSize {
		cfg.UniverseSize = 10
	}
	if cfg.UniverseSize > maxUniverseSize {
		cfg.UniverseSize = maxUniverseSize
	}

	metric := r.RankingMetric
	if metric == "" {
		metric = string(market.RankByVolume)
	}
	parsedMetric, err := market.ParseRankingMetric(strings.ToLower(metric))
	if err != nil {
		return Config{}, err
	}
	cfg.RankingMetric = parsedMetric

	if len(r.Timeframes) == 0 {
		cfg.Timeframes = []domain.Timeframe{domain.Timeframe5m, domain.Timeframe30m, domain.Timeframe4h}
	} else {
		for _, s := range r.Timeframes {
			tf, err := domain.ParseTimeframe(strings.TrimSpace(s))
			if err != nil {
				return Config{}, err
			}
			cfg.Timeframes = append(cfg.Timeframes, tf)
		}
	}

	if cfg.Period <= 0 {
		cfg.Period = 21
	}
	if cfg.MinZScore <= 0 {
		cfg.MinZScore = 2.0
	}
	if cfg.MinVolumeRatio < 0 {
		return Config{}, fmt.Errorf("min_volume_ratio must not be negative")
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 100
	}
	if cfg.Lookback < cfg.Period+10 {
		cfg.Lookback = cfg.Period + 10
	}
	if cfg.Lookback > 1000 {
		cfg.Lookback = 1000
	}
	if cfg.LiveWindow < 1 {
		cfg.LiveWindow = 1
	}
	if cfg.LiveWindow > 10 {
		cfg.LiveWindow = 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.BatchSize > 20 {
		cfg.BatchSize = 20
	}
	if cfg.EventCap <= 0 {
		cfg.EventCap = 500
	}

	cfg.PollInterval, err = parseDuration(r.PollInterval, 45*time.Second)
	if err != nil {
		return Config{}, errors.Wrap(err, "incorrect 'poll_interval' param")
	}
	if cfg.PollInterval < 5*time.Second {
		cfg.PollInterval = 5 * time.Second
	}

	cfg.BatchDelay, err = parseDuration(r.BatchDelay, 300*time.Millisecond)
	if err != nil {
		return Config{}, errors.Wrap(err, "incorrect 'batch_delay' param")
	}

	tz := r.DisplayTimezone
	if tz == "" {
		tz = "UTC"
	}
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return Config{}, errors.Wrapf(err, "incorrect 'display_timezone' param: %s", tz)
	}

	if cfg.WebAddr == "" {
		cfg.WebAddr = ":8085"
	}

	return cfg, nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}
