package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/particle"
	"github.com/pthm-cable/plume/scene"
)

var (
	configPath     = flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats       = flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow    = flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir    = flag.String("snapshot-dir", "", "Directory for snapshot files (empty = use config)")
	outputDir      = flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed           = flag.Int64("seed", 0, "RNG seed (0 = use config, then time-based)")
	maxTicks       = flag.Int("max-ticks", 0, "Stop after N ticks (0 = use config)")
	stepsPerUpdate = flag.Int("steps-per-update", 0, "Simulation ticks per update call (0 = use config)")
	dumpLayout     = flag.Bool("dump-layout", false, "Log every template's payload layout at startup")
	logEvery       = flag.Int("log-every", 0, "Log scene state every N ticks (0 = never)")
	debug          = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	if err := config.Init(*configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()
	cfg.Debug.DumpLayout = cfg.Debug.DumpLayout || *dumpLayout
	particle.SetStrict(cfg.Debug.StrictLayout)

	limit := int32(cfg.Simulation.MaxTicks)
	if *maxTicks > 0 {
		limit = int32(*maxTicks)
	}

	s, err := scene.New(cfg, scene.Options{
		Seed:           *seed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
		StepsPerUpdate: *stepsPerUpdate,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("creating scene: %w", err)
	}
	defer s.Close()

	logger.Info("starting simulation",
		"seed", s.Seed(),
		"effects", s.Catalog().Names(),
		"placed", s.EffectCount(),
		"max_ticks", limit,
	)

	var lastLog int32
	for ctx.Err() == nil {
		s.Update()
		tick := s.Tick()

		if *logEvery > 0 && tick-lastLog >= int32(*logEvery) {
			lastLog = tick
			s.LogState()
		}
		if limit > 0 && tick >= limit {
			logger.Info("max ticks reached", "tick", tick, "completed", s.CompletedCount())
			s.LogState()
			return nil
		}
	}

	logger.Info("interrupted", "tick", s.Tick())
	return nil
}
