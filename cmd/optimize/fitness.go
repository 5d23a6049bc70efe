package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/scene"
	"github.com/pthm-cable/plume/telemetry"
)

// Fitness weights.
const (
	dropWeight  = 4.0  // per unit drop rate
	slackWeight = 0.25 // per unit of unused particle cap
	failFitness = 1e6  // configs that fail to build
)

// FitnessEvaluator runs headless scenes and scores how well an effect holds
// its particle target.
type FitnessEvaluator struct {
	params      *ParamVector
	effect      config.EffectConfig
	baseConfig  *config.Config
	placements  []config.PlacementConfig
	target      float64 // particles per instance
	maxTicks    int32
	seeds       []int64
	statsWindow float64
	logger      *slog.Logger

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	lastSummary runSummary // summary from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator for the named effect placed
// instances times along the x axis.
func NewFitnessEvaluator(params *ParamVector, baseCfg *config.Config, effect config.EffectConfig, instances int, target float64, maxTicks int32, seeds []int64) *FitnessEvaluator {
	placements := make([]config.PlacementConfig, instances)
	for i := range placements {
		placements[i] = config.PlacementConfig{
			Effect:   effect.Name,
			Position: [3]float32{float32(i) * 100, 0, 0},
		}
	}
	return &FitnessEvaluator{
		params:      params,
		effect:      effect,
		baseConfig:  baseCfg,
		placements:  placements,
		target:      target,
		maxTicks:    maxTicks,
		seeds:       seeds,
		statsWindow: 1.0,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		bestFitness: math.Inf(1),
	}
}

// LastSummary returns the averaged measurements from the most recent evaluation.
func (fe *FitnessEvaluator) LastSummary() runSummary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSummary
}

// runSummary averages the windows of one run, skipping the warmup window.
type runSummary struct {
	particles float64 // mean particles per instance
	dropRate  float64
	peak      float64 // highest per-instance particle count seen at a window end
	bytes     float64 // pool bytes at the last window
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	ec := fe.params.ApplyToConfig(fe.effect, x)
	limit := float64(ec.MaxParticles)

	// Run all seeds in parallel
	summaries := make([]runSummary, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			summaries[idx], errs[idx] = fe.runSimulation(ec, s)
		}(i, seed)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return failFitness
		}
	}

	// Aggregate results
	var avg runSummary
	var total float64
	for _, s := range summaries {
		avg.particles += s.particles
		avg.dropRate += s.dropRate
		avg.peak = max(avg.peak, s.peak)
		avg.bytes += s.bytes
		total += fe.computeFitness(s, limit)
	}
	n := float64(len(fe.seeds))
	avg.particles /= n
	avg.dropRate /= n
	avg.bytes /= n
	fitness := total / n

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
	}
	fe.lastSummary = avg
	fe.mu.Unlock()

	return fitness
}

// computeFitness scores one run: squared relative miss of the particle target,
// plus dropped spawns and cap headroom that was never used.
func (fe *FitnessEvaluator) computeFitness(s runSummary, limit float64) float64 {
	miss := (s.particles - fe.target) / fe.target
	fitness := miss*miss + dropWeight*s.dropRate
	if limit > 0 && s.peak < limit {
		fitness += slackWeight * (limit - s.peak) / limit
	}
	return fitness
}

// runSimulation executes a single headless scene with only the tuned effect placed.
func (fe *FitnessEvaluator) runSimulation(ec config.EffectConfig, seed int64) (runSummary, error) {
	cfg := fe.sceneConfig(ec)

	var windows []telemetry.WindowStats
	s, err := scene.New(cfg, scene.Options{
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
		Logger:         fe.logger,
		StatsCallback: func(stats telemetry.WindowStats) {
			windows = append(windows, stats)
		},
	})
	if err != nil {
		return runSummary{}, err
	}
	defer s.Close()

	for s.Tick() < fe.maxTicks {
		s.Step()
	}
	return summarize(windows, len(fe.placements)), nil
}

// summarize averages window stats, skipping the first window while the effect warms up.
func summarize(windows []telemetry.WindowStats, instances int) runSummary {
	if len(windows) > 1 {
		windows = windows[1:]
	}
	var out runSummary
	if len(windows) == 0 || instances == 0 {
		return out
	}
	for _, w := range windows {
		perInstance := float64(w.Particles) / float64(instances)
		out.particles += perInstance
		out.dropRate += w.DropRate
		out.peak = max(out.peak, perInstance)
	}
	out.particles /= float64(len(windows))
	out.dropRate /= float64(len(windows))
	out.bytes = float64(windows[len(windows)-1].AllocatedBytes)
	return out
}

// sceneConfig returns a copy of the base config holding only the tuned effect.
func (fe *FitnessEvaluator) sceneConfig(ec config.EffectConfig) *config.Config {
	cfg := *fe.baseConfig
	cfg.Effects = []config.EffectConfig{ec}
	cfg.Placements = fe.placements
	cfg.Debug.DumpLayout = false
	cfg.Telemetry.SnapshotDir = ""
	// Seeds already run concurrently; keep each scene on one goroutine.
	cfg.Scene.ParallelThreshold = math.MaxInt32
	cfg.Derived.EffectIndex = map[string]int{ec.Name: 0}
	return &cfg
}
