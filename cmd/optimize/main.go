package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/plume/config"
)

// options are the command line settings of one tuning run.
type options struct {
	configPath string
	effect     string
	target     float64
	instances  int
	maxTicks   int
	seeds      int
	maxEvals   int
	population int
	outputDir  string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.StringVar(&o.effect, "effect", "", "Effect to tune")
	flag.Float64Var(&o.target, "target", 100, "Target live particles per instance")
	flag.IntVar(&o.instances, "instances", 4, "Instances placed per run")
	flag.IntVar(&o.maxTicks, "max-ticks", 600, "Simulation duration per run in ticks")
	flag.IntVar(&o.seeds, "seeds", 3, "Number of seeds per evaluation")
	flag.IntVar(&o.maxEvals, "max-evals", 100, "Maximum number of evaluations")
	flag.IntVar(&o.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.StringVar(&o.outputDir, "output", "", "Output directory for results")
	flag.Parse()
	return o
}

func (o options) validate() error {
	switch {
	case o.outputDir == "":
		return errors.New("--output is required")
	case o.effect == "":
		return errors.New("--effect is required")
	case o.target <= 0 || o.instances < 1:
		return errors.New("--target and --instances must be positive")
	case o.seeds < 1 || o.maxTicks < 1:
		return errors.New("--seeds and --max-ticks must be positive")
	}
	return nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	opts := parseFlags()
	if err := run(opts); err != nil {
		slog.Error("tuning failed", "error", err)
		os.Exit(1)
	}
}

// evalRecord is one optimize_log.csv row.
type evalRecord struct {
	Eval              int     `csv:"eval"`
	Fitness           float64 `csv:"fitness"`
	Particles         float64 `csv:"particles"`
	DropRate          float64 `csv:"drop_rate"`
	AllocatedBytes    float64 `csv:"allocated_bytes"`
	RateScale         float64 `csv:"rate_scale"`
	MaxParticles      float64 `csv:"max_particles"`
	InitialAllocation float64 `csv:"initial_allocation"`
}

// tuner tracks evaluations across the CMA-ES run.
type tuner struct {
	params    *ParamVector
	evaluator *FitnessEvaluator
	log       *os.File
	maxEvals  int

	evals   int
	best    float64
	bestX   []float64
	started time.Time
}

// evaluate scores normalized x and records the evaluation.
func (t *tuner) evaluate(x []float64) float64 {
	// Clamped values are the ones actually simulated.
	values := t.params.Clamp(t.params.Denormalize(x))
	fitness := t.evaluator.Evaluate(values)
	summary := t.evaluator.LastSummary()

	t.evals++
	if t.bestX == nil || fitness < t.best {
		t.best = fitness
		t.bestX = values
	}

	rec := evalRecord{
		Eval:              t.evals,
		Fitness:           fitness,
		Particles:         summary.particles,
		DropRate:          summary.dropRate,
		AllocatedBytes:    summary.bytes,
		RateScale:         values[0],
		MaxParticles:      values[1],
		InitialAllocation: values[2],
	}
	marshal := gocsv.MarshalWithoutHeaders
	if t.evals == 1 {
		marshal = gocsv.Marshal
	}
	if err := marshal([]evalRecord{rec}, t.log); err != nil {
		slog.Warn("failed to log evaluation", "eval", t.evals, "error", err)
	}

	elapsed := time.Since(t.started)
	eta := elapsed / time.Duration(t.evals) * time.Duration(max(t.maxEvals-t.evals, 0))
	slog.Info("eval",
		"n", t.evals,
		"of", t.maxEvals,
		"particles", fmt.Sprintf("%.1f", summary.particles),
		"drop", fmt.Sprintf("%.3f", summary.dropRate),
		"fitness", fitness,
		"best", t.best,
		"elapsed", elapsed.Round(time.Second),
		"eta", eta.Round(time.Second),
	)
	return fitness
}

func run(o options) error {
	if err := o.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(o.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := config.Init(o.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	baseCfg := config.Cfg()
	effect, ok := baseCfg.Effect(o.effect)
	if !ok {
		return fmt.Errorf("unknown effect %q", o.effect)
	}

	params := NewParamVector(effect)
	seeds := make([]int64, o.seeds)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}

	logFile, err := os.Create(filepath.Join(o.outputDir, "optimize_log.csv"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	t := &tuner{
		params:    params,
		evaluator: NewFitnessEvaluator(params, baseCfg, *effect, o.instances, o.target, int32(o.maxTicks), seeds),
		log:       logFile,
		maxEvals:  o.maxEvals,
		started:   time.Now(),
	}

	population := o.population
	if population == 0 {
		population = 4 + 3*params.Dim()/2
	}

	slog.Info("tuning",
		"effect", o.effect,
		"params", params.Dim(),
		"population", population,
		"max_evals", o.maxEvals,
		"target", o.target,
		"instances", o.instances,
		"seeds", o.seeds,
		"ticks", o.maxTicks,
	)

	result, err := optimize.Minimize(
		optimize.Problem{Func: t.evaluate},
		params.Normalize(params.DefaultVector()),
		&optimize.Settings{FuncEvaluations: o.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: population},
	)
	if err != nil {
		slog.Warn("optimization ended early", "error", err)
	}

	// The best evaluation may come from any generation, not just the final one.
	best := t.bestX
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return errors.New("no evaluations completed")
	}

	slog.Info("tuning complete",
		"evals", t.evals,
		"elapsed", time.Since(t.started).Round(time.Second),
		"best_fitness", t.best,
	)
	for i, spec := range params.Specs {
		slog.Info("best parameter", "name", spec.Name, "path", spec.Path, "value", best[i])
	}

	return writeBestConfig(o, params, best)
}

// writeBestConfig reloads the base config, swaps in the tuned effect and
// saves it as best_config.yaml.
func writeBestConfig(o options, params *ParamVector, best []float64) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	idx := cfg.Derived.EffectIndex[o.effect]
	cfg.Effects[idx] = params.ApplyToConfig(cfg.Effects[idx], best)

	path := filepath.Join(o.outputDir, "best_config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	slog.Info("best config saved", "path", path)
	return nil
}
