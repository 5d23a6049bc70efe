// Package scene hosts placed effects as ECS entities and steps them on a
// fixed clock: movement, LOD selection, emitter ticks and cleanup, with
// telemetry windows flushed along the way.
package scene

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/plume/camera"
	"github.com/pthm-cable/plume/catalog"
	"github.com/pthm-cable/plume/components"
	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/telemetry"
)

// Options configures scene construction.
type Options struct {
	Seed           int64                       // RNG seed (0 = use config, then time-based)
	LogStats       bool                        // Output stats via slog
	StatsWindowSec float64                     // Stats window in seconds (0 = use config)
	SnapshotDir    string                      // Directory for snapshots (empty = use config)
	OutputDir      string                      // Directory for CSV output (empty = disabled)
	StepsPerUpdate int                         // Ticks per Update call (0 = use config)
	StatsCallback  func(telemetry.WindowStats) // Called after each window flush
	Logger         *slog.Logger                // Passed to emitter instances (nil = slog.Default)
	SkipPlacements bool                        // Do not place the configured effects
}

// Scene holds the complete scene state.
type Scene struct {
	cfg     *config.Config
	world   *ecs.World
	rng     *rand.Rand
	rngSeed int64
	catalog *catalog.Catalog
	logger  *slog.Logger

	effectMapper *ecs.Map3[components.Position, components.Velocity, components.Effect]
	sweepMapper  *ecs.Map4[components.Position, components.Velocity, components.Effect, components.Sweep]
	effectFilter *ecs.Filter3[components.Position, components.Velocity, components.Effect]
	sweepFilter  *ecs.Filter3[components.Position, components.Effect, components.Sweep]
	effectMap    *ecs.Map1[components.Effect]

	camera *camera.Camera
	tick   int32

	// Emitter phase timing is routed through timer so parallel ticks can
	// detach the shared collector.
	timer    *phaseSwitch
	parallel *parallelState

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	lifetimeTracker  *telemetry.LifetimeTracker
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool
	snapshotDir      string
	statsCallback    func(telemetry.WindowStats)
	stepsPerUpdate   int

	// Counters
	effectCount    int
	completedCount int
}

// New creates a scene from cfg, building every configured effect and placing
// the configured placements.
func New(cfg *config.Config, opts Options) (*Scene, error) {
	cat := catalog.New()
	if err := cat.Load(cfg); err != nil {
		return nil, fmt.Errorf("building effects: %w", err)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Simulation.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}
	snapshotDir := opts.SnapshotDir
	if snapshotDir == "" {
		snapshotDir = cfg.Telemetry.SnapshotDir
	}
	steps := opts.StepsPerUpdate
	if steps <= 0 {
		steps = cfg.Simulation.StepsPerUpdate
	}

	world := ecs.NewWorld()
	s := &Scene{
		cfg:     cfg,
		world:   world,
		rng:     rand.New(rand.NewSource(seed)),
		rngSeed: seed,
		catalog: cat,
		logger:  logger,

		effectMapper: ecs.NewMap3[components.Position, components.Velocity, components.Effect](world),
		sweepMapper:  ecs.NewMap4[components.Position, components.Velocity, components.Effect, components.Sweep](world),
		effectFilter: ecs.NewFilter3[components.Position, components.Velocity, components.Effect](world),
		sweepFilter:  ecs.NewFilter3[components.Position, components.Effect, components.Sweep](world),
		effectMap:    ecs.NewMap1[components.Effect](world),

		camera:   newCamera(&cfg.Scene),
		timer:    &phaseSwitch{},
		parallel: newParallelState(cfg.Scene.Workers),

		collector:        telemetry.NewCollector(statsWindow, cfg.Derived.DT32),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		lifetimeTracker:  telemetry.NewLifetimeTracker(),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory),
		logStats:         opts.LogStats,
		snapshotDir:      snapshotDir,
		statsCallback:    opts.StatsCallback,
		stepsPerUpdate:   steps,
	}

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("creating output manager: %w", err)
		}
		if err := om.WriteConfig(cfg); err != nil {
			om.Close()
			return nil, fmt.Errorf("writing config: %w", err)
		}
		s.outputManager = om
	}

	if !opts.SkipPlacements {
		if err := s.placeInitial(); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Update advances the scene by the configured number of ticks.
func (s *Scene) Update() {
	for i := 0; i < s.stepsPerUpdate; i++ {
		s.Step()
	}
}

// Tick returns the number of completed simulation ticks.
func (s *Scene) Tick() int32 {
	return s.tick
}

// Seed returns the RNG seed the scene was created with.
func (s *Scene) Seed() int64 {
	return s.rngSeed
}

// Catalog returns the effect templates the scene places from.
func (s *Scene) Catalog() *catalog.Catalog {
	return s.catalog
}

// EffectCount returns the number of live effects.
func (s *Scene) EffectCount() int {
	return s.effectCount
}

// CompletedCount returns the number of effects removed after completing.
func (s *Scene) CompletedCount() int {
	return s.completedCount
}

// SetCamera moves the viewer used for LOD selection and stops any orbit.
func (s *Scene) SetCamera(pos mgl32.Vec3) {
	s.camera.MoveTo(pos)
}

// Camera returns the viewer.
func (s *Scene) Camera() *camera.Camera {
	return s.camera
}

func newCamera(sc *config.SceneConfig) *camera.Camera {
	cam := camera.New(mgl32.Vec3(sc.Camera))
	if sc.Zoom > 0 {
		cam.SetZoom(sc.Zoom)
	}
	cam.FarClip = sc.FarClip
	if sc.Orbit.Radius > 0 {
		cam.SetOrbit(mgl32.Vec3(sc.Orbit.Target), sc.Orbit.Radius, sc.Orbit.Speed, sc.Orbit.Height)
	}
	return cam
}

// Perf returns the current performance stats.
func (s *Scene) Perf() telemetry.PerfStats {
	return s.perfCollector.Stats()
}

// Close stops the worker pool and flushes open output files.
func (s *Scene) Close() {
	if s.parallel != nil {
		s.parallel.stopWorkers()
	}
	if s.outputManager != nil {
		// Remaining effects did not complete, but their lifetimes are still worth keeping.
		for _, ls := range s.lifetimeTracker.All() {
			if err := s.outputManager.WriteInstance(ls); err != nil {
				slog.Error("failed to write instance", "error", err)
			}
		}
		if err := s.outputManager.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
		s.outputManager = nil
	}
}
