// Package config provides configuration loading and access for the scene runner.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/plume/distribution"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all runner configuration parameters.
type Config struct {
	Simulation SimulationConfig  `yaml:"simulation"`
	Pool       PoolConfig        `yaml:"pool"`
	Debug      DebugConfig       `yaml:"debug"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
	Scene      SceneConfig       `yaml:"scene"`
	Effects    []EffectConfig    `yaml:"effects"`
	Placements []PlacementConfig `yaml:"placements"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds the fixed-step clock.
type SimulationConfig struct {
	DT             float64 `yaml:"dt"`
	Seed           int64   `yaml:"seed"`             // 0 = time-based
	MaxTicks       int     `yaml:"max_ticks"`        // 0 = unlimited
	StepsPerUpdate int     `yaml:"steps_per_update"` // ticks per Update call
}

// PoolConfig holds particle pool growth limits shared by every instance.
type PoolConfig struct {
	MaxParticleResize     int `yaml:"max_particle_resize"`      // hard cap on a single growth step (0 = unlimited)
	MaxParticleResizeWarn int `yaml:"max_particle_resize_warn"` // log a warning past this many slots (0 = never)
	InitialAllocation     int `yaml:"initial_allocation"`       // default slots for templates that set none
}

// DebugConfig holds diagnostics switches.
type DebugConfig struct {
	StrictLayout bool `yaml:"strict_layout"` // panic on payload access outside a module's region
	DumpLayout   bool `yaml:"dump_layout"`   // log every template's payload layout at startup
}

// TelemetryConfig holds telemetry and stats parameters.
type TelemetryConfig struct {
	StatsWindow     float64 `yaml:"stats_window"`     // seconds per stats window
	PerfWindow      int     `yaml:"perf_window"`      // ticks in the perf rolling window
	BookmarkHistory int     `yaml:"bookmark_history"` // windows kept for bookmark detection
	SnapshotDir     string  `yaml:"snapshot_dir"`     // write a snapshot on each bookmark when set
}

// SceneConfig holds the host world settings.
type SceneConfig struct {
	Camera            [3]float32  `yaml:"camera"`
	Zoom              float32     `yaml:"zoom"`     // LOD distance divisor (0 = 1)
	FarClip           float32     `yaml:"far_clip"` // skip render snapshots beyond this distance (0 = unlimited)
	Orbit             OrbitConfig `yaml:"orbit"`
	ParallelThreshold int         `yaml:"parallel_threshold"` // effects needed before ticking on workers
	Workers           int         `yaml:"workers"`            // 0 = GOMAXPROCS
}

// OrbitConfig circles the camera around a target. A zero radius keeps it fixed.
type OrbitConfig struct {
	Target [3]float32 `yaml:"target"`
	Radius float32    `yaml:"radius"`
	Speed  float32    `yaml:"speed"` // radians per second
	Height float32    `yaml:"height"`
}

// EffectConfig describes one emitter template.
type EffectConfig struct {
	Name              string      `yaml:"name"`
	Kind              string      `yaml:"kind"`
	Seed              int64       `yaml:"seed"`
	MaxParticles      int         `yaml:"max_particles"`
	InitialAllocation int         `yaml:"initial_allocation"`
	LODDistances      []float32   `yaml:"lod_distances"`
	LODLevels         []LODConfig `yaml:"lod_levels"`

	Mesh  MeshConfig  `yaml:"mesh"`
	Beam  BeamConfig  `yaml:"beam"`
	Trail TrailConfig `yaml:"trail"`
}

// LODConfig is one level of detail.
type LODConfig struct {
	Disabled     bool           `yaml:"disabled"`
	MaxParticles int            `yaml:"max_particles"`
	Required     RequiredConfig `yaml:"required"`
	Spawn        SpawnConfig    `yaml:"spawn"`
	Modules      []ModuleConfig `yaml:"modules"`
}

// RequiredConfig holds per-LOD timing and lifecycle settings.
type RequiredConfig struct {
	Duration               float32 `yaml:"duration"`
	DurationLow            float32 `yaml:"duration_low"`
	DurationRecalcEachLoop bool    `yaml:"duration_recalc_each_loop"`
	Loops                  int     `yaml:"loops"`
	Delay                  float32 `yaml:"delay"`
	DelayLow               float32 `yaml:"delay_low"`
	DelayFirstLoopOnly     bool    `yaml:"delay_first_loop_only"`
	KillOnDeactivate       bool    `yaml:"kill_on_deactivate"`
	KillOnCompleted        bool    `yaml:"kill_on_completed"`
	LocalSpace             bool    `yaml:"local_space"`
	MaxDrawCount           int     `yaml:"max_draw_count"`
	RenderMode             string  `yaml:"render_mode"` // normal | none
}

// SpawnConfig holds the rate and burst schedule.
type SpawnConfig struct {
	Rate      distribution.FloatSpec `yaml:"rate"`
	RateScale distribution.FloatSpec `yaml:"rate_scale"`
	Bursts    []BurstConfig          `yaml:"bursts"`
}

// BurstConfig is one burst entry. A nil CountLow fires exactly Count.
type BurstConfig struct {
	Time     float32 `yaml:"time"`
	Count    int     `yaml:"count"`
	CountLow *int    `yaml:"count_low,omitempty"`
}

// MeshConfig configures mesh effects.
type MeshConfig struct {
	Mesh string `yaml:"mesh"`
}

// BeamConfig configures beam effects.
type BeamConfig struct {
	Segments       int        `yaml:"segments"`
	MaxBeams       int        `yaml:"max_beams"`
	Source         [3]float32 `yaml:"source"`
	Target         [3]float32 `yaml:"target"`
	NoiseFrequency float32    `yaml:"noise_frequency"`
	NoiseAmplitude float32    `yaml:"noise_amplitude"`
	NoiseSeed      int64      `yaml:"noise_seed"`
}

// TrailConfig configures the chained kinds.
type TrailConfig struct {
	MaxTrails              int     `yaml:"max_trails"`
	MaxParticlesInTrail    int     `yaml:"max_particles_in_trail"`
	DeadTrailsOnDeactivate bool    `yaml:"dead_trails_on_deactivate"`
	SpawnPerUnit           float32 `yaml:"spawn_per_unit"`
	MaxFrameDistance       float32 `yaml:"max_frame_distance"`
	TilingDistance         float32 `yaml:"tiling_distance"`
}

// ModuleConfig is a module entry: a type name plus type-specific parameters
// kept as a raw node until the catalog decodes them.
type ModuleConfig struct {
	Type   string
	Params yaml.Node
}

// UnmarshalYAML reads the type key and keeps the whole mapping for later decoding.
func (m *ModuleConfig) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Type string `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return fmt.Errorf("line %d: module: %w", node.Line, err)
	}
	if head.Type == "" {
		return fmt.Errorf("line %d: module without type", node.Line)
	}
	m.Type = head.Type
	m.Params = *node
	return nil
}

// MarshalYAML writes the mapping back unchanged.
func (m ModuleConfig) MarshalYAML() (interface{}, error) {
	if m.Params.Kind == 0 {
		return map[string]string{"type": m.Type}, nil
	}
	return &m.Params, nil
}

// Decode unmarshals the module parameters into v.
func (m *ModuleConfig) Decode(v interface{}) error {
	if m.Params.Kind == 0 {
		return nil
	}
	return m.Params.Decode(v)
}

// PlacementConfig places one effect in the scene at startup.
type PlacementConfig struct {
	Effect   string     `yaml:"effect"`
	Position [3]float32 `yaml:"position"`
	Velocity [3]float32 `yaml:"velocity"`
	// Sources are trail source offsets from the position, for ribbons.
	Sources [][3]float32 `yaml:"sources"`
	// Sweep is the half-width of the edge pair sampled for anim trails.
	Sweep float32 `yaml:"sweep"`
	// ActiveFor deactivates the effect after this many seconds (0 = never).
	ActiveFor float32 `yaml:"active_for"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32        float32        // Simulation.DT as float32
	EffectIndex map[string]int // name -> index into Effects
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. A user file that lists
// effects or placements replaces the default lists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Parse(cfg, data); err != nil {
			return nil, err
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse overlays YAML data onto cfg. Only fields present in data are overwritten.
func Parse(cfg *Config, data []byte) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	if c.Simulation.DT <= 0 {
		return fmt.Errorf("simulation.dt must be positive, got %v", c.Simulation.DT)
	}
	c.Derived.DT32 = float32(c.Simulation.DT)
	if c.Simulation.StepsPerUpdate < 1 {
		c.Simulation.StepsPerUpdate = 1
	}

	c.Derived.EffectIndex = make(map[string]int, len(c.Effects))
	for i, e := range c.Effects {
		if e.Name == "" {
			return fmt.Errorf("effect %d has no name", i)
		}
		if _, dup := c.Derived.EffectIndex[e.Name]; dup {
			return fmt.Errorf("duplicate effect %q", e.Name)
		}
		c.Derived.EffectIndex[e.Name] = i
	}
	for i, p := range c.Placements {
		if _, ok := c.Derived.EffectIndex[p.Effect]; !ok {
			return fmt.Errorf("placement %d: unknown effect %q", i, p.Effect)
		}
	}
	return nil
}

// Effect returns the named effect config.
func (c *Config) Effect(name string) (*EffectConfig, bool) {
	i, ok := c.Derived.EffectIndex[name]
	if !ok {
		return nil, false
	}
	return &c.Effects[i], true
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
