// Package catalog turns effect configs into emitter templates.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/emitter"
	"github.com/pthm-cable/plume/module"
)

var (
	// ErrUnknownModule is returned for a module type with no registered builder.
	ErrUnknownModule = errors.New("catalog: unknown module type")
	// ErrUnknownEffect is returned when a lookup names an effect that was never built.
	ErrUnknownEffect = errors.New("catalog: unknown effect")
)

// Catalog holds the templates built from a config. Templates are shared by
// every instance placed from them and are never modified after Load.
type Catalog struct {
	registry  *ModuleRegistry
	templates map[string]*emitter.Template
	order     []string
}

// New creates an empty catalog using the stock module registry.
func New() *Catalog {
	return NewWithRegistry(NewModuleRegistry())
}

// NewWithRegistry creates an empty catalog that builds modules from reg.
func NewWithRegistry(reg *ModuleRegistry) *Catalog {
	return &Catalog{
		registry:  reg,
		templates: make(map[string]*emitter.Template),
	}
}

// Load builds every effect in cfg.
func (c *Catalog) Load(cfg *config.Config) error {
	for i := range cfg.Effects {
		t, err := c.Build(&cfg.Effects[i], cfg.Pool)
		if err != nil {
			return err
		}
		if cfg.Debug.DumpLayout {
			logLayout(t)
		}
		c.Add(t)
	}
	return nil
}

// Add registers a template under its name, replacing any previous one.
func (c *Catalog) Add(t *emitter.Template) {
	if _, ok := c.templates[t.Name]; !ok {
		c.order = append(c.order, t.Name)
	}
	c.templates[t.Name] = t
}

// Template returns the named template.
func (c *Catalog) Template(name string) (*emitter.Template, error) {
	t, ok := c.templates[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownEffect)
	}
	return t, nil
}

// Names returns template names in load order.
func (c *Catalog) Names() []string {
	return c.order
}

// Registry returns the module registry.
func (c *Catalog) Registry() *ModuleRegistry {
	return c.registry
}

// Build converts one effect config into a validated template.
func (c *Catalog) Build(ec *config.EffectConfig, pool config.PoolConfig) (*emitter.Template, error) {
	kind, err := emitter.ParseKind(ec.Kind)
	if err != nil {
		return nil, fmt.Errorf("effect %q: %w", ec.Name, err)
	}

	t := &emitter.Template{
		Name:              ec.Name,
		Kind:              kind,
		LODDistances:      ec.LODDistances,
		MaxParticles:      ec.MaxParticles,
		InitialAllocation: ec.InitialAllocation,
		Seed:              ec.Seed,
		Mesh:              emitter.MeshData{Mesh: ec.Mesh.Mesh},
		Beam: emitter.BeamData{
			Segments:       ec.Beam.Segments,
			MaxBeams:       ec.Beam.MaxBeams,
			Source:         mgl32.Vec3(ec.Beam.Source),
			Target:         mgl32.Vec3(ec.Beam.Target),
			NoiseFrequency: ec.Beam.NoiseFrequency,
			NoiseAmplitude: ec.Beam.NoiseAmplitude,
			NoiseSeed:      ec.Beam.NoiseSeed,
		},
		Trail: emitter.TrailData{
			MaxTrails:              ec.Trail.MaxTrails,
			MaxParticlesInTrail:    ec.Trail.MaxParticlesInTrail,
			DeadTrailsOnDeactivate: ec.Trail.DeadTrailsOnDeactivate,
			SpawnPerUnit:           ec.Trail.SpawnPerUnit,
			MaxFrameDistance:       ec.Trail.MaxFrameDistance,
			TilingDistance:         ec.Trail.TilingDistance,
		},
	}
	if t.InitialAllocation == 0 {
		t.InitialAllocation = pool.InitialAllocation
	}
	if t.MaxParticles <= 0 {
		t.MaxParticles = emitter.DefaultMaxParticles
	}

	for li := range ec.LODLevels {
		lod, err := buildLOD(&ec.LODLevels[li])
		if err != nil {
			return nil, fmt.Errorf("effect %q LOD %d: %w", ec.Name, li, err)
		}
		t.LODLevels = append(t.LODLevels, lod)
		for mi := range ec.LODLevels[li].Modules {
			m, err := c.registry.Build(&ec.LODLevels[li].Modules[mi])
			if err != nil {
				return nil, fmt.Errorf("effect %q LOD %d: %w", ec.Name, li, err)
			}
			t.AddModule(li, m)
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// buildLOD converts the module-independent part of a LOD level.
func buildLOD(lc *config.LODConfig) (*emitter.LODLevel, error) {
	mode, err := parseRenderMode(lc.Required.RenderMode)
	if err != nil {
		return nil, err
	}
	rate, err := lc.Spawn.Rate.Build()
	if err != nil {
		return nil, fmt.Errorf("spawn rate: %w", err)
	}
	scale, err := lc.Spawn.RateScale.Build()
	if err != nil {
		return nil, fmt.Errorf("spawn rate scale: %w", err)
	}

	r := lc.Required
	lod := &emitter.LODLevel{
		Disabled:     lc.Disabled,
		MaxParticles: lc.MaxParticles,
		Required: emitter.Required{
			Duration:               r.Duration,
			DurationLow:            r.DurationLow,
			DurationRecalcEachLoop: r.DurationRecalcEachLoop,
			Loops:                  r.Loops,
			Delay:                  r.Delay,
			DelayLow:               r.DelayLow,
			DelayFirstLoopOnly:     r.DelayFirstLoopOnly,
			KillOnDeactivate:       r.KillOnDeactivate,
			KillOnCompleted:        r.KillOnCompleted,
			LocalSpace:             r.LocalSpace,
			MaxDrawCount:           r.MaxDrawCount,
			RenderMode:             mode,
		},
		Spawn: emitter.Spawn{Rate: rate, RateScale: scale},
	}
	for _, b := range lc.Spawn.Bursts {
		if b.Count < 0 {
			return nil, fmt.Errorf("burst at %v: negative count %d", b.Time, b.Count)
		}
		low := -1
		if b.CountLow != nil {
			low = *b.CountLow
			if low > b.Count {
				return nil, fmt.Errorf("burst at %v: count_low %d exceeds count %d", b.Time, low, b.Count)
			}
		}
		lod.Spawn.Bursts = append(lod.Spawn.Bursts, emitter.Burst{Time: b.Time, Count: b.Count, CountLow: low})
	}
	return lod, nil
}

func parseRenderMode(s string) (emitter.RenderMode, error) {
	switch s {
	case "", "normal":
		return emitter.RenderNormal, nil
	case "none":
		return emitter.RenderNone, nil
	}
	return 0, fmt.Errorf("unknown render mode %q", s)
}

func logLayout(t *emitter.Template) {
	for li, lod := range t.LODLevels {
		names := make([]string, len(lod.Modules))
		payload := make([]int, len(lod.Modules))
		for i, m := range lod.Modules {
			names[i] = m.Name()
			payload[i] = module.Sizes(m).RequiredBytes()
		}
		slog.Info("template layout",
			"effect", t.Name,
			"kind", t.Kind.String(),
			"lod", li,
			"modules", names,
			"payload_bytes", payload,
			"max_particles", t.MaxParticles,
		)
	}
}
