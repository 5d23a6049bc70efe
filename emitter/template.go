// Package emitter runs the per-frame particle simulation for one placed effect:
// the instance state machine, the spawn/update/kill pipeline over a particle pool,
// and the chained variants (trail, ribbon, beam, anim-trail) threaded through it.
package emitter

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/module"
)

var (
	// ErrNoLODLevels is returned for a template without any LOD level.
	ErrNoLODLevels = errors.New("emitter: template has no LOD levels")
	// ErrInconsistentLOD is returned when LOD levels disagree on module order.
	ErrInconsistentLOD = errors.New("emitter: LOD levels must list the same module types in the same order")
)

// RenderMode controls whether an emitter produces render data at all.
type RenderMode uint8

const (
	RenderNormal RenderMode = iota
	RenderNone
)

// Burst is a one-shot spawn at Time seconds into each loop.
// CountLow >= 0 picks a count in [CountLow, Count].
type Burst struct {
	Time     float32
	Count    int
	CountLow int
}

// Required holds the per-LOD timing and lifecycle settings.
type Required struct {
	// Duration is the loop length in seconds. Zero never loops.
	Duration float32
	// DurationLow > 0 picks each duration in [DurationLow, Duration].
	DurationLow            float32
	DurationRecalcEachLoop bool
	// Loops is the loop count. Zero loops forever.
	Loops int

	Delay              float32
	DelayLow           float32
	DelayFirstLoopOnly bool

	KillOnDeactivate bool
	KillOnCompleted  bool
	LocalSpace       bool

	// MaxDrawCount caps particles in snapshots. Zero means unlimited.
	MaxDrawCount int
	RenderMode   RenderMode
}

// Spawn holds the rate and burst schedule.
type Spawn struct {
	Rate      distribution.Float
	RateScale distribution.Float
	Bursts    []Burst
}

// LODLevel is one level-of-detail configuration.
type LODLevel struct {
	Disabled bool
	Required Required
	Spawn    Spawn
	// MaxParticles overrides the template cap for this level when > 0.
	MaxParticles int
	Modules      []module.Module
}

// MeshData configures KindMesh.
type MeshData struct {
	Mesh string
}

// BeamData configures KindBeam. Source and Target are relative to the emitter.
type BeamData struct {
	Segments       int
	MaxBeams       int
	Source         mgl32.Vec3
	Target         mgl32.Vec3
	NoiseFrequency float32
	NoiseAmplitude float32
	NoiseSeed      int64
}

// TrailData configures the chained kinds.
type TrailData struct {
	MaxTrails           int
	MaxParticlesInTrail int
	// DeadTrailsOnDeactivate stops trails from connecting to new particles
	// after deactivation instead of killing them.
	DeadTrailsOnDeactivate bool
	// SpawnPerUnit is the arc-length spawn density for source-following kinds.
	SpawnPerUnit     float32
	MaxFrameDistance float32
	// TilingDistance sets the texture repeat length along ribbons.
	TilingDistance float32
}

// DefaultMaxParticles caps instances whose template sets no limit.
const DefaultMaxParticles = 1000

// Template is the shared, immutable description of an emitter.
type Template struct {
	Name         string
	Kind         Kind
	LODLevels    []*LODLevel
	LODDistances []float32
	// MaxParticles is the per-instance live particle cap (0 = DefaultMaxParticles).
	MaxParticles      int
	InitialAllocation int
	Seed              int64

	Mesh  MeshData
	Beam  BeamData
	Trail TrailData
}

// TemplateName implements module.Authoring.
func (t *Template) TemplateName() string { return t.Name }

// UsesLocalSpace implements module.Authoring.
func (t *Template) UsesLocalSpace() bool {
	return len(t.LODLevels) > 0 && t.LODLevels[0].Required.LocalSpace
}

// AddModule appends m to a LOD level and lets it fill its defaults.
func (t *Template) AddModule(lod int, m module.Module) {
	if d, ok := m.(module.Defaulter); ok {
		d.SetToSensibleDefaults(t)
	}
	t.LODLevels[lod].Modules = append(t.LODLevels[lod].Modules, m)
}

// Validate checks structural consistency. It never modifies the template.
func (t *Template) Validate() error {
	if len(t.LODLevels) == 0 {
		return fmt.Errorf("template %q: %w", t.Name, ErrNoLODLevels)
	}
	base := t.LODLevels[0].Modules
	for i, lod := range t.LODLevels[1:] {
		if len(lod.Modules) != len(base) {
			return fmt.Errorf("template %q LOD %d: %d modules, LOD 0 has %d: %w",
				t.Name, i+1, len(lod.Modules), len(base), ErrInconsistentLOD)
		}
		for j, m := range lod.Modules {
			if fmt.Sprintf("%T", m) != fmt.Sprintf("%T", base[j]) {
				return fmt.Errorf("template %q LOD %d module %d is %s, LOD 0 has %s: %w",
					t.Name, i+1, j, m.Name(), base[j].Name(), ErrInconsistentLOD)
			}
		}
	}
	return nil
}

// LODFor returns the LOD index for a viewer distance.
func (t *Template) LODFor(distance float32) int {
	lod := 0
	for i, d := range t.LODDistances {
		if i >= len(t.LODLevels) {
			break
		}
		if distance >= d {
			lod = i
		}
	}
	return lod
}

func (t *Template) maxParticles(lod *LODLevel) int {
	switch {
	case lod.MaxParticles > 0:
		return lod.MaxParticles
	case t.MaxParticles > 0:
		return t.MaxParticles
	}
	return DefaultMaxParticles
}
