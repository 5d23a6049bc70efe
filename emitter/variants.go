package emitter

import (
	"github.com/pthm-cable/plume/particle"
)

type spriteVariant struct{ baseVariant }

func (v *spriteVariant) fill(in *Instance, d *DynamicData) { in.fillSprites(d) }

type meshVariant struct{ baseVariant }

func (v *meshVariant) fill(in *Instance, d *DynamicData) { in.fillMeshes(d) }

// chainedVariant is the shared part of every chained kind.
type chainedVariant struct {
	baseVariant
	set        *ChainSet
	trails     int
	extra      int
	maxInTrail int
	deadOnDeac bool
}

func newChained(t *Template, extra int) chainedVariant {
	trails := t.Trail.MaxTrails
	if trails < 1 {
		trails = 1
	}
	return chainedVariant{
		trails:     trails,
		extra:      extra,
		maxInTrail: t.Trail.MaxParticlesInTrail,
		deadOnDeac: t.Trail.DeadTrailsOnDeactivate,
	}
}

func (v *chainedVariant) RequiredBytes() int { return chainPayloadSz + v.extra }

func (v *chainedVariant) chains() *ChainSet { return v.set }

func (v *chainedVariant) reset(in *Instance) {
	if v.set == nil {
		v.set = newChainSet(in, v.trails)
		return
	}
	v.set.reset(v.trails)
}

func (v *chainedVariant) release(_ *Instance, p particle.Index) { v.set.unlink(p) }

func (v *chainedVariant) remap(_ *Instance, m []particle.Index) { v.set.remap(m) }

func (v *chainedVariant) finish(*Instance, float32) { v.set.UpdateTangents() }

// deactivate retires every chain when configured to; otherwise trails keep
// their links and simply stop growing.
func (v *chainedVariant) deactivate(*Instance) {
	if v.deadOnDeac {
		v.set.RetireAll()
	}
}

func (v *chainedVariant) fill(in *Instance, d *DynamicData) { in.fillStrips(d, v.set, nil) }

// link places a freshly spawned particle at the head of its trail's chain.
func (v *chainedVariant) link(in *Instance, trail int, p particle.Index, spawnTime float32, interpolated bool) {
	ch := v.set.Current(trail)
	if ch == nil {
		ch = v.set.Start(trail)
	}
	v.set.Push(ch, p, in.secondsSinceCreation-spawnTime, interpolated)
	if v.maxInTrail > 0 {
		v.set.CapLength(ch, v.maxInTrail)
	}
}

// trailVariant links rate and burst spawns into trails, round robin.
type trailVariant struct {
	chainedVariant
	nextTrail int
}

func newTrailVariant(t *Template) *trailVariant {
	return &trailVariant{chainedVariant: newChained(t, 0)}
}

func (v *trailVariant) reset(in *Instance) {
	v.chainedVariant.reset(in)
	v.nextTrail = 0
}

func (v *trailVariant) postSpawn(in *Instance, p particle.Index, spawnTime float32) {
	trail := v.nextTrail
	v.nextTrail = (v.nextTrail + 1) % v.trails
	v.link(in, trail, p, spawnTime, false)
}
