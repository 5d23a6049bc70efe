package module

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/particle"
)

// InitialLocation offsets the spawn position.
type InitialLocation struct {
	Offset distribution.Vector
}

func (m *InitialLocation) Name() string { return "initial_location" }

func (m *InitialLocation) Spawn(o Owner, p particle.View, _ float32) {
	off := distribution.SampleVector(m.Offset, o.EmitterTime(), o.Rand())
	p.Record.SetLocation(p.Record.Location().Add(off))
	p.Record.SetOldLocation(p.Record.Location())
}

// SphereLocation places particles in (or on) a sphere around the spawn position,
// optionally pushing them outward.
type SphereLocation struct {
	Radius        distribution.Float
	SurfaceOnly   bool
	Velocity      bool
	VelocityScale distribution.Float
}

func (m *SphereLocation) Name() string { return "sphere_location" }

func (m *SphereLocation) Spawn(o Owner, p particle.View, _ float32) {
	rng := o.Rand()
	t := o.EmitterTime()
	dir := randomUnit(rng)
	radius := distribution.Sample(m.Radius, t, rng)
	if !m.SurfaceOnly && rng != nil {
		radius *= float32(math.Cbrt(rng.Float64()))
	}
	r := p.Record
	r.SetLocation(r.Location().Add(dir.Mul(radius)))
	r.SetOldLocation(r.Location())
	if m.Velocity {
		scale := float32(1)
		if m.VelocityScale != nil {
			scale = m.VelocityScale.Value(t, rng)
		}
		v := dir.Mul(radius * scale)
		r.SetVelocity(r.Velocity().Add(v))
		r.SetBaseVelocity(r.BaseVelocity().Add(v))
	}
}

func (m *SphereLocation) SetToSensibleDefaults(Authoring) {
	if m.Radius == nil {
		m.Radius = distribution.Constant(50)
	}
}

// randomUnit returns a uniformly distributed direction.
func randomUnit(rng *rand.Rand) mgl32.Vec3 {
	if rng == nil {
		return mgl32.Vec3{0, 0, 1}
	}
	for {
		v := mgl32.Vec3{
			float32(rng.NormFloat64()),
			float32(rng.NormFloat64()),
			float32(rng.NormFloat64()),
		}
		if l := v.Len(); l > 1e-6 {
			return v.Mul(1 / l)
		}
	}
}
