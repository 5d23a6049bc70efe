package module

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/particle"
)

// InitialVelocity adds a sampled velocity, plus an optional push away from the emitter.
type InitialVelocity struct {
	Velocity distribution.Vector
	Radial   distribution.Float
}

func (m *InitialVelocity) Name() string { return "initial_velocity" }

func (m *InitialVelocity) Spawn(o Owner, p particle.View, _ float32) {
	rng := o.Rand()
	t := o.EmitterTime()
	v := distribution.SampleVector(m.Velocity, t, rng)
	if m.Radial != nil {
		origin := o.Location()
		if o.LocalSpace() {
			origin = mgl32.Vec3{}
		}
		dir := p.Record.Location().Sub(origin)
		if l := dir.Len(); l > 1e-6 {
			v = v.Add(dir.Mul(m.Radial.Value(t, rng) / l))
		}
	}
	addVelocity(p.Record, v)
}

func addVelocity(r particle.Record, v mgl32.Vec3) {
	r.SetVelocity(r.Velocity().Add(v))
	r.SetBaseVelocity(r.BaseVelocity().Add(v))
}

// Acceleration applies a constant acceleration chosen at spawn.
type Acceleration struct {
	Acceleration distribution.Vector
}

func (m *Acceleration) Name() string { return "acceleration" }

func (m *Acceleration) RequiredBytes() int { return 12 }

func (m *Acceleration) Spawn(o Owner, p particle.View, spawnTime float32) {
	a := distribution.SampleVector(m.Acceleration, o.EmitterTime(), o.Rand())
	p.SetVec3(0, a)
	addVelocity(p.Record, a.Mul(spawnTime))
}

func (m *Acceleration) Update(_ Owner, p particle.View, dt float32) {
	addVelocity(p.Record, p.Vec3(0).Mul(dt))
}

// Drag damps velocity proportionally, evaluated over relative time.
type Drag struct {
	Coefficient distribution.Float
}

func (m *Drag) Name() string { return "drag" }

func (m *Drag) Update(o Owner, p particle.View, dt float32) {
	r := p.Record
	k := 1 - distribution.Sample(m.Coefficient, r.RelativeTime(), o.Rand())*dt
	if k < 0 {
		k = 0
	}
	r.SetVelocity(r.Velocity().Mul(k))
	r.SetBaseVelocity(r.BaseVelocity().Mul(k))
}

// PointAttractor pulls particles inside Range towards Position.
type PointAttractor struct {
	Position           distribution.Vector
	Range              distribution.Float
	Strength           distribution.Float
	StrengthByDistance bool
	// Relative positions the attractor relative to the emitter.
	Relative bool
}

func (m *PointAttractor) Name() string { return "point_attractor" }

func (m *PointAttractor) Update(o Owner, p particle.View, dt float32) {
	rng := o.Rand()
	t := o.EmitterTime()
	target := distribution.SampleVector(m.Position, t, rng)
	if m.Relative && !o.LocalSpace() {
		target = target.Add(o.Location())
	}
	r := p.Record
	dir := target.Sub(r.Location())
	dist := dir.Len()
	reach := distribution.Sample(m.Range, t, rng)
	if dist <= 1e-6 || dist > reach {
		return
	}
	strength := distribution.Sample(m.Strength, t, rng)
	if m.StrengthByDistance && reach > 0 {
		strength *= 1 - dist/reach
	}
	addVelocity(r, dir.Mul(strength*dt/dist))
}

func (m *PointAttractor) SetToSensibleDefaults(Authoring) {
	if m.Range == nil {
		m.Range = distribution.Constant(100)
	}
	if m.Strength == nil {
		m.Strength = distribution.Constant(10)
	}
}
