package module

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/particle"
)

// InitialSize adds a sampled size.
type InitialSize struct {
	Size distribution.Vector
}

func (m *InitialSize) Name() string { return "initial_size" }

func (m *InitialSize) Spawn(o Owner, p particle.View, _ float32) {
	s := distribution.SampleVector(m.Size, o.EmitterTime(), o.Rand())
	r := p.Record
	r.SetSize(r.Size().Add(s))
	r.SetBaseSize(r.BaseSize().Add(s))
}

func (m *InitialSize) SetToSensibleDefaults(Authoring) {
	if m.Size == nil {
		m.Size = distribution.ConstantVector{1, 1, 1}
	}
}

// SizeByLife scales the size each tick by a curve over relative time.
type SizeByLife struct {
	Scale distribution.Vector
}

func (m *SizeByLife) Name() string { return "size_by_life" }

func (m *SizeByLife) Update(o Owner, p particle.View, _ float32) {
	if m.Scale == nil {
		return
	}
	r := p.Record
	s := m.Scale.Value(r.RelativeTime(), o.Rand())
	size := r.Size()
	r.SetSize(mgl32.Vec3{size[0] * s[0], size[1] * s[1], size[2] * s[2]})
}

// InitialColor sets color and alpha at spawn.
type InitialColor struct {
	Color distribution.Vector
	Alpha distribution.Float
}

func (m *InitialColor) Name() string { return "initial_color" }

func (m *InitialColor) Spawn(o Owner, p particle.View, _ float32) {
	rng := o.Rand()
	t := o.EmitterTime()
	c := distribution.SampleVector(m.Color, t, rng)
	a := float32(1)
	if m.Alpha != nil {
		a = m.Alpha.Value(t, rng)
	}
	col := c.Vec4(a)
	p.Record.SetColor(col)
	p.Record.SetBaseColor(col)
}

func (m *InitialColor) SetToSensibleDefaults(Authoring) {
	if m.Color == nil {
		m.Color = distribution.ConstantVector{1, 1, 1}
	}
}

// ColorOverLife drives color and alpha from curves over relative time.
type ColorOverLife struct {
	Color distribution.Vector
	Alpha distribution.Float
}

func (m *ColorOverLife) Name() string { return "color_over_life" }

func (m *ColorOverLife) Spawn(o Owner, p particle.View, _ float32) {
	m.apply(o, p, true)
}

func (m *ColorOverLife) Update(o Owner, p particle.View, _ float32) {
	m.apply(o, p, false)
}

func (m *ColorOverLife) apply(o Owner, p particle.View, base bool) {
	r := p.Record
	t := r.RelativeTime()
	col := r.Color()
	if m.Color != nil {
		c := m.Color.Value(t, o.Rand())
		col = c.Vec4(col[3])
	}
	if m.Alpha != nil {
		col[3] = m.Alpha.Value(t, o.Rand())
	}
	r.SetColor(col)
	if base {
		r.SetBaseColor(col)
	}
}

// InitialRotation sets the sprite rotation in radians.
type InitialRotation struct {
	Rotation distribution.Float
}

func (m *InitialRotation) Name() string { return "initial_rotation" }

func (m *InitialRotation) Spawn(o Owner, p particle.View, _ float32) {
	v := distribution.Sample(m.Rotation, o.EmitterTime(), o.Rand())
	r := p.Record
	r.SetRotation(r.Rotation() + v)
	r.SetBaseRotation(r.BaseRotation() + v)
}

// RotationRate sets the sprite spin in radians per second.
type RotationRate struct {
	Rate distribution.Float
}

func (m *RotationRate) Name() string { return "rotation_rate" }

func (m *RotationRate) Spawn(o Owner, p particle.View, _ float32) {
	v := distribution.Sample(m.Rate, o.EmitterTime(), o.Rand())
	r := p.Record
	r.SetRotationRate(r.RotationRate() + v)
	r.SetBaseRotationRate(r.BaseRotationRate() + v)
}
