package module

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/particle"
)

// SubUV selects a frame of a flipbook texture over the particle's life.
//
// Payload: image index (f32), random image time (f32).
type SubUV struct {
	Frames int
	// Index maps relative time to a frame number. Nil plays the frames linearly.
	Index distribution.Float
	// RandomChangesPerLife picks a random frame this many times over the life.
	RandomChangesPerLife int
}

const (
	subUVImage      = 0
	subUVRandomTime = 4
)

func (m *SubUV) Name() string { return "sub_uv" }

func (m *SubUV) RequiredBytes() int { return 8 }

func (m *SubUV) Spawn(o Owner, p particle.View, _ float32) {
	p.SetFloat(subUVRandomTime, -1)
	m.Update(o, p, 0)
}

func (m *SubUV) Update(o Owner, p particle.View, _ float32) {
	frames := m.Frames
	if frames < 1 {
		frames = 1
	}
	t := p.Record.RelativeTime()
	var idx float32
	switch {
	case m.RandomChangesPerLife > 0:
		slot := float32(math.Floor(float64(t * float32(m.RandomChangesPerLife))))
		if slot == p.Float(subUVRandomTime) {
			return
		}
		p.SetFloat(subUVRandomTime, slot)
		if rng := o.Rand(); rng != nil {
			idx = float32(rng.Intn(frames))
		}
	case m.Index != nil:
		idx = float32(math.Floor(float64(m.Index.Value(t, o.Rand()))))
	default:
		idx = float32(math.Floor(float64(t * float32(frames))))
	}
	if idx < 0 {
		idx = 0
	}
	if last := float32(frames - 1); idx > last {
		idx = last
	}
	p.SetFloat(subUVImage, idx)
}

func (m *SubUV) SubImage(p particle.View) float32 { return p.Float(subUVImage) }

func (m *SubUV) SetToSensibleDefaults(Authoring) {
	if m.Frames == 0 {
		m.Frames = 1
	}
}

// DynamicParameter exposes four user values per particle to the material.
type DynamicParameter struct {
	Params [4]distribution.Float
	// SpawnOnly freezes the values chosen at spawn.
	SpawnOnly bool
}

func (m *DynamicParameter) Name() string { return "dynamic_parameter" }

func (m *DynamicParameter) RequiredBytes() int { return 16 }

func (m *DynamicParameter) Spawn(o Owner, p particle.View, _ float32) {
	m.write(o, p)
}

func (m *DynamicParameter) Update(o Owner, p particle.View, _ float32) {
	if !m.SpawnOnly {
		m.write(o, p)
	}
}

func (m *DynamicParameter) write(o Owner, p particle.View) {
	t := p.Record.RelativeTime()
	var v mgl32.Vec4
	for i, d := range m.Params {
		v[i] = distribution.Sample(d, t, o.Rand())
	}
	p.SetVec4(0, v)
}

func (m *DynamicParameter) DynamicParameters(p particle.View) mgl32.Vec4 { return p.Vec4(0) }

// Orbit moves the rendered position around the simulated one.
//
// Payload: offset (vec3), rotation (vec3), rotation rate (vec3). Rotations are in turns.
type Orbit struct {
	Offset       distribution.Vector
	RotationRate distribution.Vector
	Rotation     distribution.Vector
}

const (
	orbitOffset   = 0
	orbitRotation = 12
	orbitRate     = 24
)

func (m *Orbit) Name() string { return "orbit" }

func (m *Orbit) RequiredBytes() int { return 36 }

func (m *Orbit) Spawn(o Owner, p particle.View, spawnTime float32) {
	rng := o.Rand()
	t := o.EmitterTime()
	rate := distribution.SampleVector(m.RotationRate, t, rng)
	p.SetVec3(orbitOffset, distribution.SampleVector(m.Offset, t, rng))
	p.SetVec3(orbitRate, rate)
	p.SetVec3(orbitRotation, distribution.SampleVector(m.Rotation, t, rng).Add(rate.Mul(spawnTime)))
}

func (m *Orbit) Update(_ Owner, p particle.View, dt float32) {
	p.SetVec3(orbitRotation, p.Vec3(orbitRotation).Add(p.Vec3(orbitRate).Mul(dt)))
}

func (m *Orbit) LocationOffset(p particle.View) mgl32.Vec3 {
	rot := p.Vec3(orbitRotation).Mul(2 * math.Pi)
	q := mgl32.AnglesToQuat(rot[0], rot[1], rot[2], mgl32.XYZ)
	return q.Rotate(p.Vec3(orbitOffset))
}

// MeshRotation gives mesh particles a full 3D orientation and spin.
//
// Payload: rotation (vec3), rotation rate (vec3), base rotation rate (vec3). Turns.
type MeshRotation struct {
	Rotation     distribution.Vector
	RotationRate distribution.Vector
}

const (
	meshRotation     = 0
	meshRate         = 12
	meshBaseRate     = 24
	meshRotationSize = 36
)

func (m *MeshRotation) Name() string { return "mesh_rotation" }

func (m *MeshRotation) RequiredBytes() int { return meshRotationSize }

func (m *MeshRotation) Spawn(o Owner, p particle.View, _ float32) {
	rng := o.Rand()
	t := o.EmitterTime()
	rate := distribution.SampleVector(m.RotationRate, t, rng)
	p.SetVec3(meshRotation, distribution.SampleVector(m.Rotation, t, rng))
	p.SetVec3(meshRate, rate)
	p.SetVec3(meshBaseRate, rate)
}

func (m *MeshRotation) Update(_ Owner, p particle.View, dt float32) {
	p.SetVec3(meshRotation, p.Vec3(meshRotation).Add(p.Vec3(meshRate).Mul(dt)))
}

func (m *MeshRotation) MeshRotation(p particle.View) mgl32.Quat {
	rot := p.Vec3(meshRotation).Mul(2 * math.Pi)
	return mgl32.AnglesToQuat(rot[0], rot[1], rot[2], mgl32.XYZ)
}
