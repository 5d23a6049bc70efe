package module

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/particle"
)

type fakeOwner struct {
	rng      *rand.Rand
	time     float32
	location mgl32.Vec3
	local    bool
	block    particle.Block
	events   []Event
}

func newFakeOwner() *fakeOwner {
	return &fakeOwner{rng: rand.New(rand.NewSource(1))}
}

func (f *fakeOwner) ID() uuid.UUID                       { return uuid.Nil }
func (f *fakeOwner) Rand() *rand.Rand                    { return f.rng }
func (f *fakeOwner) EmitterTime() float32                { return f.time }
func (f *fakeOwner) SecondsSinceCreation() float32       { return f.time }
func (f *fakeOwner) LoopCount() int                      { return 0 }
func (f *fakeOwner) Location() mgl32.Vec3                { return f.location }
func (f *fakeOwner) LocalSpace() bool                    { return f.local }
func (f *fakeOwner) InstanceBlock(Module) particle.Block { return f.block }
func (f *fakeOwner) Emit(e Event)                        { f.events = append(f.events, e) }

// viewFor lays out a single module and returns a view over a fresh record.
func viewFor(m Module) particle.View {
	l := particle.BuildLayout(particle.BaseSize, []particle.Sizer{Sizes(m)})
	return particle.View{Record: make(particle.Record, l.Stride), Payload: l.Entry(0).Payload}
}

func TestLifetime_SetsOneOverMaxAndExtends(t *testing.T) {
	o := newFakeOwner()
	p := viewFor(&Lifetime{})

	(&Lifetime{Lifetime: distribution.Constant(2)}).Spawn(o, p, 0.5)
	assert.InDelta(t, 0.5, p.Record.OneOverMaxLifetime(), 1e-6)
	assert.InDelta(t, 0.25, p.Record.RelativeTime(), 1e-6)

	(&Lifetime{Lifetime: distribution.Constant(2)}).Spawn(o, p, 0)
	assert.InDelta(t, 0.25, p.Record.OneOverMaxLifetime(), 1e-6, "second lifetime extends to 4s")
}

func TestLifetime_Defaults(t *testing.T) {
	m := &Lifetime{}
	m.SetToSensibleDefaults(nil)
	assert.Equal(t, distribution.Constant(1), m.Lifetime)
}

func TestAcceleration_UsesOwnPayload(t *testing.T) {
	o := newFakeOwner()
	m := &Acceleration{Acceleration: distribution.ConstantVector{0, 0, -10}}
	p := viewFor(m)

	m.Spawn(o, p, 0)
	m.Update(o, p, 0.5)

	assert.Equal(t, mgl32.Vec3{0, 0, -10}, p.Vec3(0))
	assert.Equal(t, mgl32.Vec3{0, 0, -5}, p.Record.Velocity())
	assert.Equal(t, mgl32.Vec3{0, 0, -5}, p.Record.BaseVelocity())
}

func TestAcceleration_MissingPayloadIsIdentity(t *testing.T) {
	particle.SetStrict(false)
	o := newFakeOwner()
	m := &Acceleration{Acceleration: distribution.ConstantVector{0, 0, -10}}
	p := particle.View{Record: make(particle.Record, particle.BaseSize)}

	m.Spawn(o, p, 0)
	m.Update(o, p, 1)

	assert.Equal(t, mgl32.Vec3{}, p.Record.Velocity())
}

func TestDrag_DampsVelocity(t *testing.T) {
	o := newFakeOwner()
	p := viewFor(&Drag{})
	p.Record.SetVelocity(mgl32.Vec3{10, 0, 0})
	p.Record.SetBaseVelocity(mgl32.Vec3{10, 0, 0})

	(&Drag{Coefficient: distribution.Constant(1)}).Update(o, p, 0.5)
	assert.InDelta(t, 5, p.Record.Velocity().X(), 1e-5)

	(&Drag{Coefficient: distribution.Constant(100)}).Update(o, p, 1)
	assert.Equal(t, float32(0), p.Record.Velocity().X(), "factor clamps at zero")
}

func TestPointAttractor_PullsInsideRange(t *testing.T) {
	o := newFakeOwner()
	m := &PointAttractor{
		Position: distribution.ConstantVector{10, 0, 0},
		Range:    distribution.Constant(20),
		Strength: distribution.Constant(4),
	}
	p := viewFor(m)
	m.Update(o, p, 1)
	assert.InDelta(t, 4, p.Record.Velocity().X(), 1e-5)

	far := viewFor(m)
	far.Record.SetLocation(mgl32.Vec3{100, 0, 0})
	m.Update(o, far, 1)
	assert.Equal(t, mgl32.Vec3{}, far.Record.Velocity())
}

func TestSizeByLife_ScalesByCurve(t *testing.T) {
	o := newFakeOwner()
	m := &SizeByLife{Scale: distribution.ComponentVector{
		X: distribution.MustCurve(distribution.Point{T: 0, V: 1}, distribution.Point{T: 1, V: 3}),
		Y: distribution.Constant(1),
		Z: distribution.Constant(1),
	}}
	p := viewFor(m)
	p.Record.SetSize(mgl32.Vec3{2, 2, 2})
	p.Record.SetRelativeTime(0.5)

	m.Update(o, p, 0.1)

	assert.InDelta(t, 4, p.Record.Size().X(), 1e-5)
	assert.InDelta(t, 2, p.Record.Size().Y(), 1e-5)
}

func TestColorOverLife_TracksRelativeTime(t *testing.T) {
	o := newFakeOwner()
	m := &ColorOverLife{
		Color: distribution.ConstantVector{1, 0, 0},
		Alpha: distribution.MustCurve(distribution.Point{T: 0, V: 1}, distribution.Point{T: 1, V: 0}),
	}
	p := viewFor(m)
	m.Spawn(o, p, 0)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, p.Record.BaseColor())

	p.Record.SetRelativeTime(0.75)
	m.Update(o, p, 0.1)
	assert.InDelta(t, 0.25, p.Record.Color().W(), 1e-5)
}

func TestSubUV_FrameFromRelativeTime(t *testing.T) {
	o := newFakeOwner()
	m := &SubUV{Frames: 4}
	p := viewFor(m)

	p.Record.SetRelativeTime(0.6)
	m.Update(o, p, 0)
	assert.Equal(t, float32(2), m.SubImage(p))

	p.Record.SetRelativeTime(0.999)
	m.Update(o, p, 0)
	assert.Equal(t, float32(3), m.SubImage(p))
}

func TestOrbit_OffsetRotates(t *testing.T) {
	o := newFakeOwner()
	m := &Orbit{
		Offset:       distribution.ConstantVector{1, 0, 0},
		RotationRate: distribution.ConstantVector{0, 0, 0.25},
	}
	p := viewFor(m)
	m.Spawn(o, p, 0)
	m.Update(o, p, 1)

	off := m.LocationOffset(p)
	assert.InDelta(t, 0, off.X(), 1e-4)
	assert.InDelta(t, 1, off.Y(), 1e-4)
}

func TestKillBox_KillsOutside(t *testing.T) {
	o := newFakeOwner()
	m := &KillBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}

	in := viewFor(m)
	m.Update(o, in, 0)
	assert.False(t, in.Record.HasFlag(particle.FlagKill))

	out := viewFor(m)
	out.Record.SetLocation(mgl32.Vec3{5, 0, 0})
	m.Update(o, out, 0)
	assert.True(t, out.Record.HasFlag(particle.FlagKill))
}

func TestKillHeight_Floor(t *testing.T) {
	o := newFakeOwner()
	o.location = mgl32.Vec3{0, 0, 10}
	m := &KillHeight{Height: -5, Floor: true, Relative: true}

	p := viewFor(m)
	p.Record.SetLocation(mgl32.Vec3{0, 0, 4})
	m.Update(o, p, 0)
	assert.True(t, p.Record.HasFlag(particle.FlagKill))
}

func TestNoise_DeterministicPerSeed(t *testing.T) {
	a := NewNoise(3, 0.1, distribution.Constant(1))
	b := NewNoise(3, 0.1, distribution.Constant(1))
	pos := mgl32.Vec3{12, -4, 7}

	assert.Equal(t, a.Sample(pos, 1.5), b.Sample(pos, 1.5))
	s := a.Sample(pos, 1.5)
	for i := 0; i < 3; i++ {
		assert.LessOrEqual(t, s[i], float32(1.0001))
		assert.GreaterOrEqual(t, s[i], float32(-1.0001))
	}
}

func TestResample_CarriesLeftover(t *testing.T) {
	n, left := Resample(2.5, 0, 1)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 0.5, left, 1e-6)

	n, left = Resample(0.6, left, 1)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 0.1, left, 1e-5)

	n, _ = Resample(10, 0, 0)
	assert.Equal(t, 0, n)
}

func TestSpawnPerUnit_CountsDistance(t *testing.T) {
	m := &SpawnPerUnit{PerUnit: distribution.Constant(0.5), MaxFrameDistance: 100}
	m.SetToSensibleDefaults(nil)
	l := particle.BuildLayout(particle.BaseSize, []particle.Sizer{Sizes(m)})
	o := newFakeOwner()
	o.block = particle.Block{Data: make(particle.Bytes, l.InstanceSize), Region: l.Entry(0).Instance}
	m.PrepInstanceBlock(o, o.block)

	n, useRate := m.SpawnCount(o, o.block, 0.1)
	assert.Equal(t, 0, n, "first sample only primes")
	assert.True(t, useRate)

	o.location = mgl32.Vec3{5, 0, 0}
	n, _ = m.SpawnCount(o, o.block, 0.1)
	assert.Equal(t, 2, n)

	o.location = mgl32.Vec3{500, 0, 0}
	n, _ = m.SpawnCount(o, o.block, 0.1)
	assert.Equal(t, 0, n, "teleport resets")
	assert.Equal(t, float32(0), o.block.Float(spuLeftover))
}

func TestEventGenerator_ReportsDeaths(t *testing.T) {
	o := newFakeOwner()
	m := &EventGenerator{EventName: "pop", OnDeath: true}
	p := viewFor(m)
	p.Record.SetLocation(mgl32.Vec3{1, 2, 3})

	m.Spawn(o, p, 0)
	m.Killed(o, p)

	require.Len(t, o.events, 1)
	assert.Equal(t, EventDeath, o.events[0].Type)
	assert.Equal(t, "pop", o.events[0].Name)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, o.events[0].Location)
}
