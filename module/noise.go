package module

import (
	"github.com/go-gl/mathgl/mgl32"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/particle"
)

// Noise perturbs velocity with a smooth 4D simplex field sampled at the particle
// position and emitter time.
type Noise struct {
	Frequency float32
	Strength  distribution.Float
	// TimeScale scrolls the field over time.
	TimeScale float32

	field opensimplex.Noise
}

// NewNoise builds a Noise module. The field is seeded once and shared.
func NewNoise(seed int64, frequency float32, strength distribution.Float) *Noise {
	return &Noise{
		Frequency: frequency,
		Strength:  strength,
		TimeScale: 1,
		field:     opensimplex.New(seed),
	}
}

func (m *Noise) Name() string { return "noise" }

// Sample returns the field value in [-1,1] per axis at pos and time t.
func (m *Noise) Sample(pos mgl32.Vec3, t float32) mgl32.Vec3 {
	if m.field == nil {
		return mgl32.Vec3{}
	}
	f := float64(m.Frequency)
	x, y, z := float64(pos[0])*f, float64(pos[1])*f, float64(pos[2])*f
	w := float64(t * m.TimeScale)
	// Offset each axis into a separate region of the field.
	return mgl32.Vec3{
		float32(m.field.Eval4(x, y, z, w)),
		float32(m.field.Eval4(x+31.4, y+47.2, z+12.9, w)),
		float32(m.field.Eval4(x-19.7, y+5.3, z-61.1, w)),
	}
}

func (m *Noise) Update(o Owner, p particle.View, dt float32) {
	r := p.Record
	s := distribution.Sample(m.Strength, r.RelativeTime(), o.Rand())
	if s == 0 {
		return
	}
	addVelocity(r, m.Sample(r.Location(), o.SecondsSinceCreation()).Mul(s*dt))
}

func (m *Noise) SetToSensibleDefaults(Authoring) {
	if m.field == nil {
		m.field = opensimplex.New(0)
	}
	if m.Frequency == 0 {
		m.Frequency = 0.01
	}
	if m.Strength == nil {
		m.Strength = distribution.Constant(50)
	}
}
