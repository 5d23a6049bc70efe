package module

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/particle"
)

// SpawnPerUnit spawns particles by distance the emitter travels rather than by time.
//
// Instance block: travel leftover (f32), last location (vec3), primed flag (u32).
type SpawnPerUnit struct {
	// UnitScalar converts world distance into spawn units.
	UnitScalar float32
	PerUnit    distribution.Float
	// MaxFrameDistance treats longer single-tick moves as teleports. Zero disables.
	MaxFrameDistance float32
	// IgnoreSpawnRate suppresses the regular rate while this module is active.
	IgnoreSpawnRate bool
}

const (
	spuLeftover = 0
	spuLast     = 4
	spuPrimed   = 16
)

func (m *SpawnPerUnit) Name() string { return "spawn_per_unit" }

func (m *SpawnPerUnit) RequiredBytesPerInstance() int { return 20 }

func (m *SpawnPerUnit) PrepInstanceBlock(_ Owner, b particle.Block) {
	b.SetFloat(spuLeftover, 0)
	b.SetVec3(spuLast, mgl32.Vec3{})
	b.SetUint32(spuPrimed, 0)
}

func (m *SpawnPerUnit) SpawnCount(o Owner, b particle.Block, _ float32) (int, bool) {
	cur := o.Location()
	if b.Uint32(spuPrimed) == 0 {
		b.SetVec3(spuLast, cur)
		b.SetUint32(spuPrimed, 1)
		return 0, !m.IgnoreSpawnRate
	}
	travel := cur.Sub(b.Vec3(spuLast)).Len()
	b.SetVec3(spuLast, cur)
	if m.MaxFrameDistance > 0 && travel > m.MaxFrameDistance {
		b.SetFloat(spuLeftover, 0)
		return 0, !m.IgnoreSpawnRate
	}
	scalar := m.UnitScalar
	if scalar <= 0 {
		scalar = 1
	}
	perUnit := distribution.Sample(m.PerUnit, o.EmitterTime(), o.Rand())
	n, left := Resample(travel/scalar, b.Float(spuLeftover), perUnit)
	b.SetFloat(spuLeftover, left)
	return n, !m.IgnoreSpawnRate
}

func (m *SpawnPerUnit) SetToSensibleDefaults(Authoring) {
	if m.UnitScalar == 0 {
		m.UnitScalar = 1
	}
	if m.PerUnit == nil {
		m.PerUnit = distribution.Constant(1)
	}
}

// Resample is the arc-length spawn policy: it adds travel to the carried leftover
// and returns how many evenly spaced points (perUnit per unit of distance) fall
// inside it, plus the distance left over for the next call.
func Resample(travel, leftover, perUnit float32) (int, float32) {
	if perUnit <= 0 {
		return 0, 0
	}
	total := travel + leftover
	n := int(math.Floor(float64(total * perUnit)))
	if n < 0 {
		n = 0
	}
	left := total - float32(n)/perUnit
	if left < 0 {
		left = 0
	}
	return n, left
}
