package emitter

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/module"
	"github.com/pthm-cable/plume/particle"
)

// Ribbon instance state, one record per trail: last sampled point, travel
// leftover and a primed flag.
const (
	ribbonLast      = 0
	ribbonLeftover  = 12
	ribbonPrimed    = 16
	ribbonStateSize = 20
)

// ribbonUp is the up vector stored after the shared chain fields.
const ribbonUp = chainExtra

var worldUp = mgl32.Vec3{0, 0, 1}

// ribbonVariant follows one or more source points, laying particles down by
// distance travelled rather than by time.
type ribbonVariant struct {
	chainedVariant
	perUnit  float32
	maxFrame float32

	pendingTrail  int
	pendingInterp bool
}

func newRibbonVariant(t *Template) *ribbonVariant {
	per := t.Trail.SpawnPerUnit
	if per <= 0 {
		per = 1
	}
	return &ribbonVariant{
		chainedVariant: newChained(t, 12),
		perUnit:        per,
		maxFrame:       t.Trail.MaxFrameDistance,
	}
}

func (v *ribbonVariant) RequiredBytesPerInstance() int { return ribbonStateSize * v.trails }

func (v *ribbonVariant) reset(in *Instance) {
	v.chainedVariant.reset(in)
	b := in.blockFor(0)
	for i := 0; i < v.trails; i++ {
		b.SetUint32(i*ribbonStateSize+ribbonPrimed, 0)
	}
}

func (v *ribbonVariant) source(in *Instance, i int) (mgl32.Vec3, bool) {
	if ts, ok := in.host.(TrailSource); ok {
		if i >= ts.SourceCount() {
			return mgl32.Vec3{}, false
		}
		return ts.SourcePoint(i)
	}
	if i > 0 {
		return mgl32.Vec3{}, false
	}
	return in.location, true
}

func (v *ribbonVariant) spawn(in *Instance, dt float32) bool {
	b := in.blockFor(0)
	for i := 0; i < v.trails; i++ {
		base := i * ribbonStateSize
		pos, ok := v.source(in, i)
		if !ok {
			v.set.Retire(v.set.Current(i))
			b.SetUint32(base+ribbonPrimed, 0)
			continue
		}

		last := b.Vec3(base + ribbonLast)
		travel := pos.Sub(last).Len()
		teleport := v.maxFrame > 0 && travel > v.maxFrame
		if b.Uint32(base+ribbonPrimed) == 0 || v.set.Current(i) == nil || teleport {
			if teleport {
				in.log.Debug("ribbon source teleported, starting new chain", "trail", i, "distance", travel)
			}
			v.set.Start(i)
			v.emit(in, i, pos, 0, false)
			b.SetVec3(base+ribbonLast, pos)
			b.SetFloat(base+ribbonLeftover, 0)
			b.SetUint32(base+ribbonPrimed, 1)
			continue
		}

		leftover := b.Float(base + ribbonLeftover)
		n, left := module.Resample(travel, leftover, v.perUnit)
		if n > 0 {
			dir := pos.Sub(last).Mul(1 / travel)
			for k := 1; k <= n; k++ {
				d := float32(k)/v.perUnit - leftover
				spawnTime := dt * (1 - d/travel)
				if !v.emit(in, i, last.Add(dir.Mul(d)), spawnTime, k < n) {
					in.stats.Dropped += n - k + 1
					break
				}
			}
		}
		b.SetFloat(base+ribbonLeftover, left)
		b.SetVec3(base+ribbonLast, pos)
	}
	return true
}

func (v *ribbonVariant) emit(in *Instance, trail int, at mgl32.Vec3, spawnTime float32, interpolated bool) bool {
	if in.LocalSpace() {
		at = at.Sub(in.location)
	}
	v.pendingTrail, v.pendingInterp = trail, interpolated
	_, ok := in.spawnOne(spawnTime, 0, at)
	return ok
}

func (v *ribbonVariant) postSpawn(in *Instance, p particle.Index, spawnTime float32) {
	v.link(in, v.pendingTrail, p, spawnTime, v.pendingInterp)
}

func (v *ribbonVariant) finish(in *Instance, _ float32) {
	v.set.UpdateTangents()
	r := v.set.region()
	for _, ch := range v.set.All() {
		v.set.Walk(ch, func(p particle.Index) bool {
			v.set.bytes(p).SetVec3(r.Vec3(ribbonUp), upFor(v.set.Tangent(p)))
			return true
		})
	}
}

// Up returns the ribbon up vector of a particle.
func (c *ChainSet) Up(p particle.Index) mgl32.Vec3 {
	return c.bytes(p).Vec3(c.region().Vec3(ribbonUp))
}

// upFor returns a unit vector perpendicular to the tangent.
func upFor(tangent mgl32.Vec3) mgl32.Vec3 {
	if tangent.Len() < 1e-6 {
		return worldUp
	}
	side := tangent.Cross(worldUp)
	if side.Len() < 1e-6 {
		side = tangent.Cross(mgl32.Vec3{0, 1, 0})
	}
	return side.Cross(tangent).Normalize()
}

func (v *ribbonVariant) fill(in *Instance, d *DynamicData) {
	in.fillStrips(d, v.set, func(p particle.Index, sp *StripPoint) {
		sp.Up = v.set.Up(p)
	})
}
