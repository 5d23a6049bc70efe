package emitter

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/module"
	"github.com/pthm-cable/plume/particle"
)

// Anim-trail payload after the shared chain fields.
const (
	animFirst     = chainExtra
	animSecond    = chainExtra + 12
	animFirstVel  = chainExtra + 24
	animSecondVel = chainExtra + 36
	animExtraSize = 48
)

type animSample struct {
	first, second mgl32.Vec3
}

// animTrailVariant builds a swept strip from externally supplied edge pairs,
// such as two sockets on an animated weapon.
type animTrailVariant struct {
	chainedVariant
	perUnit float32

	queue    []animSample
	last     animSample
	hasLast  bool
	leftover float32
	ending   bool

	pendingInterp bool
	pendingEdge   animSample
	pendingVel    animSample
}

func newAnimTrailVariant(t *Template) *animTrailVariant {
	return &animTrailVariant{chainedVariant: newChained(t, animExtraSize), perUnit: t.Trail.SpawnPerUnit}
}

func (v *animTrailVariant) reset(in *Instance) {
	v.chainedVariant.reset(in)
	v.queue = v.queue[:0]
	v.hasLast = false
	v.leftover = 0
	v.ending = false
}

// BeginAnimTrail starts a new anim-trail chain. Samples added before the next
// tick are laid down in order.
func (in *Instance) BeginAnimTrail() {
	v, ok := in.variant.(*animTrailVariant)
	if !ok {
		return
	}
	v.set.Retire(v.set.Current(0))
	v.queue = v.queue[:0]
	v.hasLast = false
	v.leftover = 0
	v.ending = false
}

// AddAnimSample queues one pair of edge points for the current anim-trail.
func (in *Instance) AddAnimSample(first, second mgl32.Vec3) {
	if v, ok := in.variant.(*animTrailVariant); ok {
		v.queue = append(v.queue, animSample{first: first, second: second})
	}
}

// EndAnimTrail closes the current anim-trail after queued samples are used.
func (in *Instance) EndAnimTrail() {
	if v, ok := in.variant.(*animTrailVariant); ok {
		v.ending = true
	}
}

func (v *animTrailVariant) spawn(in *Instance, dt float32) bool {
	for _, s := range v.queue {
		if !v.hasLast {
			v.set.Start(0)
			v.emit(in, s, animSample{}, 0, false)
			v.last, v.hasLast, v.leftover = s, true, 0
			continue
		}
		vel := animSample{}
		if dt > 0 {
			vel.first = s.first.Sub(v.last.first).Mul(1 / dt)
			vel.second = s.second.Sub(v.last.second).Mul(1 / dt)
		}
		from, to := mid(v.last), mid(s)
		travel := to.Sub(from).Len()
		if v.perUnit <= 0 || travel == 0 {
			v.emit(in, s, vel, 0, false)
		} else {
			n, left := module.Resample(travel, v.leftover, v.perUnit)
			for k := 1; k <= n; k++ {
				f := (float32(k)/v.perUnit - v.leftover) / travel
				e := animSample{
					first:  lerpVec(v.last.first, s.first, f),
					second: lerpVec(v.last.second, s.second, f),
				}
				if !v.emit(in, e, vel, 0, k < n) {
					in.stats.Dropped += n - k + 1
					break
				}
			}
			v.leftover = left
		}
		v.last = s
	}
	v.queue = v.queue[:0]
	if v.ending {
		v.set.Retire(v.set.Current(0))
		v.hasLast = false
		v.ending = false
	}
	return true
}

func (v *animTrailVariant) emit(in *Instance, s, vel animSample, spawnTime float32, interpolated bool) bool {
	at := mid(s)
	if in.LocalSpace() {
		at = at.Sub(in.location)
	}
	v.pendingEdge, v.pendingVel, v.pendingInterp = s, vel, interpolated
	_, ok := in.spawnOne(spawnTime, 0, at)
	return ok
}

func (v *animTrailVariant) postSpawn(in *Instance, p particle.Index, spawnTime float32) {
	b, r := v.set.bytes(p), v.set.region()
	b.SetVec3(r.Vec3(animFirst), v.pendingEdge.first)
	b.SetVec3(r.Vec3(animSecond), v.pendingEdge.second)
	b.SetVec3(r.Vec3(animFirstVel), v.pendingVel.first)
	b.SetVec3(r.Vec3(animSecondVel), v.pendingVel.second)
	ch := v.set.Current(0)
	if ch == nil {
		ch = v.set.Start(0)
	}
	v.set.Push(ch, p, in.secondsSinceCreation-spawnTime, v.pendingInterp)
	if v.maxInTrail > 0 {
		v.set.CapLength(ch, v.maxInTrail)
	}
}

// Edges returns the first and second edge points of an anim-trail particle.
func (c *ChainSet) Edges(p particle.Index) (first, second mgl32.Vec3) {
	b, r := c.bytes(p), c.region()
	return b.Vec3(r.Vec3(animFirst)), b.Vec3(r.Vec3(animSecond))
}

// EdgeVelocities returns the edge velocities recorded at spawn.
func (c *ChainSet) EdgeVelocities(p particle.Index) (first, second mgl32.Vec3) {
	b, r := c.bytes(p), c.region()
	return b.Vec3(r.Vec3(animFirstVel)), b.Vec3(r.Vec3(animSecondVel))
}

func (v *animTrailVariant) fill(in *Instance, d *DynamicData) {
	in.fillStrips(d, v.set, func(p particle.Index, sp *StripPoint) {
		sp.FirstEdge, sp.SecondEdge = v.set.Edges(p)
		sp.FirstEdgeVelocity, sp.SecondEdgeVelocity = v.set.EdgeVelocities(p)
	})
}

func mid(s animSample) mgl32.Vec3 { return s.first.Add(s.second).Mul(0.5) }

func lerpVec(a, b mgl32.Vec3, t float32) mgl32.Vec3 { return a.Add(b.Sub(a).Mul(t)) }
