package emitter

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/particle"
)

// burstEpsilon keeps a burst from firing on the tick that lands exactly on its time.
const burstEpsilon = 1e-4

// teleportDistSq is the squared emitter move above which spawns are spread
// back along the path travelled this tick.
const teleportDistSq = 1

func (in *Instance) canSpawn() bool {
	return in.state == StateActive && !in.haltSpawning && !in.lod.Disabled && !in.loopsFinished()
}

// spawnByRate spawns the burst, spawn-source and rate demand for this tick.
// Bursts are served first when the pool runs out of room.
func (in *Instance) spawnByRate(dt float32) {
	t := in.EmitterTime()
	sp := &in.lod.Spawn

	rate := distribution.Sample(sp.Rate, t, in.rng)
	if sp.RateScale != nil {
		rate *= distribution.Sample(sp.RateScale, t, in.rng)
	}
	extra := 0
	for _, s := range in.sources {
		n, useRate := s.m.SpawnCount(in, in.blockFor(s.entry), dt)
		extra += n
		if !useRate {
			rate = 0
		}
	}

	in.spawnBatch(in.fireBursts(), 0, 0, false)

	if extra > 0 {
		inc := dt / float32(extra)
		in.spawnBatch(extra, dt-inc, inc, true)
	}

	if rate <= 0 || dt <= 0 {
		return
	}
	old := in.spawnFraction
	acc := old + rate*dt
	number := int(math.Floor(float64(acc)))
	in.spawnFraction = acc - float32(number)
	increment := 1 / rate
	start := dt + old*increment - increment
	in.spawnBatch(number, start, increment, true)
}

// fireBursts returns the total count of bursts whose time has passed this loop.
func (in *Instance) fireBursts() int {
	bursts := in.lod.Spawn.Bursts
	if len(bursts) == 0 || in.emitterTime < in.delay {
		return 0
	}
	t := in.emitterTime - in.delay
	fired := in.fired[in.lodIndex]
	total := 0
	for i, b := range bursts {
		if fired[i] || t-b.Time <= burstEpsilon {
			continue
		}
		fired[i] = true
		in.stats.BurstsFired++
		n := b.Count
		if b.CountLow >= 0 && b.CountLow < b.Count {
			n = b.CountLow + in.rng.Intn(b.Count-b.CountLow+1)
		}
		total += n
	}
	return total
}

// markPassedBursts flags bursts of the current LOD that already lie behind the
// loop time, so a LOD switch does not replay them.
func (in *Instance) markPassedBursts() {
	t := in.emitterTime - in.delay
	fired := in.fired[in.lodIndex]
	for i, b := range in.lod.Spawn.Bursts {
		if t-b.Time > burstEpsilon {
			fired[i] = true
		}
	}
}

// spawnBatch spawns n particles with spawn times start, start-inc, ...
// Demand the pool cannot hold is dropped.
func (in *Instance) spawnBatch(n int, start, inc float32, interpolate bool) int {
	origin := in.spawnOrigin()
	for i := 0; i < n; i++ {
		interp := float32(0)
		if interpolate {
			interp = 1 - float32(i+1)/float32(n)
		}
		if !in.variant.admit(in) {
			in.stats.Dropped += n - i
			return i
		}
		if _, ok := in.spawnOne(start-float32(i)*inc, interp, origin); !ok {
			in.stats.Dropped += n - i
			return i
		}
	}
	return n
}

// spawnOrigin is where a particle starts before modules move it.
func (in *Instance) spawnOrigin() mgl32.Vec3 {
	if in.LocalSpace() {
		return mgl32.Vec3{}
	}
	return in.location
}

// spawnOne acquires a slot and runs PreSpawn, the module spawners and PostSpawn.
func (in *Instance) spawnOne(spawnTime, interp float32, origin mgl32.Vec3) (particle.Index, bool) {
	phys, ok := in.pool.Acquire()
	if !ok {
		return particle.None, false
	}
	r := in.pool.Record(phys)
	r.SetLocation(origin)

	for _, s := range in.spawners {
		s.m.Spawn(in, in.view(phys, s.entry), spawnTime)
	}

	loc := r.Location()
	if !in.LocalSpace() && interp > 0 {
		moved := in.oldLocation.Sub(in.location)
		if moved.Dot(moved) > teleportDistSq {
			loc = loc.Add(moved.Mul(interp))
		}
	}
	r.SetOldLocation(loc)
	r.SetLocation(loc.Add(r.Velocity().Mul(spawnTime)))

	in.variant.postSpawn(in, phys, spawnTime)
	in.stats.Spawned++
	return phys, true
}
