package emitter

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/plume/particle"
)

// beamFraction is a point's position along its beam in [0,1].
const beamFraction = chainExtra

// beamVariant turns every rate or burst spawn into a beam of Segments+1
// linked points from Source to Target. A beam lives and dies as a unit.
type beamVariant struct {
	chainedVariant
	data  BeamData
	noise opensimplex.Noise
}

func newBeamVariant(t *Template) *beamVariant {
	d := t.Beam
	if d.Segments < 1 {
		d.Segments = 1
	}
	if d.MaxBeams < 1 {
		d.MaxBeams = 1
	}
	v := &beamVariant{chainedVariant: newChained(t, 4), data: d}
	if d.NoiseAmplitude != 0 {
		v.noise = opensimplex.New(d.NoiseSeed)
	}
	return v
}

func (v *beamVariant) admit(in *Instance) bool {
	if v.set.Len() >= v.data.MaxBeams {
		return false
	}
	return in.pool.MaxActive()-in.pool.Active() >= v.data.Segments+1
}

// postSpawn makes p the source end and fills in the remaining points as
// copies of it.
func (v *beamVariant) postSpawn(in *Instance, p particle.Index, spawnTime float32) {
	birth := in.secondsSinceCreation - spawnTime
	ch := v.set.Open()
	r := v.set.region()
	v.set.Append(ch, p, birth)
	v.set.bytes(p).SetFloat(r.Float(beamFraction), 0)
	src := in.pool.Record(p)
	for k := 1; k <= v.data.Segments; k++ {
		q, ok := in.pool.Acquire()
		if !ok {
			v.set.Walk(ch, func(x particle.Index) bool {
				in.pool.Record(x).Kill()
				return true
			})
			return
		}
		in.pool.Record(q).CopyBase(src)
		v.set.Append(ch, q, birth)
		v.set.bytes(q).SetFloat(r.Float(beamFraction), float32(k)/float32(v.data.Segments))
		in.stats.Spawned++
	}
	v.place(in, ch)
}

func (v *beamVariant) postUpdate(in *Instance, _ float32) {
	for _, ch := range v.set.All() {
		v.place(in, ch)
	}
}

// place positions every point of a beam along source to target plus noise.
func (v *beamVariant) place(in *Instance, ch *Chain) {
	origin := in.spawnOrigin()
	src := origin.Add(v.data.Source)
	dst := origin.Add(v.data.Target)
	span := dst.Sub(src)
	var u, w mgl32.Vec3
	if v.noise != nil && span.Len() > 0 {
		dir := span.Normalize()
		u = upFor(dir)
		w = dir.Cross(u)
	}
	t := float64(in.secondsSinceCreation)
	freq := float64(v.data.NoiseFrequency)
	r := v.set.region()
	v.set.Walk(ch, func(p particle.Index) bool {
		f := v.set.bytes(p).Float(r.Float(beamFraction))
		loc := src.Add(span.Mul(f))
		if v.noise != nil {
			pin := float32(math.Sin(math.Pi * float64(f)))
			a := float32(v.noise.Eval3(float64(f)*freq, t, float64(ch.ID)))
			b := float32(v.noise.Eval3(float64(f)*freq+57.3, t, float64(ch.ID)))
			loc = loc.Add(u.Mul(a * v.data.NoiseAmplitude * pin)).Add(w.Mul(b * v.data.NoiseAmplitude * pin))
		}
		rec := in.pool.Record(p)
		rec.SetOldLocation(rec.Location())
		rec.SetLocation(loc)
		return true
	})
}

// markKills spreads a kill on any point to its whole beam.
func (v *beamVariant) markKills(in *Instance) {
	for _, ch := range v.set.All() {
		dying := false
		v.set.Walk(ch, func(p particle.Index) bool {
			dying = in.pool.Record(p).HasFlag(particle.FlagKill)
			return !dying
		})
		if !dying {
			continue
		}
		v.set.Walk(ch, func(p particle.Index) bool {
			in.pool.Record(p).Kill()
			return true
		})
	}
}
