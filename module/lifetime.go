package module

import (
	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/particle"
)

// Lifetime sets how long a particle lives, sampled over emitter time.
// A second Lifetime in the same list extends rather than replaces.
// A non-positive lifetime makes the particle immortal.
type Lifetime struct {
	Lifetime distribution.Float
}

func (m *Lifetime) Name() string { return "lifetime" }

func (m *Lifetime) Spawn(o Owner, p particle.View, spawnTime float32) {
	life := distribution.Sample(m.Lifetime, o.EmitterTime(), o.Rand())
	r := p.Record
	prev := r.OneOverMaxLifetime()
	switch {
	case life <= 0:
		return
	case prev > 0:
		r.SetOneOverMaxLifetime(1 / (1/prev + life))
	default:
		r.SetOneOverMaxLifetime(1 / life)
	}
	r.SetRelativeTime(spawnTime * r.OneOverMaxLifetime())
}

func (m *Lifetime) SetToSensibleDefaults(Authoring) {
	if m.Lifetime == nil {
		m.Lifetime = distribution.Constant(1)
	}
}
