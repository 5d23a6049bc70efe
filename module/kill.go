package module

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/particle"
)

// KillBox removes particles inside (or outside) an axis-aligned box.
type KillBox struct {
	Min, Max mgl32.Vec3
	// KillInside removes particles in the box; otherwise those outside it.
	KillInside bool
	// Relative places the box relative to the emitter location.
	Relative bool
}

func (m *KillBox) Name() string { return "kill_box" }

func (m *KillBox) Update(o Owner, p particle.View, _ float32) {
	lo, hi := m.Min, m.Max
	if m.Relative && !o.LocalSpace() {
		lo, hi = lo.Add(o.Location()), hi.Add(o.Location())
	}
	loc := p.Record.Location()
	inside := loc[0] >= lo[0] && loc[0] <= hi[0] &&
		loc[1] >= lo[1] && loc[1] <= hi[1] &&
		loc[2] >= lo[2] && loc[2] <= hi[2]
	if inside == m.KillInside {
		p.Record.Kill()
	}
}

// KillHeight removes particles that cross a Z plane.
type KillHeight struct {
	Height float32
	// Floor kills below the plane; otherwise above it.
	Floor    bool
	Relative bool
}

func (m *KillHeight) Name() string { return "kill_height" }

func (m *KillHeight) Update(o Owner, p particle.View, _ float32) {
	h := m.Height
	if m.Relative && !o.LocalSpace() {
		h += o.Location().Z()
	}
	z := p.Record.Location().Z()
	if (m.Floor && z < h) || (!m.Floor && z > h) {
		p.Record.Kill()
	}
}
