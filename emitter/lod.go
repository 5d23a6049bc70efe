package emitter

import (
	"github.com/pthm-cable/plume/particle"
)

// SetCurrentLODIndex switches the active LOD. The pool is re-strided when the
// new level needs a different layout; payloads whose region keeps its size are
// carried over, the rest start zeroed. fullyProcess marks bursts whose time has
// already passed in the current loop as fired.
func (in *Instance) SetCurrentLODIndex(i int, fullyProcess bool) {
	if i < 0 || i >= len(in.tmpl.LODLevels) {
		in.log.Debug("lod index out of range, using 0", "requested", i)
		i = 0
	}
	if in.state == StateUninitialized {
		in.lodIndex = i
		return
	}
	if i == in.lodIndex {
		return
	}

	oldLayout := in.layout
	from := in.lodIndex
	in.lodIndex = i
	in.lod = in.tmpl.LODLevels[i]
	in.bindModules()
	in.layout = in.buildLayout()
	in.stats.LODSwitches++

	if newMax := in.maxActive(); !in.layout.Equal(oldLayout) || newMax != in.pool.MaxActive() {
		in.restride(oldLayout, newMax)
	}

	if fullyProcess {
		in.markPassedBursts()
	}
	if in.lod.Disabled {
		in.KillParticlesForced()
	}
	in.log.Debug("lod switch",
		"from", from,
		"to", i,
		"stride", in.layout.Stride,
		"active", in.pool.Active())
}

func (in *Instance) restride(oldLayout particle.Layout, newMax int) {
	newLayout := in.layout
	capacity := min(max(in.pool.Capacity(), 1), newMax)
	if newMax > in.pool.MaxActive() {
		in.pool.SetMaxActive(newMax)
	}

	copyFn := func(dst, src particle.Record) bool {
		dst.CopyBase(src)
		n := min(len(oldLayout.Entries), len(newLayout.Entries))
		for e := 0; e < n; e++ {
			from, to := oldLayout.Entries[e].Payload, newLayout.Entries[e].Payload
			if from.Valid() && from.Size == to.Size {
				copy(dst[to.Offset:to.Offset+to.Size], src[from.Offset:from.Offset+from.Size])
			}
		}
		return true
	}

	before := in.pool.Active()
	remap, err := in.pool.Restride(newLayout.Stride, capacity, copyFn)
	if err != nil {
		in.log.Warn("restride failed, killing particles", "error", err)
		in.pool.SetMaxActive(newMax)
		in.pool.Clear()
		in.variant.reset(in)
	} else {
		in.pool.SetMaxActive(newMax)
		in.variant.remap(in, remap)
		if dropped := before - in.pool.Active(); dropped > 0 {
			in.stats.Killed += dropped
		}
	}

	// Carry instance state whose region kept its size; prepare the rest.
	block := make(particle.Bytes, newLayout.InstanceSize)
	keep := map[int]bool{}
	n := min(len(oldLayout.Entries), len(newLayout.Entries))
	for e := 0; e < n; e++ {
		from, to := oldLayout.Entries[e].Instance, newLayout.Entries[e].Instance
		if from.Valid() && from.Size == to.Size {
			copy(block[to.Offset:to.Offset+to.Size], in.block[from.Offset:from.Offset+from.Size])
			keep[e] = true
		}
	}
	in.block = block
	in.prepBlock(keep)
}
