package emitter

import (
	"fmt"

	"github.com/pthm-cable/plume/particle"
)

// Kind selects the instance variant.
type Kind uint8

const (
	KindSprite Kind = iota
	KindMesh
	KindBeam
	KindTrail
	KindRibbon
	KindAnimTrail
)

var kindNames = [...]string{"sprite", "mesh", "beam", "trail", "ribbon", "anim_trail"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindSprite, nil
	}
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown emitter kind %q", s)
}

// Chained reports whether particles of this kind are linked into chains.
func (k Kind) Chained() bool {
	return k == KindBeam || k == KindTrail || k == KindRibbon || k == KindAnimTrail
}

// variant is the per-kind behaviour plugged into the shared pipeline.
// Every hook has a no-op default in baseVariant.
type variant interface {
	particle.Sizer

	// reset drops all per-instance bookkeeping (init, rewind, forced kill).
	reset(in *Instance)
	// spawn replaces rate/burst spawning when it returns true.
	spawn(in *Instance, dt float32) bool
	// admit is asked before each rate/burst spawn.
	admit(in *Instance) bool
	postSpawn(in *Instance, phys particle.Index, spawnTime float32)
	postUpdate(in *Instance, dt float32)
	// markKills may flag extra particles after lifetime expiry has been flagged.
	markKills(in *Instance)
	// release runs just before a flagged particle's slot is freed.
	release(in *Instance, phys particle.Index)
	// finish runs after bounds, once per tick.
	finish(in *Instance, dt float32)
	// remap follows particles to new slots after a pool compaction.
	remap(in *Instance, m []particle.Index)
	deactivate(in *Instance)
	fill(in *Instance, d *DynamicData)
}

type baseVariant struct{}

func (baseVariant) RequiredBytes() int                           { return 0 }
func (baseVariant) RequiredBytesPerInstance() int                { return 0 }
func (baseVariant) reset(*Instance)                              {}
func (baseVariant) spawn(*Instance, float32) bool                { return false }
func (baseVariant) admit(*Instance) bool                         { return true }
func (baseVariant) postSpawn(*Instance, particle.Index, float32) {}
func (baseVariant) postUpdate(*Instance, float32)                {}
func (baseVariant) markKills(*Instance)                          {}
func (baseVariant) release(*Instance, particle.Index)            {}
func (baseVariant) finish(*Instance, float32)                    {}
func (baseVariant) remap(*Instance, []particle.Index)            {}
func (baseVariant) deactivate(*Instance)                         {}
func (baseVariant) fill(*Instance, *DynamicData)                 {}

func newVariant(t *Template) variant {
	switch t.Kind {
	case KindMesh:
		return &meshVariant{}
	case KindBeam:
		return newBeamVariant(t)
	case KindTrail:
		return newTrailVariant(t)
	case KindRibbon:
		return newRibbonVariant(t)
	case KindAnimTrail:
		return newAnimTrailVariant(t)
	}
	return &spriteVariant{}
}
