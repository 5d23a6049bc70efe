// Package module defines the capability interfaces emitter modules implement and the
// stock modules that ship with plume.
//
// Modules are configuration: they are built once, shared by every instance of a
// template and never mutated while ticking. Per-particle state goes in the payload
// region the layout table assigns; per-instance state goes in the instance block.
package module

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/pthm-cable/plume/particle"
)

// Module is the base every module satisfies. All other behaviour is optional
// and discovered through the capability interfaces below.
type Module interface {
	Name() string
}

// Owner is the emitter instance as seen by a module.
type Owner interface {
	ID() uuid.UUID
	Rand() *rand.Rand
	// EmitterTime is the time into the current loop, excluding the delay.
	EmitterTime() float32
	SecondsSinceCreation() float32
	LoopCount() int
	// Location is the emitter's world position.
	Location() mgl32.Vec3
	LocalSpace() bool
	// InstanceBlock returns the per-instance storage assigned to m.
	InstanceBlock(m Module) particle.Block
	Emit(e Event)
}

// Spawner initialises a freshly acquired particle. The base fields are seeded
// before any Spawn call.
type Spawner interface {
	Spawn(o Owner, p particle.View, spawnTime float32)
}

// Updater runs once per live particle per tick, in module order.
type Updater interface {
	Update(o Owner, p particle.View, dt float32)
}

// FinalUpdater runs after every Update and after integration.
type FinalUpdater interface {
	FinalUpdate(o Owner, p particle.View, dt float32)
}

// PayloadSizer requests per-particle storage.
type PayloadSizer interface {
	RequiredBytes() int
}

// InstanceSizer requests per-instance storage.
type InstanceSizer interface {
	RequiredBytesPerInstance() int
}

// InstancePrepper initialises its instance block after every layout build.
type InstancePrepper interface {
	PrepInstanceBlock(o Owner, b particle.Block)
}

// LoopNotifier is told when the emitter wraps into a new loop.
type LoopNotifier interface {
	EmitterLooped(o Owner)
}

// SpawnSource contributes spawn counts on top of (or instead of) the rate.
// useRate false suppresses the regular rate spawn for this tick.
type SpawnSource interface {
	SpawnCount(o Owner, b particle.Block, dt float32) (count int, useRate bool)
}

// KillObserver is notified once for every particle removed by the kill pass.
type KillObserver interface {
	Killed(o Owner, p particle.View)
}

// Authoring is the template information available when a module is added.
type Authoring interface {
	TemplateName() string
	UsesLocalSpace() bool
}

// Defaulter fills unset parameters when a module is added to a template.
type Defaulter interface {
	SetToSensibleDefaults(a Authoring)
}

// Snapshot capabilities read per-particle render values out of a payload.
type (
	SubImager interface {
		SubImage(p particle.View) float32
	}
	DynamicParameterer interface {
		DynamicParameters(p particle.View) mgl32.Vec4
	}
	LocationOffsetter interface {
		LocationOffset(p particle.View) mgl32.Vec3
	}
	MeshRotator interface {
		MeshRotation(p particle.View) mgl32.Quat
	}
)

// Sizes adapts any module to particle.Sizer, reporting zero for missing capabilities.
func Sizes(m Module) particle.Sizer { return sizes{m} }

type sizes struct{ m Module }

func (s sizes) RequiredBytes() int {
	if ps, ok := s.m.(PayloadSizer); ok {
		return ps.RequiredBytes()
	}
	return 0
}

func (s sizes) RequiredBytesPerInstance() int {
	if is, ok := s.m.(InstanceSizer); ok {
		return is.RequiredBytesPerInstance()
	}
	return 0
}
