// Package components defines ECS components for the scene.
package components

import (
	"github.com/google/uuid"

	"github.com/pthm-cable/plume/emitter"
)

// Effect binds a running emitter instance to its entity.
type Effect struct {
	ID        uuid.UUID
	Name      string
	Instance  *emitter.Instance
	Host      *Host
	Events    *EventBuffer
	BirthTick int32
	Age       float32 // seconds since placement
	ActiveFor float32 // deactivate after this many seconds (0 = never)
	Stopped   bool    // Deactivate has been called
	LastStats emitter.Stats
	// Dynamic is the reused render snapshot buffer.
	Dynamic *emitter.DynamicData
}
