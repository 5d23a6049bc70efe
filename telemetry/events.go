// Package telemetry provides windowed effect statistics, tick timing,
// bookmarks, snapshots and CSV output for a running scene.
package telemetry

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/pthm-cable/plume/module"
)

// EventType identifies telemetry events.
type EventType uint8

const (
	EventPlaced EventType = iota
	EventCompleted
	EventLODSwitch
	EventParticleSpawn
	EventParticleDeath

	numEventTypes = iota
)

func (t EventType) String() string {
	switch t {
	case EventPlaced:
		return "placed"
	case EventCompleted:
		return "completed"
	case EventLODSwitch:
		return "lod_switch"
	case EventParticleSpawn:
		return "particle_spawn"
	case EventParticleDeath:
		return "particle_death"
	}
	return "unknown"
}

// Event represents a single telemetry event.
type Event struct {
	Type     EventType
	Tick     int32
	Instance uuid.UUID
	Effect   string

	// Optional fields depending on event type
	Name     string     // event generator name for particle events
	Location mgl32.Vec3 // particle or effect location
	LOD      int        // new LOD for switches
}

// NewPlacedEvent creates an event for an effect entering the scene.
func NewPlacedEvent(tick int32, id uuid.UUID, effect string, at mgl32.Vec3) Event {
	return Event{Type: EventPlaced, Tick: tick, Instance: id, Effect: effect, Location: at}
}

// NewCompletedEvent creates an event for an effect leaving the scene.
func NewCompletedEvent(tick int32, id uuid.UUID, effect string) Event {
	return Event{Type: EventCompleted, Tick: tick, Instance: id, Effect: effect}
}

// NewLODSwitchEvent creates an event for an effect changing detail level.
func NewLODSwitchEvent(tick int32, id uuid.UUID, effect string, lod int) Event {
	return Event{Type: EventLODSwitch, Tick: tick, Instance: id, Effect: effect, LOD: lod}
}

// FromModuleEvent converts a particle event reported by an emitter.
func FromModuleEvent(tick int32, id uuid.UUID, effect string, e module.Event) Event {
	t := EventParticleSpawn
	if e.Type == module.EventDeath {
		t = EventParticleDeath
	}
	return Event{Type: t, Tick: tick, Instance: id, Effect: effect, Name: e.Name, Location: e.Location}
}

// EventCSV is the flat form of an Event written to events.csv.
type EventCSV struct {
	Tick     int32   `csv:"tick"`
	Type     string  `csv:"type"`
	Instance string  `csv:"instance"`
	Effect   string  `csv:"effect"`
	Name     string  `csv:"name"`
	X        float32 `csv:"x"`
	Y        float32 `csv:"y"`
	Z        float32 `csv:"z"`
	LOD      int     `csv:"lod"`
}

// ToCSV flattens the event.
func (e Event) ToCSV() EventCSV {
	return EventCSV{
		Tick:     e.Tick,
		Type:     e.Type.String(),
		Instance: e.Instance.String(),
		Effect:   e.Effect,
		Name:     e.Name,
		X:        e.Location.X(),
		Y:        e.Location.Y(),
		Z:        e.Location.Z(),
		LOD:      e.LOD,
	}
}
