package module

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/particle"
)

// EventType identifies particle events.
type EventType uint8

const (
	EventSpawn EventType = iota
	EventDeath
)

func (t EventType) String() string {
	switch t {
	case EventSpawn:
		return "spawn"
	case EventDeath:
		return "death"
	}
	return "unknown"
}

// Event is reported to the owner's sink by EventGenerator.
type Event struct {
	Type        EventType
	Name        string
	Location    mgl32.Vec3
	Velocity    mgl32.Vec3
	EmitterTime float32
}

// EventGenerator reports spawn and/or death events for its particles.
type EventGenerator struct {
	EventName string
	OnSpawn   bool
	OnDeath   bool
}

func (m *EventGenerator) Name() string { return "event_generator" }

func (m *EventGenerator) Spawn(o Owner, p particle.View, _ float32) {
	if m.OnSpawn {
		o.Emit(m.event(o, EventSpawn, p))
	}
}

func (m *EventGenerator) Killed(o Owner, p particle.View) {
	if m.OnDeath {
		o.Emit(m.event(o, EventDeath, p))
	}
}

func (m *EventGenerator) event(o Owner, t EventType, p particle.View) Event {
	return Event{
		Type:        t,
		Name:        m.EventName,
		Location:    p.Record.Location(),
		Velocity:    p.Record.Velocity(),
		EmitterTime: o.EmitterTime(),
	}
}

func (m *EventGenerator) SetToSensibleDefaults(a Authoring) {
	if m.EventName == "" {
		m.EventName = a.TemplateName()
	}
	if !m.OnSpawn && !m.OnDeath {
		m.OnDeath = true
	}
}
