package components

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/module"
)

// Host places an emitter instance at its entity. It lives on the heap so the
// instance can keep a pointer while the ECS moves component storage around.
type Host struct {
	pos     mgl32.Vec3
	offsets []mgl32.Vec3
}

// NewHost creates a host at pos with optional trail source offsets.
func NewHost(pos mgl32.Vec3, offsets []mgl32.Vec3) *Host {
	return &Host{pos: pos, offsets: offsets}
}

// MoveTo updates the host location.
func (h *Host) MoveTo(pos mgl32.Vec3) { h.pos = pos }

// Location implements emitter.Host.
func (h *Host) Location() mgl32.Vec3 { return h.pos }

// SourceCount implements emitter.TrailSource. A host without offsets has one
// source at its location.
func (h *Host) SourceCount() int {
	if len(h.offsets) == 0 {
		return 1
	}
	return len(h.offsets)
}

// SourcePoint implements emitter.TrailSource.
func (h *Host) SourcePoint(i int) (mgl32.Vec3, bool) {
	if len(h.offsets) == 0 {
		return h.pos, i == 0
	}
	if i < 0 || i >= len(h.offsets) {
		return mgl32.Vec3{}, false
	}
	return h.pos.Add(h.offsets[i]), true
}

// EventBuffer holds module events raised during a tick until the scene drains them.
type EventBuffer struct {
	mu     sync.Mutex
	events []module.Event
}

// Add appends an event.
func (b *EventBuffer) Add(e module.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

// Drain returns the buffered events and resets the buffer. The returned slice
// is valid until the next Add.
func (b *EventBuffer) Drain() []module.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = b.events[:0]
	return out
}
