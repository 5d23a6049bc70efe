package telemetry

import (
	"github.com/google/uuid"

	"github.com/pthm-cable/plume/emitter"
)

// LifetimeStats tracks per-effect statistics over its time in the scene.
type LifetimeStats struct {
	ID        string  `csv:"id" json:"id"`
	Effect    string  `csv:"effect" json:"effect"`
	BirthTick int32   `csv:"birth_tick" json:"birth_tick"`
	AliveSec  float32 `csv:"alive_sec" json:"alive_sec"`

	PeakParticles int `csv:"peak_particles" json:"peak_particles"`
	Spawned       int `csv:"spawned" json:"spawned"`
	Killed        int `csv:"killed" json:"killed"`
	Dropped       int `csv:"dropped" json:"dropped"`
	Loops         int `csv:"loops" json:"loops"`
	LODSwitches   int `csv:"lod_switches" json:"lod_switches"`

	Completed bool `csv:"completed" json:"completed"`
}

// LifetimeTracker manages per-effect lifetime statistics.
type LifetimeTracker struct {
	stats map[uuid.UUID]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uuid.UUID]*LifetimeStats),
	}
}

// Register creates lifetime stats for a newly placed effect.
func (lt *LifetimeTracker) Register(id uuid.UUID, effect string, birthTick int32) {
	lt.stats[id] = &LifetimeStats{ID: id.String(), Effect: effect, BirthTick: birthTick}
}

// Get returns the lifetime stats for an effect, or nil if not found.
func (lt *LifetimeTracker) Get(id uuid.UUID) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes an effect's stats and returns them.
func (lt *LifetimeTracker) Remove(id uuid.UUID) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// Update copies the instance's counters and advances its age.
func (lt *LifetimeTracker) Update(id uuid.UUID, currentTick int32, dt float32, s emitter.Stats) {
	ls := lt.stats[id]
	if ls == nil {
		return
	}
	ls.AliveSec = float32(currentTick-ls.BirthTick) * dt
	ls.Spawned = s.Spawned
	ls.Killed = s.Killed
	ls.Dropped = s.Dropped
	ls.Loops = s.Loops
	ls.LODSwitches = s.LODSwitches
	if s.PeakActive > ls.PeakParticles {
		ls.PeakParticles = s.PeakActive
	}
}

// MarkCompleted flags an effect as having finished on its own.
func (lt *LifetimeTracker) MarkCompleted(id uuid.UUID) {
	if s := lt.stats[id]; s != nil {
		s.Completed = true
	}
}

// All returns all tracked stats.
func (lt *LifetimeTracker) All() map[uuid.UUID]*LifetimeStats {
	return lt.stats
}

// Count returns the number of tracked effects.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// EffectCounts returns the number of live instances per effect name.
func (lt *LifetimeTracker) EffectCounts() map[string]int {
	counts := make(map[string]int)
	for _, s := range lt.stats {
		counts[s.Effect]++
	}
	return counts
}
