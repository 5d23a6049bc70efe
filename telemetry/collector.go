package telemetry

import (
	"math"

	"github.com/pthm-cable/plume/emitter"
)

// windowCounts is everything a window accumulates between flushes.
type windowCounts struct {
	events [numEventTypes]int
	stats  emitter.Stats
}

// Collector counts events and instance counters per window of ticks and
// turns them into WindowStats.
type Collector struct {
	windowTicks int32
	dt          float32
	windowStart int32
	cur         windowCounts
}

// NewCollector creates a collector with windows of windowSec simulated
// seconds at dt seconds per tick, rounded to the nearest tick. A window is at
// least one tick.
func NewCollector(windowSec float64, dt float32) *Collector {
	return &Collector{
		windowTicks: max(int32(math.Round(windowSec/float64(dt))), 1),
		dt:          dt,
	}
}

// Record counts one event.
func (c *Collector) Record(e Event) {
	if int(e.Type) < numEventTypes {
		c.cur.events[e.Type]++
	}
}

// RecordStats adds the counters an instance accumulated since its last report.
func (c *Collector) RecordStats(delta emitter.Stats) {
	s := &c.cur.stats
	s.Spawned += delta.Spawned
	s.Killed += delta.Killed
	s.Dropped += delta.Dropped
	s.BurstsFired += delta.BurstsFired
	s.Loops += delta.Loops
}

// StatsDelta returns the counter growth from prev to cur.
func StatsDelta(prev, cur emitter.Stats) emitter.Stats {
	return emitter.Stats{
		Spawned:     cur.Spawned - prev.Spawned,
		Killed:      cur.Killed - prev.Killed,
		Dropped:     cur.Dropped - prev.Dropped,
		BurstsFired: cur.BurstsFired - prev.BurstsFired,
		Loops:       cur.Loops - prev.Loops,
		LODSwitches: cur.LODSwitches - prev.LODSwitches,
	}
}

// ShouldFlush reports whether the current window is complete at tick.
func (c *Collector) ShouldFlush(tick int32) bool {
	return tick-c.windowStart >= c.windowTicks
}

// SceneSample is the scene state measured at window end.
type SceneSample struct {
	// ParticleCounts holds the live particle count of every effect.
	ParticleCounts []float64
	// Ages holds the relative time of live particles.
	Ages           []float64
	AllocatedBytes int
}

// Flush closes the window at tick and starts the next one.
func (c *Collector) Flush(tick int32, sample SceneSample) WindowStats {
	w := c.cur
	c.cur = windowCounts{}
	start := c.windowStart
	c.windowStart = tick

	var dropRate float64
	if demand := w.stats.Spawned + w.stats.Dropped; demand > 0 {
		dropRate = float64(w.stats.Dropped) / float64(demand)
	}
	var particles int
	for _, n := range sample.ParticleCounts {
		particles += int(n)
	}
	counts := ComputeDistribution(sample.ParticleCounts)
	ages := ComputeDistribution(sample.Ages)

	return WindowStats{
		WindowStartTick: start,
		WindowEndTick:   tick,
		SimTimeSec:      float64(tick) * float64(c.dt),

		Effects:   len(sample.ParticleCounts),
		Particles: particles,

		Placed:    w.events[EventPlaced],
		Completed: w.events[EventCompleted],

		Spawned:     w.stats.Spawned,
		Killed:      w.stats.Killed,
		Dropped:     w.stats.Dropped,
		BurstsFired: w.stats.BurstsFired,
		Loops:       w.stats.Loops,
		LODSwitches: w.events[EventLODSwitch],
		DropRate:    dropRate,

		SpawnEvents: w.events[EventParticleSpawn],
		DeathEvents: w.events[EventParticleDeath],

		ParticlesMean: counts.Mean,
		ParticlesStd:  counts.Std,
		ParticlesP50:  counts.P50,
		ParticlesP90:  counts.P90,

		AgeMean: ages.Mean,
		AgeP10:  ages.P10,
		AgeP50:  ages.P50,
		AgeP90:  ages.P90,

		AllocatedBytes: sample.AllocatedBytes,
	}
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowTicks
}
