package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/plume/emitter"
)

// Phase names for the scene step. Emitter ticks report emitter.Phases in between.
const (
	PhaseMove      = "move"
	PhaseLOD       = "lod"
	PhaseSamples   = "samples"
	PhaseWorkers   = "workers" // emitter ticks run on the worker pool
	PhaseCleanup   = "cleanup"
	PhaseTelemetry = "telemetry"
)

// scenePhases lists the scene's own phases in execution order.
var scenePhases = []string{PhaseMove, PhaseLOD, PhaseSamples, PhaseWorkers, PhaseCleanup, PhaseTelemetry}

// AllPhases returns the scene phases followed by the emitter tick phases.
func AllPhases() []string {
	out := make([]string, 0, len(scenePhases)+len(emitter.Phases))
	out = append(out, scenePhases...)
	return append(out, emitter.Phases...)
}

// PerfSample is the timing of one scene step.
type PerfSample struct {
	Tick   time.Duration
	Phases map[string]time.Duration
}

// PerfCollector keeps the last N step timings.
// It is not safe for concurrent use; instances ticked on workers must not share it.
type PerfCollector struct {
	ring   []PerfSample
	next   int
	filled int

	cur        map[string]time.Duration
	tickStart  time.Time
	phase      string
	phaseStart time.Time

	lastFrame time.Time
	frame     time.Duration
}

var _ emitter.PhaseTimer = (*PerfCollector)(nil)

// NewPerfCollector keeps window step samples. Values below 1 mean 60.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		ring: make([]PerfSample, window),
		cur:  make(map[string]time.Duration),
	}
}

// StartTick begins timing a scene step.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.cur = make(map[string]time.Duration, len(scenePhases)+len(emitter.Phases))
	p.phase = ""
}

// StartPhase closes the running phase, if any, and opens phase.
// Phases may repeat within a step; their times add up.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.closePhase(now)
	p.phase = phase
	p.phaseStart = now
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase != "" {
		p.cur[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick closes the step and stores it, replacing the oldest sample once
// the window is full.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.phase = ""

	p.ring[p.next] = PerfSample{Tick: now.Sub(p.tickStart), Phases: p.cur}
	p.next = (p.next + 1) % len(p.ring)
	p.filled = min(p.filled+1, len(p.ring))
}

// RecordFrame marks a rendered frame. Frame time is measured between calls.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats summarizes the sample window.
type PerfStats struct {
	Samples         int
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	P95TickDuration time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64 // share of the average step

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats summarizes the current window. Maps are never nil.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{
		Samples:       p.filled,
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frame,
	}
	if p.frame > 0 {
		out.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.filled == 0 {
		return out
	}

	ticks := make([]float64, p.filled)
	sums := make(map[string]time.Duration)
	for i, s := range p.ring[:p.filled] {
		ticks[i] = float64(s.Tick)
		for phase, d := range s.Phases {
			sums[phase] += d
		}
	}
	sort.Float64s(ticks)

	mean := stat.Mean(ticks, nil)
	out.AvgTickDuration = time.Duration(mean)
	out.MinTickDuration = time.Duration(ticks[0])
	out.MaxTickDuration = time.Duration(ticks[len(ticks)-1])
	out.P95TickDuration = time.Duration(stat.Quantile(0.95, stat.Empirical, ticks, nil))
	if mean > 0 {
		out.TicksPerSecond = float64(time.Second) / mean
	}

	n := time.Duration(p.filled)
	for phase, sum := range sums {
		avg := sum / n
		out.PhaseAvg[phase] = avg
		if mean > 0 {
			out.PhasePct[phase] = float64(avg) / mean * 100
		}
	}
	return out
}

// LogStats logs the summary with phases above 0.1% of the step.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"p95_tick_us", s.P95TickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, phase := range AllPhases() {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("samples", s.Samples),
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int64("p95_tick_us", s.P95TickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range AllPhases() {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd      int32   `csv:"window_end"`
	AvgTickUS      int64   `csv:"avg_tick_us"`
	MinTickUS      int64   `csv:"min_tick_us"`
	MaxTickUS      int64   `csv:"max_tick_us"`
	P95TickUS      int64   `csv:"p95_tick_us"`
	TicksPerSec    float64 `csv:"ticks_per_sec"`
	FPS            float64 `csv:"fps"`
	MovePct        float64 `csv:"move_pct"`
	LODPct         float64 `csv:"lod_pct"`
	SamplesPct     float64 `csv:"samples_pct"`
	WorkersPct     float64 `csv:"workers_pct"`
	TimePct        float64 `csv:"time_pct"`
	SpawnPct       float64 `csv:"spawn_pct"`
	PreUpdatePct   float64 `csv:"pre_update_pct"`
	UpdatePct      float64 `csv:"update_pct"`
	PostUpdatePct  float64 `csv:"post_update_pct"`
	FinalUpdatePct float64 `csv:"final_update_pct"`
	KillPct        float64 `csv:"kill_pct"`
	BoundsPct      float64 `csv:"bounds_pct"`
	ChainsPct      float64 `csv:"chains_pct"`
	CleanupPct     float64 `csv:"cleanup_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the summary for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	pct := s.PhasePct
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgTickUS:      s.AvgTickDuration.Microseconds(),
		MinTickUS:      s.MinTickDuration.Microseconds(),
		MaxTickUS:      s.MaxTickDuration.Microseconds(),
		P95TickUS:      s.P95TickDuration.Microseconds(),
		TicksPerSec:    s.TicksPerSecond,
		FPS:            s.FPS,
		MovePct:        pct[PhaseMove],
		LODPct:         pct[PhaseLOD],
		SamplesPct:     pct[PhaseSamples],
		WorkersPct:     pct[PhaseWorkers],
		TimePct:        pct[emitter.PhaseTime],
		SpawnPct:       pct[emitter.PhaseSpawn],
		PreUpdatePct:   pct[emitter.PhasePreUpdate],
		UpdatePct:      pct[emitter.PhaseUpdate],
		PostUpdatePct:  pct[emitter.PhasePostUpdate],
		FinalUpdatePct: pct[emitter.PhaseFinalUpdate],
		KillPct:        pct[emitter.PhaseKill],
		BoundsPct:      pct[emitter.PhaseBounds],
		ChainsPct:      pct[emitter.PhaseChains],
		CleanupPct:     pct[PhaseCleanup],
		TelemetryPct:   pct[PhaseTelemetry],
	}
}
