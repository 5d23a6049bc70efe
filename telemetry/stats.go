package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Scene population at window end
	Effects   int `csv:"effects"`
	Particles int `csv:"particles"`

	// Effect lifecycle during window
	Placed    int `csv:"placed"`
	Completed int `csv:"completed"`

	// Emitter counters during window
	Spawned     int     `csv:"spawned"`
	Killed      int     `csv:"killed"`
	Dropped     int     `csv:"dropped"`
	BurstsFired int     `csv:"bursts_fired"`
	Loops       int     `csv:"loops"`
	LODSwitches int     `csv:"lod_switches"`
	DropRate    float64 `csv:"drop_rate"`

	// Particle events reported by event generators
	SpawnEvents int `csv:"spawn_events"`
	DeathEvents int `csv:"death_events"`

	// Particles per effect (sampled at window end)
	ParticlesMean float64 `csv:"particles_mean"`
	ParticlesStd  float64 `csv:"particles_std"`
	ParticlesP50  float64 `csv:"particles_p50"`
	ParticlesP90  float64 `csv:"particles_p90"`

	// Relative age of live particles (sampled at window end)
	AgeMean float64 `csv:"age_mean"`
	AgeP10  float64 `csv:"age_p10"`
	AgeP50  float64 `csv:"age_p50"`
	AgeP90  float64 `csv:"age_p90"`

	// Pool memory held by all effects
	AllocatedBytes int `csv:"allocated_bytes"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// ComputeDistribution calculates mean, sample standard deviation and percentiles.
// The input is not modified.
func ComputeDistribution(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	var d Distribution
	if n == 1 {
		d.Mean = values[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	d.P10 = Percentile(sorted, 0.10)
	d.P50 = Percentile(sorted, 0.50)
	d.P90 = Percentile(sorted, 0.90)
	return d
}

// CoefficientOfVariation returns std/mean, or 0 for an empty or zero-mean sample.
func CoefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("effects", s.Effects),
		slog.Int("particles", s.Particles),
		slog.Int("placed", s.Placed),
		slog.Int("completed", s.Completed),
		slog.Int("spawned", s.Spawned),
		slog.Int("killed", s.Killed),
		slog.Int("dropped", s.Dropped),
		slog.Int("bursts_fired", s.BurstsFired),
		slog.Int("loops", s.Loops),
		slog.Int("lod_switches", s.LODSwitches),
		slog.Float64("drop_rate", s.DropRate),
		slog.Int("spawn_events", s.SpawnEvents),
		slog.Int("death_events", s.DeathEvents),
		slog.Float64("particles_mean", s.ParticlesMean),
		slog.Float64("particles_std", s.ParticlesStd),
		slog.Float64("particles_p50", s.ParticlesP50),
		slog.Float64("particles_p90", s.ParticlesP90),
		slog.Float64("age_mean", s.AgeMean),
		slog.Float64("age_p10", s.AgeP10),
		slog.Float64("age_p50", s.AgeP50),
		slog.Float64("age_p90", s.AgeP90),
		slog.Int("allocated_bytes", s.AllocatedBytes),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"effects", s.Effects,
		"particles", s.Particles,
		"placed", s.Placed,
		"completed", s.Completed,
		"spawned", s.Spawned,
		"killed", s.Killed,
		"dropped", s.Dropped,
		"bursts_fired", s.BurstsFired,
		"loops", s.Loops,
		"lod_switches", s.LODSwitches,
		"drop_rate", s.DropRate,
		"particles_mean", s.ParticlesMean,
		"particles_p90", s.ParticlesP90,
		"age_mean", s.AgeMean,
		"age_p50", s.AgeP50,
		"allocated_bytes", s.AllocatedBytes,
	)
}
