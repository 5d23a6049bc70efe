package main

import (
	"testing"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/telemetry"
)

func TestParamVector_Defaults(t *testing.T) {
	ec := &config.EffectConfig{
		MaxParticles: 9000,
		LODLevels:    []config.LODConfig{{Spawn: config.SpawnConfig{RateScale: distribution.Const(2)}}},
	}
	pv := NewParamVector(ec)
	def := pv.DefaultVector()

	if def[0] != 2 {
		t.Errorf("expected rate scale default 2, got %v", def[0])
	}
	if def[1] != 4000 {
		t.Errorf("expected max particles clamped to 4000, got %v", def[1])
	}
}

func TestParamVector_NormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector(&config.EffectConfig{})
	raw := []float64{1.5, 500, 100}
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if d := back[i] - raw[i]; d > 1e-9 || d < -1e-9 {
			t.Errorf("param %d: expected %v, got %v", i, raw[i], back[i])
		}
	}
}

func TestParamVector_ApplyToConfig(t *testing.T) {
	ec := config.EffectConfig{
		Name:      "puff",
		LODLevels: []config.LODConfig{{}, {}},
	}
	pv := NewParamVector(&ec)
	out := pv.ApplyToConfig(ec, []float64{10, 100, 500})

	if out.MaxParticles != 100 {
		t.Errorf("expected max particles 100, got %d", out.MaxParticles)
	}
	if out.InitialAllocation != 100 {
		t.Errorf("expected initial allocation capped at 100, got %d", out.InitialAllocation)
	}
	for i, lod := range out.LODLevels {
		if lod.Spawn.RateScale.Constant == nil || *lod.Spawn.RateScale.Constant != 4 {
			t.Errorf("LOD %d: expected rate scale clamped to 4, got %+v", i, lod.Spawn.RateScale)
		}
	}
	if !ec.LODLevels[0].Spawn.RateScale.IsZero() {
		t.Error("expected source config untouched")
	}
}

func TestSummarize(t *testing.T) {
	windows := []telemetry.WindowStats{
		{Particles: 1000, DropRate: 1},
		{Particles: 100, DropRate: 0.1, AllocatedBytes: 10},
		{Particles: 300, DropRate: 0.3, AllocatedBytes: 20},
	}
	s := summarize(windows, 2)
	if s.particles != 100 {
		t.Errorf("expected 100 particles per instance, got %v", s.particles)
	}
	if s.peak != 150 {
		t.Errorf("expected peak 150, got %v", s.peak)
	}
	if d := s.dropRate - 0.2; d > 1e-9 || d < -1e-9 {
		t.Errorf("expected drop rate 0.2, got %v", s.dropRate)
	}
	if s.bytes != 20 {
		t.Errorf("expected 20 bytes, got %v", s.bytes)
	}
}

func TestComputeFitness(t *testing.T) {
	fe := &FitnessEvaluator{target: 100}
	onTarget := fe.computeFitness(runSummary{particles: 100, peak: 100}, 100)
	if onTarget != 0 {
		t.Errorf("expected zero fitness on target, got %v", onTarget)
	}
	off := fe.computeFitness(runSummary{particles: 50, peak: 50, dropRate: 0.1}, 100)
	if off <= onTarget {
		t.Errorf("expected missing the target to score worse, got %v", off)
	}
}
