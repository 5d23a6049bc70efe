// Package main tunes an effect's particle budget with CMA-ES.
package main

import (
	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/distribution"
)

// ParamSpec is one tunable value and its search box.
type ParamSpec struct {
	Name    string
	Path    string // where the value lands in the effect config
	Min     float64
	Max     float64
	Default float64
}

func (s ParamSpec) clamp(v float64) float64 { return min(max(v, s.Min), s.Max) }

func (s ParamSpec) normalize(v float64) float64 { return (v - s.Min) / (s.Max - s.Min) }

func (s ParamSpec) denormalize(u float64) float64 { return s.Min + u*(s.Max-s.Min) }

// ParamVector is the ordered set of tuned values. ApplyToConfig and
// ExtractFromConfig rely on the order of Specs.
type ParamVector struct {
	Specs []ParamSpec
}

const (
	paramRateScale = iota
	paramMaxParticles
	paramInitialAllocation
)

// NewParamVector builds the tunables for ec, defaulting to its current settings.
func NewParamVector(ec *config.EffectConfig) *ParamVector {
	pv := &ParamVector{Specs: []ParamSpec{
		paramRateScale:         {Name: "rate_scale", Path: "lod_levels[*].spawn.rate_scale", Min: 0.1, Max: 4},
		paramMaxParticles:      {Name: "max_particles", Path: "max_particles", Min: 16, Max: 4000},
		paramInitialAllocation: {Name: "initial_allocation", Path: "initial_allocation", Min: 0, Max: 2000},
	}}
	for i, v := range pv.Clamp(pv.ExtractFromConfig(ec)) {
		pv.Specs[i].Default = v
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int { return len(pv.Specs) }

func (pv *ParamVector) each(v []float64, f func(ParamSpec, float64) float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		out[i] = f(s, v[i])
	}
	return out
}

// DefaultVector returns the defaults in raw units.
func (pv *ParamVector) DefaultVector() []float64 {
	return pv.each(make([]float64, len(pv.Specs)), func(s ParamSpec, _ float64) float64 { return s.Default })
}

// Normalize maps raw values onto [0,1] per parameter.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	return pv.each(raw, ParamSpec.normalize)
}

// Denormalize maps [0,1] values back to raw units.
func (pv *ParamVector) Denormalize(u []float64) []float64 {
	return pv.each(u, ParamSpec.denormalize)
}

// Clamp limits every value to its box.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	return pv.each(v, ParamSpec.clamp)
}

// ApplyToConfig returns ec with values applied. ec's LOD slice is copied, not
// modified.
func (pv *ParamVector) ApplyToConfig(ec config.EffectConfig, values []float64) config.EffectConfig {
	v := pv.Clamp(values)

	ec.LODLevels = append([]config.LODConfig(nil), ec.LODLevels...)
	scale := distribution.Const(float32(v[paramRateScale]))
	for i := range ec.LODLevels {
		ec.LODLevels[i].Spawn.RateScale = scale
	}
	ec.MaxParticles = int(v[paramMaxParticles])
	ec.InitialAllocation = min(int(v[paramInitialAllocation]), ec.MaxParticles)
	return ec
}

// ExtractFromConfig reads the current values from ec. A rate scale that is
// not a constant reads as 1; an unset particle cap reads as 1000.
func (pv *ParamVector) ExtractFromConfig(ec *config.EffectConfig) []float64 {
	v := make([]float64, len(pv.Specs))
	v[paramRateScale] = 1
	if len(ec.LODLevels) > 0 {
		if c := ec.LODLevels[0].Spawn.RateScale.Constant; c != nil {
			v[paramRateScale] = float64(*c)
		}
	}
	v[paramMaxParticles] = 1000
	if ec.MaxParticles > 0 {
		v[paramMaxParticles] = float64(ec.MaxParticles)
	}
	v[paramInitialAllocation] = float64(ec.InitialAllocation)
	return v
}
