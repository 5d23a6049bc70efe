package emitter

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/module"
)

func twoLODTemplate() *Template {
	accel := func() module.Module {
		return &module.Acceleration{Acceleration: distribution.ConstantVector{0, 0, -10}}
	}
	return &Template{
		Name:         "lod",
		MaxParticles: 100,
		LODDistances: []float32{0, 50},
		LODLevels: []*LODLevel{
			{
				Spawn:   Spawn{Bursts: []Burst{{Time: 0, Count: 10, CountLow: -1}}},
				Modules: []module.Module{accel()},
			},
			{
				MaxParticles: 3,
				Spawn:        Spawn{Bursts: []Burst{{Time: 0.2, Count: 4, CountLow: -1}}},
				Modules:      []module.Module{accel()},
			},
		},
	}
}

func TestLOD_ShrinkDropsExcessAndKeepsPayload(t *testing.T) {
	in := start(t, twoLODTemplate(), nil)
	in.Tick(0.1, false)
	require.Equal(t, 10, in.Active())

	in.SetCurrentLODIndex(1, false)
	assert.Equal(t, 1, in.CurrentLODIndex())
	assert.Equal(t, 3, in.Active())
	assert.Equal(t, 3, in.Pool().MaxActive())
	assert.Equal(t, 7, in.Stats().Killed)

	p := in.Pool()
	for i := 0; i < p.Active(); i++ {
		assert.Equal(t, mgl32.Vec3{0, 0, -10}, in.view(p.At(i), 1).Vec3(0))
	}
}

func TestLOD_FullyProcessSkipsPassedBursts(t *testing.T) {
	tmpl := twoLODTemplate()
	tmpl.LODLevels[0].Spawn.Bursts = nil

	skip := start(t, tmpl, nil)
	run(skip, 0.1, 5)
	skip.SetCurrentLODIndex(1, true)
	skip.Tick(0.1, false)
	assert.Equal(t, 0, skip.Active())

	replay := start(t, tmpl, nil)
	run(replay, 0.1, 5)
	replay.SetCurrentLODIndex(1, false)
	replay.Tick(0.1, false)
	assert.Equal(t, 3, replay.Active(), "burst of 4 is capped by the LOD's limit")
	assert.Equal(t, 1, replay.Stats().Dropped)
}

func TestLOD_DisabledKillsAndStopsSpawning(t *testing.T) {
	tmpl := twoLODTemplate()
	tmpl.LODLevels[1].Disabled = true
	in := start(t, tmpl, nil)
	in.Tick(0.1, false)
	require.Equal(t, 10, in.Active())

	in.SetCurrentLODIndex(1, false)
	assert.Equal(t, 0, in.Active())
	run(in, 0.1, 5)
	assert.Equal(t, 0, in.Active())
}

func TestLOD_OutOfRangeFallsBackToZero(t *testing.T) {
	in := start(t, twoLODTemplate(), nil)
	in.SetCurrentLODIndex(1, false)
	in.SetCurrentLODIndex(7, false)
	assert.Equal(t, 0, in.CurrentLODIndex())
}

func TestLOD_ForDistance(t *testing.T) {
	tmpl := twoLODTemplate()
	assert.Equal(t, 0, tmpl.LODFor(10))
	assert.Equal(t, 1, tmpl.LODFor(50))
	assert.Equal(t, 1, tmpl.LODFor(500))
}

func TestLOD_ChainSurvivesRestride(t *testing.T) {
	tmpl := trailTemplate(10, 0)
	tmpl.LODLevels = append(tmpl.LODLevels, &LODLevel{
		Spawn:        tmpl.LODLevels[0].Spawn,
		MaxParticles: 5,
	})
	in := start(t, tmpl, nil)
	run(in, 0.1, 10)
	require.Equal(t, 10, in.Active())

	in.SetCurrentLODIndex(1, false)
	require.Equal(t, 5, in.Active())

	set := in.Chains()
	require.Equal(t, 1, set.Len())
	ch := set.All()[0]
	assert.Equal(t, 5, ch.Count)
	assert.True(t, ch.Dead, "fragment that lost its head no longer grows")
	assert.Equal(t, 5, walkLen(set, ch))

	in.Pool().Record(ch.Tail).Kill()
	in.Tick(0.1, false)
	require.Equal(t, 4, in.Active())
	in.Tick(0.1, false)
	assert.Equal(t, 2, set.Len(), "new particles start a fresh chain")
}
